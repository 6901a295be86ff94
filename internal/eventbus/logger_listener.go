package eventbus

import (
	"context"
	"strconv"

	"github.com/annel0/sprite-engine/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог.
// Сбои обработчиков пишутся предупреждением, остальное - в debug.
// Функция неблокирующая.
func StartLoggingListener(bus EventBus) (Subscription, error) {
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		if ev.EventType == TypeHandlerFailed {
			var failure HandlerFailure
			if err := ev.Decode(&failure); err == nil {
				owner := "global"
				if failure.UID != nil {
					owner = strconv.FormatUint(*failure.UID, 10)
				}
				logging.Warn("[EventBus] %s src=%s обработчик %s (uid=%s) упал: %s",
					ev.ID, ev.Source, failure.Event, owner, failure.Error)
				return
			}
		}
		logging.Debug("[EventBus] %s %s src=%s prio=%d size=%dB", ev.ID, ev.EventType, ev.Source, ev.Priority, len(ev.Payload))
	})
	if err != nil {
		return nil, err
	}
	logging.Info("🪵 LoggingListener: подписка на все события активирована")
	return sub, nil
}
