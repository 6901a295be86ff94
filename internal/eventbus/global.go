package eventbus

import (
	"context"

	"github.com/annel0/sprite-engine/internal/logging"
)

var globalBus EventBus

// Init устанавливает глобальную шину. nil отключает публикацию.
func Init(bus EventBus) { globalBus = bus }

// Publish отправляет событие в глобальную шину, если она инициализирована.
func Publish(ctx context.Context, ev *Envelope) error {
	if globalBus == nil {
		return nil
	}
	return globalBus.Publish(ctx, ev)
}

// Emit упаковывает payload и публикует его в шину bus (или в глобальную, если bus == nil).
// Ошибки только логируются: шина не должна ломать игровой цикл.
func Emit(ctx context.Context, bus EventBus, source, eventType string, priority int, payload interface{}) {
	if bus == nil {
		bus = globalBus
	}
	if bus == nil {
		return
	}

	ev, err := NewEnvelope(source, eventType, priority, payload)
	if err != nil {
		logging.Warn("[EventBus] %v", err)
		return
	}
	if err := bus.Publish(ctx, ev); err != nil {
		logging.Warn("[EventBus] publish %s: %v", eventType, err)
	}
}
