package events

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/sprite-engine/internal/logging"
)

// Имена событий, которые движок рассылает скриптам
const (
	Touch     = "touch"
	Die       = "die"
	Jump      = "jump"
	Shoot     = "shoot"
	Downgrade = "downgrade"
	KeyDown   = "key_down"
	Load      = "load"
	Save      = "save"
)

var (
	firedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "engine",
		Subsystem: "events",
		Name:      "handlers_invoked_total",
		Help:      "Число вызовов обработчиков по имени события.",
	}, []string{"event"})

	handlerErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "engine",
		Subsystem: "events",
		Name:      "handler_errors_total",
		Help:      "Число ошибок в обработчиках по имени события.",
	}, []string{"event"})
)

func init() {
	prometheus.MustRegister(firedTotal, handlerErrorsTotal)
}

// ErrorSink получает каждую ошибку обработчика после логирования
type ErrorSink func(event string, err error)

// HandlerError описывает сбой одного обработчика при рассылке
type HandlerError struct {
	Event string
	Index int // Позиция обработчика в порядке регистрации
	Err   error
}

func (e HandlerError) Error() string { return e.Event + ": " + e.Err.Error() }

func (e HandlerError) Unwrap() error { return e.Err }

// Registry хранит упорядоченные списки обработчиков по имени события.
// Списки только растут: повторная регистрация того же обработчика
// приводит к повторному вызову.
type Registry[H any] struct {
	mu       sync.RWMutex
	handlers map[string][]H
	owner    string
	sink     ErrorSink
	logger   *logging.Logger
}

// NewRegistry создаёт пустой реестр. owner попадает в диагностические сообщения.
func NewRegistry[H any](owner string) *Registry[H] {
	return &Registry[H]{
		handlers: make(map[string][]H),
		owner:    owner,
		logger:   logging.GetScriptLogger(),
	}
}

// SetErrorSink задаёт получателя ошибок обработчиков
func (r *Registry[H]) SetErrorSink(sink ErrorSink) {
	r.mu.Lock()
	r.sink = sink
	r.mu.Unlock()
}

// Register добавляет обработчик в конец списка события
func (r *Registry[H]) Register(event string, handler H) {
	r.mu.Lock()
	r.handlers[event] = append(r.handlers[event], handler)
	r.mu.Unlock()
}

// Handlers возвращает копию списка обработчиков события
func (r *Registry[H]) Handlers(event string) []H {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]H(nil), r.handlers[event]...)
}

// Len возвращает число обработчиков события
func (r *Registry[H]) Len(event string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[event])
}

// Events возвращает отсортированные имена событий с обработчиками
func (r *Registry[H]) Events() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear удаляет все обработчики
func (r *Registry[H]) Clear() {
	r.mu.Lock()
	r.handlers = make(map[string][]H)
	r.mu.Unlock()
}

// Fire вызывает обработчики события в порядке регистрации. invoke
// подставляет аргументы конкретного события. Ошибка обработчика
// логируется и не прерывает рассылку; все сбои возвращаются списком.
// Обработчики, добавленные во время рассылки, сработают со следующего раза.
func (r *Registry[H]) Fire(event string, invoke func(H) error) []HandlerError {
	r.mu.RLock()
	list := append([]H(nil), r.handlers[event]...)
	sink := r.sink
	r.mu.RUnlock()

	var failures []HandlerError
	for i, h := range list {
		firedTotal.WithLabelValues(event).Inc()
		if err := invoke(h); err != nil {
			handlerErrorsTotal.WithLabelValues(event).Inc()
			r.logger.Warn("Ошибка в обработчике %q (%s, #%d): %v", event, r.owner, i, err)
			failures = append(failures, HandlerError{Event: event, Index: i, Err: err})
			if sink != nil {
				sink(event, err)
			}
		}
	}
	return failures
}
