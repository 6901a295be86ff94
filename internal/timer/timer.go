package timer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// State - состояние таймера
type State uint8

const (
	Idle State = iota
	Running
	Halting
)

// String возвращает имя состояния
func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Halting:
		return "halting"
	default:
		return "idle"
	}
}

var firesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "engine",
	Subsystem: "timer",
	Name:      "fires_total",
	Help:      "Срабатывания таймеров, поставленные в очередь основного цикла.",
}, []string{"kind"})

func init() {
	prometheus.MustRegister(firesTotal)
}

// Timer откладывает вызов обработчика на интервал, однократно или периодически.
// Рабочая горутина только спит и ставит запрос в очередь; сам обработчик
// выполняет основной цикл при разборе очереди.
type Timer struct {
	interval time.Duration
	periodic bool
	payload  interface{}
	queue    *Queue

	mu    sync.Mutex
	state State
	halt  chan struct{}
	done  chan struct{}

	fired atomic.Uint64
}

// New создаёт остановленный таймер
func New(queue *Queue, interval time.Duration, periodic bool, payload interface{}) *Timer {
	return &Timer{
		interval: interval,
		periodic: periodic,
		payload:  payload,
		queue:    queue,
	}
}

// Start запускает рабочую горутину. Если таймер уже запущен или его
// интервал не положителен, ничего не делает и возвращает false.
func (t *Timer) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Idle || t.interval <= 0 {
		return false
	}
	halt := make(chan struct{})
	done := make(chan struct{})
	t.halt, t.done = halt, done
	t.state = Running

	go t.run(halt, done)
	return true
}

// Stop просит рабочую горутину завершиться и ждёт её выхода.
// Для остановленного таймера ничего не делает. Рабочая горутина никогда не
// ждёт основной цикл, поэтому Stop можно вызывать из обработчика этого же таймера.
func (t *Timer) Stop() {
	if done := t.Interrupt(); done != nil {
		<-done
	}
}

// Interrupt просит рабочую горутину завершиться и не ждёт её выхода.
// Возвращает канал, который закроется после выхода, или nil, если
// таймер уже остановлен. До выхода горутины таймер в состоянии Halting.
func (t *Timer) Interrupt() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == Running {
		t.state = Halting
		close(t.halt)
	}
	if t.done == nil {
		return nil
	}
	return t.done
}

// ShallHalt сообщает, что остановка запрошена, но горутина ещё не вышла
func (t *Timer) ShallHalt() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == Halting
}

// IsActive сообщает, запущен ли таймер
func (t *Timer) IsActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == Running
}

// State возвращает текущее состояние
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Interval возвращает интервал
func (t *Timer) Interval() time.Duration { return t.interval }

// Periodic сообщает, повторяется ли таймер
func (t *Timer) Periodic() bool { return t.periodic }

// Payload возвращает непрозрачный обработчик, переданный при создании
func (t *Timer) Payload() interface{} { return t.payload }

// Fired возвращает число срабатываний, поставленных в очередь
func (t *Timer) Fired() uint64 { return t.fired.Load() }

func (t *Timer) run(halt <-chan struct{}, done chan struct{}) {
	defer t.finish(done)

	if !t.periodic {
		timer := time.NewTimer(t.interval)
		defer timer.Stop()
		select {
		case <-halt:
		case <-timer.C:
			t.enqueue(halt)
		}
		return
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-halt:
			return
		case <-ticker.C:
			if !t.enqueue(halt) {
				return
			}
		}
	}
}

// enqueue ставит срабатывание в очередь, если остановка ещё не запрошена
func (t *Timer) enqueue(halt <-chan struct{}) bool {
	select {
	case <-halt:
		return false
	default:
	}
	if !t.queue.Push(halt, Deferred{Timer: t, Payload: t.payload}) {
		return false
	}
	t.fired.Add(1)
	kind := "oneshot"
	if t.periodic {
		kind = "periodic"
	}
	firesTotal.WithLabelValues(kind).Inc()
	return true
}

// finish переводит таймер в Idle. Однократный таймер попадает сюда сам
// после срабатывания.
func (t *Timer) finish(done chan struct{}) {
	t.mu.Lock()
	if t.done == done {
		t.state = Idle
		t.halt = nil
		t.done = nil
	}
	t.mu.Unlock()
	close(done)
}
