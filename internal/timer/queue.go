package timer

// DefaultQueueSize - ёмкость очереди отложенных вызовов по умолчанию
const DefaultQueueSize = 1024

// Deferred - запрос на вызов обработчика таймера в основном цикле
type Deferred struct {
	Timer   *Timer
	Payload interface{}
}

// Queue передаёт сработавшие таймеры из рабочих горутин в основной цикл.
// Производителей много, потребитель один: Drain вызывается раз за кадр.
type Queue struct {
	ch chan Deferred
}

// NewQueue создаёт очередь заданной ёмкости
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan Deferred, size)}
}

// Push ставит вызов в очередь. Если очередь заполнена, ждёт места,
// пока не закрыт halt. Возвращает false, если ожидание прервано.
func (q *Queue) Push(halt <-chan struct{}, d Deferred) bool {
	select {
	case q.ch <- d:
		return true
	case <-halt:
		return false
	}
}

// Drain забирает все вызовы, накопленные к моменту вызова, в порядке поступления.
// Вызовы, пришедшие во время выборки, останутся до следующего кадра.
func (q *Queue) Drain() []Deferred {
	n := len(q.ch)
	if n == 0 {
		return nil
	}
	out := make([]Deferred, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, <-q.ch)
	}
	return out
}

// Len возвращает число ожидающих вызовов
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap возвращает ёмкость очереди
func (q *Queue) Cap() int {
	return cap(q.ch)
}
