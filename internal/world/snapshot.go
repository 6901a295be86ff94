package world

import "github.com/annel0/sprite-engine/internal/world/entity"

// EntityView - копия состояния сущности для чтения из других горутин
type EntityView struct {
	UID         uint64  `json:"uid"`
	Type        string  `json:"type"`
	Array       string  `json:"array"`
	Massivity   string  `json:"massivity"`
	ScriptClass string  `json:"script_class,omitempty"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Z           float64 `json:"z"`
	W           float64 `json:"w"`
	H           float64 `json:"h"`
	VX          float64 `json:"vx"`
	VY          float64 `json:"vy"`
	Active      bool    `json:"active"`
	Spawned     bool    `json:"spawned"`
	Ghost       bool    `json:"ghost"`
	Dying       bool    `json:"dying"`
}

// TimerView - состояние таймера скрипта
type TimerView struct {
	Index      int     `json:"index"`
	IntervalMS float64 `json:"interval_ms"`
	Periodic   bool    `json:"periodic"`
	Active     bool    `json:"active"`
	State      string  `json:"state"`
	Fired      uint64  `json:"fired"`
}

// Snapshot - состояние уровня на конец последнего кадра
type Snapshot struct {
	Level    string                 `json:"level"`
	Closed   bool                   `json:"closed"`
	Last     FrameStats             `json:"last_frame"`
	Entities []EntityView           `json:"entities"`
	Timers   []TimerView            `json:"timers"`
	Script   map[string]interface{} `json:"script"`
}

// Entity ищет сущность в снимке по UID
func (s Snapshot) Entity(uid uint64) (EntityView, bool) {
	for _, e := range s.Entities {
		if e.UID == uid {
			return e, true
		}
	}
	return EntityView{}, false
}

// Snapshot возвращает снимок уровня. Безопасен из любой горутины.
func (l *Level) Snapshot() Snapshot {
	l.snapMu.RLock()
	defer l.snapMu.RUnlock()
	return l.snapshot
}

// refreshSnapshot пересобирает снимок в основном цикле
func (l *Level) refreshSnapshot(stats FrameStats) {
	snap := Snapshot{
		Level:    l.cfg.Name,
		Closed:   l.closed,
		Last:     stats,
		Entities: make([]EntityView, 0, l.manager.Len()),
		Timers:   make([]TimerView, 0),
	}

	for _, e := range l.manager.All() {
		snap.Entities = append(snap.Entities, viewOf(e))
	}
	if !l.closed {
		for i, t := range l.runtime.Timers() {
			snap.Timers = append(snap.Timers, TimerView{
				Index:      i,
				IntervalMS: float64(t.Interval().Microseconds()) / 1000,
				Periodic:   t.Periodic(),
				Active:     t.IsActive(),
				State:      t.State().String(),
				Fired:      t.Fired(),
			})
		}
		snap.Script = l.runtime.Stats()
	}

	l.snapMu.Lock()
	l.snapshot = snap
	l.snapMu.Unlock()
}

func viewOf(e *entity.Entity) EntityView {
	return EntityView{
		UID:         e.UID,
		Type:        e.Type.String(),
		Array:       e.Array.String(),
		Massivity:   e.Massivity.String(),
		ScriptClass: e.ScriptClass(),
		X:           e.Position.X,
		Y:           e.Position.Y,
		Z:           e.Z,
		W:           e.Size.X,
		H:           e.Size.Y,
		VX:          e.Velocity.X,
		VY:          e.Velocity.Y,
		Active:      e.Active,
		Spawned:     e.Spawned,
		Ghost:       e.Ghost,
		Dying:       e.Dying,
	}
}
