package collision

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/sprite-engine/internal/logging"
	"github.com/annel0/sprite-engine/internal/physics"
	"github.com/annel0/sprite-engine/internal/world/entity"
)

// DefaultOnTopTolerance - высота полосы верхней грани по умолчанию
const DefaultOnTopTolerance = 8.0

var (
	outcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "engine",
		Subsystem: "collision",
		Name:      "outcomes_total",
		Help:      "Результаты проверок столкновений по типу исхода.",
	}, []string{"outcome"})

	unresolvedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "engine",
		Subsystem: "collision",
		Name:      "unresolved_total",
		Help:      "Комбинации, для которых не нашлось правила и выбран NotValid.",
	})
)

func init() {
	prometheus.MustRegister(outcomesTotal, unresolvedTotal)
}

// Resolver решает исход столкновения пары пересекающихся сущностей.
// Ошибок не возвращает: неизвестная комбинация даёт NotValid.
type Resolver struct {
	ctx    entity.CollisionContext
	logger *logging.Logger
}

// NewResolver создаёт резолвер с заданной высотой полосы верхней грани
func NewResolver(onTopTolerance float64) *Resolver {
	if onTopTolerance <= 0 {
		onTopTolerance = DefaultOnTopTolerance
	}
	return &Resolver{
		ctx:    entity.CollisionContext{OnTopTolerance: onTopTolerance},
		logger: logging.GetCollisionLogger(),
	}
}

// Context возвращает параметры, передаваемые подтипам
func (r *Resolver) Context() entity.CollisionContext {
	return r.ctx
}

// Validate возвращает исход с точки зрения self. Вызов для (other, self)
// выполняется отдельно и может дать другой результат.
func (r *Resolver) Validate(self, other *entity.Entity) physics.Outcome {
	outcome := r.validate(self, other)
	outcomesTotal.WithLabelValues(outcome.String()).Inc()
	return outcome
}

func (r *Resolver) validate(self, other *entity.Entity) physics.Outcome {
	if !self.Collidable() || !other.Collidable() {
		return physics.NotValid
	}
	if !ghostVisible(self, other) || !ghostVisible(other, self) {
		return physics.NotValid
	}

	if self.Kind != nil {
		if v := self.Kind.ValidateCollision(r.ctx, self, other); v != physics.NotPossible {
			return v
		}
	}

	// без собственных правил сталкиваются только массивные объекты
	if self.Massivity != physics.MassMassive {
		return physics.NotValid
	}

	switch other.Massivity {
	case physics.MassMassive:
		return physics.Blocking
	case physics.MassHalfMassive:
		return r.ctx.HalfMassive(self, other)
	case physics.MassPassive:
		if other.Type == entity.TypeEnemyStopper && self.IsEnemy() {
			return physics.Blocking
		}
		return physics.NotValid
	case physics.MassFrontPassive:
		return physics.NotValid
	case physics.MassClimbable:
		return physics.Internal
	}

	unresolvedTotal.Inc()
	r.logger.Warn("Нет правила столкновения: %s(%d, %s) с %s(%d, %s)",
		self.Type, self.UID, self.Massivity, other.Type, other.UID, other.Massivity)
	return physics.NotValid
}

// ghostVisible проверяет, видит ли observer призрачную сущность g.
// Призраки сталкиваются только с игроком в режиме призрака.
func ghostVisible(g, observer *entity.Entity) bool {
	if !g.Ghost {
		return true
	}
	p, ok := entity.PlayerState(observer)
	return ok && p.GhostMode
}

// Pair - пересекающаяся пара с исходами для каждой стороны
type Pair struct {
	A, B     *entity.Entity
	AOutcome physics.Outcome // Исход с точки зрения A
	BOutcome physics.Outcome // Исход с точки зрения B
}

// Relevant сообщает, значима ли пара хотя бы для одной стороны
func (p Pair) Relevant() bool {
	return p.AOutcome != physics.NotValid || p.BOutcome != physics.NotValid
}

// Pairs перебирает пересекающиеся активные сущности и возвращает значимые пары.
// Порядок пар определяется порядком входного среза.
func (r *Resolver) Pairs(entities []*entity.Entity) []Pair {
	var pairs []Pair
	for i := 0; i < len(entities); i++ {
		a := entities[i]
		if !a.Active || !a.Collidable() {
			continue
		}
		rectA := a.CollisionRect()
		for j := i + 1; j < len(entities); j++ {
			b := entities[j]
			if !b.Active || !b.Collidable() {
				continue
			}
			if !rectA.Intersects(b.CollisionRect()) {
				continue
			}
			p := Pair{A: a, B: b, AOutcome: r.Validate(a, b), BOutcome: r.Validate(b, a)}
			if p.Relevant() {
				pairs = append(pairs, p)
			}
		}
	}
	return pairs
}
