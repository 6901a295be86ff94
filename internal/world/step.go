package world

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/sprite-engine/internal/collision"
	"github.com/annel0/sprite-engine/internal/physics"
	"github.com/annel0/sprite-engine/internal/world/entity"
)

// FrameStats - сводка одного кадра
type FrameStats struct {
	Frame         uint64        `json:"frame"`
	Commands      int           `json:"commands"`
	Moved         int           `json:"moved"`
	Pairs         int           `json:"pairs"`
	Blocking      int           `json:"blocking"`
	Touches       int           `json:"touches"`
	HandlerErrors int           `json:"handler_errors"`
	Deferred      int           `json:"deferred"`
	Swept         int           `json:"swept"`
	Duration      time.Duration `json:"duration_ns"`
}

// Step выполняет один кадр:
//  1. команды из других горутин;
//  2. перемещение по скорости;
//  3. попарная проверка столкновений, выталкивание и события touch;
//  4. удаление погибших;
//  5. единственный за кадр разбор отложенных вызовов таймеров.
func (l *Level) Step(ctx context.Context, dt float64) error {
	if l.closed {
		return ErrLevelClosed
	}

	l.frame++
	ctx, span := l.tracer.Start(ctx, "level.step", trace.WithAttributes(
		attribute.String("level.name", l.cfg.Name),
		attribute.Int64("level.frame", int64(l.frame)),
	))
	defer span.End()

	l.ctx = ctx
	defer func() { l.ctx = context.Background() }()

	started := time.Now()
	stats := FrameStats{Frame: l.frame}

	stats.Commands = l.drainCommands()
	if l.closed {
		// команда закрыла уровень
		return nil
	}

	entities := l.manager.All()
	stats.Moved = l.integrate(entities, dt)

	for _, p := range l.resolver.Pairs(entities) {
		stats.Pairs++
		l.handlePair(p, &stats)
	}

	stats.Swept = l.manager.Sweep()
	stats.Deferred = l.runtime.EvaluateDeferredCallbacks()
	// таймеры тоже могли кого-то убить
	stats.Swept += l.manager.Sweep()

	stats.Duration = time.Since(started)
	span.SetAttributes(
		attribute.Int("collision.pairs", stats.Pairs),
		attribute.Int("collision.blocking", stats.Blocking),
		attribute.Int("script.touches", stats.Touches),
		attribute.Int("timer.deferred", stats.Deferred),
	)
	l.refreshSnapshot(stats)
	return nil
}

func (l *Level) drainCommands() int {
	n := 0
	for {
		select {
		case cmd := <-l.commands:
			cmd(l)
			n++
		default:
			return n
		}
	}
}

// integrate сдвигает активные сущности на velocity*dt
func (l *Level) integrate(entities []*entity.Entity, dt float64) int {
	moved := 0
	for _, e := range entities {
		if !e.Active || !e.Collidable() || e.Velocity.IsZero() {
			continue
		}
		l.manager.Move(e, e.Velocity.X*dt, e.Velocity.Y*dt)
		moved++
	}
	return moved
}

// handlePair выталкивает блокирующиеся стороны и рассылает touch.
// Каждая сторона получает событие только для своего исхода.
func (l *Level) handlePair(p collision.Pair, stats *FrameStats) {
	if p.AOutcome == physics.Blocking {
		stats.Blocking++
		l.separate(p.A, p.B)
	}
	if p.BOutcome == physics.Blocking {
		stats.Blocking++
		l.separate(p.B, p.A)
	}

	l.touch(p.A, p.B, p.AOutcome, stats)
	l.touch(p.B, p.A, p.BOutcome, stats)
}

func (l *Level) touch(self, other *entity.Entity, outcome physics.Outcome, stats *FrameStats) {
	if outcome == physics.NotValid || !self.Collidable() {
		return
	}
	stats.Touches++
	stats.HandlerErrors += l.runtime.FireTouch(self, other)

	if self.Type == entity.TypeBall {
		l.ballHit(self, other)
	}
}

// ballHit гасит шар при попадании; враг, задетый чужим шаром, погибает
func (l *Level) ballHit(ball, other *entity.Entity) {
	kind, ok := ball.Kind.(*entity.Ball)
	if !ok || ball.Dead {
		return
	}
	if other.IsEnemy() && kind.OriginArray != entity.ArrayEnemy {
		l.runtime.KillEnemy(other)
	}
	if other.IsPlayer() && kind.OriginType != entity.TypePlayer {
		l.runtime.Downgrade()
	}
	l.manager.Kill(ball)
}

// separate выталкивает движущуюся сущность m из o по оси наименьшего
// проникновения и гасит скорость вдоль этой оси.
func (l *Level) separate(m, o *entity.Entity) {
	if m.Velocity.IsZero() || m.Dead {
		return
	}
	mr, or := m.CollisionRect(), o.CollisionRect()
	dx, dy := mr.Overlap(or)
	if dx == 0 && dy == 0 {
		return
	}

	if dy <= dx {
		if mr.Y+mr.H/2 < or.Y+or.H/2 {
			l.manager.Move(m, 0, -dy)
			if m.Velocity.Y > 0 {
				l.manager.SetVelocity(m, m.Velocity.X, 0)
			}
		} else {
			l.manager.Move(m, 0, dy)
			if m.Velocity.Y < 0 {
				l.manager.SetVelocity(m, m.Velocity.X, 0)
			}
		}
		return
	}

	if mr.X+mr.W/2 < or.X+or.W/2 {
		l.manager.Move(m, -dx, 0)
		if m.Velocity.X > 0 {
			l.manager.SetVelocity(m, 0, m.Velocity.Y)
		}
	} else {
		l.manager.Move(m, dx, 0)
		if m.Velocity.X < 0 {
			l.manager.SetVelocity(m, 0, m.Velocity.Y)
		}
	}
}
