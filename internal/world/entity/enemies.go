package entity

import "github.com/annel0/sprite-engine/internal/physics"

// Таблицы исключений врагов. Каждая таблица исчерпывающая: если комбинация
// не перечислена явно, враг с ней не сталкивается (NotValid).

// walkerTable - общий случай шагающего врага: массивное блокирует,
// кроме перечисленных типов, платформы держат сверху, стоппер разворачивает.
func walkerTable(ctx CollisionContext, self, other *Entity, passThrough ...SpriteType) physics.Outcome {
	switch other.Massivity {
	case physics.MassMassive:
		for _, t := range passThrough {
			if other.Type == t {
				return physics.NotValid
			}
		}
		return physics.Blocking
	case physics.MassHalfMassive:
		return ctx.HalfMassive(self, other)
	case physics.MassPassive:
		if other.Type == TypeEnemyStopper {
			return physics.Blocking
		}
	}
	return physics.NotValid
}

// Walker - враг без особых правил (Pip, BeetleBarrage, базовый Enemy)
type Walker struct {
	class string
}

func (w Walker) ScriptClass() string { return w.class }

func (w Walker) ValidateCollision(ctx CollisionContext, self, other *Entity) physics.Outcome {
	return walkerTable(ctx, self, other, TypeFlyon, TypeRokko, TypeGee)
}

// Krush - большой шагающий враг
type Krush struct{}

func (Krush) ScriptClass() string { return "Krush" }

func (Krush) ValidateCollision(ctx CollisionContext, self, other *Entity) physics.Outcome {
	return walkerTable(ctx, self, other, TypeFlyon, TypeRokko, TypeGee)
}

// Larry - взрывающийся враг
type Larry struct{}

func (Larry) ScriptClass() string { return "Larry" }

func (Larry) ValidateCollision(ctx CollisionContext, self, other *Entity) physics.Outcome {
	return walkerTable(ctx, self, other,
		TypeFlyon, TypeRokko, TypeGee, TypeSpika, TypeStaticEnemy, TypeTurtleBoss)
}

// Spikeball - шипастый шар
type Spikeball struct{}

func (Spikeball) ScriptClass() string { return "Spikeball" }

func (Spikeball) ValidateCollision(ctx CollisionContext, self, other *Entity) physics.Outcome {
	return walkerTable(ctx, self, other,
		TypeFlyon, TypeRokko, TypeGee, TypeSpika, TypeStaticEnemy, TypeTurtleBoss, TypeFurballBoss)
}

// Furball - пушистик и его босс-вариант
type Furball struct {
	Boss bool
}

func (f *Furball) ScriptClass() string { return "Furball" }

func (f *Furball) ValidateCollision(ctx CollisionContext, self, other *Entity) physics.Outcome {
	if other.Massivity == physics.MassMassive {
		switch other.Type {
		case TypePlayer:
			if f.Boss {
				if playerInvincible(other) {
					return physics.NotValid
				}
				return physics.Blocking
			}
		case TypeStaticEnemy, TypeSpikeball, TypeBall:
			if f.Boss {
				return physics.NotValid
			}
		}
	}
	return walkerTable(ctx, self, other, TypeFlyon, TypeRokko, TypeGee)
}

// Spika - катящийся шипастый шар; более быстрая спика сбивает медленную
type Spika struct {
	Speed float64
}

func (s *Spika) ScriptClass() string { return "Spika" }

func (s *Spika) ValidateCollision(ctx CollisionContext, self, other *Entity) physics.Outcome {
	switch other.Massivity {
	case physics.MassMassive:
		switch other.Type {
		case TypeRokko, TypeGee, TypeTurtleBoss, TypeFurballBoss, TypeStaticEnemy:
			return physics.NotValid
		}
		if other.IsEnemy() {
			// сталкивается только в движении
			if self.Velocity.X != 0 {
				if o, ok := other.Kind.(*Spika); ok && s.Speed < o.Speed {
					return physics.Blocking
				}
				return physics.Internal
			}
			return physics.NotValid
		}
		return physics.Blocking
	case physics.MassHalfMassive:
		return ctx.HalfMassive(self, other)
	}
	return physics.NotValid
}

// Flyon - прыгающее растение
type Flyon struct{}

func (Flyon) ScriptClass() string { return "Flyon" }

func (Flyon) ValidateCollision(_ CollisionContext, _, other *Entity) physics.Outcome {
	if other.Massivity == physics.MassMassive {
		switch other.Type {
		case TypePlayer:
			return physics.Internal
		case TypeBall:
			return physics.Blocking
		}
	}
	return physics.NotValid
}

// Eato - неподвижный поедатель
type Eato struct{}

func (Eato) ScriptClass() string { return "Eato" }

func (Eato) ValidateCollision(_ CollisionContext, _, other *Entity) physics.Outcome {
	if other.Massivity == physics.MassMassive && (other.IsPlayer() || other.Type == TypeBall) {
		return physics.Blocking
	}
	return physics.NotValid
}

// passThroughEnemy - враг, летающий сквозь геометрию (Gee, Rokko, Beetle)
func passThroughEnemy(other *Entity) physics.Outcome {
	if other.Massivity == physics.MassMassive && (other.IsPlayer() || other.Type == TypeBall) {
		return physics.Internal
	}
	return physics.NotValid
}

// Gee - летающий по пути враг
type Gee struct{}

func (Gee) ScriptClass() string { return "Gee" }

func (Gee) ValidateCollision(_ CollisionContext, _, other *Entity) physics.Outcome {
	return passThroughEnemy(other)
}

// Rokko - летящая ракета
type Rokko struct{}

func (Rokko) ScriptClass() string { return "Rokko" }

func (Rokko) ValidateCollision(_ CollisionContext, _, other *Entity) physics.Outcome {
	return passThroughEnemy(other)
}

// Beetle - жук из жучиного обстрела
type Beetle struct{}

func (Beetle) ScriptClass() string { return "Beetle" }

func (Beetle) ValidateCollision(_ CollisionContext, _, other *Entity) physics.Outcome {
	return passThroughEnemy(other)
}

// Thromp - падающий блок
type Thromp struct {
	MovingBack bool
}

func (t *Thromp) ScriptClass() string { return "Thromp" }

func (t *Thromp) ValidateCollision(ctx CollisionContext, self, other *Entity) physics.Outcome {
	if other.IsPlayer() || other.IsEnemy() {
		if v := ctx.ObjectOnTop(self, other); v != physics.NotPossible {
			return v
		}
		if self.Massivity == physics.MassMassive {
			return physics.Internal
		}
		// при возврате ни с чем не сталкивается
		if t.MovingBack {
			return physics.Internal
		}
		return physics.Blocking
	}
	switch other.Massivity {
	case physics.MassMassive:
		if other.Type == TypeStaticEnemy {
			return physics.NotValid
		}
		return physics.Internal
	case physics.MassHalfMassive:
		if self.Velocity.Y >= 0 && ctx.OnTop(self, other) && !t.MovingBack {
			return physics.Blocking
		}
	}
	return physics.NotValid
}

// StaticEnemy - неподвижное препятствие (пила, шипы)
type StaticEnemy struct{}

func (StaticEnemy) ScriptClass() string { return "StaticEnemy" }

func (StaticEnemy) ValidateCollision(_ CollisionContext, _, other *Entity) physics.Outcome {
	if other.Massivity != physics.MassMassive {
		return physics.NotValid
	}
	switch other.Type {
	case TypeRokko, TypeGee, TypeTurtleBoss, TypeFurballBoss, TypeSpikeball:
		return physics.NotValid
	case TypePlayer:
		return physics.Internal
	}
	if other.IsEnemy() {
		return physics.Internal
	}
	return physics.NotValid
}

// ShellState - состояние черепахи
type ShellState uint8

const (
	ShellWalk ShellState = iota
	ShellStand
	ShellRun
)

// InShell проверяет, спрятана ли черепаха в панцирь
func (s ShellState) InShell() bool {
	return s == ShellStand || s == ShellRun
}

// Army - черепаха
type Army struct {
	State         ShellState
	PlayerCounter float64 // Пока > 0, бегущий панцирь не задевает игрока
}

func (a *Army) ScriptClass() string { return "Turtle" }

func (a *Army) ValidateCollision(ctx CollisionContext, self, other *Entity) physics.Outcome {
	switch other.Massivity {
	case physics.MassMassive:
		switch other.Type {
		case TypePlayer:
			if playerInvincible(other) || (a.State == ShellRun && a.PlayerCounter > 0) {
				return physics.NotValid
			}
		case TypeFlyon:
			if a.State == ShellWalk {
				return physics.NotValid
			}
			return physics.Internal
		case TypeRokko:
			return physics.NotValid
		case TypeGee:
			if a.State.InShell() {
				return physics.Internal
			}
			return physics.NotValid
		case TypeBall:
			return physics.Blocking
		}
		return shellVsMassive(a.State, other)
	case physics.MassHalfMassive:
		return ctx.HalfMassive(self, other)
	case physics.MassPassive:
		return shellVsPassive(ctx, a.State, self, other)
	}
	return physics.NotValid
}

// TurtleBoss - босс-черепаха
type TurtleBoss struct {
	State         ShellState
	PlayerCounter float64
}

func (b *TurtleBoss) ScriptClass() string { return "TurtleBoss" }

func (b *TurtleBoss) ValidateCollision(ctx CollisionContext, self, other *Entity) physics.Outcome {
	switch other.Massivity {
	case physics.MassMassive:
		switch other.Type {
		case TypePlayer:
			if playerInvincible(other) || (b.State == ShellRun && b.PlayerCounter > 0) {
				return physics.NotValid
			}
		case TypeFlyon:
			if b.State == ShellWalk {
				return physics.NotValid
			}
			return physics.Internal
		case TypeRokko, TypeStaticEnemy, TypeBall:
			return physics.NotValid
		case TypeGee, TypeSpikeball:
			if b.State.InShell() {
				return physics.Internal
			}
			return physics.NotValid
		}
		return shellVsMassive(b.State, other)
	case physics.MassHalfMassive:
		return ctx.HalfMassive(self, other)
	case physics.MassPassive:
		if other.Type == TypeEnemyStopper && b.State == ShellWalk {
			return physics.Blocking
		}
	}
	return physics.NotValid
}

// shellVsMassive - бегущий панцирь проходит сквозь врагов, остальное блокирует
func shellVsMassive(state ShellState, other *Entity) physics.Outcome {
	if other.IsEnemy() && state == ShellRun {
		return physics.Internal
	}
	return physics.Blocking
}

func shellVsPassive(ctx CollisionContext, state ShellState, self, other *Entity) physics.Outcome {
	switch other.Type {
	case TypeEnemyStopper:
		if state == ShellWalk {
			return physics.Blocking
		}
	case TypeBonusBox, TypeSpinBox, TypeTextBox:
		box, ok := other.Kind.(*Box)
		if ok && state.InShell() && box.Invisible == BoxInvisibleSemiMassive {
			// панцирь снизу выбивает невидимый ящик
			if self.Velocity.Y <= 0 && ctx.OnTop(other, self) {
				return physics.Blocking
			}
		}
	}
	return physics.NotValid
}

func playerInvincible(e *Entity) bool {
	p, ok := e.Kind.(*Player)
	return ok && p.Invincible
}
