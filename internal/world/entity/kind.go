package entity

import "github.com/annel0/sprite-engine/internal/physics"

// Kind описывает поведение конкретного подтипа сущности: собственные
// исключения при столкновениях и класс скриптовой обёртки.
type Kind interface {
	// ScriptClass возвращает имя класса обёртки. Пустая строка скрывает сущность от UIDS.
	ScriptClass() string

	// ValidateCollision решает исход столкновения self с other.
	// physics.NotPossible означает "решай по массивности other".
	ValidateCollision(ctx CollisionContext, self, other *Entity) physics.Outcome
}

// CollisionContext передаёт подтипам параметры проверки столкновений
type CollisionContext struct {
	OnTopTolerance float64 // Высота полосы верхней грани
}

// OnTop проверяет, стоит ли a на верхней грани b
func (c CollisionContext) OnTop(a, b *Entity) bool {
	return a.IsOnTop(b, c.OnTopTolerance)
}

// HalfMassive применяет правило платформы: блокирует, только если self
// движется вниз или стоит (vy >= 0) и находится на её верхней грани.
func (c CollisionContext) HalfMassive(self, other *Entity) physics.Outcome {
	if self.Velocity.Y >= 0 && c.OnTop(self, other) {
		return physics.Blocking
	}
	return physics.NotValid
}

// ObjectOnTop блокирует объект, стоящий на self сверху.
// Если объект не сверху, решение остаётся за вызывающим.
func (c CollisionContext) ObjectOnTop(self, obj *Entity) physics.Outcome {
	if obj.Velocity.Y >= 0 && c.OnTop(obj, self) {
		return physics.Blocking
	}
	return physics.NotPossible
}

// simpleKind - подтип без собственных исключений
type simpleKind struct {
	class string
}

func (k simpleKind) ScriptClass() string { return k.class }

func (k simpleKind) ValidateCollision(CollisionContext, *Entity, *Entity) physics.Outcome {
	return physics.NotPossible
}

// BoxInvisibility - режим невидимости ящика
type BoxInvisibility uint8

const (
	BoxVisible BoxInvisibility = iota
	BoxInvisibleMassive
	BoxInvisibleGhost
	BoxInvisibleSemiMassive
)

// Box - бонусный, крутящийся или текстовый ящик
type Box struct {
	Invisible BoxInvisibility
	class     string
}

func (b *Box) ScriptClass() string { return b.class }

func (b *Box) ValidateCollision(CollisionContext, *Entity, *Entity) physics.Outcome {
	return physics.NotPossible
}

// Powerup - грибы, цветы, звёзды и прочие усиления
type Powerup struct {
	class string
}

func (p *Powerup) ScriptClass() string { return p.class }

func (p *Powerup) ValidateCollision(ctx CollisionContext, self, other *Entity) physics.Outcome {
	if other.IsPlayer() {
		return physics.Internal
	}
	if other.Type == TypeBall {
		return physics.NotValid
	}
	switch other.Massivity {
	case physics.MassMassive:
		if other.IsEnemy() {
			return physics.NotValid
		}
		return physics.Blocking
	case physics.MassHalfMassive:
		return ctx.HalfMassive(self, other)
	}
	return physics.NotValid
}

// Ball - огненный или ледяной шар, выпущенный игроком или врагом
type Ball struct {
	OriginType  SpriteType
	OriginArray ArrayType
	BallType    string
}

func (b *Ball) ScriptClass() string { return "Ball" }

func (b *Ball) ValidateCollision(ctx CollisionContext, self, other *Entity) physics.Outcome {
	if other.IsPlayer() {
		if b.OriginType != TypePlayer {
			return physics.Internal
		}
		return physics.NotValid
	}
	if other.Type == TypeBall {
		return physics.NotValid
	}
	switch other.Massivity {
	case physics.MassMassive:
		if other.IsEnemy() && b.OriginArray == ArrayEnemy {
			return physics.NotValid
		}
		return physics.Blocking
	case physics.MassHalfMassive:
		return ctx.HalfMassive(self, other)
	}
	return physics.NotValid
}

// MovingPlatform - движущаяся платформа
type MovingPlatform struct{}

func (MovingPlatform) ScriptClass() string { return "MovingPlatform" }

func (MovingPlatform) ValidateCollision(ctx CollisionContext, self, other *Entity) physics.Outcome {
	if other.IsPlayer() || other.IsEnemy() {
		if v := ctx.ObjectOnTop(self, other); v != physics.NotPossible {
			return v
		}
		if self.Massivity == physics.MassMassive {
			return physics.Internal
		}
		return physics.NotValid
	}
	if other.Type == TypeBall {
		if ctx.OnTop(other, self) {
			return physics.Internal
		}
	}
	return physics.NotValid
}

// NewKind возвращает поведение по умолчанию для типа
func NewKind(t SpriteType) Kind {
	switch t {
	case TypePlayer:
		return &Player{}
	case TypeFurball:
		return &Furball{}
	case TypeFurballBoss:
		return &Furball{Boss: true}
	case TypeArmy:
		return &Army{}
	case TypeTurtleBoss:
		return &TurtleBoss{}
	case TypeFlyon:
		return Flyon{}
	case TypeEato:
		return Eato{}
	case TypeSpika:
		return &Spika{}
	case TypeKrush:
		return Krush{}
	case TypeGee:
		return Gee{}
	case TypeRokko:
		return Rokko{}
	case TypeThromp:
		return &Thromp{}
	case TypeStaticEnemy:
		return StaticEnemy{}
	case TypeLarry:
		return Larry{}
	case TypePip:
		return Walker{class: "Pip"}
	case TypeBeetleBarrage:
		return Walker{class: "BeetleBarrage"}
	case TypeSpikeball:
		return Spikeball{}
	case TypeBeetle:
		return Beetle{}
	case TypeEnemy:
		return Walker{class: "Enemy"}
	case TypeBall:
		return &Ball{OriginType: TypePlayer, OriginArray: ArrayPlayer}
	case TypeMovingPlatform:
		return MovingPlatform{}
	case TypeBonusBox:
		return &Box{class: "BonusBox"}
	case TypeSpinBox:
		return &Box{class: "SpinBox"}
	case TypeTextBox:
		return &Box{class: "TextBox"}
	case TypePowerup:
		return &Powerup{class: "Powerup"}
	case TypeFireplant:
		return &Powerup{class: "Fireplant"}
	case TypeMoon:
		return &Powerup{class: "Moon"}
	case TypeStar:
		return &Powerup{class: "Star"}
	case TypeMushroomDefault, TypeMushroomLive1, TypeMushroomPoison, TypeMushroomBlue, TypeMushroomGhost:
		return &Powerup{class: "Mushroom"}
	case TypeGoldpiece, TypeFallingGoldpiece:
		return simpleKind{class: "Goldpiece"}
	case TypeJumpingGoldpiece:
		return simpleKind{class: "JumpingGoldpiece"}
	case TypeLevelExit:
		return simpleKind{class: "LevelExit"}
	case TypeCrate:
		return simpleKind{class: "Crate"}
	case TypePath:
		return simpleKind{class: "Path"}
	case TypeParticleEmitter:
		return simpleKind{class: "ParticleEmitter"}
	case TypeSprite, TypeActiveSprite:
		return simpleKind{class: "Sprite"}
	default:
		// Служебные объекты (звуки, стопперы, анимации) скриптам не видны
		return simpleKind{}
	}
}

// defaultMassivity возвращает массивность, с которой тип загружается с уровня
func defaultMassivity(t SpriteType) physics.Massivity {
	switch defaultArray(t) {
	case ArrayPlayer, ArrayEnemy, ArrayMassive:
		return physics.MassMassive
	case ArrayAnim:
		return physics.MassFrontPassive
	}
	switch t {
	case TypeBonusBox, TypeSpinBox, TypeTextBox, TypeBall:
		return physics.MassMassive
	case TypeMovingPlatform:
		return physics.MassHalfMassive
	case TypeSound, TypePath:
		return physics.MassFrontPassive
	}
	return physics.MassPassive
}
