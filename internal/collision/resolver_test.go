package collision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/sprite-engine/internal/physics"
	"github.com/annel0/sprite-engine/internal/vec"
	"github.com/annel0/sprite-engine/internal/world/entity"
)

// spawn создаёт сущность 32x32 в заданной точке
func spawn(t *testing.T, em *entity.EntityManager, typ entity.SpriteType, x, y float64, opts ...func(*entity.Options)) *entity.Entity {
	t.Helper()
	o := entity.Options{
		Position: vec.Vec2Float{X: x, Y: y},
		Size:     vec.Vec2Float{X: 32, Y: 32},
		Active:   true,
	}
	for _, fn := range opts {
		fn(&o)
	}
	e, err := em.Create(typ, o)
	require.NoError(t, err)
	return e
}

func massivity(m physics.Massivity) func(*entity.Options) {
	return func(o *entity.Options) { o.Massivity = entity.WithMassivity(m) }
}

func TestResolver_PassiveSelfAgainstMassive(t *testing.T) {
	r := NewResolver(DefaultOnTopTolerance)
	em := entity.NewEntityManager()
	wall := spawn(t, em, entity.TypeSprite, 0, 0, massivity(physics.MassMassive))

	for _, typ := range []entity.SpriteType{entity.TypeSprite, entity.TypeGoldpiece, entity.TypeLevelExit, entity.TypeCrate} {
		e := spawn(t, em, typ, 10, 10, massivity(physics.MassPassive))
		assert.Equal(t, physics.NotValid, r.Validate(e, wall), "Пассивный %s не сталкивается с массивным", typ)
	}
}

func TestResolver_HalfMassiveDirection(t *testing.T) {
	r := NewResolver(8)
	em := entity.NewEntityManager()
	platform := spawn(t, em, entity.TypeSprite, 0, 100, massivity(physics.MassHalfMassive))

	cases := []struct {
		name   string
		y      float64
		vy     float64
		expect physics.Outcome
	}{
		{"стоит на платформе", 70, 0, physics.Blocking},
		{"падает на платформу", 72, 120, physics.Blocking},
		{"прыгает сквозь снизу", 72, -50, physics.NotValid},
		{"глубоко внутри платформы", 90, 10, physics.NotValid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := spawn(t, em, entity.TypeSprite, 10, tc.y, massivity(physics.MassMassive))
			p.Velocity.Y = tc.vy
			assert.Equal(t, tc.expect, r.Validate(p, platform))
		})
	}
}

func TestResolver_DefaultsByOtherMassivity(t *testing.T) {
	r := NewResolver(DefaultOnTopTolerance)
	em := entity.NewEntityManager()
	self := spawn(t, em, entity.TypeSprite, 0, 0, massivity(physics.MassMassive))

	ladder := spawn(t, em, entity.TypeSprite, 0, 0, massivity(physics.MassClimbable))
	front := spawn(t, em, entity.TypeSprite, 0, 0, massivity(physics.MassFrontPassive))
	stopper := spawn(t, em, entity.TypeEnemyStopper, 0, 0)

	assert.Equal(t, physics.Internal, r.Validate(self, ladder))
	assert.Equal(t, physics.NotValid, r.Validate(self, front))
	assert.Equal(t, physics.NotValid, r.Validate(self, stopper), "Стоппер держит только врагов")

	unknown := spawn(t, em, entity.TypeSprite, 0, 0, massivity(physics.Massivity(42)))
	assert.Equal(t, physics.NotValid, r.Validate(self, unknown), "Неизвестная комбинация даёт NotValid")
}

func TestResolver_GhostAndDying(t *testing.T) {
	r := NewResolver(DefaultOnTopTolerance)
	em := entity.NewEntityManager()
	player := spawn(t, em, entity.TypePlayer, 0, 0, func(o *entity.Options) { o.UID = entity.WithUID(entity.PlayerUID) })
	ghostBlock := spawn(t, em, entity.TypeSprite, 0, 0, func(o *entity.Options) { o.Ghost = true })

	assert.Equal(t, physics.NotValid, r.Validate(player, ghostBlock), "Обычный игрок не видит призрачный блок")

	state, ok := entity.PlayerState(player)
	require.True(t, ok)
	state.GhostMode = true
	assert.Equal(t, physics.Blocking, r.Validate(player, ghostBlock))

	furball := spawn(t, em, entity.TypeFurball, 0, 0)
	furball.Dying = true
	assert.Equal(t, physics.NotValid, r.Validate(player, furball))
	assert.Equal(t, physics.NotValid, r.Validate(furball, player))
}

func TestResolver_AsymmetricPlayerEnemy(t *testing.T) {
	r := NewResolver(DefaultOnTopTolerance)
	em := entity.NewEntityManager()
	player := spawn(t, em, entity.TypePlayer, 0, 0, func(o *entity.Options) { o.UID = entity.WithUID(entity.PlayerUID) })
	furball := spawn(t, em, entity.TypeFurball, 10, 0)

	assert.Equal(t, physics.Internal, r.Validate(player, furball), "Игрок получает касание")
	assert.Equal(t, physics.Blocking, r.Validate(furball, player), "Враг упирается в игрока")
}

func TestResolver_EnemyExceptionTable(t *testing.T) {
	r := NewResolver(DefaultOnTopTolerance)
	em := entity.NewEntityManager()
	player := spawn(t, em, entity.TypePlayer, 0, 0, func(o *entity.Options) { o.UID = entity.WithUID(entity.PlayerUID) })
	ball := spawn(t, em, entity.TypeBall, 0, 0)
	stopper := spawn(t, em, entity.TypeEnemyStopper, 0, 0)

	cases := []struct {
		self   entity.SpriteType
		other  *entity.Entity
		otherT entity.SpriteType
		expect physics.Outcome
	}{
		{self: entity.TypeFlyon, other: player, expect: physics.Internal},
		{self: entity.TypeFlyon, other: ball, expect: physics.Blocking},
		{self: entity.TypeFlyon, otherT: entity.TypeKrush, expect: physics.NotValid},
		{self: entity.TypeEato, other: player, expect: physics.Blocking},
		{self: entity.TypeGee, other: player, expect: physics.Internal},
		{self: entity.TypeRokko, otherT: entity.TypeKrush, expect: physics.NotValid},
		{self: entity.TypeKrush, otherT: entity.TypeFlyon, expect: physics.NotValid},
		{self: entity.TypeKrush, otherT: entity.TypeFurball, expect: physics.Blocking},
		{self: entity.TypeKrush, other: stopper, expect: physics.Blocking},
		{self: entity.TypeLarry, otherT: entity.TypeSpika, expect: physics.NotValid},
		{self: entity.TypeSpikeball, otherT: entity.TypeFurballBoss, expect: physics.NotValid},
		{self: entity.TypeStaticEnemy, other: player, expect: physics.Internal},
		{self: entity.TypeStaticEnemy, otherT: entity.TypeFurball, expect: physics.Internal},
		{self: entity.TypeStaticEnemy, otherT: entity.TypeSpikeball, expect: physics.NotValid},
		{self: entity.TypeBeetle, other: ball, expect: physics.Internal},
		{self: entity.TypePip, otherT: entity.TypeGee, expect: physics.NotValid},
	}

	for _, tc := range cases {
		other := tc.other
		if other == nil {
			other = spawn(t, em, tc.otherT, 0, 0)
		}
		self := spawn(t, em, tc.self, 0, 0)
		assert.Equal(t, tc.expect, r.Validate(self, other), "%s против %s", tc.self, other.Type)
	}
}

func TestResolver_ArmyStates(t *testing.T) {
	r := NewResolver(DefaultOnTopTolerance)
	em := entity.NewEntityManager()
	player := spawn(t, em, entity.TypePlayer, 0, 0, func(o *entity.Options) { o.UID = entity.WithUID(entity.PlayerUID) })
	army := spawn(t, em, entity.TypeArmy, 0, 0)
	flyon := spawn(t, em, entity.TypeFlyon, 0, 0)
	krush := spawn(t, em, entity.TypeKrush, 0, 0)
	stopper := spawn(t, em, entity.TypeEnemyStopper, 0, 0)
	state := army.Kind.(*entity.Army)

	assert.Equal(t, physics.Blocking, r.Validate(army, player))
	assert.Equal(t, physics.NotValid, r.Validate(army, flyon), "Шагающая черепаха игнорирует флайона")
	assert.Equal(t, physics.Blocking, r.Validate(army, stopper))

	state.State = entity.ShellRun
	state.PlayerCounter = 0.5
	assert.Equal(t, physics.NotValid, r.Validate(army, player), "Только что пнутый панцирь не задевает игрока")
	assert.Equal(t, physics.Internal, r.Validate(army, flyon))
	assert.Equal(t, physics.Internal, r.Validate(army, krush), "Бегущий панцирь проходит сквозь врагов")
	assert.Equal(t, physics.NotValid, r.Validate(army, stopper))

	state.PlayerCounter = 0
	player.Kind.(*entity.Player).Invincible = true
	assert.Equal(t, physics.NotValid, r.Validate(army, player))
}

func TestResolver_SpikaSpeed(t *testing.T) {
	r := NewResolver(DefaultOnTopTolerance)
	em := entity.NewEntityManager()
	slow := spawn(t, em, entity.TypeSpika, 0, 0, func(o *entity.Options) { o.Kind = &entity.Spika{Speed: 1} })
	fast := spawn(t, em, entity.TypeSpika, 0, 0, func(o *entity.Options) { o.Kind = &entity.Spika{Speed: 3} })

	assert.Equal(t, physics.NotValid, r.Validate(slow, fast), "Стоящая спика не сталкивается")
	slow.Velocity.X = 2
	fast.Velocity.X = -2
	assert.Equal(t, physics.Blocking, r.Validate(slow, fast), "Медленную спику останавливает быстрая")
	assert.Equal(t, physics.Internal, r.Validate(fast, slow))
}

func TestResolver_Pairs(t *testing.T) {
	r := NewResolver(DefaultOnTopTolerance)
	em := entity.NewEntityManager()
	player := spawn(t, em, entity.TypePlayer, 0, 0, func(o *entity.Options) { o.UID = entity.WithUID(entity.PlayerUID) })
	furball := spawn(t, em, entity.TypeFurball, 16, 0)
	_ = spawn(t, em, entity.TypeFurball, 500, 500)
	hidden := spawn(t, em, entity.TypeSprite, 0, 0, func(o *entity.Options) { o.Active = false })

	pairs := r.Pairs(em.All())
	require.Len(t, pairs, 1)
	assert.Same(t, player, pairs[0].A)
	assert.Same(t, furball, pairs[0].B)
	assert.Equal(t, physics.Internal, pairs[0].AOutcome)
	assert.Equal(t, physics.Blocking, pairs[0].BOutcome)
	assert.NotContains(t, []*entity.Entity{pairs[0].A, pairs[0].B}, hidden)
}
