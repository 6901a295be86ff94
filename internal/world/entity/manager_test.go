package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/sprite-engine/internal/physics"
	"github.com/annel0/sprite-engine/internal/vec"
)

func TestEntityManager_CreateAssignsFreshUIDs(t *testing.T) {
	em := NewEntityManager()

	player, err := em.Create(TypePlayer, Options{UID: WithUID(PlayerUID)})
	require.NoError(t, err)
	assert.Equal(t, PlayerUID, player.UID, "Игрок должен получить UID 0")

	first, err := em.Create(TypeFurball, Options{})
	require.NoError(t, err)
	second, err := em.Create(TypeKrush, Options{})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first.UID)
	assert.Equal(t, uint64(2), second.UID)
	assert.Equal(t, ArrayEnemy, first.Array, "Враг попадает в массив врагов")
	assert.Equal(t, physics.MassMassive, first.Massivity)
	assert.Equal(t, "Furball", first.ScriptClass())
	assert.Less(t, first.Serial(), second.Serial(), "Серийные номера растут")
}

func TestEntityManager_DuplicateUIDLeavesCollectionUntouched(t *testing.T) {
	em := NewEntityManager()
	_, err := em.Create(TypeSprite, Options{UID: WithUID(7)})
	require.NoError(t, err)

	before := em.All()

	_, err = em.Create(TypeEato, Options{UID: WithUID(7), Position: vec.Vec2Float{X: 99}})
	require.ErrorIs(t, err, ErrDuplicateUID)
	assert.Contains(t, err.Error(), "UID 7 is already used")

	after := em.All()
	assert.Equal(t, before, after, "Коллекция не должна измениться")
	got, ok := em.Get(7)
	require.True(t, ok)
	assert.Equal(t, TypeSprite, got.Type)
}

func TestEntityManager_FreshUIDSkipsTaken(t *testing.T) {
	em := NewEntityManager()
	_, err := em.Create(TypeSprite, Options{UID: WithUID(1)})
	require.NoError(t, err)
	_, err = em.Create(TypeSprite, Options{UID: WithUID(2)})
	require.NoError(t, err)

	e, err := em.Create(TypeSprite, Options{})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), e.UID)
}

func TestEntityManager_RetireCallsHooks(t *testing.T) {
	em := NewEntityManager()
	e, err := em.Create(TypeGee, Options{})
	require.NoError(t, err)

	var retired []uint64
	em.OnRetire(func(r *Entity) {
		retired = append(retired, r.UID)
		// хук может обращаться к менеджеру без взаимоблокировки
		assert.False(t, em.IsUIDInUse(r.UID))
	})

	assert.True(t, em.Retire(e.UID))
	assert.True(t, e.Dead)
	assert.False(t, em.Retire(e.UID), "Повторное удаление ничего не делает")
	assert.Equal(t, []uint64{e.UID}, retired)

	_, ok := em.Get(e.UID)
	assert.False(t, ok)
}

func TestEntityManager_SweepAndClear(t *testing.T) {
	em := NewEntityManager()
	var retired int
	em.OnRetire(func(*Entity) { retired++ })

	a, _ := em.Create(TypeSprite, Options{})
	_, _ = em.Create(TypeSprite, Options{})
	em.Kill(a)

	_, ok := em.Get(a.UID)
	assert.False(t, ok, "Мёртвая сущность не выдаётся")
	assert.Equal(t, 1, em.Sweep())
	assert.Equal(t, 1, em.Len())

	em.Clear()
	assert.Equal(t, 0, em.Len())
	assert.Equal(t, 2, retired)
}

func TestEntityManager_MutationsAndSetUID(t *testing.T) {
	em := NewEntityManager()
	e, _ := em.Create(TypeSprite, Options{Position: vec.Vec2Float{X: 10, Y: 20}})
	other, _ := em.Create(TypeSprite, Options{})

	em.Move(e, 5, -5)
	assert.Equal(t, vec.Vec2Float{X: 15, Y: 15}, e.Position)
	em.SetPosition(e, 1, 2)
	assert.Equal(t, vec.Vec2Float{X: 1, Y: 2}, e.Position)
	em.SetVelocity(e, 3, 4)
	assert.Equal(t, vec.Vec2Float{X: 3, Y: 4}, e.Velocity)
	em.SetMassivity(e, physics.MassHalfMassive)
	assert.Equal(t, physics.MassHalfMassive, e.Massivity)

	require.ErrorIs(t, em.SetUID(e, other.UID), ErrDuplicateUID)
	require.NoError(t, em.SetUID(e, 500))
	got, ok := em.Get(500)
	require.True(t, ok)
	assert.Same(t, e, got)
}

func TestEntity_CollisionRect(t *testing.T) {
	e := &Entity{
		Position: vec.Vec2Float{X: 100, Y: 50},
		Size:     vec.Vec2Float{X: 32, Y: 32},
	}
	assert.Equal(t, physics.Rect{X: 100, Y: 50, W: 32, H: 32}, e.CollisionRect(), "Без явного прямоугольника используется ограничивающий")

	e.ColOffset = vec.Vec2Float{X: 4, Y: 2}
	e.ColSize = vec.Vec2Float{X: 24, Y: 30}
	assert.Equal(t, physics.Rect{X: 104, Y: 52, W: 24, H: 30}, e.CollisionRect())
}
