package world

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/annel0/sprite-engine/internal/eventbus"
	"github.com/annel0/sprite-engine/internal/storage"
	"github.com/annel0/sprite-engine/internal/vec"
	"github.com/annel0/sprite-engine/internal/world/entity"
)

func newTestLevel(t *testing.T, deps Deps) *Level {
	t.Helper()
	l := NewLevel(LevelConfig{Name: "test_level", QueueSize: 16}, deps)
	t.Cleanup(l.Close)

	_, err := l.Spawn(entity.TypePlayer, entity.Options{
		UID:    entity.WithUID(entity.PlayerUID),
		Size:   vec.Vec2Float{X: 32, Y: 32},
		Active: true,
	})
	require.NoError(t, err)
	return l
}

func luaGlobal(l *Level, name string) lua.LValue {
	return l.Runtime().L.GetGlobal(name)
}

func TestLevel_PlayerLandsOnMassiveGround(t *testing.T) {
	l := newTestLevel(t, Deps{})
	player, _ := l.Manager().Get(entity.PlayerUID)
	l.Manager().SetVelocity(player, 0, 100)

	_, err := l.Spawn(entity.TypeSprite, entity.Options{
		Position: vec.Vec2Float{X: 0, Y: 40},
		Size:     vec.Vec2Float{X: 200, Y: 32},
		Active:   true,
	})
	require.NoError(t, err)

	require.NoError(t, l.Step(context.Background(), 0.1))

	assert.InDelta(t, 8.0, player.Position.Y, 1e-9, "Игрок вытолкнут на верхнюю грань")
	assert.Zero(t, player.Velocity.Y, "Вертикальная скорость погашена")

	stats := l.Snapshot().Last
	assert.Equal(t, uint64(1), stats.Frame)
	assert.Equal(t, 1, stats.Pairs)
	assert.GreaterOrEqual(t, stats.Blocking, 1)
}

func TestLevel_TouchFiresForEachValidSide(t *testing.T) {
	l := newTestLevel(t, Deps{})
	_, err := l.Spawn(entity.TypeFurball, entity.Options{
		UID:      entity.WithUID(10),
		Position: vec.Vec2Float{X: 20, Y: 0},
		Size:     vec.Vec2Float{X: 32, Y: 32},
		Active:   true,
	})
	require.NoError(t, err)

	require.NoError(t, l.LoadScript("touch", `
		enemy_touches = 0
		player_touches = 0
		UIDS[10]:on_touch(function(other)
			enemy_touches = enemy_touches + 1
			enemy_saw_player = other == Player
		end)
		Player:on_touch(function(other)
			player_touches = player_touches + 1
			player_saw = other:uid()
		end)
	`))

	require.NoError(t, l.Step(context.Background(), DefaultFrameTime.Seconds()))

	assert.Equal(t, lua.LNumber(1), luaGlobal(l, "enemy_touches"))
	assert.Equal(t, lua.LTrue, luaGlobal(l, "enemy_saw_player"))
	assert.Equal(t, lua.LNumber(1), luaGlobal(l, "player_touches"))
	assert.Equal(t, lua.LNumber(10), luaGlobal(l, "player_saw"))
	assert.Equal(t, 2, l.Snapshot().Last.Touches)
}

func TestLevel_HandlerErrorDoesNotStopFrame(t *testing.T) {
	bus := eventbus.NewMemoryBus(16)
	defer bus.Close()

	var mu sync.Mutex
	var failures []eventbus.HandlerFailure
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{Types: []string{eventbus.TypeHandlerFailed}},
		func(ctx context.Context, ev *eventbus.Envelope) {
			var f eventbus.HandlerFailure
			if ev.Decode(&f) == nil {
				mu.Lock()
				failures = append(failures, f)
				mu.Unlock()
			}
		})
	require.NoError(t, err)

	l := newTestLevel(t, Deps{Bus: bus})
	_, err = l.Spawn(entity.TypeFurball, entity.Options{
		UID:      entity.WithUID(10),
		Position: vec.Vec2Float{X: 20},
		Size:     vec.Vec2Float{X: 32, Y: 32},
		Active:   true,
	})
	require.NoError(t, err)

	require.NoError(t, l.LoadScript("broken", `
		after = false
		UIDS[10]:on_touch(function() error("сломано") end)
		UIDS[10]:on_touch(function() after = true end)
	`))

	require.NoError(t, l.Step(context.Background(), 0))
	assert.Equal(t, lua.LTrue, luaGlobal(l, "after"))
	assert.Equal(t, 1, l.Snapshot().Last.HandlerErrors)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(failures) == 1 && failures[0].Event == "touch"
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, failures[0].UID)
	assert.Equal(t, uint64(10), *failures[0].UID)
}

func TestLevel_TimersDrainOncePerStep(t *testing.T) {
	l := newTestLevel(t, Deps{})
	require.NoError(t, l.LoadScript("timer", `
		fired = 0
		Timer.after(10, function() fired = fired + 1 end)
	`))

	// До шага кадра обработчик не выполняется даже после срабатывания
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, lua.LNumber(0), luaGlobal(l, "fired"))

	require.Eventually(t, func() bool {
		_ = l.Step(context.Background(), 0)
		return luaGlobal(l, "fired") == lua.LNumber(1)
	}, time.Second, 5*time.Millisecond)

	timers := l.Snapshot().Timers
	require.Len(t, timers, 1)
	assert.False(t, timers[0].Active)
	assert.Equal(t, uint64(1), timers[0].Fired)
	assert.Equal(t, 10.0, timers[0].IntervalMS)
}

func TestLevel_ShootKillsEnemy(t *testing.T) {
	l := newTestLevel(t, Deps{})
	enemy, err := l.Spawn(entity.TypeFurball, entity.Options{
		UID:      entity.WithUID(10),
		Position: vec.Vec2Float{X: 40},
		Size:     vec.Vec2Float{X: 32, Y: 32},
		Active:   true,
	})
	require.NoError(t, err)

	require.NoError(t, l.LoadScript("shoot", `
		Player:on_shoot(function(kind) shot = kind end)
		UIDS[10]:on_die(function() enemy_died = true end)
	`))

	ball, err := l.Shoot("fire", 1)
	require.NoError(t, err)
	assert.True(t, ball.Spawned)
	assert.Equal(t, lua.LString("fire"), luaGlobal(l, "shot"))

	require.NoError(t, l.Step(context.Background(), 0.05))

	assert.Equal(t, lua.LTrue, luaGlobal(l, "enemy_died"))
	assert.True(t, enemy.Dead)
	_, alive := l.Manager().Get(ball.UID)
	assert.False(t, alive, "Шар гаснет при попадании")
	assert.False(t, l.Manager().IsUIDInUse(10))
}

func TestLevel_SaveAndLoad(t *testing.T) {
	store := storage.NewMemorySaveRepo()
	l := newTestLevel(t, Deps{Store: store})
	ctx := context.Background()

	box, err := l.Spawn(entity.TypeBonusBox, entity.Options{
		UID:      entity.WithUID(5),
		Position: vec.Vec2Float{X: 100, Y: 50},
		Size:     vec.Vec2Float{X: 32, Y: 32},
		Active:   true,
	})
	require.NoError(t, err)
	coin, err := l.Spawn(entity.TypeGoldpiece, entity.Options{
		UID:      entity.WithUID(6),
		Position: vec.Vec2Float{X: 150, Y: 50},
		Size:     vec.Vec2Float{X: 16, Y: 16},
		Active:   true,
	})
	require.NoError(t, err)

	require.NoError(t, l.LoadScript("save", `
		coins = 3
		Sprite.new("spawned.png")
		Level:on_save(function(store) store.coins = coins end)
		Level:on_load(function(data) coins = data.coins; loaded = true end)
	`))

	require.NoError(t, l.Save(ctx))

	saved, err := store.LoadLevel(ctx, "test_level")
	require.NoError(t, err)
	assert.Equal(t, float64(3), saved.ScriptData["coins"])
	require.Len(t, saved.Entities, 3, "Игрок, ящик и монета; спрайт скрипта не сохраняется")

	// Меняем состояние после сохранения
	l.Manager().SetPosition(box, 0, 0)
	box.Active = false
	require.NoError(t, l.LoadScript("mutate", `coins = 0`))

	require.NoError(t, l.Load(ctx))
	assert.Equal(t, 100.0, box.Position.X)
	assert.True(t, box.Active)
	assert.Equal(t, lua.LNumber(3), luaGlobal(l, "coins"))
	assert.Equal(t, lua.LTrue, luaGlobal(l, "loaded"))
	assert.False(t, coin.Dead)

	// Монета, собранная до сохранения, снимается при загрузке
	l.Manager().Retire(coin.UID)
	require.NoError(t, l.Save(ctx))
	_, err = l.Spawn(entity.TypeGoldpiece, entity.Options{UID: entity.WithUID(6), Active: true})
	require.NoError(t, err)
	require.NoError(t, l.Load(ctx))
	assert.False(t, l.Manager().IsUIDInUse(6))
}

func TestLevel_SaveWithoutStore(t *testing.T) {
	l := newTestLevel(t, Deps{})
	assert.ErrorIs(t, l.Save(context.Background()), ErrNoStore)
	assert.ErrorIs(t, l.Load(context.Background()), ErrNoStore)
}

func TestLevel_LoadMissingSave(t *testing.T) {
	l := newTestLevel(t, Deps{Store: storage.NewMemorySaveRepo()})
	assert.ErrorIs(t, l.Load(context.Background()), storage.ErrNotFound)
}

func TestLevel_PostedCommandsRunOnStep(t *testing.T) {
	l := newTestLevel(t, Deps{})
	require.NoError(t, l.LoadScript("keys", `
		keys = {}
		Input:on_key_down(function(key) table.insert(keys, key) end)
	`))

	done := make(chan bool)
	go func() {
		done <- l.Post(func(l *Level) { l.KeyDown("action") })
	}()
	require.True(t, <-done)

	keys := luaGlobal(l, "keys").(*lua.LTable)
	assert.Equal(t, 0, keys.Len(), "Команда не выполняется вне основного цикла")

	require.NoError(t, l.Step(context.Background(), 0))
	assert.Equal(t, 1, keys.Len())
	assert.Equal(t, 1, l.Snapshot().Last.Commands)
}

func TestLevel_RunAndClose(t *testing.T) {
	bus := eventbus.NewMemoryBus(16)
	defer bus.Close()
	l := newTestLevel(t, Deps{Bus: bus})

	require.NoError(t, l.Run(context.Background(), time.Millisecond, 3))
	assert.Equal(t, uint64(3), l.Frame())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Run(ctx, time.Millisecond, 0), context.Canceled)

	snap := l.Snapshot()
	_, ok := snap.Entity(entity.PlayerUID)
	assert.True(t, ok)

	l.Close()
	assert.ErrorIs(t, l.Step(context.Background(), 0), ErrLevelClosed)
	assert.True(t, l.Snapshot().Closed)
	assert.Empty(t, l.Snapshot().Entities)

	// спавн игрока + его снятие при закрытии
	assert.Eventually(t, func() bool { return bus.Metrics().Published == 2 }, time.Second, 5*time.Millisecond)
}

func TestLevel_CallWaitsForMainLoop(t *testing.T) {
	l := newTestLevel(t, Deps{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = l.Run(ctx, time.Millisecond, 0)
	}()

	var uids []uint64
	err := l.Call(ctx, func(l *Level) error {
		for _, e := range l.Manager().All() {
			uids = append(uids, e.UID)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{entity.PlayerUID}, uids)

	err = l.Call(ctx, func(l *Level) error { return storage.ErrNotFound })
	assert.ErrorIs(t, err, storage.ErrNotFound)
	cancel()
	<-stopped

	idle := NewLevel(LevelConfig{Name: "idle", CommandBuffer: 1}, Deps{})
	defer idle.Close()
	short, stop := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer stop()
	assert.ErrorIs(t, idle.Call(short, func(*Level) error { return nil }), context.DeadlineExceeded)
	assert.ErrorIs(t, idle.Call(short, func(*Level) error { return nil }), ErrCommandsFull)
}
