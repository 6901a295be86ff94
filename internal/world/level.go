package world

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/sprite-engine/internal/collision"
	"github.com/annel0/sprite-engine/internal/eventbus"
	"github.com/annel0/sprite-engine/internal/logging"
	"github.com/annel0/sprite-engine/internal/script"
	"github.com/annel0/sprite-engine/internal/storage"
	"github.com/annel0/sprite-engine/internal/vec"
	"github.com/annel0/sprite-engine/internal/world/entity"
)

var (
	// ErrLevelClosed возвращается после Close
	ErrLevelClosed = errors.New("level is closed")
	// ErrCommandsFull возвращается, если очередь команд переполнена
	ErrCommandsFull = errors.New("level command queue is full")
)

// DefaultFrameTime - длительность кадра при 60 FPS
const DefaultFrameTime = time.Second / 60

// LevelConfig описывает параметры уровня
type LevelConfig struct {
	Name           string  // Имя уровня, ключ сохранения
	OnTopTolerance float64 // Полоса проверки «стоит сверху», 0 = collision.DefaultOnTopTolerance
	QueueSize      int     // Ёмкость очереди отложенных вызовов таймеров
	JumpStrength   float64 // Начальная скорость прыжка, 0 = script.DefaultJumpStrength
	CommandBuffer  int     // Ёмкость очереди команд из других горутин
}

// Deps - внешние зависимости уровня. Любое поле может быть nil.
type Deps struct {
	Store  storage.SaveRepo
	Bus    eventbus.EventBus
	Tracer trace.Tracer
}

// Command выполняется в основном цикле перед шагом кадра
type Command func(l *Level)

// Level владеет сущностями, скриптовым рантаймом и резолвером столкновений.
// Все методы, кроме Post и Snapshot, вызываются только из основного цикла.
type Level struct {
	cfg      LevelConfig
	manager  *entity.EntityManager
	runtime  *script.Runtime
	resolver *collision.Resolver
	store    storage.SaveRepo
	bus      eventbus.EventBus
	tracer   trace.Tracer
	logger   *logging.Logger

	commands chan Command
	frame    uint64
	ctx      context.Context // контекст текущего кадра для событий шины

	snapMu   sync.RWMutex
	snapshot Snapshot

	closed bool
}

// NewLevel создаёт пустой уровень
func NewLevel(cfg LevelConfig, deps Deps) *Level {
	if cfg.Name == "" {
		cfg.Name = "level"
	}
	if cfg.OnTopTolerance <= 0 {
		cfg.OnTopTolerance = collision.DefaultOnTopTolerance
	}
	if cfg.JumpStrength <= 0 {
		cfg.JumpStrength = script.DefaultJumpStrength
	}
	if cfg.CommandBuffer <= 0 {
		cfg.CommandBuffer = 64
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/annel0/sprite-engine/internal/world")
	}

	l := &Level{
		cfg:      cfg,
		manager:  entity.NewEntityManager(),
		resolver: collision.NewResolver(cfg.OnTopTolerance),
		store:    deps.Store,
		bus:      deps.Bus,
		tracer:   tracer,
		logger:   logging.GetComponentLogger("level"),
		commands: make(chan Command, cfg.CommandBuffer),
		ctx:      context.Background(),
	}
	l.runtime = script.NewRuntime(l.manager, script.Options{
		QueueSize: cfg.QueueSize,
		ErrorSink: l.onHandlerError,
	})
	l.manager.OnRetire(l.onRetire)
	l.refreshSnapshot(FrameStats{})

	l.logger.Info("🗺️ Уровень %s создан", cfg.Name)
	return l
}

// Name возвращает имя уровня
func (l *Level) Name() string { return l.cfg.Name }

// Manager возвращает менеджер сущностей уровня
func (l *Level) Manager() *entity.EntityManager { return l.manager }

// Runtime возвращает скриптовый рантайм уровня
func (l *Level) Runtime() *script.Runtime { return l.runtime }

// Resolver возвращает резолвер столкновений уровня
func (l *Level) Resolver() *collision.Resolver { return l.resolver }

// Frame возвращает номер последнего выполненного кадра
func (l *Level) Frame() uint64 { return l.frame }

// Spawn создаёт сущность уровня (не скриптовую) и публикует EntitySpawned
func (l *Level) Spawn(t entity.SpriteType, opts entity.Options) (*entity.Entity, error) {
	if l.closed {
		return nil, ErrLevelClosed
	}
	e, err := l.manager.Create(t, opts)
	if err != nil {
		return nil, err
	}
	eventbus.Emit(l.ctx, l.bus, l.cfg.Name, eventbus.TypeEntitySpawned, 1, entityEvent(e))
	return e, nil
}

// LoadScript выполняет скрипт уровня
func (l *Level) LoadScript(name, src string) error {
	if l.closed {
		return ErrLevelClosed
	}
	return l.runtime.LoadScript(name, src)
}

// Post ставит команду в очередь основного цикла. Безопасен из любой горутины.
// Возвращает false, если очередь переполнена.
func (l *Level) Post(cmd Command) bool {
	select {
	case l.commands <- cmd:
		return true
	default:
		l.logger.Warn("Очередь команд уровня %s переполнена", l.cfg.Name)
		return false
	}
}

// Call выполняет fn в основном цикле и ждёт результата или отмены ctx.
// Безопасен из любой горутины; без работающего цикла ждёт до истечения ctx.
func (l *Level) Call(ctx context.Context, fn func(l *Level) error) error {
	done := make(chan error, 1)
	if !l.Post(func(l *Level) { done <- fn(l) }) {
		return ErrCommandsFull
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// KeyDown передаёт нажатие клавиши обработчикам Input:on_key_down
func (l *Level) KeyDown(key string) int {
	if l.closed {
		return 0
	}
	return l.runtime.FireKeyDown(key)
}

// Jump заставляет игрока прыгнуть
func (l *Level) Jump() bool {
	if l.closed {
		return false
	}
	return l.runtime.Jump(l.cfg.JumpStrength)
}

// Shoot выпускает шар игрока в направлении взгляда и сообщает скриптам
func (l *Level) Shoot(ballType string, direction float64) (*entity.Entity, error) {
	if l.closed {
		return nil, ErrLevelClosed
	}
	player, ok := l.manager.Get(entity.PlayerUID)
	if !ok {
		return nil, fmt.Errorf("нет игрока на уровне %s", l.cfg.Name)
	}
	if direction == 0 {
		direction = 1
	}

	size := vec.Vec2Float{X: 16, Y: 16}
	pos := player.Position.Add(vec.Vec2Float{X: player.Size.X / 2, Y: player.Size.Y/2 - size.Y/2})
	ball, err := l.manager.Create(entity.TypeBall, entity.Options{
		Position: pos,
		Velocity: vec.Vec2Float{X: direction * 600},
		Size:     size,
		Spawned:  true,
		Active:   true,
		Kind: &entity.Ball{
			OriginType:  player.Type,
			OriginArray: player.Array,
			BallType:    ballType,
		},
	})
	if err != nil {
		return nil, err
	}
	l.runtime.Shoot(ballType)
	return ball, nil
}

// Run выполняет кадры с периодом frameTime, пока не истечёт ctx
// или не будет выполнено frames кадров (0 = без ограничения).
func (l *Level) Run(ctx context.Context, frameTime time.Duration, frames int) error {
	if frameTime <= 0 {
		frameTime = DefaultFrameTime
	}
	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	l.logger.Info("▶️ Уровень %s запущен (кадр %s)", l.cfg.Name, frameTime)
	for n := 0; frames == 0 || n < frames; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := l.Step(ctx, frameTime.Seconds()); err != nil {
			return err
		}
	}
	return nil
}

// Close останавливает таймеры, снимает все сущности и закрывает VM
func (l *Level) Close() {
	if l.closed {
		return
	}
	l.runtime.Close()
	l.manager.Clear()
	l.closed = true
	l.refreshSnapshot(FrameStats{Frame: l.frame})
	l.logger.Info("⏹️ Уровень %s закрыт", l.cfg.Name)
}

func (l *Level) onRetire(e *entity.Entity) {
	eventbus.Emit(l.ctx, l.bus, l.cfg.Name, eventbus.TypeEntityRetired, 1, entityEvent(e))
}

func (l *Level) onHandlerError(event string, uid *uint64, err error) {
	eventbus.Emit(l.ctx, l.bus, l.cfg.Name, eventbus.TypeHandlerFailed, 5, eventbus.HandlerFailure{
		Event: event,
		UID:   uid,
		Error: err.Error(),
	})
}

func entityEvent(e *entity.Entity) eventbus.EntityEvent {
	return eventbus.EntityEvent{
		UID:     e.UID,
		Type:    e.Type.String(),
		X:       e.Position.X,
		Y:       e.Position.Y,
		Spawned: e.Spawned,
	}
}
