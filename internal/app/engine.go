// Package app собирает движок из конфигурации: хранилище сохранений,
// шину событий, телеметрию, операторов отладочного API и уровни сцен.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/sprite-engine/internal/api"
	"github.com/annel0/sprite-engine/internal/auth"
	"github.com/annel0/sprite-engine/internal/config"
	"github.com/annel0/sprite-engine/internal/eventbus"
	"github.com/annel0/sprite-engine/internal/logging"
	"github.com/annel0/sprite-engine/internal/observability"
	"github.com/annel0/sprite-engine/internal/scene"
	"github.com/annel0/sprite-engine/internal/storage"
	"github.com/annel0/sprite-engine/internal/world"
)

// Engine владеет общими для уровней зависимостями
type Engine struct {
	cfg      *config.Config
	store    storage.SaveRepo
	bus      eventbus.EventBus
	registry *prometheus.Registry
	auth     *auth.Authenticator

	exporter    *eventbus.MetricsExporter
	busLog      eventbus.Subscription
	stopTracing func(context.Context) error
	closed      bool
}

// Options позволяет подменить части движка, например в тестах
type Options struct {
	Store storage.SaveRepo  // готовое хранилище вместо cfg.Storage
	Bus   eventbus.EventBus // готовая шина вместо cfg.EventBus
}

// New создаёт движок. При ошибке уже открытые ресурсы закрываются.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	e := &Engine{cfg: cfg, registry: prometheus.NewRegistry()}

	if err := e.init(ctx, opts); err != nil {
		_ = e.Close(ctx)
		return nil, err
	}
	return e, nil
}

func (e *Engine) init(ctx context.Context, opts Options) error {
	cfg := e.cfg

	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, observability.Options{
			ServiceName: cfg.Telemetry.ServiceName,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
		})
		if err != nil {
			return fmt.Errorf("телеметрия: %w", err)
		}
		e.stopTracing = shutdown
	}

	e.store = opts.Store
	if e.store == nil {
		store, err := storage.Open(ctx, storageOptions(cfg.Storage))
		if err != nil {
			return fmt.Errorf("хранилище: %w", err)
		}
		e.store = store
	}

	e.bus = opts.Bus
	if e.bus == nil {
		bus, err := openBus(cfg.EventBus)
		if err != nil {
			return fmt.Errorf("шина событий: %w", err)
		}
		e.bus = bus
	}
	eventbus.Init(e.bus)

	if cfg.EventBus.LogEvents {
		sub, err := eventbus.StartLoggingListener(e.bus)
		if err != nil {
			return err
		}
		e.busLog = sub
	}

	exporter, err := eventbus.NewMetricsExporter(e.bus, e.registry)
	if err != nil {
		return err
	}
	e.exporter = exporter
	e.exporter.Start()

	if len(cfg.API.Operators) > 0 {
		issuer, err := auth.NewTokenIssuer(cfg.API.JWTSecret, time.Duration(cfg.API.TokenTTLMinutes)*time.Minute)
		if err != nil {
			return fmt.Errorf("токены операторов: %w", err)
		}
		e.auth = auth.NewAuthenticator(issuer, cfg.API.Operators)
		logging.Info("🔐 Операторов отладочного API: %d", len(cfg.API.Operators))
	}
	return nil
}

func storageOptions(sc config.StorageConfig) storage.Options {
	redisCfg := storage.DefaultRedisConfig()
	if sc.Redis.Addr != "" {
		redisCfg.Addr = sc.Redis.Addr
	}
	if sc.Redis.KeyPrefix != "" {
		redisCfg.KeyPrefix = sc.Redis.KeyPrefix
	}
	redisCfg.Password = sc.Redis.Password
	redisCfg.DB = sc.Redis.DB
	redisCfg.TTL = time.Duration(sc.Redis.TTLSeconds) * time.Second

	return storage.Options{
		Backend:  sc.Backend,
		DataPath: sc.DataPath,
		InMemory: sc.InMemory,
		Redis:    redisCfg,
		MariaDSN: sc.MariaDSN,
		Mongo: storage.MongoConfig{
			URI:        sc.Mongo.URI,
			Database:   sc.Mongo.Database,
			Collection: sc.Mongo.Collection,
		},
	}
}

func openBus(bc config.EventBusConfig) (eventbus.EventBus, error) {
	if bc.URL == "" {
		return eventbus.NewMemoryBus(bc.Buffer), nil
	}
	return eventbus.NewJetStreamBus(bc.URL, bc.Stream, time.Duration(bc.Retention)*time.Hour)
}

// Config возвращает конфигурацию движка
func (e *Engine) Config() *config.Config { return e.cfg }

// Store возвращает хранилище сохранений
func (e *Engine) Store() storage.SaveRepo { return e.store }

// Bus возвращает шину событий
func (e *Engine) Bus() eventbus.EventBus { return e.bus }

// Gatherer объединяет метрики пакетов (дефолтный регистр) и метрики движка
func (e *Engine) Gatherer() prometheus.Gatherer {
	return prometheus.Gatherers{prometheus.DefaultGatherer, e.registry}
}

// LevelConfig переводит секцию engine конфигурации в параметры уровня
func (e *Engine) LevelConfig(name string) world.LevelConfig {
	return world.LevelConfig{
		Name:           name,
		OnTopTolerance: e.cfg.Engine.OnTopTolerance,
		QueueSize:      e.cfg.Engine.QueueSize,
		JumpStrength:   e.cfg.Engine.JumpStrength,
	}
}

// BuildLevel создаёт уровень сцены с хранилищем и шиной движка
func (e *Engine) BuildLevel(sc *scene.Scene) (*world.Level, error) {
	if e.closed {
		return nil, errors.New("engine is closed")
	}
	return sc.Build(e.LevelConfig(sc.Name), world.Deps{Store: e.store, Bus: e.bus})
}

// DebugServer создаёт отладочный API для уровня
func (e *Engine) DebugServer(l *world.Level) (*api.DebugServer, error) {
	return api.NewDebugServer(api.Config{
		Addr:           fmt.Sprintf(":%d", e.cfg.Server.GetDebugPort()),
		Level:          l,
		Auth:           e.auth,
		Registerer:     e.registry,
		Gatherer:       e.Gatherer(),
		StorageBackend: backendName(e.cfg.Storage.Backend),
	})
}

func backendName(name string) string {
	if name == "" {
		return storage.BackendBadger
	}
	return name
}

// Close освобождает ресурсы в обратном порядке создания
func (e *Engine) Close(ctx context.Context) error {
	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	if e.exporter != nil {
		e.exporter.Stop()
	}
	if e.busLog != nil {
		e.busLog.Unsubscribe()
	}
	if e.bus != nil {
		errs = append(errs, e.bus.Close())
	}
	if e.store != nil {
		errs = append(errs, e.store.Close())
	}
	if e.stopTracing != nil {
		errs = append(errs, e.stopTracing(ctx))
	}
	logging.Info("🧹 Движок остановлен")
	return errors.Join(errs...)
}
