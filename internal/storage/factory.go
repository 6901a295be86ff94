package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/annel0/sprite-engine/internal/logging"
)

// ErrUnknownBackend возвращается для неизвестного имени бэкенда.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Backend names
const (
	BackendBadger = "badger"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMaria  = "maria"
	BackendMongo  = "mongo"
)

// Options описывает выбор и настройки хранилища сохранений.
type Options struct {
	Backend  string
	DataPath string
	InMemory bool
	Redis    *RedisConfig
	MariaDSN string
	Mongo    MongoConfig
}

// Open создаёт SaveRepo для выбранного бэкенда. Пустое имя означает badger.
func Open(ctx context.Context, opts Options) (SaveRepo, error) {
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" {
		backend = BackendBadger
	}

	var (
		repo SaveRepo
		err  error
	)
	switch backend {
	case BackendBadger:
		repo, err = NewBadgerSaveStore(opts.DataPath, opts.InMemory)
	case BackendMemory:
		repo = NewMemorySaveRepo()
	case BackendRedis:
		repo, err = NewRedisSaveRepo(ctx, opts.Redis)
	case BackendMaria, "mysql", "mariadb":
		if opts.MariaDSN == "" {
			return nil, fmt.Errorf("maria backend: dsn is empty")
		}
		repo, err = NewMariaSaveRepo(ctx, opts.MariaDSN)
	case BackendMongo:
		repo, err = NewMongoSaveRepo(ctx, opts.Mongo)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
	if err != nil {
		return nil, err
	}

	logging.Info("💾 Хранилище сохранений: %s", backend)
	return repo, nil
}
