package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/annel0/sprite-engine/internal/logging"
	"github.com/go-redis/redis/v8"
)

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // Время жизни записей, 0 - без ограничения
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "engine:save:",
	}
}

// RedisSaveRepo хранит сохранения уровней в Redis.
type RedisSaveRepo struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisSaveRepo подключается к Redis и проверяет соединение.
func NewRedisSaveRepo(ctx context.Context, config *RedisConfig) (*RedisSaveRepo, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Info("🔴 Connected to Redis at %s", config.Addr)
	return &RedisSaveRepo{
		client:    client,
		keyPrefix: config.KeyPrefix,
		ttl:       config.TTL,
	}, nil
}

func (r *RedisSaveRepo) key(level string) string {
	return r.keyPrefix + levelKey(level)
}

// SaveLevel сохраняет уровень
func (r *RedisSaveRepo) SaveLevel(ctx context.Context, save *LevelSave) error {
	blob, err := encodeSave(save)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.key(save.Level), blob, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save level %s: %w", save.Level, err)
	}
	return nil
}

// LoadLevel загружает уровень
func (r *RedisSaveRepo) LoadLevel(ctx context.Context, level string) (*LevelSave, error) {
	blob, err := r.client.Get(ctx, r.key(level)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, level)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get level %s: %w", level, err)
	}

	return decodeSave(blob)
}

// DeleteLevel удаляет сохранение
func (r *RedisSaveRepo) DeleteLevel(ctx context.Context, level string) error {
	n, err := r.client.Del(ctx, r.key(level)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete level %s: %w", level, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, level)
	}
	return nil
}

// ListLevels перечисляет сохранения через SCAN
func (r *RedisSaveRepo) ListLevels(ctx context.Context) ([]string, error) {
	prefix := r.key("")
	levels := make([]string, 0)

	iter := r.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		levels = append(levels, strings.TrimPrefix(iter.Val(), prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan levels: %w", err)
	}

	sort.Strings(levels)
	return levels, nil
}

// Close закрывает соединение с Redis
func (r *RedisSaveRepo) Close() error {
	return r.client.Close()
}
