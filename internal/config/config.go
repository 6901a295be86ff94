package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации движка.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Storage   StorageConfig   `yaml:"storage"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Server    ServerConfig    `yaml:"server"`
	API       APIConfig       `yaml:"api"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type EngineConfig struct {
	FrameMS        int     `yaml:"frame_ms"`
	OnTopTolerance float64 `yaml:"on_top_tolerance"`
	QueueSize      int     `yaml:"queue_size"`
	JumpStrength   float64 `yaml:"jump_strength"`
}

// FrameTime возвращает длительность кадра
func (e EngineConfig) FrameTime() time.Duration {
	if e.FrameMS <= 0 {
		return time.Second / 60
	}
	return time.Duration(e.FrameMS) * time.Millisecond
}

type StorageConfig struct {
	Backend  string      `yaml:"backend"` // badger | memory | redis | maria | mongo
	DataPath string      `yaml:"data_path"`
	InMemory bool        `yaml:"in_memory"`
	Redis    RedisConfig `yaml:"redis"`
	MariaDSN string      `yaml:"maria_dsn"`
	Mongo    MongoConfig `yaml:"mongo"`
}

type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	KeyPrefix  string `yaml:"key_prefix"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"` // пусто - in-memory шина
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
	LogEvents bool   `yaml:"log_events"`
}

type ServerConfig struct {
	DebugPort int `yaml:"debug_port"`
}

// GetDebugPort возвращает порт отладочного API с поддержкой fallback значений
func (s *ServerConfig) GetDebugPort() int {
	return getPortWithEnvFallback(s.DebugPort, "ENGINE_DEBUG_PORT", 8090)
}

type APIConfig struct {
	JWTSecret       string            `yaml:"jwt_secret"` // base64, >= 32 байт
	TokenTTLMinutes int               `yaml:"token_ttl_minutes"`
	Operators       map[string]string `yaml:"operators"` // имя -> bcrypt-хэш
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"` // OTLP HTTP host:port
	Insecure    bool   `yaml:"insecure"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			FrameMS:        16,
			OnTopTolerance: 8,
			QueueSize:      1024,
			JumpStrength:   400,
		},
		Storage: StorageConfig{
			Backend:  "badger",
			DataPath: "data",
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "engine:save:",
			},
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "sprite_engine",
				Collection: "level_saves",
			},
		},
		EventBus: EventBusConfig{
			Stream:    "ENGINE_EVENTS",
			Retention: 24,
			Buffer:    1024,
		},
		API: APIConfig{
			TokenTTLMinutes: 720,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "sprite-engine",
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации поверх Default().
// Если path == "", берётся ENV ENGINE_CONFIG; если и он пуст - возвращаются значения по умолчанию.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("ENGINE_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}

	return cfg, nil
}
