package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("ENGINE_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.Equal(t, 1024, cfg.Engine.QueueSize)
	assert.Equal(t, 16*time.Millisecond, cfg.Engine.FrameTime())
}

func TestLoad_OverridesOnTopOfDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  queue_size: 64
storage:
  backend: redis
  redis:
    addr: redis:6379
api:
  operators:
    admin: "$2a$10$abcdefghijklmnopqrstuv"
`), 0o644))

	t.Setenv("ENGINE_CONFIG", path)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Engine.QueueSize)
	assert.Equal(t, 400.0, cfg.Engine.JumpStrength, "Незаданные поля берутся из Default")
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "redis:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, "engine:save:", cfg.Storage.Redis.KeyPrefix)
	assert.Contains(t, cfg.API.Operators, "admin")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [1, 2"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestDebugPortFallback(t *testing.T) {
	s := ServerConfig{}
	t.Setenv("ENGINE_DEBUG_PORT", "")
	assert.Equal(t, 8090, s.GetDebugPort())

	t.Setenv("ENGINE_DEBUG_PORT", "9100")
	assert.Equal(t, 9100, s.GetDebugPort())

	t.Setenv("ENGINE_DEBUG_PORT", "abc")
	assert.Equal(t, 8090, s.GetDebugPort())

	s.DebugPort = 7000
	assert.Equal(t, 7000, s.GetDebugPort())
}

func TestFrameTimeFallback(t *testing.T) {
	assert.Equal(t, time.Second/60, EngineConfig{}.FrameTime())
}
