package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/sprite-engine/internal/auth"
	"github.com/annel0/sprite-engine/internal/config"
	"github.com/annel0/sprite-engine/internal/scene"
	"github.com/annel0/sprite-engine/internal/storage"
)

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.Storage.Backend = storage.BackendMemory
	cfg.EventBus.LogEvents = true
	return cfg
}

func TestEngine_BuildLevelAndSave(t *testing.T) {
	ctx := context.Background()
	e, err := New(ctx, memoryConfig(), Options{})
	require.NoError(t, err)
	defer e.Close(ctx)

	sc, err := scene.Parse([]byte(`
name: engine_level
entities:
  - type: player
  - type: sprite
    x: 300
`), "")
	require.NoError(t, err)

	l, err := e.BuildLevel(sc)
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.Step(ctx, sc.DT))
	require.NoError(t, l.Save(ctx))

	levels, err := e.Store().ListLevels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"engine_level"}, levels)

	// спавн двух сущностей и сохранение прошли через шину
	assert.Eventually(t, func() bool { return e.Bus().Metrics().Published >= 3 }, time.Second, 5*time.Millisecond)
}

func TestEngine_DebugServerUsesEngineAuth(t *testing.T) {
	ctx := context.Background()
	hash, err := auth.HashPassword("pw")
	require.NoError(t, err)

	cfg := memoryConfig()
	cfg.API.Operators = map[string]string{"root": hash}
	cfg.Server.DebugPort = 18090

	e, err := New(ctx, cfg, Options{})
	require.NoError(t, err)
	defer e.Close(ctx)

	sc, err := scene.Parse([]byte("entities: [{type: player}]"), "")
	require.NoError(t, err)
	l, err := e.BuildLevel(sc)
	require.NoError(t, err)
	defer l.Close()

	srv, err := e.DebugServer(l)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/save", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code, "Операторы настроены - нужен токен")

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "eventbus_messages_published_total")
}

func TestEngine_ExternalStoreAndClose(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemorySaveRepo()
	e, err := New(ctx, nil, Options{Store: store})
	require.NoError(t, err)
	assert.Same(t, store, e.Store())
	assert.Equal(t, 1024, e.LevelConfig("x").QueueSize)

	require.NoError(t, e.Close(ctx))
	require.NoError(t, e.Close(ctx), "Повторный Close безопасен")

	_, err = e.BuildLevel(&scene.Scene{})
	assert.Error(t, err)
}

func TestEngine_BadStorageBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.Storage.Backend = "floppy"
	_, err := New(context.Background(), cfg, Options{})
	assert.ErrorIs(t, err, storage.ErrUnknownBackend)
}

func TestEngine_BadJWTSecret(t *testing.T) {
	cfg := memoryConfig()
	cfg.API.Operators = map[string]string{"root": "x"}
	cfg.API.JWTSecret = "c2hvcnQ="
	_, err := New(context.Background(), cfg, Options{})
	assert.ErrorIs(t, err, auth.ErrWeakSecret)
}
