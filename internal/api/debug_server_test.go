package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/sprite-engine/internal/auth"
	"github.com/annel0/sprite-engine/internal/storage"
	"github.com/annel0/sprite-engine/internal/vec"
	"github.com/annel0/sprite-engine/internal/world"
	"github.com/annel0/sprite-engine/internal/world/entity"
)

type decoded struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// startLevel запускает уровень с игроком и врагом в фоновом цикле
func startLevel(t *testing.T, store storage.SaveRepo) *world.Level {
	t.Helper()
	l := world.NewLevel(world.LevelConfig{Name: "api_level"}, world.Deps{Store: store})

	_, err := l.Spawn(entity.TypePlayer, entity.Options{
		UID:    entity.WithUID(entity.PlayerUID),
		Size:   vec.Vec2Float{X: 32, Y: 32},
		Active: true,
	})
	require.NoError(t, err)
	_, err = l.Spawn(entity.TypeEnemy, entity.Options{
		Position: vec.Vec2Float{X: 500, Y: 0},
		Size:     vec.Vec2Float{X: 32, Y: 32},
		Active:   true,
	})
	require.NoError(t, err)
	require.NoError(t, l.LoadScript("keys", `
		pressed = 0
		Input:on_key_down(function(key) pressed = pressed + 1 end)
	`))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = l.Run(ctx, time.Millisecond, 0)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
		l.Close()
	})
	return l
}

func newServer(t *testing.T, l *world.Level, a *auth.Authenticator) *DebugServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	s, err := NewDebugServer(Config{
		Level:          l,
		Auth:           a,
		Registerer:     reg,
		Gatherer:       reg,
		StorageBackend: "memory",
	})
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *DebugServer, method, path, token string, body interface{}) (*httptest.ResponseRecorder, decoded) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var out decoded
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

// waitFrame ждёт, пока снимок уровня обновится после команды
func waitFrame(t *testing.T, l *world.Level) {
	t.Helper()
	start := l.Snapshot().Last.Frame
	require.Eventually(t, func() bool { return l.Snapshot().Last.Frame > start+1 }, time.Second, time.Millisecond)
}

func TestDebugServer_HealthAndMetrics(t *testing.T) {
	s := newServer(t, startLevel(t, nil), nil)

	w, _ := do(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get("X-Trace-Id"))

	w, _ = do(t, s, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "engine_api_http_request_duration_seconds")

	w, _ = do(t, s, http.MethodOptions, "/api/entities", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestDebugServer_Entities(t *testing.T) {
	l := startLevel(t, nil)
	waitFrame(t, l)
	s := newServer(t, l, nil)

	w, resp := do(t, s, http.MethodGet, "/api/entities", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Entities []world.EntityView `json:"entities"`
		Total    int                `json:"total"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	assert.Equal(t, 2, list.Total)

	_, resp = do(t, s, http.MethodGet, "/api/entities?type=enemy", "", nil)
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "enemy", list.Entities[0].Type)

	w, resp = do(t, s, http.MethodGet, "/api/entities/1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view world.EntityView
	require.NoError(t, json.Unmarshal(resp.Data, &view))
	assert.Equal(t, entity.PlayerUID, view.UID)

	w, _ = do(t, s, http.MethodGet, "/api/entities/999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = do(t, s, http.MethodGet, "/api/entities/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDebugServer_LevelTimersStats(t *testing.T) {
	l := startLevel(t, nil)
	s := newServer(t, l, nil)

	w, _ := do(t, s, http.MethodGet, "/api/level", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"level":"api_level"`)

	w, _ = do(t, s, http.MethodGet, "/api/timers", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, resp := do(t, s, http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Process ProcessStats `json:"process"`
		Storage string       `json:"storage"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.Equal(t, "memory", stats.Storage)
	assert.Positive(t, stats.Process.Goroutines)
}

func TestDebugServer_CommandsWithoutAuth(t *testing.T) {
	store := storage.NewMemorySaveRepo()
	l := startLevel(t, store)
	s := newServer(t, l, nil)

	w, resp := do(t, s, http.MethodPost, "/api/input/action", "", nil)
	require.Equal(t, http.StatusOK, w.Code, resp.Message)
	assert.Contains(t, string(resp.Data), `"failed":0`)

	w, resp = do(t, s, http.MethodPost, "/api/load", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, resp.Message)

	w, resp = do(t, s, http.MethodPost, "/api/save", "", nil)
	require.Equal(t, http.StatusOK, w.Code, resp.Message)
	assert.Equal(t, 1, store.Count())

	w, resp = do(t, s, http.MethodPost, "/api/load", "", nil)
	assert.Equal(t, http.StatusOK, w.Code, resp.Message)

	w, resp = do(t, s, http.MethodPost, "/api/shoot", "", ShootRequest{BallType: "fire", Direction: 1})
	require.Equal(t, http.StatusOK, w.Code, resp.Message)
	assert.Contains(t, string(resp.Data), `"uid"`)

	w, _ = do(t, s, http.MethodPost, "/api/jump", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDebugServer_SaveWithoutStore(t *testing.T) {
	s := newServer(t, startLevel(t, nil), nil)
	w, _ := do(t, s, http.MethodPost, "/api/save", "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDebugServer_UnsavableScriptData(t *testing.T) {
	l := startLevel(t, storage.NewMemorySaveRepo())
	require.NoError(t, l.Call(context.Background(), func(l *world.Level) error {
		return l.LoadScript("cyclic", `Level:on_save(function(store) store.me = store end)`)
	}))
	s := newServer(t, l, nil)

	w, _ := do(t, s, http.MethodPost, "/api/save", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// основной цикл продолжает принимать команды
	w, _ = do(t, s, http.MethodPost, "/api/input/action", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDebugServer_CommandTimeoutWithoutLoop(t *testing.T) {
	l := world.NewLevel(world.LevelConfig{Name: "stalled"}, world.Deps{})
	t.Cleanup(l.Close)
	s, err := NewDebugServer(Config{Level: l, Registerer: prometheus.NewRegistry(), CallTimeout: 20 * time.Millisecond})
	require.NoError(t, err)

	w, _ := do(t, s, http.MethodPost, "/api/input/action", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDebugServer_OperatorAuth(t *testing.T) {
	hash, err := auth.HashPassword("hunter2")
	require.NoError(t, err)
	issuer, err := auth.NewTokenIssuer("", time.Hour)
	require.NoError(t, err)
	a := auth.NewAuthenticator(issuer, map[string]string{"ops": hash})

	s := newServer(t, startLevel(t, nil), a)

	w, _ := do(t, s, http.MethodPost, "/api/input/action", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, s, http.MethodPost, "/api/input/action", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, s, http.MethodPost, "/api/auth/token", "", TokenRequest{Operator: "ops", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, s, http.MethodPost, "/api/auth/token", "", map[string]string{"operator": "ops"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp := do(t, s, http.MethodPost, "/api/auth/token", "", TokenRequest{Operator: "ops", Password: "hunter2"})
	require.Equal(t, http.StatusOK, w.Code)
	var tok struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &tok))
	require.NotEmpty(t, tok.Token)

	w, resp = do(t, s, http.MethodPost, "/api/input/action", tok.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code, resp.Message)

	// Чтение доступно без токена
	w, _ = do(t, s, http.MethodGet, "/api/entities", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDebugServer_TokenDisabled(t *testing.T) {
	s := newServer(t, startLevel(t, nil), nil)
	w, _ := do(t, s, http.MethodPost, "/api/auth/token", "", TokenRequest{Operator: "a", Password: "b"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDebugServer_RequiresLevel(t *testing.T) {
	_, err := NewDebugServer(Config{})
	assert.Error(t, err)
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5с", formatUptime(5*time.Second))
	assert.Equal(t, "2м 3с", formatUptime(2*time.Minute+3*time.Second))
	assert.Equal(t, "1ч 0м 0с", formatUptime(time.Hour))
	assert.Equal(t, "1д 1ч 0м 0с", formatUptime(25*time.Hour))
}
