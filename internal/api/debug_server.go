package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/sprite-engine/internal/auth"
	"github.com/annel0/sprite-engine/internal/logging"
	"github.com/annel0/sprite-engine/internal/middleware"
	"github.com/annel0/sprite-engine/internal/world"
)

// DefaultCallTimeout - сколько обработчик ждёт выполнения команды в основном цикле
const DefaultCallTimeout = 2 * time.Second

// Config содержит конфигурацию отладочного сервера
type Config struct {
	Addr           string                // адрес, например ":8090"
	Level          *world.Level          // обслуживаемый уровень
	Auth           *auth.Authenticator   // nil или без операторов - без авторизации
	Registerer     prometheus.Registerer // nil - дефолтный регистр
	Gatherer       prometheus.Gatherer   // источник /metrics, nil - дефолтный
	StorageBackend string                // имя бэкенда сохранений для /api/stats
	CallTimeout    time.Duration
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// DebugServer отдаёт снимки уровня и принимает команды операторов.
// Чтение идёт только из Level.Snapshot, изменения - через Level.Call.
type DebugServer struct {
	router      *gin.Engine
	httpServer  *http.Server
	level       *world.Level
	auth        *auth.Authenticator
	metrics     *ProcessMetrics
	backend     string
	callTimeout time.Duration
	logger      *logging.Logger
}

// NewDebugServer создаёт сервер и регистрирует HTTP-метрики
func NewDebugServer(cfg Config) (*DebugServer, error) {
	if cfg.Level == nil {
		return nil, errors.New("debug server: level is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8090"
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// === Observability middleware ===
	router.Use(middleware.NewRequestLogger("/health", "/metrics").Handler())
	router.Use(otelgin.Middleware("engine_api"))

	promMw, err := middleware.NewPrometheusMiddleware("engine_api", cfg.Registerer)
	if err != nil {
		return nil, err
	}
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, cfg.Gatherer)

	s := &DebugServer{
		router:      router,
		level:       cfg.Level,
		auth:        cfg.Auth,
		metrics:     NewProcessMetrics(),
		backend:     cfg.StorageBackend,
		callTimeout: cfg.CallTimeout,
		logger:      logging.GetAPILogger(),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.setupRoutes()
	return s, nil
}

// setupRoutes настраивает маршруты API
func (s *DebugServer) setupRoutes() {
	s.router.Use(corsMiddleware())
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	api.POST("/auth/token", s.handleToken)

	api.GET("/level", s.handleLevel)
	api.GET("/entities", s.handleEntities)
	api.GET("/entities/:uid", s.handleEntity)
	api.GET("/timers", s.handleTimers)
	api.GET("/stats", s.handleStats)

	// Команды оператора (требуют токен, если настроены операторы)
	control := api.Group("/")
	control.Use(s.bearerMiddleware())
	{
		control.POST("/input/:key", s.handleKeyDown)
		control.POST("/jump", s.handleJump)
		control.POST("/shoot", s.handleShoot)
		control.POST("/save", s.handleSave)
		control.POST("/load", s.handleLoad)
	}
}

// Handler возвращает http.Handler сервера
func (s *DebugServer) Handler() http.Handler {
	return s.router
}

// Start запускает сервер и блокируется до Shutdown
func (s *DebugServer) Start() error {
	s.logger.Info("🌐 Отладочный API слушает %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown останавливает сервер, дожидаясь активных запросов
func (s *DebugServer) Shutdown(ctx context.Context) error {
	s.logger.Info("🛑 Остановка отладочного API")
	return s.httpServer.Shutdown(ctx)
}

// call выполняет команду в основном цикле уровня с таймаутом запроса
func (s *DebugServer) call(c *gin.Context, fn func(l *world.Level) error) error {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.callTimeout)
	defer cancel()
	return s.level.Call(ctx, fn)
}
