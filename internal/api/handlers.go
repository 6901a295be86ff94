package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/annel0/sprite-engine/internal/auth"
	"github.com/annel0/sprite-engine/internal/script"
	"github.com/annel0/sprite-engine/internal/storage"
	"github.com/annel0/sprite-engine/internal/world"
)

// TokenRequest - запрос токена оператора
type TokenRequest struct {
	Operator string `json:"operator" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ShootRequest - параметры выстрела игрока
type ShootRequest struct {
	BallType  string  `json:"ball_type"`
	Direction float64 `json:"direction"`
}

// handleHealth проверка состояния сервера
func (s *DebugServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"level":  s.level.Name(),
		"time":   time.Now().Unix(),
	})
}

// handleToken выдаёт токен оператору по паролю
func (s *DebugServer) handleToken(c *gin.Context) {
	if !s.auth.Enabled() {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Авторизация отключена"})
		return
	}

	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неверный формат запроса"})
		return
	}

	token, err := s.auth.Login(req.Operator, req.Password)
	if err != nil {
		s.logger.Warn("Неудачный вход оператора %s", req.Operator)
		status := http.StatusInternalServerError
		if errors.Is(err, auth.ErrBadCredentials) {
			status = http.StatusUnauthorized
		}
		c.JSON(status, GenericResponse{Success: false, Message: "Неверное имя или пароль"})
		return
	}

	s.logger.Info("🔑 Оператор %s получил токен", req.Operator)
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Токен выдан",
		Data:    gin.H{"token": token},
	})
}

// handleLevel возвращает статистику последнего кадра
func (s *DebugServer) handleLevel(c *gin.Context) {
	snap := s.level.Snapshot()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Состояние уровня",
		Data: gin.H{
			"level":      snap.Level,
			"closed":     snap.Closed,
			"last_frame": snap.Last,
			"entities":   len(snap.Entities),
			"timers":     len(snap.Timers),
		},
	})
}

// handleEntities возвращает сущности, ?type= фильтрует по типу
func (s *DebugServer) handleEntities(c *gin.Context) {
	snap := s.level.Snapshot()
	filter := c.Query("type")

	views := make([]world.EntityView, 0, len(snap.Entities))
	for _, e := range snap.Entities {
		if filter != "" && e.Type != filter {
			continue
		}
		views = append(views, e)
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Список сущностей",
		Data:    gin.H{"entities": views, "total": len(views)},
	})
}

// handleEntity возвращает одну сущность по UID
func (s *DebugServer) handleEntity(c *gin.Context) {
	uid, err := strconv.ParseUint(c.Param("uid"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "UID должен быть числом"})
		return
	}

	view, ok := s.level.Snapshot().Entity(uid)
	if !ok {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Сущность не найдена"})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Сущность", Data: view})
}

// handleTimers возвращает таймеры скриптов
func (s *DebugServer) handleTimers(c *gin.Context) {
	timers := s.level.Snapshot().Timers
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Список таймеров",
		Data:    gin.H{"timers": timers, "total": len(timers)},
	})
}

// handleStats возвращает метрики процесса, рантайма и хранилища
func (s *DebugServer) handleStats(c *gin.Context) {
	snap := s.level.Snapshot()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data: gin.H{
			"process":  s.metrics.Collect(),
			"script":   snap.Script,
			"frame":    snap.Last,
			"entities": len(snap.Entities),
			"storage":  s.backend,
		},
	})
}

// handleKeyDown передаёт нажатие клавиши скриптам
func (s *DebugServer) handleKeyDown(c *gin.Context) {
	key := c.Param("key")
	var failed int
	err := s.call(c, func(l *world.Level) error {
		failed = l.KeyDown(key)
		return nil
	})
	if err != nil {
		s.commandError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Клавиша передана",
		Data:    gin.H{"key": key, "failed": failed},
	})
}

// handleJump заставляет игрока прыгнуть
func (s *DebugServer) handleJump(c *gin.Context) {
	var jumped bool
	err := s.call(c, func(l *world.Level) error {
		jumped = l.Jump()
		return nil
	})
	if err != nil {
		s.commandError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Прыжок", Data: gin.H{"jumped": jumped}})
}

// handleShoot выпускает шар игрока
func (s *DebugServer) handleShoot(c *gin.Context) {
	var req ShootRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Неверный формат запроса"})
			return
		}
	}

	var uid uint64
	err := s.call(c, func(l *world.Level) error {
		ball, err := l.Shoot(req.BallType, req.Direction)
		if err != nil {
			return err
		}
		uid = ball.UID
		return nil
	})
	if err != nil {
		s.commandError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Выстрел", Data: gin.H{"uid": uid}})
}

// handleSave сохраняет уровень
func (s *DebugServer) handleSave(c *gin.Context) {
	ctx := c.Request.Context()
	err := s.call(c, func(l *world.Level) error {
		return l.Save(ctx)
	})
	if err != nil {
		s.commandError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Уровень сохранён"})
}

// handleLoad загружает последнее сохранение уровня
func (s *DebugServer) handleLoad(c *gin.Context) {
	ctx := c.Request.Context()
	err := s.call(c, func(l *world.Level) error {
		return l.Load(ctx)
	})
	if err != nil {
		s.commandError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Уровень загружен"})
}

// commandError переводит ошибку команды в HTTP-статус
func (s *DebugServer) commandError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, world.ErrNoStore), errors.Is(err, world.ErrLevelClosed):
		status = http.StatusConflict
	case errors.Is(err, world.ErrCommandsFull), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	case errors.Is(err, script.ErrUnsavable):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("Команда %s %s завершилась ошибкой: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, GenericResponse{Success: false, Message: err.Error()})
}
