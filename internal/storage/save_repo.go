package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound возвращается, когда для уровня нет сохранения.
var ErrNotFound = errors.New("save not found")

// ErrNotReady возвращается после Close.
var ErrNotReady = errors.New("storage is not ready")

// EntitySnapshot - состояние одного спрайта уровня в сохранении.
// Спрайты, созданные скриптом, сюда не попадают: скрипт создаёт их заново при загрузке.
type EntitySnapshot struct {
	UID       uint64                 `json:"uid"`
	Type      string                 `json:"type"`
	Massivity string                 `json:"massivity"`
	X         float64                `json:"x"`
	Y         float64                `json:"y"`
	Z         float64                `json:"z"`
	VX        float64                `json:"vx,omitempty"`
	VY        float64                `json:"vy,omitempty"`
	W         float64                `json:"w"`
	H         float64                `json:"h"`
	Active    bool                   `json:"active"`
	Ghost     bool                   `json:"ghost,omitempty"`
	Dead      bool                   `json:"dead,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// LevelSave - сохранение уровня: таблица, возвращённая обработчиками Level.on_save,
// и снимки спрайтов уровня.
type LevelSave struct {
	Level      string                 `json:"level"`
	SavedAt    time.Time              `json:"saved_at"`
	ScriptData map[string]interface{} `json:"script_data,omitempty"`
	Entities   []EntitySnapshot       `json:"entities,omitempty"`
}

// SaveRepo определяет интерфейс хранилища сохранений уровней.
// Все реализации хранят LevelSave в виде blob, сжатого codec'ом.
type SaveRepo interface {
	// SaveLevel сохраняет (перезаписывает) сохранение уровня.
	SaveLevel(ctx context.Context, save *LevelSave) error

	// LoadLevel загружает сохранение; ErrNotFound, если его нет.
	LoadLevel(ctx context.Context, level string) (*LevelSave, error)

	// DeleteLevel удаляет сохранение; ErrNotFound, если его нет.
	DeleteLevel(ctx context.Context, level string) error

	// ListLevels возвращает имена уровней с сохранениями в порядке возрастания.
	ListLevels(ctx context.Context) ([]string, error)

	Close() error
}

func levelKey(level string) string {
	return "level:" + level
}
