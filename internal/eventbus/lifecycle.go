package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Типы событий жизненного цикла уровня.
const (
	TypeEntitySpawned = "EntitySpawned"
	TypeEntityRetired = "EntityRetired"
	TypeHandlerFailed = "HandlerFailed"
	TypeLevelSaved    = "LevelSaved"
	TypeLevelLoaded   = "LevelLoaded"
)

// PayloadVersion - версия схемы полезной нагрузки.
const PayloadVersion = 1

// EntityEvent - полезная нагрузка EntitySpawned/EntityRetired.
type EntityEvent struct {
	UID     uint64  `json:"uid"`
	Type    string  `json:"type"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Spawned bool    `json:"spawned"`
}

// HandlerFailure - полезная нагрузка HandlerFailed.
type HandlerFailure struct {
	Event string `json:"event"`
	UID   *uint64 `json:"uid,omitempty"` // nil для глобальных обработчиков (Input, Level)
	Error string `json:"error"`
}

// LevelEvent - полезная нагрузка LevelSaved/LevelLoaded.
type LevelEvent struct {
	Level    string `json:"level"`
	Entities int    `json:"entities"`
}

// NewEnvelope упаковывает полезную нагрузку в Envelope с новым UUID.
func NewEnvelope(source, eventType string, priority int, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   PayloadVersion,
		Priority:  priority,
		Payload:   data,
	}, nil
}

// Decode распаковывает полезную нагрузку события.
func (ev *Envelope) Decode(out interface{}) error {
	if len(ev.Payload) == 0 {
		return fmt.Errorf("event %s has no payload", ev.ID)
	}
	return json.Unmarshal(ev.Payload, out)
}
