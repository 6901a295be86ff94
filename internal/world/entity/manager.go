package entity

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/annel0/sprite-engine/internal/physics"
	"github.com/annel0/sprite-engine/internal/vec"
)

// ErrDuplicateUID возвращается при попытке занять UID живой сущности
var ErrDuplicateUID = errors.New("duplicate UID")

// RetireHook вызывается после того, как сущность снята с уровня.
// Через него скриптовый слой вычищает обёртки и обработчики.
type RetireHook func(e *Entity)

// EntityManager владеет всеми живыми сущностями уровня
type EntityManager struct {
	entities   map[uint64]*Entity // Живые сущности по UID
	nextUID    uint64             // Кандидат для следующего свободного UID
	nextSerial uint64
	hooks      []RetireHook
	mu         sync.RWMutex
}

// NewEntityManager создаёт новый менеджер сущностей
func NewEntityManager() *EntityManager {
	return &EntityManager{
		entities: make(map[uint64]*Entity),
		nextUID:  1,
	}
}

// OnRetire регистрирует хук удаления. Хуки вызываются в порядке регистрации.
func (em *EntityManager) OnRetire(hook RetireHook) {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.hooks = append(em.hooks, hook)
}

// Create создаёт сущность. Если в opts задан занятый UID, возвращается
// ErrDuplicateUID и коллекция не меняется.
func (em *EntityManager) Create(t SpriteType, opts Options) (*Entity, error) {
	em.mu.Lock()
	defer em.mu.Unlock()

	var uid uint64
	if opts.UID != nil {
		uid = *opts.UID
		if _, taken := em.entities[uid]; taken {
			return nil, fmt.Errorf("%w: UID %d is already used", ErrDuplicateUID, uid)
		}
	} else {
		uid = em.freeUIDLocked()
	}

	e := &Entity{
		UID:       uid,
		Type:      t,
		Array:     opts.Array,
		Position:  opts.Position,
		Z:         opts.Z,
		Velocity:  opts.Velocity,
		Size:      opts.Size,
		ColOffset: opts.ColOffset,
		ColSize:   opts.ColSize,
		Spawned:   opts.Spawned,
		Active:    opts.Active,
		Ghost:     opts.Ghost,
		Payload:   make(map[string]interface{}),
		Kind:      opts.Kind,
	}
	if e.Array == ArrayUndefined {
		e.Array = defaultArray(t)
	}
	if opts.Massivity != nil {
		e.Massivity = *opts.Massivity
	} else {
		e.Massivity = defaultMassivity(t)
	}
	if e.Kind == nil {
		e.Kind = NewKind(t)
	}

	em.nextSerial++
	e.serial = em.nextSerial
	em.entities[uid] = e
	return e, nil
}

// freeUIDLocked подбирает наименьший свободный UID не меньше счётчика
func (em *EntityManager) freeUIDLocked() uint64 {
	for {
		uid := em.nextUID
		em.nextUID++
		if uid == PlayerUID {
			continue
		}
		if _, taken := em.entities[uid]; !taken {
			return uid
		}
	}
}

// Get возвращает живую сущность по UID
func (em *EntityManager) Get(uid uint64) (*Entity, bool) {
	em.mu.RLock()
	defer em.mu.RUnlock()

	e, ok := em.entities[uid]
	if !ok || e.Dead {
		return nil, false
	}
	return e, true
}

// IsUIDInUse проверяет, занят ли UID
func (em *EntityManager) IsUIDInUse(uid uint64) bool {
	em.mu.RLock()
	defer em.mu.RUnlock()
	_, ok := em.entities[uid]
	return ok
}

// All возвращает сущности в порядке возрастания UID
func (em *EntityManager) All() []*Entity {
	em.mu.RLock()
	result := make([]*Entity, 0, len(em.entities))
	for _, e := range em.entities {
		result = append(result, e)
	}
	em.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].UID < result[j].UID })
	return result
}

// Len возвращает число сущностей в коллекции
func (em *EntityManager) Len() int {
	em.mu.RLock()
	defer em.mu.RUnlock()
	return len(em.entities)
}

// SetUID переназначает UID сущности
func (em *EntityManager) SetUID(e *Entity, uid uint64) error {
	em.mu.Lock()
	defer em.mu.Unlock()

	if e.UID == uid {
		return nil
	}
	if _, taken := em.entities[uid]; taken {
		return fmt.Errorf("%w: UID %d is already used", ErrDuplicateUID, uid)
	}
	delete(em.entities, e.UID)
	e.UID = uid
	em.entities[uid] = e
	return nil
}

// SetMassivity меняет категорию столкновений
func (em *EntityManager) SetMassivity(e *Entity, m physics.Massivity) {
	em.mu.Lock()
	e.Massivity = m
	em.mu.Unlock()
}

// Move сдвигает сущность. Столкновения проверяются позже, на шаге уровня.
func (em *EntityManager) Move(e *Entity, dx, dy float64) {
	em.mu.Lock()
	e.Position = e.Position.Add(vec.Vec2Float{X: dx, Y: dy})
	em.mu.Unlock()
}

// SetPosition ставит сущность в точку
func (em *EntityManager) SetPosition(e *Entity, x, y float64) {
	em.mu.Lock()
	e.Position = vec.Vec2Float{X: x, Y: y}
	em.mu.Unlock()
}

// SetVelocity задаёт скорость
func (em *EntityManager) SetVelocity(e *Entity, vx, vy float64) {
	em.mu.Lock()
	e.Velocity = vec.Vec2Float{X: vx, Y: vy}
	em.mu.Unlock()
}

// Retire снимает сущность с уровня: помечает мёртвой, убирает из коллекции
// и вызывает хуки удаления. Возвращает false, если UID не найден.
func (em *EntityManager) Retire(uid uint64) bool {
	em.mu.Lock()
	e, ok := em.entities[uid]
	if !ok {
		em.mu.Unlock()
		return false
	}
	e.Dead = true
	delete(em.entities, uid)
	hooks := append([]RetireHook(nil), em.hooks...)
	em.mu.Unlock()

	// хуки вызываются без блокировки: они могут обращаться к менеджеру
	for _, hook := range hooks {
		hook(e)
	}
	return true
}

// Kill помечает сущность мёртвой; удаление произойдёт в Sweep
func (em *EntityManager) Kill(e *Entity) {
	em.mu.Lock()
	e.Dead = true
	em.mu.Unlock()
}

// Sweep удаляет все помеченные мёртвыми сущности и возвращает их число
func (em *EntityManager) Sweep() int {
	var dead []uint64
	em.mu.RLock()
	for uid, e := range em.entities {
		if e.Dead {
			dead = append(dead, uid)
		}
	}
	em.mu.RUnlock()

	sort.Slice(dead, func(i, j int) bool { return dead[i] < dead[j] })
	for _, uid := range dead {
		em.Retire(uid)
	}
	return len(dead)
}

// Clear снимает все сущности при выгрузке уровня
func (em *EntityManager) Clear() {
	for _, e := range em.All() {
		em.Retire(e.UID)
	}
	em.mu.Lock()
	em.nextUID = 1
	em.mu.Unlock()
}

// GetStats возвращает статистику по сущностям
func (em *EntityManager) GetStats() map[string]interface{} {
	em.mu.RLock()
	defer em.mu.RUnlock()

	stats := make(map[string]interface{})
	stats["total_entities"] = len(em.entities)

	activeCount, spawnedCount := 0, 0
	typeStats := make(map[string]int)
	for _, e := range em.entities {
		if e.Active {
			activeCount++
		}
		if e.Spawned {
			spawnedCount++
		}
		typeStats[e.Type.String()]++
	}
	stats["active_entities"] = activeCount
	stats["spawned_entities"] = spawnedCount
	stats["entity_types"] = typeStats
	stats["retire_hooks"] = len(em.hooks)

	return stats
}
