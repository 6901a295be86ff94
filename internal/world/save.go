package world

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/sprite-engine/internal/eventbus"
	"github.com/annel0/sprite-engine/internal/physics"
	"github.com/annel0/sprite-engine/internal/storage"
	"github.com/annel0/sprite-engine/internal/world/entity"
)

// ErrNoStore возвращается, если уровню не передано хранилище
var ErrNoStore = errors.New("level has no save store")

// Save собирает данные Level:on_save и снимки неспавненных сущностей
// и записывает их в хранилище.
func (l *Level) Save(ctx context.Context) error {
	if l.closed {
		return ErrLevelClosed
	}
	if l.store == nil {
		return ErrNoStore
	}

	data, err := l.runtime.FireSave()
	if err != nil {
		return err
	}

	save := &storage.LevelSave{
		Level:      l.cfg.Name,
		SavedAt:    time.Now().UTC(),
		ScriptData: data,
	}
	for _, e := range l.manager.All() {
		if e.Spawned {
			continue
		}
		save.Entities = append(save.Entities, snapshotOf(e))
	}

	if err := l.store.SaveLevel(ctx, save); err != nil {
		return fmt.Errorf("сохранение уровня %s: %w", l.cfg.Name, err)
	}

	l.logger.Info("💾 Уровень %s сохранён (%d сущностей)", l.cfg.Name, len(save.Entities))
	eventbus.Emit(ctx, l.bus, l.cfg.Name, eventbus.TypeLevelSaved, 3, eventbus.LevelEvent{
		Level:    l.cfg.Name,
		Entities: len(save.Entities),
	})
	return nil
}

// Load восстанавливает состояние неспавненных сущностей и передаёт данные
// скрипта обработчикам Level:on_load. Сущности уровня, отсутствующие в
// сохранении, были уничтожены до сохранения и снимаются.
func (l *Level) Load(ctx context.Context) error {
	if l.closed {
		return ErrLevelClosed
	}
	if l.store == nil {
		return ErrNoStore
	}

	save, err := l.store.LoadLevel(ctx, l.cfg.Name)
	if err != nil {
		return err
	}

	saved := make(map[uint64]storage.EntitySnapshot, len(save.Entities))
	for _, s := range save.Entities {
		saved[s.UID] = s
	}

	for _, e := range l.manager.All() {
		if e.Spawned {
			continue
		}
		s, ok := saved[e.UID]
		if !ok || s.Type != e.Type.String() {
			l.manager.Kill(e)
			continue
		}
		l.apply(e, s)
	}
	l.manager.Sweep()

	if err := l.runtime.FireLoad(save.ScriptData); err != nil {
		return err
	}

	l.refreshSnapshot(FrameStats{Frame: l.frame})
	l.logger.Info("📂 Уровень %s загружен (%d сущностей)", l.cfg.Name, len(save.Entities))
	eventbus.Emit(ctx, l.bus, l.cfg.Name, eventbus.TypeLevelLoaded, 3, eventbus.LevelEvent{
		Level:    l.cfg.Name,
		Entities: len(save.Entities),
	})
	return nil
}

func (l *Level) apply(e *entity.Entity, s storage.EntitySnapshot) {
	l.manager.SetPosition(e, s.X, s.Y)
	l.manager.SetVelocity(e, s.VX, s.VY)
	if m, err := physics.ParseMassivity(s.Massivity); err == nil {
		l.manager.SetMassivity(e, m)
	} else {
		l.logger.Warn("Сохранение %s: UID %d: %v", l.cfg.Name, s.UID, err)
	}
	e.Z = s.Z
	e.Active = s.Active
	e.Ghost = s.Ghost
	if s.Payload != nil {
		e.Payload = s.Payload
	}
}

func snapshotOf(e *entity.Entity) storage.EntitySnapshot {
	return storage.EntitySnapshot{
		UID:       e.UID,
		Type:      e.Type.String(),
		Massivity: e.Massivity.String(),
		X:         e.Position.X,
		Y:         e.Position.Y,
		Z:         e.Z,
		VX:        e.Velocity.X,
		VY:        e.Velocity.Y,
		W:         e.Size.X,
		H:         e.Size.Y,
		Active:    e.Active,
		Ghost:     e.Ghost,
		Payload:   e.Payload,
	}
}
