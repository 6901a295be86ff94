package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemorySaveRepo реализует SaveRepo в памяти.
// Используется в тестах и как fallback, когда внешнее хранилище недоступно.
// ВНИМАНИЕ: Данные теряются при перезапуске!
type MemorySaveRepo struct {
	mu   sync.RWMutex
	data map[string][]byte // level -> сжатый blob
}

// NewMemorySaveRepo создает новый репозиторий сохранений в памяти.
func NewMemorySaveRepo() *MemorySaveRepo {
	return &MemorySaveRepo{
		data: make(map[string][]byte),
	}
}

// SaveLevel сохраняет уровень в памяти.
func (r *MemorySaveRepo) SaveLevel(ctx context.Context, save *LevelSave) error {
	// Проверяем контекст на отмену
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	blob, err := encodeSave(save)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[save.Level] = blob
	return nil
}

// LoadLevel загружает уровень из памяти.
func (r *MemorySaveRepo) LoadLevel(ctx context.Context, level string) (*LevelSave, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r.mu.RLock()
	blob, exists := r.data[level]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, level)
	}
	return decodeSave(blob)
}

// DeleteLevel удаляет сохранение из памяти.
func (r *MemorySaveRepo) DeleteLevel(ctx context.Context, level string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[level]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, level)
	}

	delete(r.data, level)
	return nil
}

// ListLevels возвращает имена сохранённых уровней.
func (r *MemorySaveRepo) ListLevels(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	levels := make([]string, 0, len(r.data))
	for level := range r.data {
		levels = append(levels, level)
	}
	sort.Strings(levels)
	return levels, nil
}

// Count возвращает количество сохранений (для отладки).
func (r *MemorySaveRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Close ничего не делает: данные в памяти остаются до сборки мусора.
func (r *MemorySaveRepo) Close() error {
	return nil
}
