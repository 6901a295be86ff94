package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"
)

// BadgerSaveStore хранит сохранения уровней в BadgerDB.
type BadgerSaveStore struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
}

// NewBadgerSaveStore открывает хранилище в dataPath/saves.
// С inMemory=true база живёт только в памяти (тесты, одноразовые прогоны).
func NewBadgerSaveStore(dataPath string, inMemory bool) (*BadgerSaveStore, error) {
	dbPath := filepath.Join(dataPath, "saves")
	opts := badger.DefaultOptions(dbPath)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
		dbPath = ""
	}
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &BadgerSaveStore{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
	}, nil
}

// Close закрывает хранилище
func (s *BadgerSaveStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isReady {
		return nil
	}

	s.isReady = false
	return s.db.Close()
}

// SaveLevel сохраняет уровень
func (s *BadgerSaveStore) SaveLevel(ctx context.Context, save *LevelSave) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return ErrNotReady
	}

	data, err := encodeSave(save)
	if err != nil {
		return err
	}

	key := levelKey(save.Level)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("не удалось сохранить уровень %s: %w", save.Level, err)
	}
	return nil
}

// LoadLevel загружает уровень
func (s *BadgerSaveStore) LoadLevel(ctx context.Context, level string) (*LevelSave, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return nil, ErrNotReady
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(levelKey(level)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte{}, val...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, level)
	}
	if err != nil {
		return nil, fmt.Errorf("не удалось загрузить уровень %s: %w", level, err)
	}

	return decodeSave(data)
}

// DeleteLevel удаляет сохранение уровня
func (s *BadgerSaveStore) DeleteLevel(ctx context.Context, level string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return ErrNotReady
	}

	key := []byte(levelKey(level))
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("%w: %s", ErrNotFound, level)
			}
			return err
		}
		return txn.Delete(key)
	})
}

// ListLevels перечисляет сохранённые уровни
func (s *BadgerSaveStore) ListLevels(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.isReady {
		return nil, ErrNotReady
	}

	prefix := []byte(levelKey(""))
	levels := make([]string, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			levels = append(levels, strings.TrimPrefix(string(it.Item().Key()), string(prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(levels)
	return levels, nil
}
