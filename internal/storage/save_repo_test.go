package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSave(level string) *LevelSave {
	return &LevelSave{
		Level: level,
		ScriptData: map[string]interface{}{
			"coins":  float64(12),
			"opened": true,
			"name":   "castle",
		},
		Entities: []EntitySnapshot{
			{UID: 1, Type: "furball", Massivity: "massive", X: 10, Y: 20, W: 32, H: 32, Active: true},
			{UID: 7, Type: "bonus_box", Massivity: "massive", X: 64, Y: 0, W: 32, H: 32, Active: true,
				Payload: map[string]interface{}{"useable_count": float64(1)}},
		},
	}
}

// runRepoContract прогоняет общий контракт SaveRepo.
func runRepoContract(t *testing.T, repo SaveRepo) {
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		require.NoError(t, repo.SaveLevel(ctx, sampleSave("world_1")))

		loaded, err := repo.LoadLevel(ctx, "world_1")
		require.NoError(t, err)
		assert.Equal(t, "world_1", loaded.Level)
		assert.Equal(t, float64(12), loaded.ScriptData["coins"])
		assert.Equal(t, true, loaded.ScriptData["opened"])
		require.Len(t, loaded.Entities, 2)
		assert.Equal(t, uint64(7), loaded.Entities[1].UID)
		assert.Equal(t, float64(1), loaded.Entities[1].Payload["useable_count"])
	})

	t.Run("Overwrite", func(t *testing.T) {
		save := sampleSave("world_1")
		save.ScriptData["coins"] = float64(99)
		require.NoError(t, repo.SaveLevel(ctx, save))

		loaded, err := repo.LoadLevel(ctx, "world_1")
		require.NoError(t, err)
		assert.Equal(t, float64(99), loaded.ScriptData["coins"])
	})

	t.Run("Missing level", func(t *testing.T) {
		_, err := repo.LoadLevel(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, repo.DeleteLevel(ctx, "nope"), ErrNotFound)
	})

	t.Run("Empty level name", func(t *testing.T) {
		assert.ErrorIs(t, repo.SaveLevel(ctx, &LevelSave{}), ErrEmptyLevel)
	})

	t.Run("List and Delete", func(t *testing.T) {
		require.NoError(t, repo.SaveLevel(ctx, sampleSave("alpha")))

		levels, err := repo.ListLevels(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "world_1"}, levels)

		require.NoError(t, repo.DeleteLevel(ctx, "alpha"))
		levels, err = repo.ListLevels(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"world_1"}, levels)
	})
}

func TestMemorySaveRepo(t *testing.T) {
	repo := NewMemorySaveRepo()
	defer repo.Close()

	runRepoContract(t, repo)
	assert.Equal(t, 1, repo.Count())
}

func TestBadgerSaveStore(t *testing.T) {
	store, err := NewBadgerSaveStore("", true)
	require.NoError(t, err)
	defer store.Close()

	runRepoContract(t, store)
}

func TestBadgerSaveStoreOnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewBadgerSaveStore(dir, false)
	require.NoError(t, err)
	require.NoError(t, store.SaveLevel(ctx, sampleSave("persist")))
	require.NoError(t, store.Close())

	// Повторный Close безопасен, операции после него отклоняются
	require.NoError(t, store.Close())
	assert.ErrorIs(t, store.SaveLevel(ctx, sampleSave("persist")), ErrNotReady)

	reopened, err := NewBadgerSaveStore(dir, false)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.LoadLevel(ctx, "persist")
	require.NoError(t, err)
	assert.Len(t, loaded.Entities, 2)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := NewMemorySaveRepo()
	assert.ErrorIs(t, repo.SaveLevel(ctx, sampleSave("x")), context.Canceled)
	assert.Equal(t, 0, repo.Count())
}

func TestCodecCompresses(t *testing.T) {
	save := sampleSave("big")
	for i := 0; i < 200; i++ {
		save.Entities = append(save.Entities, EntitySnapshot{UID: uint64(100 + i), Type: "goldpiece", Massivity: "passive", W: 16, H: 16})
	}

	blob, err := encodeSave(save)
	require.NoError(t, err)

	decoded, err := decodeSave(blob)
	require.NoError(t, err)
	assert.Len(t, decoded.Entities, 202)

	_, err = decodeSave([]byte("not zstd"))
	assert.Error(t, err)
}

func TestOpenBackends(t *testing.T) {
	ctx := context.Background()

	repo, err := Open(ctx, Options{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemorySaveRepo{}, repo)

	repo, err = Open(ctx, Options{InMemory: true})
	require.NoError(t, err)
	assert.IsType(t, &BadgerSaveStore{}, repo)
	require.NoError(t, repo.Close())

	_, err = Open(ctx, Options{Backend: "floppy"})
	assert.ErrorIs(t, err, ErrUnknownBackend)

	_, err = Open(ctx, Options{Backend: "maria"})
	assert.Error(t, err)
}
