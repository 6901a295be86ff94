package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ErrEmptyLevel возвращается при попытке сохранить уровень без имени.
var ErrEmptyLevel = errors.New("level name is empty")

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

func initCodec() error {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil)
	})
	return codecErr
}

// encodeSave сериализует сохранение в JSON и сжимает его zstd.
func encodeSave(save *LevelSave) ([]byte, error) {
	if save == nil || save.Level == "" {
		return nil, ErrEmptyLevel
	}
	if err := initCodec(); err != nil {
		return nil, fmt.Errorf("zstd init: %w", err)
	}

	raw, err := json.Marshal(save)
	if err != nil {
		return nil, fmt.Errorf("не удалось сериализовать сохранение %s: %w", save.Level, err)
	}
	return encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

// decodeSave распаковывает blob, записанный encodeSave.
func decodeSave(blob []byte) (*LevelSave, error) {
	if err := initCodec(); err != nil {
		return nil, fmt.Errorf("zstd init: %w", err)
	}

	raw, err := decoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("не удалось распаковать сохранение: %w", err)
	}

	var save LevelSave
	if err := json.Unmarshal(raw, &save); err != nil {
		return nil, fmt.Errorf("не удалось десериализовать сохранение: %w", err)
	}
	return &save, nil
}
