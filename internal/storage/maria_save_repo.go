package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
)

// MariaSaveRepo реализует SaveRepo для MariaDB/MySQL.
// Использует таблицу level_saves.
type MariaSaveRepo struct {
	db *sql.DB
}

// NewMariaSaveRepo создает репозиторий сохранений для MariaDB.
// Автоматически создает таблицу, если она не существует.
//
// Параметры:
//
//	dsn - строка подключения к базе данных (user:pass@tcp(host:port)/dbname)
func NewMariaSaveRepo(ctx context.Context, dsn string) (*MariaSaveRepo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaSaveRepo{db: db}
	if err := repo.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}

	return repo, nil
}

func (r *MariaSaveRepo) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS level_saves (
			level      VARCHAR(255) PRIMARY KEY,
			data       MEDIUMBLOB   NOT NULL,
			updated_at TIMESTAMP    DEFAULT CURRENT_TIMESTAMP
			           ON UPDATE    CURRENT_TIMESTAMP
		) ENGINE=InnoDB
	`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ошибка создания таблицы level_saves: %w", err)
	}
	return nil
}

// SaveLevel сохраняет уровень (INSERT ... ON DUPLICATE KEY UPDATE).
func (r *MariaSaveRepo) SaveLevel(ctx context.Context, save *LevelSave) error {
	blob, err := encodeSave(save)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO level_saves (level, data)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE
			data = VALUES(data),
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := r.db.ExecContext(ctx, query, save.Level, blob); err != nil {
		return fmt.Errorf("ошибка сохранения уровня %s: %w", save.Level, err)
	}
	return nil
}

// LoadLevel загружает уровень.
func (r *MariaSaveRepo) LoadLevel(ctx context.Context, level string) (*LevelSave, error) {
	var blob []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM level_saves WHERE level = ?`, level).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, level)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки уровня %s: %w", level, err)
	}

	return decodeSave(blob)
}

// DeleteLevel удаляет сохранение уровня.
func (r *MariaSaveRepo) DeleteLevel(ctx context.Context, level string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM level_saves WHERE level = ?`, level)
	if err != nil {
		return fmt.Errorf("ошибка удаления уровня %s: %w", level, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества затронутых строк: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, level)
	}
	return nil
}

// ListLevels перечисляет сохранённые уровни.
func (r *MariaSaveRepo) ListLevels(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT level FROM level_saves ORDER BY level`)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения списка уровней: %w", err)
	}
	defer rows.Close()

	levels := make([]string, 0)
	for rows.Next() {
		var level string
		if err := rows.Scan(&level); err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	return levels, rows.Err()
}

// Close закрывает соединение с базой данных.
func (r *MariaSaveRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
