package storage

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/dpshade/prompt-vault/internal/models"
	"github.com/dpshade/prompt-vault/internal/validation"
)

// GetSetting returns the value stored for key, or def when the key is absent
func (s *Storage) GetSetting(ctx context.Context, key, def string) (string, error) {
	value := def
	err := s.withDB(ctx, "get setting", func(db *sql.DB) error {
		var v sql.NullString
		err := db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&v)
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		value = v.String
		return nil
	})
	if err != nil {
		return def, err
	}
	return value, nil
}

// SetSetting stores value under key, replacing any previous value
func (s *Storage) SetSetting(ctx context.Context, key, value string) error {
	if err := validation.ValidateSetting(key, value); err != nil {
		return err
	}
	return s.withDB(ctx, "set setting", func(db *sql.DB) error {
		_, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value)
		return err
	})
}

// ListSettings returns every stored setting ordered by key
func (s *Storage) ListSettings(ctx context.Context) ([]models.Setting, error) {
	var settings []models.Setting
	err := s.withDB(ctx, "list settings", func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, "SELECT key, value FROM settings ORDER BY key")
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var key, value sql.NullString
			if err := rows.Scan(&key, &value); err != nil {
				return err
			}
			settings = append(settings, models.Setting{Key: key.String, Value: value.String})
		}
		return rows.Err()
	})
	return settings, err
}
