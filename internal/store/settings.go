package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const settingSeededAt = "seeded_at"

// GetSetting значение настройки
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("setting %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetSetting сохраняет настройку
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// SeededAt когда база последний раз наполнялась из файла ("" если ни разу)
func (s *Store) SeededAt(ctx context.Context) string {
	v, err := s.GetSetting(ctx, settingSeededAt)
	if err != nil {
		return ""
	}
	return v
}
