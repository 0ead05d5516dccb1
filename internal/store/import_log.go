package store

import (
	"context"
	"fmt"

	"loader/internal/model"
)

// RecordImport пишет запись журнала
func (s *Store) RecordImport(ctx context.Context, e model.ImportLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_logs (session_id, action, file_name, row_count, error_count, recipient)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.SessionID, string(e.Action), e.FileName, e.Rows, e.Errors, e.Recipient)
	if err != nil {
		return fmt.Errorf("failed to record import log: %w", err)
	}
	return nil
}

// ListImportLogs последние записи журнала, новые первыми
func (s *Store) ListImportLogs(ctx context.Context, limit int) ([]model.ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, action, file_name, row_count, error_count, recipient, created_at
		FROM import_logs ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query import logs: %w", err)
	}
	defer rows.Close()

	out := []model.ImportLog{}
	for rows.Next() {
		var e model.ImportLog
		var action string
		if err := rows.Scan(&e.ID, &e.SessionID, &action, &e.FileName, &e.Rows, &e.Errors, &e.Recipient, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = model.ImportAction(action)
		out = append(out, e)
	}
	return out, rows.Err()
}
