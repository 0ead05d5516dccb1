package store

import (
	"context"
	"fmt"

	"loader/internal/model"
)

// NextPort первый свободный порт не ниже базового.
// Порт не резервируется: вызывающий должен сразу вызвать CreatePort.
func (s *Store) NextPort(ctx context.Context) (int, error) {
	var next int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MIN(p.port_number + 1), ?)
		FROM ports p
		WHERE p.port_number >= ?
		  AND NOT EXISTS (SELECT 1 FROM ports q WHERE q.port_number = p.port_number + 1)
	`, s.basePort, s.basePort).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next port: %w", err)
	}

	// базовый порт может быть свободен, даже если выше есть занятые
	var baseTaken int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM ports WHERE port_number = ?`, s.basePort).Scan(&baseTaken); err != nil {
		return 0, fmt.Errorf("next port: %w", err)
	}
	if baseTaken == 0 {
		return s.basePort, nil
	}
	return next, nil
}

// CreatePort резервирует порт
func (s *Store) CreatePort(ctx context.Context, port model.Port) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ports (port_number, description) VALUES (?, ?)
	`, port.PortNumber, port.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("порт %d: %w", port.PortNumber, ErrAlreadyExists)
		}
		return fmt.Errorf("insert port %d: %w", port.PortNumber, err)
	}
	return nil
}

// ListPorts зарезервированные порты по возрастанию
func (s *Store) ListPorts(ctx context.Context) ([]model.Port, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT port_number, description FROM ports ORDER BY port_number`)
	if err != nil {
		return nil, fmt.Errorf("query ports: %w", err)
	}
	defer rows.Close()

	out := []model.Port{}
	for rows.Next() {
		var p model.Port
		if err := rows.Scan(&p.PortNumber, &p.Description); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
