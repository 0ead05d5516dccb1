package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"loader/internal/model"
)

// ListItems элементы справочника по имени
func (s *Store) ListItems(ctx context.Context, id model.ListID) ([]model.RefItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(parent_id, 0) FROM ref_items
		WHERE list_id = ? ORDER BY name
	`, string(id))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", id, err)
	}
	defer rows.Close()
	return scanRefItems(rows)
}

// ListStreets улицы населенного пункта
func (s *Store) ListStreets(ctx context.Context, settlementID int64) ([]model.RefItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, settlement_id FROM streets
		WHERE settlement_id = ? ORDER BY name
	`, settlementID)
	if err != nil {
		return nil, fmt.Errorf("query streets: %w", err)
	}
	defer rows.Close()
	return scanRefItems(rows)
}

func scanRefItems(rows *sql.Rows) ([]model.RefItem, error) {
	out := []model.RefItem{}
	for rows.Next() {
		var it model.RefItem
		if err := rows.Scan(&it.ID, &it.Name, &it.ParentID); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ListDevices справочник моделей счетчиков
func (s *Store) ListDevices(ctx context.Context) ([]model.Device, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, password, requests, adv_settings, ip_address FROM devices ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("query devices: %w", err)
	}
	defer rows.Close()

	out := []model.Device{}
	for rows.Next() {
		var d model.Device
		if err := rows.Scan(&d.ID, &d.Name, &d.Password, &d.Requests, &d.AdvSettings, &d.IPAddress); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListIPAddresses справочник IP адресов
func (s *Store) ListIPAddresses(ctx context.Context) ([]model.IPAddress, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, address, is_default FROM ip_addresses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query ip addresses: %w", err)
	}
	defer rows.Close()

	out := []model.IPAddress{}
	for rows.Next() {
		var ip model.IPAddress
		if err := rows.Scan(&ip.ID, &ip.Address, &ip.IsDefault); err != nil {
			return nil, err
		}
		out = append(out, ip)
	}
	return out, rows.Err()
}

// ListProtocols справочник протоколов
func (s *Store) ListProtocols(ctx context.Context) ([]model.Protocol, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, is_default FROM protocols ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query protocols: %w", err)
	}
	defer rows.Close()

	out := []model.Protocol{}
	for rows.Next() {
		var p model.Protocol
		if err := rows.Scan(&p.ID, &p.Name, &p.IsDefault); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateItem добавляет элемент справочника. Дубликат дает ErrAlreadyExists.
func (s *Store) CreateItem(ctx context.Context, id model.ListID, name string) (model.RefItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.RefItem{}, ErrEmptyName
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO ref_items (list_id, name) VALUES (?, ?)`, string(id), name)
	if err != nil {
		if isUniqueViolation(err) {
			return model.RefItem{}, fmt.Errorf("%s %q: %w", id, name, ErrAlreadyExists)
		}
		return model.RefItem{}, fmt.Errorf("insert %s: %w", id, err)
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return model.RefItem{}, err
	}
	return model.RefItem{ID: newID, Name: name}, nil
}

// CreateSettlement добавляет населенный пункт
func (s *Store) CreateSettlement(ctx context.Context, name string) (model.RefItem, error) {
	return s.CreateItem(ctx, model.ListSettlements, name)
}

// CreateSubstation добавляет номер ПС
func (s *Store) CreateSubstation(ctx context.Context, name string) (model.RefItem, error) {
	return s.CreateItem(ctx, model.ListSubstationNumbers, name)
}

// SettlementByName ищет населенный пункт
func (s *Store) SettlementByName(ctx context.Context, name string) (model.RefItem, error) {
	var it model.RefItem
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name FROM ref_items WHERE list_id = ? AND name = ?
	`, string(model.ListSettlements), strings.TrimSpace(name)).Scan(&it.ID, &it.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefItem{}, fmt.Errorf("населенный пункт %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return model.RefItem{}, err
	}
	return it, nil
}

// CreateStreet добавляет улицу в населенный пункт
func (s *Store) CreateStreet(ctx context.Context, settlementID int64, name string) (model.RefItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.RefItem{}, ErrEmptyName
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO streets (settlement_id, name) VALUES (?, ?)`, settlementID, name)
	if err != nil {
		if isUniqueViolation(err) {
			return model.RefItem{}, fmt.Errorf("улица %q: %w", name, ErrAlreadyExists)
		}
		if isForeignKeyViolation(err) {
			return model.RefItem{}, fmt.Errorf("населенный пункт %d: %w", settlementID, ErrNotFound)
		}
		return model.RefItem{}, fmt.Errorf("insert street: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.RefItem{}, err
	}
	return model.RefItem{ID: id, Name: name, ParentID: settlementID}, nil
}

// UpsertDevice добавляет или обновляет модель счетчика
func (s *Store) UpsertDevice(ctx context.Context, d model.Device) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO devices (name, password, requests, adv_settings, ip_address)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			password = excluded.password,
			requests = excluded.requests,
			adv_settings = excluded.adv_settings,
			ip_address = excluded.ip_address
	`, d.Name, d.Password, d.Requests, d.AdvSettings, d.IPAddress)
	if err != nil {
		return fmt.Errorf("upsert device %s: %w", d.Name, err)
	}
	return nil
}

// AddIPAddress добавляет IP адрес (существующий не меняется)
func (s *Store) AddIPAddress(ctx context.Context, ip model.IPAddress) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO ip_addresses (address, is_default) VALUES (?, ?)
	`, ip.Address, ip.IsDefault)
	return err
}

// AddProtocol добавляет протокол (существующий не меняется)
func (s *Store) AddProtocol(ctx context.Context, p model.Protocol) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO protocols (name, is_default) VALUES (?, ?)
	`, p.Name, p.IsDefault)
	return err
}
