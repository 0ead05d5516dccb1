package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"loader/internal/model"
)

// SeedData содержимое файла начального наполнения справочников
type SeedData struct {
	Lists       map[model.ListID][]string `yaml:"lists"`
	Streets     map[string][]string       `yaml:"streets"` // населенный пункт -> улицы
	Devices     []model.Device            `yaml:"devices"`
	IPAddresses []model.IPAddress         `yaml:"ip_addresses"`
	Protocols   []model.Protocol          `yaml:"protocols"`
	Ports       []model.Port              `yaml:"ports"`
}

// SeedReport сколько записей добавлено
type SeedReport struct {
	Items   int `json:"items"`
	Streets int `json:"streets"`
	Devices int `json:"devices"`
	Ports   int `json:"ports"`
}

// LoadSeedFile читает YAML с наполнением
func LoadSeedFile(path string) (*SeedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var data SeedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &data, nil
}

// Seed наполняет справочники. Уже существующие записи пропускаются,
// поэтому повторный запуск безопасен.
func (s *Store) Seed(ctx context.Context, data *SeedData) (SeedReport, error) {
	var report SeedReport

	for id, names := range data.Lists {
		for _, name := range names {
			_, err := s.CreateItem(ctx, id, name)
			switch {
			case err == nil:
				report.Items++
			case errors.Is(err, ErrAlreadyExists):
			default:
				return report, err
			}
		}
	}

	for settlement, streets := range data.Streets {
		item, err := s.SettlementByName(ctx, settlement)
		if errors.Is(err, ErrNotFound) {
			item, err = s.CreateSettlement(ctx, settlement)
			if err == nil {
				report.Items++
			}
		}
		if err != nil {
			return report, err
		}
		for _, street := range streets {
			_, err := s.CreateStreet(ctx, item.ID, street)
			switch {
			case err == nil:
				report.Streets++
			case errors.Is(err, ErrAlreadyExists):
			default:
				return report, err
			}
		}
	}

	for _, d := range data.Devices {
		if err := s.UpsertDevice(ctx, d); err != nil {
			return report, err
		}
		report.Devices++
	}
	for _, ip := range data.IPAddresses {
		if err := s.AddIPAddress(ctx, ip); err != nil {
			return report, fmt.Errorf("ip %s: %w", ip.Address, err)
		}
	}
	for _, p := range data.Protocols {
		if err := s.AddProtocol(ctx, p); err != nil {
			return report, fmt.Errorf("protocol %s: %w", p.Name, err)
		}
	}
	for _, p := range data.Ports {
		err := s.CreatePort(ctx, p)
		switch {
		case err == nil:
			report.Ports++
		case errors.Is(err, ErrAlreadyExists):
		default:
			return report, err
		}
	}

	if err := s.SetSetting(ctx, settingSeededAt, time.Now().Format(time.RFC3339)); err != nil {
		return report, err
	}
	return report, nil
}
