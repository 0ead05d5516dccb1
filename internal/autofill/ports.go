package autofill

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"loader/internal/model"
)

// PortAllocator внешний распределитель портов
type PortAllocator interface {
	NextPort(ctx context.Context) (int, error)
	CreatePort(ctx context.Context, port model.Port) error
}

// PortReport итог назначения портов
type PortReport struct {
	Assigned map[int]int `json:"assigned"` // индекс строки -> порт
	Failed   []int       `json:"failed"`   // строки, оставшиеся без порта
}

// AssignPorts назначает порты строкам с пустым портом строго по одной:
// получить следующий свободный порт, зарезервировать его, затем перейти к следующей строке.
// Ошибка на строке оставляет порт пустым и не прерывает обработку остальных.
func AssignPorts(ctx context.Context, rows []model.Row, allocator PortAllocator) ([]model.Row, PortReport) {
	report := PortReport{Assigned: make(map[int]int)}
	out := make([]model.Row, len(rows))
	copy(out, rows)

	for i, row := range rows {
		if !isEmpty(row, model.FieldPort) {
			continue
		}
		if err := ctx.Err(); err != nil {
			report.Failed = append(report.Failed, i)
			continue
		}

		port, err := allocator.NextPort(ctx)
		if err != nil {
			log.Printf("строка %d: получение порта: %v", i+1, err)
			report.Failed = append(report.Failed, i)
			continue
		}
		if err := allocator.CreatePort(ctx, model.Port{PortNumber: port, Description: portDescription(row)}); err != nil {
			log.Printf("строка %d: резервирование порта %d: %v", i+1, port, err)
			report.Failed = append(report.Failed, i)
			continue
		}

		out[i] = row.With(model.FieldPort, strconv.Itoa(port))
		report.Assigned[i] = port
	}

	return out, report
}

func portDescription(row model.Row) string {
	parts := make([]string, 0, 3)
	for _, f := range []string{model.FieldSettlement, model.FieldStreet, model.FieldHouse} {
		if v := strings.TrimSpace(row[f]); v != "" {
			parts = append(parts, v)
		}
	}
	desc := strings.Join(parts, ", ")
	if serial := strings.TrimSpace(row[model.FieldSerialNumber]); serial != "" {
		desc = fmt.Sprintf("%s (№ %s)", desc, serial)
	}
	return strings.TrimSpace(desc)
}
