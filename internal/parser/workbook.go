// Package parser читает таблицу точек учета из xlsx.
//
// Ожидаемый формат первого листа: строка 0 с группами колонок, строка 1 с названиями
// колонок, данные со строки 2. Если строка 1 пустая или отсутствует, заголовками
// служит строка 0.
package parser

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"loader/internal/model"
)

var (
	// ErrNoSheets в книге нет листов
	ErrNoSheets = errors.New("в файле нет листов")
	// ErrNoHeaders не найдена строка заголовков
	ErrNoHeaders = errors.New("не найдена строка заголовков")
)

// ParseFile разбирает xlsx с диска
func ParseFile(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse разбирает первый лист книги
func Parse(r io.Reader) (*Sheet, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}
	name := sheets[0]

	rows, err := file.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
	}
	return parseRows(name, rows)
}

func parseRows(sheetName string, rows [][]string) (*Sheet, error) {
	sheet := &Sheet{SheetName: sheetName}

	var headerCells []string
	switch {
	case len(rows) > headerRow && !isBlankRow(rows[headerRow]):
		headerCells = rows[headerRow]
		sheet.Groups = normalizeAll(rows[groupHeaderRow])
	case len(rows) > groupHeaderRow && !isBlankRow(rows[groupHeaderRow]):
		headerCells = rows[groupHeaderRow]
		sheet.HeaderFallback = true
	default:
		return nil, ErrNoHeaders
	}

	// индекс колонки -> заголовок; пустые заголовки пропускаются
	columns := make([]int, 0, len(headerCells))
	seen := make(map[string]bool)
	for i, cell := range headerCells {
		h := NormalizeCell(cell)
		if h == "" {
			continue
		}
		columns = append(columns, i)
		if !seen[h] {
			seen[h] = true
			sheet.Headers = append(sheet.Headers, h)
		}
	}

	for i := firstDataRow; i < len(rows); i++ {
		cells := rows[i]
		if isBlankRow(cells) {
			sheet.SkippedBlank++
			continue
		}
		row := make(model.Row, len(sheet.Headers))
		for _, col := range columns {
			row[NormalizeCell(headerCells[col])] = NormalizeCell(cellAt(cells, col))
		}
		if row.IsBlank() {
			sheet.SkippedBlank++
			continue
		}
		sheet.Rows = append(sheet.Rows, row)
	}

	return sheet, nil
}

func normalizeAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = NormalizeCell(c)
	}
	return out
}
