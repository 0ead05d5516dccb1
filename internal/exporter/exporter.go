// Package exporter выгружает проверенные строки в xlsx того же формата,
// что и загрузка: строка групп, строка заголовков, данные.
package exporter

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"loader/internal/model"
)

// SheetName имя листа выгрузки
const SheetName = "Точки учета"

// Options параметры выгрузки
type Options struct {
	// Headers порядок колонок; пустой означает канонический порядок
	Headers  []string
	Progress func(ProgressEvent)
}

// Export строит книгу. Колонки выводятся в порядке Headers, неизвестные
// заголовки выгружаются как есть с пустой группой.
func Export(rows []model.Row, opts Options) (*excelize.File, error) {
	headers := opts.Headers
	if len(headers) == 0 {
		headers = model.CanonicalFields()
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	reportProgress(opts.Progress, 5, "заголовки")
	if err := writeHeaders(f, headers); err != nil {
		_ = f.Close()
		return nil, err
	}

	total := len(rows)
	for i, row := range rows {
		values := make([]interface{}, len(headers))
		for j, h := range headers {
			values[j] = row[h]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+3)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
		if total > 0 && i%100 == 0 {
			reportProgress(opts.Progress, 10+85*i/total, "строки")
		}
	}

	reportProgress(opts.Progress, 100, "готово")
	return f, nil
}

// ExportBytes строит книгу и возвращает ее содержимое
func ExportBytes(rows []model.Row, opts Options) ([]byte, error) {
	f, err := Export(rows, opts)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeaders(f *excelize.File, headers []string) error {
	groups := make([]interface{}, len(headers))
	names := make([]interface{}, len(headers))
	for i, h := range headers {
		names[i] = h
		groups[i] = ""
	}

	// группа пишется в первую колонку серии и объединяется на всю серию
	start := 0
	for i := 1; i <= len(headers); i++ {
		if i < len(headers) && model.GroupOf(headers[i]) == model.GroupOf(headers[start]) {
			continue
		}
		title := model.GroupOf(headers[start])
		groups[start] = title
		if title != "" && i-start > 1 {
			from, _ := excelize.CoordinatesToCellName(start+1, 1)
			to, _ := excelize.CoordinatesToCellName(i, 1)
			if err := f.MergeCell(SheetName, from, to); err != nil {
				return fmt.Errorf("merge group %s: %w", title, err)
			}
		}
		start = i
	}

	if err := f.SetSheetRow(SheetName, "A1", &groups); err != nil {
		return fmt.Errorf("write group row: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A2", &names); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if len(headers) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(headers), 2)
		if err := f.SetCellStyle(SheetName, "A1", last, style); err != nil {
			return fmt.Errorf("apply header style: %w", err)
		}
		lastCol, _ := excelize.ColumnNumberToName(len(headers))
		if err := f.SetColWidth(SheetName, "A", lastCol, 22); err != nil {
			return fmt.Errorf("column width: %w", err)
		}
	}
	return nil
}
