package exporter

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"loader/internal/model"
	"loader/internal/parser"
)

func TestExport_ReimportsThroughParser(t *testing.T) {
	t.Parallel()

	headers := []string{model.FieldSettlement, model.FieldStreet, model.FieldHouse, "Своя колонка", model.FieldDeviceModel}
	rows := []model.Row{
		{model.FieldSettlement: "Рыбное", model.FieldStreet: "Ленина", model.FieldHouse: "1", "Своя колонка": "x", model.FieldDeviceModel: "CE307"},
		{model.FieldSettlement: "Пустошь", model.FieldStreet: "Мира"},
	}

	var events []ProgressEvent
	data, err := ExportBytes(rows, Options{Headers: headers, Progress: func(e ProgressEvent) { events = append(events, e) }})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(events) == 0 || events[len(events)-1].Percent != 100 {
		t.Fatalf("progress events: %+v", events)
	}

	sheet, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reimport: %v", err)
	}
	if len(sheet.Headers) != len(headers) {
		t.Fatalf("headers: %v", sheet.Headers)
	}
	for i, h := range headers {
		if sheet.Headers[i] != h {
			t.Fatalf("header order changed at %d: %q", i, sheet.Headers[i])
		}
	}
	if len(sheet.Rows) != 2 || sheet.Rows[0]["Своя колонка"] != "x" || sheet.Rows[1][model.FieldStreet] != "Мира" {
		t.Fatalf("rows: %v", sheet.Rows)
	}
	if sheet.Groups[0] != model.GroupOf(model.FieldSettlement) {
		t.Fatalf("group row: %v", sheet.Groups)
	}
}

func TestExport_MergesGroups(t *testing.T) {
	t.Parallel()

	headers := []string{model.FieldSettlement, model.FieldStreet, model.FieldHouse, model.FieldDeviceModel}
	f, err := Export(nil, Options{Headers: headers})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer f.Close()

	merges, err := f.GetMergeCells(SheetName)
	if err != nil {
		t.Fatalf("merge cells: %v", err)
	}
	if len(merges) != 1 || merges[0].GetStartAxis() != "A1" || merges[0].GetEndAxis() != "C1" {
		t.Fatalf("merges: %+v", merges)
	}
}

func TestExport_DefaultsToCanonicalHeaders(t *testing.T) {
	t.Parallel()

	f, err := Export([]model.Row{{model.FieldMPES: "Центральный"}}, Options{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer f.Close()

	v, err := f.GetCellValue(SheetName, "A2")
	if err != nil || v != model.CanonicalFields()[0] {
		t.Fatalf("A2 = %q, %v", v, err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(model.CanonicalFields()))
	if v, _ := f.GetCellValue(SheetName, lastCol+"2"); v != model.CanonicalFields()[len(model.CanonicalFields())-1] {
		t.Fatalf("last header = %q", v)
	}
}
