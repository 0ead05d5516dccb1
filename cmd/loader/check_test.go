package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"loader/internal/importer"
	"loader/internal/model"
)

func baseRow() map[string]string {
	return map[string]string{
		model.FieldMPES:             "Северные ЭС",
		model.FieldRKES:             "Приморский РКЭС",
		model.FieldMasterUnit:       "Участок 1",
		model.FieldSettlement:       "Рыбное",
		model.FieldStreet:           "Ленина",
		model.FieldSubscriberType:   "Физическое лицо",
		model.FieldAccountStatus:    "Открыт",
		model.FieldDeviceModel:      "CE307",
		model.FieldSerialNumber:     "0012345678",
		model.FieldSubstationNumber: "ПС-15",
		model.FieldSimShort:         "12345",
		model.FieldAccountNumber:    "1001",
	}
}

func writeWorkbook(t *testing.T, rows ...map[string]string) string {
	t.Helper()
	headers := make([]string, 0, len(rows[0]))
	for h := range rows[0] {
		headers = append(headers, h)
	}
	sort.Strings(headers)

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	hdr := make([]interface{}, len(headers))
	for i, h := range headers {
		hdr[i] = h
	}
	if err := f.SetSheetRow(sheet, "A2", &hdr); err != nil {
		t.Fatalf("header row: %v", err)
	}
	for i, r := range rows {
		vals := make([]interface{}, len(headers))
		for j, h := range headers {
			vals[j] = r[h]
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+3)
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			t.Fatalf("data row: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "points.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

func TestCheckFile_CleanWritesExport(t *testing.T) {
	t.Parallel()

	path := writeWorkbook(t, baseRow())
	exportPath := filepath.Join(t.TempDir(), "out.xlsx")
	var out bytes.Buffer
	if err := checkFile(context.Background(), &out, path, importer.Deps{}, exportPath); err != nil {
		t.Fatalf("check: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "ошибок нет") {
		t.Fatalf("output: %s", out.String())
	}
	if _, err := os.Stat(exportPath); err != nil {
		t.Fatalf("export not written: %v", err)
	}
}

func TestCheckFile_PrintsErrors(t *testing.T) {
	t.Parallel()

	bad := baseRow()
	bad[model.FieldAccountNumber] = "12a"
	path := writeWorkbook(t, baseRow(), bad)

	var out bytes.Buffer
	err := checkFile(context.Background(), &out, path, importer.Deps{}, "")
	if !errors.Is(err, errHasErrors) {
		t.Fatalf("expected errHasErrors, got %v", err)
	}
	want := "строка 2: " + model.FieldAccountNumber + ": "
	if !strings.Contains(out.String(), want) {
		t.Fatalf("output %q does not contain %q", out.String(), want)
	}
}

func TestCheckFile_Unreadable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.xlsx")
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := checkFile(context.Background(), &bytes.Buffer{}, path, importer.Deps{}, ""); !errors.Is(err, importer.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}
