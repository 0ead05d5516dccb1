package importer

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"loader/internal/exporter"
	"loader/internal/mailer"
	"loader/internal/model"
)

// ExportResult готовая выгрузка
type ExportResult struct {
	FileName string
	Content  []byte
	Rows     int
}

// Export проверяет все строки и, если ошибок нет, строит xlsx.
// При наличии ошибок возвращает ErrExportBlocked.
func (s *Session) Export(ctx context.Context) (ExportResult, error) {
	res, err := s.buildExport(ctx)
	if err != nil {
		return ExportResult{}, err
	}
	s.finish(ctx, "export", model.ImportLog{Action: model.ActionExport, FileName: res.FileName, Rows: res.Rows})
	return res, nil
}

// Send проверяет строки и отправляет выгрузку на почту.
// При наличии ошибок доставка не вызывается.
func (s *Session) Send(ctx context.Context, to string) error {
	if s.deps.Delivery == nil {
		return ErrDeliveryUnavailable
	}
	addr, err := mailer.ValidateAddress(to)
	if err != nil {
		return err
	}

	res, err := s.buildExport(ctx)
	if err != nil {
		return err
	}

	msg := mailer.Message{To: addr, FileName: res.FileName, Content: res.Content, Rows: res.Rows}
	if err := s.deps.Delivery.Deliver(ctx, msg); err != nil {
		s.mu.Lock()
		s.recordEvent("error", fmt.Sprintf("Не удалось отправить на %s", addr), err.Error())
		s.mu.Unlock()
		return err
	}
	s.finish(ctx, "send", model.ImportLog{Action: model.ActionSend, FileName: res.FileName, Rows: res.Rows, Recipient: addr})
	return nil
}

func (s *Session) buildExport(ctx context.Context) (ExportResult, error) {
	errs, err := s.Validate(ctx)
	if err != nil {
		return ExportResult{}, err
	}
	if n := errs.Count(); n > 0 {
		return ExportResult{}, fmt.Errorf("%w: %d ошибок в %d строках", ErrExportBlocked, n, len(errs))
	}

	s.mu.RLock()
	if s.state != StateClean {
		s.mu.RUnlock()
		return ExportResult{}, ErrExportBlocked
	}
	rows := s.rows
	headers := exportHeaders(s.headers, rows)
	name := exportFileName(s.fileName)
	s.mu.RUnlock()

	content, err := exporter.ExportBytes(rows, exporter.Options{Headers: headers, Progress: s.exportProgress()})
	if err != nil {
		return ExportResult{}, fmt.Errorf("build workbook: %w", err)
	}
	return ExportResult{FileName: name, Content: content, Rows: len(rows)}, nil
}

// exportProgress пишет в журнал сессии ход выгрузки крупными шагами
func (s *Session) exportProgress() func(exporter.ProgressEvent) {
	last := -1
	return func(e exporter.ProgressEvent) {
		if last >= 0 && e.Percent-last < 25 && e.Percent < 100 {
			return
		}
		last = e.Percent
		s.mu.Lock()
		s.recordEvent("export_progress", e.Stage, e.Percent)
		s.mu.Unlock()
	}
}

// exportHeaders колонки файла в исходном порядке, затем заполненные
// автоматически канонические колонки, которых в файле не было
func exportHeaders(headers []string, rows []model.Row) []string {
	if len(headers) == 0 {
		return model.CanonicalFields()
	}
	out := append([]string(nil), headers...)
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	for _, f := range model.CanonicalFields() {
		if present[f] {
			continue
		}
		for _, r := range rows {
			if strings.TrimSpace(r[f]) != "" {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

func exportFileName(source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." {
		base = "points"
	}
	return fmt.Sprintf("%s_%s.xlsx", base, time.Now().Format("20060102_150405"))
}

func (s *Session) finish(ctx context.Context, typ string, entry model.ImportLog) {
	s.mu.Lock()
	s.recordEvent(typ, fmt.Sprintf("%s: %d строк", entry.FileName, entry.Rows), nil)
	s.mu.Unlock()
	s.journal(ctx, entry)
}

func (s *Session) journal(ctx context.Context, entry model.ImportLog) {
	if s.deps.Journal == nil {
		return
	}
	entry.SessionID = s.ID
	entry.CreatedAt = time.Now()
	if err := s.deps.Journal.RecordImport(ctx, entry); err != nil {
		log.Printf("сессия %s: журнал: %v", s.ID, err)
	}
}
