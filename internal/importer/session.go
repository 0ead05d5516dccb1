// Package importer ведет сессию загрузки таблицы: разбор, автозаполнение,
// проверка, исправление ошибок и выгрузка/отправка только чистых данных.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"loader/internal/autofill"
	"loader/internal/mailer"
	"loader/internal/model"
	"loader/internal/netcode"
	"loader/internal/parser"
	"loader/internal/reference"
	"loader/internal/validation"
)

// State состояние сессии
type State string

const (
	StateIdle       State = "idle"
	StateParsing    State = "parsing"
	StateLoaded     State = "loaded"
	StateValidating State = "validating"
	StateHasErrors  State = "has_errors"
	StateClean      State = "clean"
)

var (
	ErrSessionNotFound     = errors.New("сессия не найдена")
	ErrExportBlocked       = errors.New("в данных есть ошибки, выгрузка запрещена")
	ErrParse               = errors.New("не удалось прочитать файл")
	ErrNoRows              = errors.New("нет загруженных строк")
	ErrRowOutOfRange       = errors.New("строка вне диапазона")
	ErrStale               = errors.New("данные сессии изменились, повторите действие")
	ErrPortsUnavailable    = errors.New("распределитель портов не подключен")
	ErrDeliveryUnavailable = errors.New("отправка на почту не подключена")
)

// maxRevalidate сколько раз проверка перезапускается, если строки правились во время проверки
const maxRevalidate = 3

// Journal журнал загрузок и выгрузок
type Journal interface {
	RecordImport(ctx context.Context, entry model.ImportLog) error
}

// Deps зависимости сессии
type Deps struct {
	Cache    *reference.Cache
	Codec    *netcode.Codec
	Ports    autofill.PortAllocator
	Delivery mailer.Delivery
	Journal  Journal
}

// Session одна загрузка файла
type Session struct {
	ID        string
	CreatedAt time.Time

	deps Deps

	mu         sync.RWMutex
	state      State
	generation uint64 // растет при каждом новом файле
	revision   uint64 // растет при каждом изменении строк
	refsReady  bool
	fileName   string
	headers    []string
	report     parser.HeaderReport
	rows       []model.Row
	errors     model.ErrorMap
	touched    map[int]map[string]struct{}
	success    bool
	parseErr   string
	updatedAt  time.Time
	events     []ProgressEvent
}

// NewSession создает пустую сессию
func NewSession(id string, deps Deps) *Session {
	if deps.Cache == nil {
		deps.Cache = reference.NewCache(nil)
	}
	now := time.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		deps:      deps,
		state:     StateIdle,
		errors:    model.ErrorMap{},
		touched:   map[int]map[string]struct{}{},
		updatedAt: now,
		refsReady: !deps.Cache.HasSource(),
	}
}

// Cache справочники сессии
func (s *Session) Cache() *reference.Cache {
	return s.deps.Cache
}

// Load разбирает новый файл. Предыдущее состояние сессии отбрасывается;
// результаты, относящиеся к старому файлу, после этого игнорируются.
func (s *Session) Load(ctx context.Context, fileName string, r io.Reader) error {
	gen := s.beginParse(fileName)

	sheet, err := parser.Parse(r)
	if err != nil {
		log.Printf("сессия %s: разбор %s: %v", s.ID, fileName, err)
		s.mu.Lock()
		if gen == s.generation {
			s.state = StateIdle
			s.parseErr = err.Error()
			s.recordEvent("error", fmt.Sprintf("Не удалось прочитать файл: %v", err), nil)
		}
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrParse, err)
	}

	if !s.commitParsed(gen, fileName, sheet) {
		return ErrStale
	}

	s.ensureReferences(ctx)
	s.applyAutofill(gen)

	s.mu.RLock()
	rows, errCount := len(s.rows), s.errors.Count()
	s.mu.RUnlock()
	s.journal(ctx, model.ImportLog{Action: model.ActionImport, FileName: fileName, Rows: rows, Errors: errCount})
	return nil
}

func (s *Session) beginParse(fileName string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.revision++
	s.state = StateParsing
	s.fileName = fileName
	s.headers = nil
	s.report = parser.HeaderReport{}
	s.rows = nil
	s.errors = model.ErrorMap{}
	s.touched = map[int]map[string]struct{}{}
	s.success = false
	s.parseErr = ""
	s.updatedAt = time.Now()
	s.recordEvent("start", fmt.Sprintf("Чтение файла %s", fileName), nil)
	return s.generation
}

func (s *Session) commitParsed(gen uint64, fileName string, sheet *parser.Sheet) bool {
	report := parser.RecognizeHeaders(sheet.Headers)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.headers = sheet.Headers
	s.report = report
	s.rows = sheet.Rows
	s.state = StateLoaded
	s.revision++
	s.updatedAt = time.Now()
	s.recordEvent("parsed", fmt.Sprintf("Файл %s: %d строк", fileName, len(sheet.Rows)), map[string]interface{}{
		"rows":            len(sheet.Rows),
		"skipped":         sheet.SkippedBlank,
		"unknown_headers": report.Unknown,
		"near_headers":    report.NearMatch,
		"header_fallback": sheet.HeaderFallback,
	})
	return true
}

// ensureReferences загружает справочники, пока они не загрузятся без ошибок.
// Частичная ошибка не блокирует работу: незагруженные справочники не проверяются.
func (s *Session) ensureReferences(ctx context.Context) {
	s.mu.RLock()
	ready := s.refsReady
	s.mu.RUnlock()
	if ready {
		return
	}

	err := s.deps.Cache.LoadAll(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.recordEvent("warning", "Часть справочников не загрузилась", err.Error())
		return
	}
	s.refsReady = true
}

// ReloadReferences перечитывает справочники и повторно запускает автозаполнение
func (s *Session) ReloadReferences(ctx context.Context) error {
	if !s.deps.Cache.HasSource() {
		return nil
	}
	err := s.deps.Cache.LoadAll(ctx)
	s.mu.Lock()
	gen := s.generation
	if err == nil {
		s.refsReady = true
	}
	s.mu.Unlock()
	s.applyAutofill(gen)
	return err
}

func (s *Session) autofillData() autofill.Data {
	return autofill.Data{
		Devices:     s.deps.Cache.Devices(),
		IPAddresses: s.deps.Cache.IPAddresses(),
		Protocols:   s.deps.Cache.Protocols(),
	}
}

func (s *Session) applyAutofill(gen uint64) {
	data := s.autofillData()

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || len(s.rows) == 0 {
		return
	}
	s.rows = autofill.All(s.rows, data)
	s.revision++
	s.updatedAt = time.Now()
	s.recordEvent("autofill", "Автозаполнение выполнено", nil)
}

func (s *Session) settlementsOf(rows []model.Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if v := strings.TrimSpace(r[model.FieldSettlement]); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Validate проверяет все строки. Перед проверкой догружаются улицы
// всех населенных пунктов из строк.
func (s *Session) Validate(ctx context.Context) (model.ErrorMap, error) {
	for attempt := 0; ; attempt++ {
		s.mu.Lock()
		if s.state == StateIdle || s.state == StateParsing {
			s.mu.Unlock()
			return nil, ErrNoRows
		}
		gen, rev := s.generation, s.revision
		rows := s.rows
		s.state = StateValidating
		s.mu.Unlock()

		if err := s.deps.Cache.EnsureStreets(ctx, s.settlementsOf(rows)); err != nil {
			log.Printf("сессия %s: улицы: %v", s.ID, err)
		}
		schema := validation.Build(s.deps.Cache, s.deps.Codec)
		result := schema.ValidateAll(rows)

		s.mu.Lock()
		if gen != s.generation {
			s.mu.Unlock()
			return nil, ErrStale
		}
		if rev != s.revision {
			if attempt < maxRevalidate {
				s.mu.Unlock()
				continue
			}
			s.state = StateLoaded
			s.mu.Unlock()
			return nil, ErrStale
		}

		s.errors = result
		s.success = len(result) == 0
		if s.success {
			s.state = StateClean
		} else {
			s.state = StateHasErrors
		}
		s.updatedAt = time.Now()
		s.recordEvent("validated", fmt.Sprintf("Проверка: %d ошибок в %d строках", result.Count(), len(result)), nil)
		out := result.Clone()
		s.mu.Unlock()
		return out, nil
	}
}

// EditResult итог правки ячейки
type EditResult struct {
	Row    RowView                        `json:"row"`
	Street *autofill.StreetReconciliation `json:"street,omitempty"`
}

// EditCell меняет значение ячейки. Ошибка этой ячейки снимается сразу,
// признак успешной проверки сбрасывается. Смена населенного пункта
// пересопоставляет улицу с его списком.
func (s *Session) EditCell(ctx context.Context, index int, field, value string) (EditResult, error) {
	s.mu.RLock()
	state, gen, n := s.state, s.generation, len(s.rows)
	s.mu.RUnlock()

	if state == StateIdle || state == StateParsing {
		return EditResult{}, ErrNoRows
	}
	if index < 0 || index >= n {
		return EditResult{}, fmt.Errorf("%w: %d", ErrRowOutOfRange, index+1)
	}

	var (
		streets       []string
		streetsLoaded bool
	)
	if field == model.FieldSettlement && strings.TrimSpace(value) != "" {
		if err := s.deps.Cache.EnsureStreets(ctx, []string{value}); err != nil {
			log.Printf("сессия %s: улицы %q: %v", s.ID, value, err)
		}
		streets, streetsLoaded = s.deps.Cache.Streets(value)
	}
	data := s.autofillData()

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return EditResult{}, ErrStale
	}

	row := s.rows[index].With(field, value)
	s.errors.Clear(index, field)

	var res EditResult
	if field == model.FieldSettlement && streetsLoaded {
		var rec autofill.StreetReconciliation
		row, rec = autofill.ReconcileStreet(row, value, streets)
		if rec.ClearError {
			s.errors.Clear(index, model.FieldStreet)
		}
		res.Street = &rec
	}
	row = autofillAfterEdit(field, row, data)

	next := make([]model.Row, len(s.rows))
	copy(next, s.rows)
	next[index] = row
	s.rows = next

	if s.touched[index] == nil {
		s.touched[index] = map[string]struct{}{}
	}
	s.touched[index][field] = struct{}{}

	s.success = false
	s.state = StateLoaded
	s.revision++
	s.updatedAt = time.Now()

	res.Row = s.rowViewLocked(index)
	return res, nil
}

// autofillAfterEdit пересчитывает колонки, зависящие от измененной
func autofillAfterEdit(field string, row model.Row, data autofill.Data) model.Row {
	rows := []model.Row{row}
	switch field {
	case model.FieldDeviceModel, model.FieldSerialNumber:
		rows = autofill.FromDevice(rows, data.Devices)
		rows = autofill.NetworkAddress(rows)
	case model.FieldCTCoefficient, model.FieldVTCoefficient:
		rows = autofill.Coefficients(rows)
	}
	return rows[0]
}

// AssignPorts назначает порты строкам без порта
func (s *Session) AssignPorts(ctx context.Context) (autofill.PortReport, error) {
	if s.deps.Ports == nil {
		return autofill.PortReport{}, ErrPortsUnavailable
	}

	s.mu.RLock()
	gen, rows := s.generation, s.rows
	s.mu.RUnlock()
	if len(rows) == 0 {
		return autofill.PortReport{}, ErrNoRows
	}

	_, report := autofill.AssignPorts(ctx, rows, s.deps.Ports)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		log.Printf("сессия %s: порты назначены для устаревшего файла: %v", s.ID, report.Assigned)
		return report, ErrStale
	}
	next := make([]model.Row, len(s.rows))
	copy(next, s.rows)
	for idx, port := range report.Assigned {
		if idx >= len(next) || strings.TrimSpace(next[idx][model.FieldPort]) != "" {
			continue
		}
		next[idx] = next[idx].With(model.FieldPort, fmt.Sprint(port))
		s.errors.Clear(idx, model.FieldPort)
	}
	s.rows = next
	s.success = false
	if s.state != StateIdle {
		s.state = StateLoaded
	}
	s.revision++
	s.updatedAt = time.Now()
	s.recordEvent("ports", fmt.Sprintf("Назначено портов: %d, ошибок: %d", len(report.Assigned), len(report.Failed)), report)
	return report, nil
}
