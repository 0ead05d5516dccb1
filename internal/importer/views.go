package importer

import (
	"sort"
	"time"

	"loader/internal/model"
	"loader/internal/parser"
)

// RowView строка с ошибками и правленными колонками
type RowView struct {
	Index   int               `json:"index"`
	Values  model.Row         `json:"values"`
	Errors  model.FieldErrors `json:"errors,omitempty"`
	Touched []string          `json:"touched,omitempty"`
}

// Snapshot состояние сессии для интерфейса
type Snapshot struct {
	ID         string              `json:"id"`
	State      State               `json:"state"`
	FileName   string              `json:"fileName"`
	Headers    []string            `json:"headers"`
	Report     parser.HeaderReport `json:"report"`
	RowCount   int                 `json:"rowCount"`
	ErrorRows  int                 `json:"errorRows"`
	ErrorCount int                 `json:"errorCount"`
	Success    bool                `json:"success"`
	ParseError string              `json:"parseError,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

// Snapshot текущее состояние
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		ID:         s.ID,
		State:      s.state,
		FileName:   s.fileName,
		Headers:    append([]string(nil), s.headers...),
		Report:     s.report,
		RowCount:   len(s.rows),
		ErrorRows:  len(s.errors),
		ErrorCount: s.errors.Count(),
		Success:    s.success,
		ParseError: s.parseErr,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.updatedAt,
	}
}

// State текущее состояние
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastActivity время последнего изменения
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Rows копия строк
func (s *Session) Rows() []model.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.CloneRows(s.rows)
}

// Errors копия карты ошибок
func (s *Session) Errors() model.ErrorMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errors.Clone()
}

// ErrorRows только строки с ошибками, по возрастанию индекса
func (s *Session) ErrorRows() []RowView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.errors.Rows()
	out := make([]RowView, 0, len(idx))
	for _, i := range idx {
		if i < len(s.rows) {
			out = append(out, s.rowViewLocked(i))
		}
	}
	return out
}

// RowViews страница строк; limit <= 0 без ограничения
func (s *Session) RowViews(offset, limit int) []RowView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if offset < 0 {
		offset = 0
	}
	end := len(s.rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	if offset >= end {
		return []RowView{}
	}
	out := make([]RowView, 0, end-offset)
	for i := offset; i < end; i++ {
		out = append(out, s.rowViewLocked(i))
	}
	return out
}

// Touched колонки строки, которые правил пользователь
func (s *Session) Touched(index int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.touchedLocked(index)
}

func (s *Session) touchedLocked(index int) []string {
	set := s.touched[index]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (s *Session) rowViewLocked(index int) RowView {
	v := RowView{
		Index:   index,
		Values:  s.rows[index].Clone(),
		Touched: s.touchedLocked(index),
	}
	if fe, ok := s.errors[index]; ok {
		v.Errors = make(model.FieldErrors, len(fe))
		for k, msg := range fe {
			v.Errors[k] = msg
		}
	}
	return v
}
