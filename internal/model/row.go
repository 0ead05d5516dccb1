package model

import (
	"sort"
	"strings"
)

// Row одна точка учета: каноническое имя колонки -> строковое значение
type Row map[string]string

// Get значение колонки ("" если колонки нет)
func (r Row) Get(field string) string {
	return r[field]
}

// Trimmed значение колонки без пробелов по краям
func (r Row) Trimmed(field string) string {
	return strings.TrimSpace(r[field])
}

// Clone копия строки
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// With возвращает копию строки с новым значением колонки
func (r Row) With(field, value string) Row {
	out := r.Clone()
	out[field] = value
	return out
}

// IsBlank все ли значения пустые после обрезки пробелов
func (r Row) IsBlank() bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// CloneRows копия коллекции строк (каждая строка копируется)
func CloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// FieldErrors ошибки одной строки: колонка -> сообщение
type FieldErrors map[string]string

// ErrorMap индекс строки -> ошибки по колонкам.
// Индекс присутствует только при наличии хотя бы одной ошибки.
type ErrorMap map[int]FieldErrors

// Set записывает ошибку
func (m ErrorMap) Set(row int, field, message string) {
	fe, ok := m[row]
	if !ok {
		fe = make(FieldErrors)
		m[row] = fe
	}
	fe[field] = message
}

// Clear снимает ошибку колонки; пустая строка удаляется из карты
func (m ErrorMap) Clear(row int, field string) {
	fe, ok := m[row]
	if !ok {
		return
	}
	delete(fe, field)
	if len(fe) == 0 {
		delete(m, row)
	}
}

// Has есть ли ошибка у колонки
func (m ErrorMap) Has(row int, field string) bool {
	_, ok := m[row][field]
	return ok
}

// Count общее количество ошибок
func (m ErrorMap) Count() int {
	n := 0
	for _, fe := range m {
		n += len(fe)
	}
	return n
}

// Rows индексы строк с ошибками по возрастанию
func (m ErrorMap) Rows() []int {
	out := make([]int, 0, len(m))
	for idx := range m {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Clone глубокая копия
func (m ErrorMap) Clone() ErrorMap {
	out := make(ErrorMap, len(m))
	for idx, fe := range m {
		cp := make(FieldErrors, len(fe))
		for k, v := range fe {
			cp[k] = v
		}
		out[idx] = cp
	}
	return out
}
