package parser

import "loader/internal/model"

const (
	groupHeaderRow = 0 // строка с группами колонок
	headerRow      = 1 // строка с названиями колонок
	firstDataRow   = 2
)

// Sheet результат разбора листа
type Sheet struct {
	SheetName string      `json:"sheetName"`
	Headers   []string    `json:"headers"` // заголовки в порядке файла, как есть
	Groups    []string    `json:"groups"`  // строка групп (может быть пустой)
	Rows      []model.Row `json:"-"`
	// HeaderFallback заголовки взяты из первой строки, потому что вторая пустая
	HeaderFallback bool `json:"headerFallback"`
	SkippedBlank   int  `json:"skippedBlank"` // отброшено пустых строк
}

// HeaderReport результат распознавания заголовков
type HeaderReport struct {
	Known   []string `json:"known"`
	Unknown []string `json:"unknown"` // проходят без проверки
	// NearMatch отличаются от канонического имени регистром, пробелами или ё/е.
	// Строки хранятся под исходным заголовком, поэтому такие колонки тоже не проверяются.
	NearMatch  []NearMatch `json:"nearMatch,omitempty"`
	Missing    []string    `json:"missing"`    // канонические колонки, которых нет в файле
	Confidence float64     `json:"confidence"` // доля известных заголовков 0-1
}

// NearMatch заголовок файла и каноническое имя, на которое он похож
type NearMatch struct {
	Header    string `json:"header"`
	Canonical string `json:"canonical"`
}
