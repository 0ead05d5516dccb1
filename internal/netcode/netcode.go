// Package netcode работает с сетевым кодом точки учета: 13 символов в пяти
// сегментах фиксированной ширины [3 цифры][3 цифры][2 буквы/цифры][2 буквы/цифры][3 цифры].
package netcode

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Length полная длина кода без дефисов
const Length = 13

// dashPositions позиции дефисов относительно строки без дефисов
var dashPositions = []int{3, 6, 8, 10}

// CharClass класс допустимых символов
type CharClass int

const (
	ClassDigit CharClass = iota
	ClassAlnumUpper
)

// Segment сегмент кода
type Segment struct {
	Name   string
	Offset int
	Width  int
	Class  CharClass
}

// Segments сегменты в порядке следования
var Segments = []Segment{
	{Name: "Код ПС", Offset: 0, Width: 3, Class: ClassDigit},
	{Name: "Фидер 10(6)(3) кВ", Offset: 3, Width: 3, Class: ClassDigit},
	{Name: "ТП", Offset: 6, Width: 2, Class: ClassAlnumUpper},
	{Name: "Фидер 0,4 кВ", Offset: 8, Width: 2, Class: ClassAlnumUpper},
	{Name: "Код потребителя", Offset: 10, Width: 3, Class: ClassDigit},
}

// Сообщения об ошибках
const (
	MsgMaxLength         = "Максимальная длина 13 символов"
	MsgDigitsOnly        = "Допускаются только цифры"
	MsgAlnumUpperOnly    = "Допускаются только заглавные буквы и цифры"
	MsgUnknownSubstation = "Код ПС не найден в справочнике"
)

// CharResult результат проверки одного символа
type CharResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// Result результат проверки кода целиком.
// ShouldCorrect/CorrectedValue: предложение исправления (только для неизвестного кода ПС).
type Result struct {
	Valid          bool   `json:"valid"`
	Message        string `json:"message,omitempty"`
	ShouldCorrect  bool   `json:"shouldCorrect,omitempty"`
	CorrectedValue string `json:"correctedValue,omitempty"`
}

// Dedash убирает дефисы
func Dedash(raw string) string {
	return strings.ReplaceAll(raw, "-", "")
}

// Format расставляет дефисы на границах сегментов. Проверок не выполняет.
func Format(raw string) string {
	runes := []rune(Dedash(raw))
	var b strings.Builder
	next := 0
	for i, r := range runes {
		if next < len(dashPositions) && i == dashPositions[next] {
			b.WriteByte('-')
			next++
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Join склеивает значения сегментов в код без дефисов
func Join(parts []string) string {
	return strings.Join(parts, "")
}

func classAt(position int) (CharClass, bool) {
	for _, s := range Segments {
		if position >= s.Offset && position < s.Offset+s.Width {
			return s.Class, true
		}
	}
	return 0, false
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isAlnumUpper(r rune) bool {
	return isDigit(r) || (r >= 'A' && r <= 'Z') || (r >= 'А' && r <= 'Я') || r == 'Ё'
}

// ValidateCharacterAtPosition проверяет символ по таблице позиций
func ValidateCharacterAtPosition(ch rune, position int) CharResult {
	if position >= Length || position < 0 {
		return CharResult{Valid: false, Message: MsgMaxLength}
	}
	class, _ := classAt(position)
	switch class {
	case ClassDigit:
		if !isDigit(ch) {
			return CharResult{Valid: false, Message: MsgDigitsOnly}
		}
	case ClassAlnumUpper:
		if !isAlnumUpper(ch) {
			return CharResult{Valid: false, Message: MsgAlnumUpperOnly}
		}
	}
	return CharResult{Valid: true}
}

// Codec проверяет коды с учетом закрытого списка кодов ПС
type Codec struct {
	substations map[string]struct{}
}

// NewCodec создает кодек. Пустой список кодов ПС отключает сверку со справочником.
func NewCodec(substationCodes []string) *Codec {
	set := make(map[string]struct{}, len(substationCodes))
	for _, c := range substationCodes {
		c = strings.TrimSpace(c)
		if c != "" {
			set[c] = struct{}{}
		}
	}
	return &Codec{substations: set}
}

// KnownSubstation есть ли код ПС в справочнике. Без справочника любой код считается известным.
func (c *Codec) KnownSubstation(code string) bool {
	if c == nil || len(c.substations) == 0 {
		return true
	}
	_, ok := c.substations[code]
	return ok
}

// Validate проверяет код посимвольно и сверяет первые три цифры со справочником ПС.
// При неизвестном коде ПС предлагает обрезать ввод до двух символов.
func (c *Codec) Validate(raw string) Result {
	runes := []rune(Dedash(raw))
	if len(runes) > Length {
		return Result{Valid: false, Message: MsgMaxLength}
	}

	for i, r := range runes {
		if res := ValidateCharacterAtPosition(r, i); !res.Valid {
			return Result{Valid: false, Message: fmt.Sprintf("Позиция %d: %s", i+1, res.Message)}
		}
	}

	if len(runes) >= 3 && !c.KnownSubstation(string(runes[:3])) {
		return Result{
			Valid:          false,
			Message:        MsgUnknownSubstation,
			ShouldCorrect:  true,
			CorrectedValue: string(runes[:2]),
		}
	}

	return Result{Valid: true}
}

// ValidateSegment проверяет значение одного сегмента; возвращает "" если ошибок нет
func ValidateSegment(index int, value string) string {
	if index < 0 || index >= len(Segments) {
		return MsgMaxLength
	}
	seg := Segments[index]
	n := utf8.RuneCountInString(value)
	if n > seg.Width {
		return fmt.Sprintf("Максимальная длина %d символов", seg.Width)
	}
	i := 0
	for _, r := range value {
		if res := ValidateCharacterAtPosition(r, seg.Offset+i); !res.Valid {
			return res.Message
		}
		i++
	}
	if n < seg.Width {
		return fmt.Sprintf("Должно быть %d символов", seg.Width)
	}
	return ""
}
