package validation

import "strings"

const dateLength = 10 // ДД.ММ.ГГГГ

// FormatDateInput форматирует дату по ходу набора: после 2-й и 4-й цифры
// вставляется точка, результат не длиннее 10 символов.
// При удалении символов (next короче prev) значение возвращается как есть.
// Если в prev пользователь уже удалил точку, новый ввод тоже не форматируется.
// Любой символ кроме цифры и точки отклоняется: возвращается prev и false.
func FormatDateInput(prev, next string) (string, bool) {
	for _, r := range next {
		if (r < '0' || r > '9') && r != '.' {
			return prev, false
		}
	}
	if len(next) < len(prev) {
		return next, true
	}
	if len(next) > len(prev) && dotRemoved(prev) {
		if len(next) > dateLength {
			next = next[:dateLength]
		}
		return next, true
	}

	digits := strings.ReplaceAll(next, ".", "")
	var b strings.Builder
	for i, r := range digits {
		if i == 2 || i == 4 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if n := len(digits); n == 2 || n == 4 {
		b.WriteByte('.')
	}

	out := b.String()
	if len(out) > dateLength {
		out = out[:dateLength]
	}
	return out, true
}

// dotRemoved нет точки там, где ее поставил бы форматтер: после "ДД" и после "ДД.ММ"
func dotRemoved(prev string) bool {
	for _, pos := range []int{2, 5} {
		if len(prev) >= pos && (len(prev) == pos || prev[pos] != '.') {
			return true
		}
	}
	return false
}
