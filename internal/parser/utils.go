package parser

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var spaceRun = regexp.MustCompile(`\s+`)

// NormalizeCell приводит значение ячейки к NFC и обрезает пробелы по краям
func NormalizeCell(v string) string {
	return strings.TrimSpace(norm.NFC.String(v))
}

// NormalizeColumnName ключ для сравнения заголовков:
// без переводов строк, с одним пробелом между словами, в нижнем регистре
func NormalizeColumnName(name string) string {
	name = NormalizeCell(name)
	name = spaceRun.ReplaceAllString(name, " ")
	return strings.ToLower(strings.ReplaceAll(name, "ё", "е"))
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if NormalizeCell(c) != "" {
			return false
		}
	}
	return true
}

func cellAt(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}
