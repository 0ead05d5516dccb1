// Package match подбирает похожие значения из справочника для свободного ввода
// (название улицы, населенного пункта и т.п.).
package match

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// MaxResults максимум вариантов в выдаче
const MaxResults = 15

// RelevantScore минимальный балл, при котором вариант считается релевантным
const RelevantScore = 40

const (
	scoreExact          = 1000
	scoreExactNorm      = 900
	scorePrefix         = 100
	scorePrefixNorm     = 90
	scoreContains       = 50
	scoreContainsNorm   = 45
	scoreWordPrefix     = 10
	minWordPrefixLen    = 3
	minFuzzyQueryLen    = 5
	minFuzzySimilarity  = 0.70
	maxFuzzyScore       = 40
	maxGoodMatchLenDiff = 10
)

// streetPrefixes типовые префиксы адресных объектов, длинные раньше коротких
var streetPrefixes = []string{
	"улица", "ул.", "ул",
	"проспект", "просп.", "пр-т", "пр.",
	"переулок", "пер.", "пер",
	"площадь", "пл.", "пл",
	"бульвар", "бул.", "б-р",
}

var stripChars = strings.NewReplacer("-", "", " ", "", "—", "", ".", "")

// Normalize приводит строку к виду для сравнения:
// нижний регистр, без типового префикса, без дефисов, пробелов, тире и точек
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = stripPrefix(s)
	return stripChars.Replace(s)
}

func stripPrefix(s string) string {
	for _, p := range streetPrefixes {
		if !strings.HasPrefix(s, p) {
			continue
		}
		rest := s[len(p):]
		if strings.HasSuffix(p, ".") || rest == "" ||
			strings.HasPrefix(rest, " ") || strings.HasPrefix(rest, ".") || strings.HasPrefix(rest, "-") {
			return strings.TrimSpace(rest)
		}
	}
	return s
}

// Distance расстояние Левенштейна (вставка/удаление/замена стоят 1) по символам
func Distance(a, b string) int {
	return fuzzy.LevenshteinDistance(a, b)
}

// Similarity 1 - distance/max(len) по нормализованным строкам
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	maxLen := utf8.RuneCountInString(na)
	if n := utf8.RuneCountInString(nb); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 0
	}
	return 1 - float64(Distance(na, nb))/float64(maxLen)
}

// Score балл варианта относительно запроса
func Score(query, option string) int {
	rawQuery := strings.ToLower(strings.TrimSpace(query))
	normQuery := Normalize(query)
	rawOpt := strings.ToLower(strings.TrimSpace(option))
	normOpt := Normalize(option)

	score := tierScore(rawQuery, normQuery, rawOpt, normOpt)
	if score == 0 && utf8.RuneCountInString(rawQuery) >= minFuzzyQueryLen {
		if sim := Similarity(query, option); sim > minFuzzySimilarity {
			score = int(math.Round(sim * maxFuzzyScore))
			if score > maxFuzzyScore {
				score = maxFuzzyScore
			}
		}
	}
	return score
}

func tierScore(rawQuery, normQuery, rawOpt, normOpt string) int {
	switch {
	case rawOpt == rawQuery:
		return scoreExact
	case normQuery != "" && normOpt == normQuery:
		return scoreExactNorm
	case strings.HasPrefix(rawOpt, rawQuery):
		return scorePrefix
	case normQuery != "" && strings.HasPrefix(normOpt, normQuery):
		return scorePrefixNorm
	case strings.Contains(rawOpt, rawQuery):
		return scoreContains
	case normQuery != "" && strings.Contains(normOpt, normQuery):
		return scoreContainsNorm
	}

	score := 0
	queryWords := strings.Fields(rawQuery)
	for _, ow := range strings.Fields(rawOpt) {
		for _, qw := range queryWords {
			if utf8.RuneCountInString(qw) >= minWordPrefixLen && strings.HasPrefix(ow, qw) {
				score += scoreWordPrefix
			}
		}
	}
	return score
}

type scored struct {
	option string
	score  int
}

// SimilarOptions варианты из options, упорядоченные по релевантности (не более MaxResults).
// Пустой запрос возвращает options без изменений. Если релевантных вариантов нет,
// в выдачу попадают все варианты, чтобы пользователю было из чего выбрать.
func SimilarOptions(query string, options []string) []string {
	if strings.TrimSpace(query) == "" {
		return options
	}

	all := make([]scored, 0, len(options))
	relevant := make([]scored, 0, len(options))
	for _, opt := range options {
		s := scored{option: opt, score: Score(query, opt)}
		all = append(all, s)
		if s.score >= RelevantScore {
			relevant = append(relevant, s)
		}
	}

	picked := relevant
	if len(picked) == 0 {
		picked = all
	}

	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].score > picked[j].score
	})
	if len(picked) > MaxResults {
		picked = picked[:MaxResults]
	}

	out := make([]string, 0, len(picked))
	for _, s := range picked {
		out = append(out, s.option)
	}
	return out
}

// IsGoodMatch достаточно ли кандидат похож на запрос, чтобы подставить его автоматически
func IsGoodMatch(query, candidate string) bool {
	if query == candidate {
		return true
	}
	if strings.ToLower(query) == strings.ToLower(candidate) {
		return true
	}
	nq, nc := Normalize(query), Normalize(candidate)
	if nq == nc {
		return true
	}
	if nq == "" || nc == "" {
		return false
	}
	if strings.HasPrefix(nq, nc) || strings.HasPrefix(nc, nq) {
		diff := utf8.RuneCountInString(nq) - utf8.RuneCountInString(nc)
		if diff < 0 {
			diff = -diff
		}
		return diff <= maxGoodMatchLenDiff
	}
	return false
}

// NormalizedEqual совпадают ли строки после нормализации
func NormalizedEqual(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
