package parser

import "loader/internal/model"

// RecognizeHeaders сопоставляет заголовки файла с каноническим набором колонок.
// Known только точные совпадения: строки хранятся под исходным заголовком.
// Совпадения с точностью до регистра, пробелов и ё/е попадают в NearMatch.
func RecognizeHeaders(headers []string) HeaderReport {
	canonical := make(map[string]string)
	for _, f := range model.CanonicalFields() {
		canonical[NormalizeColumnName(f)] = f
	}

	var report HeaderReport
	seen := make(map[string]bool)
	for _, h := range headers {
		if f, ok := canonical[NormalizeColumnName(h)]; ok {
			if f == h {
				report.Known = append(report.Known, h)
				seen[f] = true
			} else {
				report.NearMatch = append(report.NearMatch, NearMatch{Header: h, Canonical: f})
			}
			continue
		}
		report.Unknown = append(report.Unknown, h)
	}
	for _, f := range model.CanonicalFields() {
		if !seen[f] {
			report.Missing = append(report.Missing, f)
		}
	}
	if len(headers) > 0 {
		report.Confidence = float64(len(report.Known)) / float64(len(headers))
	}
	return report
}
