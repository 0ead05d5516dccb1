package autofill

import (
	"strings"

	"loader/internal/match"
	"loader/internal/model"
)

// StreetReconciliation итог пересопоставления улицы после смены населенного пункта
type StreetReconciliation struct {
	Replaced   bool   `json:"replaced"`
	Street     string `json:"street"`
	ClearError bool   `json:"clearError"`
}

// ReconcileStreet ставит новый населенный пункт и пытается подобрать улицу
// из его списка. Лучший кандидат подставляется только при хорошем совпадении;
// ошибка улицы снимается лишь при совпадении нормализованных форм.
func ReconcileStreet(row model.Row, settlement string, streets []string) (model.Row, StreetReconciliation) {
	out := row.With(model.FieldSettlement, settlement)
	street := out[model.FieldStreet]
	res := StreetReconciliation{Street: street}

	if strings.TrimSpace(street) == "" {
		return out, res
	}

	candidates := match.SimilarOptions(street, streets)
	if len(candidates) == 0 {
		return out, res
	}
	top := candidates[0]
	if !match.IsGoodMatch(street, top) {
		return out, res
	}

	out[model.FieldStreet] = top
	res.Replaced = top != street
	res.Street = top
	res.ClearError = match.NormalizedEqual(street, top)
	return out, res
}
