package validation

import (
	"strings"
	"unicode/utf8"

	"loader/internal/model"
	"loader/internal/netcode"
)

// Lists источник справочников для схемы.
// loaded=false означает, что справочник еще не загружен: проверка членства пропускается.
type Lists interface {
	Names(id model.ListID) (names []string, loaded bool)
	Streets(settlement string) (names []string, loaded bool)
}

type listSet struct {
	values map[string]struct{}
	loaded bool
}

func (s listSet) has(v string) bool {
	_, ok := s.values[v]
	return ok
}

// RowSchema проверка строки целиком
type RowSchema struct {
	registry *Registry
	codec    *netcode.Codec
	lists    Lists
	sets     map[model.ListID]listSet
}

var defaultRegistry = NewRegistry()

// DefaultRegistry общий реестр правил
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Build строит схему по текущему состоянию справочников
func Build(lists Lists, codec *netcode.Codec) *RowSchema {
	s := &RowSchema{
		registry: defaultRegistry,
		codec:    codec,
		lists:    lists,
		sets:     make(map[model.ListID]listSet),
	}
	for _, rule := range defaultRegistry.rules {
		if rule.Kind != KindEnumerated {
			continue
		}
		if _, done := s.sets[rule.List]; done {
			continue
		}
		s.sets[rule.List] = s.snapshot(rule.List)
	}
	if _, ok := s.sets[model.ListSettlements]; !ok {
		s.sets[model.ListSettlements] = s.snapshot(model.ListSettlements)
	}
	return s
}

func (s *RowSchema) snapshot(id model.ListID) listSet {
	set := listSet{values: map[string]struct{}{}}
	if s.lists == nil {
		return set
	}
	names, loaded := s.lists.Names(id)
	set.loaded = loaded
	for _, n := range names {
		set.values[n] = struct{}{}
	}
	return set
}

// Validate проверяет все колонки строки без остановки на первой ошибке.
// Возвращает nil если ошибок нет.
func (s *RowSchema) Validate(row model.Row) model.FieldErrors {
	errs := model.FieldErrors{}
	for _, field := range model.CanonicalFields() {
		if msg := s.CheckField(field, row); msg != "" {
			errs[field] = msg
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateAll проверяет коллекцию строк
func (s *RowSchema) ValidateAll(rows []model.Row) model.ErrorMap {
	out := make(model.ErrorMap)
	for i, row := range rows {
		if errs := s.Validate(row); errs != nil {
			out[i] = errs
		}
	}
	return out
}

// CheckField проверяет одну колонку в контексте строки; "" если ошибок нет
func (s *RowSchema) CheckField(field string, row model.Row) string {
	value := row.Get(field)
	if isOnlySpaces(value) {
		return MsgOnlySpaces
	}

	rule, ok := s.registry.Rule(field)
	if !ok {
		return ""
	}

	switch rule.Kind {
	case KindEnumerated:
		return s.checkEnumerated(rule, value)
	case KindComposite:
		return s.checkComposite(rule, row)
	default:
		if value == "" {
			return ""
		}
		return rule.Check(value)
	}
}

func (s *RowSchema) checkEnumerated(rule Rule, value string) string {
	if value == "" {
		return MsgRequired
	}
	set := s.sets[rule.List]
	if !set.loaded {
		return ""
	}
	if !set.has(value) {
		return MsgPickFromList
	}
	return ""
}

func (s *RowSchema) checkComposite(rule Rule, row model.Row) string {
	switch rule.Category {
	case CatStreet:
		return s.checkStreet(row)
	case CatSimCardShort, CatSimCardFull:
		return checkSim(rule, row)
	case CatCommunicatorNumber:
		value := row.Get(rule.Field)
		if strings.TrimSpace(value) == "" {
			if IsRiM(row.Get(model.FieldDeviceModel)) {
				return MsgCommunicatorForRiM
			}
			return ""
		}
		return rule.Check(value)
	case CatNetworkSegment:
		return s.checkSegment(rule.Field, row)
	}
	return ""
}

func (s *RowSchema) checkStreet(row model.Row) string {
	street := row.Get(model.FieldStreet)
	if street == "" {
		return MsgRequired
	}

	settlement := row.Get(model.FieldSettlement)
	settlements := s.sets[model.ListSettlements]
	if strings.TrimSpace(settlement) == "" || (settlements.loaded && !settlements.has(settlement)) {
		return MsgFixSettlementFirst
	}
	if !settlements.loaded || s.lists == nil {
		return ""
	}

	streets, loaded := s.lists.Streets(settlement)
	if !loaded {
		return ""
	}
	if len(streets) == 0 {
		return MsgNoStreets
	}
	for _, st := range streets {
		if st == street {
			return ""
		}
	}
	return MsgPickFromList
}

func checkSim(rule Rule, row model.Row) string {
	short := strings.TrimSpace(row.Get(model.FieldSimShort))
	full := strings.TrimSpace(row.Get(model.FieldSimFull))
	if short == "" && full == "" {
		return MsgSimPair
	}
	value := row.Get(rule.Field)
	if value == "" {
		return ""
	}
	return rule.Check(value)
}

func segmentIndex(field string) int {
	for i, f := range model.NetworkCodeFields {
		if f == field {
			return i
		}
	}
	return -1
}

func (s *RowSchema) checkSegment(field string, row model.Row) string {
	idx := segmentIndex(field)
	value := strings.TrimSpace(row.Get(field))

	if value == "" {
		for _, f := range model.NetworkCodeFields {
			if strings.TrimSpace(row.Get(f)) != "" {
				return MsgRequired
			}
		}
		return ""
	}

	if msg := netcode.ValidateSegment(idx, value); msg != "" {
		return msg
	}

	if idx == 0 {
		parts := make([]string, 0, len(model.NetworkCodeFields))
		for i, f := range model.NetworkCodeFields {
			v := strings.TrimSpace(row.Get(f))
			if netcode.ValidateSegment(i, v) != "" {
				return ""
			}
			parts = append(parts, v)
		}
		if res := s.codec.Validate(netcode.Join(parts)); !res.Valid && res.ShouldCorrect {
			return MsgUnknownSubstationPS
		}
	}
	return ""
}

func acceptSegment(idx int, raw string) bool {
	if idx < 0 || idx >= len(netcode.Segments) {
		return true
	}
	seg := netcode.Segments[idx]
	if utf8.RuneCountInString(raw) > seg.Width {
		return false
	}
	i := 0
	for _, r := range raw {
		if !netcode.ValidateCharacterAtPosition(r, seg.Offset+i).Valid {
			return false
		}
		i++
	}
	return true
}
