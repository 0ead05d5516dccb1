// Package validation содержит правила колонок и построитель схемы проверки строки.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"loader/internal/model"
)

// Kind вид правила
type Kind int

const (
	// KindSimple только шаблон/длина, проверяется при непустом значении
	KindSimple Kind = iota
	// KindEnumerated обязательное значение из справочника
	KindEnumerated
	// KindComposite правило читает соседние колонки
	KindComposite
)

// Category категория правила
type Category string

const (
	CatDigits             Category = "digits"
	CatUppercaseLetters   Category = "uppercaseLetters"
	CatTwoDigits          Category = "twoDigits"
	CatSerialNumber       Category = "serialNumber"
	CatDateFormat         Category = "dateFormat"
	CatIntervals          Category = "intervals"
	CatCoefficients       Category = "coefficients"
	CatPort               Category = "port"
	CatCommunicatorNumber Category = "communicatorNumber"
	CatSimCardShort       Category = "simCardShort"
	CatSimCardFull        Category = "simCardFull"
	CatMaxPower           Category = "maxPower"
	CatEnumerated         Category = "enumerated"
	CatStreet             Category = "street"
	CatNetworkSegment     Category = "networkSegment"
)

// Сообщения об ошибках
const (
	MsgOnlySpaces          = "Поле не может содержать только пробелы"
	MsgRequired            = "Обязательное поле"
	MsgPickFromList        = "Выберите значение из списка"
	MsgNoStreets           = "Для этого населенного пункта нет улиц"
	MsgFixSettlementFirst  = "Сначала исправьте населенный пункт"
	MsgSimPair             = "Заполните короткий или полный номер"
	MsgDigitsOnly          = "Допускаются только цифры"
	MsgUppercaseOnly       = "Допускаются только заглавные буквы"
	MsgTwoDigits           = "Не более 2 цифр"
	MsgDateFormat          = "Дата в формате ДД.ММ.ГГГГ"
	MsgIntervals           = "Интервал: 1 или 2 цифры"
	MsgSimShort            = "Короткий номер: не более 5 цифр"
	MsgSimFull             = "Полный номер: 11 цифр, начинается с 89"
	MsgCommunicatorForRiM  = "Для счетчиков РиМ номер коммуникатора обязателен"
	MsgUnknownSubstationPS = "Код ПС не найден в справочнике"
)

// Rule описание правила колонки
type Rule struct {
	Field       string
	Kind        Kind
	Category    Category
	Pattern     *regexp.Regexp
	MaxLength   int
	ExactLength int
	List        model.ListID
	Message     string
	CrossField  []string
}

var (
	reDigits     = regexp.MustCompile(`^\d*$`)
	reUpper      = regexp.MustCompile(`^[А-ЯЁA-Z]*$`)
	reTwoDigits  = regexp.MustCompile(`^\d{0,2}$`)
	reDate       = regexp.MustCompile(`^[\d.]*$`)
	reIntervals  = regexp.MustCompile(`^\d{1,2}$`)
	reSimShort   = regexp.MustCompile(`^\d{0,5}$`)
	reSimFull    = regexp.MustCompile(`^89\d{9}$`)
	reSimFullKey = regexp.MustCompile(`^\d{0,11}$`)
	reRiM        = regexp.MustCompile(`(?i)рим`)
)

// IsRiM относится ли модель счетчика к бренду РиМ
func IsRiM(deviceModel string) bool {
	return reRiM.MatchString(deviceModel)
}

func simple(field string, cat Category, re *regexp.Regexp, msg string) Rule {
	return Rule{Field: field, Kind: KindSimple, Category: cat, Pattern: re, Message: msg}
}

func enumerated(field string, list model.ListID) Rule {
	return Rule{Field: field, Kind: KindEnumerated, Category: CatEnumerated, List: list, Message: MsgPickFromList}
}

// Registry реестр правил по имени колонки
type Registry struct {
	rules map[string]Rule
}

// NewRegistry строит реестр правил
func NewRegistry() *Registry {
	r := &Registry{rules: make(map[string]Rule)}

	for _, f := range []string{model.FieldAccountNumber, model.FieldPhone, model.FieldNetworkAddress} {
		r.add(simple(f, CatDigits, reDigits, MsgDigitsOnly))
	}
	r.add(simple(model.FieldLetter, CatUppercaseLetters, reUpper, MsgUppercaseOnly))
	r.add(simple(model.FieldEntrance, CatTwoDigits, reTwoDigits, MsgTwoDigits))

	for _, f := range []string{
		model.FieldSerialNumber, model.FieldDeviceSeal, model.FieldUSPDSerial,
		model.FieldCTSerialA, model.FieldCTSerialB, model.FieldCTSerialC,
		model.FieldCTSealA, model.FieldCTSealB, model.FieldCTSealC,
		model.FieldVTSerialA, model.FieldVTSerialB, model.FieldVTSerialC,
		model.FieldVTSealA, model.FieldVTSealB, model.FieldVTSealC,
	} {
		r.add(simple(f, CatSerialNumber, reDigits, MsgDigitsOnly))
	}

	for _, f := range []string{
		model.FieldVerificationDate,
		model.FieldCTDateA, model.FieldCTDateB, model.FieldCTDateC,
		model.FieldVTDateA, model.FieldVTDateB, model.FieldVTDateC,
	} {
		rule := simple(f, CatDateFormat, reDate, MsgDateFormat)
		rule.MaxLength = dateLength
		r.add(rule)
	}

	for _, f := range []string{model.FieldVerificationInterval, model.FieldCTInterval, model.FieldVTInterval} {
		r.add(simple(f, CatIntervals, reIntervals, MsgIntervals))
	}
	for _, f := range []string{model.FieldCTCoefficient, model.FieldVTCoefficient, model.FieldFinalCoefficient} {
		r.add(simple(f, CatCoefficients, reDigits, MsgDigitsOnly))
	}
	r.add(simple(model.FieldPort, CatPort, reDigits, MsgDigitsOnly))
	r.add(simple(model.FieldMaxPower, CatMaxPower, reDigits, MsgDigitsOnly))

	r.add(Rule{
		Field: model.FieldCommunicatorNumber, Kind: KindComposite, Category: CatCommunicatorNumber,
		Pattern: reDigits, Message: MsgDigitsOnly, CrossField: []string{model.FieldDeviceModel},
	})
	r.add(Rule{
		Field: model.FieldSimShort, Kind: KindComposite, Category: CatSimCardShort,
		Pattern: reSimShort, MaxLength: 5, Message: MsgSimShort, CrossField: []string{model.FieldSimFull},
	})
	r.add(Rule{
		Field: model.FieldSimFull, Kind: KindComposite, Category: CatSimCardFull,
		Pattern: reSimFull, ExactLength: 11, Message: MsgSimFull, CrossField: []string{model.FieldSimShort},
	})

	r.add(enumerated(model.FieldMPES, model.ListMPES))
	r.add(enumerated(model.FieldRKES, model.ListRKES))
	r.add(enumerated(model.FieldMasterUnit, model.ListMasterUnits))
	r.add(enumerated(model.FieldSettlement, model.ListSettlements))
	r.add(enumerated(model.FieldSubscriberType, model.ListSubscriberTypes))
	r.add(enumerated(model.FieldAccountStatus, model.ListAccountStatuses))
	r.add(enumerated(model.FieldDeviceModel, model.ListDeviceModels))
	r.add(enumerated(model.FieldSubstationNumber, model.ListSubstationNumbers))
	r.add(Rule{
		Field: model.FieldStreet, Kind: KindComposite, Category: CatStreet,
		Message: MsgPickFromList, CrossField: []string{model.FieldSettlement},
	})

	for i, f := range model.NetworkCodeFields {
		siblings := make([]string, 0, len(model.NetworkCodeFields)-1)
		for j, s := range model.NetworkCodeFields {
			if j != i {
				siblings = append(siblings, s)
			}
		}
		r.add(Rule{Field: f, Kind: KindComposite, Category: CatNetworkSegment, CrossField: siblings})
	}

	return r
}

func (r *Registry) add(rule Rule) {
	r.rules[rule.Field] = rule
}

// Rule правило колонки
func (r *Registry) Rule(field string) (Rule, bool) {
	rule, ok := r.rules[field]
	return rule, ok
}

// Fields колонки, у которых есть правило
func (r *Registry) Fields() []string {
	out := make([]string, 0, len(r.rules))
	for _, f := range model.CanonicalFields() {
		if _, ok := r.rules[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// Accept фильтр ввода: можно ли принять значение колонки по ходу набора.
// Обязательность и справочники здесь не проверяются.
func (r *Registry) Accept(field, raw string, row model.Row) bool {
	rule, ok := r.rules[field]
	if !ok || raw == "" {
		return true
	}
	switch rule.Category {
	case CatEnumerated, CatStreet:
		return true
	case CatNetworkSegment:
		for i, f := range model.NetworkCodeFields {
			if f == field {
				return acceptSegment(i, raw)
			}
		}
		return true
	case CatSimCardFull:
		return reSimFullKey.MatchString(raw)
	case CatIntervals:
		return reTwoDigits.MatchString(raw)
	}
	if rule.MaxLength > 0 && utf8.RuneCountInString(raw) > rule.MaxLength {
		return false
	}
	return rule.Pattern == nil || rule.Pattern.MatchString(raw)
}

// Check проверка простого правила непустого значения; "" если ошибок нет
func (rule Rule) Check(value string) string {
	if rule.Pattern != nil && !rule.Pattern.MatchString(value) {
		return rule.Message
	}
	n := utf8.RuneCountInString(value)
	if rule.MaxLength > 0 && n > rule.MaxLength {
		return rule.Message
	}
	if rule.ExactLength > 0 && n != rule.ExactLength {
		return rule.Message
	}
	return ""
}

func isOnlySpaces(v string) bool {
	return v != "" && strings.TrimSpace(v) == ""
}
