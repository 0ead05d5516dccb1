// Package autofill заполняет зависимые колонки строк по справочникам.
// Все функции заполняют только пустые колонки и возвращают новую коллекцию строк.
package autofill

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"loader/internal/model"
	"loader/internal/netcode"
)

// Data справочники, нужные автозаполнению
type Data struct {
	Devices     []model.Device
	IPAddresses []model.IPAddress
	Protocols   []model.Protocol
}

// All применяет все чистые правила автозаполнения по порядку
func All(rows []model.Row, data Data) []model.Row {
	rows = FromDevice(rows, data.Devices)
	rows = DefaultIP(rows, data.IPAddresses)
	rows = DefaultProtocol(rows, data.Protocols)
	rows = Coefficients(rows)
	rows = NetworkAddress(rows)
	return rows
}

var deviceKeyStripper = strings.NewReplacer(" ", "", "-", "")

func deviceKey(name string) string {
	return deviceKeyStripper.Replace(strings.ToLower(strings.TrimSpace(name)))
}

func isEmpty(row model.Row, field string) bool {
	return strings.TrimSpace(row[field]) == ""
}

// mapRows применяет fn к каждой строке; fn возвращает nil если строка не меняется
func mapRows(rows []model.Row, fn func(model.Row) model.Row) []model.Row {
	out := make([]model.Row, len(rows))
	for i, row := range rows {
		if changed := fn(row); changed != nil {
			out[i] = changed
		} else {
			out[i] = row
		}
	}
	return out
}

// FromDevice копирует пароль, запросы, доп. параметры и IP из справочника моделей
// и приводит название модели к справочному
func FromDevice(rows []model.Row, devices []model.Device) []model.Row {
	if len(devices) == 0 {
		return mapRows(rows, func(model.Row) model.Row { return nil })
	}
	index := make(map[string]model.Device, len(devices))
	for _, d := range devices {
		key := deviceKey(d.Name)
		if _, dup := index[key]; !dup {
			index[key] = d
		}
	}

	return mapRows(rows, func(row model.Row) model.Row {
		d, ok := index[deviceKey(row[model.FieldDeviceModel])]
		if !ok || isEmpty(row, model.FieldDeviceModel) {
			return nil
		}
		out := row.Clone()
		fill := func(field, value string) {
			if isEmpty(out, field) && value != "" {
				out[field] = value
			}
		}
		fill(model.FieldPassword, d.Password)
		fill(model.FieldRequests, d.Requests)
		fill(model.FieldAdvSettings, d.AdvSettings)
		fill(model.FieldIPAddress, d.IPAddress)
		out[model.FieldDeviceModel] = d.Name
		return out
	})
}

// DefaultIP подставляет IP по умолчанию (помеченный в справочнике, иначе первый)
func DefaultIP(rows []model.Row, ips []model.IPAddress) []model.Row {
	if len(ips) == 0 {
		return mapRows(rows, func(model.Row) model.Row { return nil })
	}
	def := ips[0].Address
	for _, ip := range ips {
		if ip.IsDefault {
			def = ip.Address
			break
		}
	}
	return fillEmpty(rows, model.FieldIPAddress, def)
}

// DefaultProtocol подставляет протокол по умолчанию
func DefaultProtocol(rows []model.Row, protocols []model.Protocol) []model.Row {
	if len(protocols) == 0 {
		return mapRows(rows, func(model.Row) model.Row { return nil })
	}
	def := protocols[0].Name
	for _, p := range protocols {
		if p.IsDefault {
			def = p.Name
			break
		}
	}
	return fillEmpty(rows, model.FieldProtocol, def)
}

func fillEmpty(rows []model.Row, field, value string) []model.Row {
	return mapRows(rows, func(row model.Row) model.Row {
		if value == "" || !isEmpty(row, field) {
			return nil
		}
		return row.With(field, value)
	})
}

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)`)

// parseCoefficient разбирает числовой префикс; нечисловое или нулевое значение дает 1
func parseCoefficient(s string) decimal.Decimal {
	m := leadingNumber.FindString(strings.TrimSpace(s))
	if m == "" {
		return decimal.NewFromInt(1)
	}
	d, err := decimal.NewFromString(m)
	if err != nil || d.IsZero() {
		return decimal.NewFromInt(1)
	}
	return d
}

// Coefficients подставляет "1" в пустые коэффициенты ТТ/ТН и всегда
// пересчитывает итоговый коэффициент как их произведение
func Coefficients(rows []model.Row) []model.Row {
	return mapRows(rows, func(row model.Row) model.Row {
		out := row.Clone()
		if isEmpty(out, model.FieldCTCoefficient) {
			out[model.FieldCTCoefficient] = "1"
		}
		if isEmpty(out, model.FieldVTCoefficient) {
			out[model.FieldVTCoefficient] = "1"
		}
		product := parseCoefficient(out[model.FieldCTCoefficient]).Mul(parseCoefficient(out[model.FieldVTCoefficient]))
		out[model.FieldFinalCoefficient] = product.String()
		return out
	})
}

// NetworkAddress выводит сетевой адрес из заводского номера по серии модели
func NetworkAddress(rows []model.Row) []model.Row {
	return mapRows(rows, func(row model.Row) model.Row {
		if !isEmpty(row, model.FieldNetworkAddress) {
			return nil
		}
		addr := netcode.NetworkAddress(row[model.FieldDeviceModel], row[model.FieldSerialNumber])
		if addr == "" {
			return nil
		}
		return row.With(model.FieldNetworkAddress, addr)
	})
}
