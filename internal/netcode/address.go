package netcode

import (
	"strconv"
	"strings"
)

const ceAddressLen = 6

// NetworkAddress выводит сетевой адрес прибора из заводского номера по серии модели.
// Возвращает "" если для серии правило не задано или номер не подходит.
//
//	CE / СЕ (Энергомера): шесть последних цифр
//	Меркурий: три последние цифры, а если они больше 240, то две последние
func NetworkAddress(deviceModel, serial string) string {
	serial = strings.TrimSpace(serial)
	if serial == "" || !allDigits(serial) {
		return ""
	}
	m := strings.ToUpper(strings.TrimSpace(deviceModel))

	switch {
	case strings.HasPrefix(m, "CE") || strings.HasPrefix(m, "СЕ"):
		if len(serial) <= ceAddressLen {
			return serial
		}
		return serial[len(serial)-ceAddressLen:]
	case strings.Contains(m, "МЕРКУРИЙ") || strings.Contains(m, "MERCURY"):
		if len(serial) < 3 {
			return ""
		}
		n, _ := strconv.Atoi(serial[len(serial)-3:])
		if n > 240 {
			n, _ = strconv.Atoi(serial[len(serial)-2:])
		}
		return strconv.Itoa(n)
	}
	return ""
}

func allDigits(s string) bool {
	for _, r := range s {
		if !isDigit(r) {
			return false
		}
	}
	return true
}
