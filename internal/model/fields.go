package model

// Канонические имена колонок. Совпадают с заголовками второй строки шаблона Excel.
const (
	FieldMPES       = "МПЭС"
	FieldRKES       = "РКЭС"
	FieldMasterUnit = "Мастерский участок"

	FieldSettlement = "Населенный пункт"
	FieldStreet     = "Улица"
	FieldHouse      = "Дом"
	FieldBuilding   = "Корпус"
	FieldLetter     = "Литера"
	FieldApartment  = "Квартира"
	FieldEntrance   = "Подъезд"

	FieldSubscriberType = "Тип абонента"
	FieldAccountStatus  = "Состояние ЛС"
	FieldConsumerName   = "ФИО/Наименование потребителя"
	FieldAccountNumber  = "Лицевой счет"
	FieldPhone          = "Телефон"
	FieldContractNumber = "Номер договора"

	// Пять сегментов сетевого кода
	FieldSubstationCode     = "Код ПС 35-110 кВ"
	FieldFeeder10           = "Номер фидера 10(6)(3) кВ"
	FieldTransformerStation = "Номер ТП 10(6)(3)/0,4 кВ"
	FieldFeeder04           = "Номер фидера 0,4 кВ"
	FieldConsumerCode       = "Код потребителя"

	FieldSubstationNumber = "Номер ПС"
	FieldConnectionPoint  = "Точка подключения"
	FieldVoltageLevel     = "Уровень напряжения"

	FieldDeviceModel          = "Модель счетчика"
	FieldSerialNumber         = "Заводской номер"
	FieldVerificationDate     = "Дата поверки счетчика"
	FieldVerificationInterval = "Межповерочный интервал счетчика"
	FieldDeviceSeal           = "Номер пломбы счетчика"
	FieldInstallPlace         = "Место установки"
	FieldMaxPower             = "Максимальная мощность, кВт"
	FieldNetworkAddress       = "Сетевой адрес"
	FieldPassword             = "Пароль"
	FieldRequests             = "Запросы"
	FieldAdvSettings          = "Дополнительные параметры"

	FieldIPAddress          = "IP адрес"
	FieldPort               = "Порт"
	FieldProtocol           = "Протокол"
	FieldCommunicatorNumber = "Номер коммуникатора"
	FieldSimShort           = "Номер сим-карты (короткий)"
	FieldSimFull            = "Номер сим-карты (полный)"

	FieldCTType        = "Тип ТТ"
	FieldCTSerialA     = "Заводской номер ТТ фаза A"
	FieldCTSerialB     = "Заводской номер ТТ фаза B"
	FieldCTSerialC     = "Заводской номер ТТ фаза C"
	FieldCTDateA       = "Дата поверки ТТ фаза A"
	FieldCTDateB       = "Дата поверки ТТ фаза B"
	FieldCTDateC       = "Дата поверки ТТ фаза C"
	FieldCTInterval    = "Межповерочный интервал ТТ"
	FieldCTSealA       = "Номер пломбы ТТ фаза A"
	FieldCTSealB       = "Номер пломбы ТТ фаза B"
	FieldCTSealC       = "Номер пломбы ТТ фаза C"
	FieldCTCoefficient = "Коэффициент ТТ"

	FieldVTType        = "Тип ТН"
	FieldVTSerialA     = "Заводской номер ТН фаза A"
	FieldVTSerialB     = "Заводской номер ТН фаза B"
	FieldVTSerialC     = "Заводской номер ТН фаза C"
	FieldVTDateA       = "Дата поверки ТН фаза A"
	FieldVTDateB       = "Дата поверки ТН фаза B"
	FieldVTDateC       = "Дата поверки ТН фаза C"
	FieldVTInterval    = "Межповерочный интервал ТН"
	FieldVTSealA       = "Номер пломбы ТН фаза A"
	FieldVTSealB       = "Номер пломбы ТН фаза B"
	FieldVTSealC       = "Номер пломбы ТН фаза C"
	FieldVTCoefficient = "Коэффициент ТН"

	FieldFinalCoefficient = "Итоговый коэффициент"

	FieldUSPDName     = "Наименование УСПД"
	FieldUSPDType     = "Тип УСПД"
	FieldUSPDSerial   = "Заводской номер УСПД"
	FieldUSPDLogin    = "Логин УСПД"
	FieldUSPDPassword = "Пароль УСПД"

	FieldComment = "Примечание"
)

// FieldGroup группа колонок (первая строка заголовка в Excel)
type FieldGroup struct {
	Title  string   `json:"title"`
	Fields []string `json:"fields"`
}

// FieldGroups порядок групп и колонок шаблона
var FieldGroups = []FieldGroup{
	{Title: "Структура", Fields: []string{FieldMPES, FieldRKES, FieldMasterUnit}},
	{Title: "Адрес", Fields: []string{
		FieldSettlement, FieldStreet, FieldHouse, FieldBuilding, FieldLetter, FieldApartment, FieldEntrance,
	}},
	{Title: "Потребитель", Fields: []string{
		FieldSubscriberType, FieldAccountStatus, FieldConsumerName, FieldAccountNumber, FieldPhone, FieldContractNumber,
	}},
	{Title: "Сетевой код", Fields: []string{
		FieldSubstationCode, FieldFeeder10, FieldTransformerStation, FieldFeeder04, FieldConsumerCode,
		FieldSubstationNumber, FieldConnectionPoint, FieldVoltageLevel,
	}},
	{Title: "Прибор учета", Fields: []string{
		FieldDeviceModel, FieldSerialNumber, FieldVerificationDate, FieldVerificationInterval, FieldDeviceSeal,
		FieldInstallPlace, FieldMaxPower, FieldNetworkAddress, FieldPassword, FieldRequests, FieldAdvSettings,
	}},
	{Title: "Связь", Fields: []string{
		FieldIPAddress, FieldPort, FieldProtocol, FieldCommunicatorNumber, FieldSimShort, FieldSimFull,
	}},
	{Title: "ТТ", Fields: []string{
		FieldCTType, FieldCTSerialA, FieldCTSerialB, FieldCTSerialC, FieldCTDateA, FieldCTDateB, FieldCTDateC,
		FieldCTInterval, FieldCTSealA, FieldCTSealB, FieldCTSealC, FieldCTCoefficient,
	}},
	{Title: "ТН", Fields: []string{
		FieldVTType, FieldVTSerialA, FieldVTSerialB, FieldVTSerialC, FieldVTDateA, FieldVTDateB, FieldVTDateC,
		FieldVTInterval, FieldVTSealA, FieldVTSealB, FieldVTSealC, FieldVTCoefficient, FieldFinalCoefficient,
	}},
	{Title: "УСПД", Fields: []string{
		FieldUSPDName, FieldUSPDType, FieldUSPDSerial, FieldUSPDLogin, FieldUSPDPassword,
	}},
	{Title: "Прочее", Fields: []string{FieldComment}},
}

// NetworkCodeFields сегменты сетевого кода в порядке следования
var NetworkCodeFields = []string{
	FieldSubstationCode,
	FieldFeeder10,
	FieldTransformerStation,
	FieldFeeder04,
	FieldConsumerCode,
}

var (
	canonicalFields []string
	fieldGroupIndex map[string]string
)

func init() {
	fieldGroupIndex = make(map[string]string)
	for _, g := range FieldGroups {
		for _, f := range g.Fields {
			canonicalFields = append(canonicalFields, f)
			fieldGroupIndex[f] = g.Title
		}
	}
}

// CanonicalFields все канонические колонки в порядке шаблона
func CanonicalFields() []string {
	out := make([]string, len(canonicalFields))
	copy(out, canonicalFields)
	return out
}

// GroupOf возвращает заголовок группы для колонки ("" для неизвестных колонок)
func GroupOf(field string) string {
	return fieldGroupIndex[field]
}

// IsCanonical известна ли колонка шаблону
func IsCanonical(field string) bool {
	_, ok := fieldGroupIndex[field]
	return ok
}
