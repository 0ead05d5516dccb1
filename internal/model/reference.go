package model

// ListID идентификатор справочника
type ListID string

const (
	ListMPES              ListID = "mpes"
	ListRKES              ListID = "rkes"
	ListMasterUnits       ListID = "master_units"
	ListSettlements       ListID = "settlements"
	ListSubscriberTypes   ListID = "subscriber_types"
	ListAccountStatuses   ListID = "account_statuses"
	ListDeviceModels      ListID = "device_models"
	ListSubstationNumbers ListID = "substation_numbers"
	ListIPAddresses       ListID = "ip_addresses"
	ListProtocols         ListID = "protocols"
)

// NamedLists справочники, загружаемые одной пачкой как списки имен
var NamedLists = []ListID{
	ListMPES,
	ListRKES,
	ListMasterUnits,
	ListSettlements,
	ListSubscriberTypes,
	ListAccountStatuses,
	ListSubstationNumbers,
}

// RefItem элемент справочника
type RefItem struct {
	ID       int64  `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	ParentID int64  `json:"parentId,omitempty" yaml:"parent_id,omitempty"`
}

// Device модель прибора учета с параметрами опроса
type Device struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Password    string `json:"password" yaml:"password"`
	Requests    string `json:"requests" yaml:"requests"`
	AdvSettings string `json:"advSettings" yaml:"adv_settings"`
	IPAddress   string `json:"ipAddress" yaml:"ip_address"`
}

// IPAddress адрес сервера опроса
type IPAddress struct {
	ID        int64  `json:"id" yaml:"id"`
	Address   string `json:"address" yaml:"address"`
	IsDefault bool   `json:"isDefault" yaml:"is_default"`
}

// Protocol протокол обмена
type Protocol struct {
	ID        int64  `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	IsDefault bool   `json:"isDefault" yaml:"is_default"`
}

// Port зарезервированный порт
type Port struct {
	PortNumber  int    `json:"portNumber" yaml:"port"`
	Description string `json:"description" yaml:"description"`
}

// Names имена элементов справочника в исходном порядке
func Names(items []RefItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}
