package autofill

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"loader/internal/model"
)

func TestFromDevice_FillsAndCanonicalizes(t *testing.T) {
	t.Parallel()

	devices := []model.Device{{Name: "CE 307-R34", Password: "pass1", Requests: "A+", AdvSettings: "adv", IPAddress: "10.1.1.1"}}
	rows := []model.Row{
		{model.FieldDeviceModel: "ce307r34"},
		{model.FieldDeviceModel: "CE 307-R34", model.FieldPassword: "own"},
		{model.FieldDeviceModel: "Меркурий"},
	}

	out := FromDevice(rows, devices)
	if out[0][model.FieldPassword] != "pass1" || out[0][model.FieldIPAddress] != "10.1.1.1" {
		t.Fatalf("row 0 not filled: %v", out[0])
	}
	if out[0][model.FieldDeviceModel] != "CE 307-R34" {
		t.Fatalf("model name not canonicalized: %q", out[0][model.FieldDeviceModel])
	}
	if out[1][model.FieldPassword] != "own" {
		t.Fatalf("non-empty field overwritten: %v", out[1])
	}
	if !reflect.DeepEqual(out[2], rows[2]) {
		t.Fatalf("unknown model must stay untouched: %v", out[2])
	}
	if rows[0][model.FieldPassword] != "" {
		t.Fatalf("input rows mutated")
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	rows := []model.Row{{}, {model.FieldIPAddress: "192.168.0.1", model.FieldProtocol: "UDP"}}
	ips := []model.IPAddress{{Address: "10.0.0.1"}, {Address: "10.0.0.2", IsDefault: true}}
	protocols := []model.Protocol{{Name: "TCP"}, {Name: "GPRS"}}

	out := DefaultProtocol(DefaultIP(rows, ips), protocols)
	if out[0][model.FieldIPAddress] != "10.0.0.2" {
		t.Fatalf("flagged default ip expected: %v", out[0])
	}
	if out[0][model.FieldProtocol] != "TCP" {
		t.Fatalf("first protocol expected when none flagged: %v", out[0])
	}
	if out[1][model.FieldIPAddress] != "192.168.0.1" || out[1][model.FieldProtocol] != "UDP" {
		t.Fatalf("filled values overwritten: %v", out[1])
	}
}

func TestCoefficients(t *testing.T) {
	t.Parallel()

	cases := []struct {
		ct, vt string
		want   string
	}{
		{"", "", "1"},
		{"150/5", "", "150"},
		{"0.5", "100", "50"},
		{"abc", "0", "1"},
		{"1.5", "2.5", "3.75"},
	}
	for _, tc := range cases {
		row := model.Row{model.FieldCTCoefficient: tc.ct, model.FieldVTCoefficient: tc.vt, model.FieldFinalCoefficient: "999"}
		out := Coefficients([]model.Row{row})[0]
		if got := out[model.FieldFinalCoefficient]; got != tc.want {
			t.Fatalf("ct=%q vt=%q: final=%q want %q", tc.ct, tc.vt, got, tc.want)
		}
		if tc.ct == "" && out[model.FieldCTCoefficient] != "1" {
			t.Fatalf("empty ct must default to 1")
		}
	}
}

func TestAll_EndToEnd(t *testing.T) {
	t.Parallel()

	rows := []model.Row{{model.FieldDeviceModel: "CE307", model.FieldSerialNumber: "0012345678"}}
	data := Data{Devices: []model.Device{{Name: "CE307", Password: "pass1"}}}

	out := All(rows, data)
	if out[0][model.FieldPassword] != "pass1" {
		t.Fatalf("password = %q", out[0][model.FieldPassword])
	}
	if out[0][model.FieldNetworkAddress] != "345678" {
		t.Fatalf("network address = %q", out[0][model.FieldNetworkAddress])
	}
}

func TestAll_Idempotent(t *testing.T) {
	t.Parallel()

	rows := []model.Row{
		{model.FieldDeviceModel: "Меркурий 230", model.FieldSerialNumber: "41234125", model.FieldCTCoefficient: "200"},
		{model.FieldPassword: "keep"},
	}
	data := Data{
		Devices:     []model.Device{{Name: "Меркурий 230", Password: "111111"}},
		IPAddresses: []model.IPAddress{{Address: "10.0.0.1"}},
		Protocols:   []model.Protocol{{Name: "TCP", IsDefault: true}},
	}

	once := All(rows, data)
	twice := All(once, data)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("second pass changed rows:\n%v\n%v", once, twice)
	}
	if once[1][model.FieldPassword] != "keep" {
		t.Fatalf("user value overwritten")
	}
}

type fakeAllocator struct {
	next    int
	failAt  int
	created []model.Port
}

func (a *fakeAllocator) NextPort(context.Context) (int, error) {
	a.next++
	if a.next == a.failAt {
		return 0, errors.New("allocator down")
	}
	return 4000 + a.next, nil
}

func (a *fakeAllocator) CreatePort(_ context.Context, p model.Port) error {
	a.created = append(a.created, p)
	return nil
}

func TestAssignPorts(t *testing.T) {
	t.Parallel()

	rows := []model.Row{
		{model.FieldSettlement: "Рыбное", model.FieldSerialNumber: "1"},
		{model.FieldPort: "5000"},
		{model.FieldSettlement: "Пустошь"},
		{},
	}
	alloc := &fakeAllocator{failAt: 2}

	out, report := AssignPorts(context.Background(), rows, alloc)
	if out[0][model.FieldPort] != "4001" {
		t.Fatalf("row 0 port = %q", out[0][model.FieldPort])
	}
	if out[1][model.FieldPort] != "5000" {
		t.Fatalf("existing port overwritten")
	}
	if out[2][model.FieldPort] != "" {
		t.Fatalf("failed row must stay empty")
	}
	if out[3][model.FieldPort] != "4003" {
		t.Fatalf("processing must continue after failure: %q", out[3][model.FieldPort])
	}
	if !reflect.DeepEqual(report.Failed, []int{2}) || len(report.Assigned) != 2 {
		t.Fatalf("report: %+v", report)
	}
	if len(alloc.created) != 2 || alloc.created[0].Description != "Рыбное (№ 1)" {
		t.Fatalf("created ports: %+v", alloc.created)
	}
	if rows[0][model.FieldPort] != "" {
		t.Fatalf("input rows mutated")
	}
}

func TestReconcileStreet(t *testing.T) {
	t.Parallel()

	streets := []string{"Ленина", "Мира", "Гагарина Юрия", "Ленинская"}
	cases := []struct {
		name       string
		street     string
		wantStreet string
		wantClear  bool
	}{
		{"normalized equal", "ул. Ленина", "Ленина", true},
		{"case only", "мира", "Мира", true},
		{"prefix accepted but flagged", "Гагарина", "Гагарина Юрия", false},
		{"no good match", "Пушкина", "Пушкина", false},
		{"empty street", "", "", false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			row := model.Row{model.FieldSettlement: "Старое", model.FieldStreet: tc.street}
			out, res := ReconcileStreet(row, "Новое", streets)
			if out[model.FieldSettlement] != "Новое" {
				t.Fatalf("settlement not updated")
			}
			if out[model.FieldStreet] != tc.wantStreet || res.ClearError != tc.wantClear {
				t.Fatalf("street=%q clear=%v, want %q %v", out[model.FieldStreet], res.ClearError, tc.wantStreet, tc.wantClear)
			}
			if row[model.FieldSettlement] != "Старое" {
				t.Fatalf("input row mutated")
			}
		})
	}
}
