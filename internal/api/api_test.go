package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"loader/internal/importer"
	"loader/internal/mailer"
	"loader/internal/model"
	"loader/internal/netcode"
	"loader/internal/reference"
	"loader/internal/store"
)

type recordingDelivery struct {
	mu    sync.Mutex
	calls []mailer.Message
}

func (d *recordingDelivery) Deliver(_ context.Context, msg mailer.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, msg)
	return nil
}

func (d *recordingDelivery) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

type testEnv struct {
	router   *gin.Engine
	store    *store.Store
	sessions *importer.Registry
	delivery *recordingDelivery
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "loader.db"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	_, err = st.Seed(context.Background(), &store.SeedData{
		Lists: map[model.ListID][]string{
			model.ListMPES:              {"Северные ЭС"},
			model.ListRKES:              {"Приморский РКЭС"},
			model.ListMasterUnits:       {"Участок 1"},
			model.ListSubscriberTypes:   {"Физическое лицо"},
			model.ListAccountStatuses:   {"Открыт"},
			model.ListSubstationNumbers: {"ПС-15"},
		},
		Streets: map[string][]string{
			"Рыбное":  {"Ленина", "Мира"},
			"Пустошь": {"Центральная"},
		},
		Devices:     []model.Device{{Name: "CE307", Password: "pass1"}},
		IPAddresses: []model.IPAddress{{Address: "10.0.0.1", IsDefault: true}},
		Protocols:   []model.Protocol{{Name: "TCP", IsDefault: true}},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	st.SetBasePort(4000)

	codec := netcode.NewCodec(nil)
	delivery := &recordingDelivery{}
	sessions := importer.NewRegistry(func() importer.Deps {
		return importer.Deps{
			Cache:    reference.NewCache(st),
			Codec:    codec,
			Ports:    st,
			Delivery: delivery,
			Journal:  st,
		}
	}, time.Hour)

	h := NewHandler(Options{Store: st, Sessions: sessions, Codec: codec, MailEnabled: true})
	router := gin.New()
	h.RegisterRoutes(router.Group("/api"))
	return &testEnv{router: router, store: st, sessions: sessions, delivery: delivery}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) upload(t *testing.T, name string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// importRows загружает строки и возвращает идентификатор сессии
func (e *testEnv) importRows(t *testing.T, rows ...map[string]string) string {
	t.Helper()
	w := e.upload(t, "points.xlsx", workbook(t, rows...))
	if w.Code != http.StatusCreated {
		t.Fatalf("import: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Session importer.Snapshot `json:"session"`
	}
	decode(t, w, &resp)
	if resp.Session.ID == "" || resp.Session.RowCount != len(rows) {
		t.Fatalf("snapshot: %+v", resp.Session)
	}
	return resp.Session.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

var testHeaders = []string{
	model.FieldMPES, model.FieldRKES, model.FieldMasterUnit, model.FieldSettlement, model.FieldStreet,
	model.FieldSubscriberType, model.FieldAccountStatus, model.FieldDeviceModel, model.FieldSerialNumber,
	model.FieldSubstationNumber, model.FieldSimShort,
}

func cleanRow() map[string]string {
	return map[string]string{
		model.FieldMPES:             "Северные ЭС",
		model.FieldRKES:             "Приморский РКЭС",
		model.FieldMasterUnit:       "Участок 1",
		model.FieldSettlement:       "Рыбное",
		model.FieldStreet:           "Ленина",
		model.FieldSubscriberType:   "Физическое лицо",
		model.FieldAccountStatus:    "Открыт",
		model.FieldDeviceModel:      "CE307",
		model.FieldSerialNumber:     "0012345678",
		model.FieldSubstationNumber: "ПС-15",
		model.FieldSimShort:         "12345",
	}
}

func workbook(t *testing.T, rows ...map[string]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	hdr := make([]interface{}, len(testHeaders))
	for i, h := range testHeaders {
		hdr[i] = h
	}
	if err := f.SetSheetRow(sheet, "A2", &hdr); err != nil {
		t.Fatalf("header row: %v", err)
	}
	for i, r := range rows {
		vals := make([]interface{}, len(testHeaders))
		for j, h := range testHeaders {
			vals[j] = r[h]
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+3)
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			t.Fatalf("data row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	return buf.Bytes()
}

func TestImportAndExportClean(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	id := env.importRows(t, cleanRow())

	w := env.do(t, http.MethodPost, "/api/sessions/"+id+"/validate", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"success":true`) {
		t.Fatalf("validate: %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/sessions/"+id+"/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export: %d %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Fatalf("content type: %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "points_") {
		t.Fatalf("content disposition: %s", cd)
	}
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()

	w = env.do(t, http.MethodGet, "/api/import-logs", nil)
	var logs struct {
		Logs []model.ImportLog `json:"logs"`
	}
	decode(t, w, &logs)
	if len(logs.Logs) != 2 || logs.Logs[0].Action != model.ActionExport || logs.Logs[1].Action != model.ActionImport {
		t.Fatalf("import logs: %+v", logs.Logs)
	}
}

func TestExportAndSendBlockedUntilFixed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	bad := cleanRow()
	bad[model.FieldStreet] = "Несуществующая"
	id := env.importRows(t, bad)

	w := env.do(t, http.MethodPost, "/api/sessions/"+id+"/export", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("export with errors: %d %s", w.Code, w.Body.String())
	}
	var refusal struct {
		Error string             `json:"error"`
		Rows  []importer.RowView `json:"rows"`
	}
	decode(t, w, &refusal)
	if len(refusal.Rows) != 1 || refusal.Rows[0].Errors[model.FieldStreet] == "" {
		t.Fatalf("refusal rows: %+v", refusal.Rows)
	}

	w = env.do(t, http.MethodPost, "/api/sessions/"+id+"/send", SendRequest{Email: "ops@example.com"})
	if w.Code != http.StatusUnprocessableEntity || env.delivery.count() != 0 {
		t.Fatalf("send with errors: %d, deliveries %d", w.Code, env.delivery.count())
	}

	w = env.do(t, http.MethodPatch, "/api/sessions/"+id+"/rows/0", EditCellRequest{Field: model.FieldStreet, Value: "Мира"})
	if w.Code != http.StatusOK {
		t.Fatalf("edit: %d %s", w.Code, w.Body.String())
	}
	var edit importer.EditResult
	decode(t, w, &edit)
	if len(edit.Row.Errors) != 0 || len(edit.Row.Touched) != 1 {
		t.Fatalf("edited row: %+v", edit.Row)
	}

	w = env.do(t, http.MethodPost, "/api/sessions/"+id+"/send", SendRequest{Email: "ops@example.com"})
	if w.Code != http.StatusOK || env.delivery.count() != 1 {
		t.Fatalf("send clean: %d %s, deliveries %d", w.Code, w.Body.String(), env.delivery.count())
	}
}

func TestSendRejectsBadAddress(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	id := env.importRows(t, cleanRow())
	w := env.do(t, http.MethodPost, "/api/sessions/"+id+"/send", SendRequest{Email: "not an address"})
	if w.Code != http.StatusBadRequest || env.delivery.count() != 0 {
		t.Fatalf("bad address: %d %s", w.Code, w.Body.String())
	}
}

func TestImportBrokenFile(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	w := env.upload(t, "broken.xlsx", []byte("not a workbook"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("broken file: %d %s", w.Code, w.Body.String())
	}
}

func TestSessionNotFound(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	for _, path := range []string{"/api/sessions/missing", "/api/sessions/missing/errors"} {
		if w := env.do(t, http.MethodGet, path, nil); w.Code != http.StatusNotFound {
			t.Fatalf("%s: %d", path, w.Code)
		}
	}
	if w := env.do(t, http.MethodPost, "/api/sessions/missing/validate", nil); w.Code != http.StatusNotFound {
		t.Fatalf("validate: %d", w.Code)
	}
}

func TestEditOutOfRange(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	id := env.importRows(t, cleanRow())
	w := env.do(t, http.MethodPatch, "/api/sessions/"+id+"/rows/5", EditCellRequest{Field: model.FieldHouse, Value: "1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("out of range: %d %s", w.Code, w.Body.String())
	}
	w = env.do(t, http.MethodPatch, "/api/sessions/"+id+"/rows/x", EditCellRequest{Field: model.FieldHouse, Value: "1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad index: %d", w.Code)
	}
}

func TestCreateReferencesConflict(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/references/settlements", CreateReferenceRequest{Name: "Рыбное"})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate settlement: %d %s", w.Code, w.Body.String())
	}
	w = env.do(t, http.MethodPost, "/api/references/settlements", CreateReferenceRequest{Name: "  "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty settlement: %d", w.Code)
	}
	w = env.do(t, http.MethodPost, "/api/references/settlements", CreateReferenceRequest{Name: "Новое"})
	if w.Code != http.StatusCreated {
		t.Fatalf("new settlement: %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/references/settlements", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Новое") {
		t.Fatalf("list settlements: %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/references/streets", CreateReferenceRequest{Settlement: "Рыбное", Name: "Мира"})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate street: %d", w.Code)
	}
	w = env.do(t, http.MethodPost, "/api/references/streets", CreateReferenceRequest{Settlement: "Нигде", Name: "Мира"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("street of unknown settlement: %d", w.Code)
	}
	w = env.do(t, http.MethodPost, "/api/references/substations", CreateReferenceRequest{Name: "ПС-15"})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate substation: %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/references/unknown", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown reference: %d", w.Code)
	}
}

func TestCreatedStreetReachesOpenSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	row := cleanRow()
	row[model.FieldStreet] = "Садовая"
	id := env.importRows(t, row)

	w := env.do(t, http.MethodPost, "/api/sessions/"+id+"/validate", nil)
	if !strings.Contains(w.Body.String(), `"success":false`) {
		t.Fatalf("expected street error: %s", w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/references/streets", CreateReferenceRequest{Settlement: "Рыбное", Name: "Садовая"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create street: %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/sessions/"+id+"/validate", nil)
	if !strings.Contains(w.Body.String(), `"success":true`) {
		t.Fatalf("street not visible in session: %s", w.Body.String())
	}
}

func TestPorts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	id := env.importRows(t, cleanRow(), cleanRow())

	w := env.do(t, http.MethodPost, "/api/sessions/"+id+"/ports", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("assign ports: %d %s", w.Code, w.Body.String())
	}
	var report struct {
		Assigned map[string]int `json:"assigned"`
		Failed   []int          `json:"failed"`
	}
	decode(t, w, &report)
	if report.Assigned["0"] != 4000 || report.Assigned["1"] != 4001 || len(report.Failed) != 0 {
		t.Fatalf("report: %+v", report)
	}

	w = env.do(t, http.MethodGet, "/api/ports/next", nil)
	if !strings.Contains(w.Body.String(), `"port":4002`) {
		t.Fatalf("next port: %s", w.Body.String())
	}
	w = env.do(t, http.MethodPost, "/api/ports", model.Port{PortNumber: 4002, Description: "вручную"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create port: %d %s", w.Code, w.Body.String())
	}
	w = env.do(t, http.MethodPost, "/api/ports", model.Port{PortNumber: 4002})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate port: %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/api/ports", nil)
	var ports struct {
		Ports []model.Port `json:"ports"`
	}
	decode(t, w, &ports)
	if len(ports.Ports) != 3 {
		t.Fatalf("ports: %+v", ports.Ports)
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/options?list=streets&settlement="+urlQuery("Рыбное")+"&q="+urlQuery("лен"), nil)
	var resp struct {
		Options []string `json:"options"`
	}
	decode(t, w, &resp)
	if len(resp.Options) == 0 || resp.Options[0] != "Ленина" {
		t.Fatalf("street options: %v", resp.Options)
	}

	w = env.do(t, http.MethodGet, "/api/options?list=settlements&q="+urlQuery("пустош"), nil)
	decode(t, w, &resp)
	if len(resp.Options) == 0 || resp.Options[0] != "Пустошь" {
		t.Fatalf("settlement options: %v", resp.Options)
	}

	if w := env.do(t, http.MethodGet, "/api/options", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing list: %d", w.Code)
	}
}

func TestCards(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/cards/validate", CardRequest{Values: cleanRow()})
	var card struct {
		Valid  bool              `json:"valid"`
		Values model.Row         `json:"values"`
		Errors model.FieldErrors `json:"errors"`
	}
	decode(t, w, &card)
	if !card.Valid || card.Values[model.FieldPassword] != "pass1" || card.Values[model.FieldNetworkAddress] != "345678" {
		t.Fatalf("card: %+v", card)
	}

	bad := cleanRow()
	bad[model.FieldSimShort] = ""
	w = env.do(t, http.MethodPost, "/api/cards/validate", CardRequest{Values: bad})
	decode(t, w, &card)
	if card.Valid || card.Errors[model.FieldSimShort] == "" {
		t.Fatalf("card without sim: %+v", card)
	}

	tests := []struct {
		req    CheckRequest
		ok     bool
		result string
	}{
		{CheckRequest{Field: model.FieldVerificationDate, Prev: "1", Value: "12"}, true, "12."},
		{CheckRequest{Field: model.FieldVerificationDate, Prev: "12", Value: "12a"}, false, "12"},
		{CheckRequest{Field: model.FieldAccountNumber, Prev: "12", Value: "12x"}, false, "12"},
		{CheckRequest{Field: model.FieldAccountNumber, Prev: "12", Value: "123"}, true, "123"},
	}
	for _, tt := range tests {
		w := env.do(t, http.MethodPost, "/api/cards/check", tt.req)
		var got struct {
			OK    bool   `json:"ok"`
			Value string `json:"value"`
		}
		decode(t, w, &got)
		if got.OK != tt.ok || got.Value != tt.result {
			t.Fatalf("check %+v: got %+v", tt.req, got)
		}
	}

	w = env.do(t, http.MethodPost, "/api/netcode/validate", NetcodeRequest{Value: "123456AB"})
	var nc struct {
		Formatted string         `json:"formatted"`
		Result    netcode.Result `json:"result"`
	}
	decode(t, w, &nc)
	if nc.Formatted != "123-456-AB" || !nc.Result.Valid {
		t.Fatalf("netcode: %+v", nc)
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.importRows(t, cleanRow())

	w := env.do(t, http.MethodGet, "/api/status", nil)
	var st StatusResponse
	decode(t, w, &st)
	if st.Sessions != 1 || !st.Seeded || !st.MailEnabled || st.NextPort != 4000 || st.LastImportTime == "" {
		t.Fatalf("status: %+v", st)
	}
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", store.ErrAlreadyExists), http.StatusConflict},
		{fmt.Errorf("x: %w", importer.ErrExportBlocked), http.StatusUnprocessableEntity},
		{importer.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: eof", importer.ErrParse), http.StatusBadRequest},
		{mailer.ErrNotConfigured, http.StatusServiceUnavailable},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusOf(tt.err); got != tt.want {
			t.Fatalf("statusOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestContentDisposition(t *testing.T) {
	t.Parallel()

	got := contentDisposition("points_20260101_120000.xlsx")
	want := "attachment; filename=\"points_20260101_120000.xlsx\"; filename*=UTF-8''points_20260101_120000.xlsx"
	if got != want {
		t.Fatalf("content-disposition mismatch:\n got: %s\nwant: %s", got, want)
	}

	got = contentDisposition("точки.xlsx")
	if !strings.HasPrefix(got, "attachment; filename=\"export.xlsx\"; filename*=UTF-8''%D1%82") {
		t.Fatalf("non-ascii name: %s", got)
	}
}

func urlQuery(s string) string {
	return url.QueryEscape(s)
}
