package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/models/reports"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	t.Setenv("GO_ENV", "")
	t.Setenv("LEGACY_SCHEMA_FALLBACK", "")
	t.Setenv("CHECKLIST_SEED_BEST_EFFORT", "")

	db, err := config.OpenDatabase(config.DriverSQLite, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	prev := config.GetDB()
	config.SetDB(db)
	config.SetRedisClient(nil)
	t.Cleanup(func() {
		config.SetDB(prev)
		_ = sqlDB.Close()
	})
	require.NoError(t, models.MigrateTable(context.Background()))

	r := gin.New()
	RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method string, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var envelope map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	}
	return w, envelope
}

func errorCode(envelope map[string]any) string {
	e, _ := envelope["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func createEscrow(t *testing.T, r *gin.Engine, address string) map[string]any {
	t.Helper()
	w, envelope := doJSON(t, r, http.MethodPost, "/api/v1/escrows", map[string]any{
		"property_address": address,
		"purchase_price":   "800000",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return envelope["data"].(map[string]any)
}

func TestCreateEscrow_Returns201(t *testing.T) {
	r := newTestRouter(t)

	data := createEscrow(t, r, "10 Ocean Ave")
	displayId, _ := data["displayId"].(string)
	if !strings.HasPrefix(displayId, "ESC-") || !strings.HasSuffix(displayId, "-0001") {
		t.Fatalf("unexpected displayId %q", displayId)
	}
	if data["id"].(float64) != 1 {
		t.Fatalf("unexpected id %v", data["id"])
	}
	if data["message"] == "" {
		t.Fatalf("expected a message")
	}
}

func TestCreateEscrow_ValidationErrors(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"missing address", map[string]any{"purchase_price": 100}, "property_address"},
		{"zero price", map[string]any{"property_address": "1 A St", "purchase_price": 0}, "purchase_price"},
		{"closing before acceptance", map[string]any{
			"property_address": "1 A St", "purchase_price": 100,
			"acceptance_date": "2025-03-10", "closing_date": "2025-03-01",
		}, "closing_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, envelope := doJSON(t, r, http.MethodPost, "/api/v1/escrows", tt.body)
			if w.Code != http.StatusBadRequest || errorCode(envelope) != CodeValidationError {
				t.Fatalf("got %d %s", w.Code, w.Body.String())
			}
			details, _ := envelope["error"].(map[string]any)["details"].(map[string]any)
			if _, ok := details[tt.field]; !ok {
				t.Fatalf("expected %s in details, got %v", tt.field, details)
			}
		})
	}

	w, envelope := doJSON(t, r, http.MethodPost, "/api/v1/escrows", "{not json")
	if w.Code != http.StatusBadRequest || errorCode(envelope) != CodeValidationError {
		t.Fatalf("malformed body: got %d %s", w.Code, w.Body.String())
	}
}

func TestGetEscrow_ByNumericAndDisplayId(t *testing.T) {
	r := newTestRouter(t)
	created := createEscrow(t, r, "22 Bay St")
	displayId := created["displayId"].(string)

	for _, path := range []string{"/api/v1/escrows/1", "/api/v1/escrows/" + displayId} {
		w, envelope := doJSON(t, r, http.MethodGet, path, nil)
		if w.Code != http.StatusOK || envelope["success"] != true {
			t.Fatalf("%s: got %d %s", path, w.Code, w.Body.String())
		}
		data := envelope["data"].(map[string]any)
		if data["displayId"] != displayId || data["propertyAddress"] != "22 Bay St" {
			t.Fatalf("%s: unexpected detail %v", path, data)
		}
		if data["buyer"] != nil {
			t.Fatalf("expected null buyer, got %v", data["buyer"])
		}
		if items := data["checklist"].([]any); len(items) != 15 {
			t.Fatalf("expected 15 checklist items, got %d", len(items))
		}
		for _, key := range []string{"timeline", "financials", "documents", "participants"} {
			if _, ok := data[key].([]any); !ok {
				t.Fatalf("expected %s to be an array, got %v", key, data[key])
			}
		}
	}
}

func TestGetEscrow_NotFound(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/api/v1/escrows/999", "/api/v1/escrows/ESC-1999-0001"} {
		w, envelope := doJSON(t, r, http.MethodGet, path, nil)
		if w.Code != http.StatusNotFound || errorCode(envelope) != CodeNotFound || envelope["success"] != false {
			t.Fatalf("%s: got %d %s", path, w.Code, w.Body.String())
		}
	}
}

func TestGetEscrow_ServerErrorHidesDetailsInProduction(t *testing.T) {
	r := newTestRouter(t)
	require.NoError(t, config.GetDB().Exec("DROP TABLE escrows").Error)

	w, envelope := doJSON(t, r, http.MethodGet, "/api/v1/escrows/1", nil)
	if w.Code != http.StatusInternalServerError || errorCode(envelope) != CodeServerError {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
	if envelope["error"].(map[string]any)["details"] == nil {
		t.Fatalf("expected details outside production")
	}

	t.Setenv("GO_ENV", "production")
	w, envelope = doJSON(t, r, http.MethodGet, "/api/v1/escrows/1", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got %d", w.Code)
	}
	if _, ok := envelope["error"].(map[string]any)["details"]; ok {
		t.Fatalf("details leaked in production: %s", w.Body.String())
	}
}

func TestListEscrows_Pagination(t *testing.T) {
	r := newTestRouter(t)
	for _, address := range []string{"1 Pine St", "2 Pine St", "3 Oak St"} {
		createEscrow(t, r, address)
	}

	w, envelope := doJSON(t, r, http.MethodGet, "/api/v1/escrows?limit=2&page=1&search=pine&sort=propertyAddress&order=asc", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := envelope["data"].(map[string]any)
	escrows := data["escrows"].([]any)
	pagination := data["pagination"].(map[string]any)

	if len(escrows) != 2 {
		t.Fatalf("expected 2 escrows, got %d", len(escrows))
	}
	if first := escrows[0].(map[string]any); first["propertyAddress"] != "1 Pine St" {
		t.Fatalf("unexpected order: %v", first["propertyAddress"])
	}
	if pagination["total"].(float64) != 2 || pagination["totalPages"].(float64) != 1 || pagination["limit"].(float64) != 2 {
		t.Fatalf("unexpected pagination %v", pagination)
	}

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/escrows?page=abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric page, got %d", w.Code)
	}
}

func TestExportEscrows_Workbook(t *testing.T) {
	r := newTestRouter(t)
	createEscrow(t, r, "5 Elm St")
	createEscrow(t, r, "6 Elm St")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/escrows/export?status=all", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	if ct := w.Header().Get("Content-Type"); ct != reports.XlsxContentType {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "escrows-") || !strings.Contains(cd, ".xlsx") {
		t.Fatalf("unexpected disposition %q", cd)
	}

	book, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows("Escrows")
	require.NoError(t, err)
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
}

func TestChecklist_GetAndUpdate(t *testing.T) {
	r := newTestRouter(t)
	created := createEscrow(t, r, "7 Birch St")
	path := "/api/v1/escrows/" + created["displayId"].(string) + "/checklist"

	w, envelope := doJSON(t, r, http.MethodPatch, path, map[string]any{
		"item": "open_escrow", "value": true, "note": "opened with First American",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	entries := envelope["data"].(map[string]any)
	if len(entries) != 15 {
		t.Fatalf("expected the full checklist map, got %d entries", len(entries))
	}
	entry := entries["open_escrow"].(map[string]any)
	if entry["completed"] != true || entry["note"] != "opened with First American" || entry["updatedAt"] == nil {
		t.Fatalf("unexpected entry %v", entry)
	}

	w, envelope = doJSON(t, r, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	progress := envelope["data"].(map[string]any)["progress"].(map[string]any)
	phase1 := progress["phase1"].(map[string]any)
	if phase1["completed"].(float64) != 1 || phase1["percentage"].(float64) != 20 {
		t.Fatalf("unexpected phase1 %v", phase1)
	}
	overall := progress["overall"].(map[string]any)
	if overall["percentage"].(float64) != 7 {
		t.Fatalf("unexpected overall %v", overall)
	}
}

func TestChecklist_UpdateErrors(t *testing.T) {
	r := newTestRouter(t)
	createEscrow(t, r, "8 Cedar St")

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown item", "/api/v1/escrows/1/checklist", map[string]any{"item": "nope", "value": true}, http.StatusNotFound, CodeNotFound},
		{"unknown escrow", "/api/v1/escrows/42/checklist", map[string]any{"item": "open_escrow", "value": true}, http.StatusNotFound, CodeNotFound},
		{"missing value", "/api/v1/escrows/1/checklist", map[string]any{"item": "open_escrow"}, http.StatusBadRequest, CodeValidationError},
		{"missing item", "/api/v1/escrows/1/checklist", map[string]any{"value": false}, http.StatusBadRequest, CodeValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, envelope := doJSON(t, r, http.MethodPatch, tt.path, tt.body)
			if w.Code != tt.status || errorCode(envelope) != tt.code {
				t.Fatalf("got %d %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestAddEscrowPerson(t *testing.T) {
	r := newTestRouter(t)
	createEscrow(t, r, "9 Maple St")

	w, envelope := doJSON(t, r, http.MethodPost, "/api/v1/escrows/1/people", map[string]any{
		"person_type": "Buyer", "name": "Dana Reyes", "email": "Dana@Example.com", "phone": "(650) 253-0000",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	person := envelope["data"].(map[string]any)
	if person["person_type"] != "buyer" || person["phone"] != "+16502530000" || person["email"] != "dana@example.com" {
		t.Fatalf("unexpected person %v", person)
	}

	w, envelope = doJSON(t, r, http.MethodGet, "/api/v1/escrows/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	buyer, ok := envelope["data"].(map[string]any)["buyer"].(map[string]any)
	if !ok || buyer["name"] != "Dana Reyes" {
		t.Fatalf("expected buyer slot filled, got %v", envelope["data"].(map[string]any)["buyer"])
	}

	w, envelope = doJSON(t, r, http.MethodPost, "/api/v1/escrows/1/people", map[string]any{
		"person_type": "plumber", "name": "X", "phone": "123",
	})
	if w.Code != http.StatusBadRequest || errorCode(envelope) != CodeValidationError {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)

	w, envelope := doJSON(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := envelope["data"].(map[string]any)
	if data["database"] != "ok" || data["redis"] != "disabled" || data["status"] != "ok" {
		t.Fatalf("unexpected health %v", data)
	}
}

func TestRoutes_UnavailableWithoutDatabase(t *testing.T) {
	prev := config.GetDB()
	config.SetDB(nil)
	t.Cleanup(func() { config.SetDB(prev) })

	r := gin.New()
	RegisterRoutes(r)

	w, _ := doJSON(t, r, http.MethodGet, "/api/v1/escrows", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	w, _ = doJSON(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 health, got %d", w.Code)
	}
	w, envelope := doJSON(t, r, http.MethodGet, "/nope", nil)
	if w.Code != http.StatusNotFound || errorCode(envelope) != CodeNotFound {
		t.Fatalf("expected route 404, got %d", w.Code)
	}
}

func TestCreateEscrow_IdempotencyKey(t *testing.T) {
	r := newTestRouter(t)
	body := map[string]any{"property_address": "12 Retry Ln", "purchase_price": 300000}

	post := func(key string, body any) (*httptest.ResponseRecorder, map[string]any) {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/escrows", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(IdempotencyKeyHeader, key)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		var envelope map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
		return w, envelope
	}

	w, first := post("abc", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, replay := post("abc", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	if w.Header().Get(IdempotentReplayedHeader) != "true" {
		t.Fatalf("expected replay header")
	}
	if first["data"].(map[string]any)["displayId"] != replay["data"].(map[string]any)["displayId"] {
		t.Fatalf("replay returned a different escrow: %v vs %v", first["data"], replay["data"])
	}

	w, envelope := post("abc", map[string]any{"property_address": "13 Retry Ln", "purchase_price": 300000})
	if w.Code != http.StatusUnprocessableEntity || errorCode(envelope) != CodeKeyReused {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}
