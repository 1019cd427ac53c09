package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"factored/internal/catalog"
	"factored/internal/counter"
	"factored/internal/orchestrator"
	"factored/internal/store/memstore"

	"github.com/golang-jwt/jwt/v5"
)

func testCatalogs() *catalog.Catalogs {
	return &catalog.Catalogs{
		Fields: []catalog.FieldEntry{
			{
				Src: "s", Dst: "status", MessageTypes: []int{61},
				Generator: &catalog.Generator{Type: catalog.GenEnum, Values: []any{"active", "closed"}},
			},
		},
		Indexes: []catalog.IndexEntry{
			{FieldName: "status", DateName: "occurred", IndexTypeName: "statusIdx", IndexType: 1, IndexValue: catalog.IndexValueHash},
		},
		Counters: []catalog.CounterEntry{
			{
				Name:                  "activeCount",
				ComputationConditions: map[string]any{"t": float64(61)},
				EvaluationConditions:  map[string]any{},
				Attributes:            map[string]any{"cnt": map[string]any{"$sum": float64(1)}},
			},
		},
	}
}

func newTestServer(authSecret []byte) *Server {
	catalogs := testCatalogs()
	producer := counter.New(catalogs, nil, nil)
	gw := memstore.New()
	orch := orchestrator.New(catalogs, nil, producer, gw, nil, nil)
	orch.SetClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) })

	return New(Config{
		Catalogs:   catalogs,
		Orch:       orch,
		AuthSecret: authSecret,
	})
}

func TestHandleIngestHappyPath(t *testing.T) {
	s := newTestServer(nil)
	body := bytes.NewBufferString(`{"status":"active","occurred":"2024-01-01T00:00:00Z"}`)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/message/61/json", body)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp ingestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID == "" {
		t.Error("expected non-empty fact id")
	}
	if rows, ok := resp.Counters["activeCount"]; !ok || len(rows) != 1 {
		t.Errorf("counters = %v, want activeCount with one row", resp.Counters)
	}
}

func TestHandleIngestRejectsMalformedType(t *testing.T) {
	s := newTestServer(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/message/not-a-number/json", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleIngestRejectsUnknownMessageType(t *testing.T) {
	s := newTestServer(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/message/999/json", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandlePreviewGeneratesFromCatalog(t *testing.T) {
	s := newTestServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/message/61/json", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	d, ok := payload["d"].(map[string]any)
	if !ok {
		t.Fatalf("expected d object, got %v", payload)
	}
	if _, ok := d["status"]; !ok {
		t.Errorf("expected generated status field, got %v", d)
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	pid, ok := payload["pid"].(float64)
	if !ok || pid <= 0 {
		t.Errorf("pid = %v, want a positive process id", payload["pid"])
	}
	if _, ok := payload["uptimeSeconds"].(float64); !ok {
		t.Errorf("uptimeSeconds = %v, want a number", payload["uptimeSeconds"])
	}
}

func TestAuthGateRejectsMissingToken(t *testing.T) {
	s := newTestServer([]byte("shh"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/message/61/json", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthGateAcceptsValidToken(t *testing.T) {
	secret := []byte("shh")
	s := newTestServer(secret)

	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/message/61/json", bytes.NewBufferString(`{"status":"active","occurred":"2024-01-01T00:00:00Z"}`))
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestAuthDisabledWhenNoSecretConfigured(t *testing.T) {
	s := newTestServer(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/message/61/json", bytes.NewBufferString(`{"status":"active","occurred":"2024-01-01T00:00:00Z"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with auth disabled", rec.Code)
	}
}
