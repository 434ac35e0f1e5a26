package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"fieldlog/internal/api"
	"fieldlog/internal/observability/metrics"
	"fieldlog/internal/tabular"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sheets.json")
	store, err := tabular.NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore error: %v", err)
	}
	handler := api.NewHandler(store, nil)
	handler.Metrics = metrics.New()
	srv, err := New(handler, Config{Metrics: handler.Metrics})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return srv
}

func TestNewReturnsErrorWhenHandlerNil(t *testing.T) {
	t.Parallel()

	srv, err := New(nil, Config{})
	if err == nil {
		t.Fatalf("expected error when handler is nil, got server: %#v", srv)
	}
}

func TestActionEndpointThroughFullChain(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]any{
		"action":       "add_meeting",
		"meetingTitle": "Zone sync",
	})
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow origin = %q", got)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request ID header")
	}

	var response map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response["meetingId"] != "BCIEINM001" {
		t.Fatalf("meetingId = %v", response["meetingId"])
	}
}

func TestPreflightShortCircuitsBeforeDispatch(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://minutes.example.org")
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rec.Body.String())
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
		t.Fatalf("allow methods = %q", got)
	}
}

func TestHealthzServed(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpointReflectsTraffic(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/?sheet=Meetings", nil)
	srv.httpServer.Handler.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `fieldlog_http_requests_total{method="GET",path="/",status="200"} 1`) {
		t.Fatalf("missing request sample:\n%s", rec.Body.String())
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("X-Frame-Options = %q", got)
	}
}
