package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestObserveRequestAccumulates(t *testing.T) {
	recorder := New()
	recorder.ObserveRequest("get", "/?sheet=Meetings", 200, 30*time.Millisecond)
	recorder.ObserveRequest("GET", "/", 200, 20*time.Millisecond)

	var out strings.Builder
	recorder.Write(&out)
	body := out.String()
	if !strings.Contains(body, `fieldlog_http_requests_total{method="GET",path="/",status="200"} 2`) {
		t.Fatalf("expected merged request counter, got:\n%s", body)
	}
	if !strings.Contains(body, `fieldlog_http_request_duration_seconds_sum{method="GET",path="/",status="200"} 0.05`) {
		t.Fatalf("expected summed duration, got:\n%s", body)
	}
}

func TestObserveActionNormalizesLabels(t *testing.T) {
	recorder := New()
	recorder.ObserveAction("Add_Meeting", "OK")
	recorder.ObserveAction("add_meeting", "ok")
	recorder.ObserveAction("", "error")

	counts := recorder.ActionCounts()
	if counts["add_meeting/ok"] != 2 {
		t.Fatalf("add_meeting/ok = %d, want 2", counts["add_meeting/ok"])
	}
	if counts["unknown/error"] != 1 {
		t.Fatalf("unknown/error = %d, want 1", counts["unknown/error"])
	}
}

func TestObserveUploadTotals(t *testing.T) {
	recorder := New()
	recorder.ObserveUpload(1024)
	recorder.ObserveUpload(512)
	recorder.ObserveUpload(-1)

	count, bytes := recorder.UploadTotals()
	if count != 3 {
		t.Fatalf("upload count = %d, want 3", count)
	}
	if bytes != 1536 {
		t.Fatalf("upload bytes = %d, want 1536", bytes)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	recorder := New()
	recorder.ObserveStorageError("Weekly Status")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	res := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(res, req)

	if got := res.Header().Get("Content-Type"); got != "text/plain; version=0.0.4" {
		t.Fatalf("content type = %q", got)
	}
	if !strings.Contains(res.Body.String(), `fieldlog_storage_errors_total{sheet="weekly_status"} 1`) {
		t.Fatalf("missing storage error sample:\n%s", res.Body.String())
	}
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	recorder := New()
	handler := HTTPMiddleware(recorder, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var out strings.Builder
	recorder.Write(&out)
	if !strings.Contains(out.String(), `fieldlog_http_requests_total{method="GET",path="/healthz",status="503"} 1`) {
		t.Fatalf("missing request sample:\n%s", out.String())
	}
}
