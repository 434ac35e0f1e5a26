package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRespectsCustomWriter(t *testing.T) {
	var buf bytes.Buffer

	logger := New(Config{Writer: &buf})
	logger.Info("custom writer")

	if buf.Len() == 0 {
		t.Fatalf("expected output in custom writer, got none")
	}
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected slog.Level
	}{
		{name: "debug", input: "debug", expected: slog.LevelDebug},
		{name: "warning", input: "warning", expected: slog.LevelWarn},
		{name: "warn", input: "warn", expected: slog.LevelWarn},
		{name: "error", input: "error", expected: slog.LevelError},
		{name: "info", input: "info", expected: slog.LevelInfo},
		{name: "empty", input: "", expected: slog.LevelInfo},
		{name: "mixed case", input: " DeBuG ", expected: slog.LevelDebug},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			leveler := parseLevel(tc.input)
			if leveler == nil {
				t.Fatalf("expected leveler, got nil")
			}
			if got := leveler.Level(); got != tc.expected {
				t.Fatalf("level = %v, want %v", got, tc.expected)
			}
		})
	}
}

func TestTextFormatSelectsTextHandler(t *testing.T) {
	var buf bytes.Buffer

	logger := New(Config{Writer: &buf, Format: "text"})
	logger.Info("plain message")

	output := buf.String()
	if strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Fatalf("expected text output, got JSON: %s", output)
	}
	if !strings.Contains(output, "plain message") {
		t.Fatalf("missing message in output: %s", output)
	}
}

func TestWithComponentAnnotatesRecords(t *testing.T) {
	var buf bytes.Buffer

	logger := WithComponent(New(Config{Writer: &buf}), "tabular")
	logger.Info("sheet loaded")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log record: %v", err)
	}
	if record["component"] != "tabular" {
		t.Fatalf("component = %v", record["component"])
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), " req-42 ")
	id, ok := RequestIDFromContext(ctx)
	if !ok || id != "req-42" {
		t.Fatalf("request ID = %q, ok = %v", id, ok)
	}

	if _, ok := RequestIDFromContext(context.Background()); ok {
		t.Fatal("expected no request ID on a fresh context")
	}
	if ctx := ContextWithRequestID(context.Background(), "   "); ctx != context.Background() {
		t.Fatal("blank IDs should leave the context untouched")
	}
}

func TestWithContextAddsRequestID(t *testing.T) {
	var buf bytes.Buffer

	ctx := ContextWithRequestID(context.Background(), "req-7")
	logger := WithContext(ctx, New(Config{Writer: &buf}))
	logger.Info("annotated")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log record: %v", err)
	}
	if record["request_id"] != "req-7" {
		t.Fatalf("request_id = %v", record["request_id"])
	}
}

func TestRequestLoggerCapturesStatusAndPath(t *testing.T) {
	var buf bytes.Buffer

	middleware := RequestLogger(RequestLoggerConfig{
		Logger:            New(Config{Writer: &buf}),
		DisableRemoteAddr: true,
	})
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log record: %v", err)
	}
	if record["path"] != "/healthz" {
		t.Fatalf("path = %v", record["path"])
	}
	if status, _ := record["status"].(float64); int(status) != http.StatusServiceUnavailable {
		t.Fatalf("status = %v", record["status"])
	}
	if _, present := record["remote_addr"]; present {
		t.Fatal("remote_addr should be suppressed")
	}
}
