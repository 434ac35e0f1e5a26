package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowRequestWithoutGlobalLimit(t *testing.T) {
	rl, err := newRateLimiter(RateLimitConfig{})
	if err != nil {
		t.Fatalf("newRateLimiter: %v", err)
	}
	for i := 0; i < 100; i++ {
		if !rl.AllowRequest() {
			t.Fatal("unlimited limiter should always allow")
		}
	}
}

func TestGlobalBucketExhausts(t *testing.T) {
	rl, err := newRateLimiter(RateLimitConfig{GlobalRPS: 1, GlobalBurst: 2})
	if err != nil {
		t.Fatalf("newRateLimiter: %v", err)
	}
	if !rl.AllowRequest() || !rl.AllowRequest() {
		t.Fatal("burst allowance should admit the first two requests")
	}
	if rl.AllowRequest() {
		t.Fatal("third immediate request should be rejected")
	}
}

func TestAllowWritePerKey(t *testing.T) {
	rl, err := newRateLimiter(RateLimitConfig{WriteLimit: 2, WriteWindow: time.Minute})
	if err != nil {
		t.Fatalf("newRateLimiter: %v", err)
	}

	for i := 0; i < 2; i++ {
		allowed, _, err := rl.AllowWrite("10.0.0.1")
		if err != nil || !allowed {
			t.Fatalf("write %d: allowed=%v err=%v", i+1, allowed, err)
		}
	}
	allowed, retry, err := rl.AllowWrite("10.0.0.1")
	if err != nil {
		t.Fatalf("AllowWrite: %v", err)
	}
	if allowed {
		t.Fatal("third write from the same key should be throttled")
	}
	if retry <= 0 {
		t.Fatalf("retry hint = %v, want positive", retry)
	}

	// A different client key keeps its own budget.
	allowed, _, err = rl.AllowWrite("10.0.0.2")
	if err != nil || !allowed {
		t.Fatalf("other key should be admitted: allowed=%v err=%v", allowed, err)
	}
}

func TestRateLimitMiddlewareSetsRetryAfter(t *testing.T) {
	rl, err := newRateLimiter(RateLimitConfig{WriteLimit: 1, WriteWindow: time.Minute})
	if err != nil {
		t.Fatalf("newRateLimiter: %v", err)
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := rateLimitMiddleware(rl, nil, next)

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.1.2.3:5000"
	handler.ServeHTTP(first, req)
	if first.Code != http.StatusOK {
		t.Fatalf("first write status = %d", first.Code)
	}

	second := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.1.2.3:5001"
	handler.ServeHTTP(second, req)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second write status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on throttled response")
	}
}

func TestRateLimitMiddlewareIgnoresReads(t *testing.T) {
	rl, err := newRateLimiter(RateLimitConfig{WriteLimit: 1, WriteWindow: time.Minute})
	if err != nil {
		t.Fatalf("newRateLimiter: %v", err)
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := rateLimitMiddleware(rl, nil, next)

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/?sheet=Meetings", nil)
		req.RemoteAddr = "10.1.2.3:5000"
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("read %d status = %d", i+1, rec.Code)
		}
	}
}

func TestExtractClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.9:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 192.0.2.9")
	if got := extractClientIP(req); got != "203.0.113.7" {
		t.Fatalf("client ip = %q", got)
	}

	req.Header.Del("X-Forwarded-For")
	if got := extractClientIP(req); got != "192.0.2.9" {
		t.Fatalf("client ip = %q", got)
	}
}
