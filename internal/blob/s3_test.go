package blob

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type memoryS3Server struct {
	mu      sync.Mutex
	objects map[string][]byte
	headers []http.Header
}

func newMemoryS3Server() *memoryS3Server {
	return &memoryS3Server{objects: make(map[string][]byte)}
}

func (m *memoryS3Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		_ = r.Body.Close()
	}()
	if r.Method != http.MethodPut {
		http.Error(w, "unsupported method", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body", http.StatusInternalServerError)
		return
	}
	m.mu.Lock()
	m.objects[r.URL.Path] = append([]byte(nil), body...)
	m.headers = append(m.headers, r.Header.Clone())
	m.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (m *memoryS3Server) object(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[path]
	return data, ok
}

func (m *memoryS3Server) lastHeader() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.headers) == 0 {
		return http.Header{}
	}
	return m.headers[len(m.headers)-1]
}

func newTestStore(t *testing.T, backend *memoryS3Server, mutate func(*Config)) Store {
	t.Helper()
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)
	cfg := Config{
		Endpoint:  server.URL,
		Bucket:    "fieldlog-media",
		AccessKey: "test-access",
		SecretKey: "test-secret",
		Region:    "ap-south-1",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewStore(cfg)
}

func TestUploadStoresObjectWithPublicReadACL(t *testing.T) {
	backend := newMemoryS3Server()
	store := newTestStore(t, backend, nil)
	if !store.Enabled() {
		t.Fatal("expected configured store to be enabled")
	}

	url, err := store.Upload(context.Background(), "pump.jpg", "image/jpeg", []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasSuffix(url, "/fieldlog-media/pump.jpg") {
		t.Fatalf("unexpected public URL %q", url)
	}

	data, ok := backend.object("/fieldlog-media/pump.jpg")
	if !ok {
		t.Fatal("object was not stored")
	}
	if string(data) != "jpeg-bytes" {
		t.Fatalf("stored payload = %q", data)
	}

	header := backend.lastHeader()
	if got := header.Get("x-amz-acl"); got != "public-read" {
		t.Fatalf("x-amz-acl = %q, want public-read", got)
	}
	if got := header.Get("Content-Type"); got != "image/jpeg" {
		t.Fatalf("Content-Type = %q", got)
	}
	if header.Get("Authorization") == "" {
		t.Fatal("expected SigV4 Authorization header")
	}
	if header.Get("X-Amz-Content-Sha256") == "" {
		t.Fatal("expected payload hash header")
	}
}

func TestUploadAppliesPrefixAndPublicEndpoint(t *testing.T) {
	backend := newMemoryS3Server()
	store := newTestStore(t, backend, func(cfg *Config) {
		cfg.Prefix = "media"
		cfg.PublicEndpoint = "https://files.example.org"
	})

	url, err := store.Upload(context.Background(), "week1/pump.jpg", "image/jpeg", []byte("x"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://files.example.org/media/week1/pump.jpg" {
		t.Fatalf("public URL = %q", url)
	}
	if _, ok := backend.object("/fieldlog-media/media/week1/pump.jpg"); !ok {
		t.Fatal("prefixed object was not stored")
	}
}

func TestUploadSurfacesBackendFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)
	store := NewStore(Config{Endpoint: server.URL, Bucket: "fieldlog-media"})

	if _, err := store.Upload(context.Background(), "pump.jpg", "image/jpeg", []byte("x")); err == nil {
		t.Fatal("expected upload error on 403")
	}
}

func TestUnconfiguredStoreIsDisabled(t *testing.T) {
	store := NewStore(Config{})
	if store.Enabled() {
		t.Fatal("expected noop store to be disabled")
	}
	if _, err := store.Upload(context.Background(), "a", "text/plain", nil); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}
