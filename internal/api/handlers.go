package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"fieldlog/internal/blob"
	"fieldlog/internal/observability/metrics"
	"fieldlog/internal/tabular"
)

// Handler wires the action router and sheet reads to the injected stores.
type Handler struct {
	Store           tabular.Store
	Blobs           blob.Store
	Logger          *slog.Logger
	Metrics         *metrics.Recorder
	MeetingIDPrefix string

	// now is swappable by tests that assert on the Uploaded On column.
	now   func() time.Time
	locks *sheetLocks
}

// NewHandler builds a Handler around the given stores. Logger, Metrics, and
// MeetingIDPrefix may be assigned afterwards; sensible defaults apply when
// they are left empty.
func NewHandler(store tabular.Store, blobs blob.Store) *Handler {
	if blobs == nil {
		blobs = blob.NewStore(blob.Config{})
	}
	return &Handler{
		Store: store,
		Blobs: blobs,
		now:   time.Now,
		locks: newSheetLocks(),
	}
}

func (h *Handler) idPrefix() string {
	if h.MeetingIDPrefix != "" {
		return h.MeetingIDPrefix
	}
	return tabular.DefaultMeetingIDPrefix
}

func (h *Handler) timeNow() time.Time {
	if h.now == nil {
		return time.Now()
	}
	return h.now()
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *Handler) recorder() *metrics.Recorder {
	if h.Metrics != nil {
		return h.Metrics
	}
	return metrics.Default()
}

// Exec serves the action endpoint: OPTIONS preflight, GET sheet reads, and
// POST action dispatch. Every response is HTTP 200 with a JSON body; errors
// ride in the envelope.
func (h *Handler) Exec(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		// CORS headers come from the server middleware; preflight just needs
		// an empty 200.
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		h.readSheet(w, r)
	case http.MethodPost:
		h.post(w, r)
	default:
		writeEnvelope(w, envelope{"error": "method not allowed: " + r.Method})
	}
}

func (h *Handler) readSheet(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("sheet")
	if name == "" {
		writeEnvelope(w, envelope{"error": "sheet parameter is required"})
		return
	}
	rows, err := h.Store.Rows(r.Context(), name)
	if errors.Is(err, tabular.ErrSheetNotFound) {
		writeJSON(w, http.StatusOK, [][]string{})
		return
	}
	if err != nil {
		h.recorder().ObserveStorageError(name)
		h.logger().Error("sheet read failed", "sheet", name, "error", err)
		writeEnvelope(w, envelope{"error": "failed to read sheet: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	action, params, err := parseRequest(r)
	if err != nil {
		writeEnvelope(w, envelope{"error": err.Error()})
		return
	}
	writeEnvelope(w, h.dispatch(r.Context(), action, params))
}

// Health reports datastore reachability. Unlike the action endpoint, this is
// an operational probe and keeps ordinary status-code semantics.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
