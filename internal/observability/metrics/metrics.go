package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

type actionLabel struct {
	action  string
	outcome string
}

// Recorder aggregates in-memory counters for HTTP requests, dispatched
// actions, and media uploads. It coordinates concurrent writers via a RWMutex
// and renders Prometheus text exposition on demand.
type Recorder struct {
	mu              sync.RWMutex
	requestCount    map[requestLabel]uint64
	requestDuration map[requestLabel]time.Duration
	actionEvents    map[actionLabel]uint64
	uploadCount     uint64
	uploadBytes     uint64
	storageErrors   map[string]uint64
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps so callers
// can immediately record metrics without additional setup.
func New() *Recorder {
	return &Recorder{
		requestCount:    make(map[requestLabel]uint64),
		requestDuration: make(map[requestLabel]time.Duration),
		actionEvents:    make(map[actionLabel]uint64),
		storageErrors:   make(map[string]uint64),
	}
}

// Default returns the singleton Recorder shared by packages that do not
// require a custom instrumentation pipeline.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest accumulates request count and cumulative duration keyed by
// HTTP method, path, and status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// ObserveAction records a dispatched action keyed by action name and outcome
// ("ok", "error", or "unknown").
func (r *Recorder) ObserveAction(action, outcome string) {
	label := actionLabel{
		action:  normalizeName(action),
		outcome: normalizeName(outcome),
	}
	r.mu.Lock()
	r.actionEvents[label]++
	r.mu.Unlock()
}

// ObserveUpload records one stored media object and its decoded payload size.
func (r *Recorder) ObserveUpload(bytes int) {
	r.mu.Lock()
	r.uploadCount++
	if bytes > 0 {
		r.uploadBytes += uint64(bytes)
	}
	r.mu.Unlock()
}

// ObserveStorageError counts a failed tabular storage operation keyed by
// sheet name.
func (r *Recorder) ObserveStorageError(sheet string) {
	name := normalizeName(sheet)
	r.mu.Lock()
	r.storageErrors[name]++
	r.mu.Unlock()
}

// ActionCounts returns a copy of the action counters keyed by
// "action/outcome" for reporting and tests.
func (r *Recorder) ActionCounts() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]uint64, len(r.actionEvents))
	for label, count := range r.actionEvents {
		counts[label.action+"/"+label.outcome] = count
	}
	return counts
}

// UploadTotals returns the number of stored uploads and their cumulative
// decoded size in bytes.
func (r *Recorder) UploadTotals() (count, bytes uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.uploadCount, r.uploadBytes
}

// Reset clears all counters on the recorder. It is intended for test setups.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.actionEvents = make(map[actionLabel]uint64)
	r.storageErrors = make(map[string]uint64)
	r.uploadCount = 0
	r.uploadBytes = 0
}

// Handler exposes the Recorder as an http.Handler that writes Prometheus text
// exposition data with the appropriate content type.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the Recorder's metrics in Prometheus text format, sorting
// label sets to provide stable output for scrapes and tests.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requestLabels := r.sortedRequestLabels()
	actionLabels := r.sortedActionLabels()
	sheets := r.sortedStorageSheets()

	fmt.Fprintln(w, "# HELP fieldlog_http_requests_total Total number of HTTP requests processed by the API")
	fmt.Fprintln(w, "# TYPE fieldlog_http_requests_total counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "fieldlog_http_requests_total{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP fieldlog_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds")
	fmt.Fprintln(w, "# TYPE fieldlog_http_request_duration_seconds_sum counter")
	for _, label := range requestLabels {
		duration := r.requestDuration[label].Seconds()
		fmt.Fprintf(w, "fieldlog_http_request_duration_seconds_sum{method=\"%s\",path=\"%s\",status=\"%s\"} %f\n", label.method, label.path, label.status, duration)
	}

	fmt.Fprintln(w, "# HELP fieldlog_http_request_duration_seconds_count Total number of observations for request durations")
	fmt.Fprintln(w, "# TYPE fieldlog_http_request_duration_seconds_count counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "fieldlog_http_request_duration_seconds_count{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP fieldlog_actions_total Dispatched actions by name and outcome")
	fmt.Fprintln(w, "# TYPE fieldlog_actions_total counter")
	for _, label := range actionLabels {
		count := r.actionEvents[label]
		fmt.Fprintf(w, "fieldlog_actions_total{action=\"%s\",outcome=\"%s\"} %d\n", label.action, label.outcome, count)
	}

	fmt.Fprintln(w, "# HELP fieldlog_media_uploads_total Media objects stored in the blob sink")
	fmt.Fprintln(w, "# TYPE fieldlog_media_uploads_total counter")
	fmt.Fprintf(w, "fieldlog_media_uploads_total %d\n", r.uploadCount)

	fmt.Fprintln(w, "# HELP fieldlog_media_upload_bytes_total Cumulative decoded size of stored media objects")
	fmt.Fprintln(w, "# TYPE fieldlog_media_upload_bytes_total counter")
	fmt.Fprintf(w, "fieldlog_media_upload_bytes_total %d\n", r.uploadBytes)

	fmt.Fprintln(w, "# HELP fieldlog_storage_errors_total Failed tabular storage operations by sheet")
	fmt.Fprintln(w, "# TYPE fieldlog_storage_errors_total counter")
	for _, sheet := range sheets {
		count := r.storageErrors[sheet]
		fmt.Fprintf(w, "fieldlog_storage_errors_total{sheet=\"%s\"} %d\n", sheet, count)
	}
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func (r *Recorder) sortedActionLabels() []actionLabel {
	labels := make([]actionLabel, 0, len(r.actionEvents))
	for label := range r.actionEvents {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].action != labels[j].action {
			return labels[i].action < labels[j].action
		}
		return labels[i].outcome < labels[j].outcome
	})
	return labels
}

func (r *Recorder) sortedStorageSheets() []string {
	sheets := make([]string, 0, len(r.storageErrors))
	for sheet := range r.storageErrors {
		sheets = append(sheets, sheet)
	}
	sort.Strings(sheets)
	return sheets
}

// normalizePath strips query strings and trailing slashes so the small fixed
// route set stays a small fixed label set.
func normalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	if idx := strings.Index(path, "?"); idx >= 0 {
		path = path[:idx]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

func normalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
