package api

import (
	"encoding/json"
	"net/http"
)

// envelope is the uniform response body shape: {"message", ...} on success,
// {"error"} on failure.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// writeEnvelope always answers 200; the body is the sole error channel on the
// action endpoint.
func writeEnvelope(w http.ResponseWriter, body envelope) {
	writeJSON(w, http.StatusOK, body)
}
