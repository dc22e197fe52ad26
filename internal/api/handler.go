// Package api provides HTTP handlers for the prompt API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Handler provides common handler utilities.
type Handler struct {
	development bool
}

// NewHandler creates a new Handler. In development mode server errors carry
// their underlying detail.
func NewHandler(development bool) *Handler {
	return &Handler{development: development}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// serverError logs err and writes an opaque 500.
func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("Request failed", "error", err, "path", r.URL.Path)
	body := map[string]string{"error": "Internal server error"}
	if h.development {
		body["detail"] = err.Error()
	}
	JSON(w, http.StatusInternalServerError, body)
}
