package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/virtue-stages/internal/store"
)

const healthPingTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthInfo is static information reported by the health endpoint.
type HealthInfo struct {
	ComposerVersion     string   `json:"composerVersion"`
	PromptChain         []string `json:"promptChain"`
	ClassificationChain []string `json:"classificationChain"`
	CacheBackend        string   `json:"cacheBackend"`
}

// HealthHandler reports service health.
type HealthHandler struct {
	store Pinger
	info  HealthInfo
}

// NewHealthHandler creates a health handler. A nil store reports as disabled.
func NewHealthHandler(s Pinger, info HealthInfo) *HealthHandler {
	return &HealthHandler{store: s, info: info}
}

// RegisterRoutes registers health routes.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/health", h.Health)
}

type healthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	HealthInfo
}

// Health returns 200 while the service can answer prompts. A failing store
// only degrades personalization, so it is reported without failing the check.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Store: "disabled", HealthInfo: h.info}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		switch err := h.store.Ping(ctx); {
		case err == nil:
			resp.Store = "ok"
		case errors.Is(err, store.ErrUnavailable):
			resp.Store = "disabled"
		default:
			slog.Warn("Health check: assessment store unreachable", "error", err)
			resp.Status = "degraded"
			resp.Store = "unavailable"
		}
	}

	JSON(w, http.StatusOK, resp)
}
