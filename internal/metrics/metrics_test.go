package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/virtue-stages/internal/generation"
)

func TestObserveAttempt(t *testing.T) {
	m := New()

	m.ObserveAttempt(generation.PurposePrompt, "gemini-2.5-flash", 120*time.Millisecond, nil)
	m.ObserveAttempt(generation.PurposePrompt, "gemini-2.5-flash", time.Second, errors.New("timeout"))
	m.ObserveAttempt(generation.PurposeClassification, "gemini-2.0-flash-lite", time.Second, errors.New("quota"))
	m.ObserveExhausted(generation.PurposeClassification)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationAttempts.WithLabelValues("prompt", "gemini-2.5-flash", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationAttempts.WithLabelValues("prompt", "gemini-2.5-flash", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChainsExhausted.WithLabelValues("classification")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ChainsExhausted.WithLabelValues("prompt")))
}

func TestStageCounters(t *testing.T) {
	m := New()
	m.ObserveSelection("focus")
	m.ObserveSelection("focus")
	m.ObserveSelection("complete")
	m.ObserveFallback()
	m.ObserveStoreFailure()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Selections.WithLabelValues("focus")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Selections.WithLabelValues("complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fallbacks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreFailures))
}

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/health", "204")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "virtue_stages_http_requests_total"))
}
