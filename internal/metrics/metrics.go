// Package metrics exposes Prometheus instrumentation for prompt generation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ashureev/virtue-stages/internal/generation"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	registry *prometheus.Registry

	// Generation metrics
	GenerationAttempts *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	ChainsExhausted    *prometheus.CounterVec

	// Stage metrics
	Selections    *prometheus.CounterVec
	Fallbacks     prometheus.Counter
	StoreFailures prometheus.Counter

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

var _ generation.Observer = (*Metrics)(nil)

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		GenerationAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "virtue_stages_generation_attempts_total",
				Help: "Model attempts by purpose, candidate and result",
			},
			[]string{"purpose", "model", "result"},
		),
		GenerationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "virtue_stages_generation_duration_seconds",
				Help:    "Duration of individual model attempts in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 9), // 100ms to 25.6s
			},
			[]string{"purpose", "model"},
		),
		ChainsExhausted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "virtue_stages_generation_chain_exhausted_total",
				Help: "Generation requests where every candidate failed",
			},
			[]string{"purpose"},
		),
		Selections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "virtue_stages_selections_total",
				Help: "Defect selections by outcome kind",
			},
			[]string{"kind"},
		),
		Fallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "virtue_stages_fallback_prompts_total",
			Help: "Prompts answered with static fallback text",
		}),
		StoreFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "virtue_stages_store_failures_total",
			Help: "Assessment store lookups that failed or timed out",
		}),
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "virtue_stages_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "virtue_stages_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAttempt implements generation.Observer.
func (m *Metrics) ObserveAttempt(purpose generation.Purpose, candidateID string, d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.GenerationAttempts.WithLabelValues(string(purpose), candidateID, result).Inc()
	m.GenerationDuration.WithLabelValues(string(purpose), candidateID).Observe(d.Seconds())
}

// ObserveExhausted implements generation.Observer.
func (m *Metrics) ObserveExhausted(purpose generation.Purpose) {
	m.ChainsExhausted.WithLabelValues(string(purpose)).Inc()
}

// ObserveSelection counts a defect selection outcome.
func (m *Metrics) ObserveSelection(kind string) {
	m.Selections.WithLabelValues(kind).Inc()
}

// ObserveFallback counts a static fallback response.
func (m *Metrics) ObserveFallback() {
	m.Fallbacks.Inc()
}

// ObserveStoreFailure counts a failed assessment lookup.
func (m *Metrics) ObserveStoreFailure() {
	m.StoreFailures.Inc()
}

// Middleware instruments HTTP request counts and latency by route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
