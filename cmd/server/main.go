// Virtue Stages - dismantling prompt server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/virtue-stages/internal/api"
	"github.com/ashureev/virtue-stages/internal/app"
	"github.com/ashureev/virtue-stages/internal/config"
	"github.com/ashureev/virtue-stages/internal/middleware"
	"github.com/ashureev/virtue-stages/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server",
		"port", cfg.Port,
		"dev", cfg.IsDevelopment(),
		"composer", cfg.Generation.ComposerVersion,
		"prompt_chain", cfg.Generation.Chains.Prompt.IDs())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	a, err := app.New(ctx, cfg, nil, logger)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Error("Failed to close dependencies", "error", closeErr)
		}
	}()

	// Initialize handlers.
	baseHandler := api.NewHandler(cfg.IsDevelopment())
	stageHandler := api.NewStageHandler(baseHandler, a.Service, cfg.MaxRequestBodyBytes)
	healthHandler := api.NewHealthHandler(a.Store, api.HealthInfo{
		ComposerVersion:     a.Composer.Version(),
		PromptChain:         cfg.Generation.Chains.Prompt.IDs(),
		ClassificationChain: cfg.Generation.Chains.Classification.IDs(),
		CacheBackend:        a.CacheBackend,
	})

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.MetricsEnabled {
		r.Use(a.Metrics.Middleware)
	}

	healthHandler.RegisterRoutes(r)
	if cfg.MetricsEnabled {
		r.Handle("/metrics", a.Metrics.Handler())
	}
	stageHandler.RegisterRoutes(r)

	// Generate finishes, fallback included, within REQUEST_TIMEOUT.
	writeTimeout := cfg.Generation.RequestTimeout + 10*time.Second
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start prune worker.
	if _, disabled := a.Store.(store.Disabled); !disabled {
		store.StartPruneWorker(ctx, a.Store, cfg.Store.PruneInterval, cfg.Store.Retention)
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
