// Package app assembles the prompt pipeline from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/virtue-stages/internal/cache"
	"github.com/ashureev/virtue-stages/internal/config"
	"github.com/ashureev/virtue-stages/internal/defect"
	"github.com/ashureev/virtue-stages/internal/generation"
	"github.com/ashureev/virtue-stages/internal/metrics"
	"github.com/ashureev/virtue-stages/internal/prompt"
	"github.com/ashureev/virtue-stages/internal/stage"
	"github.com/ashureev/virtue-stages/internal/store"
)

// App holds the wired dependencies of the service.
type App struct {
	Config       *config.Config
	Store        store.Repository
	Cache        cache.Cache
	CacheBackend string
	Metrics      *metrics.Metrics
	Composer     prompt.Composer
	Service      *stage.Service

	closers []func() error
}

// New wires the pipeline. A nil backend connects to Gemini using cfg.Gemini.
// An assessment store or Redis cache that cannot be opened is replaced by a
// disabled store or in-process cache so prompts are still served.
func New(ctx context.Context, cfg *config.Config, backend generation.Backend, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Metrics: metrics.New()}

	a.Store = a.openStore(cfg, logger)
	a.Cache, a.CacheBackend = a.openCache(ctx, cfg, logger)

	if backend == nil {
		gemini, err := generation.NewGeminiBackend(ctx, generation.GeminiConfig{
			APIKey:   cfg.Gemini.APIKey,
			Project:  cfg.Gemini.Project,
			Location: cfg.Gemini.Location,
		})
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("initialize generation backend: %w", err)
		}
		logger.Info("Generation backend ready", "backend", gemini.Name())
		backend = gemini
	}

	composer, err := prompt.NewComposer(cfg.Generation.ComposerVersion)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Composer = composer

	exec := generation.NewExecutor(backend, cfg.Generation.Timeout, a.Metrics, logger)
	classifier := defect.NewClassifier(exec, cfg.Generation.Chains.Classification, a.Cache,
		cfg.Generation.RecentPromptWindow, logger)
	selector := defect.NewSelector(classifier, cfg.Generation.ClassifyParallelism, logger)

	svc, err := stage.NewService(stage.Deps{
		Store:          a.Store,
		StoreTimeout:   cfg.Store.Timeout,
		RequestTimeout: cfg.Generation.RequestTimeout,
		Selector:       selector,
		Composer:       composer,
		Executor:       exec,
		Chain:          cfg.Generation.Chains.Prompt,
		Observer:       a.Metrics,
		Logger:         logger,
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("initialize stage service: %w", err)
	}
	a.Service = svc

	return a, nil
}

func (a *App) openStore(cfg *config.Config, logger *slog.Logger) store.Repository {
	if !cfg.Store.Enabled {
		logger.Info("Assessment store disabled")
		return store.Disabled{}
	}
	repo, err := store.NewSQLite(cfg.Store.DBPath)
	if err != nil {
		logger.Warn("Assessment store unavailable, ratings lookup disabled", "error", err, "path", cfg.Store.DBPath)
		return store.Disabled{}
	}
	a.closers = append(a.closers, repo.Close)
	logger.Info("Assessment store connected", "path", cfg.Store.DBPath)
	return repo
}

func (a *App) openCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Cache, string) {
	if cfg.Cache.RedisAddr != "" {
		r, err := cache.NewRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.TTL)
		if err == nil {
			a.closers = append(a.closers, r.Close)
			logger.Info("Coverage cache using Redis", "addr", cfg.Cache.RedisAddr)
			return r, "redis"
		}
		logger.Warn("Redis unavailable, using in-process coverage cache", "error", err)
	}
	size := cfg.Cache.Size
	if size <= 0 {
		size = 512
	}
	return cache.NewMemory(size, cfg.Cache.TTL), "memory"
}

// Close releases the store and cache connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
