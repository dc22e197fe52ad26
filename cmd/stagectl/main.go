package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/ashureev/virtue-stages/internal/app"
	"github.com/ashureev/virtue-stages/internal/cli"
	"github.com/ashureev/virtue-stages/internal/config"
	"github.com/ashureev/virtue-stages/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var repo store.Repository = store.Disabled{}
	if cfg.Store.Enabled {
		sqlite, err := store.NewSQLite(cfg.Store.DBPath)
		if err != nil {
			return fmt.Errorf("open assessment store: %w", err)
		}
		defer func() { _ = sqlite.Close() }()
		repo = sqlite
	}

	var pipeline *app.App
	defer func() {
		if pipeline != nil {
			_ = pipeline.Close()
		}
	}()

	root := cli.NewRootCmd(&cli.App{
		Store: repo,
		NewGenerator: func(ctx context.Context) (cli.PromptGenerator, error) {
			a, err := app.New(ctx, cfg, nil, logger)
			if err != nil {
				return nil, err
			}
			pipeline = a
			return a.Service, nil
		},
	})
	return root.ExecuteContext(ctx)
}
