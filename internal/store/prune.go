package store

import (
	"context"
	"log/slog"
	"time"
)

// StartPruneWorker runs a background goroutine that periodically trims
// assessment history down to the newest keep entries per user and virtue.
func StartPruneWorker(ctx context.Context, repo Repository, interval time.Duration, keep int) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Prune worker started", "interval", interval, "keep", keep)

		for {
			select {
			case <-ticker.C:
				pruneOnce(ctx, repo, keep)
			case <-ctx.Done():
				slog.Info("Prune worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func pruneOnce(ctx context.Context, repo Repository, keep int) {
	deleted, err := repo.PruneAssessments(ctx, keep)
	if err != nil {
		slog.Error("Prune worker failed", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Prune worker removed old assessments", "count", deleted)
	}
}
