package core

// scheduler.go runs periodic full synchronizations.
//
// The scheduler is long-running and context-aware for graceful shutdown.
// A tick that finds a run already active (for example one triggered over
// HTTP) is skipped rather than queued. Failed runs are logged and never
// stop the scheduler.

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// StartScheduler runs a full sync immediately and then every interval
// until ctx is cancelled. It blocks; call it in its own goroutine.
func (s *Service) StartScheduler(ctx context.Context, interval time.Duration) {
	slog.Info("sync scheduler started",
		"interval", interval.String(),
		"partitions", len(s.opts.Partitions),
	)

	s.runScheduled(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sync scheduler stopped")
			return
		case <-ticker.C:
			s.runScheduled(ctx)
		}
	}
}

// runScheduled performs one scheduled sync.
func (s *Service) runScheduled(ctx context.Context) {
	report, err := s.Sync(ctx, SyncRequest{})
	if errors.Is(err, ErrSyncInProgress) {
		slog.Info("scheduled sync skipped, a run is already active")
		return
	}
	if err != nil {
		slog.Error("scheduled sync failed", "error", err)
		return
	}

	level := slog.LevelInfo
	if !report.Success {
		level = slog.LevelWarn
	}
	slog.Log(ctx, level, "scheduled sync finished",
		"run_id", report.RunID,
		"message", report.Message,
		"duration_ms", report.DurationMs,
	)
}
