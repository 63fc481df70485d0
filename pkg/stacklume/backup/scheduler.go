package backup

import (
	"context"
	"log/slog"
	"time"

	"github.com/mikepea/stacklume/pkg/stacklume/models"
)

// Scheduler takes an automatic snapshot of every account on a fixed interval.
type Scheduler struct {
	svc      *Service
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler. An interval of zero disables it.
func NewScheduler(svc *Service, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{svc: svc, interval: interval, logger: logger}
}

// Run blocks until ctx is done, snapshotting on every tick.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info("automatic snapshots disabled")
		return nil
	}

	s.logger.Info("automatic snapshots enabled", slog.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce snapshots every account once and returns how many snapshots were
// written. A failure for one account is logged and does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	var userIDs []uint
	if err := s.svc.store.Pluck(ctx, "backup.list_users", &models.User{}, "id", &userIDs); err != nil {
		s.logger.Error("list users for automatic snapshot", slog.String("error", err.Error()))
		return 0
	}

	created := 0
	for _, id := range userIDs {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.svc.CreateSnapshot(ctx, id, models.SnapshotTypeAutomatic, IncludeAll()); err != nil {
			s.logger.Error("automatic snapshot failed",
				slog.Uint64("user_id", uint64(id)),
				slog.String("error", err.Error()))
			continue
		}
		created++
	}
	return created
}
