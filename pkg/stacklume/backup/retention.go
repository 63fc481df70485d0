package backup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mikepea/stacklume/pkg/stacklume/config"
	"github.com/mikepea/stacklume/pkg/stacklume/models"
	"github.com/mikepea/stacklume/pkg/stacklume/store"
)

// Evict picks the snapshots to drop so that at most limit remain. newestFirst
// must be ordered newest first; the result is ordered oldest first.
func Evict(newestFirst []string, limit int) []string {
	if limit < 0 {
		limit = 0
	}
	if len(newestFirst) <= limit {
		return nil
	}
	excess := newestFirst[limit:]
	victims := make([]string, 0, len(excess))
	for i := len(excess) - 1; i >= 0; i-- {
		victims = append(victims, excess[i])
	}
	return victims
}

// EnforceRetention deletes the account's oldest snapshots beyond the limit
// newest and returns how many were removed. A limit of zero or less means the
// default.
func (s *Service) EnforceRetention(ctx context.Context, userID uint, limit int) (int, error) {
	if limit <= 0 {
		limit = config.DefaultRetentionLimit
	}

	var ids []string
	if err := s.store.Pluck(ctx, "backup.list_snapshot_ids", &models.Snapshot{}, "id", &ids, store.OwnedBy(userID), store.NewestFirst); err != nil {
		return 0, fmt.Errorf("list snapshots: %w", err)
	}

	victims := Evict(ids, limit)
	for i, id := range victims {
		if _, err := s.store.Delete(ctx, "backup.evict_snapshot", &models.Snapshot{}, store.OwnedBy(userID), store.WithID(id)); err != nil {
			return i, fmt.Errorf("evict snapshot %s: %w", id, err)
		}
	}

	if len(victims) > 0 {
		s.logger.Info("old snapshots evicted",
			slog.Uint64("user_id", uint64(userID)),
			slog.Int("evicted", len(victims)),
			slog.Int("limit", limit))
	}
	return len(victims), nil
}
