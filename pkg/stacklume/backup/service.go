// Package backup creates, stores, prunes and restores point-in-time
// snapshots of an account's data.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mikepea/stacklume/pkg/stacklume/apperr"
	"github.com/mikepea/stacklume/pkg/stacklume/config"
	"github.com/mikepea/stacklume/pkg/stacklume/models"
	"github.com/mikepea/stacklume/pkg/stacklume/store"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// inChunk bounds the number of ids bound into a single IN clause.
const inChunk = 500

// Option configures a Service.
type Option func(*Service)

// WithRetentionLimit sets how many snapshots are kept per account.
func WithRetentionLimit(limit int) Option {
	return func(s *Service) {
		s.retention = limit
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service assembles, lists, deletes and restores snapshots.
type Service struct {
	store     *store.Store
	retention int
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a backup service.
func NewService(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store:     st,
		retention: config.DefaultRetentionLimit,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSnapshot reads the live rows of the selected families, stores them as
// a new snapshot and then prunes the account's snapshots down to the retention
// limit. Nothing is written if any read fails.
func (s *Service) CreateSnapshot(ctx context.Context, userID uint, typ models.SnapshotType, inc Include) (*models.Snapshot, error) {
	now := s.now().UTC()
	env := Envelope{
		Version:    EnvelopeVersion,
		ExportedAt: now.UTC().Format(exportedAtLayout),
	}
	owned := store.OwnedBy(userID)
	oldestFirst := func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") }

	if inc.Links {
		if err := s.store.Select(ctx, "backup.select_links", &env.Data.Links, owned, oldestFirst); err != nil {
			return nil, fmt.Errorf("read links: %w", err)
		}
		for i := range env.Data.Links {
			env.Data.Links[i].UserID = 0
		}
	}
	if inc.Categories {
		if err := s.store.Select(ctx, "backup.select_categories", &env.Data.Categories, owned, oldestFirst); err != nil {
			return nil, fmt.Errorf("read categories: %w", err)
		}
		for i := range env.Data.Categories {
			env.Data.Categories[i].UserID = 0
		}
	}
	if inc.Tags {
		if err := s.store.Select(ctx, "backup.select_tags", &env.Data.Tags, owned, oldestFirst); err != nil {
			return nil, fmt.Errorf("read tags: %w", err)
		}
		for i := range env.Data.Tags {
			env.Data.Tags[i].UserID = 0
		}
	}
	if inc.Links && inc.Tags {
		linkTags, err := s.collectLinkTags(ctx, env.Data.Links, env.Data.Tags)
		if err != nil {
			return nil, fmt.Errorf("read link tags: %w", err)
		}
		env.Data.LinkTags = linkTags
	}
	if inc.Widgets {
		if err := s.store.Select(ctx, "backup.select_widgets", &env.Data.Widgets, owned, oldestFirst); err != nil {
			return nil, fmt.Errorf("read widgets: %w", err)
		}
		for i := range env.Data.Widgets {
			env.Data.Widgets[i].UserID = 0
		}
	}
	if inc.Projects {
		if err := s.store.Select(ctx, "backup.select_projects", &env.Data.Projects, owned, oldestFirst); err != nil {
			return nil, fmt.Errorf("read projects: %w", err)
		}
		for i := range env.Data.Projects {
			env.Data.Projects[i].UserID = 0
		}
	}
	if inc.Settings {
		var settings []models.Settings
		if err := s.store.Select(ctx, "backup.select_settings", &settings, owned); err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}
		if len(settings) > 0 {
			settings[0].UserID = 0
			env.Data.Settings = &settings[0]
		}
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	snap := &models.Snapshot{
		CreatedAt: now,
		UserID:    userID,
		Filename:  snapshotFilename(typ, now),
		Size:      int64(len(payload)),
		Type:      typ,
		Data:      datatypes.JSON(payload),
	}
	if err := s.store.Insert(ctx, "backup.insert_snapshot", snap); err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}

	s.logger.Info("snapshot created",
		slog.String("snapshot_id", snap.ID),
		slog.Uint64("user_id", uint64(userID)),
		slog.String("type", string(typ)),
		slog.Int64("size", snap.Size),
		slog.Int("links", len(env.Data.Links)))

	if _, err := s.EnforceRetention(ctx, userID, s.retention); err != nil {
		s.logger.Warn("snapshot retention failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()))
	}

	return snap, nil
}

// collectLinkTags returns the associations between the collected links and
// the collected tags.
func (s *Service) collectLinkTags(ctx context.Context, links []models.Link, tags []models.Tag) ([]models.LinkTag, error) {
	tagIDs := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		tagIDs[t.ID] = struct{}{}
	}
	linkIDs := make([]string, len(links))
	for i, l := range links {
		linkIDs[i] = l.ID
	}

	ordered := func(db *gorm.DB) *gorm.DB { return db.Order("link_id").Order("tag_id") }
	var out []models.LinkTag
	for start := 0; start < len(linkIDs); start += inChunk {
		end := min(start+inChunk, len(linkIDs))
		var chunk []models.LinkTag
		if err := s.store.Select(ctx, "backup.select_link_tags", &chunk, store.In("link_id", linkIDs[start:end]), ordered); err != nil {
			return nil, err
		}
		for _, lt := range chunk {
			if _, ok := tagIDs[lt.TagID]; ok {
				out = append(out, lt)
			}
		}
	}
	return out, nil
}

// List returns the account's snapshots, newest first, without their payload.
func (s *Service) List(ctx context.Context, userID uint) ([]models.Snapshot, error) {
	withoutData := func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "created_at", "user_id", "filename", "size", "type")
	}
	snapshots := []models.Snapshot{}
	if err := s.store.Select(ctx, "backup.list_snapshots", &snapshots, store.OwnedBy(userID), withoutData, store.NewestFirst); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// Get returns one snapshot with its payload.
func (s *Service) Get(ctx context.Context, userID uint, id string) (*models.Snapshot, error) {
	var snap models.Snapshot
	if err := s.store.First(ctx, "backup.get_snapshot", &snap, store.OwnedBy(userID), store.WithID(id)); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Envelope returns the decoded payload of a snapshot.
func (s *Service) Envelope(ctx context.Context, userID uint, id string) (*Envelope, error) {
	snap, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	var env Envelope
	if err := json.Unmarshal(snap.Data, &env); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return &env, nil
}

// Delete removes a snapshot.
func (s *Service) Delete(ctx context.Context, userID uint, id string) error {
	n, err := s.store.Delete(ctx, "backup.delete_snapshot", &models.Snapshot{}, store.OwnedBy(userID), store.WithID(id))
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
