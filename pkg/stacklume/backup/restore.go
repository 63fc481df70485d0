package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mikepea/stacklume/pkg/stacklume/apperr"
	"github.com/mikepea/stacklume/pkg/stacklume/models"
	"github.com/mikepea/stacklume/pkg/stacklume/remap"
	"github.com/mikepea/stacklume/pkg/stacklume/store"
	"gorm.io/gorm"
)

// Mode selects how a snapshot is written back.
type Mode string

const (
	// ModeMerge inserts rows that are missing and leaves existing rows alone.
	ModeMerge Mode = "merge"
	// ModeReplace is accepted but currently behaves like ModeMerge.
	ModeReplace Mode = "replace"
)

// ReplaceWarning is reported when a replace restore falls back to merging.
const ReplaceWarning = "Replace mode is not supported yet: existing data was kept and the snapshot was merged"

// ParseMode reads a restore mode. An empty string means merge.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeMerge:
		return ModeMerge, nil
	case ModeReplace:
		return ModeReplace, nil
	}
	return "", fmt.Errorf("%w: unknown restore mode %q", apperr.ErrInvalidInput, s)
}

// Restored count keys.
const (
	FamilyLinks      = "links"
	FamilyCategories = "categories"
	FamilyTags       = "tags"
	FamilyWidgets    = "widgets"
	FamilyProjects   = "projects"
)

// RestoreResult reports what a restore wrote. Success only says the snapshot
// was found and replayed; Errors lists every row that could not be written.
type RestoreResult struct {
	Success  bool           `json:"success"`
	Restored map[string]int `json:"restored"`
	Errors   []string       `json:"errors"`
}

func newRestoreResult() *RestoreResult {
	return &RestoreResult{
		Restored: map[string]int{
			FamilyLinks:      0,
			FamilyCategories: 0,
			FamilyTags:       0,
			FamilyWidgets:    0,
			FamilyProjects:   0,
		},
		Errors: []string{},
	}
}

func (r *RestoreResult) fail(kind, name string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("Failed to restore %s %q: %v", kind, name, err))
}

// Restore replays a stored snapshot into the account. Rows are written one
// at a time in dependency order; a row that fails is recorded and skipped.
// A missing snapshot yields an unsuccessful result together with
// apperr.ErrNotFound.
func (s *Service) Restore(ctx context.Context, userID uint, snapshotID string, mode Mode) (*RestoreResult, error) {
	env, err := s.Envelope(ctx, userID, snapshotID)
	if errors.Is(err, apperr.ErrNotFound) {
		res := newRestoreResult()
		res.Errors = append(res.Errors, "Snapshot not found")
		return res, err
	}
	if err != nil {
		return nil, err
	}
	return s.restoreEnvelope(ctx, userID, env, mode)
}

func (s *Service) restoreEnvelope(ctx context.Context, userID uint, env *Envelope, mode Mode) (*RestoreResult, error) {
	res := newRestoreResult()
	if mode == ModeReplace {
		res.Errors = append(res.Errors, ReplaceWarning)
	}

	// Categories and tags that collide by name with a live row are aliased to
	// it so links and link tags still attach.
	aliases := remap.New()
	d := env.Data

	for i := range d.Categories {
		row := d.Categories[i]
		snapshotID := row.ID
		row.UserID = userID
		row.DeletedAt = gorm.DeletedAt{}
		inserted, err := s.store.InsertIfAbsent(ctx, "restore.insert_category", &row)
		if err != nil {
			res.fail("category", row.Name, err)
			continue
		}
		if inserted {
			res.Restored[FamilyCategories]++
			continue
		}
		var existing models.Category
		if err := s.store.First(ctx, "restore.find_category", &existing, store.OwnedBy(userID), store.Equals("name", row.Name)); err == nil && existing.ID != snapshotID {
			aliases.BindCategory(&snapshotID, "", existing.ID)
		}
	}

	for i := range d.Tags {
		row := d.Tags[i]
		snapshotID := row.ID
		row.UserID = userID
		row.DeletedAt = gorm.DeletedAt{}
		inserted, err := s.store.InsertIfAbsent(ctx, "restore.insert_tag", &row)
		if err != nil {
			res.fail("tag", row.Name, err)
			continue
		}
		if inserted {
			res.Restored[FamilyTags]++
			continue
		}
		var existing models.Tag
		if err := s.store.First(ctx, "restore.find_tag", &existing, store.OwnedBy(userID), store.Equals("name", row.Name)); err == nil && existing.ID != snapshotID {
			aliases.BindTag(&snapshotID, "", existing.ID)
		}
	}

	for i := range d.Projects {
		row := d.Projects[i]
		row.UserID = userID
		row.DeletedAt = gorm.DeletedAt{}
		inserted, err := s.store.InsertIfAbsent(ctx, "restore.insert_project", &row)
		if err != nil {
			res.fail("project", row.Name, err)
			continue
		}
		if inserted {
			res.Restored[FamilyProjects]++
		}
	}

	liveCategories, err := s.liveIDs(ctx, &models.Category{}, userID)
	if err != nil {
		return nil, err
	}
	for i := range d.Links {
		row := d.Links[i]
		row.UserID = userID
		row.DeletedAt = gorm.DeletedAt{}
		row.CategoryID = s.resolveRef(row.CategoryID, liveCategories, aliases.Category, "link", row.Title)
		inserted, err := s.store.InsertIfAbsent(ctx, "restore.insert_link", &row)
		if err != nil {
			res.fail("link", row.Title, err)
			continue
		}
		if inserted {
			res.Restored[FamilyLinks]++
		}
	}

	liveProjects, err := s.liveIDs(ctx, &models.Project{}, userID)
	if err != nil {
		return nil, err
	}
	for i := range d.Widgets {
		row := d.Widgets[i]
		row.UserID = userID
		row.DeletedAt = gorm.DeletedAt{}
		row.ProjectID = s.resolveRef(row.ProjectID, liveProjects, nil, "widget", row.DisplayName())
		inserted, err := s.store.InsertIfAbsent(ctx, "restore.insert_widget", &row)
		if err != nil {
			res.fail("widget", row.DisplayName(), err)
			continue
		}
		if inserted {
			res.Restored[FamilyWidgets]++
		}
	}

	if err := s.restoreLinkTags(ctx, userID, d.LinkTags, aliases, res); err != nil {
		return nil, err
	}

	if d.Settings != nil {
		settings := *d.Settings
		settings.UserID = userID
		if _, err := s.store.InsertIfAbsent(ctx, "restore.insert_settings", &settings); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Failed to restore settings: %v", err))
		}
	}

	res.Success = true
	s.logger.Info("snapshot restored",
		slog.Uint64("user_id", uint64(userID)),
		slog.String("mode", string(mode)),
		slog.Any("restored", res.Restored),
		slog.Int("errors", len(res.Errors)))
	return res, nil
}

func (s *Service) restoreLinkTags(ctx context.Context, userID uint, linkTags []models.LinkTag, aliases *remap.Table, res *RestoreResult) error {
	if len(linkTags) == 0 {
		return nil
	}
	liveLinks, err := s.liveIDs(ctx, &models.Link{}, userID)
	if err != nil {
		return err
	}
	liveTags, err := s.liveIDs(ctx, &models.Tag{}, userID)
	if err != nil {
		return err
	}

	for _, lt := range linkTags {
		tagID := lt.TagID
		if alias, ok := aliases.Tag(tagID); ok {
			tagID = alias
		}
		if _, ok := liveLinks[lt.LinkID]; !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("Skipped link tag %s/%s: link not found", lt.LinkID, lt.TagID))
			continue
		}
		if _, ok := liveTags[tagID]; !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("Skipped link tag %s/%s: tag not found", lt.LinkID, lt.TagID))
			continue
		}
		row := models.LinkTag{LinkID: lt.LinkID, TagID: tagID}
		if _, err := s.store.InsertIfAbsent(ctx, "restore.insert_link_tag", &row); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Failed to restore link tag %s/%s: %v", lt.LinkID, lt.TagID, err))
		}
	}
	return nil
}

// resolveRef keeps ref when it names a live row, follows an alias when one
// exists, and otherwise clears it.
func (s *Service) resolveRef(ref *string, live map[string]struct{}, alias func(string) (string, bool), kind, name string) *string {
	if ref == nil || *ref == "" {
		return nil
	}
	if _, ok := live[*ref]; ok {
		return ref
	}
	if alias != nil {
		if id, ok := alias(*ref); ok {
			if _, ok := live[id]; ok {
				return &id
			}
		}
	}
	s.logger.Debug("dangling reference cleared on restore",
		slog.String("kind", kind),
		slog.String("name", name),
		slog.String("ref", *ref))
	return nil
}

func (s *Service) liveIDs(ctx context.Context, model any, userID uint) (map[string]struct{}, error) {
	var ids []string
	if err := s.store.Pluck(ctx, "restore.live_ids", model, "id", &ids, store.OwnedBy(userID)); err != nil {
		return nil, fmt.Errorf("list live ids: %w", err)
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}
