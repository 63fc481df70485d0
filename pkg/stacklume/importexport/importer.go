// Package importexport ingests untrusted import documents and serves data
// exports.
package importexport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/mikepea/stacklume/pkg/stacklume/apperr"
	"github.com/mikepea/stacklume/pkg/stacklume/models"
	"github.com/mikepea/stacklume/pkg/stacklume/remap"
	"github.com/mikepea/stacklume/pkg/stacklume/sanitize"
	"github.com/mikepea/stacklume/pkg/stacklume/store"
)

// MaxSkippedReasons caps the reasons listed in a Result. Skipped stays exact.
const MaxSkippedReasons = 10

// Result reports the outcome of an import.
type Result struct {
	Imported          int      `json:"imported"`
	Skipped           int      `json:"skipped"`
	SkippedReasons    []string `json:"skippedReasons"`
	CategoriesCreated int      `json:"categoriesCreated"`
	CategoriesReused  int      `json:"categoriesReused"`
	TagsCreated       int      `json:"tagsCreated"`
	TagsReused        int      `json:"tagsReused"`
	LinkTags          int      `json:"linkTags"`
	LinkTagsFailed    int      `json:"linkTagsFailed"`
}

func (r *Result) skip(reason string) {
	r.Skipped++
	if len(r.SkippedReasons) < MaxSkippedReasons {
		r.SkippedReasons = append(r.SkippedReasons, reason)
	}
}

// Importer writes sanitized rows from import documents into an account.
type Importer struct {
	store  *store.Store
	logger *slog.Logger
}

// NewImporter creates an importer.
func NewImporter(st *store.Store, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{store: st, logger: logger}
}

// Import validates raw and ingests it. A schema failure is returned as an
// *apperr.ValidationError before anything is written.
func (im *Importer) Import(ctx context.Context, userID uint, raw []byte) (*Result, error) {
	rows, err := DecodeDocument(raw)
	if err != nil {
		return nil, err
	}
	return im.Ingest(ctx, userID, rows)
}

// Ingest writes categories, tags, links and link tags in that order. Rows
// that cannot be accepted or written are skipped with a reason; a failed
// lookup aborts the run, leaving what was already written in place.
func (im *Importer) Ingest(ctx context.Context, userID uint, p Payload) (*Result, error) {
	res := &Result{SkippedReasons: []string{}}
	table := remap.New()

	for _, in := range p.Categories {
		if err := im.ingestCategory(ctx, userID, in, table, res); err != nil {
			return nil, err
		}
	}
	for _, in := range p.Tags {
		if err := im.ingestTag(ctx, userID, in, table, res); err != nil {
			return nil, err
		}
	}

	byLink := make(map[string][]string, len(p.LinkTags))
	for _, lt := range p.LinkTags {
		byLink[lt.LinkID] = append(byLink[lt.LinkID], lt.TagID)
	}
	for _, in := range p.Links {
		if err := im.ingestLink(ctx, userID, in, table, byLink, res); err != nil {
			return nil, err
		}
	}

	im.logger.Info("import finished",
		slog.Uint64("user_id", uint64(userID)),
		slog.Int("imported", res.Imported),
		slog.Int("skipped", res.Skipped),
		slog.Int("categories_created", res.CategoriesCreated),
		slog.Int("tags_created", res.TagsCreated),
		slog.Int("link_tags", res.LinkTags))
	return res, nil
}

func (im *Importer) ingestCategory(ctx context.Context, userID uint, in CategoryInput, table *remap.Table, res *Result) error {
	name := sanitize.Text(in.Name)
	if name == "" {
		res.skip("Category with empty name")
		return nil
	}

	var existing models.Category
	err := im.store.First(ctx, "import.find_category", &existing, store.OwnedBy(userID), store.Equals("name", name))
	if err == nil {
		table.BindCategory(in.ID, name, existing.ID)
		res.CategoriesReused++
		return nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("find category %q: %w", name, err)
	}

	row := models.Category{
		UserID:      userID,
		Name:        name,
		Description: sanitize.OptionalText(in.Description),
		Icon:        sanitize.OptionalText(in.Icon),
		Color:       sanitize.OptionalText(in.Color),
	}
	if err := im.store.Insert(ctx, "import.insert_category", &row); err != nil {
		res.skip(fmt.Sprintf("Failed to import category %q: %v", truncate(name, maxReasonLength), err))
		return nil
	}
	table.BindCategory(in.ID, name, row.ID)
	res.CategoriesCreated++
	return nil
}

func (im *Importer) ingestTag(ctx context.Context, userID uint, in TagInput, table *remap.Table, res *Result) error {
	name := sanitize.Text(in.Name)
	if name == "" {
		res.skip("Tag with empty name")
		return nil
	}

	var existing models.Tag
	err := im.store.First(ctx, "import.find_tag", &existing, store.OwnedBy(userID), store.Equals("name", name))
	if err == nil {
		table.BindTag(in.ID, name, existing.ID)
		res.TagsReused++
		return nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("find tag %q: %w", name, err)
	}

	row := models.Tag{
		UserID: userID,
		Name:   name,
		Color:  sanitize.OptionalText(in.Color),
	}
	if err := im.store.Insert(ctx, "import.insert_tag", &row); err != nil {
		res.skip(fmt.Sprintf("Failed to import tag %q: %v", truncate(name, maxReasonLength), err))
		return nil
	}
	table.BindTag(in.ID, name, row.ID)
	res.TagsCreated++
	return nil
}

func (im *Importer) ingestLink(ctx context.Context, userID uint, in LinkInput, table *remap.Table, byLink map[string][]string, res *Result) error {
	url := sanitize.URL(in.URL)
	if url == "" {
		res.skip("Invalid URL: " + truncate(sanitize.Text(in.URL), maxReasonLength))
		return nil
	}
	title := sanitize.Text(in.Title)
	if title == "" {
		res.skip("Missing title: " + truncate(url, maxReasonLength))
		return nil
	}

	n, err := im.store.Count(ctx, "import.find_duplicate", &models.Link{}, store.OwnedBy(userID), store.Equals("url", url))
	if err != nil {
		return fmt.Errorf("check duplicate %s: %w", url, err)
	}
	if n > 0 {
		res.skip("Duplicate URL: " + truncate(url, maxReasonLength))
		return nil
	}

	row := models.Link{
		UserID:      userID,
		URL:         url,
		Title:       title,
		Description: sanitize.OptionalText(in.Description),
		ImageURL:    sanitize.OptionalURL(in.ImageURL),
		FaviconURL:  sanitize.OptionalURL(in.FaviconURL),
		SiteName:    sanitize.OptionalText(in.SiteName),
		Author:      sanitize.OptionalText(in.Author),
		CategoryID:  table.CategoryRef(in.CategoryID),
		IsFavorite:  in.IsFavorite,
	}
	if err := im.store.Insert(ctx, "import.insert_link", &row); err != nil {
		res.skip(fmt.Sprintf("Failed to import %s: %v", truncate(url, maxReasonLength), err))
		return nil
	}
	res.Imported++

	if in.ID == nil || *in.ID == "" {
		return nil
	}
	for _, foreignTag := range byLink[*in.ID] {
		tagID, ok := table.Tag(foreignTag)
		if !ok {
			continue
		}
		inserted, err := im.store.InsertIfAbsent(ctx, "import.insert_link_tag", &models.LinkTag{LinkID: row.ID, TagID: tagID})
		if err != nil {
			im.logger.Warn("link tag not imported",
				slog.String("link_id", row.ID),
				slog.String("tag_id", tagID),
				slog.String("error", err.Error()))
			res.LinkTagsFailed++
			continue
		}
		if inserted {
			res.LinkTags++
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
