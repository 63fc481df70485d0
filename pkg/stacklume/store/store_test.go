package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mikepea/stacklume/pkg/stacklume/apperr"
	"github.com/mikepea/stacklume/pkg/stacklume/models"
	"github.com/mikepea/stacklume/pkg/stacklume/store"
	"github.com/mikepea/stacklume/pkg/stacklume/testutil"
)

func TestInsertIfAbsent(t *testing.T) {
	db := testutil.TestDB(t)
	st := testutil.TestStore(db)
	user := testutil.CreateUser(t, db, "test@example.com")
	ctx := context.Background()

	tag := models.Tag{ID: "tag-1", UserID: user.ID, Name: "go"}
	inserted, err := st.InsertIfAbsent(ctx, "test", &tag)
	if err != nil || !inserted {
		t.Fatalf("Expected first insert to write, got %v, %v", inserted, err)
	}

	again := models.Tag{ID: "tag-1", UserID: user.ID, Name: "renamed"}
	inserted, err = st.InsertIfAbsent(ctx, "test", &again)
	if err != nil {
		t.Fatalf("Expected no error on conflict, got %v", err)
	}
	if inserted {
		t.Error("Expected second insert with the same id to be skipped")
	}

	sameName := models.Tag{ID: "tag-2", UserID: user.ID, Name: "go"}
	inserted, err = st.InsertIfAbsent(ctx, "test", &sameName)
	if err != nil || inserted {
		t.Errorf("Expected unique name clash to be skipped, got %v, %v", inserted, err)
	}

	var stored models.Tag
	db.First(&stored, "id = ?", "tag-1")
	if stored.Name != "go" {
		t.Errorf("Existing row should be left as it is, got name %q", stored.Name)
	}
}

func TestFirstNotFound(t *testing.T) {
	db := testutil.TestDB(t)
	st := testutil.TestStore(db)

	var cat models.Category
	err := st.First(context.Background(), "test", &cat, store.WithID("missing"))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSelectSkipsSoftDeleted(t *testing.T) {
	db := testutil.TestDB(t)
	st := testutil.TestStore(db)
	user := testutil.CreateUser(t, db, "test@example.com")
	other := testutil.CreateUser(t, db, "other@example.com")
	ctx := context.Background()

	db.Create(&models.Link{ID: "l1", UserID: user.ID, URL: "https://a.example/", Title: "A"})
	db.Create(&models.Link{ID: "l2", UserID: user.ID, URL: "https://b.example/", Title: "B"})
	db.Create(&models.Link{ID: "l3", UserID: other.ID, URL: "https://c.example/", Title: "C"})
	if err := st.SoftDelete(ctx, "test", &models.Link{}, "l2"); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	var links []models.Link
	if err := st.Select(ctx, "test", &links, store.OwnedBy(user.ID)); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(links) != 1 || links[0].ID != "l1" {
		t.Errorf("Expected only l1, got %+v", links)
	}

	n, err := st.Count(ctx, "test", &models.Link{}, store.In("id", []string{"l1", "l2", "l3"}))
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 live links, got %d", n)
	}
}

func TestNewestFirstAndDelete(t *testing.T) {
	db := testutil.TestDB(t)
	st := testutil.TestStore(db)
	user := testutil.CreateUser(t, db, "test@example.com")
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"s1", "s2", "s3"} {
		db.Create(&models.Snapshot{
			ID:        id,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			UserID:    user.ID,
			Filename:  id + ".json",
			Type:      models.SnapshotTypeManual,
			Data:      []byte(`{}`),
		})
	}

	var ids []string
	if err := st.Pluck(ctx, "test", &models.Snapshot{}, "id", &ids, store.OwnedBy(user.ID), store.NewestFirst); err != nil {
		t.Fatalf("Pluck failed: %v", err)
	}
	if len(ids) != 3 || ids[0] != "s3" || ids[2] != "s1" {
		t.Errorf("Expected newest first, got %v", ids)
	}

	n, err := st.Delete(ctx, "test", &models.Snapshot{}, store.OwnedBy(user.ID), store.WithID("s1"))
	if err != nil || n != 1 {
		t.Errorf("Expected one row deleted, got %d, %v", n, err)
	}
	n, err = st.Delete(ctx, "test", &models.Snapshot{}, store.OwnedBy(user.ID+1), store.WithID("s2"))
	if err != nil || n != 0 {
		t.Errorf("Expected no row deleted for another owner, got %d, %v", n, err)
	}
}
