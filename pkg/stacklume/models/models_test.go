package models

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestAutoMigrate(t *testing.T) {
	db := setupTestDB(t)

	err := AutoMigrate(db)
	if err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}

	for _, model := range AllModels() {
		if !db.Migrator().HasTable(model) {
			t.Errorf("Expected table for %T to exist", model)
		}
	}
}

func TestUserModel(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	user := User{
		Email:        "test@example.com",
		PasswordHash: "hashed_password",
		Name:         "Test User",
	}

	result := db.Create(&user)
	if result.Error != nil {
		t.Fatalf("Failed to create user: %v", result.Error)
	}

	if user.ID == 0 {
		t.Error("Expected user ID to be set after create")
	}

	// Test unique email constraint
	user2 := User{
		Email:        "test@example.com",
		PasswordHash: "another_hash",
		Name:         "Another User",
	}
	if err := db.Create(&user2).Error; err == nil {
		t.Error("Expected error when creating user with duplicate email")
	}
}

func TestIDsAssignedOnCreate(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	link := Link{UserID: 1, URL: "https://example.com/", Title: "Example"}
	if err := db.Create(&link).Error; err != nil {
		t.Fatalf("Failed to create link: %v", err)
	}
	if link.ID == "" {
		t.Error("Expected link ID to be set after create")
	}

	kept := Category{ID: "fixed-id", UserID: 1, Name: "Work"}
	if err := db.Create(&kept).Error; err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}
	if kept.ID != "fixed-id" {
		t.Errorf("Expected explicit ID to be kept, got %q", kept.ID)
	}
}

func TestCategoryNameUniquePerUser(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	if err := db.Create(&Category{UserID: 1, Name: "Work"}).Error; err != nil {
		t.Fatalf("Failed to create category: %v", err)
	}
	if err := db.Create(&Category{UserID: 2, Name: "Work"}).Error; err != nil {
		t.Errorf("Same name for another user should be allowed: %v", err)
	}
	if err := db.Create(&Category{UserID: 1, Name: "Work"}).Error; err == nil {
		t.Error("Expected error for duplicate category name")
	}
}

func TestLinkTagCompositeKey(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	if err := db.Create(&LinkTag{LinkID: "l1", TagID: "t1"}).Error; err != nil {
		t.Fatalf("Failed to create link tag: %v", err)
	}
	if err := db.Create(&LinkTag{LinkID: "l1", TagID: "t1"}).Error; err == nil {
		t.Error("Expected error for duplicate link tag")
	}
}

func TestNewIDIsTimeOrdered(t *testing.T) {
	prev := NewID()
	for i := 0; i < 100; i++ {
		next := NewID()
		if next <= prev {
			t.Fatalf("Expected %q to sort after %q", next, prev)
		}
		prev = next
	}
}

func TestSnapshotTypeValid(t *testing.T) {
	for _, typ := range []SnapshotType{SnapshotTypeManual, SnapshotTypeAutomatic, SnapshotTypeExport} {
		if !typ.Valid() {
			t.Errorf("Expected %q to be valid", typ)
		}
	}
	if SnapshotType("nightly").Valid() {
		t.Error("Expected unknown type to be invalid")
	}
}

func TestWidgetDisplayName(t *testing.T) {
	title := "Reading list"
	w := Widget{Type: "links", Title: &title}
	if w.DisplayName() != "Reading list" {
		t.Errorf("Expected title, got %q", w.DisplayName())
	}
	w.Title = nil
	if w.DisplayName() != "links" {
		t.Errorf("Expected type fallback, got %q", w.DisplayName())
	}
}
