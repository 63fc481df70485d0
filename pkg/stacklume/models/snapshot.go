package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SnapshotType records what produced a snapshot
type SnapshotType string

const (
	SnapshotTypeManual    SnapshotType = "manual"
	SnapshotTypeAutomatic SnapshotType = "automatic"
	SnapshotTypeExport    SnapshotType = "export"
)

// Valid reports whether t is one of the known snapshot types.
func (t SnapshotType) Valid() bool {
	switch t {
	case SnapshotTypeManual, SnapshotTypeAutomatic, SnapshotTypeExport:
		return true
	}
	return false
}

// Snapshot is a stored backup. Data holds the serialized envelope; rows are
// never updated after they are written.
type Snapshot struct {
	ID        string         `gorm:"primarykey;size:36" json:"id"`
	CreatedAt time.Time      `gorm:"index" json:"createdAt"`
	UserID    uint           `gorm:"not null;index" json:"-"`
	Filename  string         `gorm:"not null" json:"filename"`
	Size      int64          `json:"size"`
	Type      SnapshotType   `gorm:"type:varchar(20);not null" json:"type"`
	Data      datatypes.JSON `gorm:"not null" json:"-"`
}

func (s *Snapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = NewID()
	}
	return nil
}
