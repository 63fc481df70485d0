package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Widget is a configurable dashboard tile. Config and Layout are opaque JSON
// owned by the frontend.
type Widget struct {
	ID        string         `gorm:"primarykey;size:36" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	UserID    uint           `gorm:"not null;index" json:"userId,omitempty"`
	ProjectID *string        `gorm:"size:36;index" json:"projectId,omitempty"`
	Type      string         `gorm:"not null" json:"type"`
	Title     *string        `json:"title,omitempty"`
	Config    datatypes.JSON `json:"config,omitempty"`
	Layout    datatypes.JSON `json:"layout,omitempty"`
}

func (w *Widget) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = NewID()
	}
	return nil
}

// DisplayName is the label used when reporting problems with this widget.
func (w *Widget) DisplayName() string {
	if w.Title != nil && *w.Title != "" {
		return *w.Title
	}
	return w.Type
}
