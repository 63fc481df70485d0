package models

import (
	"time"

	"gorm.io/gorm"
)

// Tag represents a tag that can be applied to links
type Tag struct {
	ID        string         `gorm:"primarykey;size:36" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	UserID    uint           `gorm:"not null;uniqueIndex:idx_tag_user_name" json:"userId,omitempty"`
	Name      string         `gorm:"not null;uniqueIndex:idx_tag_user_name" json:"name"`
	Color     *string        `json:"color,omitempty"`
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = NewID()
	}
	return nil
}
