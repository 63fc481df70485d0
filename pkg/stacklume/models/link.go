package models

import (
	"time"

	"gorm.io/gorm"
)

// Link represents a saved bookmark
type Link struct {
	ID          string         `gorm:"primarykey;size:36" json:"id"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	UserID      uint           `gorm:"not null;index" json:"userId,omitempty"`
	URL         string         `gorm:"not null;index" json:"url"`
	Title       string         `gorm:"not null" json:"title"`
	Description *string        `json:"description,omitempty"`
	ImageURL    *string        `json:"imageUrl,omitempty"`
	FaviconURL  *string        `json:"faviconUrl,omitempty"`
	SiteName    *string        `json:"siteName,omitempty"`
	Author      *string        `json:"author,omitempty"`
	CategoryID  *string        `gorm:"size:36;index" json:"categoryId,omitempty"`
	IsFavorite  bool           `json:"isFavorite"`
}

func (l *Link) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = NewID()
	}
	return nil
}

// LinkTag is the join row between a link and a tag. The composite primary key
// makes a duplicate pair a conflict rather than a second row.
type LinkTag struct {
	LinkID    string    `gorm:"primaryKey;size:36" json:"linkId"`
	TagID     string    `gorm:"primaryKey;size:36;index" json:"tagId"`
	CreatedAt time.Time `json:"-"`
}
