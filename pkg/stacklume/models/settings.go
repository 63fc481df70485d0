package models

import (
	"time"

	"gorm.io/datatypes"
)

// Settings holds one user's free-form preferences.
type Settings struct {
	UserID      uint           `gorm:"primarykey;autoIncrement:false" json:"userId,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Preferences datatypes.JSON `json:"preferences,omitempty"`
}
