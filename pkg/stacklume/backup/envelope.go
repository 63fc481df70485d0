package backup

import (
	"fmt"
	"time"

	"github.com/mikepea/stacklume/pkg/stacklume/models"
)

// EnvelopeVersion is written into every snapshot.
const EnvelopeVersion = "1.0"

const exportedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// Envelope is the stored and downloadable form of a snapshot.
type Envelope struct {
	Version    string `json:"version"`
	ExportedAt string `json:"exportedAt"`
	Data       Data   `json:"data"`
}

// Data holds the rows of a snapshot with their owner field cleared. Every key
// is optional; a family left out of the snapshot is simply absent.
type Data struct {
	Links      []models.Link     `json:"links,omitempty"`
	Categories []models.Category `json:"categories,omitempty"`
	Tags       []models.Tag      `json:"tags,omitempty"`
	LinkTags   []models.LinkTag  `json:"linkTags,omitempty"`
	Widgets    []models.Widget   `json:"widgets,omitempty"`
	Projects   []models.Project  `json:"projects,omitempty"`
	Settings   *models.Settings  `json:"settings,omitempty"`
}

// Include selects the entity families a snapshot carries.
type Include struct {
	Links      bool `json:"links"`
	Categories bool `json:"categories"`
	Tags       bool `json:"tags"`
	Widgets    bool `json:"widgets"`
	Projects   bool `json:"projects"`
	Settings   bool `json:"settings"`
}

// IncludeAll selects every family.
func IncludeAll() Include {
	return Include{
		Links:      true,
		Categories: true,
		Tags:       true,
		Widgets:    true,
		Projects:   true,
		Settings:   true,
	}
}

func snapshotFilename(t models.SnapshotType, at time.Time) string {
	return fmt.Sprintf("stacklume-%s-%s.json", t, at.UTC().Format("2006-01-02T15-04-05"))
}
