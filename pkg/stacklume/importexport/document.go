package importexport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mikepea/stacklume/pkg/stacklume/apperr"
)

// Schema bounds for import documents.
const (
	MaxItems        = 10000
	MaxLinkTags     = 4 * MaxItems
	MaxURLLength    = 2048
	MaxNameLength   = 255
	MaxTextLength   = 10000
	MaxIDLength     = 255
	maxTitleLength  = 2 * MaxNameLength
	maxColorLength  = 64
	maxReasonLength = 50
)

// CategoryInput is a category as it appears in an import document.
type CategoryInput struct {
	ID          *string `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	Color       *string `json:"color"`
}

// Validate checks the category's shape.
func (c CategoryInput) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.Length(0, MaxIDLength)),
		validation.Field(&c.Name, validation.Required, validation.Length(0, MaxNameLength)),
		validation.Field(&c.Description, validation.Length(0, MaxTextLength)),
		validation.Field(&c.Icon, validation.Length(0, MaxNameLength)),
		validation.Field(&c.Color, validation.Length(0, maxColorLength)),
	)
}

// TagInput is a tag as it appears in an import document.
type TagInput struct {
	ID    *string `json:"id"`
	Name  string  `json:"name"`
	Color *string `json:"color"`
}

// Validate checks the tag's shape.
func (t TagInput) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.ID, validation.Length(0, MaxIDLength)),
		validation.Field(&t.Name, validation.Required, validation.Length(0, MaxNameLength)),
		validation.Field(&t.Color, validation.Length(0, maxColorLength)),
	)
}

// LinkInput is a link as it appears in an import document.
type LinkInput struct {
	ID          *string `json:"id"`
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	ImageURL    *string `json:"imageUrl"`
	FaviconURL  *string `json:"faviconUrl"`
	SiteName    *string `json:"siteName"`
	Author      *string `json:"author"`
	CategoryID  *string `json:"categoryId"`
	IsFavorite  bool    `json:"isFavorite"`
}

// Validate checks the link's shape.
func (l LinkInput) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.ID, validation.Length(0, MaxIDLength)),
		validation.Field(&l.URL, validation.Required, validation.Length(0, MaxURLLength)),
		validation.Field(&l.Title, validation.Length(0, maxTitleLength)),
		validation.Field(&l.Description, validation.Length(0, MaxTextLength)),
		validation.Field(&l.ImageURL, validation.Length(0, MaxURLLength)),
		validation.Field(&l.FaviconURL, validation.Length(0, MaxURLLength)),
		validation.Field(&l.SiteName, validation.Length(0, MaxNameLength)),
		validation.Field(&l.Author, validation.Length(0, MaxNameLength)),
		validation.Field(&l.CategoryID, validation.Length(0, MaxIDLength)),
	)
}

// LinkTagInput associates a link and a tag by their ids in the document.
type LinkTagInput struct {
	LinkID string `json:"linkId"`
	TagID  string `json:"tagId"`
}

// Validate checks the association's shape.
func (lt LinkTagInput) Validate() error {
	return validation.ValidateStruct(&lt,
		validation.Field(&lt.LinkID, validation.Required, validation.Length(0, MaxIDLength)),
		validation.Field(&lt.TagID, validation.Required, validation.Length(0, MaxIDLength)),
	)
}

// Payload is the set of rows an import document carries.
type Payload struct {
	Categories []CategoryInput `json:"categories"`
	Tags       []TagInput      `json:"tags"`
	Links      []LinkInput     `json:"links"`
	LinkTags   []LinkTagInput  `json:"linkTags"`
}

// Validate checks array sizes and every element.
func (p Payload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Categories, validation.Length(0, MaxItems)),
		validation.Field(&p.Tags, validation.Length(0, MaxItems)),
		validation.Field(&p.Links, validation.Length(0, MaxItems)),
		validation.Field(&p.LinkTags, validation.Length(0, MaxLinkTags)),
	)
}

// Document is an import document. The rows may sit at the top level or
// under "data", as in a downloaded backup.
type Document struct {
	Payload
	Data *Payload `json:"data"`
}

// Rows returns the payload to ingest.
func (d *Document) Rows() Payload {
	if d.Data != nil {
		return *d.Data
	}
	return d.Payload
}

// DecodeDocument parses and validates raw. Any failure is an
// *apperr.ValidationError and nothing has been written.
func DecodeDocument(raw []byte) (Payload, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&doc); err != nil {
		return Payload{}, decodeError(err)
	}

	rows := doc.Rows()
	if err := rows.Validate(); err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			return Payload{}, apperr.NewValidationError(flatten("", verrs)...)
		}
		return Payload{}, apperr.NewValidationError(err.Error())
	}
	return rows, nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "document"
		}
		return apperr.NewValidationError(fmt.Sprintf("%s: expected %s, got %s", field, typeErr.Type, typeErr.Value))
	case errors.As(err, &syntaxErr):
		return apperr.NewValidationError(fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset))
	}
	return apperr.NewValidationError("malformed JSON: " + err.Error())
}

// flatten turns nested ozzo errors into "links.0.url: cannot be blank" lines,
// sorted for a stable response.
func flatten(prefix string, errs validation.Errors) []string {
	var out []string
	for key, err := range errs {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		var nested validation.Errors
		if errors.As(err, &nested) {
			out = append(out, flatten(path, nested)...)
			continue
		}
		out = append(out, path+": "+err.Error())
	}
	sort.Strings(out)
	return out
}
