package content

import (
	"errors"
	"time"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/models"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrValidation  = errors.New("validation failed")
	ErrUnknownKind = errors.New("unknown content kind")
)

// Record is a loosely-typed site entry. Kind-specific attributes live in
// Data; documents and images are denormalized file metadata.
type Record struct {
	ID          string                 `json:"id" bson:"_id,omitempty"`
	Kind        string                 `json:"kind" bson:"kind"`
	Title       string                 `json:"title" bson:"title"`
	Description string                 `json:"description" bson:"description"`
	Slug        string                 `json:"slug" bson:"slug"`
	Section     string                 `json:"section,omitempty" bson:"section,omitempty"`
	Subsection  string                 `json:"subsection,omitempty" bson:"subsection,omitempty"`
	IsPublished bool                   `json:"isPublished" bson:"isPublished"`
	Order       int                    `json:"order" bson:"order"`
	Data        map[string]interface{} `json:"data,omitempty" bson:"data,omitempty"`
	Documents   []models.FileMeta      `json:"documents" bson:"documents"`
	Images      []models.FileMeta      `json:"images" bson:"images"`
	CreatedAt   time.Time              `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt" bson:"updatedAt"`
}

// Files returns documents followed by images.
func (r *Record) Files() []models.FileMeta {
	out := make([]models.FileMeta, 0, len(r.Documents)+len(r.Images))
	out = append(out, r.Documents...)
	return append(out, r.Images...)
}

// Clone returns a copy that shares no slices or maps with r.
func (r *Record) Clone() *Record {
	c := *r
	c.Documents = append([]models.FileMeta(nil), r.Documents...)
	c.Images = append([]models.FileMeta(nil), r.Images...)
	if r.Data != nil {
		c.Data = make(map[string]interface{}, len(r.Data))
		for k, v := range r.Data {
			c.Data[k] = v
		}
	}
	return &c
}

// Filter narrows a listing. Nil Published means both states.
type Filter struct {
	Section    string
	Subsection string
	Published  *bool
	Search     string
	Limit      int
}

// Patch carries the fields of a partial update; nil means unchanged.
// Data keys are merged into the existing payload; a nil value removes the key.
type Patch struct {
	Title       *string                `json:"title,omitempty"`
	Description *string                `json:"description,omitempty"`
	Slug        *string                `json:"slug,omitempty"`
	Section     *string                `json:"section,omitempty"`
	Subsection  *string                `json:"subsection,omitempty"`
	IsPublished *bool                  `json:"isPublished,omitempty"`
	Order       *int                   `json:"order,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// OrderItem assigns a display position to a record.
type OrderItem struct {
	ID    string `json:"id" binding:"required"`
	Order int    `json:"order"`
}
