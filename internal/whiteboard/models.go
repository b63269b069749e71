package whiteboard

import "time"

// Kind is the closed set of canvas element types a whiteboard accepts.
type Kind string

const (
	KindNote  Kind = "note"
	KindImage Kind = "image"
	KindText  Kind = "text"
)

// Valid reports whether k is one of the recognized item kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindNote, KindImage, KindText:
		return true
	}
	return false
}

// Item is one positioned canvas element. Optional fields are pointers so that
// "absent" and "never set" serialize identically (omitted).
type Item struct {
	ID              string   `json:"id" bson:"id"`
	Kind            Kind     `json:"kind" bson:"kind"`
	X               float64  `json:"x" bson:"x"`
	Y               float64  `json:"y" bson:"y"`
	Content         string   `json:"content" bson:"content"`
	Color           *string  `json:"color,omitempty" bson:"color,omitempty"`
	RotationDegrees *float64 `json:"rotationDegrees,omitempty" bson:"rotationDegrees,omitempty"`
	Author          *string  `json:"author,omitempty" bson:"author,omitempty"`
	ClientUpdatedAt *float64 `json:"clientUpdatedAt,omitempty" bson:"clientUpdatedAt,omitempty"`
	Deleted         *bool    `json:"deleted,omitempty" bson:"deleted,omitempty"`
}

// IsDeleted reports whether the item carries the soft-delete marker.
func (it Item) IsDeleted() bool {
	return it.Deleted != nil && *it.Deleted
}

// Snapshot is the full state of one whiteboard document at a given version.
// A document that was never written has Version 0, no items and a zero UpdatedAt.
type Snapshot struct {
	DocumentID string    `json:"documentId"`
	Items      []Item    `json:"items"`
	Version    int64     `json:"version"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ActiveCount returns the number of items not marked deleted.
func ActiveCount(items []Item) int {
	n := 0
	for _, it := range items {
		if !it.IsDeleted() {
			n++
		}
	}
	return n
}
