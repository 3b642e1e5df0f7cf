package entity

import (
	"time"

	"pharmledger/internal/core/id"
)

// Document is the base of immutable business records (sales, prescriptions).
// Documents are inserted once and never updated.
type Document struct {
	ID        id.ID     `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewDocument creates a Document with a fresh id and timestamp.
func NewDocument() Document {
	return Document{
		ID:        id.New(),
		CreatedAt: time.Now().UTC(),
	}
}

// GetID returns the document ID.
func (d *Document) GetID() id.ID {
	return d.ID
}
