package entity

import (
	"context"
	"time"

	"pharmledger/internal/core/id"
)

// Validatable is implemented by entities that check their own invariants
// without database access.
type Validatable interface {
	Validate(ctx context.Context) error
}

// BaseEntity holds the identifier and timestamps shared by every table row.
type BaseEntity struct {
	ID        id.ID     `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewBaseEntity creates a BaseEntity with a fresh UUIDv7 and current timestamps.
func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{
		ID:        id.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch bumps UpdatedAt. Every successful mutation calls it.
func (b *BaseEntity) Touch() {
	b.UpdatedAt = time.Now().UTC()
}

// GetID returns the entity ID.
func (b *BaseEntity) GetID() id.ID {
	return b.ID
}

// Actor records who created and last changed a row.
type Actor struct {
	CreatedBy *id.ID `db:"created_by" json:"createdBy,omitempty"`
	UpdatedBy *id.ID `db:"updated_by" json:"updatedBy,omitempty"`
}

// StampCreated sets both actor columns for a new row.
func (a *Actor) StampCreated(actor id.ID) {
	a.CreatedBy = id.Ptr(actor)
	a.UpdatedBy = id.Ptr(actor)
}

// StampUpdated sets the last-changed actor.
func (a *Actor) StampUpdated(actor id.ID) {
	a.UpdatedBy = id.Ptr(actor)
}
