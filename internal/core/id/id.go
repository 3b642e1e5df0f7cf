// Package id provides time-ordered UUIDv7 identifiers for ledger rows.
package id

import (
	"github.com/google/uuid"
)

// ID is the identifier type of every entity.
type ID = uuid.UUID

// New generates a UUIDv7. Sale and movement ids sort by creation time,
// which keeps B-tree inserts append-only.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse is for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// Nil returns zero-value UUID.
func Nil() ID {
	return uuid.Nil
}

// IsNil checks if ID is zero-value.
func IsNil(v ID) bool {
	return v == uuid.Nil
}

// Ptr returns nil for the zero ID, so optional foreign keys store NULL.
func Ptr(v ID) *ID {
	if IsNil(v) {
		return nil
	}
	return &v
}

// Deref returns *v, or the nil id when v is nil.
func Deref(v *ID) ID {
	if v == nil {
		return Nil()
	}
	return *v
}
