package entity

import (
	"context"
	"strings"

	"pharmledger/internal/core/apperror"
)

// Catalog is the base type for reference data: categories, suppliers and medicines.
type Catalog struct {
	BaseEntity

	// Name is the display name
	Name string `db:"name" json:"name"`
}

// NewCatalog creates a new Catalog with generated ID.
func NewCatalog(name string) Catalog {
	return Catalog{
		BaseEntity: NewBaseEntity(),
		Name:       strings.TrimSpace(name),
	}
}

// Validate implements Validatable interface.
func (c *Catalog) Validate(ctx context.Context) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewFieldValidation("name", "name is required")
	}
	if len(c.Name) > 255 {
		return apperror.NewFieldValidation("name", "name must be at most 255 characters")
	}
	return nil
}

// GetName returns the display name.
func (c *Catalog) GetName() string {
	return c.Name
}
