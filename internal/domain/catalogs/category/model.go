// Package category provides medicine categories ("Antibiotics", "Analgesics").
package category

import (
	"context"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/entity"
)

// Category groups medicines. Names are unique and case-sensitive.
type Category struct {
	entity.Catalog

	Description *string `db:"description" json:"description,omitempty"`
}

// NewCategory creates a Category with a generated ID.
func NewCategory(name string, description *string) *Category {
	return &Category{
		Catalog:     entity.NewCatalog(name),
		Description: description,
	}
}

// Validate implements entity.Validatable interface.
func (c *Category) Validate(ctx context.Context) error {
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}
	if c.Description != nil && len(*c.Description) > 2000 {
		return apperror.NewFieldValidation("description", "description is too long")
	}
	return nil
}
