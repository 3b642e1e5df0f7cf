package dto

import (
	"strings"
	"time"

	"pharmledger/internal/domain/catalogs/category"
	"pharmledger/internal/domain/catalogs/supplier"
)

// --- Category ---

// CategoryRequest creates or renames a category.
type CategoryRequest struct {
	Name        string  `json:"name" binding:"required,max=255"`
	Description *string `json:"description"`
}

// ToEntity builds a new category.
func (r CategoryRequest) ToEntity() *category.Category {
	return r.Apply(category.NewCategory(r.Name, nil))
}

// Apply copies the request onto an existing category.
func (r CategoryRequest) Apply(c *category.Category) *category.Category {
	c.Name = strings.TrimSpace(r.Name)
	c.Description = trimPtr(r.Description)
	return c
}

// CategoryResponse is a category in API responses.
type CategoryResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FromCategory converts a category to its response.
func FromCategory(c *category.Category) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID.String(),
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// --- Supplier ---

// SupplierRequest creates or replaces a supplier.
type SupplierRequest struct {
	Name          string  `json:"name" binding:"required,max=255"`
	ContactPerson *string `json:"contactPerson"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	Address       *string `json:"address"`
}

// ToEntity builds a new supplier.
func (r SupplierRequest) ToEntity() *supplier.Supplier {
	return r.Apply(supplier.NewSupplier(r.Name))
}

// Apply copies the request onto an existing supplier.
func (r SupplierRequest) Apply(s *supplier.Supplier) *supplier.Supplier {
	s.Name = strings.TrimSpace(r.Name)
	s.ContactPerson = trimPtr(r.ContactPerson)
	s.Phone = trimPtr(r.Phone)
	s.Email = trimPtr(r.Email)
	s.Address = trimPtr(r.Address)
	return s
}

// SupplierResponse is a supplier in API responses.
type SupplierResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ContactPerson *string   `json:"contactPerson,omitempty"`
	Phone         *string   `json:"phone,omitempty"`
	Email         *string   `json:"email,omitempty"`
	Address       *string   `json:"address,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// FromSupplier converts a supplier to its response.
func FromSupplier(s *supplier.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:            s.ID.String(),
		Name:          s.Name,
		ContactPerson: s.ContactPerson,
		Phone:         s.Phone,
		Email:         s.Email,
		Address:       s.Address,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}
