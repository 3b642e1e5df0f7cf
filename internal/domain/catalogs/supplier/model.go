// Package supplier provides the suppliers medicines are purchased from.
package supplier

import (
	"context"
	"regexp"
	"strings"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/entity"
)

var (
	emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRE = regexp.MustCompile(`^\+?[0-9 ()-]{7,20}$`)
)

// Supplier represents a wholesaler or manufacturer.
type Supplier struct {
	entity.Catalog

	ContactPerson *string `db:"contact_person" json:"contactPerson,omitempty"`
	Phone         *string `db:"phone" json:"phone,omitempty"`
	Email         *string `db:"email" json:"email,omitempty"`
	Address       *string `db:"address" json:"address,omitempty"`
}

// NewSupplier creates a Supplier with a generated ID.
func NewSupplier(name string) *Supplier {
	return &Supplier{Catalog: entity.NewCatalog(name)}
}

// Validate implements entity.Validatable interface.
func (s *Supplier) Validate(ctx context.Context) error {
	if err := s.Catalog.Validate(ctx); err != nil {
		return err
	}
	if s.Email != nil && *s.Email != "" && !emailRE.MatchString(strings.TrimSpace(*s.Email)) {
		return apperror.NewFieldValidation("email", "invalid email format")
	}
	if s.Phone != nil && *s.Phone != "" && !phoneRE.MatchString(strings.TrimSpace(*s.Phone)) {
		return apperror.NewFieldValidation("phone", "invalid phone number")
	}
	return nil
}
