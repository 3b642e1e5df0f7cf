package sale

import (
	"context"
	"time"

	"pharmledger/internal/core/id"
	"pharmledger/internal/domain"
)

// Repository persists sales. Sales are never updated.
type Repository interface {
	// Create inserts the header; a taken number fails with Duplicate.
	Create(ctx context.Context, s *Sale) error

	// SaveItems inserts the lines of a new sale.
	SaveItems(ctx context.Context, saleID id.ID, items []Item) error

	// GetByID returns the sale with its lines and medicine names.
	GetByID(ctx context.Context, id id.ID) (*View, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error)

	// ListWithLines returns every matching sale with its lines, for export.
	ListWithLines(ctx context.Context, filter ListFilter) ([]*View, error)

	// ExistsForPrescription reports whether a prescription is already dispensed.
	ExistsForPrescription(ctx context.Context, prescriptionID id.ID) (bool, error)
}

// ListFilter for filtering sales.
type ListFilter struct {
	domain.ListFilter

	DateFrom      *time.Time
	DateTo        *time.Time
	PaymentMethod *PaymentMethod
	ServedBy      *id.ID
	MedicineID    *id.ID
}
