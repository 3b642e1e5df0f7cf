package prescription

import (
	"context"
	"time"

	"pharmledger/internal/core/id"
	"pharmledger/internal/domain"
)

// Repository persists prescriptions. There is no update or delete.
type Repository interface {
	// Create inserts the prescription; a taken number fails with Duplicate.
	Create(ctx context.Context, p *Prescription) error

	GetByID(ctx context.Context, id id.ID) (*View, error)
	Exists(ctx context.Context, id id.ID) (bool, error)
	ExistsByNumber(ctx context.Context, number string) (bool, error)
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*View], error)
}

// ListFilter for filtering prescriptions.
type ListFilter struct {
	domain.ListFilter

	DateFrom   *time.Time
	DateTo     *time.Time
	Dispensed  *bool
	DoctorName string
}
