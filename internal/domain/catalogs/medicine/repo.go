package medicine

import (
	"context"
	"errors"
	"time"

	"pharmledger/internal/core/id"
	"pharmledger/internal/domain"
)

// ErrStockConditionFailed is returned by ApplyDelta when the conditional
// update matched no row: the medicine is missing or the result would be negative.
var ErrStockConditionFailed = errors.New("stock condition not met")

// Repository defines the interface for Medicine persistence.
type Repository interface {
	Create(ctx context.Context, m *Medicine) error

	// Update writes catalogue fields guarded by version. Quantity is never written here.
	Update(ctx context.Context, m *Medicine) error

	GetByID(ctx context.Context, id id.ID) (*Medicine, error)
	GetView(ctx context.Context, id id.ID) (*View, error)
	List(ctx context.Context, filter Filter) (domain.ListResult[*View], error)

	// ApplyDelta adds delta to quantity only if the result stays >= 0, touching
	// updated_at, and returns the new quantity.
	ApplyDelta(ctx context.Context, id id.ID, delta int) (int, error)

	SetDeletionMark(ctx context.Context, id id.ID, marked bool) error
	Delete(ctx context.Context, id id.ID) error

	// IsReferenced reports sale lines or stock movements pointing at the medicine.
	IsReferenced(ctx context.Context, id id.ID) (bool, error)

	// ListExpired returns unarchived medicines with stock whose expiry is before asOf.
	ListExpired(ctx context.Context, asOf time.Time) ([]*Medicine, error)

	// ListActive returns every unarchived medicine.
	ListActive(ctx context.Context) ([]*Medicine, error)
}

// Filter narrows medicine lists.
type Filter struct {
	domain.ListFilter

	CategoryID           *id.ID
	SupplierID           *id.ID
	LowStockOnly         bool
	ExpiringWithinDays   *int
	RequiresPrescription *bool
}
