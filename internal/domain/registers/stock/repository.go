// Package stock provides the append-only stock movement log.
package stock

import (
	"context"
	"time"

	"pharmledger/internal/core/entity"
	"pharmledger/internal/core/id"
	"pharmledger/internal/domain"
)

// Repository persists stock movements. There is no update or delete.
type Repository interface {
	// Append inserts movements in the caller's transaction.
	// A movement naming an unknown medicine fails with a referential violation.
	Append(ctx context.Context, movements []entity.StockMovement) error

	// List returns movements newest first, joined with the medicine name.
	List(ctx context.Context, filter MovementFilter) (domain.ListResult[MovementView], error)

	// Totals sums movement quantity per kind for a period.
	Totals(ctx context.Context, filter MovementFilter) ([]KindTotal, error)
}

// MovementFilter for filtering movement history.
type MovementFilter struct {
	MedicineID  *id.ID
	Kind        *entity.MovementKind
	ReferenceID *id.ID
	FromDate    *time.Time
	ToDate      *time.Time
	Limit       int
	Offset      int
}

// MovementView is a movement joined with its medicine name.
type MovementView struct {
	entity.StockMovement

	MedicineName string `db:"medicine_name" json:"medicineName"`
}

// KindTotal is the summed delta of one movement kind.
type KindTotal struct {
	Kind     entity.MovementKind `db:"movement_type" json:"movementType"`
	Count    int64               `db:"count" json:"count"`
	Quantity int64               `db:"quantity" json:"quantity"`
}
