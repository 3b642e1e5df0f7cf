package entity

import (
	"time"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/id"
)

// MovementKind classifies a stock movement.
type MovementKind string

const (
	MovementIn         MovementKind = "in"
	MovementOut        MovementKind = "out"
	MovementAdjustment MovementKind = "adjustment"
	MovementExpired    MovementKind = "expired"
)

// Valid reports whether k is a known kind.
func (k MovementKind) Valid() bool {
	switch k {
	case MovementIn, MovementOut, MovementAdjustment, MovementExpired:
		return true
	}
	return false
}

// StockMovement is one append-only entry of the stock log.
// Quantity is the signed delta applied to the medicine.
// The log is never read to derive current quantity.
type StockMovement struct {
	ID          id.ID        `db:"id" json:"id"`
	MedicineID  id.ID        `db:"medicine_id" json:"medicineId"`
	Kind        MovementKind `db:"movement_type" json:"movementType"`
	Quantity    int          `db:"quantity" json:"quantity"`
	Reason      string       `db:"reason" json:"reason"`
	ReferenceID *id.ID       `db:"reference_id" json:"referenceId,omitempty"`
	CreatedBy   *id.ID       `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"createdAt"`
}

// NewStockMovement builds a movement with a fresh id.
func NewStockMovement(medicineID id.ID, kind MovementKind, delta int, reason string, referenceID *id.ID, actor id.ID) StockMovement {
	return StockMovement{
		ID:          id.New(),
		MedicineID:  medicineID,
		Kind:        kind,
		Quantity:    delta,
		Reason:      reason,
		ReferenceID: referenceID,
		CreatedBy:   id.Ptr(actor),
		CreatedAt:   time.Now().UTC(),
	}
}

// Validate checks that the delta sign matches the kind.
func (m *StockMovement) Validate() error {
	if id.IsNil(m.MedicineID) {
		return apperror.NewFieldValidation("medicine_id", "medicine is required")
	}
	if !m.Kind.Valid() {
		return apperror.NewFieldValidation("movement_type", "unknown movement type").
			WithDetail("value", string(m.Kind))
	}
	switch m.Kind {
	case MovementIn:
		if m.Quantity <= 0 {
			return apperror.NewFieldValidation("quantity", "inbound movement must be positive")
		}
	case MovementOut, MovementExpired:
		if m.Quantity >= 0 {
			return apperror.NewFieldValidation("quantity", "outbound movement must be negative")
		}
	case MovementAdjustment:
		if m.Quantity == 0 {
			return apperror.NewFieldValidation("quantity", "adjustment must not be zero")
		}
	}
	return nil
}
