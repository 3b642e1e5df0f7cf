// Package medicine provides the medicine catalogue and its stock quantity.
package medicine

import (
	"context"
	"time"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/entity"
	"pharmledger/internal/core/id"
	"pharmledger/internal/core/types"
)

// Medicine is a stocked item. Quantity changes only through stock adjustments.
type Medicine struct {
	entity.Catalog
	entity.Actor

	GenericName *string `db:"generic_name" json:"genericName,omitempty"`
	Description *string `db:"description" json:"description,omitempty"`
	CategoryID  *id.ID  `db:"category_id" json:"categoryId,omitempty"`
	SupplierID  *id.ID  `db:"supplier_id" json:"supplierId,omitempty"`

	// BatchNumber is free text and not unique
	BatchNumber *string `db:"batch_number" json:"batchNumber,omitempty"`

	UnitCost     types.Money `db:"unit_cost" json:"unitCost"`
	SellingPrice types.Money `db:"selling_price" json:"sellingPrice"`
	Quantity     int         `db:"quantity" json:"quantity"`
	ReorderLevel int         `db:"reorder_level" json:"reorderLevel"`

	ExpiryDate      time.Time  `db:"expiry_date" json:"expiryDate"`
	ManufactureDate *time.Time `db:"manufacture_date" json:"manufactureDate,omitempty"`

	RequiresPrescription bool `db:"requires_prescription" json:"requiresPrescription"`

	// DeletionMark archives the medicine: hidden from lists and not sellable
	DeletionMark bool `db:"deletion_mark" json:"deletionMark"`

	// Version for optimistic locking of catalogue edits
	Version int `db:"version" json:"version"`
}

// NewMedicine creates a Medicine with a generated ID.
func NewMedicine(name string, sellingPrice types.Money, expiry time.Time) *Medicine {
	return &Medicine{
		Catalog:      entity.NewCatalog(name),
		UnitCost:     types.Zero(),
		SellingPrice: sellingPrice,
		ExpiryDate:   expiry,
		Version:      1,
	}
}

// Validate implements entity.Validatable interface.
func (m *Medicine) Validate(ctx context.Context) error {
	if err := m.Catalog.Validate(ctx); err != nil {
		return err
	}
	if m.UnitCost.IsNegative() {
		return apperror.NewFieldValidation("unit_cost", "unit cost cannot be negative")
	}
	if m.SellingPrice.IsNegative() {
		return apperror.NewFieldValidation("selling_price", "selling price cannot be negative")
	}
	if m.Quantity < 0 {
		return apperror.NewFieldValidation("quantity", "quantity cannot be negative")
	}
	if m.ReorderLevel < 0 {
		return apperror.NewFieldValidation("reorder_level", "reorder level cannot be negative")
	}
	if m.ExpiryDate.IsZero() {
		return apperror.NewFieldValidation("expiry_date", "expiry date is required")
	}
	if m.ManufactureDate != nil && m.ManufactureDate.After(m.ExpiryDate) {
		return apperror.NewFieldValidation("manufacture_date", "manufacture date must not be after expiry date")
	}
	return nil
}

// IsLowStock reports quantity at or below the reorder level.
func (m *Medicine) IsLowStock() bool {
	return m.Quantity <= m.ReorderLevel
}

// DaysToExpiry counts whole calendar days from the business date of now
// to the expiry date. Negative once expired.
func (m *Medicine) DaysToExpiry(now time.Time) int {
	return types.DaysBetween(types.BusinessDate(now), m.ExpiryDate)
}

// IsExpired reports whether the expiry date has passed.
func (m *Medicine) IsExpired(now time.Time) bool {
	return m.DaysToExpiry(now) < 0
}

// StockValue is quantity × unit cost.
func (m *Medicine) StockValue() types.Money {
	return types.LineTotal(m.Quantity, m.UnitCost)
}

// View is a medicine joined with its category and supplier names.
type View struct {
	Medicine

	CategoryName *string `db:"category_name" json:"categoryName,omitempty"`
	SupplierName *string `db:"supplier_name" json:"supplierName,omitempty"`
}

// Adjustment is a signed quantity change with the movement describing it.
type Adjustment struct {
	MedicineID  id.ID
	Delta       int
	Kind        entity.MovementKind
	Reason      string
	ReferenceID *id.ID
}

// StockChange is published after a medicine row or its quantity changes.
// Delta and Kind are zero for catalogue-only changes.
type StockChange struct {
	MedicineID id.ID
	Delta      int
	Quantity   int
	Kind       entity.MovementKind
}
