package dto

import (
	"strings"
	"time"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/entity"
	"pharmledger/internal/core/id"
	"pharmledger/internal/core/types"
	"pharmledger/internal/domain/catalogs/medicine"
	"pharmledger/internal/domain/registers/stock"
)

// MedicineRequest creates or replaces a medicine.
// Quantity is only read on create; later changes go through adjustments.
type MedicineRequest struct {
	Name                 string  `json:"name" binding:"required,max=255"`
	GenericName          *string `json:"genericName"`
	Description          *string `json:"description"`
	CategoryID           *string `json:"categoryId"`
	SupplierID           *string `json:"supplierId"`
	BatchNumber          *string `json:"batchNumber"`
	UnitCost             string  `json:"unitCost"`
	SellingPrice         string  `json:"sellingPrice" binding:"required"`
	Quantity             int     `json:"quantity" binding:"min=0"`
	ReorderLevel         *int    `json:"reorderLevel" binding:"omitempty,min=0"`
	ExpiryDate           string  `json:"expiryDate" binding:"required"`
	ManufactureDate      *string `json:"manufactureDate"`
	RequiresPrescription bool    `json:"requiresPrescription"`
}

// defaultReorderLevel applies when the request omits one.
const defaultReorderLevel = 10

// ToEntity builds a medicine ready for Upsert. A nil existing creates.
func (r MedicineRequest) ToEntity(existing *medicine.Medicine) (*medicine.Medicine, error) {
	sellingPrice, err := ParseMoney("sellingPrice", r.SellingPrice)
	if err != nil {
		return nil, err
	}
	unitCost := types.Zero()
	if strings.TrimSpace(r.UnitCost) != "" {
		if unitCost, err = ParseMoney("unitCost", r.UnitCost); err != nil {
			return nil, err
		}
	}
	expiry, err := ParseDate("expiryDate", r.ExpiryDate)
	if err != nil {
		return nil, err
	}
	manufactured, err := ParseDatePtr("manufactureDate", r.ManufactureDate)
	if err != nil {
		return nil, err
	}
	categoryID, err := ParseOptionalID("categoryId", r.CategoryID)
	if err != nil {
		return nil, err
	}
	supplierID, err := ParseOptionalID("supplierId", r.SupplierID)
	if err != nil {
		return nil, err
	}

	m := existing
	if m == nil {
		m = medicine.NewMedicine(r.Name, sellingPrice, expiry)
		m.ID = id.Nil()
		m.Quantity = r.Quantity
		m.ReorderLevel = defaultReorderLevel
	}
	m.Name = strings.TrimSpace(r.Name)
	m.GenericName = trimPtr(r.GenericName)
	m.Description = trimPtr(r.Description)
	m.CategoryID = categoryID
	m.SupplierID = supplierID
	m.BatchNumber = trimPtr(r.BatchNumber)
	m.UnitCost = unitCost
	m.SellingPrice = sellingPrice
	m.ExpiryDate = expiry
	m.ManufactureDate = manufactured
	m.RequiresPrescription = r.RequiresPrescription
	if r.ReorderLevel != nil {
		m.ReorderLevel = *r.ReorderLevel
	}
	return m, nil
}

// MedicineQuery filters the medicine list.
type MedicineQuery struct {
	ListQuery
	CategoryID           string `form:"categoryId"`
	SupplierID           string `form:"supplierId"`
	LowStock             bool   `form:"lowStock"`
	ExpiringWithinDays   *int   `form:"expiringWithinDays" binding:"omitempty,min=0"`
	RequiresPrescription *bool  `form:"requiresPrescription"`
}

// ToFilter converts the query to a domain filter.
func (q MedicineQuery) ToFilter() (medicine.Filter, error) {
	f := medicine.Filter{
		ListFilter:           q.ListQuery.ToListFilter(),
		LowStockOnly:         q.LowStock,
		ExpiringWithinDays:   q.ExpiringWithinDays,
		RequiresPrescription: q.RequiresPrescription,
	}
	var err error
	if f.CategoryID, err = ParseOptionalID("categoryId", &q.CategoryID); err != nil {
		return f, err
	}
	if f.SupplierID, err = ParseOptionalID("supplierId", &q.SupplierID); err != nil {
		return f, err
	}
	return f, nil
}

// MedicineResponse is a medicine in API responses.
type MedicineResponse struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	GenericName          *string   `json:"genericName,omitempty"`
	Description          *string   `json:"description,omitempty"`
	CategoryID           *string   `json:"categoryId,omitempty"`
	CategoryName         *string   `json:"categoryName,omitempty"`
	SupplierID           *string   `json:"supplierId,omitempty"`
	SupplierName         *string   `json:"supplierName,omitempty"`
	BatchNumber          *string   `json:"batchNumber,omitempty"`
	UnitCost             string    `json:"unitCost"`
	SellingPrice         string    `json:"sellingPrice"`
	Quantity             int       `json:"quantity"`
	ReorderLevel         int       `json:"reorderLevel"`
	ExpiryDate           string    `json:"expiryDate"`
	ManufactureDate      *string   `json:"manufactureDate,omitempty"`
	RequiresPrescription bool      `json:"requiresPrescription"`
	Archived             bool      `json:"archived"`
	LowStock             bool      `json:"lowStock"`
	DaysToExpiry         int       `json:"daysToExpiry"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// FromMedicineView converts a joined medicine row to its response.
func FromMedicineView(v *medicine.View) MedicineResponse {
	resp := FromMedicine(&v.Medicine)
	resp.CategoryName = v.CategoryName
	resp.SupplierName = v.SupplierName
	return resp
}

// FromMedicine converts a medicine to its response.
func FromMedicine(m *medicine.Medicine) MedicineResponse {
	return MedicineResponse{
		ID:                   m.ID.String(),
		Name:                 m.Name,
		GenericName:          m.GenericName,
		Description:          m.Description,
		CategoryID:           IDString(m.CategoryID),
		SupplierID:           IDString(m.SupplierID),
		BatchNumber:          m.BatchNumber,
		UnitCost:             Money(m.UnitCost),
		SellingPrice:         Money(m.SellingPrice),
		Quantity:             m.Quantity,
		ReorderLevel:         m.ReorderLevel,
		ExpiryDate:           FormatDate(m.ExpiryDate),
		ManufactureDate:      FormatDatePtr(m.ManufactureDate),
		RequiresPrescription: m.RequiresPrescription,
		Archived:             m.DeletionMark,
		LowStock:             m.IsLowStock(),
		DaysToExpiry:         m.DaysToExpiry(time.Now()),
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

// --- Stock changes ---

// AdjustRequest changes a medicine's quantity by a signed delta.
type AdjustRequest struct {
	Delta  int    `json:"delta" binding:"required"`
	Kind   string `json:"movementType"`
	Reason string `json:"reason" binding:"required,max=500"`
}

// ToAdjustment converts to the domain command. The kind defaults from the sign.
func (r AdjustRequest) ToAdjustment(medicineID id.ID) (medicine.Adjustment, error) {
	kind := entity.MovementKind(strings.TrimSpace(r.Kind))
	if kind == "" {
		kind = entity.MovementAdjustment
		if r.Delta > 0 {
			kind = entity.MovementIn
		}
	}
	if kind == entity.MovementOut {
		return medicine.Adjustment{}, apperror.NewFieldValidation("movementType", "out movements are recorded by sales")
	}
	if !kind.Valid() {
		return medicine.Adjustment{}, apperror.NewFieldValidation("movementType", "movement type must be in, adjustment or expired").
			WithDetail("value", r.Kind)
	}
	return medicine.Adjustment{
		MedicineID: medicineID,
		Delta:      r.Delta,
		Kind:       kind,
		Reason:     r.Reason,
	}, nil
}

// AdjustResponse reports the movement and the resulting quantity.
type AdjustResponse struct {
	Movement MovementResponse `json:"movement"`
	Quantity int              `json:"quantity"`
}

// ArchiveRequest toggles the archive flag.
type ArchiveRequest struct {
	Archived bool `json:"archived"`
}

// MovementQuery filters the movement ledger.
type MovementQuery struct {
	MedicineID  string `form:"medicineId"`
	Kind        string `form:"movementType"`
	ReferenceID string `form:"referenceId"`
	From        string `form:"from"`
	To          string `form:"to"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset      int    `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query to a ledger filter.
func (q MovementQuery) ToFilter() (stock.MovementFilter, error) {
	f := stock.MovementFilter{Limit: q.Limit, Offset: q.Offset}
	var err error
	if f.MedicineID, err = ParseOptionalID("medicineId", &q.MedicineID); err != nil {
		return f, err
	}
	if f.ReferenceID, err = ParseOptionalID("referenceId", &q.ReferenceID); err != nil {
		return f, err
	}
	if q.Kind != "" {
		kind := entity.MovementKind(q.Kind)
		if !kind.Valid() {
			return f, apperror.NewFieldValidation("movementType", "unknown movement type").WithDetail("value", q.Kind)
		}
		f.Kind = &kind
	}
	if f.FromDate, err = ParseDayStartPtr("from", &q.From); err != nil {
		return f, err
	}
	if f.ToDate, err = ParseDayStartPtr("to", &q.To); err != nil {
		return f, err
	}
	return f, nil
}

// MovementResponse is one ledger row.
type MovementResponse struct {
	ID           string    `json:"id"`
	MedicineID   string    `json:"medicineId"`
	MedicineName string    `json:"medicineName,omitempty"`
	MovementType string    `json:"movementType"`
	Quantity     int       `json:"quantity"`
	Reason       string    `json:"reason"`
	ReferenceID  *string   `json:"referenceId,omitempty"`
	CreatedBy    *string   `json:"createdBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FromMovement converts a movement to its response.
func FromMovement(m entity.StockMovement) MovementResponse {
	return MovementResponse{
		ID:           m.ID.String(),
		MedicineID:   m.MedicineID.String(),
		MovementType: string(m.Kind),
		Quantity:     m.Quantity,
		Reason:       m.Reason,
		ReferenceID:  IDString(m.ReferenceID),
		CreatedBy:    IDString(m.CreatedBy),
		CreatedAt:    m.CreatedAt,
	}
}

// FromMovementView converts a joined ledger row to its response.
func FromMovementView(v stock.MovementView) MovementResponse {
	resp := FromMovement(v.StockMovement)
	resp.MedicineName = v.MedicineName
	return resp
}

// MovementTotalsResponse sums the ledger by movement type.
type MovementTotalsResponse struct {
	Totals []stock.KindTotal `json:"totals"`
}
