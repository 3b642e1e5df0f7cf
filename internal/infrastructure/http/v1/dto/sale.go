package dto

import (
	"strings"
	"time"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/id"
	"pharmledger/internal/domain/documents/sale"
)

// SaleItemRequest is one requested line.
type SaleItemRequest struct {
	MedicineID string `json:"medicineId"`
	Quantity   int    `json:"quantity"`
}

// RecordSaleRequest records a sale.
type RecordSaleRequest struct {
	CustomerName   *string           `json:"customerName"`
	CustomerPhone  *string           `json:"customerPhone"`
	PaymentMethod  string            `json:"paymentMethod"`
	PrescriptionID *string           `json:"prescriptionId"`
	Notes          *string           `json:"notes"`
	Items          []SaleItemRequest `json:"items"`
}

// ToCommand converts to the domain command. Quantities and the payment
// method are checked by the domain so every caller gets the same errors.
func (r RecordSaleRequest) ToCommand() (sale.RecordCommand, error) {
	prescriptionID, err := ParseOptionalID("prescriptionId", r.PrescriptionID)
	if err != nil {
		return sale.RecordCommand{}, err
	}
	lines := make([]sale.LineItem, len(r.Items))
	for i, item := range r.Items {
		medicineID, err := id.Parse(strings.TrimSpace(item.MedicineID))
		if err != nil {
			return sale.RecordCommand{}, apperror.NewFieldValidation("items.medicineId", "invalid id format").
				WithDetail("line", i+1)
		}
		lines[i] = sale.LineItem{MedicineID: medicineID, Quantity: item.Quantity}
	}
	return sale.RecordCommand{
		Customer: sale.Customer{
			Name:  trimPtr(r.CustomerName),
			Phone: trimPtr(r.CustomerPhone),
		},
		PaymentMethod:  sale.PaymentMethod(strings.ToLower(strings.TrimSpace(r.PaymentMethod))),
		PrescriptionID: prescriptionID,
		Notes:          trimPtr(r.Notes),
		Lines:          lines,
	}, nil
}

// SaleQuery filters the sale list and export.
type SaleQuery struct {
	ListQuery
	From          string `form:"from"`
	To            string `form:"to"`
	PaymentMethod string `form:"paymentMethod"`
	ServedBy      string `form:"servedBy"`
	MedicineID    string `form:"medicineId"`
}

// ToFilter converts the query to a domain filter. To is exclusive.
func (q SaleQuery) ToFilter() (sale.ListFilter, error) {
	f := sale.ListFilter{ListFilter: q.ListQuery.ToListFilter()}
	var err error
	if f.DateFrom, err = ParseDayStartPtr("from", &q.From); err != nil {
		return f, err
	}
	if f.DateTo, err = ParseDayStartPtr("to", &q.To); err != nil {
		return f, err
	}
	if f.ServedBy, err = ParseOptionalID("servedBy", &q.ServedBy); err != nil {
		return f, err
	}
	if f.MedicineID, err = ParseOptionalID("medicineId", &q.MedicineID); err != nil {
		return f, err
	}
	if q.PaymentMethod != "" {
		pm := sale.PaymentMethod(strings.ToLower(q.PaymentMethod))
		if !pm.Valid() {
			return f, apperror.NewFieldValidation("paymentMethod", "unknown payment method").WithDetail("value", q.PaymentMethod)
		}
		f.PaymentMethod = &pm
	}
	return f, nil
}

// SaleLineResponse is one sold line.
type SaleLineResponse struct {
	ID           string `json:"id"`
	LineNo       int    `json:"lineNo"`
	MedicineID   string `json:"medicineId"`
	MedicineName string `json:"medicineName,omitempty"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unitPrice"`
	TotalPrice   string `json:"totalPrice"`
}

// SaleResponse is a sale in API responses. Lines are omitted in lists.
type SaleResponse struct {
	ID             string             `json:"id"`
	SaleNumber     string             `json:"saleNumber"`
	CustomerName   *string            `json:"customerName,omitempty"`
	CustomerPhone  *string            `json:"customerPhone,omitempty"`
	TotalAmount    string             `json:"totalAmount"`
	PaymentMethod  string             `json:"paymentMethod"`
	PrescriptionID *string            `json:"prescriptionId,omitempty"`
	ServedBy       *string            `json:"servedBy,omitempty"`
	Notes          *string            `json:"notes,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	Lines          []SaleLineResponse `json:"lines,omitempty"`
}

// FromSale converts a sale header (and its items, if loaded) to its response.
func FromSale(s *sale.Sale) SaleResponse {
	resp := SaleResponse{
		ID:             s.ID.String(),
		SaleNumber:     s.Number,
		CustomerName:   s.CustomerName,
		CustomerPhone:  s.CustomerPhone,
		TotalAmount:    Money(s.TotalAmount),
		PaymentMethod:  string(s.PaymentMethod),
		PrescriptionID: IDString(s.PrescriptionID),
		ServedBy:       IDString(s.ServedBy),
		Notes:          s.Notes,
		CreatedAt:      s.CreatedAt,
	}
	for _, item := range s.Items {
		resp.Lines = append(resp.Lines, fromSaleItem(item, ""))
	}
	return resp
}

// FromSaleView converts a sale with named lines to its response.
func FromSaleView(v *sale.View) SaleResponse {
	resp := FromSale(&v.Sale)
	resp.Lines = make([]SaleLineResponse, len(v.Lines))
	for i, line := range v.Lines {
		resp.Lines[i] = fromSaleItem(line.Item, line.MedicineName)
	}
	return resp
}

func fromSaleItem(item sale.Item, name string) SaleLineResponse {
	return SaleLineResponse{
		ID:           item.ID.String(),
		LineNo:       item.LineNo,
		MedicineID:   item.MedicineID.String(),
		MedicineName: name,
		Quantity:     item.Quantity,
		UnitPrice:    Money(item.UnitPrice),
		TotalPrice:   Money(item.TotalPrice),
	}
}
