// Package sale records point-of-sale transactions against the medicine stock.
package sale

import (
	"context"
	"fmt"
	"strings"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/entity"
	"pharmledger/internal/core/id"
	"pharmledger/internal/core/types"
)

// PaymentMethod is how the customer paid.
type PaymentMethod string

const (
	PaymentCash      PaymentMethod = "cash"
	PaymentMpesa     PaymentMethod = "mpesa"
	PaymentCard      PaymentMethod = "card"
	PaymentInsurance PaymentMethod = "insurance"
)

// Valid reports whether p is an accepted payment method.
func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentMpesa, PaymentCard, PaymentInsurance:
		return true
	}
	return false
}

// Sale is the immutable header of a completed sale.
type Sale struct {
	entity.Document

	// Number is SALE-YYYYMMDD-NNNN
	Number string `db:"sale_number" json:"saleNumber"`

	CustomerName  *string `db:"customer_name" json:"customerName,omitempty"`
	CustomerPhone *string `db:"customer_phone" json:"customerPhone,omitempty"`

	// TotalAmount equals the sum of the line totals
	TotalAmount types.Money `db:"total_amount" json:"totalAmount"`

	PaymentMethod  PaymentMethod `db:"payment_method" json:"paymentMethod"`
	PrescriptionID *id.ID        `db:"prescription_id" json:"prescriptionId,omitempty"`
	ServedBy       *id.ID        `db:"served_by" json:"servedBy,omitempty"`
	Notes          *string       `db:"notes" json:"notes,omitempty"`

	Items []Item `db:"-" json:"items,omitempty"`
}

// Item is one sale line with the unit price captured at sale time.
type Item struct {
	ID         id.ID       `db:"id" json:"id"`
	SaleID     id.ID       `db:"sale_id" json:"saleId"`
	LineNo     int         `db:"line_no" json:"lineNo"`
	MedicineID id.ID       `db:"medicine_id" json:"medicineId"`
	Quantity   int         `db:"quantity" json:"quantity"`
	UnitPrice  types.Money `db:"unit_price" json:"unitPrice"`
	TotalPrice types.Money `db:"total_price" json:"totalPrice"`
}

// ItemView is a sale line joined with its medicine name.
type ItemView struct {
	Item

	MedicineName string `db:"medicine_name" json:"medicineName"`
}

// View is a sale with its lines.
type View struct {
	Sale

	Lines []ItemView `db:"-" json:"lines"`
}

// Customer is optional information about the buyer.
type Customer struct {
	Name  *string
	Phone *string
}

// LineItem is one requested line of a sale.
type LineItem struct {
	MedicineID id.ID
	Quantity   int
}

// RecordCommand is the input of RecordSale.
type RecordCommand struct {
	Customer       Customer
	PaymentMethod  PaymentMethod
	PrescriptionID *id.ID
	Notes          *string
	Lines          []LineItem
}

// Validate checks the command without touching storage.
func (c *RecordCommand) Validate(ctx context.Context) error {
	if len(c.Lines) == 0 {
		return apperror.NewEmptyLineItems()
	}
	if !c.PaymentMethod.Valid() {
		return apperror.NewFieldValidation("payment_method", "payment method must be one of cash, mpesa, card, insurance").
			WithDetail("value", string(c.PaymentMethod))
	}
	for i, line := range c.Lines {
		if id.IsNil(line.MedicineID) {
			return apperror.NewFieldValidation(fmt.Sprintf("items[%d].medicine_id", i), "medicine is required").
				WithDetail("line", i+1)
		}
		if line.Quantity <= 0 {
			return apperror.NewFieldValidation(fmt.Sprintf("items[%d].quantity", i), "quantity must be positive").
				WithDetail("line", i+1)
		}
	}
	if c.Customer.Phone != nil && len(strings.TrimSpace(*c.Customer.Phone)) > 20 {
		return apperror.NewFieldValidation("customer_phone", "phone number is too long")
	}
	return nil
}

// mergedLines folds repeated medicines into one line, keeping first-seen order.
func (c *RecordCommand) mergedLines() []LineItem {
	index := make(map[id.ID]int, len(c.Lines))
	merged := make([]LineItem, 0, len(c.Lines))
	for _, line := range c.Lines {
		if i, ok := index[line.MedicineID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.MedicineID] = len(merged)
		merged = append(merged, line)
	}
	return merged
}

// computeTotal sums the line totals.
func (s *Sale) computeTotal() {
	totals := make([]types.Money, len(s.Items))
	for i, item := range s.Items {
		totals[i] = item.TotalPrice
	}
	s.TotalAmount = types.Sum(totals...)
}
