// Package prescription provides the prescription register.
// Prescriptions are recorded once and never modified.
package prescription

import (
	"context"
	"strings"
	"time"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/entity"
	"pharmledger/internal/core/id"
	"pharmledger/internal/core/types"
)

// Prescription is a doctor's order presented at the counter.
type Prescription struct {
	entity.Document

	// Number is unique; generated as RX-YYYYMMDD-NNN when not supplied
	Number string `db:"prescription_number" json:"prescriptionNumber"`

	PatientName      string    `db:"patient_name" json:"patientName"`
	PatientPhone     *string   `db:"patient_phone" json:"patientPhone,omitempty"`
	DoctorName       string    `db:"doctor_name" json:"doctorName"`
	DoctorLicense    *string   `db:"doctor_license" json:"doctorLicense,omitempty"`
	PrescriptionDate time.Time `db:"prescription_date" json:"prescriptionDate"`
	Notes            *string   `db:"notes" json:"notes,omitempty"`
	CreatedBy        *id.ID    `db:"created_by" json:"createdBy,omitempty"`
}

// NewPrescription creates a Prescription dated today.
func NewPrescription(patientName, doctorName string) *Prescription {
	doc := entity.NewDocument()
	return &Prescription{
		Document:         doc,
		PatientName:      patientName,
		DoctorName:       doctorName,
		PrescriptionDate: types.BusinessDate(doc.CreatedAt),
	}
}

// Validate implements entity.Validatable.
func (p *Prescription) Validate(ctx context.Context) error {
	if strings.TrimSpace(p.PatientName) == "" {
		return apperror.NewFieldValidation("patient_name", "patient name is required")
	}
	if strings.TrimSpace(p.DoctorName) == "" {
		return apperror.NewFieldValidation("doctor_name", "doctor name is required")
	}
	if p.PrescriptionDate.IsZero() {
		return apperror.NewFieldValidation("prescription_date", "prescription date is required")
	}
	if types.CalendarDate(p.PrescriptionDate).After(types.BusinessDate(time.Now())) {
		return apperror.NewFieldValidation("prescription_date", "prescription date cannot be in the future")
	}
	if len(p.Number) > 50 {
		return apperror.NewFieldValidation("prescription_number", "prescription number is too long")
	}
	return nil
}

// View adds the number of the sale that dispensed the prescription, if any.
type View struct {
	Prescription

	SaleID     *id.ID  `db:"sale_id" json:"saleId,omitempty"`
	SaleNumber *string `db:"sale_number" json:"saleNumber,omitempty"`
}
