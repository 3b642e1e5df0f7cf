package dto

import (
	"strings"
	"time"

	"pharmledger/internal/domain/documents/prescription"
)

// PrescriptionRequest records a prescription.
type PrescriptionRequest struct {
	PrescriptionNumber *string `json:"prescriptionNumber" binding:"omitempty,max=50"`
	PatientName        string  `json:"patientName" binding:"required,max=255"`
	PatientPhone       *string `json:"patientPhone" binding:"omitempty,max=20"`
	DoctorName         string  `json:"doctorName" binding:"required,max=255"`
	DoctorLicense      *string `json:"doctorLicense" binding:"omitempty,max=100"`
	PrescriptionDate   *string `json:"prescriptionDate"`
	Notes              *string `json:"notes"`
}

// ToEntity builds a prescription. A blank number is generated on record.
func (r PrescriptionRequest) ToEntity() (*prescription.Prescription, error) {
	p := prescription.NewPrescription(strings.TrimSpace(r.PatientName), strings.TrimSpace(r.DoctorName))
	date, err := ParseDatePtr("prescriptionDate", r.PrescriptionDate)
	if err != nil {
		return nil, err
	}
	if date != nil {
		p.PrescriptionDate = *date
	}
	if n := trimPtr(r.PrescriptionNumber); n != nil {
		p.Number = *n
	}
	p.PatientPhone = trimPtr(r.PatientPhone)
	p.DoctorLicense = trimPtr(r.DoctorLicense)
	p.Notes = trimPtr(r.Notes)
	return p, nil
}

// PrescriptionQuery filters the prescription list.
type PrescriptionQuery struct {
	ListQuery
	From       string `form:"from"`
	To         string `form:"to"`
	Dispensed  *bool  `form:"dispensed"`
	DoctorName string `form:"doctorName"`
}

// ToFilter converts the query to a domain filter.
func (q PrescriptionQuery) ToFilter() (prescription.ListFilter, error) {
	f := prescription.ListFilter{
		ListFilter: q.ListQuery.ToListFilter(),
		Dispensed:  q.Dispensed,
		DoctorName: strings.TrimSpace(q.DoctorName),
	}
	var err error
	if f.DateFrom, err = ParseDatePtr("from", &q.From); err != nil {
		return f, err
	}
	if f.DateTo, err = ParseDatePtr("to", &q.To); err != nil {
		return f, err
	}
	return f, nil
}

// PrescriptionResponse is a prescription in API responses.
type PrescriptionResponse struct {
	ID                 string    `json:"id"`
	PrescriptionNumber string    `json:"prescriptionNumber"`
	PatientName        string    `json:"patientName"`
	PatientPhone       *string   `json:"patientPhone,omitempty"`
	DoctorName         string    `json:"doctorName"`
	DoctorLicense      *string   `json:"doctorLicense,omitempty"`
	PrescriptionDate   string    `json:"prescriptionDate"`
	Notes              *string   `json:"notes,omitempty"`
	CreatedBy          *string   `json:"createdBy,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	Dispensed          bool      `json:"dispensed"`
	SaleID             *string   `json:"saleId,omitempty"`
	SaleNumber         *string   `json:"saleNumber,omitempty"`
}

// FromPrescriptionView converts a prescription with its sale link.
func FromPrescriptionView(v *prescription.View) PrescriptionResponse {
	return PrescriptionResponse{
		ID:                 v.ID.String(),
		PrescriptionNumber: v.Number,
		PatientName:        v.PatientName,
		PatientPhone:       v.PatientPhone,
		DoctorName:         v.DoctorName,
		DoctorLicense:      v.DoctorLicense,
		PrescriptionDate:   FormatDate(v.PrescriptionDate),
		Notes:              v.Notes,
		CreatedBy:          IDString(v.CreatedBy),
		CreatedAt:          v.CreatedAt,
		Dispensed:          v.SaleID != nil,
		SaleID:             IDString(v.SaleID),
		SaleNumber:         v.SaleNumber,
	}
}
