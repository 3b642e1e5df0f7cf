package memory

import (
	"context"
	"slices"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/id"
	"pharmledger/internal/core/types"
	"pharmledger/internal/domain"
	"pharmledger/internal/domain/documents/prescription"
	"pharmledger/internal/domain/documents/sale"
)

// --- Sales ---

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	store *Store
}

var _ sale.Repository = (*SaleRepo)(nil)

// Create inserts the header, enforcing the unique number and the
// one-sale-per-prescription rule.
func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.sales[s.ID]; ok {
			return apperror.NewDuplicate("sale", "id", s.ID.String())
		}
		if s.PrescriptionID != nil {
			if _, ok := st.prescriptions[*s.PrescriptionID]; !ok {
				return apperror.NewReferentialViolation("prescription", "prescription_id")
			}
		}
		for _, other := range st.sales {
			if other.Number == s.Number {
				return apperror.NewDuplicate("sale", "sale_number", s.Number)
			}
			if s.PrescriptionID != nil && other.PrescriptionID != nil && *other.PrescriptionID == *s.PrescriptionID {
				return apperror.NewDuplicate("sale", "prescription_id", s.PrescriptionID.String())
			}
		}
		header := *s
		header.Items = nil
		st.sales[s.ID] = header
		return nil
	})
}

// SaveItems stores the lines of an existing sale.
func (r *SaleRepo) SaveItems(ctx context.Context, saleID id.ID, items []sale.Item) error {
	if len(items) == 0 {
		return nil
	}
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.sales[saleID]; !ok {
			return apperror.NewReferentialViolation("sale", "sale_id")
		}
		stored := slices.Clone(st.saleItems[saleID])
		for _, it := range items {
			if _, ok := st.medicines[it.MedicineID]; !ok {
				return apperror.NewReferentialViolation("medicine", "medicine_id")
			}
			if it.Quantity <= 0 || !it.TotalPrice.Equal(types.LineTotal(it.Quantity, it.UnitPrice)) {
				return apperror.NewValidation("value violates a storage constraint").
					WithDetail("constraint", "sale_items_total_check")
			}
			it.SaleID = saleID
			stored = append(stored, it)
		}
		slices.SortFunc(stored, func(a, b sale.Item) int { return a.LineNo - b.LineNo })
		st.saleItems[saleID] = stored
		return nil
	})
}

func linesOf(st *state, saleID id.ID) []sale.ItemView {
	items := st.saleItems[saleID]
	lines := make([]sale.ItemView, 0, len(items))
	for _, it := range items {
		lines = append(lines, sale.ItemView{Item: it, MedicineName: st.medicines[it.MedicineID].Name})
	}
	return lines
}

func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.View, error) {
	var v *sale.View
	r.store.read(func(st *state) {
		if s, ok := st.sales[saleID]; ok {
			v = &sale.View{Sale: s, Lines: linesOf(st, saleID)}
		}
	})
	if v == nil {
		return nil, apperror.NewNotFound("sale", saleID.String())
	}
	return v, nil
}

func saleMatches(st *state, s *sale.Sale, f sale.ListFilter) bool {
	if f.DateFrom != nil && s.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && !s.CreatedAt.Before(*f.DateTo) {
		return false
	}
	if f.PaymentMethod != nil && s.PaymentMethod != *f.PaymentMethod {
		return false
	}
	if f.ServedBy != nil && (s.ServedBy == nil || *s.ServedBy != *f.ServedBy) {
		return false
	}
	if f.MedicineID != nil && !slices.ContainsFunc(st.saleItems[s.ID], func(it sale.Item) bool {
		return it.MedicineID == *f.MedicineID
	}) {
		return false
	}
	if !inIDs(f.IDs, s.ID) {
		return false
	}
	if f.Search != "" && !containsFold(s.Number, f.Search) &&
		!optContainsFold(s.CustomerName, f.Search) && !optContainsFold(s.CustomerPhone, f.Search) {
		return false
	}
	return true
}

var saleOrder = orderFields[*sale.Sale]{
	"created_at":     func(a, b *sale.Sale) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"sale_number":    func(a, b *sale.Sale) int { return cmpString(a.Number, b.Number) },
	"total_amount":   func(a, b *sale.Sale) int { return a.TotalAmount.Cmp(b.TotalAmount) },
	"payment_method": func(a, b *sale.Sale) int { return cmpString(string(a.PaymentMethod), string(b.PaymentMethod)) },
}

func (r *SaleRepo) selectSales(f sale.ListFilter) ([]*sale.Sale, error) {
	items := make([]*sale.Sale, 0)
	r.store.read(func(st *state) {
		for _, s := range st.sales {
			if saleMatches(st, &s, f) {
				items = append(items, &s)
			}
		}
	})
	if err := sortItems(items, f.OrderBy, saleOrder, "-created_at", func(s *sale.Sale) id.ID { return s.ID }); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *SaleRepo) List(ctx context.Context, f sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	items, err := r.selectSales(f)
	if err != nil {
		return domain.ListResult[*sale.Sale]{}, err
	}
	return paginate(items, f.ListFilter), nil
}

func (r *SaleRepo) ListWithLines(ctx context.Context, f sale.ListFilter) ([]*sale.View, error) {
	headers, err := r.selectSales(f)
	if err != nil {
		return nil, err
	}
	views := make([]*sale.View, 0, len(headers))
	r.store.read(func(st *state) {
		for _, h := range headers {
			views = append(views, &sale.View{Sale: *h, Lines: linesOf(st, h.ID)})
		}
	})
	return views, nil
}

func (r *SaleRepo) ExistsForPrescription(ctx context.Context, prescriptionID id.ID) (bool, error) {
	var found bool
	r.store.read(func(st *state) {
		for _, s := range st.sales {
			if s.PrescriptionID != nil && *s.PrescriptionID == prescriptionID {
				found = true
				return
			}
		}
	})
	return found, nil
}

// --- Prescriptions ---

// PrescriptionRepo implements prescription.Repository.
type PrescriptionRepo struct {
	store *Store
}

var _ prescription.Repository = (*PrescriptionRepo)(nil)

func (r *PrescriptionRepo) Create(ctx context.Context, p *prescription.Prescription) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.prescriptions[p.ID]; ok {
			return apperror.NewDuplicate("prescription", "id", p.ID.String())
		}
		for _, other := range st.prescriptions {
			if other.Number == p.Number {
				return apperror.NewDuplicate("prescription", "prescription_number", p.Number)
			}
		}
		st.prescriptions[p.ID] = *p
		return nil
	})
}

func prescriptionView(st *state, p prescription.Prescription) *prescription.View {
	v := &prescription.View{Prescription: p}
	for _, s := range st.sales {
		if s.PrescriptionID != nil && *s.PrescriptionID == p.ID {
			saleID, number := s.ID, s.Number
			v.SaleID, v.SaleNumber = &saleID, &number
			break
		}
	}
	return v
}

func (r *PrescriptionRepo) GetByID(ctx context.Context, prescriptionID id.ID) (*prescription.View, error) {
	var v *prescription.View
	r.store.read(func(st *state) {
		if p, ok := st.prescriptions[prescriptionID]; ok {
			v = prescriptionView(st, p)
		}
	})
	if v == nil {
		return nil, apperror.NewNotFound("prescription", prescriptionID.String())
	}
	return v, nil
}

func (r *PrescriptionRepo) Exists(ctx context.Context, prescriptionID id.ID) (bool, error) {
	var ok bool
	r.store.read(func(st *state) { _, ok = st.prescriptions[prescriptionID] })
	return ok, nil
}

func (r *PrescriptionRepo) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var found bool
	r.store.read(func(st *state) {
		for _, p := range st.prescriptions {
			if p.Number == number {
				found = true
				return
			}
		}
	})
	return found, nil
}

func prescriptionMatches(v *prescription.View, f prescription.ListFilter) bool {
	if f.DateFrom != nil && v.PrescriptionDate.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && !v.PrescriptionDate.Before(*f.DateTo) {
		return false
	}
	if f.Dispensed != nil && (v.SaleID != nil) != *f.Dispensed {
		return false
	}
	if f.DoctorName != "" && !containsFold(v.DoctorName, f.DoctorName) {
		return false
	}
	if !inIDs(f.IDs, v.ID) {
		return false
	}
	if f.Search != "" && !containsFold(v.Number, f.Search) && !containsFold(v.PatientName, f.Search) {
		return false
	}
	return true
}

var prescriptionOrder = orderFields[*prescription.View]{
	"created_at":          func(a, b *prescription.View) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"prescription_date":   func(a, b *prescription.View) int { return a.PrescriptionDate.Compare(b.PrescriptionDate) },
	"prescription_number": func(a, b *prescription.View) int { return cmpString(a.Number, b.Number) },
	"patient_name":        func(a, b *prescription.View) int { return cmpString(a.PatientName, b.PatientName) },
	"doctor_name":         func(a, b *prescription.View) int { return cmpString(a.DoctorName, b.DoctorName) },
}

func (r *PrescriptionRepo) List(ctx context.Context, f prescription.ListFilter) (domain.ListResult[*prescription.View], error) {
	items := make([]*prescription.View, 0)
	r.store.read(func(st *state) {
		for _, p := range st.prescriptions {
			if v := prescriptionView(st, p); prescriptionMatches(v, f) {
				items = append(items, v)
			}
		}
	})
	if err := sortItems(items, f.OrderBy, prescriptionOrder, "-created_at", func(v *prescription.View) id.ID { return v.ID }); err != nil {
		return domain.ListResult[*prescription.View]{}, err
	}
	return paginate(items, f.ListFilter), nil
}
