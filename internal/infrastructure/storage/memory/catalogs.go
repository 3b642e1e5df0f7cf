package memory

import (
	"cmp"
	"context"
	"time"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/id"
	"pharmledger/internal/domain"
	"pharmledger/internal/domain/catalogs/category"
	"pharmledger/internal/domain/catalogs/medicine"
	"pharmledger/internal/domain/catalogs/supplier"
)

// --- Categories ---

// CategoryRepo implements category.Repository.
type CategoryRepo struct {
	store *Store
}

var _ category.Repository = (*CategoryRepo)(nil)

func categoryNameTaken(st *state, name string, exclude id.ID) bool {
	for _, c := range st.categories {
		if c.Name == name && c.ID != exclude {
			return true
		}
	}
	return false
}

func (r *CategoryRepo) Create(ctx context.Context, c *category.Category) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.categories[c.ID]; ok {
			return apperror.NewDuplicate("category", "id", c.ID.String())
		}
		if categoryNameTaken(st, c.Name, c.ID) {
			return apperror.NewDuplicate("category", "name", c.Name)
		}
		st.categories[c.ID] = *c
		return nil
	})
}

func (r *CategoryRepo) GetByID(ctx context.Context, categoryID id.ID) (*category.Category, error) {
	var (
		c  category.Category
		ok bool
	)
	r.store.read(func(st *state) { c, ok = st.categories[categoryID] })
	if !ok {
		return nil, apperror.NewNotFound("category", categoryID.String())
	}
	return &c, nil
}

func (r *CategoryRepo) Update(ctx context.Context, c *category.Category) error {
	return r.store.write(ctx, func(st *state) error {
		current, ok := st.categories[c.ID]
		if !ok {
			return apperror.NewNotFound("category", c.ID.String())
		}
		if categoryNameTaken(st, c.Name, c.ID) {
			return apperror.NewDuplicate("category", "name", c.Name)
		}
		updated := *c
		updated.CreatedAt = current.CreatedAt
		st.categories[c.ID] = updated
		return nil
	})
}

func (r *CategoryRepo) Delete(ctx context.Context, categoryID id.ID) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.categories[categoryID]; !ok {
			return apperror.NewNotFound("category", categoryID.String())
		}
		for _, m := range st.medicines {
			if m.CategoryID != nil && *m.CategoryID == categoryID {
				return apperror.NewInUse("category", categoryID.String())
			}
		}
		delete(st.categories, categoryID)
		return nil
	})
}

var categoryOrder = orderFields[*category.Category]{
	"id":         func(a, b *category.Category) int { return compareIDs(a.ID, b.ID) },
	"name":       func(a, b *category.Category) int { return cmpString(a.Name, b.Name) },
	"created_at": func(a, b *category.Category) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"updated_at": func(a, b *category.Category) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
}

func (r *CategoryRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*category.Category], error) {
	items := make([]*category.Category, 0)
	r.store.read(func(st *state) {
		for _, c := range st.categories {
			if filter.Search != "" && !containsFold(c.Name, filter.Search) {
				continue
			}
			if !inIDs(filter.IDs, c.ID) {
				continue
			}
			items = append(items, &c)
		}
	})
	if err := sortItems(items, filter.OrderBy, categoryOrder, "name", func(c *category.Category) id.ID { return c.ID }); err != nil {
		return domain.ListResult[*category.Category]{}, err
	}
	return paginate(items, filter), nil
}

func (r *CategoryRepo) Exists(ctx context.Context, categoryID id.ID) (bool, error) {
	var ok bool
	r.store.read(func(st *state) { _, ok = st.categories[categoryID] })
	return ok, nil
}

func (r *CategoryRepo) ExistsByName(ctx context.Context, name string, excludeID id.ID) (bool, error) {
	var taken bool
	r.store.read(func(st *state) { taken = categoryNameTaken(st, name, excludeID) })
	return taken, nil
}

// --- Suppliers ---

// SupplierRepo implements supplier.Repository.
type SupplierRepo struct {
	store *Store
}

var _ supplier.Repository = (*SupplierRepo)(nil)

func (r *SupplierRepo) Create(ctx context.Context, s *supplier.Supplier) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.suppliers[s.ID]; ok {
			return apperror.NewDuplicate("supplier", "id", s.ID.String())
		}
		st.suppliers[s.ID] = *s
		return nil
	})
}

func (r *SupplierRepo) GetByID(ctx context.Context, supplierID id.ID) (*supplier.Supplier, error) {
	var (
		s  supplier.Supplier
		ok bool
	)
	r.store.read(func(st *state) { s, ok = st.suppliers[supplierID] })
	if !ok {
		return nil, apperror.NewNotFound("supplier", supplierID.String())
	}
	return &s, nil
}

func (r *SupplierRepo) Update(ctx context.Context, s *supplier.Supplier) error {
	return r.store.write(ctx, func(st *state) error {
		current, ok := st.suppliers[s.ID]
		if !ok {
			return apperror.NewNotFound("supplier", s.ID.String())
		}
		updated := *s
		updated.CreatedAt = current.CreatedAt
		st.suppliers[s.ID] = updated
		return nil
	})
}

func (r *SupplierRepo) Delete(ctx context.Context, supplierID id.ID) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.suppliers[supplierID]; !ok {
			return apperror.NewNotFound("supplier", supplierID.String())
		}
		for _, m := range st.medicines {
			if m.SupplierID != nil && *m.SupplierID == supplierID {
				return apperror.NewInUse("supplier", supplierID.String())
			}
		}
		delete(st.suppliers, supplierID)
		return nil
	})
}

var supplierOrder = orderFields[*supplier.Supplier]{
	"id":             func(a, b *supplier.Supplier) int { return compareIDs(a.ID, b.ID) },
	"name":           func(a, b *supplier.Supplier) int { return cmpString(a.Name, b.Name) },
	"contact_person": func(a, b *supplier.Supplier) int { return cmpOptString(a.ContactPerson, b.ContactPerson) },
	"email":          func(a, b *supplier.Supplier) int { return cmpOptString(a.Email, b.Email) },
	"created_at":     func(a, b *supplier.Supplier) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"updated_at":     func(a, b *supplier.Supplier) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
}

func (r *SupplierRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*supplier.Supplier], error) {
	items := make([]*supplier.Supplier, 0)
	r.store.read(func(st *state) {
		for _, s := range st.suppliers {
			if filter.Search != "" && !containsFold(s.Name, filter.Search) {
				continue
			}
			if !inIDs(filter.IDs, s.ID) {
				continue
			}
			items = append(items, &s)
		}
	})
	if err := sortItems(items, filter.OrderBy, supplierOrder, "name", func(s *supplier.Supplier) id.ID { return s.ID }); err != nil {
		return domain.ListResult[*supplier.Supplier]{}, err
	}
	return paginate(items, filter), nil
}

func (r *SupplierRepo) Exists(ctx context.Context, supplierID id.ID) (bool, error) {
	var ok bool
	r.store.read(func(st *state) { _, ok = st.suppliers[supplierID] })
	return ok, nil
}

func (r *SupplierRepo) ExistsByName(ctx context.Context, name string, excludeID id.ID) (bool, error) {
	var taken bool
	r.store.read(func(st *state) {
		for _, s := range st.suppliers {
			if s.Name == name && s.ID != excludeID {
				taken = true
				return
			}
		}
	})
	return taken, nil
}

// --- Medicines ---

// MedicineRepo implements medicine.Repository.
type MedicineRepo struct {
	store *Store
}

var _ medicine.Repository = (*MedicineRepo)(nil)

func checkMedicineRefs(st *state, m *medicine.Medicine) error {
	if m.CategoryID != nil {
		if _, ok := st.categories[*m.CategoryID]; !ok {
			return apperror.NewReferentialViolation("category", "category_id")
		}
	}
	if m.SupplierID != nil {
		if _, ok := st.suppliers[*m.SupplierID]; !ok {
			return apperror.NewReferentialViolation("supplier", "supplier_id")
		}
	}
	return nil
}

func (r *MedicineRepo) Create(ctx context.Context, m *medicine.Medicine) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.medicines[m.ID]; ok {
			return apperror.NewDuplicate("medicine", "id", m.ID.String())
		}
		if m.Quantity < 0 {
			return apperror.NewValidation("value violates a storage constraint").
				WithDetail("constraint", "medicines_quantity_check")
		}
		if err := checkMedicineRefs(st, m); err != nil {
			return err
		}
		st.medicines[m.ID] = *m
		return nil
	})
}

// Update writes catalogue fields guarded by version, keeping quantity and the deletion mark.
func (r *MedicineRepo) Update(ctx context.Context, m *medicine.Medicine) error {
	return r.store.write(ctx, func(st *state) error {
		current, ok := st.medicines[m.ID]
		if !ok || current.Version != m.Version {
			return apperror.NewConcurrentModification("medicine", m.ID.String())
		}
		if err := checkMedicineRefs(st, m); err != nil {
			return err
		}
		updated := *m
		updated.Quantity = current.Quantity
		updated.DeletionMark = current.DeletionMark
		updated.CreatedAt = current.CreatedAt
		updated.CreatedBy = current.CreatedBy
		updated.Version = current.Version + 1
		st.medicines[m.ID] = updated
		m.Version++
		return nil
	})
}

func (r *MedicineRepo) GetByID(ctx context.Context, medicineID id.ID) (*medicine.Medicine, error) {
	var (
		m  medicine.Medicine
		ok bool
	)
	r.store.read(func(st *state) { m, ok = st.medicines[medicineID] })
	if !ok {
		return nil, apperror.NewNotFound("medicine", medicineID.String())
	}
	return &m, nil
}

func viewOf(st *state, m medicine.Medicine) *medicine.View {
	v := &medicine.View{Medicine: m}
	if m.CategoryID != nil {
		if c, ok := st.categories[*m.CategoryID]; ok {
			name := c.Name
			v.CategoryName = &name
		}
	}
	if m.SupplierID != nil {
		if s, ok := st.suppliers[*m.SupplierID]; ok {
			name := s.Name
			v.SupplierName = &name
		}
	}
	return v
}

func (r *MedicineRepo) GetView(ctx context.Context, medicineID id.ID) (*medicine.View, error) {
	var v *medicine.View
	r.store.read(func(st *state) {
		if m, ok := st.medicines[medicineID]; ok {
			v = viewOf(st, m)
		}
	})
	if v == nil {
		return nil, apperror.NewNotFound("medicine", medicineID.String())
	}
	return v, nil
}

func (r *MedicineRepo) matches(m *medicine.Medicine, f medicine.Filter, now time.Time) bool {
	if m.DeletionMark && !f.IncludeArchived {
		return false
	}
	if f.Search != "" && !containsFold(m.Name, f.Search) && !optContainsFold(m.GenericName, f.Search) {
		return false
	}
	if !inIDs(f.IDs, m.ID) {
		return false
	}
	if f.CategoryID != nil && (m.CategoryID == nil || *m.CategoryID != *f.CategoryID) {
		return false
	}
	if f.SupplierID != nil && (m.SupplierID == nil || *m.SupplierID != *f.SupplierID) {
		return false
	}
	if f.LowStockOnly && !m.IsLowStock() {
		return false
	}
	if f.ExpiringWithinDays != nil {
		days := m.DaysToExpiry(now)
		if days < 0 || days > *f.ExpiringWithinDays {
			return false
		}
	}
	if f.RequiresPrescription != nil && m.RequiresPrescription != *f.RequiresPrescription {
		return false
	}
	return true
}

var medicineOrder = orderFields[*medicine.View]{
	"id":                    func(a, b *medicine.View) int { return compareIDs(a.ID, b.ID) },
	"name":                  func(a, b *medicine.View) int { return cmpString(a.Name, b.Name) },
	"generic_name":          func(a, b *medicine.View) int { return cmpOptString(a.GenericName, b.GenericName) },
	"quantity":              func(a, b *medicine.View) int { return cmp.Compare(a.Quantity, b.Quantity) },
	"reorder_level":         func(a, b *medicine.View) int { return cmp.Compare(a.ReorderLevel, b.ReorderLevel) },
	"unit_cost":             func(a, b *medicine.View) int { return a.UnitCost.Cmp(b.UnitCost) },
	"selling_price":         func(a, b *medicine.View) int { return a.SellingPrice.Cmp(b.SellingPrice) },
	"expiry_date":           func(a, b *medicine.View) int { return a.ExpiryDate.Compare(b.ExpiryDate) },
	"batch_number":          func(a, b *medicine.View) int { return cmpOptString(a.BatchNumber, b.BatchNumber) },
	"requires_prescription": func(a, b *medicine.View) int { return cmpBool(a.RequiresPrescription, b.RequiresPrescription) },
	"created_at":            func(a, b *medicine.View) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"updated_at":            func(a, b *medicine.View) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

func (r *MedicineRepo) List(ctx context.Context, filter medicine.Filter) (domain.ListResult[*medicine.View], error) {
	now := time.Now()
	items := make([]*medicine.View, 0)
	r.store.read(func(st *state) {
		for _, m := range st.medicines {
			if r.matches(&m, filter, now) {
				items = append(items, viewOf(st, m))
			}
		}
	})
	if err := sortItems(items, filter.OrderBy, medicineOrder, "name", func(v *medicine.View) id.ID { return v.ID }); err != nil {
		return domain.ListResult[*medicine.View]{}, err
	}
	return paginate(items, filter.ListFilter), nil
}

// ApplyDelta adds delta unless the result would be negative. The check and
// the write happen under one lock.
func (r *MedicineRepo) ApplyDelta(ctx context.Context, medicineID id.ID, delta int) (int, error) {
	var qty int
	err := r.store.write(ctx, func(st *state) error {
		m, ok := st.medicines[medicineID]
		if !ok || m.Quantity+delta < 0 {
			return medicine.ErrStockConditionFailed
		}
		m.Quantity += delta
		m.UpdatedAt = time.Now().UTC()
		st.medicines[medicineID] = m
		qty = m.Quantity
		return nil
	})
	return qty, err
}

func (r *MedicineRepo) SetDeletionMark(ctx context.Context, medicineID id.ID, marked bool) error {
	return r.store.write(ctx, func(st *state) error {
		m, ok := st.medicines[medicineID]
		if !ok {
			return apperror.NewNotFound("medicine", medicineID.String())
		}
		m.DeletionMark = marked
		m.Version++
		m.UpdatedAt = time.Now().UTC()
		st.medicines[medicineID] = m
		return nil
	})
}

func medicineReferenced(st *state, medicineID id.ID) bool {
	for _, mv := range st.movements {
		if mv.MedicineID == medicineID {
			return true
		}
	}
	for _, items := range st.saleItems {
		for _, it := range items {
			if it.MedicineID == medicineID {
				return true
			}
		}
	}
	return false
}

func (r *MedicineRepo) Delete(ctx context.Context, medicineID id.ID) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.medicines[medicineID]; !ok {
			return apperror.NewNotFound("medicine", medicineID.String())
		}
		if medicineReferenced(st, medicineID) {
			return apperror.NewInUse("medicine", medicineID.String())
		}
		delete(st.medicines, medicineID)
		return nil
	})
}

func (r *MedicineRepo) IsReferenced(ctx context.Context, medicineID id.ID) (bool, error) {
	var referenced bool
	r.store.read(func(st *state) { referenced = medicineReferenced(st, medicineID) })
	return referenced, nil
}

func (r *MedicineRepo) selectSorted(pred func(m *medicine.Medicine) bool, less func(a, b *medicine.Medicine) int) []*medicine.Medicine {
	items := make([]*medicine.Medicine, 0)
	r.store.read(func(st *state) {
		for _, m := range st.medicines {
			if pred(&m) {
				items = append(items, &m)
			}
		}
	})
	sortByThenID(items, less)
	return items
}

func sortByThenID(items []*medicine.Medicine, less func(a, b *medicine.Medicine) int) {
	_ = sortItems(items, "key", orderFields[*medicine.Medicine]{"key": less}, "key",
		func(m *medicine.Medicine) id.ID { return m.ID })
}

// ListExpired returns unarchived medicines with stock whose expiry day is before asOf.
func (r *MedicineRepo) ListExpired(ctx context.Context, asOf time.Time) ([]*medicine.Medicine, error) {
	return r.selectSorted(
		func(m *medicine.Medicine) bool {
			return !m.DeletionMark && m.Quantity > 0 && m.DaysToExpiry(asOf) < 0
		},
		func(a, b *medicine.Medicine) int { return a.ExpiryDate.Compare(b.ExpiryDate) },
	), nil
}

// ListActive returns every unarchived medicine ordered by name.
func (r *MedicineRepo) ListActive(ctx context.Context) ([]*medicine.Medicine, error) {
	return r.selectSorted(
		func(m *medicine.Medicine) bool { return !m.DeletionMark },
		func(a, b *medicine.Medicine) int { return cmpString(a.Name, b.Name) },
	), nil
}
