package memory

import (
	"context"
	"slices"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/entity"
	"pharmledger/internal/domain"
	"pharmledger/internal/domain/registers/stock"
)

// StockRepo implements stock.Repository.
type StockRepo struct {
	store *Store
}

var _ stock.Repository = (*StockRepo)(nil)

// Append inserts movements. One unknown medicine rejects the whole batch.
func (r *StockRepo) Append(ctx context.Context, movements []entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.store.write(ctx, func(st *state) error {
		for _, mv := range movements {
			if _, ok := st.medicines[mv.MedicineID]; !ok {
				return apperror.NewReferentialViolation("medicine", "medicine_id")
			}
		}
		st.movements = append(st.movements, movements...)
		return nil
	})
}

func movementMatches(mv *entity.StockMovement, f stock.MovementFilter) bool {
	if f.MedicineID != nil && mv.MedicineID != *f.MedicineID {
		return false
	}
	if f.Kind != nil && mv.Kind != *f.Kind {
		return false
	}
	if f.ReferenceID != nil && (mv.ReferenceID == nil || *mv.ReferenceID != *f.ReferenceID) {
		return false
	}
	if f.FromDate != nil && mv.CreatedAt.Before(*f.FromDate) {
		return false
	}
	if f.ToDate != nil && !mv.CreatedAt.Before(*f.ToDate) {
		return false
	}
	return true
}

// List returns movements newest first.
func (r *StockRepo) List(ctx context.Context, f stock.MovementFilter) (domain.ListResult[stock.MovementView], error) {
	items := make([]stock.MovementView, 0)
	r.store.read(func(st *state) {
		for _, mv := range st.movements {
			if !movementMatches(&mv, f) {
				continue
			}
			items = append(items, stock.MovementView{
				StockMovement: mv,
				MedicineName:  st.medicines[mv.MedicineID].Name,
			})
		}
	})

	slices.SortStableFunc(items, func(a, b stock.MovementView) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareIDs(b.ID, a.ID)
	})
	return paginate(items, domain.ListFilter{Limit: f.Limit, Offset: f.Offset}), nil
}

// Totals sums movements per kind, ordered by kind.
func (r *StockRepo) Totals(ctx context.Context, f stock.MovementFilter) ([]stock.KindTotal, error) {
	byKind := make(map[entity.MovementKind]*stock.KindTotal)
	r.store.read(func(st *state) {
		for _, mv := range st.movements {
			if !movementMatches(&mv, f) {
				continue
			}
			t, ok := byKind[mv.Kind]
			if !ok {
				t = &stock.KindTotal{Kind: mv.Kind}
				byKind[mv.Kind] = t
			}
			t.Count++
			t.Quantity += int64(mv.Quantity)
		}
	})

	totals := make([]stock.KindTotal, 0, len(byKind))
	for _, t := range byKind {
		totals = append(totals, *t)
	}
	slices.SortFunc(totals, func(a, b stock.KindTotal) int { return cmpString(string(a.Kind), string(b.Kind)) })
	return totals, nil
}
