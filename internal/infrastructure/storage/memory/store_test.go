package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/entity"
	"pharmledger/internal/core/id"
	"pharmledger/internal/core/numerator"
	"pharmledger/internal/core/types"
	"pharmledger/internal/domain"
	"pharmledger/internal/domain/catalogs/category"
	"pharmledger/internal/domain/catalogs/medicine"
	"pharmledger/internal/domain/registers/stock"
)

func newMedicine(t *testing.T, s *Store, name string, qty int) *medicine.Medicine {
	t.Helper()
	m := medicine.NewMedicine(name, types.MustMoney("50.00"), time.Now().AddDate(1, 0, 0))
	m.Quantity = qty
	require.NoError(t, s.Medicines().Create(context.Background(), m))
	return m
}

func TestRunInTransaction_RollbackRestoresState(t *testing.T) {
	s := New()
	ctx := context.Background()
	m := newMedicine(t, s, "Amoxicillin", 20)
	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	boom := errors.New("boom")
	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.Medicines().ApplyDelta(ctx, m.ID, -5); err != nil {
			return err
		}
		mv := entity.NewStockMovement(m.ID, entity.MovementOut, -5, "sale", nil, id.Nil())
		if err := s.Movements().Append(ctx, []entity.StockMovement{mv}); err != nil {
			return err
		}
		if _, err := s.Numerator().GetNextNumber(ctx, numerator.SaleConfig(), nil, day); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Medicines().GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Quantity)

	movements, err := s.Movements().List(ctx, stock.MovementFilter{})
	require.NoError(t, err)
	assert.Zero(t, movements.TotalCount)

	// the rolled back number is handed out again
	num, err := s.Numerator().GetNextNumber(ctx, numerator.SaleConfig(), nil, day)
	require.NoError(t, err)
	assert.Equal(t, "SALE-20261019-0001", num)
}

func TestRunInTransaction_Nested(t *testing.T) {
	s := New()
	ctx := context.Background()
	m := newMedicine(t, s, "Paracetamol", 10)

	err := s.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.RunInTransaction(ctx, func(ctx context.Context) error {
			_, err := s.Medicines().ApplyDelta(ctx, m.ID, 5)
			return err
		})
	})
	require.NoError(t, err)

	got, _ := s.Medicines().GetByID(ctx, m.ID)
	assert.Equal(t, 15, got.Quantity)
}

func TestApplyDelta_NeverNegative(t *testing.T) {
	s := New()
	ctx := context.Background()
	m := newMedicine(t, s, "Ibuprofen", 5)

	_, err := s.Medicines().ApplyDelta(ctx, m.ID, -6)
	assert.ErrorIs(t, err, medicine.ErrStockConditionFailed)

	_, err = s.Medicines().ApplyDelta(ctx, id.New(), 1)
	assert.ErrorIs(t, err, medicine.ErrStockConditionFailed)

	qty, err := s.Medicines().ApplyDelta(ctx, m.ID, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, qty)
}

func TestApplyDelta_ConcurrentDecrements(t *testing.T) {
	s := New()
	ctx := context.Background()
	m := newMedicine(t, s, "Cetirizine", 5)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		okCount  int
		failures int
	)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.RunInTransaction(ctx, func(ctx context.Context) error {
				_, err := s.Medicines().ApplyDelta(ctx, m.ID, -3)
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				okCount++
			} else {
				failures++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, okCount)
	assert.Equal(t, 1, failures)
	got, _ := s.Medicines().GetByID(ctx, m.ID)
	assert.Equal(t, 2, got.Quantity)
}

func TestCategory_UniqueNameAndInUse(t *testing.T) {
	s := New()
	ctx := context.Background()

	c := category.NewCategory("Antibiotics", nil)
	require.NoError(t, s.Categories().Create(ctx, c))

	err := s.Categories().Create(ctx, category.NewCategory("Antibiotics", nil))
	assert.True(t, apperror.IsDuplicate(err), "got %v", err)

	// names are case-sensitive
	require.NoError(t, s.Categories().Create(ctx, category.NewCategory("antibiotics", nil)))

	m := medicine.NewMedicine("Amoxicillin", types.MustMoney("50.00"), time.Now().AddDate(1, 0, 0))
	m.CategoryID = &c.ID
	require.NoError(t, s.Medicines().Create(ctx, m))

	err = s.Categories().Delete(ctx, c.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeReferentialViolation), "got %v", err)
}

func TestMedicine_UnknownCategory(t *testing.T) {
	s := New()
	missing := id.New()
	m := medicine.NewMedicine("Amoxicillin", types.MustMoney("50.00"), time.Now().AddDate(1, 0, 0))
	m.CategoryID = &missing

	err := s.Medicines().Create(context.Background(), m)
	assert.True(t, apperror.HasCode(err, apperror.CodeReferentialViolation), "got %v", err)
}

func TestMedicine_UpdateVersionGuard(t *testing.T) {
	s := New()
	ctx := context.Background()
	m := newMedicine(t, s, "Omeprazole", 7)

	edit := *m
	edit.Quantity = 999
	edit.ReorderLevel = 3
	require.NoError(t, s.Medicines().Update(ctx, &edit))
	assert.Equal(t, 2, edit.Version)

	got, _ := s.Medicines().GetByID(ctx, m.ID)
	assert.Equal(t, 7, got.Quantity, "quantity is not written by Update")
	assert.Equal(t, 3, got.ReorderLevel)

	stale := *m
	err := s.Medicines().Update(ctx, &stale)
	assert.True(t, apperror.HasCode(err, apperror.CodeConcurrentModification), "got %v", err)
}

func TestMedicine_ListFilters(t *testing.T) {
	s := New()
	ctx := context.Background()

	low := newMedicine(t, s, "Zinc", 2)
	low.ReorderLevel = 5
	require.NoError(t, s.Medicines().Update(ctx, low))
	newMedicine(t, s, "Amoxicillin", 100)
	archived := newMedicine(t, s, "Codeine", 40)
	require.NoError(t, s.Medicines().SetDeletionMark(ctx, archived.ID, true))

	f := medicine.Filter{ListFilter: domain.DefaultListFilter()}
	res, err := s.Medicines().List(ctx, f)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Amoxicillin", res.Items[0].Name)

	f.IncludeArchived = true
	res, _ = s.Medicines().List(ctx, f)
	assert.Len(t, res.Items, 3)

	f = medicine.Filter{ListFilter: domain.DefaultListFilter(), LowStockOnly: true}
	res, _ = s.Medicines().List(ctx, f)
	require.Len(t, res.Items, 1)
	assert.Equal(t, low.ID, res.Items[0].ID)

	f = medicine.Filter{ListFilter: domain.ListFilter{OrderBy: "bogus"}}
	_, err = s.Medicines().List(ctx, f)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestMedicine_DeleteReferenced(t *testing.T) {
	s := New()
	ctx := context.Background()
	m := newMedicine(t, s, "Metformin", 10)
	require.NoError(t, s.Movements().Append(ctx, []entity.StockMovement{
		entity.NewStockMovement(m.ID, entity.MovementIn, 10, "initial stock", nil, id.Nil()),
	}))

	err := s.Medicines().Delete(ctx, m.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeReferentialViolation), "got %v", err)

	fresh := newMedicine(t, s, "Loratadine", 0)
	require.NoError(t, s.Medicines().Delete(ctx, fresh.ID))
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	res := paginate(items, domain.ListFilter{Limit: 2, Offset: 3})
	assert.Equal(t, []int{4, 5}, res.Items)
	assert.Equal(t, int64(5), res.TotalCount)

	res = paginate(items, domain.ListFilter{Limit: 2, Offset: 10})
	assert.Empty(t, res.Items)
}
