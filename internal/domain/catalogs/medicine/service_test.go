package medicine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/entity"
	"pharmledger/internal/core/id"
	"pharmledger/internal/core/types"
	"pharmledger/internal/domain"
	"pharmledger/internal/domain/catalogs/medicine"
	"pharmledger/internal/domain/registers/stock"
	"pharmledger/internal/infrastructure/storage/memory"
)

func newService(t *testing.T) (*medicine.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := medicine.NewService(medicine.Config{
		Repo:       store.Medicines(),
		Categories: store.Categories(),
		Suppliers:  store.Suppliers(),
		Movements:  stock.NewService(store.Movements()),
		TxManager:  store,
	})
	return svc, store
}

func draft(name string, qty int) *medicine.Medicine {
	m := medicine.NewMedicine(name, types.MustMoney("50.00"), time.Now().AddDate(1, 0, 0))
	m.ID = id.Nil()
	m.Quantity = qty
	m.UnitCost = types.MustMoney("30.00")
	return m
}

func TestUpsert_CreateRecordsInitialStock(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	medID, err := svc.Upsert(ctx, draft("Amoxicillin", 20))
	require.NoError(t, err)

	res, err := store.Movements().List(ctx, stock.MovementFilter{MedicineID: &medID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, entity.MovementIn, res.Items[0].Kind)
	assert.Equal(t, 20, res.Items[0].Quantity)
}

func TestUpsert_UpdateKeepsQuantity(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	medID, err := svc.Upsert(ctx, draft("Paracetamol", 12))
	require.NoError(t, err)

	m, err := svc.GetByID(ctx, medID)
	require.NoError(t, err)
	m.Quantity = 500
	m.SellingPrice = types.MustMoney("55.00")
	_, err = svc.Upsert(ctx, m)
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, medID)
	require.NoError(t, err)
	assert.Equal(t, 12, got.Quantity)
	assert.True(t, got.SellingPrice.Equal(types.MustMoney("55.00")))
}

func TestUpsert_UnknownSupplier(t *testing.T) {
	svc, _ := newService(t)
	m := draft("Ibuprofen", 1)
	missing := id.New()
	m.SupplierID = &missing

	_, err := svc.Upsert(context.Background(), m)
	assert.True(t, apperror.HasCode(err, apperror.CodeReferentialViolation), "got %v", err)
}

func TestAdjustQuantity(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	medID, err := svc.Upsert(ctx, draft("Metformin", 10))
	require.NoError(t, err)

	var fired []medicine.StockChange
	svc.Hooks().OnAfterUpdate(func(ctx context.Context, c medicine.StockChange) error {
		fired = append(fired, c)
		return nil
	})

	mv, qty, err := svc.AdjustQuantity(ctx, medicine.Adjustment{
		MedicineID: medID, Delta: -4, Kind: entity.MovementAdjustment, Reason: "broken blister",
	})
	require.NoError(t, err)
	assert.Equal(t, 6, qty)
	assert.Equal(t, -4, mv.Quantity)
	require.Len(t, fired, 1)
	assert.Equal(t, 6, fired[0].Quantity)

	_, _, err = svc.AdjustQuantity(ctx, medicine.Adjustment{
		MedicineID: medID, Delta: -7, Kind: entity.MovementAdjustment, Reason: "count",
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)

	_, _, err = svc.AdjustQuantity(ctx, medicine.Adjustment{
		MedicineID: medID, Delta: 5, Kind: entity.MovementIn, Reason: " ",
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)

	got, _ := svc.GetByID(ctx, medID)
	assert.Equal(t, 6, got.Quantity)
}

func TestDelete(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	stocked, err := svc.Upsert(ctx, draft("Codeine", 5))
	require.NoError(t, err)
	err = svc.Delete(ctx, stocked)
	assert.True(t, apperror.HasCode(err, apperror.CodeReferentialViolation), "got %v", err)

	require.NoError(t, svc.Archive(ctx, stocked, true))
	res, err := svc.List(ctx, medicine.Filter{ListFilter: domain.DefaultListFilter()})
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	empty, err := svc.Upsert(ctx, draft("Loratadine", 0))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, empty))
	_, err = svc.GetByID(ctx, empty)
	assert.True(t, apperror.IsNotFound(err))
}

func TestWriteOffExpired(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	old := draft("Old Syrup", 8)
	old.ExpiryDate = time.Now().AddDate(0, 0, -3)
	oldID, err := svc.Upsert(ctx, old)
	require.NoError(t, err)
	freshID, err := svc.Upsert(ctx, draft("Fresh Syrup", 8))
	require.NoError(t, err)

	n, err := svc.WriteOffExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := svc.GetByID(ctx, oldID)
	assert.Equal(t, 0, got.Quantity)
	got, _ = svc.GetByID(ctx, freshID)
	assert.Equal(t, 8, got.Quantity)

	kind := entity.MovementExpired
	res, err := store.Movements().List(ctx, stock.MovementFilter{MedicineID: &oldID, Kind: &kind, Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, -8, res.Items[0].Quantity)

	n, err = svc.WriteOffExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLowStockAndExpiring(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	low := draft("Zinc", 2)
	low.ReorderLevel = 5
	_, err := svc.Upsert(ctx, low)
	require.NoError(t, err)

	soon := draft("Insulin", 50)
	soon.ExpiryDate = time.Now().AddDate(0, 0, 10)
	_, err = svc.Upsert(ctx, soon)
	require.NoError(t, err)

	res, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Zinc", res.Items[0].Name)

	res, err = svc.Expiring(ctx, 30)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Insulin", res.Items[0].Name)

	_, err = svc.Expiring(ctx, -1)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
