package sale_test

import (
	"context"
	"errors"
	"strings"
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
	"pharmledger/internal/domain/catalogs/medicine"
	"pharmledger/internal/domain/documents/prescription"
	"pharmledger/internal/domain/documents/sale"
	"pharmledger/internal/domain/registers/stock"
	"pharmledger/internal/infrastructure/storage/memory"
)

type fixture struct {
	store     *memory.Store
	medicines *medicine.Service
	sales     *sale.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	stockSvc := stock.NewService(store.Movements())
	medSvc := medicine.NewService(medicine.Config{
		Repo:       store.Medicines(),
		Categories: store.Categories(),
		Suppliers:  store.Suppliers(),
		Movements:  stockSvc,
		TxManager:  store,
	})
	prescriptions := prescription.NewService(store.Prescriptions(), store.Numerator(), store, nil)
	return &fixture{
		store:     store,
		medicines: medSvc,
		sales: sale.NewService(sale.Config{
			Repo:          store.Sales(),
			Stock:         medSvc,
			Prescriptions: prescriptions,
			Numerator:     store.Numerator(),
			TxManager:     store,
		}),
	}
}

func (f *fixture) addMedicine(t *testing.T, name, price string, qty int) *medicine.Medicine {
	t.Helper()
	m := medicine.NewMedicine(name, types.MustMoney(price), time.Now().AddDate(1, 0, 0))
	m.Quantity = qty
	require.NoError(t, f.store.Medicines().Create(context.Background(), m))
	return m
}

func (f *fixture) quantity(t *testing.T, medicineID id.ID) int {
	t.Helper()
	m, err := f.store.Medicines().GetByID(context.Background(), medicineID)
	require.NoError(t, err)
	return m.Quantity
}

func (f *fixture) movements(t *testing.T, medicineID id.ID) []stock.MovementView {
	t.Helper()
	res, err := f.store.Movements().List(context.Background(), stock.MovementFilter{MedicineID: &medicineID, Limit: 100})
	require.NoError(t, err)
	return res.Items
}

func cashSale(lines ...sale.LineItem) sale.RecordCommand {
	return sale.RecordCommand{PaymentMethod: sale.PaymentCash, Lines: lines}
}

func TestRecordSale_DecrementsStock(t *testing.T) {
	f := newFixture(t)
	amox := f.addMedicine(t, "Amoxicillin", "50.00", 20)

	s, err := f.sales.RecordSale(context.Background(), cashSale(sale.LineItem{MedicineID: amox.ID, Quantity: 5}))
	require.NoError(t, err)

	assert.True(t, s.TotalAmount.Equal(types.MustMoney("250.00")), "total %s", s.TotalAmount)
	assert.True(t, strings.HasPrefix(s.Number, "SALE-"), "number %s", s.Number)
	require.Len(t, s.Items, 1)
	assert.True(t, s.Items[0].UnitPrice.Equal(types.MustMoney("50.00")))

	assert.Equal(t, 15, f.quantity(t, amox.ID))

	mvs := f.movements(t, amox.ID)
	require.Len(t, mvs, 1)
	assert.Equal(t, entity.MovementOut, mvs[0].Kind)
	assert.Equal(t, -5, mvs[0].Quantity)
	require.NotNil(t, mvs[0].ReferenceID)
	assert.Equal(t, s.ID, *mvs[0].ReferenceID)

	view, err := f.sales.Get(context.Background(), s.ID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, "Amoxicillin", view.Lines[0].MedicineName)
}

func TestRecordSale_InsufficientStockChangesNothing(t *testing.T) {
	f := newFixture(t)
	amox := f.addMedicine(t, "Amoxicillin", "50.00", 20)

	_, err := f.sales.RecordSale(context.Background(), cashSale(sale.LineItem{MedicineID: amox.ID, Quantity: 25}))
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err), "got %v", err)

	assert.Equal(t, 20, f.quantity(t, amox.ID))
	assert.Empty(t, f.movements(t, amox.ID))

	list, err := f.sales.List(context.Background(), sale.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)
}

func TestRecordSale_MixedBatchIsAtomic(t *testing.T) {
	f := newFixture(t)
	ok := f.addMedicine(t, "Paracetamol", "10.00", 100)
	short := f.addMedicine(t, "Ibuprofen", "15.00", 2)

	_, err := f.sales.RecordSale(context.Background(), cashSale(
		sale.LineItem{MedicineID: ok.ID, Quantity: 10},
		sale.LineItem{MedicineID: short.ID, Quantity: 3},
	))
	require.Error(t, err)

	appErr, isApp := apperror.AsAppError(err)
	require.True(t, isApp)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, 2, appErr.Details["line"])

	assert.Equal(t, 100, f.quantity(t, ok.ID))
	assert.Equal(t, 2, f.quantity(t, short.ID))
	assert.Empty(t, f.movements(t, ok.ID))
}

func TestRecordSale_ConcurrentSalesNeverOversell(t *testing.T) {
	f := newFixture(t)
	m := f.addMedicine(t, "Cetirizine", "8.50", 5)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		okCount  int
		rejected int
	)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.sales.RecordSale(context.Background(), cashSale(sale.LineItem{MedicineID: m.ID, Quantity: 3}))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				okCount++
			case apperror.IsInsufficientStock(err):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, okCount)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 2, f.quantity(t, m.ID))
}

func TestRecordSale_DistinctNumbers(t *testing.T) {
	f := newFixture(t)
	m := f.addMedicine(t, "Vitamin C", "1.00", 1000)

	const n = 1000
	numbers := make(chan string, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := f.sales.RecordSale(context.Background(), cashSale(sale.LineItem{MedicineID: m.ID, Quantity: 1}))
			if err != nil {
				t.Errorf("record sale: %v", err)
				return
			}
			numbers <- s.Number
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[string]struct{}, n)
	for num := range numbers {
		if _, dup := seen[num]; dup {
			t.Fatalf("duplicate sale number %s", num)
		}
		seen[num] = struct{}{}
	}
	assert.Len(t, seen, n)
	assert.Equal(t, 0, f.quantity(t, m.ID))
}

func TestRecordSale_Validation(t *testing.T) {
	f := newFixture(t)
	m := f.addMedicine(t, "Omeprazole", "20.00", 10)

	tests := []struct {
		name string
		cmd  sale.RecordCommand
		code string
	}{
		{
			name: "empty items",
			cmd:  cashSale(),
			code: apperror.CodeEmptyLineItems,
		},
		{
			name: "zero quantity",
			cmd:  cashSale(sale.LineItem{MedicineID: m.ID, Quantity: 0}),
			code: apperror.CodeValidation,
		},
		{
			name: "unknown payment method",
			cmd:  sale.RecordCommand{PaymentMethod: "barter", Lines: []sale.LineItem{{MedicineID: m.ID, Quantity: 1}}},
			code: apperror.CodeValidation,
		},
		{
			name: "unknown medicine",
			cmd:  cashSale(sale.LineItem{MedicineID: id.New(), Quantity: 1}),
			code: apperror.CodeReferentialViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.sales.RecordSale(context.Background(), tt.cmd)
			if !apperror.HasCode(err, tt.code) {
				t.Errorf("RecordSale() error = %v, want code %s", err, tt.code)
			}
		})
	}
	assert.Equal(t, 10, f.quantity(t, m.ID))
}

func TestRecordSale_MergesRepeatedMedicine(t *testing.T) {
	f := newFixture(t)
	m := f.addMedicine(t, "Loratadine", "12.00", 10)

	s, err := f.sales.RecordSale(context.Background(), cashSale(
		sale.LineItem{MedicineID: m.ID, Quantity: 2},
		sale.LineItem{MedicineID: m.ID, Quantity: 3},
	))
	require.NoError(t, err)
	require.Len(t, s.Items, 1)
	assert.Equal(t, 5, s.Items[0].Quantity)
	assert.True(t, s.TotalAmount.Equal(types.MustMoney("60.00")))
	assert.Equal(t, 5, f.quantity(t, m.ID))
}

func TestRecordSale_PrescriptionRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rx := f.addMedicine(t, "Codeine", "30.00", 10)
	require.NoError(t, f.store.Medicines().Update(ctx, func() *medicine.Medicine {
		m := *rx
		m.RequiresPrescription = true
		return &m
	}()))

	_, err := f.sales.RecordSale(ctx, cashSale(sale.LineItem{MedicineID: rx.ID, Quantity: 1}))
	assert.True(t, apperror.HasCode(err, apperror.CodePrescriptionRequired), "got %v", err)

	p := prescription.NewPrescription("Jane Doe", "Dr. Otieno")
	p.Number = "RX-20261019-0001"
	require.NoError(t, f.store.Prescriptions().Create(ctx, p))

	cmd := cashSale(sale.LineItem{MedicineID: rx.ID, Quantity: 1})
	cmd.PrescriptionID = &p.ID
	_, err = f.sales.RecordSale(ctx, cmd)
	require.NoError(t, err)

	_, err = f.sales.RecordSale(ctx, cmd)
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict), "got %v", err)
	assert.Equal(t, 9, f.quantity(t, rx.ID))
}

func TestRecordSale_ArchivedMedicine(t *testing.T) {
	f := newFixture(t)
	m := f.addMedicine(t, "Zinc", "5.00", 10)
	require.NoError(t, f.store.Medicines().SetDeletionMark(context.Background(), m.ID, true))

	_, err := f.sales.RecordSale(context.Background(), cashSale(sale.LineItem{MedicineID: m.ID, Quantity: 1}))
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule), "got %v", err)
}

func TestRecordSale_NumberingFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	amox := f.addMedicine(t, "Amoxicillin", "50.00", 20)

	failing := &numerator.MockGenerator{
		GetNextNumberFunc: func(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
			return "", errors.New("sequence unavailable")
		},
	}
	sales := sale.NewService(sale.Config{
		Repo:      f.store.Sales(),
		Stock:     f.medicines,
		Numerator: failing,
		TxManager: f.store,
	})

	_, err := sales.RecordSale(context.Background(), cashSale(sale.LineItem{MedicineID: amox.ID, Quantity: 2}))
	require.Error(t, err)
	assert.Equal(t, 20, f.quantity(t, amox.ID))
	assert.Empty(t, f.movements(t, amox.ID))
}

func TestRecordSale_UsesGeneratedNumber(t *testing.T) {
	f := newFixture(t)
	amox := f.addMedicine(t, "Amoxicillin", "50.00", 20)

	sales := sale.NewService(sale.Config{
		Repo:      f.store.Sales(),
		Stock:     f.medicines,
		Numerator: &numerator.MockGenerator{},
		TxManager: f.store,
	})

	s, err := sales.RecordSale(context.Background(), cashSale(sale.LineItem{MedicineID: amox.ID, Quantity: 1}))
	require.NoError(t, err)
	assert.NotEmpty(t, s.Number)
}
