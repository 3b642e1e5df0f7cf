package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmledger/internal/core/types"
	"pharmledger/internal/domain/alerts"
	"pharmledger/internal/domain/catalogs/medicine"
	"pharmledger/internal/domain/registers/stock"
	"pharmledger/internal/infrastructure/storage/memory"
)

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) InvalidateDashboard(ctx context.Context) error {
	c.calls++
	return nil
}

type failingScanner struct{}

func (failingScanner) Scan(ctx context.Context) (*alerts.Report, error) {
	return nil, errors.New("boom")
}

func setup(t *testing.T) (*Processor, *memory.Store, *countingInvalidator) {
	t.Helper()
	store := memory.New()
	medSvc := medicine.NewService(medicine.Config{
		Repo:       store.Medicines(),
		Categories: store.Categories(),
		Suppliers:  store.Suppliers(),
		Movements:  stock.NewService(store.Movements()),
		TxManager:  store,
	})
	engine, err := alerts.NewEngine(alerts.DefaultRules(), 30)
	require.NoError(t, err)
	inv := &countingInvalidator{}
	return NewProcessor(alerts.NewService(medSvc, engine), medSvc, inv), store, inv
}

func addMedicine(t *testing.T, store *memory.Store, name string, qty int, expiry time.Time) *medicine.Medicine {
	t.Helper()
	m := medicine.NewMedicine(name, types.MustMoney("10.00"), expiry)
	m.Quantity = qty
	require.NoError(t, store.Medicines().Create(context.Background(), m))
	return m
}

func TestNewTasks(t *testing.T) {
	task, err := NewScanAlertsTask(TriggerSale)
	require.NoError(t, err)
	assert.Equal(t, TypeScanAlerts, task.Type())

	var p Payload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, TriggerSale, p.Trigger)
	assert.False(t, p.RequestedAt.IsZero())

	task, err = NewWriteOffExpiredTask(TriggerSchedule)
	require.NoError(t, err)
	assert.Equal(t, TypeWriteOffExpired, task.Type())
}

func TestParsePayload(t *testing.T) {
	p, err := ParsePayload(asynq.NewTask(TypeScanAlerts, nil))
	require.NoError(t, err)
	assert.Equal(t, TriggerManual, p.Trigger)

	_, err = ParsePayload(asynq.NewTask(TypeScanAlerts, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleWriteOffExpired(t *testing.T) {
	p, store, inv := setup(t)
	ctx := context.Background()
	expired := addMedicine(t, store, "Old Syrup", 6, time.Now().AddDate(0, 0, -2))
	fresh := addMedicine(t, store, "Fresh Syrup", 6, time.Now().AddDate(1, 0, 0))

	task, err := NewWriteOffExpiredTask(TriggerManual)
	require.NoError(t, err)
	require.NoError(t, p.HandleWriteOffExpired(ctx, task))

	got, _ := store.Medicines().GetByID(ctx, expired.ID)
	assert.Equal(t, 0, got.Quantity)
	got, _ = store.Medicines().GetByID(ctx, fresh.ID)
	assert.Equal(t, 6, got.Quantity)
	assert.Equal(t, 1, inv.calls)

	// nothing left to write off: no invalidation
	require.NoError(t, p.HandleWriteOffExpired(ctx, task))
	assert.Equal(t, 1, inv.calls)
}

func TestHandleScanAlerts(t *testing.T) {
	p, store, _ := setup(t)
	addMedicine(t, store, "Old Syrup", 6, time.Now().AddDate(0, 0, -2))

	task, err := NewScanAlertsTask(TriggerSchedule)
	require.NoError(t, err)
	assert.NoError(t, p.HandleScanAlerts(context.Background(), task))

	p.alerts = failingScanner{}
	assert.Error(t, p.HandleScanAlerts(context.Background(), task))
}

func TestRegister(t *testing.T) {
	p, _, _ := setup(t)
	mux := asynq.NewServeMux()
	p.Register(mux)

	task, err := NewScanAlertsTask(TriggerManual)
	require.NoError(t, err)
	assert.NoError(t, mux.ProcessTask(context.Background(), task))
}
