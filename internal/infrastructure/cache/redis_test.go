package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmledger/internal/core/types"
	"pharmledger/internal/domain/catalogs/medicine"
	"pharmledger/internal/domain/reports"
	"pharmledger/internal/infrastructure/cache"
	"pharmledger/internal/infrastructure/storage/memory"
)

func newCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.New(client, time.Minute), mr
}

func TestCache_SetGet(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	require.NoError(t, c.Set(ctx, "test:struct", payload{Name: "amox", Count: 3}))

	var got payload
	require.NoError(t, c.Get(ctx, "test:struct", &got))
	assert.Equal(t, payload{Name: "amox", Count: 3}, got)
	assert.Equal(t, time.Minute, mr.TTL("test:struct"))

	err := c.Get(ctx, "test:missing", &got)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestCache_DeletePattern(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	for _, k := range []string{"dash:summary", "dash:other", "report:x"} {
		require.NoError(t, c.Set(ctx, k, 1))
	}
	require.NoError(t, c.DeletePattern(ctx, "dash:*"))

	assert.False(t, mr.Exists("dash:summary"))
	assert.False(t, mr.Exists("dash:other"))
	assert.True(t, mr.Exists("report:x"))

	require.NoError(t, c.DeletePattern(ctx, "nothing:*"))
}

func TestCache_GetOrSet(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	calls := 0
	fetch := func() (any, error) {
		calls++
		return map[string]int{"n": calls}, nil
	}

	var first, second map[string]int
	require.NoError(t, c.GetOrSet(ctx, "k", &first, fetch, time.Minute))
	require.NoError(t, c.GetOrSet(ctx, "k", &second, fetch, time.Minute))
	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	boom := errors.New("boom")
	var ignored map[string]int
	err := c.GetOrSet(ctx, "other", &ignored, func() (any, error) { return nil, boom }, time.Minute)
	assert.ErrorIs(t, err, boom)
}

func TestBuildKey(t *testing.T) {
	assert.Equal(t, "dash:summary", cache.BuildKey(cache.PrefixDashboard, "summary"))
	assert.Equal(t, "report", cache.BuildKey(cache.PrefixReport))
}

func TestDashboard_CachedAndInvalidated(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	store := memory.New()
	svc := reports.NewService(store.Reports(), reports.Options{Cache: c, TTL: time.Minute})

	m := medicine.NewMedicine("Amoxicillin", types.MustMoney("50.00"), time.Now().AddDate(1, 0, 0))
	m.Quantity = 20
	m.UnitCost = types.MustMoney("30.00")
	require.NoError(t, store.Medicines().Create(ctx, m))

	d, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.TotalMedicines)
	assert.True(t, d.StockValue.Equal(types.MustMoney("600.00")), "stock value %s", d.StockValue)
	assert.True(t, mr.Exists("dash:summary"))

	other := medicine.NewMedicine("Paracetamol", types.MustMoney("5.00"), time.Now().AddDate(1, 0, 0))
	require.NoError(t, store.Medicines().Create(ctx, other))

	d, err = svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.TotalMedicines, "served from cache")

	require.NoError(t, svc.InvalidateDashboard(ctx))
	d, err = svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), d.TotalMedicines)
}

func TestDashboard_RedisDownFallsBack(t *testing.T) {
	c, mr := newCache(t)
	store := memory.New()
	svc := reports.NewService(store.Reports(), reports.Options{Cache: c})

	mr.Close()
	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Zero(t, d.TotalMedicines)
}
