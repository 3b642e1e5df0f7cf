package register_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmledger/internal/core/entity"
	"pharmledger/internal/core/id"
	"pharmledger/internal/domain/registers/stock"
)

func TestStockRepo_InsertQuery(t *testing.T) {
	repo := NewStockRepo(nil)
	medID := id.New()
	saleID := id.New()

	movements := []entity.StockMovement{
		entity.NewStockMovement(medID, entity.MovementOut, -5, "sale", &saleID, id.Nil()),
		entity.NewStockMovement(medID, entity.MovementIn, 10, "restock", nil, id.Nil()),
	}

	sql, args, err := repo.insertQuery(movements).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"INSERT INTO stock_movements (id,medicine_id,movement_type,quantity,reason,reference_id,created_by,created_at) "+
			"VALUES ($1,$2,$3,$4,$5,$6,$7,$8),($9,$10,$11,$12,$13,$14,$15,$16)",
		sql)
	assert.Len(t, args, 16)
	assert.Equal(t, "out", args[2])
	assert.Equal(t, -5, args[3])
	assert.Equal(t, &saleID, args[5])
}

func TestStockRepo_ListQuery(t *testing.T) {
	repo := NewStockRepo(nil)
	medID := id.New()
	kind := entity.MovementExpired
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	sql, args, err := repo.listQuery(stock.MovementFilter{
		MedicineID: &medID,
		Kind:       &kind,
		FromDate:   &from,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM stock_movements sm JOIN medicines m ON m.id = sm.medicine_id")
	assert.Contains(t, sql, "WHERE sm.medicine_id = $1 AND sm.movement_type = $2 AND sm.created_at >= $3")
	assert.Equal(t, []any{medID, "expired", from}, args)
}
