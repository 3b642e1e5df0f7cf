// Package register_repo provides the PostgreSQL stock movement log.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmledger/internal/core/entity"
	"pharmledger/internal/domain"
	"pharmledger/internal/domain/registers/stock"
	"pharmledger/internal/infrastructure/storage/postgres"
)

const stockMovementsTable = "stock_movements"

var movementColumns = []string{
	"id", "medicine_id", "movement_type", "quantity",
	"reason", "reference_id", "created_by", "created_at",
}

// copyThreshold is the batch size from which COPY beats a multi-row INSERT.
const copyThreshold = 16

// StockRepo implements stock.Repository.
type StockRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ stock.Repository = (*StockRepo)(nil)

// NewStockRepo creates a new stock movement repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager: txm,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func movementRow(m entity.StockMovement) []any {
	return []any{
		m.ID, m.MedicineID, string(m.Kind), m.Quantity,
		m.Reason, m.ReferenceID, m.CreatedBy, m.CreatedAt,
	}
}

// Append inserts movements. Large batches inside a transaction use COPY.
func (r *StockRepo) Append(ctx context.Context, movements []entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}

	if len(movements) >= copyThreshold && r.txManager.GetTx(ctx) != nil {
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, movementRow(m))
		}
		if _, err := postgres.NewBatchInserter(r.txManager).CopyFromSlice(ctx, stockMovementsTable, movementColumns, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	sql, args, err := r.insertQuery(movements).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", postgres.TranslateError(err))
	}
	return nil
}

func (r *StockRepo) insertQuery(movements []entity.StockMovement) squirrel.InsertBuilder {
	q := r.builder.Insert(stockMovementsTable).Columns(movementColumns...)
	for _, m := range movements {
		q = q.Values(movementRow(m)...)
	}
	return q
}

func (r *StockRepo) applyFilter(q squirrel.SelectBuilder, f stock.MovementFilter) squirrel.SelectBuilder {
	if f.MedicineID != nil {
		q = q.Where(squirrel.Eq{"sm.medicine_id": *f.MedicineID})
	}
	if f.Kind != nil {
		q = q.Where(squirrel.Eq{"sm.movement_type": string(*f.Kind)})
	}
	if f.ReferenceID != nil {
		q = q.Where(squirrel.Eq{"sm.reference_id": *f.ReferenceID})
	}
	if f.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"sm.created_at": *f.FromDate})
	}
	if f.ToDate != nil {
		q = q.Where(squirrel.Lt{"sm.created_at": *f.ToDate})
	}
	return q
}

func (r *StockRepo) listQuery(f stock.MovementFilter) squirrel.SelectBuilder {
	cols := make([]string, 0, len(movementColumns)+1)
	for _, c := range movementColumns {
		cols = append(cols, "sm."+c)
	}
	cols = append(cols, "m.name AS medicine_name")

	q := r.builder.
		Select(cols...).
		From(stockMovementsTable + " sm").
		Join("medicines m ON m.id = sm.medicine_id")
	return r.applyFilter(q, f)
}

// List returns movements newest first.
func (r *StockRepo) List(ctx context.Context, f stock.MovementFilter) (domain.ListResult[stock.MovementView], error) {
	result := domain.ListResult[stock.MovementView]{
		Items:  make([]stock.MovementView, 0),
		Limit:  f.Limit,
		Offset: f.Offset,
	}
	querier := r.txManager.GetQuerier(ctx)

	countSQL, countArgs, err := r.applyFilter(
		r.builder.Select("COUNT(*)").From(stockMovementsTable+" sm"), f,
	).ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count movements: %w", postgres.TranslateError(err))
	}

	q := r.listQuery(f).OrderBy("sm.created_at DESC", "sm.id DESC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list movements: %w", postgres.TranslateError(err))
	}
	return result, nil
}

// Totals sums movements per kind.
func (r *StockRepo) Totals(ctx context.Context, f stock.MovementFilter) ([]stock.KindTotal, error) {
	q := r.applyFilter(
		r.builder.
			Select("sm.movement_type", "COUNT(*) AS count", "COALESCE(SUM(sm.quantity), 0) AS quantity").
			From(stockMovementsTable+" sm"),
		f,
	).GroupBy("sm.movement_type").OrderBy("sm.movement_type")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build totals: %w", err)
	}
	totals := make([]stock.KindTotal, 0, 4)
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &totals, sql, args...); err != nil {
		return nil, fmt.Errorf("movement totals: %w", postgres.TranslateError(err))
	}
	return totals, nil
}
