package catalog_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/id"
	"pharmledger/internal/core/types"
	"pharmledger/internal/domain"
	"pharmledger/internal/domain/catalogs/medicine"
	"pharmledger/internal/infrastructure/storage/postgres"
)

const medicineTable = "medicines"

// MedicineRepo implements medicine.Repository.
type MedicineRepo struct {
	*BaseCatalogRepo[*medicine.Medicine]
	viewCols []string
}

var _ medicine.Repository = (*MedicineRepo)(nil)

// NewMedicineRepo creates a new medicine repository.
func NewMedicineRepo(txm *postgres.TxManager) *MedicineRepo {
	cols := postgres.ExtractDBColumns[medicine.Medicine]()
	viewCols := make([]string, 0, len(cols)+2)
	for _, c := range cols {
		viewCols = append(viewCols, "m."+c)
	}
	viewCols = append(viewCols, "c.name AS category_name", "s.name AS supplier_name")

	return &MedicineRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[*medicine.Medicine](
			txm,
			medicineTable,
			"medicine",
			cols,
			func() *medicine.Medicine { return &medicine.Medicine{} },
		),
		viewCols: viewCols,
	}
}

// Update writes catalogue fields guarded by version. Quantity and the
// deletion mark have their own statements.
func (r *MedicineRepo) Update(ctx context.Context, m *medicine.Medicine) error {
	set := r.columnsOf(m, "id", "created_at", "created_by", "quantity", "deletion_mark", "version")

	sql, args, err := r.Builder().
		Update(medicineTable).
		SetMap(set).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": m.ID, "version": m.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update medicine: %w", postgres.TranslateError(err))
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("medicine", m.ID.String())
	}
	m.Version++
	return nil
}

func (r *MedicineRepo) viewSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.viewCols...).
		From(medicineTable + " m").
		LeftJoin(categoryTable + " c ON c.id = m.category_id").
		LeftJoin(supplierTable + " s ON s.id = m.supplier_id")
}

// GetView returns the medicine with its category and supplier names.
func (r *MedicineRepo) GetView(ctx context.Context, medicineID id.ID) (*medicine.View, error) {
	sql, args, err := r.viewSelect().Where(squirrel.Eq{"m.id": medicineID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var v medicine.View
	if err := pgxscan.Get(ctx, r.querier(ctx), &v, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("medicine", medicineID.String())
		}
		return nil, fmt.Errorf("get medicine view: %w", err)
	}
	return &v, nil
}

// filterQuery applies the medicine filter to the joined select.
func (r *MedicineRepo) filterQuery(filter medicine.Filter) squirrel.SelectBuilder {
	base := filter.ListFilter
	base.Search = ""
	q := r.listQuery(r.viewSelect(), base, "m.")
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"m.name": pattern},
			squirrel.ILike{"m.generic_name": pattern},
		})
	}
	if filter.CategoryID != nil {
		q = q.Where(squirrel.Eq{"m.category_id": *filter.CategoryID})
	}
	if filter.SupplierID != nil {
		q = q.Where(squirrel.Eq{"m.supplier_id": *filter.SupplierID})
	}
	if filter.LowStockOnly {
		q = q.Where("m.quantity <= m.reorder_level")
	}
	if filter.ExpiringWithinDays != nil {
		today := types.BusinessDate(time.Now()).Format(time.DateOnly)
		q = q.Where("m.expiry_date >= ?::date AND m.expiry_date <= ?::date + ?::int", today, today, *filter.ExpiringWithinDays)
	}
	if filter.RequiresPrescription != nil {
		q = q.Where(squirrel.Eq{"m.requires_prescription": *filter.RequiresPrescription})
	}
	return q
}

// List returns medicines matching the filter.
func (r *MedicineRepo) List(ctx context.Context, filter medicine.Filter) (domain.ListResult[*medicine.View], error) {
	orderBy := func(s string) (string, error) {
		return ParseOrderBy(s, r.selectCols, "m.name ASC", "m.")
	}
	return Paginate[*medicine.View](ctx, r.querier(ctx), r.filterQuery(filter), filter.ListFilter, orderBy)
}

// ApplyDelta adds delta to quantity unless the result would be negative.
// The check and the write are one statement, so concurrent decrements
// serialize on the row lock and never oversell.
func (r *MedicineRepo) ApplyDelta(ctx context.Context, medicineID id.ID, delta int) (int, error) {
	const q = `
		UPDATE medicines
		SET quantity = quantity + $1, updated_at = now()
		WHERE id = $2 AND quantity + $1 >= 0
		RETURNING quantity`

	var qty int
	err := r.querier(ctx).QueryRow(ctx, q, delta, medicineID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, medicine.ErrStockConditionFailed
	}
	if err != nil {
		return 0, fmt.Errorf("apply delta: %w", postgres.TranslateError(err))
	}
	return qty, nil
}

// SetDeletionMark sets or clears the archive flag.
func (r *MedicineRepo) SetDeletionMark(ctx context.Context, medicineID id.ID, marked bool) error {
	sql, args, err := r.Builder().
		Update(medicineTable).
		Set("deletion_mark", marked).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": medicineID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set deletion mark: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set deletion mark: %w", postgres.TranslateError(err))
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("medicine", medicineID.String())
	}
	return nil
}

// IsReferenced reports sale lines or stock movements naming the medicine.
func (r *MedicineRepo) IsReferenced(ctx context.Context, medicineID id.ID) (bool, error) {
	const q = `
		SELECT EXISTS (SELECT 1 FROM sale_items WHERE medicine_id = $1)
		    OR EXISTS (SELECT 1 FROM stock_movements WHERE medicine_id = $1)`

	var referenced bool
	if err := r.querier(ctx).QueryRow(ctx, q, medicineID).Scan(&referenced); err != nil {
		return false, fmt.Errorf("check references: %w", postgres.TranslateError(err))
	}
	return referenced, nil
}

// ListExpired returns unarchived medicines with stock that expired before asOf.
func (r *MedicineRepo) ListExpired(ctx context.Context, asOf time.Time) ([]*medicine.Medicine, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"deletion_mark": false}).
		Where(squirrel.Gt{"quantity": 0}).
		Where(squirrel.Lt{"expiry_date": types.BusinessDate(asOf).Format(time.DateOnly)}).
		OrderBy("expiry_date ASC", "id ASC")
	return r.selectAll(ctx, q)
}

// ListActive returns every unarchived medicine.
func (r *MedicineRepo) ListActive(ctx context.Context) ([]*medicine.Medicine, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("name ASC", "id ASC")
	return r.selectAll(ctx, q)
}

func (r *MedicineRepo) selectAll(ctx context.Context, q squirrel.SelectBuilder) ([]*medicine.Medicine, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	items := make([]*medicine.Medicine, 0)
	if err := pgxscan.Select(ctx, r.querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select medicines: %w", postgres.TranslateError(err))
	}
	return items, nil
}
