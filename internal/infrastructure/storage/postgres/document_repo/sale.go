package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmledger/internal/core/id"
	"pharmledger/internal/domain"
	"pharmledger/internal/domain/documents/sale"
	"pharmledger/internal/infrastructure/storage/postgres"
	"pharmledger/internal/infrastructure/storage/postgres/catalog_repo"
)

const (
	salesTable     = "sales"
	saleItemsTable = "sale_items"
)

var saleColumns = []string{
	"id", "sale_number", "customer_name", "customer_phone", "total_amount",
	"payment_method", "prescription_id", "served_by", "notes", "created_at",
}

var saleItemColumns = []string{
	"id", "sale_id", "line_no", "medicine_id", "quantity", "unit_price", "total_price",
}

var saleOrderFields = []string{"created_at", "sale_number", "total_amount", "payment_method"}

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	*BaseDocumentRepo[*sale.Sale]
}

var _ sale.Repository = (*SaleRepo)(nil)

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txm *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		BaseDocumentRepo: NewBaseDocumentRepo[*sale.Sale](txm, salesTable, "sale", saleColumns),
	}
}

// SaveItems inserts the lines of a sale in one statement.
func (r *SaleRepo) SaveItems(ctx context.Context, saleID id.ID, items []sale.Item) error {
	if len(items) == 0 {
		return nil
	}

	q := r.Builder().Insert(saleItemsTable).Columns(saleItemColumns...)
	for _, it := range items {
		q = q.Values(it.ID, saleID, it.LineNo, it.MedicineID, it.Quantity, it.UnitPrice, it.TotalPrice)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert items: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert sale items: %w", postgres.TranslateError(err))
	}
	return nil
}

func (r *SaleRepo) headerSelect() squirrel.SelectBuilder {
	cols := make([]string, len(saleColumns))
	for i, c := range saleColumns {
		cols[i] = "s." + c
	}
	return r.Builder().Select(cols...).From(salesTable + " s")
}

// GetByID returns the sale with its lines.
func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.View, error) {
	view := &sale.View{}
	if err := r.getOne(ctx, &view.Sale, r.headerSelect().Where(squirrel.Eq{"s.id": saleID}), saleID.String()); err != nil {
		return nil, err
	}

	lines, err := r.linesFor(ctx, []id.ID{saleID})
	if err != nil {
		return nil, err
	}
	view.Lines = lines[saleID]
	if view.Lines == nil {
		view.Lines = []sale.ItemView{}
	}
	return view, nil
}

// linesFor loads the lines of the given sales keyed by sale id.
func (r *SaleRepo) linesFor(ctx context.Context, saleIDs []id.ID) (map[id.ID][]sale.ItemView, error) {
	cols := make([]string, 0, len(saleItemColumns)+1)
	for _, c := range saleItemColumns {
		cols = append(cols, "si."+c)
	}
	cols = append(cols, "m.name AS medicine_name")

	sql, args, err := r.Builder().
		Select(cols...).
		From(saleItemsTable + " si").
		Join("medicines m ON m.id = si.medicine_id").
		Where(squirrel.Eq{"si.sale_id": saleIDs}).
		OrderBy("si.sale_id", "si.line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}

	var rows []sale.ItemView
	if err := pgxscan.Select(ctx, r.querier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("load sale items: %w", postgres.TranslateError(err))
	}

	bySale := make(map[id.ID][]sale.ItemView, len(saleIDs))
	for _, row := range rows {
		bySale[row.SaleID] = append(bySale[row.SaleID], row)
	}
	return bySale, nil
}

func (r *SaleRepo) filterQuery(f sale.ListFilter) squirrel.SelectBuilder {
	q := r.headerSelect()
	if f.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"s.created_at": *f.DateFrom})
	}
	if f.DateTo != nil {
		q = q.Where(squirrel.Lt{"s.created_at": *f.DateTo})
	}
	if f.PaymentMethod != nil {
		q = q.Where(squirrel.Eq{"s.payment_method": string(*f.PaymentMethod)})
	}
	if f.ServedBy != nil {
		q = q.Where(squirrel.Eq{"s.served_by": *f.ServedBy})
	}
	if f.MedicineID != nil {
		q = q.Where(squirrel.Expr(
			"EXISTS (SELECT 1 FROM sale_items f WHERE f.sale_id = s.id AND f.medicine_id = ?)",
			*f.MedicineID,
		))
	}
	if len(f.IDs) > 0 {
		q = q.Where(squirrel.Eq{"s.id": f.IDs})
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"s.sale_number": pattern},
			squirrel.ILike{"s.customer_name": pattern},
			squirrel.ILike{"s.customer_phone": pattern},
		})
	}
	return q
}

func (r *SaleRepo) orderBy(orderBy string) (string, error) {
	return catalog_repo.ParseOrderBy(orderBy, saleOrderFields, "s.created_at DESC, s.id DESC", "s.")
}

// List returns sale headers page by page.
func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	return catalog_repo.Paginate[*sale.Sale](ctx, r.querier(ctx), r.filterQuery(filter), filter.ListFilter, r.orderBy)
}

// ListWithLines returns every matching sale with its lines, ignoring pagination.
func (r *SaleRepo) ListWithLines(ctx context.Context, filter sale.ListFilter) ([]*sale.View, error) {
	order, err := r.orderBy(filter.OrderBy)
	if err != nil {
		return nil, err
	}

	sql, args, err := r.filterQuery(filter).OrderBy(order).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var headers []*sale.Sale
	if err := pgxscan.Select(ctx, r.querier(ctx), &headers, sql, args...); err != nil {
		return nil, fmt.Errorf("list sales: %w", postgres.TranslateError(err))
	}
	if len(headers) == 0 {
		return []*sale.View{}, nil
	}

	ids := make([]id.ID, len(headers))
	for i, h := range headers {
		ids[i] = h.ID
	}
	lines, err := r.linesFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]*sale.View, len(headers))
	for i, h := range headers {
		views[i] = &sale.View{Sale: *h, Lines: lines[h.ID]}
	}
	return views, nil
}

// ExistsForPrescription reports whether a sale already dispensed the prescription.
func (r *SaleRepo) ExistsForPrescription(ctx context.Context, prescriptionID id.ID) (bool, error) {
	return r.exists(ctx, squirrel.Eq{"prescription_id": prescriptionID})
}
