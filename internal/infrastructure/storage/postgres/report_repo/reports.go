// Package report_repo provides PostgreSQL aggregates for the dashboard and sales summaries.
package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"pharmledger/internal/core/types"
	"pharmledger/internal/domain/reports"
	"pharmledger/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ reports.Repository = (*ReportRepo)(nil)

// NewReportRepo creates a new report repository.
func NewReportRepo(txm *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txManager: txm,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

const dashboardQuery = `
	SELECT
		(SELECT COUNT(*) FROM medicines WHERE NOT deletion_mark) AS total_medicines,
		(SELECT COUNT(*) FROM medicines
			WHERE NOT deletion_mark AND quantity <= reorder_level) AS low_stock_count,
		(SELECT COUNT(*) FROM medicines
			WHERE NOT deletion_mark AND expiry_date >= $1::date AND expiry_date <= $2::date) AS expiring_soon_count,
		(SELECT COUNT(*) FROM medicines
			WHERE NOT deletion_mark AND expiry_date < $1::date) AS expired_count,
		(SELECT COUNT(*) FROM sales
			WHERE created_at >= $3 AND created_at < $4) AS today_sales_count,
		(SELECT COALESCE(SUM(total_amount), 0) FROM sales
			WHERE created_at >= $3 AND created_at < $4) AS today_revenue,
		(SELECT COALESCE(SUM(total_amount), 0) FROM sales
			WHERE created_at >= $5 AND created_at < $4) AS month_revenue,
		(SELECT COUNT(*) FROM prescriptions) AS total_prescriptions,
		(SELECT COALESCE(SUM(quantity * unit_cost), 0) FROM medicines
			WHERE NOT deletion_mark) AS stock_value
`

const topSellersQuery = `
	SELECT
		si.medicine_id,
		m.name AS medicine_name,
		SUM(si.quantity) AS units_sold,
		SUM(si.total_price) AS revenue
	FROM sale_items si
	JOIN sales s ON s.id = si.sale_id
	JOIN medicines m ON m.id = si.medicine_id
	WHERE s.created_at >= $1
	GROUP BY si.medicine_id, m.name
	ORDER BY units_sold DESC, m.name
	LIMIT $2
`

// Dashboard computes the headline counters, all relative to the business day of params.Now.
func (r *ReportRepo) Dashboard(ctx context.Context, params reports.DashboardParams) (*reports.Dashboard, error) {
	today := types.BusinessDate(params.Now)
	windowEnd := today.AddDate(0, 0, params.ExpiryWindowDays)
	dayStart := types.DayStart(params.Now)
	tomorrow := dayStart.AddDate(0, 0, 1)
	monthStart := types.MonthStart(params.Now)

	querier := r.txManager.GetQuerier(ctx)

	d := &reports.Dashboard{}
	if err := pgxscan.Get(ctx, querier, d, dashboardQuery,
		today.Format(time.DateOnly), windowEnd.Format(time.DateOnly), dayStart, tomorrow, monthStart,
	); err != nil {
		return nil, fmt.Errorf("dashboard counters: %w", postgres.TranslateError(err))
	}

	d.TopSelling = make([]reports.TopSeller, 0, params.TopN)
	if params.TopN > 0 {
		if err := pgxscan.Select(ctx, querier, &d.TopSelling, topSellersQuery, monthStart, params.TopN); err != nil {
			return nil, fmt.Errorf("top sellers: %w", postgres.TranslateError(err))
		}
	}
	return d, nil
}

// DailySales groups sales in [from, to) by business calendar day.
func (r *ReportRepo) DailySales(ctx context.Context, from, to time.Time) ([]reports.DailySales, error) {
	units := r.builder.
		Select("si.sale_id", "SUM(si.quantity) AS units").
		From("sale_items si").
		GroupBy("si.sale_id")

	q := r.builder.
		Select().
		Column(squirrel.Expr("date_trunc('day', s.created_at AT TIME ZONE ?) AS day", types.BusinessLocation().String())).
		Columns(
			"COUNT(*) AS sales_count",
			"COALESCE(SUM(s.total_amount), 0) AS revenue",
			"COALESCE(SUM(u.units), 0) AS units_sold",
		).
		From("sales s").
		JoinClause(units.Prefix("LEFT JOIN (").Suffix(") u ON u.sale_id = s.id")).
		Where(squirrel.GtOrEq{"s.created_at": from}).
		Where(squirrel.Lt{"s.created_at": to}).
		GroupBy("day").
		OrderBy("day")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build daily sales: %w", err)
	}

	days := make([]reports.DailySales, 0)
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &days, sql, args...); err != nil {
		return nil, fmt.Errorf("daily sales: %w", postgres.TranslateError(err))
	}
	for i := range days {
		days[i].Day = types.CalendarDate(days[i].Day)
	}
	return days, nil
}

// PaymentBreakdown sums revenue per payment method in [from, to).
func (r *ReportRepo) PaymentBreakdown(ctx context.Context, from, to time.Time) ([]reports.PaymentBreakdown, error) {
	sql, args, err := r.builder.
		Select("payment_method", "COUNT(*) AS sales_count", "COALESCE(SUM(total_amount), 0) AS revenue").
		From("sales").
		Where(squirrel.GtOrEq{"created_at": from}).
		Where(squirrel.Lt{"created_at": to}).
		GroupBy("payment_method").
		OrderBy("revenue DESC", "payment_method").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build payment breakdown: %w", err)
	}

	rows := make([]reports.PaymentBreakdown, 0, 4)
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("payment breakdown: %w", postgres.TranslateError(err))
	}
	return rows, nil
}
