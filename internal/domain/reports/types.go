// Package reports provides the dashboard and sales summaries.
package reports

import (
	"time"

	"pharmledger/internal/core/id"
	"pharmledger/internal/core/types"
)

// Dashboard aggregates the headline numbers of the pharmacy.
type Dashboard struct {
	TotalMedicines     int64       `json:"totalMedicines" db:"total_medicines"`
	LowStockCount      int64       `json:"lowStockCount" db:"low_stock_count"`
	ExpiringSoonCount  int64       `json:"expiringSoonCount" db:"expiring_soon_count"`
	ExpiredCount       int64       `json:"expiredCount" db:"expired_count"`
	TodaySalesCount    int64       `json:"todaySalesCount" db:"today_sales_count"`
	TodayRevenue       types.Money `json:"todayRevenue" db:"today_revenue"`
	MonthRevenue       types.Money `json:"monthRevenue" db:"month_revenue"`
	TotalPrescriptions int64       `json:"totalPrescriptions" db:"total_prescriptions"`
	StockValue         types.Money `json:"stockValue" db:"stock_value"`
	TopSelling         []TopSeller `json:"topSelling" db:"-"`
	GeneratedAt        time.Time   `json:"generatedAt" db:"-"`
}

// TopSeller is a medicine ranked by units sold.
type TopSeller struct {
	MedicineID   id.ID       `json:"medicineId" db:"medicine_id"`
	MedicineName string      `json:"medicineName" db:"medicine_name"`
	UnitsSold    int64       `json:"unitsSold" db:"units_sold"`
	Revenue      types.Money `json:"revenue" db:"revenue"`
}

// DashboardParams fixes the clock and windows of a dashboard computation.
type DashboardParams struct {
	Now              time.Time
	ExpiryWindowDays int
	TopN             int
}

// DailySales is one day of the sales summary.
type DailySales struct {
	Day        time.Time   `json:"day" db:"day"`
	SalesCount int64       `json:"salesCount" db:"sales_count"`
	Revenue    types.Money `json:"revenue" db:"revenue"`
	UnitsSold  int64       `json:"unitsSold" db:"units_sold"`
}

// PaymentBreakdown is revenue per payment method.
type PaymentBreakdown struct {
	PaymentMethod string      `json:"paymentMethod" db:"payment_method"`
	SalesCount    int64       `json:"salesCount" db:"sales_count"`
	Revenue       types.Money `json:"revenue" db:"revenue"`
}

// SalesSummary covers a date range.
type SalesSummary struct {
	From      time.Time          `json:"from"`
	To        time.Time          `json:"to"`
	Days      []DailySales       `json:"days"`
	ByPayment []PaymentBreakdown `json:"byPayment"`
	Total     types.Money        `json:"total"`
}
