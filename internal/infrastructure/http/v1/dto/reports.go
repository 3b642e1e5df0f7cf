package dto

import (
	"time"

	"pharmledger/internal/domain/alerts"
	"pharmledger/internal/domain/reports"
)

// --- Dashboard ---

// TopSellerResponse is one best-selling medicine.
type TopSellerResponse struct {
	MedicineID   string `json:"medicineId"`
	MedicineName string `json:"medicineName"`
	UnitsSold    int64  `json:"unitsSold"`
	Revenue      string `json:"revenue"`
}

// DashboardResponse is the summary shown on the home screen.
type DashboardResponse struct {
	TotalMedicines     int64               `json:"totalMedicines"`
	LowStockCount      int64               `json:"lowStockCount"`
	ExpiringSoonCount  int64               `json:"expiringSoonCount"`
	ExpiredCount       int64               `json:"expiredCount"`
	TodaySalesCount    int64               `json:"todaySalesCount"`
	TodayRevenue       string              `json:"todayRevenue"`
	MonthRevenue       string              `json:"monthRevenue"`
	TotalPrescriptions int64               `json:"totalPrescriptions"`
	StockValue         string              `json:"stockValue"`
	TopSelling         []TopSellerResponse `json:"topSelling"`
	GeneratedAt        time.Time           `json:"generatedAt"`
}

// FromDashboard converts the domain dashboard to its response.
func FromDashboard(d *reports.Dashboard) DashboardResponse {
	resp := DashboardResponse{
		TotalMedicines:     d.TotalMedicines,
		LowStockCount:      d.LowStockCount,
		ExpiringSoonCount:  d.ExpiringSoonCount,
		ExpiredCount:       d.ExpiredCount,
		TodaySalesCount:    d.TodaySalesCount,
		TodayRevenue:       Money(d.TodayRevenue),
		MonthRevenue:       Money(d.MonthRevenue),
		TotalPrescriptions: d.TotalPrescriptions,
		StockValue:         Money(d.StockValue),
		TopSelling:         make([]TopSellerResponse, len(d.TopSelling)),
		GeneratedAt:        d.GeneratedAt,
	}
	for i, t := range d.TopSelling {
		resp.TopSelling[i] = TopSellerResponse{
			MedicineID:   t.MedicineID.String(),
			MedicineName: t.MedicineName,
			UnitsSold:    t.UnitsSold,
			Revenue:      Money(t.Revenue),
		}
	}
	return resp
}

// --- Sales summary ---

// SalesSummaryQuery selects the reporting range. To is exclusive.
type SalesSummaryQuery struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
}

// Range parses the query dates.
func (q SalesSummaryQuery) Range() (time.Time, time.Time, error) {
	from, err := ParseDayStart("from", q.From)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := ParseDayStart("to", q.To)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// DailySalesResponse is one day of sales.
type DailySalesResponse struct {
	Day        string `json:"day"`
	SalesCount int64  `json:"salesCount"`
	Revenue    string `json:"revenue"`
	UnitsSold  int64  `json:"unitsSold"`
}

// PaymentBreakdownResponse totals one payment method.
type PaymentBreakdownResponse struct {
	PaymentMethod string `json:"paymentMethod"`
	SalesCount    int64  `json:"salesCount"`
	Revenue       string `json:"revenue"`
}

// SalesSummaryResponse is the sales report for a range.
type SalesSummaryResponse struct {
	From      string                     `json:"from"`
	To        string                     `json:"to"`
	Days      []DailySalesResponse       `json:"days"`
	ByPayment []PaymentBreakdownResponse `json:"byPayment"`
	Total     string                     `json:"total"`
}

// FromSalesSummary converts the domain summary to its response.
func FromSalesSummary(s *reports.SalesSummary) SalesSummaryResponse {
	resp := SalesSummaryResponse{
		From:      FormatDate(s.From),
		To:        FormatDate(s.To),
		Days:      make([]DailySalesResponse, len(s.Days)),
		ByPayment: make([]PaymentBreakdownResponse, len(s.ByPayment)),
		Total:     Money(s.Total),
	}
	for i, d := range s.Days {
		resp.Days[i] = DailySalesResponse{
			Day:        FormatDate(d.Day),
			SalesCount: d.SalesCount,
			Revenue:    Money(d.Revenue),
			UnitsSold:  d.UnitsSold,
		}
	}
	for i, p := range s.ByPayment {
		resp.ByPayment[i] = PaymentBreakdownResponse{
			PaymentMethod: p.PaymentMethod,
			SalesCount:    p.SalesCount,
			Revenue:       Money(p.Revenue),
		}
	}
	return resp
}

// --- Alerts ---

// AlertRuleResponse describes one configured rule.
type AlertRuleResponse struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Severity   string `json:"severity"`
}

// FromAlertRules converts the active rule set.
func FromAlertRules(rules []alerts.Rule) []AlertRuleResponse {
	out := make([]AlertRuleResponse, len(rules))
	for i, r := range rules {
		out[i] = AlertRuleResponse{Name: r.Name, Expression: r.Expression, Severity: string(r.Severity)}
	}
	return out
}

// AlertsResponse is one scan of the catalogue.
type AlertsResponse struct {
	*alerts.Report
	Rules []AlertRuleResponse `json:"rules,omitempty"`
}

// ScanQueuedResponse acknowledges an asynchronous scan request.
type ScanQueuedResponse struct {
	Queued bool `json:"queued"`
}
