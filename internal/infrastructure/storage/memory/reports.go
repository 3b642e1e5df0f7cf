package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"pharmledger/internal/core/id"
	"pharmledger/internal/core/types"
	"pharmledger/internal/domain/reports"
)

// ReportRepo implements reports.Repository by scanning the store.
type ReportRepo struct {
	store *Store
}

var _ reports.Repository = (*ReportRepo)(nil)

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func (r *ReportRepo) Dashboard(ctx context.Context, params reports.DashboardParams) (*reports.Dashboard, error) {
	now := params.Now
	today := types.DayStart(now)
	tomorrow := today.AddDate(0, 0, 1)
	monthStart := types.MonthStart(now)

	d := &reports.Dashboard{
		TodayRevenue: types.Zero(),
		MonthRevenue: types.Zero(),
		StockValue:   types.Zero(),
		TopSelling:   make([]reports.TopSeller, 0, params.TopN),
	}

	r.store.read(func(st *state) {
		for _, m := range st.medicines {
			if m.DeletionMark {
				continue
			}
			d.TotalMedicines++
			if m.IsLowStock() {
				d.LowStockCount++
			}
			days := m.DaysToExpiry(now)
			switch {
			case days < 0:
				d.ExpiredCount++
			case days <= params.ExpiryWindowDays:
				d.ExpiringSoonCount++
			}
			d.StockValue = d.StockValue.Add(m.StockValue())
		}

		sellers := make(map[id.ID]*reports.TopSeller)
		for _, s := range st.sales {
			if inRange(s.CreatedAt, today, tomorrow) {
				d.TodaySalesCount++
				d.TodayRevenue = d.TodayRevenue.Add(s.TotalAmount)
			}
			if !inRange(s.CreatedAt, monthStart, tomorrow) {
				continue
			}
			d.MonthRevenue = d.MonthRevenue.Add(s.TotalAmount)
			for _, it := range st.saleItems[s.ID] {
				ts, ok := sellers[it.MedicineID]
				if !ok {
					ts = &reports.TopSeller{
						MedicineID:   it.MedicineID,
						MedicineName: st.medicines[it.MedicineID].Name,
						Revenue:      types.Zero(),
					}
					sellers[it.MedicineID] = ts
				}
				ts.UnitsSold += int64(it.Quantity)
				ts.Revenue = ts.Revenue.Add(it.TotalPrice)
			}
		}
		d.TotalPrescriptions = int64(len(st.prescriptions))

		ranked := make([]reports.TopSeller, 0, len(sellers))
		for _, ts := range sellers {
			ranked = append(ranked, *ts)
		}
		slices.SortFunc(ranked, func(a, b reports.TopSeller) int {
			if c := cmp.Compare(b.UnitsSold, a.UnitsSold); c != 0 {
				return c
			}
			return cmpString(a.MedicineName, b.MedicineName)
		})
		if len(ranked) > params.TopN {
			ranked = ranked[:max(params.TopN, 0)]
		}
		d.TopSelling = append(d.TopSelling, ranked...)
	})

	d.StockValue = types.RoundMoney(d.StockValue)
	return d, nil
}

func (r *ReportRepo) DailySales(ctx context.Context, from, to time.Time) ([]reports.DailySales, error) {
	byDay := make(map[time.Time]*reports.DailySales)
	r.store.read(func(st *state) {
		for _, s := range st.sales {
			if !inRange(s.CreatedAt, from, to) {
				continue
			}
			day := types.BusinessDate(s.CreatedAt)
			ds, ok := byDay[day]
			if !ok {
				ds = &reports.DailySales{Day: day, Revenue: types.Zero()}
				byDay[day] = ds
			}
			ds.SalesCount++
			ds.Revenue = ds.Revenue.Add(s.TotalAmount)
			for _, it := range st.saleItems[s.ID] {
				ds.UnitsSold += int64(it.Quantity)
			}
		}
	})

	days := make([]reports.DailySales, 0, len(byDay))
	for _, ds := range byDay {
		days = append(days, *ds)
	}
	slices.SortFunc(days, func(a, b reports.DailySales) int { return a.Day.Compare(b.Day) })
	return days, nil
}

func (r *ReportRepo) PaymentBreakdown(ctx context.Context, from, to time.Time) ([]reports.PaymentBreakdown, error) {
	byMethod := make(map[string]*reports.PaymentBreakdown)
	r.store.read(func(st *state) {
		for _, s := range st.sales {
			if !inRange(s.CreatedAt, from, to) {
				continue
			}
			pm := string(s.PaymentMethod)
			pb, ok := byMethod[pm]
			if !ok {
				pb = &reports.PaymentBreakdown{PaymentMethod: pm, Revenue: types.Zero()}
				byMethod[pm] = pb
			}
			pb.SalesCount++
			pb.Revenue = pb.Revenue.Add(s.TotalAmount)
		}
	})

	rows := make([]reports.PaymentBreakdown, 0, len(byMethod))
	for _, pb := range byMethod {
		rows = append(rows, *pb)
	}
	slices.SortFunc(rows, func(a, b reports.PaymentBreakdown) int {
		if c := b.Revenue.Cmp(a.Revenue); c != 0 {
			return c
		}
		return cmpString(a.PaymentMethod, b.PaymentMethod)
	})
	return rows, nil
}
