package reports

import (
	"context"
	"fmt"
	"time"

	"pharmledger/internal/core/apperror"
	"pharmledger/internal/core/types"
	"pharmledger/pkg/logger"
)

const (
	dashboardKey     = "dash:summary"
	dashboardPattern = "dash:*"
	maxSummaryRange  = 366 * 24 * time.Hour
)

// Service provides report generation operations.
type Service struct {
	repo             Repository
	cache            Cache
	ttl              time.Duration
	expiryWindowDays int
	now              func() time.Time
}

// Options configures the reports service.
type Options struct {
	Cache            Cache // nil disables caching
	TTL              time.Duration
	ExpiryWindowDays int
}

// NewService creates a new reports service.
func NewService(repo Repository, opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = time.Minute
	}
	if opts.ExpiryWindowDays <= 0 {
		opts.ExpiryWindowDays = 30
	}
	return &Service{
		repo:             repo,
		cache:            opts.Cache,
		ttl:              opts.TTL,
		expiryWindowDays: opts.ExpiryWindowDays,
		now:              time.Now,
	}
}

// Dashboard returns the dashboard, served from cache when available.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	if s.cache == nil {
		return s.computeDashboard(ctx)
	}

	var d Dashboard
	err := s.cache.GetOrSet(ctx, dashboardKey, &d, func() (any, error) {
		return s.computeDashboard(ctx)
	}, s.ttl)
	if err != nil {
		logger.Warn(ctx, "dashboard cache unavailable, computing directly", "error", err)
		return s.computeDashboard(ctx)
	}
	return &d, nil
}

func (s *Service) computeDashboard(ctx context.Context) (*Dashboard, error) {
	d, err := s.repo.Dashboard(ctx, DashboardParams{
		Now:              s.now().UTC(),
		ExpiryWindowDays: s.expiryWindowDays,
		TopN:             5,
	})
	if err != nil {
		return nil, fmt.Errorf("compute dashboard: %w", err)
	}
	d.GeneratedAt = s.now().UTC()
	return d, nil
}

// InvalidateDashboard drops cached dashboards. Called after sales and stock changes.
func (s *Service) InvalidateDashboard(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DeletePattern(ctx, dashboardPattern)
}

// SalesSummary returns per-day and per-payment-method totals for [from, to).
func (s *Service) SalesSummary(ctx context.Context, from, to time.Time) (*SalesSummary, error) {
	if from.IsZero() || to.IsZero() {
		return nil, apperror.NewValidation("from and to are required")
	}
	if !to.After(from) {
		return nil, apperror.NewFieldValidation("to", "to must be after from")
	}
	if to.Sub(from) > maxSummaryRange {
		return nil, apperror.NewFieldValidation("to", "range must not exceed one year")
	}

	days, err := s.repo.DailySales(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("daily sales: %w", err)
	}
	byPayment, err := s.repo.PaymentBreakdown(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("payment breakdown: %w", err)
	}

	totals := make([]types.Money, len(days))
	for i, d := range days {
		totals[i] = d.Revenue
	}
	return &SalesSummary{
		From:      from,
		To:        to,
		Days:      days,
		ByPayment: byPayment,
		Total:     types.Sum(totals...),
	}, nil
}
