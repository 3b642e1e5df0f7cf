package reports

import (
	"context"
	"time"
)

// Repository computes report aggregates in storage.
type Repository interface {
	Dashboard(ctx context.Context, params DashboardParams) (*Dashboard, error)
	DailySales(ctx context.Context, from, to time.Time) ([]DailySales, error)
	PaymentBreakdown(ctx context.Context, from, to time.Time) ([]PaymentBreakdown, error)
}

// Cache stores computed reports. Implementations treat a miss as "fetch and store".
type Cache interface {
	GetOrSet(ctx context.Context, key string, dest any, fetch func() (any, error), ttl time.Duration) error
	DeletePattern(ctx context.Context, pattern string) error
}
