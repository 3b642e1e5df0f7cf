package numerator

import (
	"context"
	"sync/atomic"
	"time"
)

// MockGenerator is a test Generator with overridable behaviour.
type MockGenerator struct {
	GetNextNumberFunc func(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)
	SetNextNumberFunc func(ctx context.Context, cfg Config, period time.Time, value int64) error

	seq atomic.Int64
}

// GetNextNumber implements Generator. Without an override it counts up from 1.
func (m *MockGenerator) GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error) {
	if m.GetNextNumberFunc != nil {
		return m.GetNextNumberFunc(ctx, cfg, opts, period)
	}
	return Format(cfg, period, m.seq.Add(1)), nil
}

// SetNextNumber implements Generator.
func (m *MockGenerator) SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error {
	if m.SetNextNumberFunc != nil {
		return m.SetNextNumberFunc(ctx, cfg, period, value)
	}
	m.seq.Store(value - 1)
	return nil
}

var _ Generator = (*MockGenerator)(nil)
