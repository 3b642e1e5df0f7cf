package numerator

import (
	"context"
	"time"
)

// Generator allocates the next number of a sequence.
//
// Implementations must be safe for concurrent use across processes when
// backed by shared storage. Called inside a transaction, the allocation
// commits or rolls back with it.
type Generator interface {
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber moves the counter so the next allocation returns value.
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}
