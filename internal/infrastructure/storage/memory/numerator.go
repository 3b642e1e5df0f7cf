package memory

import (
	"context"
	"fmt"
	"time"

	"pharmledger/internal/core/numerator"
)

// Numerator implements numerator.Generator over the store's sequence map.
// Counters roll back with the surrounding transaction. The cached strategy
// behaves like the strict one here.
type Numerator struct {
	store *Store
}

var _ numerator.Generator = (*Numerator)(nil)

func (n *Numerator) GetNextNumber(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
	key := numerator.SequenceKey(cfg, period)
	var seq int64
	err := n.store.write(ctx, func(st *state) error {
		st.sequences[key]++
		seq = st.sequences[key]
		return nil
	})
	if err != nil {
		return "", err
	}
	return numerator.Format(cfg, period, seq), nil
}

func (n *Numerator) SetNextNumber(ctx context.Context, cfg numerator.Config, period time.Time, value int64) error {
	if value < 1 {
		return fmt.Errorf("next number must be positive, got %d", value)
	}
	key := numerator.SequenceKey(cfg, period)
	return n.store.write(ctx, func(st *state) error {
		st.sequences[key] = value - 1
		return nil
	})
}
