// Package numerator allocates ledger numbers from the sys_sequences table.
// It implements core/numerator.Generator.
package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "pharmledger/internal/core/numerator"
	"pharmledger/internal/infrastructure/storage/postgres"
)

const defaultRangeSize = 50

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type cachedRange struct {
	current int64
	max     int64
}

// Service provides ledger numbering backed by PostgreSQL.
type Service struct {
	// txQuerier joins the caller's transaction, so strict numbers roll back with it
	txQuerier func(ctx context.Context) Querier

	// rangeQuerier reserves cached ranges outside any transaction
	rangeQuerier Querier

	cacheMu sync.Mutex
	ranges  map[string]*cachedRange
}

var _ corenumerator.Generator = (*Service)(nil)

// New creates a numbering service bound to the transaction manager.
func New(txm *postgres.TxManager) *Service {
	return &Service{
		txQuerier: func(ctx context.Context) Querier {
			return txm.GetQuerier(ctx)
		},
		rangeQuerier: txm.PoolQuerier(),
		ranges:       make(map[string]*cachedRange),
	}
}

// NewWithQuerier creates a service over a single querier. Used in tests.
func NewWithQuerier(q Querier) *Service {
	return &Service{
		txQuerier:    func(context.Context) Querier { return q },
		rangeQuerier: q,
		ranges:       make(map[string]*cachedRange),
	}
}

// GetNextNumber allocates and formats the next number of cfg for period.
func (s *Service) GetNextNumber(ctx context.Context, cfg corenumerator.Config, opts *corenumerator.Options, period time.Time) (string, error) {
	if s == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}
	if opts == nil {
		opts = corenumerator.DefaultOptions()
	}

	key := corenumerator.SequenceKey(cfg, period)

	var (
		num int64
		err error
	)
	switch opts.Strategy {
	case corenumerator.StrategyCached:
		num, err = s.getNextCached(ctx, key, opts)
	default:
		num, err = s.getNextStrict(ctx, key)
	}
	if err != nil {
		return "", err
	}

	return corenumerator.Format(cfg, period, num), nil
}

// getNextStrict bumps the counter with one UPSERT. Concurrent callers
// serialize on the row lock; each sees a distinct value.
func (s *Service) getNextStrict(ctx context.Context, key string) (int64, error) {
	var num int64
	err := s.txQuerier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, key).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("strict next %s: %w", key, postgres.TranslateError(err))
	}
	return num, nil
}

// getNextCached hands out numbers from a reserved block, reserving a new one when exhausted.
func (s *Service) getNextCached(ctx context.Context, key string, opts *corenumerator.Options) (int64, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	rng, ok := s.ranges[key]
	if !ok {
		rng = &cachedRange{}
		s.ranges[key] = rng
	}

	if rng.current >= rng.max {
		size := opts.RangeSize
		if size <= 0 {
			size = defaultRangeSize
		}

		// current_val is the last handed-out value; the new block is (old, newMax]
		var newMax int64
		err := s.rangeQuerier.QueryRow(ctx, `
			INSERT INTO sys_sequences (key, current_val)
			VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + $2
			RETURNING current_val
		`, key, size).Scan(&newMax)
		if err != nil {
			return 0, fmt.Errorf("reserve range %s: %w", key, postgres.TranslateError(err))
		}

		rng.current = newMax - size
		rng.max = newMax
	}

	rng.current++
	return rng.current, nil
}

// SetNextNumber moves the counter so the next allocation returns value.
func (s *Service) SetNextNumber(ctx context.Context, cfg corenumerator.Config, period time.Time, value int64) error {
	if value < 1 {
		return fmt.Errorf("next number must be positive, got %d", value)
	}
	key := corenumerator.SequenceKey(cfg, period)

	var result int64
	err := s.txQuerier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = $2
		RETURNING current_val
	`, key, value-1).Scan(&result)
	if err != nil {
		return fmt.Errorf("set next %s: %w", key, postgres.TranslateError(err))
	}

	s.cacheMu.Lock()
	delete(s.ranges, key)
	s.cacheMu.Unlock()
	return nil
}
