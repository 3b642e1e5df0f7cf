package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmledger/pkg/logger"
)

type fakeCleaner struct {
	calls atomic.Int32
	err   error
}

func (f *fakeCleaner) CleanupExpired(ctx context.Context) (int64, error) {
	f.calls.Add(1)
	return 3, f.err
}

func TestHousekeeper_RunsUntilCancelled(t *testing.T) {
	cleaner := &fakeCleaner{}
	h := NewHousekeeper(cleaner, 10*time.Millisecond, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return cleaner.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("housekeeper did not stop")
	}
}

func TestHousekeeper_ErrorDoesNotStopLoop(t *testing.T) {
	cleaner := &fakeCleaner{err: errors.New("db down")}
	h := NewHousekeeper(cleaner, 10*time.Millisecond, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	assert.Eventually(t, func() bool { return cleaner.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestNewScheduler(t *testing.T) {
	mr := miniredis.RunT(t)
	opt := asynq.RedisClientOpt{Addr: mr.Addr()}

	scheduler, err := newScheduler(opt, 5*time.Minute, logger.Nop())
	require.NoError(t, err)
	require.NotNil(t, scheduler)

	scheduler, err = newScheduler(opt, 0, logger.Nop())
	require.NoError(t, err)
	require.NotNil(t, scheduler)
}
