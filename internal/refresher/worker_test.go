package refresher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingCatalog struct {
	calls atomic.Int32
	err   error
}

func (c *countingCatalog) Refresh(context.Context) error {
	c.calls.Add(1)
	return c.err
}

type countingSweeper struct {
	calls atomic.Int32
	ttl   atomic.Int64
}

func (s *countingSweeper) SweepIdle(_ context.Context, ttl time.Duration) int {
	s.calls.Add(1)
	s.ttl.Store(int64(ttl))
	return 1
}

func TestWorkerRunsBothLoops(t *testing.T) {
	catalog := &countingCatalog{err: errors.New("upstream down")}
	sweeper := &countingSweeper{}

	w := NewWorker(catalog, sweeper, Config{
		RefreshInterval: 5 * time.Millisecond,
		SweepInterval:   5 * time.Millisecond,
		IdleTTL:         time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	assert.Eventually(t, func() bool {
		return catalog.calls.Load() >= 2 && sweeper.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	w.Wait()

	assert.Equal(t, int64(time.Hour), sweeper.ttl.Load())
}

func TestWorkerSkipsSweepWithoutTTL(t *testing.T) {
	catalog := &countingCatalog{}
	sweeper := &countingSweeper{}

	w := NewWorker(catalog, sweeper, Config{
		RefreshInterval: 5 * time.Millisecond,
		SweepInterval:   5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	assert.Eventually(t, func() bool { return catalog.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	w.Wait()

	assert.Zero(t, sweeper.calls.Load())
}
