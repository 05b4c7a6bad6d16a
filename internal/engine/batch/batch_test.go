package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_Run(t *testing.T) {
	users := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7"}

	t.Run("AllSucceed", func(t *testing.T) {
		r, err := NewRunner[string](3)
		require.NoError(t, err)

		var seen sync.Map
		report, err := r.Run(context.Background(), users, func(_ context.Context, u string) error {
			seen.Store(u, true)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, report.Total)
		assert.Equal(t, 7, report.Succeeded)
		assert.Empty(t, report.Failures)
		require.NoError(t, report.Err())
		for _, u := range users {
			_, ok := seen.Load(u)
			assert.True(t, ok, u)
		}
	})

	t.Run("FailuresDoNotStopOthers", func(t *testing.T) {
		r := NewRunnerWithDefaults[string]()
		boom := errors.New("boom")

		report, err := r.Run(context.Background(), users, func(_ context.Context, u string) error {
			if u == "u2" || u == "u5" {
				return boom
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 5, report.Succeeded)
		require.Len(t, report.Failures, 2)
		require.ErrorIs(t, report.Err(), boom)
		assert.Contains(t, report.Err().Error(), "item u2")
	})

	t.Run("RespectsLimit", func(t *testing.T) {
		r, err := NewRunner[string](2)
		require.NoError(t, err)

		var inFlight, peak int32
		_, err = r.Run(context.Background(), users, func(_ context.Context, _ string) error {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			atomic.AddInt32(&inFlight, -1)
			return nil
		})
		require.NoError(t, err)
		assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var calls int32
		_, err := NewRunnerWithDefaults[string]().Run(ctx, users, func(context.Context, string) error {
			atomic.AddInt32(&calls, 1)
			return nil
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, atomic.LoadInt32(&calls))
	})

	t.Run("Progress", func(t *testing.T) {
		var last ProgressSnapshot
		var mu sync.Mutex
		r, err := NewRunner[string](1)
		require.NoError(t, err)
		r.WithProgressCallback(func(s ProgressSnapshot) {
			mu.Lock()
			last = s
			mu.Unlock()
		})

		_, err = r.Run(context.Background(), users, func(_ context.Context, u string) error {
			if u == "u1" {
				return errors.New("fail")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, last.ProcessedItems)
		assert.Equal(t, 1, last.FailedItems)
		assert.InDelta(t, 100.0, last.PercentComplete, 1e-9)
	})

	t.Run("EmptyItems", func(t *testing.T) {
		report, err := NewRunnerWithDefaults[string]().Run(context.Background(), nil,
			func(context.Context, string) error { return nil })
		require.NoError(t, err)
		assert.Zero(t, report.Total)
	})

	t.Run("NilTask", func(t *testing.T) {
		_, err := NewRunnerWithDefaults[string]().Run(context.Background(), users, nil)
		assert.Equal(t, ErrNilTask, err)
	})

	t.Run("InvalidConcurrency", func(t *testing.T) {
		_, err := NewRunner[string](0)
		require.ErrorIs(t, err, ErrInvalidConcurrency)
		_, err = NewRunner[string](65)
		assert.ErrorIs(t, err, ErrInvalidConcurrency)
	})
}

func TestProgress(t *testing.T) {
	p := NewProgress(4)
	assert.InDelta(t, 0.0, p.PercentComplete(), 1e-9)
	assert.False(t, p.IsComplete())

	p.AddProcessed(false)
	p.AddProcessed(true)
	assert.InDelta(t, 50.0, p.PercentComplete(), 1e-9)

	p.AddProcessed(false)
	p.AddProcessed(false)
	assert.True(t, p.IsComplete())

	snap := p.Snapshot()
	assert.Equal(t, 4, snap.ProcessedItems)
	assert.Equal(t, 1, snap.FailedItems)
}
