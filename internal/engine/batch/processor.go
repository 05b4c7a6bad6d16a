package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Concurrency bounds for Runner.
const (
	// DefaultConcurrency is used by NewRunnerWithDefaults.
	DefaultConcurrency = 4

	// MinConcurrency is the minimum allowed concurrency.
	MinConcurrency = 1

	// MaxConcurrency is the maximum allowed concurrency.
	MaxConcurrency = 64
)

// Common batch errors.
var (
	ErrInvalidConcurrency = errors.New("concurrency must be between 1 and 64")
	ErrNilTask            = errors.New("batch task cannot be nil")
)

// Task processes a single item.
type Task[T any] func(ctx context.Context, item T) error

// ProgressCallback is invoked after every finished item, from the worker
// goroutine that finished it.
type ProgressCallback func(snapshot ProgressSnapshot)

// Failure is one item whose task returned an error.
type Failure[T any] struct {
	Item T
	Err  error
}

// Report summarises a Run.
type Report[T any] struct {
	Total     int
	Succeeded int
	Failures  []Failure[T]
	Elapsed   time.Duration
}

// Err joins every failure, or returns nil when all items succeeded.
func (r Report[T]) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("item %v: %w", f.Item, f.Err))
	}
	return errors.Join(errs...)
}

// Runner executes a task for each item with bounded concurrency.
type Runner[T any] struct {
	concurrency int
	onProgress  ProgressCallback
}

// NewRunner creates a runner that keeps at most concurrency tasks in flight.
func NewRunner[T any](concurrency int) (*Runner[T], error) {
	if concurrency < MinConcurrency || concurrency > MaxConcurrency {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidConcurrency, concurrency)
	}
	return &Runner[T]{concurrency: concurrency}, nil
}

// NewRunnerWithDefaults creates a runner with DefaultConcurrency.
func NewRunnerWithDefaults[T any]() *Runner[T] {
	return &Runner[T]{concurrency: DefaultConcurrency}
}

// WithProgressCallback sets a progress callback for the runner.
func (r *Runner[T]) WithProgressCallback(callback ProgressCallback) *Runner[T] {
	r.onProgress = callback
	return r
}

// Concurrency returns the configured limit.
func (r *Runner[T]) Concurrency() int {
	return r.concurrency
}

// Run calls task for every item. Item failures are collected in the report;
// the returned error is non-nil only for a nil task or a cancelled context.
func (r *Runner[T]) Run(ctx context.Context, items []T, task Task[T]) (Report[T], error) {
	if task == nil {
		return Report[T]{}, ErrNilTask
	}

	progress := NewProgress(len(items))
	report := Report[T]{Total: len(items)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, item := range items {
		item := item
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := task(gctx, item)

			mu.Lock()
			if err != nil {
				report.Failures = append(report.Failures, Failure[T]{Item: item, Err: err})
			} else {
				report.Succeeded++
			}
			mu.Unlock()

			progress.AddProcessed(err != nil)
			if r.onProgress != nil {
				r.onProgress(progress.Snapshot())
			}
			return nil
		})
	}

	waitErr := g.Wait()
	report.Elapsed = progress.ElapsedTime()
	if waitErr != nil {
		return report, waitErr
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}
