// Package scheduler runs the periodic statistics and advisor refresh.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/rshade/ecolife/internal/engine"
	"github.com/rshade/ecolife/internal/logging"
)

// ErrAlreadyStarted is returned by Start on a running scheduler.
var ErrAlreadyStarted = errors.New("scheduler already started")

// Refresher is the engine operation the scheduler drives.
type Refresher interface {
	RefreshAll(ctx context.Context, concurrency int) (engine.RefreshResult, error)
}

// Scheduler triggers RefreshAll on a cron schedule. Runs never overlap: a
// tick that fires while the previous run is still going is skipped.
type Scheduler struct {
	cron        *cron.Cron
	refresher   Refresher
	spec        string
	schedule    cron.Schedule
	concurrency int
	log         zerolog.Logger

	mu      sync.Mutex
	ctx     context.Context
	started bool
	entry   cron.EntryID
}

// New validates spec (standard five-field cron or a descriptor such as
// "@daily") and returns a stopped scheduler.
func New(ctx context.Context, refresher Refresher, spec string, concurrency int) (*Scheduler, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", spec, err)
	}
	log := logging.FromContext(ctx).With().Str("component", "scheduler").Logger()
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{log}),
			cron.SkipIfStillRunning(cronLogger{log}),
		)),
		refresher:   refresher,
		spec:        spec,
		schedule:    sched,
		concurrency: concurrency,
		log:         log,
	}, nil
}

// Spec returns the configured cron expression.
func (s *Scheduler) Spec() string { return s.spec }

// Start registers the refresh job and starts the cron loop. Jobs run with
// ctx, so cancelling it aborts an in-flight refresh.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.ctx = ctx
	if s.entry == 0 {
		id, err := s.cron.AddFunc(s.spec, s.tick)
		if err != nil {
			return fmt.Errorf("scheduling refresh: %w", err)
		}
		s.entry = id
	}
	s.cron.Start()
	s.started = true
	s.log.Info().Ctx(ctx).Str("spec", s.spec).Time("next_run", s.schedule.Next(time.Now())).Msg("refresh scheduled")
	return nil
}

// Stop halts the cron loop and waits for a running refresh to finish or
// for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info().Ctx(ctx).Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow performs one refresh synchronously.
func (s *Scheduler) RunNow(ctx context.Context) (engine.RefreshResult, error) {
	ctx = logging.ContextWithTraceID(ctx, logging.NewTraceID())
	res, err := s.refresher.RefreshAll(ctx, s.concurrency)
	if err != nil {
		s.log.Error().Ctx(ctx).Err(err).
			Int("users", res.Users).
			Int("failed", len(res.Failed)).
			Msg("scheduled refresh failed")
		return res, err
	}
	s.log.Info().Ctx(ctx).
		Int("users", res.Users).
		Int("refreshed", res.Refreshed).
		Dur("elapsed", res.Elapsed).
		Msg("scheduled refresh complete")
	return res, nil
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	_, _ = s.RunNow(ctx)
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
