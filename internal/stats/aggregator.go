package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/rshade/ecolife/internal/goals"
	"github.com/rshade/ecolife/internal/ledger"
	"github.com/rshade/ecolife/internal/logging"
	"github.com/rshade/ecolife/internal/metrics"
)

// ActivitySource lists a user's activities, ascending by date.
type ActivitySource interface {
	List(ctx context.Context, userID string, r *ledger.DateRange) ([]ledger.Activity, error)
}

// GoalSource returns a user's goals, creating defaults when missing.
type GoalSource interface {
	Get(ctx context.Context, userID string) (goals.Goals, error)
}

// Aggregator recomputes statistics from the ledger.
type Aggregator struct {
	activities ActivitySource
	goals      GoalSource
	params     Params
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewAggregator creates an aggregator. Zero params fields take defaults.
func NewAggregator(activities ActivitySource, goalSource GoalSource, params Params) *Aggregator {
	return &Aggregator{
		activities: activities,
		goals:      goalSource,
		params:     params.withDefaults(),
		now:        time.Now,
	}
}

// WithClock replaces the clock used for LastUpdated.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// WithMetrics records recompute durations on m.
func (a *Aggregator) WithMetrics(m *metrics.Metrics) *Aggregator {
	a.metrics = m
	return a
}

// Params returns the reference constants in use.
func (a *Aggregator) Params() Params {
	return a.params
}

// Recompute rebuilds the statistics of userID from all of their activities.
// It is idempotent: with no intervening writes, two calls differ only in
// LastUpdated.
func (a *Aggregator) Recompute(ctx context.Context, userID string) (Statistics, error) {
	start := time.Now()
	log := logging.FromContext(ctx).With().
		Str("component", "stats").
		Str("operation", "Recompute").
		Str("user_id", userID).
		Logger()

	g, err := a.goals.Get(ctx, userID)
	if err != nil {
		return Statistics{}, fmt.Errorf("loading goals: %w", err)
	}
	activities, err := a.activities.List(ctx, userID, nil)
	if err != nil {
		return Statistics{}, fmt.Errorf("loading activities: %w", err)
	}

	s := Compute(userID, activities, g.DailyGoal, a.params, a.now())
	a.metrics.ObserveRecompute(time.Since(start))

	log.Debug().Ctx(ctx).
		Int("activity_count", s.ActivityCount).
		Float64("total_emissions", s.TotalEmissions).
		Dur("elapsed", time.Since(start)).
		Msg("statistics recomputed")
	return s, nil
}
