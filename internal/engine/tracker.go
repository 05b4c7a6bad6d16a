// Package engine wires the emissions calculator, activity ledger, statistics
// service, goal service and advisor into a single Tracker.
package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rshade/ecolife/internal/advisor"
	"github.com/rshade/ecolife/internal/emissions"
	"github.com/rshade/ecolife/internal/engine/cache"
	"github.com/rshade/ecolife/internal/goals"
	"github.com/rshade/ecolife/internal/greenops"
	"github.com/rshade/ecolife/internal/ledger"
	"github.com/rshade/ecolife/internal/logging"
	"github.com/rshade/ecolife/internal/metrics"
	"github.com/rshade/ecolife/internal/stats"
	"github.com/rshade/ecolife/internal/store"
)

// Options configures a Tracker. Zero fields take defaults.
type Options struct {
	// Table is the emission factor table. An empty table means DefaultTable.
	Table emissions.Table
	// GoalDefaults seeds lazily created goal records.
	GoalDefaults goals.Goals
	Params       stats.Params
	Shares       advisor.Shares
	// Cache holds statistics snapshots. Nil disables caching.
	Cache   cache.Store
	Metrics *metrics.Metrics
	Clock   func() time.Time
}

// Tracker is the engine facade used by the CLI, the HTTP API and the
// scheduler.
type Tracker struct {
	backend store.Backend
	ledger  *ledger.Ledger
	goals   *goals.Service
	stats   *stats.Service
	advisor *advisor.Advisor
	params  stats.Params
	metrics *metrics.Metrics
}

// New wires a Tracker over backend.
func New(backend store.Backend, opts Options) *Tracker {
	table := opts.Table
	if table.Len() == 0 {
		table = emissions.DefaultTable()
	}
	defaults := opts.GoalDefaults
	if defaults.DailyGoal == 0 {
		defaults = goals.Defaults()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	l := ledger.New(backend, emissions.NewCalculator(table), nil).WithClock(clock)
	g := goals.NewService(backend, defaults, nil).WithClock(clock)
	agg := stats.NewAggregator(l, g, opts.Params).WithClock(clock).WithMetrics(opts.Metrics)
	svc := stats.NewService(agg, opts.Cache).WithMetrics(opts.Metrics)
	l.SetInvalidator(svc)
	g.SetInvalidator(svc)

	adv := advisor.New(svc, g, l, backend, opts.Shares).WithClock(clock).WithMetrics(opts.Metrics)

	return &Tracker{
		backend: backend,
		ledger:  l,
		goals:   g,
		stats:   svc,
		advisor: adv,
		params:  agg.Params(),
		metrics: opts.Metrics,
	}
}

// Record validates and stores an activity. An error wrapping
// ledger.ErrStaleStatistics comes with the persisted activity.
func (t *Tracker) Record(ctx context.Context, in ledger.NewActivity) (ledger.Activity, error) {
	a, err := t.ledger.Record(ctx, in)
	if err == nil || errors.Is(err, ledger.ErrStaleStatistics) {
		t.metrics.ActivityRecorded(string(a.Category))
	}
	return a, err
}

// List returns a user's activities ascending by date. A nil range lists all.
func (t *Tracker) List(ctx context.Context, userID string, r *ledger.DateRange) ([]ledger.Activity, error) {
	return t.ledger.List(ctx, userID, r)
}

// Get returns one activity.
func (t *Tracker) Get(ctx context.Context, id string) (ledger.Activity, error) {
	return t.ledger.Get(ctx, id)
}

// Delete removes an activity.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	return t.ledger.Delete(ctx, id)
}

// Annotate replaces an activity's notes.
func (t *Tracker) Annotate(ctx context.Context, id, notes string) (ledger.Activity, error) {
	return t.ledger.Annotate(ctx, id, notes)
}

// Update applies a notes and verified patch as a single write.
func (t *Tracker) Update(ctx context.Context, id string, patch ledger.ActivityPatch) (ledger.Activity, error) {
	return t.ledger.Update(ctx, id, patch)
}

// SetVerified flags an activity as verified or not.
func (t *Tracker) SetVerified(ctx context.Context, id string, verified bool) (ledger.Activity, error) {
	return t.ledger.SetVerified(ctx, id, verified)
}

// Statistics returns the cached snapshot, recomputing on a miss.
func (t *Tracker) Statistics(ctx context.Context, userID string) (stats.Statistics, error) {
	if err := requireUser(userID); err != nil {
		return stats.Statistics{}, err
	}
	return t.stats.Get(ctx, userID)
}

// Recompute rebuilds a user's statistics from the full ledger.
func (t *Tracker) Recompute(ctx context.Context, userID string) (stats.Statistics, error) {
	if err := requireUser(userID); err != nil {
		return stats.Statistics{}, err
	}
	return t.stats.Recompute(ctx, userID)
}

// Evaluate runs the advisor for a user.
func (t *Tracker) Evaluate(ctx context.Context, userID string) (advisor.Evaluation, error) {
	return t.advisor.Evaluate(ctx, userID)
}

// Goals returns a user's goals, creating defaults on first access.
func (t *Tracker) Goals(ctx context.Context, userID string) (goals.Goals, error) {
	return t.goals.Get(ctx, userID)
}

// UpdateGoals applies a partial goal change.
func (t *Tracker) UpdateGoals(ctx context.Context, userID string, u goals.Update) (goals.Goals, error) {
	return t.goals.Update(ctx, userID, u)
}

// ListInsights returns a user's insights, open ones first.
func (t *Tracker) ListInsights(ctx context.Context, userID string) ([]advisor.Insight, error) {
	return t.advisor.ListInsights(ctx, userID)
}

// AdoptInsight marks an insight as adopted.
func (t *Tracker) AdoptInsight(ctx context.Context, id string) (advisor.Insight, error) {
	return t.advisor.AdoptInsight(ctx, id)
}

// ListAchievements returns every badge with the user's state.
func (t *Tracker) ListAchievements(ctx context.Context, userID string) ([]advisor.Achievement, error) {
	return t.advisor.ListAchievements(ctx, userID)
}

// Factors returns the emission factor table.
func (t *Tracker) Factors() []emissions.Factor {
	return t.ledger.Calculator().Table().Factors()
}

// Users lists every user with activities or goals.
func (t *Tracker) Users(ctx context.Context) ([]string, error) {
	return t.backend.UserIDs(ctx)
}

// Close releases the backend.
func (t *Tracker) Close(ctx context.Context) error {
	return t.backend.Close(ctx)
}

// Summary is a statistics snapshot with goal context and carbon
// equivalencies for display.
type Summary struct {
	Statistics    stats.Statistics           `json:"statistics"`
	Goals         goals.Goals                `json:"goals"`
	Equivalencies greenops.EquivalencyOutput `json:"equivalencies"`
}

// Summary returns statistics, goals and equivalencies for a user.
func (t *Tracker) Summary(ctx context.Context, userID string) (Summary, error) {
	st, err := t.Statistics(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	g, err := t.goals.Get(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	eq, err := greenops.Calculate(st.TotalEmissions, greenops.Options{
		TreeAbsorptionKgPerYear: t.params.TreeAbsorptionKgPerYear,
	})
	if err != nil {
		logging.FromContext(ctx).Warn().Ctx(ctx).Err(err).
			Str("component", "engine").
			Str("user_id", userID).
			Msg("skipping equivalencies")
	}
	return Summary{Statistics: st, Goals: g, Equivalencies: eq}, nil
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ledger.ErrMissingUser
	}
	return nil
}
