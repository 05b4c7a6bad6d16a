package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rshade/ecolife/internal/engine/batch"
	"github.com/rshade/ecolife/internal/logging"
)

// RefreshResult summarises a RefreshAll run.
type RefreshResult struct {
	Users     int           `json:"users"`
	Refreshed int           `json:"refreshed"`
	Failed    []string      `json:"failed"`
	Elapsed   time.Duration `json:"elapsed"`
}

// RefreshAll recomputes statistics and re-runs the advisor for every known
// user, at most concurrency users at a time. Per-user failures are logged and
// listed in the result; the returned error joins them.
func (t *Tracker) RefreshAll(ctx context.Context, concurrency int) (RefreshResult, error) {
	log := logging.FromContext(ctx).With().
		Str("component", "engine").
		Str("operation", "RefreshAll").
		Logger()

	users, err := t.Users(ctx)
	if err != nil {
		t.metrics.RefreshDone(err)
		return RefreshResult{}, fmt.Errorf("listing users: %w", err)
	}

	runner, err := batch.NewRunner[string](concurrency)
	if err != nil {
		return RefreshResult{}, err
	}
	report, err := runner.Run(ctx, users, t.refreshUser)
	result := RefreshResult{
		Users:     report.Total,
		Refreshed: report.Succeeded,
		Failed:    []string{},
		Elapsed:   report.Elapsed,
	}
	for _, f := range report.Failures {
		result.Failed = append(result.Failed, f.Item)
		log.Warn().Ctx(ctx).Err(f.Err).Str("user_id", f.Item).Msg("refresh failed")
	}
	if err == nil {
		err = report.Err()
	}
	t.metrics.RefreshDone(err)

	log.Info().Ctx(ctx).
		Int("users", result.Users).
		Int("refreshed", result.Refreshed).
		Int("failed", len(result.Failed)).
		Dur("elapsed", result.Elapsed).
		Msg("refresh complete")
	return result, err
}

func (t *Tracker) refreshUser(ctx context.Context, userID string) error {
	if _, err := t.stats.Recompute(ctx, userID); err != nil {
		return err
	}
	_, err := t.advisor.Evaluate(ctx, userID)
	return err
}
