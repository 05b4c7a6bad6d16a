// Package migration copies a ledger between storage backends.
package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rshade/ecolife/internal/goals"
	"github.com/rshade/ecolife/internal/ledger"
	"github.com/rshade/ecolife/internal/logging"
	"github.com/rshade/ecolife/internal/store"
)

// DefaultConcurrency bounds how many users are copied at once.
const DefaultConcurrency = 4

// Report counts what a migration copied.
type Report struct {
	Users        []string `json:"users"`
	Activities   int      `json:"activities"`
	Skipped      int      `json:"skipped"`
	Goals        int      `json:"goals"`
	Insights     int      `json:"insights"`
	Achievements int      `json:"achievements"`
}

// Copy writes every user's activities, goals, insights and achievements
// from src into dst. Activities whose id already exists in dst are skipped,
// so an interrupted run can be repeated. Goals, insights and achievements
// are upserted.
func Copy(ctx context.Context, src, dst store.Backend, concurrency int) (Report, error) {
	log := logging.FromContext(ctx).With().Str("component", "migration").Logger()
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	users, err := src.UserIDs(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("listing source users: %w", err)
	}

	var (
		mu     sync.Mutex
		report = Report{Users: users}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, userID := range users {
		userID := userID
		g.Go(func() error {
			r, err := copyUser(gctx, src, dst, userID)
			if err != nil {
				return fmt.Errorf("migrating user %s: %w", userID, err)
			}
			log.Debug().Ctx(gctx).
				Str("user_id", userID).
				Int("activities", r.Activities).
				Int("skipped", r.Skipped).
				Msg("user migrated")
			mu.Lock()
			report.add(r)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	log.Info().Ctx(ctx).
		Int("users", len(users)).
		Int("activities", report.Activities).
		Int("skipped", report.Skipped).
		Msg("migration complete")
	return report, nil
}

func (r *Report) add(o Report) {
	r.Activities += o.Activities
	r.Skipped += o.Skipped
	r.Goals += o.Goals
	r.Insights += o.Insights
	r.Achievements += o.Achievements
}

func copyUser(ctx context.Context, src, dst store.Backend, userID string) (Report, error) {
	var r Report

	acts, err := src.QueryActivities(ctx, ledger.Filter{UserID: userID})
	if err != nil {
		return r, fmt.Errorf("reading activities: %w", err)
	}
	ledger.SortByDate(acts)
	for _, a := range acts {
		existing, err := dst.QueryActivities(ctx, ledger.Filter{ID: a.ID})
		if err != nil {
			return r, fmt.Errorf("checking activity %s: %w", a.ID, err)
		}
		if len(existing) > 0 {
			r.Skipped++
			continue
		}
		if err := dst.InsertActivity(ctx, a); err != nil {
			return r, fmt.Errorf("writing activity %s: %w", a.ID, err)
		}
		r.Activities++
	}

	g, err := src.FindGoals(ctx, userID)
	switch {
	case errors.Is(err, goals.ErrGoalsMissing):
	case err != nil:
		return r, fmt.Errorf("reading goals: %w", err)
	default:
		if err := dst.SaveGoals(ctx, g); err != nil {
			return r, fmt.Errorf("writing goals: %w", err)
		}
		r.Goals++
	}

	insights, err := src.ListInsights(ctx, userID)
	if err != nil {
		return r, fmt.Errorf("reading insights: %w", err)
	}
	for _, in := range insights {
		if err := dst.SaveInsight(ctx, in); err != nil {
			return r, fmt.Errorf("writing insight %s: %w", in.ID, err)
		}
		r.Insights++
	}

	achievements, err := src.ListAchievements(ctx, userID)
	if err != nil {
		return r, fmt.Errorf("reading achievements: %w", err)
	}
	for _, a := range achievements {
		if err := dst.SaveAchievement(ctx, a); err != nil {
			return r, fmt.Errorf("writing achievement %s: %w", a.AchievementID, err)
		}
		r.Achievements++
	}
	return r, nil
}
