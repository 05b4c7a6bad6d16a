package advisor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rshade/ecolife/internal/goals"
	"github.com/rshade/ecolife/internal/ids"
	"github.com/rshade/ecolife/internal/ledger"
	"github.com/rshade/ecolife/internal/logging"
	"github.com/rshade/ecolife/internal/metrics"
	"github.com/rshade/ecolife/internal/stats"
)

// Store persists insights and achievements.
//
// GetInsight returns ErrInsightNotFound for an unknown id. SaveInsight
// upserts by ID; SaveAchievement upserts by (UserID, AchievementID).
type Store interface {
	ListInsights(ctx context.Context, userID string) ([]Insight, error)
	GetInsight(ctx context.Context, id string) (Insight, error)
	SaveInsight(ctx context.Context, in Insight) error
	ListAchievements(ctx context.Context, userID string) ([]Achievement, error)
	SaveAchievement(ctx context.Context, a Achievement) error
}

// StatsSource returns current statistics for a user.
type StatsSource interface {
	Get(ctx context.Context, userID string) (stats.Statistics, error)
}

// GoalSource returns a user's goals.
type GoalSource interface {
	Get(ctx context.Context, userID string) (goals.Goals, error)
}

// ActivitySource lists a user's activities.
type ActivitySource interface {
	List(ctx context.Context, userID string, r *ledger.DateRange) ([]ledger.Activity, error)
}

// Advisor evaluates statistics against goals.
type Advisor struct {
	stats      StatsSource
	goals      GoalSource
	activities ActivitySource
	store      Store
	shares     Shares
	metrics    *metrics.Metrics
	now        func() time.Time
	newID      func(time.Time) string
}

// New creates an advisor. Nil shares take DefaultShares.
func New(st StatsSource, g GoalSource, activities ActivitySource, store Store, shares Shares) *Advisor {
	if shares == nil {
		shares = DefaultShares()
	}
	return &Advisor{
		stats:      st,
		goals:      g,
		activities: activities,
		store:      store,
		shares:     shares,
		now:        time.Now,
		newID:      ids.NewAt,
	}
}

// WithClock replaces the clock used for timestamps and the current month.
func (a *Advisor) WithClock(now func() time.Time) *Advisor {
	a.now = now
	return a
}

// WithMetrics counts insights and unlocks on m.
func (a *Advisor) WithMetrics(m *metrics.Metrics) *Advisor {
	a.metrics = m
	return a
}

// Evaluate compares the user's statistics to their goals, creates or
// refreshes insights for over-budget categories and advances achievement
// progress. Unlocked achievements are never rewritten, so re-running
// Evaluate is idempotent.
func (a *Advisor) Evaluate(ctx context.Context, userID string) (Evaluation, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Evaluation{}, ledger.ErrMissingUser
	}
	log := logging.FromContext(ctx).With().
		Str("component", "advisor").
		Str("operation", "Evaluate").
		Str("user_id", userID).
		Logger()

	st, err := a.stats.Get(ctx, userID)
	if err != nil {
		return Evaluation{}, fmt.Errorf("loading statistics: %w", err)
	}
	g, err := a.goals.Get(ctx, userID)
	if err != nil {
		return Evaluation{}, fmt.Errorf("loading goals: %w", err)
	}
	activities, err := a.activities.List(ctx, userID, nil)
	if err != nil {
		return Evaluation{}, fmt.Errorf("loading activities: %w", err)
	}

	now := a.now().UTC()
	insights, err := a.applyInsights(ctx, userID, DraftInsights(st, g, a.shares), now)
	if err != nil {
		return Evaluation{}, err
	}
	achievements, unlocked, err := a.applyBadges(ctx, userID, EvaluateBadges(st, g, NewFacts(activities, now)), now)
	if err != nil {
		return Evaluation{}, err
	}

	log.Info().Ctx(ctx).
		Int("insights", len(insights)).
		Int("newly_unlocked", len(unlocked)).
		Msg("evaluation complete")

	return Evaluation{
		UserID:        userID,
		Insights:      insights,
		Achievements:  achievements,
		NewlyUnlocked: unlocked,
		EvaluatedAt:   now,
	}, nil
}

func (a *Advisor) applyInsights(ctx context.Context, userID string, drafts []Draft, now time.Time) ([]Insight, error) {
	out := []Insight{}
	if len(drafts) == 0 {
		return out, nil
	}
	existing, err := a.store.ListInsights(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing insights: %w", err)
	}
	open := make(map[string]Insight, len(existing))
	for _, in := range existing {
		if !in.Adopted {
			open[string(in.Category)] = in
		}
	}

	for _, d := range drafts {
		in, ok := open[string(d.Category)]
		if !ok {
			in = Insight{ID: a.newID(now), UserID: userID, CreatedAt: now}
		}
		in = d.render(in)
		in.UpdatedAt = now
		if err = a.store.SaveInsight(ctx, in); err != nil {
			return nil, fmt.Errorf("saving insight: %w", err)
		}
		a.metrics.InsightGenerated(string(in.Priority))
		out = append(out, in)
	}
	return out, nil
}

func (a *Advisor) applyBadges(
	ctx context.Context,
	userID string,
	progress []BadgeProgress,
	now time.Time,
) ([]Achievement, []BadgeID, error) {
	existing, err := a.achievementsByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	all := make([]Achievement, 0, len(progress))
	unlocked := []BadgeID{}
	for _, p := range progress {
		badge, _ := LookupBadge(p.ID)
		current, stored := existing[p.ID]
		if !stored {
			current = newAchievement(userID, badge)
		}
		if current.Unlocked() {
			all = append(all, current)
			continue
		}

		next := current
		next.Progress = p.Progress
		if p.Unlocks() {
			next.Progress = 100
			unlockedAt := now
			next.UnlockedDate = &unlockedAt
		}
		if next.Progress != current.Progress || next.Unlocked() {
			next.UpdatedAt = now
			if err = a.store.SaveAchievement(ctx, next); err != nil {
				return nil, nil, fmt.Errorf("saving achievement %s: %w", p.ID, err)
			}
		}
		if next.Unlocked() {
			unlocked = append(unlocked, p.ID)
			a.metrics.AchievementUnlocked(string(p.ID))
			logging.FromContext(ctx).Info().Ctx(ctx).
				Str("component", "advisor").
				Str("user_id", userID).
				Str("achievement", string(p.ID)).
				Msg("achievement unlocked")
		}
		all = append(all, next)
	}
	return all, unlocked, nil
}

func (a *Advisor) achievementsByID(ctx context.Context, userID string) (map[BadgeID]Achievement, error) {
	stored, err := a.store.ListAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing achievements: %w", err)
	}
	byID := make(map[BadgeID]Achievement, len(stored))
	for _, ach := range stored {
		byID[ach.AchievementID] = ach
	}
	return byID, nil
}

// AdoptInsight marks an insight as adopted. Adopting twice keeps the first
// adoption date.
func (a *Advisor) AdoptInsight(ctx context.Context, id string) (Insight, error) {
	if strings.TrimSpace(id) == "" {
		return Insight{}, ErrInsightNotFound
	}
	in, err := a.store.GetInsight(ctx, id)
	if err != nil {
		if errors.Is(err, ErrInsightNotFound) {
			return Insight{}, err
		}
		return Insight{}, fmt.Errorf("loading insight: %w", err)
	}
	if in.Adopted {
		return in, nil
	}

	now := a.now().UTC()
	in.Adopted = true
	in.AdoptedDate = &now
	in.UpdatedAt = now
	if err = a.store.SaveInsight(ctx, in); err != nil {
		return Insight{}, fmt.Errorf("saving insight: %w", err)
	}

	logging.FromContext(ctx).Info().Ctx(ctx).
		Str("component", "advisor").
		Str("user_id", in.UserID).
		Str("insight_id", id).
		Msg("insight adopted")
	return in, nil
}

// ListInsights returns a user's insights: open before adopted, then by
// priority, then newest first.
func (a *Advisor) ListInsights(ctx context.Context, userID string) ([]Insight, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ledger.ErrMissingUser
	}
	insights, err := a.store.ListInsights(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing insights: %w", err)
	}
	if insights == nil {
		insights = []Insight{}
	}
	sort.SliceStable(insights, func(i, j int) bool {
		x, y := insights[i], insights[j]
		if x.Adopted != y.Adopted {
			return !x.Adopted
		}
		if x.Priority.rank() != y.Priority.rank() {
			return x.Priority.rank() < y.Priority.rank()
		}
		return x.CreatedAt.After(y.CreatedAt)
	})
	return insights, nil
}

// ListAchievements returns every badge in catalog order, merged with the
// user's stored progress.
func (a *Advisor) ListAchievements(ctx context.Context, userID string) ([]Achievement, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ledger.ErrMissingUser
	}
	byID, err := a.achievementsByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Achievement, 0, len(catalog))
	for _, b := range catalog {
		if ach, ok := byID[b.ID]; ok {
			out = append(out, ach)
			continue
		}
		out = append(out, newAchievement(userID, b))
	}
	return out, nil
}
