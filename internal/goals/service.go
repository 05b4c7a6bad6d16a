package goals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rshade/ecolife/internal/ledger"
	"github.com/rshade/ecolife/internal/logging"
)

// Store persists goal records.
type Store interface {
	// FindGoals returns ErrGoalsMissing when the user has no record.
	FindGoals(ctx context.Context, userID string) (Goals, error)
	// CreateGoalsIfAbsent inserts g unless a record for g.UserID exists,
	// and returns whichever record is stored afterwards.
	CreateGoalsIfAbsent(ctx context.Context, g Goals) (Goals, error)
	// SaveGoals upserts g.
	SaveGoals(ctx context.Context, g Goals) error
}

// Service reads and updates goals.
type Service struct {
	store       Store
	defaults    Goals
	invalidator ledger.Invalidator
	now         func() time.Time
}

// NewService creates a goal service. defaults seeds lazily created records;
// invalidator is told when a change affects derived statistics.
func NewService(store Store, defaults Goals, invalidator ledger.Invalidator) *Service {
	return &Service{
		store:       store,
		defaults:    defaults,
		invalidator: invalidator,
		now:         time.Now,
	}
}

// WithClock replaces the clock used for timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SetInvalidator replaces the invalidator.
func (s *Service) SetInvalidator(invalidator ledger.Invalidator) {
	s.invalidator = invalidator
}

// Defaults returns the template used for new records.
func (s *Service) Defaults() Goals {
	return s.defaults
}

// Get returns the user's goals, creating them from defaults if missing.
func (s *Service) Get(ctx context.Context, userID string) (Goals, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Goals{}, ledger.ErrMissingUser
	}

	g, err := s.store.FindGoals(ctx, userID)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, ErrGoalsMissing) {
		return Goals{}, fmt.Errorf("loading goals: %w", err)
	}

	now := s.now().UTC()
	fresh := s.defaults
	fresh.UserID = userID
	fresh.CreatedAt = now
	fresh.UpdatedAt = now

	created, err := s.store.CreateGoalsIfAbsent(ctx, fresh)
	if err != nil {
		return Goals{}, fmt.Errorf("creating default goals: %w", err)
	}

	logging.FromContext(ctx).Debug().Ctx(ctx).
		Str("component", "goals").
		Str("user_id", userID).
		Msg("created default goals")
	return created, nil
}

// Update applies a partial change after validating the result.
func (s *Service) Update(ctx context.Context, userID string, u Update) (Goals, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return Goals{}, err
	}

	next := u.Apply(current)
	if err = next.Validate(); err != nil {
		return Goals{}, err
	}
	if u.IsEmpty() {
		return current, nil
	}
	next.UpdatedAt = s.now().UTC()

	if err = s.store.SaveGoals(ctx, next); err != nil {
		return Goals{}, fmt.Errorf("saving goals: %w", err)
	}

	// The green streak depends on the daily goal.
	if s.invalidator != nil {
		if err = s.invalidator.Invalidate(ctx, next.UserID); err != nil {
			return next, fmt.Errorf("%w: %w", ledger.ErrStaleStatistics, err)
		}
	}

	logging.FromContext(ctx).Info().Ctx(ctx).
		Str("component", "goals").
		Str("user_id", next.UserID).
		Float64("daily_goal", next.DailyGoal).
		Msg("goals updated")
	return next, nil
}
