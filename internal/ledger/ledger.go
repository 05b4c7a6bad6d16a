package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rshade/ecolife/internal/emissions"
	"github.com/rshade/ecolife/internal/ids"
	"github.com/rshade/ecolife/internal/logging"
)

// ErrStaleStatistics wraps an invalidation failure that happened after a
// write was persisted. The write stands; the caller must not trust cached
// statistics until the cache recovers.
var ErrStaleStatistics = errors.New("statistics invalidation failed after write")

// Ledger records, lists and deletes activities.
type Ledger struct {
	store       Store
	calc        *emissions.Calculator
	invalidator Invalidator
	now         func() time.Time
	newID       func(time.Time) string
}

// New creates a ledger. A nil invalidator disables invalidation.
func New(store Store, calc *emissions.Calculator, invalidator Invalidator) *Ledger {
	if invalidator == nil {
		invalidator = nopInvalidator{}
	}
	return &Ledger{
		store:       store,
		calc:        calc,
		invalidator: invalidator,
		now:         time.Now,
		newID:       ids.NewAt,
	}
}

// WithClock replaces the clock used for ids, default dates and timestamps.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// SetInvalidator replaces the invalidator. Used when the statistics service
// is constructed after the ledger.
func (l *Ledger) SetInvalidator(invalidator Invalidator) {
	if invalidator == nil {
		invalidator = nopInvalidator{}
	}
	l.invalidator = invalidator
}

// Calculator returns the emissions calculator used for validation.
func (l *Ledger) Calculator() *emissions.Calculator {
	return l.calc
}

// Record validates a submission, computes its emissions and persists it.
//
// Validation happens before any write. After the insert, the owner's
// statistics are invalidated; if that fails the persisted activity is
// returned together with an error wrapping ErrStaleStatistics.
func (l *Ledger) Record(ctx context.Context, in NewActivity) (Activity, error) {
	log := logging.FromContext(ctx).With().
		Str("component", "ledger").
		Str("operation", "Record").
		Logger()

	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return Activity{}, ErrMissingUser
	}
	if in.Value == nil {
		return Activity{}, fmt.Errorf("%w: value is required", emissions.ErrInvalidValue)
	}

	result, err := l.calc.Evaluate(in.ActivityType, *in.Value, in.Unit)
	if err != nil {
		log.Debug().Ctx(ctx).Err(err).Str("activity_type", string(in.ActivityType)).Msg("rejected submission")
		return Activity{}, err
	}

	now := l.now().UTC()
	date := now
	if in.Date != nil && !in.Date.IsZero() {
		date = in.Date.UTC()
	}

	a := Activity{
		ID:           l.newID(now),
		UserID:       userID,
		ActivityType: in.ActivityType,
		Category:     result.Category,
		Value:        *in.Value,
		Unit:         result.Unit,
		EmissionsCO2: result.EmissionsCO2,
		Date:         date,
		Notes:        in.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err = l.invalidator.Invalidate(ctx, userID); err != nil {
		return Activity{}, fmt.Errorf("invalidating statistics before write: %w", err)
	}
	if err = l.store.InsertActivity(ctx, a); err != nil {
		return Activity{}, fmt.Errorf("inserting activity: %w", err)
	}
	if err = l.invalidator.Invalidate(ctx, userID); err != nil {
		log.Error().Ctx(ctx).Err(err).Str("user_id", userID).Msg("statistics invalidation failed")
		return a, fmt.Errorf("%w: %w", ErrStaleStatistics, err)
	}

	log.Info().Ctx(ctx).
		Str("user_id", userID).
		Str("activity_id", a.ID).
		Str("activity_type", string(a.ActivityType)).
		Float64("emissions_co2", a.EmissionsCO2).
		Msg("activity recorded")

	return a, nil
}

// List returns a user's activities ordered by date ascending, optionally
// limited to an inclusive date range. No activities is an empty slice.
func (l *Ledger) List(ctx context.Context, userID string, r *DateRange) ([]Activity, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrMissingUser
	}

	activities, err := l.store.QueryActivities(ctx, Filter{UserID: userID, Range: r})
	if err != nil {
		return nil, fmt.Errorf("querying activities: %w", err)
	}
	if activities == nil {
		activities = []Activity{}
	}
	SortByDate(activities)
	return activities, nil
}

// Get returns one activity by id.
func (l *Ledger) Get(ctx context.Context, id string) (Activity, error) {
	if strings.TrimSpace(id) == "" {
		return Activity{}, ErrNotFound
	}
	found, err := l.store.QueryActivities(ctx, Filter{ID: id})
	if err != nil {
		return Activity{}, fmt.Errorf("querying activity: %w", err)
	}
	if len(found) == 0 {
		return Activity{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return found[0], nil
}

// Delete removes an activity and invalidates its owner's statistics.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	a, err := l.Get(ctx, id)
	if err != nil {
		return err
	}

	if err = l.invalidator.Invalidate(ctx, a.UserID); err != nil {
		return fmt.Errorf("invalidating statistics before delete: %w", err)
	}
	if err = l.store.DeleteActivity(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("deleting activity: %w", err)
	}
	if err = l.invalidator.Invalidate(ctx, a.UserID); err != nil {
		return fmt.Errorf("%w: %w", ErrStaleStatistics, err)
	}

	logging.FromContext(ctx).Info().Ctx(ctx).
		Str("component", "ledger").
		Str("user_id", a.UserID).
		Str("activity_id", id).
		Msg("activity deleted")
	return nil
}

// Annotate replaces the notes of an activity.
func (l *Ledger) Annotate(ctx context.Context, id, notes string) (Activity, error) {
	return l.Update(ctx, id, ActivityPatch{Notes: &notes})
}

// SetVerified sets the verified flag of an activity.
func (l *Ledger) SetVerified(ctx context.Context, id string, verified bool) (Activity, error) {
	return l.Update(ctx, id, ActivityPatch{Verified: &verified})
}

// Update applies every field of patch in one store write. The patch's
// UpdatedAt is replaced by the ledger clock. An empty patch returns
// ErrEmptyPatch.
func (l *Ledger) Update(ctx context.Context, id string, patch ActivityPatch) (Activity, error) {
	if patch.IsEmpty() {
		return Activity{}, ErrEmptyPatch
	}
	current, err := l.Get(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	patch.UpdatedAt = l.now().UTC()

	updated, err := l.store.UpdateActivity(ctx, id, patch)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Activity{}, err
		}
		return Activity{}, fmt.Errorf("updating activity: %w", err)
	}
	if err = l.invalidator.Invalidate(ctx, current.UserID); err != nil {
		return updated, fmt.Errorf("%w: %w", ErrStaleStatistics, err)
	}
	return updated, nil
}

// SortByDate orders activities by date, then id.
func SortByDate(activities []Activity) {
	sort.SliceStable(activities, func(i, j int) bool {
		if !activities[i].Date.Equal(activities[j].Date) {
			return activities[i].Date.Before(activities[j].Date)
		}
		return activities[i].ID < activities[j].ID
	})
}
