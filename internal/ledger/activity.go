// Package ledger stores the emission-producing activities logged by each user.
//
// The ledger validates every submission through the emissions calculator
// before anything is written, and tells the statistics layer to drop its
// cached projection after every write.
package ledger

import (
	"errors"
	"time"

	"github.com/rshade/ecolife/internal/emissions"
)

// ErrNotFound indicates that no activity exists with the requested id.
var ErrNotFound = errors.New("activity not found")

// ErrMissingUser indicates a submission or query without a user id.
var ErrMissingUser = errors.New("user id is required")

// ErrEmptyPatch is returned by Update when a patch changes nothing.
var ErrEmptyPatch = errors.New("activity patch changes nothing")

// Activity is one logged emission event.
type Activity struct {
	ID           string                 `json:"id"           bson:"_id"`
	UserID       string                 `json:"userId"       bson:"userId"`
	ActivityType emissions.ActivityType `json:"activityType" bson:"activityType"`
	Category     emissions.Category     `json:"category"     bson:"category"`
	Value        float64                `json:"value"        bson:"value"`
	Unit         emissions.Unit         `json:"unit"         bson:"unit"`
	EmissionsCO2 float64                `json:"emissionsCO2" bson:"emissionsCO2"`
	Date         time.Time              `json:"date"         bson:"date"`
	Notes        string                 `json:"notes"        bson:"notes"`
	Verified     bool                   `json:"verified"     bson:"verified"`
	CreatedAt    time.Time              `json:"createdAt"    bson:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"    bson:"updatedAt"`
}

// Day returns the UTC calendar day of the activity.
func (a Activity) Day() time.Time {
	return TruncateDay(a.Date)
}

// NewActivity is a submission to the ledger.
type NewActivity struct {
	UserID       string                 `json:"userId"`
	ActivityType emissions.ActivityType `json:"activityType"`
	// Value is required; a nil pointer is rejected as an invalid value.
	Value *float64       `json:"value"`
	Unit  emissions.Unit `json:"unit,omitempty"`
	// Date defaults to the time of recording.
	Date  *time.Time `json:"date,omitempty"`
	Notes string     `json:"notes,omitempty"`
}

// ActivityPatch lists the mutable fields of an activity.
type ActivityPatch struct {
	Notes     *string
	Verified  *bool
	UpdatedAt time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p ActivityPatch) IsEmpty() bool {
	return p.Notes == nil && p.Verified == nil
}

// Apply returns a copy of a with the patch applied.
func (p ActivityPatch) Apply(a Activity) Activity {
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
	if p.Verified != nil {
		a.Verified = *p.Verified
	}
	if !p.UpdatedAt.IsZero() {
		a.UpdatedAt = p.UpdatedAt
	}
	return a
}

// DateRange is an inclusive interval on Activity.Date. A zero bound is open.
type DateRange struct {
	From time.Time `json:"from,omitempty"`
	To   time.Time `json:"to,omitempty"`
}

// DayRange returns the range covering whole UTC days from..to inclusive.
// Zero arguments stay open.
func DayRange(from, to time.Time) DateRange {
	r := DateRange{}
	if !from.IsZero() {
		r.From = TruncateDay(from)
	}
	if !to.IsZero() {
		r.To = TruncateDay(to).Add(24*time.Hour - time.Nanosecond)
	}
	return r
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// Filter selects activities from a Store.
type Filter struct {
	// ID selects a single activity when set.
	ID string
	// UserID restricts the result to one owner.
	UserID string
	// Range restricts the result to an inclusive date range.
	Range *DateRange
}

// Matches reports whether a satisfies the filter.
func (f Filter) Matches(a Activity) bool {
	if f.ID != "" && a.ID != f.ID {
		return false
	}
	if f.UserID != "" && a.UserID != f.UserID {
		return false
	}
	if f.Range != nil && !f.Range.Contains(a.Date) {
		return false
	}
	return true
}

// TruncateDay returns midnight UTC of the day containing t.
func TruncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
