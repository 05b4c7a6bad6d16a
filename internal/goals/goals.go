// Package goals holds each user's emission goals.
//
// Goals are created lazily with defaults on first access, so a missing
// record is never surfaced to callers.
package goals

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Default thresholds in kg CO2e and the default reduction target in percent.
const (
	DefaultDailyGoal       = 5.0
	DefaultWeeklyGoal      = 35.0
	DefaultMonthlyGoal     = 150.0
	DefaultYearlyGoal      = 1800.0
	DefaultReductionTarget = 20.0

	MinReductionTarget = 0.0
	MaxReductionTarget = 100.0
)

// Errors returned by the goals package.
var (
	// ErrGoalsMissing is returned by stores when a user has no goals yet.
	// The service resolves it by creating defaults.
	ErrGoalsMissing = errors.New("goals not found")

	// ErrInvalidGoals indicates a goal value outside its allowed range.
	ErrInvalidGoals = errors.New("invalid goals")
)

// Goals is the per-user goal record. UserID is unique.
type Goals struct {
	UserID          string    `json:"userId"          bson:"_id"             yaml:"-"`
	DailyGoal       float64   `json:"dailyGoal"       bson:"dailyGoal"       yaml:"daily"`
	WeeklyGoal      float64   `json:"weeklyGoal"      bson:"weeklyGoal"      yaml:"weekly"`
	MonthlyGoal     float64   `json:"monthlyGoal"     bson:"monthlyGoal"     yaml:"monthly"`
	YearlyGoal      float64   `json:"yearlyGoal"      bson:"yearlyGoal"      yaml:"yearly"`
	ReductionTarget float64   `json:"reductionTarget" bson:"reductionTarget" yaml:"reduction_target"`
	CreatedAt       time.Time `json:"createdAt"       bson:"createdAt"       yaml:"-"`
	UpdatedAt       time.Time `json:"updatedAt"       bson:"updatedAt"       yaml:"-"`
}

// Defaults returns a goal template with the standard thresholds.
func Defaults() Goals {
	return Goals{
		DailyGoal:       DefaultDailyGoal,
		WeeklyGoal:      DefaultWeeklyGoal,
		MonthlyGoal:     DefaultMonthlyGoal,
		YearlyGoal:      DefaultYearlyGoal,
		ReductionTarget: DefaultReductionTarget,
	}
}

// Validate checks that every goal is a positive finite number and the
// reduction target lies in 0..100.
func (g Goals) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"dailyGoal", g.DailyGoal},
		{"weeklyGoal", g.WeeklyGoal},
		{"monthlyGoal", g.MonthlyGoal},
		{"yearlyGoal", g.YearlyGoal},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) || c.value <= 0 {
			return fmt.Errorf("%w: %s must be greater than 0, got %g", ErrInvalidGoals, c.name, c.value)
		}
	}
	if math.IsNaN(g.ReductionTarget) ||
		g.ReductionTarget < MinReductionTarget || g.ReductionTarget > MaxReductionTarget {
		return fmt.Errorf("%w: reductionTarget must be between 0 and 100, got %g",
			ErrInvalidGoals, g.ReductionTarget)
	}
	return nil
}

// Update is a partial change to a user's goals.
type Update struct {
	DailyGoal       *float64 `json:"dailyGoal,omitempty"`
	WeeklyGoal      *float64 `json:"weeklyGoal,omitempty"`
	MonthlyGoal     *float64 `json:"monthlyGoal,omitempty"`
	YearlyGoal      *float64 `json:"yearlyGoal,omitempty"`
	ReductionTarget *float64 `json:"reductionTarget,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return u.DailyGoal == nil && u.WeeklyGoal == nil && u.MonthlyGoal == nil &&
		u.YearlyGoal == nil && u.ReductionTarget == nil
}

// Apply returns a copy of g with the update applied.
func (u Update) Apply(g Goals) Goals {
	if u.DailyGoal != nil {
		g.DailyGoal = *u.DailyGoal
	}
	if u.WeeklyGoal != nil {
		g.WeeklyGoal = *u.WeeklyGoal
	}
	if u.MonthlyGoal != nil {
		g.MonthlyGoal = *u.MonthlyGoal
	}
	if u.YearlyGoal != nil {
		g.YearlyGoal = *u.YearlyGoal
	}
	if u.ReductionTarget != nil {
		g.ReductionTarget = *u.ReductionTarget
	}
	return g
}
