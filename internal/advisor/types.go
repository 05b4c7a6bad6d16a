// Package advisor compares a user's statistics with their goals and turns
// the result into insights and achievement progress.
package advisor

import (
	"errors"
	"time"

	"github.com/rshade/ecolife/internal/emissions"
)

// ErrInsightNotFound indicates that no insight exists with the requested id.
var ErrInsightNotFound = errors.New("insight not found")

// Priority ranks an insight by how far its category is over budget.
type Priority string

// Priorities, highest first.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Overage ratios above which an insight is raised to a higher priority.
const (
	HighOverageRatio   = 0.5
	MediumOverageRatio = 0.2
)

// PriorityFor maps an overage ratio ((monthly - share) / share) to a priority.
func PriorityFor(ratio float64) Priority {
	switch {
	case ratio > HighOverageRatio:
		return PriorityHigh
	case ratio > MediumOverageRatio:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Insight is a recommendation tied to one category's overage.
type Insight struct {
	ID               string             `json:"id"               bson:"_id"`
	UserID           string             `json:"userId"           bson:"userId"`
	Title            string             `json:"title"            bson:"title"`
	Description      string             `json:"description"      bson:"description"`
	Impact           string             `json:"impact"           bson:"impact"`
	Category         emissions.Category `json:"category"         bson:"category"`
	Priority         Priority           `json:"priority"         bson:"priority"`
	Adopted          bool               `json:"adopted"          bson:"adopted"`
	AdoptedDate      *time.Time         `json:"adoptedDate"      bson:"adoptedDate,omitempty"`
	SavingsPotential float64            `json:"savingsPotential" bson:"savingsPotential"`
	CreatedAt        time.Time          `json:"createdAt"        bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"        bson:"updatedAt"`
}

// Achievement is a user's state for one badge. Once UnlockedDate is set
// the record never changes again.
type Achievement struct {
	UserID        string     `json:"userId"        bson:"userId"`
	AchievementID BadgeID    `json:"achievementId" bson:"achievementId"`
	Name          string     `json:"name"          bson:"name"`
	Description   string     `json:"description"   bson:"description"`
	Icon          string     `json:"icon"          bson:"icon"`
	UnlockedDate  *time.Time `json:"unlockedDate"  bson:"unlockedDate,omitempty"`
	Progress      int        `json:"progress"      bson:"progress"`
	UpdatedAt     time.Time  `json:"updatedAt"     bson:"updatedAt"`
}

// Unlocked reports whether the badge has been earned.
func (a Achievement) Unlocked() bool {
	return a.UnlockedDate != nil
}

// Evaluation is the outcome of one advisor run.
type Evaluation struct {
	UserID string `json:"userId"`
	// Insights created or refreshed by this run.
	Insights []Insight `json:"insights"`
	// Achievements lists every badge with its current state.
	Achievements []Achievement `json:"achievements"`
	// NewlyUnlocked lists badges unlocked by this run.
	NewlyUnlocked []BadgeID `json:"newlyUnlocked"`
	EvaluatedAt   time.Time `json:"evaluatedAt"`
}
