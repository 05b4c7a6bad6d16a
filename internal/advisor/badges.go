package advisor

import (
	"math"
	"time"

	"github.com/rshade/ecolife/internal/emissions"
	"github.com/rshade/ecolife/internal/goals"
	"github.com/rshade/ecolife/internal/ledger"
	"github.com/rshade/ecolife/internal/stats"
)

// BadgeID identifies one of the fixed achievements.
type BadgeID string

// The badge catalog.
const (
	BadgeFirstStep     BadgeID = "first-step"
	BadgeWeekLogger    BadgeID = "week-logger"
	BadgeDailyLegend   BadgeID = "daily-legend"
	BadgeGreenMonth    BadgeID = "green-month"
	BadgeZeroWaste     BadgeID = "zero-waste"
	BadgeRecyclingHero BadgeID = "recycling-hero"
	BadgeGreenCommuter BadgeID = "green-commuter"
	BadgePlantPowered  BadgeID = "plant-powered"
	BadgeUnderBudget   BadgeID = "under-budget"
	BadgeCenturyClub   BadgeID = "century-club"
)

// Unlock thresholds.
const (
	weekLoggerDays      = 7
	dailyLegendStreak   = 7
	greenMonthStreak    = 30
	recyclingHeroKg     = 50.0
	greenCommuterTrips  = 10
	plantPoweredEntries = 10
	underBudgetDays     = 30
	centuryClubEntries  = 100
)

// Badge describes one achievement and how far a user is towards it.
type Badge struct {
	ID          BadgeID `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`

	// progress returns 0..100; 100 unlocks the badge.
	progress func(in badgeInput) int
}

type badgeInput struct {
	stats stats.Statistics
	goals goals.Goals
	facts Facts
}

// Facts are ledger figures that Statistics do not carry.
type Facts struct {
	// LowCarbonTrips counts bike, public transport and electric car entries.
	LowCarbonTrips int
	// VegetableEntries counts vegetables entries.
	VegetableEntries int
	// RecycledKg sums the quantity of recycling entries.
	RecycledKg float64
	// MonthWasteKg sums waste-category emissions in the current UTC month.
	MonthWasteKg float64
	// MonthWasteEntries counts waste-category entries in the current UTC month.
	MonthWasteEntries int
}

// NewFacts derives Facts from a user's activities, taking the month of now
// as the current month.
func NewFacts(activities []ledger.Activity, now time.Time) Facts {
	var f Facts
	y, m, _ := now.UTC().Date()
	for _, a := range activities {
		switch a.ActivityType {
		case emissions.ActivityBike, emissions.ActivityPublicTransport, emissions.ActivityCarElectric:
			f.LowCarbonTrips++
		case emissions.ActivityVegetables:
			f.VegetableEntries++
		case emissions.ActivityRecycling:
			f.RecycledKg += a.Value
		}
		if a.Category == emissions.CategoryWaste {
			ay, am, _ := a.Date.UTC().Date()
			if ay == y && am == m {
				f.MonthWasteKg += a.EmissionsCO2
				f.MonthWasteEntries++
			}
		}
	}
	return f
}

// ratio converts have/need into 0..100 progress.
func ratio(have, need float64) int {
	if need <= 0 || have <= 0 {
		return 0
	}
	if have >= need {
		return 100
	}
	return int(math.Floor(have / need * 100))
}

func flag(ok bool) int {
	if ok {
		return 100
	}
	return 0
}

var catalog = []Badge{
	{
		ID:          BadgeFirstStep,
		Name:        "First Step",
		Description: "Log your first activity",
		Icon:        "👣",
		progress:    func(in badgeInput) int { return flag(in.stats.ActivityCount > 0) },
	},
	{
		ID:          BadgeWeekLogger,
		Name:        "Week Logger",
		Description: "Log activities on 7 different days",
		Icon:        "📅",
		progress:    func(in badgeInput) int { return ratio(float64(in.stats.ActiveDays), weekLoggerDays) },
	},
	{
		ID:          BadgeDailyLegend,
		Name:        "Daily Legend",
		Description: "Stay under your daily goal 7 days in a row",
		Icon:        "🔥",
		progress: func(in badgeInput) int {
			return ratio(float64(in.stats.LongestGreenStreak), dailyLegendStreak)
		},
	},
	{
		ID:          BadgeGreenMonth,
		Name:        "Green Month",
		Description: "Stay under your daily goal 30 days in a row",
		Icon:        "🌿",
		progress: func(in badgeInput) int {
			return ratio(float64(in.stats.LongestGreenStreak), greenMonthStreak)
		},
	},
	{
		ID:          BadgeZeroWaste,
		Name:        "Zero Waste",
		Description: "Offset all of this month's waste emissions",
		Icon:        "♻️",
		progress: func(in badgeInput) int {
			return flag(in.facts.MonthWasteEntries > 0 && in.facts.MonthWasteKg <= 0)
		},
	},
	{
		ID:          BadgeRecyclingHero,
		Name:        "Recycling Hero",
		Description: "Recycle 50 kg of material",
		Icon:        "🦸",
		progress:    func(in badgeInput) int { return ratio(in.facts.RecycledKg, recyclingHeroKg) },
	},
	{
		ID:          BadgeGreenCommuter,
		Name:        "Green Commuter",
		Description: "Log 10 trips by bike, public transport or electric car",
		Icon:        "🚲",
		progress: func(in badgeInput) int {
			return ratio(float64(in.facts.LowCarbonTrips), greenCommuterTrips)
		},
	},
	{
		ID:          BadgePlantPowered,
		Name:        "Plant Powered",
		Description: "Log 10 plant-based meals",
		Icon:        "🥦",
		progress: func(in badgeInput) int {
			return ratio(float64(in.facts.VegetableEntries), plantPoweredEntries)
		},
	},
	{
		ID:          BadgeUnderBudget,
		Name:        "Under Budget",
		Description: "Keep your monthly average under your monthly goal across 30 active days",
		Icon:        "💰",
		progress: func(in badgeInput) int {
			if in.stats.ActiveDays == 0 || in.stats.AverageMonthly >= in.goals.MonthlyGoal {
				return 0
			}
			return ratio(float64(in.stats.ActiveDays), underBudgetDays)
		},
	},
	{
		ID:          BadgeCenturyClub,
		Name:        "Century Club",
		Description: "Log 100 activities",
		Icon:        "💯",
		progress: func(in badgeInput) int {
			return ratio(float64(in.stats.ActivityCount), centuryClubEntries)
		},
	},
}

// Catalog returns the badges in display order.
func Catalog() []Badge {
	out := make([]Badge, len(catalog))
	copy(out, catalog)
	return out
}

// LookupBadge returns the badge with id.
func LookupBadge(id BadgeID) (Badge, bool) {
	for _, b := range catalog {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

// BadgeProgress is the computed progress of one badge.
type BadgeProgress struct {
	ID       BadgeID
	Progress int
}

// Unlocks reports whether the progress reaches the unlock condition.
func (p BadgeProgress) Unlocks() bool {
	return p.Progress >= 100
}

// EvaluateBadges computes progress for every badge. Pure.
func EvaluateBadges(st stats.Statistics, g goals.Goals, f Facts) []BadgeProgress {
	in := badgeInput{stats: st, goals: g, facts: f}
	out := make([]BadgeProgress, 0, len(catalog))
	for _, b := range catalog {
		out = append(out, BadgeProgress{ID: b.ID, Progress: b.progress(in)})
	}
	return out
}

// newAchievement returns the locked record of badge b for userID.
func newAchievement(userID string, b Badge) Achievement {
	return Achievement{
		UserID:        userID,
		AchievementID: b.ID,
		Name:          b.Name,
		Description:   b.Description,
		Icon:          b.Icon,
	}
}
