// Package stats derives per-user statistics from the activity ledger.
//
// Statistics are a projection: they are always rebuilt from scratch by
// replaying every activity, never patched incrementally.
package stats

import (
	"time"

	"github.com/rshade/ecolife/internal/emissions"
	"github.com/rshade/ecolife/internal/greenops"
)

// DayTotal is the summed emissions of one UTC calendar day.
type DayTotal struct {
	Date      time.Time `json:"date"`
	Emissions float64   `json:"emissions"`
}

// Comparison holds percentage deltas of the user's daily average against
// reference per-capita daily averages. Positive means above the reference.
// The deltas are derived from Statistics.AverageDaily, not TotalEmissions,
// so they do not grow with the length of the ledger.
type Comparison struct {
	Global   float64 `json:"global"`
	National float64 `json:"national"`
}

// Statistics is the derived record for one user.
type Statistics struct {
	UserID              string                         `json:"userId"`
	TotalEmissions      float64                        `json:"totalEmissions"`
	AverageDaily        float64                        `json:"averageDaily"`
	AverageWeekly       float64                        `json:"averageWeekly"`
	AverageMonthly      float64                        `json:"averageMonthly"`
	EmissionsByCategory map[emissions.Category]float64 `json:"emissionsByCategory"`
	BestDay             *DayTotal                      `json:"bestDay"`
	WorstDay            *DayTotal                      `json:"worstDay"`
	LongestGreenStreak  int                            `json:"longestGreenStreak"`
	CurrentGreenStreak  int                            `json:"currentGreenStreak"`
	ActiveDays          int                            `json:"activeDays"`
	ActivityCount       int                            `json:"activityCount"`
	TreesNeededToOffset float64                        `json:"treesNeededToOffset"`
	ComparisonToAverage Comparison                     `json:"comparisonToAverage"`
	LastUpdated         time.Time                      `json:"lastUpdated"`
}

// CategoryEmissions returns the bucket for c, 0 when absent.
func (s Statistics) CategoryEmissions(c emissions.Category) float64 {
	return s.EmissionsByCategory[c]
}

// Params are the reference constants used by Compute.
type Params struct {
	TreeAbsorptionKgPerYear float64 `json:"treeAbsorptionKgPerYear" yaml:"tree_absorption_kg_per_year"`
	GlobalDailyAverageKg    float64 `json:"globalDailyAverageKg"    yaml:"global_daily_average_kg"`
	NationalDailyAverageKg  float64 `json:"nationalDailyAverageKg"  yaml:"national_daily_average_kg"`
}

// DefaultParams returns the standard reference constants.
func DefaultParams() Params {
	return Params{
		TreeAbsorptionKgPerYear: greenops.DefaultTreeAbsorptionKgPerYear,
		GlobalDailyAverageKg:    greenops.DefaultGlobalDailyAverageKg,
		NationalDailyAverageKg:  greenops.DefaultNationalDailyAverageKg,
	}
}

// withDefaults fills non-positive fields from DefaultParams.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.TreeAbsorptionKgPerYear <= 0 {
		p.TreeAbsorptionKgPerYear = d.TreeAbsorptionKgPerYear
	}
	if p.GlobalDailyAverageKg <= 0 {
		p.GlobalDailyAverageKg = d.GlobalDailyAverageKg
	}
	if p.NationalDailyAverageKg <= 0 {
		p.NationalDailyAverageKg = d.NationalDailyAverageKg
	}
	return p
}

// Empty returns the zeroed statistics of a user with no activities.
func Empty(userID string, now time.Time) Statistics {
	return Statistics{
		UserID:              userID,
		EmissionsByCategory: zeroBuckets(),
		LastUpdated:         now.UTC(),
	}
}

func zeroBuckets() map[emissions.Category]float64 {
	buckets := make(map[emissions.Category]float64, len(emissions.Categories()))
	for _, c := range emissions.Categories() {
		buckets[c] = 0
	}
	return buckets
}
