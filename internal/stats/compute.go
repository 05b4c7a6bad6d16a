package stats

import (
	"sort"
	"time"

	"github.com/rshade/ecolife/internal/greenops"
	"github.com/rshade/ecolife/internal/ledger"
)

const (
	daysPerWeek  = 7
	daysPerMonth = 30
)

// Compute derives statistics from a user's complete activity list.
//
// Averages are taken over active days (distinct UTC dates with at least one
// activity), so idle days do not dilute them. A day is green when its sum is
// strictly below dailyGoal; a day without activity breaks a streak.
func Compute(userID string, activities []ledger.Activity, dailyGoal float64, p Params, now time.Time) Statistics {
	s := Empty(userID, now)
	if len(activities) == 0 {
		return s
	}
	p = p.withDefaults()

	for _, a := range activities {
		s.TotalEmissions += a.EmissionsCO2
		s.EmissionsByCategory[a.Category] += a.EmissionsCO2
	}
	s.ActivityCount = len(activities)

	days := DailyTotals(activities)
	s.ActiveDays = len(days)
	s.AverageDaily = s.TotalEmissions / float64(s.ActiveDays)
	s.AverageWeekly = s.AverageDaily * daysPerWeek
	s.AverageMonthly = s.AverageDaily * daysPerMonth

	best, worst := days[0], days[0]
	for _, d := range days[1:] {
		if d.Emissions < best.Emissions {
			best = d
		}
		if d.Emissions > worst.Emissions {
			worst = d
		}
	}
	s.BestDay, s.WorstDay = &best, &worst

	s.LongestGreenStreak, s.CurrentGreenStreak = GreenStreaks(days, dailyGoal)

	// Absorption was defaulted above, so the error branch is unreachable.
	s.TreesNeededToOffset, _ = greenops.TreesToOffset(s.TotalEmissions, p.TreeAbsorptionKgPerYear)

	s.ComparisonToAverage = Comparison{
		Global:   greenops.PercentDelta(s.AverageDaily, p.GlobalDailyAverageKg),
		National: greenops.PercentDelta(s.AverageDaily, p.NationalDailyAverageKg),
	}
	return s
}

// DailyTotals sums activities per UTC calendar day, ascending by date.
// Days without activities are omitted.
func DailyTotals(activities []ledger.Activity) []DayTotal {
	byDay := make(map[time.Time]float64)
	for _, a := range activities {
		byDay[a.Day()] += a.EmissionsCO2
	}
	days := make([]DayTotal, 0, len(byDay))
	for d, kg := range byDay {
		days = append(days, DayTotal{Date: d, Emissions: kg})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days
}

// GreenStreaks returns the longest run of consecutive green days and the
// run ending on the last day in days. days must be ascending.
func GreenStreaks(days []DayTotal, dailyGoal float64) (longest, current int) {
	run := 0
	var prev time.Time
	for i, d := range days {
		consecutive := i > 0 && d.Date.Equal(prev.AddDate(0, 0, 1))
		switch {
		case d.Emissions >= dailyGoal:
			run = 0
		case consecutive:
			run++
		default:
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = d.Date
	}
	return longest, run
}
