package advisor

import (
	"fmt"

	"github.com/rshade/ecolife/internal/emissions"
	"github.com/rshade/ecolife/internal/goals"
	"github.com/rshade/ecolife/internal/greenops"
	"github.com/rshade/ecolife/internal/stats"
)

const daysPerMonth = 30

// DefaultCategoryShare is each category's default fraction of the monthly goal.
const DefaultCategoryShare = 0.25

// Shares maps a category to its fraction of the monthly goal.
type Shares map[emissions.Category]float64

// DefaultShares splits the monthly goal evenly across the four categories.
func DefaultShares() Shares {
	s := Shares{}
	for _, c := range emissions.Categories() {
		s[c] = DefaultCategoryShare
	}
	return s
}

// Of returns the share of c, falling back to DefaultCategoryShare for a
// missing or non-positive entry.
func (s Shares) Of(c emissions.Category) float64 {
	if v, ok := s[c]; ok && v > 0 {
		return v
	}
	return DefaultCategoryShare
}

// Draft is an insight the advisor wants to raise for one category.
type Draft struct {
	Category         emissions.Category
	Priority         Priority
	MonthlyEmissions float64
	MonthlyBudget    float64
	OverageRatio     float64
	SavingsPotential float64
}

// DraftInsights returns one draft per category whose projected monthly
// emissions exceed its share of the monthly goal, in category order. Pure.
//
// Projected monthly emissions are the category total per active day, times 30.
func DraftInsights(st stats.Statistics, g goals.Goals, shares Shares) []Draft {
	if st.ActiveDays == 0 {
		return nil
	}
	var drafts []Draft
	for _, c := range emissions.Categories() {
		monthly := st.EmissionsByCategory[c] / float64(st.ActiveDays) * daysPerMonth
		budget := g.MonthlyGoal * shares.Of(c)
		if budget <= 0 || monthly <= budget {
			continue
		}
		r := (monthly - budget) / budget
		drafts = append(drafts, Draft{
			Category:         c,
			Priority:         PriorityFor(r),
			MonthlyEmissions: monthly,
			MonthlyBudget:    budget,
			OverageRatio:     r,
			SavingsPotential: monthly - budget,
		})
	}
	return drafts
}

type insightCopy struct {
	title  string
	action string
	impact string
}

var insightText = map[emissions.Category]insightCopy{
	emissions.CategoryTransportation: {
		title:  "Rethink how you get around",
		action: "Swap short car trips for cycling or public transport and group errands into one journey.",
		impact: "Public transport emits about a quarter of a petrol car per km; a bike emits nothing.",
	},
	emissions.CategoryEnergy: {
		title:  "Trim your home energy use",
		action: "Lower the thermostat by a degree, switch off standby devices and run full loads only.",
		impact: "Each kWh saved avoids about 0.29 kg CO2e from the grid.",
	},
	emissions.CategoryConsumption: {
		title:  "Eat and shop lighter",
		action: "Replace a few meat meals a week with plant-based ones and buy fewer new items.",
		impact: "A kilogram of meat carries about 54 times the emissions of a kilogram of vegetables.",
	},
	emissions.CategoryWaste: {
		title:  "Cut down on landfill waste",
		action: "Recycle and compost more of what you throw away.",
		impact: "Recycling offsets about 0.2 kg CO2e per kg instead of adding 0.5 kg in landfill.",
	},
}

// render fills the user-facing text of an insight from d.
func (d Draft) render(in Insight) Insight {
	text := insightText[d.Category]
	in.Title = text.title
	in.Description = fmt.Sprintf(
		"Your %s emissions are on track for %s this month, %s over your %s budget. %s",
		d.Category,
		greenops.FormatKg(d.MonthlyEmissions),
		greenops.FormatKg(d.SavingsPotential),
		greenops.FormatKg(d.MonthlyBudget),
		text.action,
	)
	in.Impact = text.impact
	in.Category = d.Category
	in.Priority = d.Priority
	in.SavingsPotential = d.SavingsPotential
	return in
}
