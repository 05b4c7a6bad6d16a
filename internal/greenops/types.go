// Package greenops turns kilograms of CO2e into relatable figures: trees
// needed to absorb them, miles driven, phones charged, and the gap to
// reference per-capita averages.
package greenops

import "fmt"

// EquivalencyType is a kind of real-world equivalency.
type EquivalencyType int

const (
	// EquivalencyTrees is the number of trees absorbing the amount over a year.
	EquivalencyTrees EquivalencyType = iota

	// EquivalencyMilesDriven is miles driven in an average passenger vehicle.
	EquivalencyMilesDriven

	// EquivalencySmartphonesCharged is full smartphone charges.
	EquivalencySmartphonesCharged

	// EquivalencyHomeDays is days of average home electricity use.
	EquivalencyHomeDays
)

// String returns the name of the equivalency type.
func (e EquivalencyType) String() string {
	switch e {
	case EquivalencyTrees:
		return "Trees"
	case EquivalencyMilesDriven:
		return "MilesDriven"
	case EquivalencySmartphonesCharged:
		return "SmartphonesCharged"
	case EquivalencyHomeDays:
		return "HomeDays"
	default:
		return fmt.Sprintf("EquivalencyType(%d)", e)
	}
}

// EquivalencyResult is one calculated equivalency.
type EquivalencyResult struct {
	Type           EquivalencyType `json:"type"`
	Value          float64         `json:"value"`
	FormattedValue string          `json:"formattedValue"`
	Label          string          `json:"label"`
}

// EquivalencyOutput holds all equivalencies for one amount.
type EquivalencyOutput struct {
	InputKg     float64             `json:"inputKg"`
	Results     []EquivalencyResult `json:"results"`
	DisplayText string              `json:"displayText"`
	IsEmpty     bool                `json:"isEmpty"`
}

// Options tunes Calculate.
type Options struct {
	// TreeAbsorptionKgPerYear overrides DefaultTreeAbsorptionKgPerYear when > 0.
	TreeAbsorptionKgPerYear float64
}

func (o Options) absorption() float64 {
	if o.TreeAbsorptionKgPerYear > 0 {
		return o.TreeAbsorptionKgPerYear
	}
	return DefaultTreeAbsorptionKgPerYear
}
