package greenops

import (
	"fmt"
	"math"
)

// TreesToOffset returns how many trees absorb kg CO2e in one year.
// Net-negative amounts need no trees.
func TreesToOffset(kg, absorptionPerTreeKg float64) (float64, error) {
	if math.IsNaN(kg) || math.IsInf(kg, 0) {
		return 0, ErrCalculationOverflow
	}
	if math.IsNaN(absorptionPerTreeKg) || math.IsInf(absorptionPerTreeKg, 0) || absorptionPerTreeKg <= 0 {
		return 0, fmt.Errorf("%w: tree absorption %g", ErrInvalidFactor, absorptionPerTreeKg)
	}
	return math.Max(0, kg) / absorptionPerTreeKg, nil
}

// PercentDelta returns (value - reference) / reference x 100.
// A non-positive reference yields 0.
func PercentDelta(value, reference float64) float64 {
	if reference <= 0 || math.IsNaN(reference) || math.IsNaN(value) {
		return 0
	}
	return (value - reference) / reference * 100
}

// Calculate converts kg CO2e into trees, miles driven and smartphone charges.
//
// Amounts below MinEquivalencyThresholdKg (including net-negative totals)
// return an empty output with InputKg set.
func Calculate(kg float64, opts Options) (EquivalencyOutput, error) {
	if math.IsNaN(kg) || math.IsInf(kg, 0) {
		return EquivalencyOutput{IsEmpty: true}, ErrCalculationOverflow
	}
	if kg < MinEquivalencyThresholdKg {
		return EquivalencyOutput{InputKg: kg, IsEmpty: true}, nil
	}

	trees, err := TreesToOffset(kg, opts.absorption())
	if err != nil {
		return EquivalencyOutput{IsEmpty: true}, err
	}
	miles := kg / EPAMilesDrivenFactor
	phones := kg / EPASmartphoneChargeFactor

	if math.IsInf(miles, 0) || math.IsInf(phones, 0) {
		return EquivalencyOutput{IsEmpty: true}, ErrCalculationOverflow
	}

	results := []EquivalencyResult{
		{Type: EquivalencyTrees, Value: trees, FormattedValue: FormatFloat(trees, 1), Label: "trees for a year"},
		{Type: EquivalencyMilesDriven, Value: miles, FormattedValue: formatEquivalencyValue(miles), Label: "miles driven"},
		{
			Type:           EquivalencySmartphonesCharged,
			Value:          phones,
			FormattedValue: formatEquivalencyValue(phones),
			Label:          "smartphones charged",
		},
	}

	return EquivalencyOutput{
		InputKg: kg,
		Results: results,
		DisplayText: fmt.Sprintf("Equivalent to driving ~%s miles or charging ~%s smartphones; "+
			"offsetting it takes ~%s trees for a year",
			results[1].FormattedValue, results[2].FormattedValue, results[0].FormattedValue),
	}, nil
}

// formatEquivalencyValue rounds to an integer with separators, switching to
// abbreviated notation for millions and above.
func formatEquivalencyValue(v float64) string {
	if v >= LargeNumberThreshold {
		return FormatLarge(v)
	}
	return FormatNumber(int64(math.Round(v)))
}
