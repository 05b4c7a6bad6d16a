package greenops

import (
	"math"
	"strings"
)

// unitFactor returns the multiplier from kilograms to unit.
// Matching ignores case and accepts the CO2e suffix.
func unitFactor(unit string) (float64, bool) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "g", "gco2e":
		return KgToGrams, true
	case "", "kg", "kgco2e":
		return KgToKg, true
	case "t", "tco2e":
		return KgToTons, true
	case "lb", "lbco2e":
		return KgToPounds, true
	default:
		return 0, false
	}
}

// ConvertKg expresses kg in unit (g, kg, t, lb, optionally suffixed with
// CO2e). Negative amounts are allowed: totals can be net offsets.
func ConvertKg(kg float64, unit string) (float64, error) {
	if math.IsNaN(kg) || math.IsInf(kg, 0) {
		return 0, ErrCalculationOverflow
	}
	factor, ok := unitFactor(unit)
	if !ok {
		return 0, ErrInvalidUnit
	}
	return kg * factor, nil
}

// IsRecognizedUnit reports whether ConvertKg accepts unit.
func IsRecognizedUnit(unit string) bool {
	_, ok := unitFactor(unit)
	return ok
}
