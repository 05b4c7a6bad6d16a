package greenops

// Offset and equivalency factors.
//
// Equivalencies divide a kg CO2e amount by the factor:
//
//	equivalency = kg_CO2e / factor
const (
	// DefaultTreeAbsorptionKgPerYear is the CO2 a mature tree absorbs in a year.
	// treesNeededToOffset = max(0, total) / absorption.
	DefaultTreeAbsorptionKgPerYear = 21.0

	// EPAMilesDrivenFactor is kg CO2e per mile for an average passenger vehicle.
	EPAMilesDrivenFactor = 0.192

	// EPASmartphoneChargeFactor is kg CO2e per smartphone charge.
	EPASmartphoneChargeFactor = 0.00822

	// EPAHomeDayFactor is kg CO2e per day of average US home electricity.
	EPAHomeDayFactor = 18.3
)

// Reference per-capita averages in kg CO2e per day, used for
// comparisonToAverage. Roughly 4.7 t/year worldwide and 16 t/year in the US.
const (
	DefaultGlobalDailyAverageKg   = 12.9
	DefaultNationalDailyAverageKg = 44.0
)

// Unit conversion factors from kilograms.
const (
	KgToGrams  = 1000.0
	KgToKg     = 1.0
	KgToTons   = 0.001
	KgToPounds = 2.20462
)

// Display thresholds.
const (
	// MinEquivalencyThresholdKg is the smallest amount for which equivalencies are shown.
	MinEquivalencyThresholdKg = 1.0

	// TonDisplayThresholdKg switches FormatKg to tonnes.
	TonDisplayThresholdKg = 10_000

	// LargeNumberThreshold switches to "~X.X million" display.
	LargeNumberThreshold = 1_000_000

	// BillionThreshold switches to "~X.X billion" display.
	BillionThreshold = 1_000_000_000
)
