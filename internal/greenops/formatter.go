package greenops

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer formats numbers with English thousand separators.
//
//nolint:gochecknoglobals // Global printer is idiomatic for x/text/message usage.
var printer = message.NewPrinter(language.English)

// FormatNumber formats an integer with thousand separators: 18248 -> "18,248".
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatFloat formats f with precision decimals and thousand separators:
// FormatFloat(1234.567, 2) -> "1,234.57".
func FormatFloat(f float64, precision int) string {
	if precision <= 0 {
		return FormatNumber(int64(math.Round(f)))
	}
	return printer.Sprintf("%.*f", precision, f)
}

// FormatLarge abbreviates millions and billions: 1.5e9 -> "~1.5 billion".
func FormatLarge(n float64) string {
	switch {
	case math.Abs(n) >= BillionThreshold:
		return fmt.Sprintf("~%.1f billion", n/BillionThreshold)
	case math.Abs(n) >= LargeNumberThreshold:
		return fmt.Sprintf("~%.1f million", n/LargeNumberThreshold)
	default:
		return FormatNumber(int64(math.Round(n)))
	}
}

// FormatKg renders a kg CO2e amount for people, switching to tonnes for
// large magnitudes: 2.1 -> "2.10 kg", -1 -> "-1.00 kg", 12500 -> "12.50 t".
func FormatKg(kg float64) string {
	if math.Abs(kg) >= TonDisplayThresholdKg {
		return FormatFloat(kg*KgToTons, 2) + " t"
	}
	s := FormatFloat(kg, 2)
	// "-0.00" reads as a sign error in summaries.
	if strings.Trim(s, "-0.") == "" {
		s = "0.00"
	}
	return s + " kg"
}

// FormatPercentDelta renders a signed percentage: 12.345 -> "+12.3%".
func FormatPercentDelta(p float64) string {
	if math.Abs(p) < 0.05 {
		return "0.0%"
	}
	return fmt.Sprintf("%+.1f%%", p)
}
