package emissions

import (
	"fmt"
	"math"
	"strings"
)

// Result is the outcome of computing one activity's emissions.
type Result struct {
	Category     Category
	Unit         Unit
	EmissionsCO2 float64
}

// Calculator computes emissions from an injected factor table.
// It has no side effects and is safe for concurrent use.
type Calculator struct {
	table Table
}

// NewCalculator returns a calculator over table.
func NewCalculator(table Table) *Calculator {
	return &Calculator{table: table}
}

// Table returns the factor table the calculator was built with.
func (c *Calculator) Table() Table {
	return c.table
}

// Compute returns the category and kg CO2e for value units of activityType.
//
// The result is value x factor and is never clamped: offsets such as
// recycling produce negative emissions. value itself must be finite and
// non-negative.
func (c *Calculator) Compute(activityType ActivityType, value float64) (Category, float64, error) {
	f, ok := c.table.Lookup(activityType)
	if !ok {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidActivityType, activityType)
	}
	if err := ValidateValue(value); err != nil {
		return "", 0, err
	}

	emissions := value * f.KgPerUnit
	if math.IsInf(emissions, 0) {
		return "", 0, fmt.Errorf("%w: %g overflows", ErrInvalidValue, value)
	}
	// Normalise -0 so bike trips and empty quantities read as plain zero.
	if emissions == 0 {
		emissions = 0
	}
	return f.Category, emissions, nil
}

// Evaluate validates unit against activityType and computes emissions.
// An empty unit resolves to the activity type's canonical unit.
func (c *Calculator) Evaluate(activityType ActivityType, value float64, unit Unit) (Result, error) {
	resolved, err := c.ResolveUnit(activityType, unit)
	if err != nil {
		return Result{}, err
	}
	category, kg, err := c.Compute(activityType, value)
	if err != nil {
		return Result{}, err
	}
	return Result{Category: category, Unit: resolved, EmissionsCO2: kg}, nil
}

// ResolveUnit returns the canonical unit for activityType, rejecting a
// unit that does not match it. Matching ignores case.
func (c *Calculator) ResolveUnit(activityType ActivityType, unit Unit) (Unit, error) {
	f, ok := c.table.Lookup(activityType)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidActivityType, activityType)
	}
	if strings.TrimSpace(string(unit)) == "" {
		return f.Unit, nil
	}
	if !strings.EqualFold(strings.TrimSpace(string(unit)), string(f.Unit)) {
		return "", fmt.Errorf("%w: %s is measured in %s, got %q", ErrInvalidUnit, activityType, f.Unit, unit)
	}
	return f.Unit, nil
}

// CategoryOf returns the fixed category of activityType.
func (c *Calculator) CategoryOf(activityType ActivityType) (Category, error) {
	f, ok := c.table.Lookup(activityType)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidActivityType, activityType)
	}
	return f.Category, nil
}

// ValidateValue rejects negative and non-finite quantities.
func ValidateValue(value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: must be a finite number", ErrInvalidValue)
	}
	if value < 0 {
		return fmt.Errorf("%w: %g is negative", ErrInvalidValue, value)
	}
	return nil
}
