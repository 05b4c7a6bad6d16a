package emissions

import (
	"fmt"
	"math"
	"strings"
)

// Table is an immutable activity-type lookup: factor, category and unit.
// The zero value is an empty table; build tables with DefaultTable or NewTable.
type Table struct {
	factors map[ActivityType]Factor
}

// defaultFactors are the kg CO2e per unit constants used by EcoLife.
func defaultFactors() []Factor {
	return []Factor{
		{Type: ActivityCar, Category: CategoryTransportation, Unit: UnitKilometre, KgPerUnit: 0.21},
		{Type: ActivityCarElectric, Category: CategoryTransportation, Unit: UnitKilometre, KgPerUnit: 0.05},
		{Type: ActivityPublicTransport, Category: CategoryTransportation, Unit: UnitKilometre, KgPerUnit: 0.05},
		{Type: ActivityFlight, Category: CategoryTransportation, Unit: UnitKilometre, KgPerUnit: 0.255},
		{Type: ActivityBike, Category: CategoryTransportation, Unit: UnitKilometre, KgPerUnit: 0},
		{Type: ActivityElectricity, Category: CategoryEnergy, Unit: UnitKilowattHour, KgPerUnit: 0.29},
		{Type: ActivityGas, Category: CategoryEnergy, Unit: UnitCubicMetre, KgPerUnit: 2.04},
		{Type: ActivityWater, Category: CategoryEnergy, Unit: UnitLitre, KgPerUnit: 0.20},
		{Type: ActivityMeat, Category: CategoryConsumption, Unit: UnitKilogram, KgPerUnit: 27},
		{Type: ActivityDairy, Category: CategoryConsumption, Unit: UnitLitre, KgPerUnit: 1.3},
		{Type: ActivityVegetables, Category: CategoryConsumption, Unit: UnitKilogram, KgPerUnit: 0.5},
		{Type: ActivityShopping, Category: CategoryConsumption, Unit: UnitItem, KgPerUnit: 5},
		{Type: ActivityWaste, Category: CategoryWaste, Unit: UnitKilogram, KgPerUnit: 0.5},
		{Type: ActivityRecycling, Category: CategoryWaste, Unit: UnitKilogram, KgPerUnit: -0.2, Offset: true},
	}
}

// DefaultTable returns the standard 14-entry factor table.
func DefaultTable() Table {
	t, err := NewTable(defaultFactors())
	if err != nil {
		// The built-in table is static; a failure here is a programming error.
		panic(fmt.Sprintf("emissions: invalid default table: %v", err))
	}
	return t
}

// NewTable validates and copies factors into an immutable Table.
//
// Every entry needs a type, a valid category and a unit, a finite factor,
// and a non-negative factor unless it is flagged as an offset. Duplicate
// types are rejected.
func NewTable(factors []Factor) (Table, error) {
	m := make(map[ActivityType]Factor, len(factors))
	for i, f := range factors {
		if strings.TrimSpace(string(f.Type)) == "" {
			return Table{}, fmt.Errorf("%w: entry %d has no activity type", ErrInvalidFactor, i)
		}
		if !f.Category.IsValid() {
			return Table{}, fmt.Errorf("%w: %s has unknown category %q", ErrInvalidFactor, f.Type, f.Category)
		}
		if f.Unit == "" {
			return Table{}, fmt.Errorf("%w: %s has no unit", ErrInvalidFactor, f.Type)
		}
		if math.IsNaN(f.KgPerUnit) || math.IsInf(f.KgPerUnit, 0) {
			return Table{}, fmt.Errorf("%w: %s factor is not finite", ErrInvalidFactor, f.Type)
		}
		if f.KgPerUnit < 0 && !f.Offset {
			return Table{}, fmt.Errorf("%w: %s has negative factor but is not an offset", ErrInvalidFactor, f.Type)
		}
		if _, dup := m[f.Type]; dup {
			return Table{}, fmt.Errorf("%w: duplicate activity type %s", ErrInvalidFactor, f.Type)
		}
		m[f.Type] = f
	}
	return Table{factors: m}, nil
}

// WithOverrides returns a copy of t with the per-unit factor of the given
// types replaced. Unknown types are rejected.
func (t Table) WithOverrides(overrides map[ActivityType]float64) (Table, error) {
	if len(overrides) == 0 {
		return t, nil
	}
	factors := t.Factors()
	for typ, kg := range overrides {
		found := false
		for i := range factors {
			if factors[i].Type == typ {
				factors[i].KgPerUnit = kg
				found = true
				break
			}
		}
		if !found {
			return Table{}, fmt.Errorf("%w: %q", ErrInvalidActivityType, typ)
		}
	}
	return NewTable(factors)
}

// Lookup returns the factor row for typ.
func (t Table) Lookup(typ ActivityType) (Factor, bool) {
	f, ok := t.factors[typ]
	return f, ok
}

// Factors returns a sorted copy of all rows.
func (t Table) Factors() []Factor {
	out := make([]Factor, 0, len(t.factors))
	for _, f := range t.factors {
		out = append(out, f)
	}
	sortFactors(out)
	return out
}

// Len returns the number of activity types in the table.
func (t Table) Len() int {
	return len(t.factors)
}
