// Package emissions maps logged activities to kilograms of CO2-equivalent.
//
// Each activity type has a fixed per-unit factor and a fixed category. The
// lookup tables are immutable values handed to a Calculator at construction,
// so tests and deployments can substitute their own factors.
package emissions

import "sort"

// ActivityType identifies what kind of emission-producing event was logged.
type ActivityType string

// Supported activity types.
const (
	ActivityCar             ActivityType = "car"
	ActivityCarElectric     ActivityType = "car-electric"
	ActivityPublicTransport ActivityType = "public-transport"
	ActivityFlight          ActivityType = "flight"
	ActivityBike            ActivityType = "bike"
	ActivityElectricity     ActivityType = "electricity"
	ActivityGas             ActivityType = "gas"
	ActivityWater           ActivityType = "water"
	ActivityMeat            ActivityType = "meat"
	ActivityDairy           ActivityType = "dairy"
	ActivityVegetables      ActivityType = "vegetables"
	ActivityShopping        ActivityType = "shopping"
	ActivityWaste           ActivityType = "waste"
	ActivityRecycling       ActivityType = "recycling"
)

// Category groups activity types for rollups.
type Category string

// The four emission categories.
const (
	CategoryTransportation Category = "transportation"
	CategoryEnergy         Category = "energy"
	CategoryConsumption    Category = "consumption"
	CategoryWaste          Category = "waste"
)

// Categories returns the four categories in display order.
func Categories() []Category {
	return []Category{CategoryTransportation, CategoryEnergy, CategoryConsumption, CategoryWaste}
}

// IsValid reports whether c is one of the four categories.
func (c Category) IsValid() bool {
	switch c {
	case CategoryTransportation, CategoryEnergy, CategoryConsumption, CategoryWaste:
		return true
	default:
		return false
	}
}

// Unit is the measurement unit of an activity quantity.
type Unit string

// Units used by the default table.
const (
	UnitKilometre    Unit = "km"
	UnitKilowattHour Unit = "kWh"
	UnitCubicMetre   Unit = "m3"
	UnitLitre        Unit = "L"
	UnitKilogram     Unit = "kg"
	UnitItem         Unit = "item"
)

// Factor is one row of a factor table.
type Factor struct {
	Type     ActivityType `json:"activityType" yaml:"activity_type"`
	Category Category     `json:"category"     yaml:"category"`
	Unit     Unit         `json:"unit"         yaml:"unit"`
	// KgPerUnit is kg CO2e per unit. Negative only when Offset is set.
	KgPerUnit float64 `json:"kgPerUnit" yaml:"kg_per_unit"`
	// Offset marks credit-producing activities such as recycling.
	Offset bool `json:"offset,omitempty" yaml:"offset,omitempty"`
}

// sortFactors orders factors by category display order, then type.
func sortFactors(factors []Factor) {
	rank := make(map[Category]int, len(Categories()))
	for i, c := range Categories() {
		rank[c] = i
	}
	sort.SliceStable(factors, func(i, j int) bool {
		if rank[factors[i].Category] != rank[factors[j].Category] {
			return rank[factors[i].Category] < rank[factors[j].Category]
		}
		return factors[i].Type < factors[j].Type
	})
}
