package emissions

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	table := DefaultTable()
	require.Equal(t, 14, table.Len())

	for _, f := range table.Factors() {
		assert.True(t, f.Category.IsValid(), "category of %s", f.Type)
		if f.Type == ActivityRecycling {
			assert.Negative(t, f.KgPerUnit)
			assert.True(t, f.Offset)
			continue
		}
		assert.GreaterOrEqual(t, f.KgPerUnit, 0.0, "factor of %s", f.Type)
	}
}

func TestCompute(t *testing.T) {
	calc := NewCalculator(DefaultTable())

	tests := []struct {
		name         string
		activityType ActivityType
		value        float64
		wantCategory Category
		wantKg       float64
	}{
		{name: "car 10 km", activityType: ActivityCar, value: 10, wantCategory: CategoryTransportation, wantKg: 2.1},
		{name: "recycling 5 kg", activityType: ActivityRecycling, value: 5, wantCategory: CategoryWaste, wantKg: -1.0},
		{name: "bike is free", activityType: ActivityBike, value: 42, wantCategory: CategoryTransportation, wantKg: 0},
		{name: "electricity", activityType: ActivityElectricity, value: 100, wantCategory: CategoryEnergy, wantKg: 29},
		{name: "gas", activityType: ActivityGas, value: 2, wantCategory: CategoryEnergy, wantKg: 4.08},
		{name: "meat", activityType: ActivityMeat, value: 0.5, wantCategory: CategoryConsumption, wantKg: 13.5},
		{name: "shopping", activityType: ActivityShopping, value: 3, wantCategory: CategoryConsumption, wantKg: 15},
		{name: "waste", activityType: ActivityWaste, value: 4, wantCategory: CategoryWaste, wantKg: 2},
		{name: "zero quantity", activityType: ActivityFlight, value: 0, wantCategory: CategoryTransportation, wantKg: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			category, kg, err := calc.Compute(tc.activityType, tc.value)
			require.NoError(t, err)
			assert.Equal(t, tc.wantCategory, category)
			assert.InDelta(t, tc.wantKg, kg, 1e-9)
		})
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	calc := NewCalculator(DefaultTable())
	for _, f := range calc.Table().Factors() {
		c1, kg1, err1 := calc.Compute(f.Type, 12.5)
		c2, kg2, err2 := calc.Compute(f.Type, 12.5)
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, c1, c2)
		assert.Equal(t, kg1, kg2) //nolint:testifylint // exact equality is the property under test
	}
}

func TestComputeSignFollowsFactor(t *testing.T) {
	calc := NewCalculator(DefaultTable())
	for _, f := range calc.Table().Factors() {
		for _, v := range []float64{0, 0.1, 1, 250} {
			_, kg, err := calc.Compute(f.Type, v)
			require.NoError(t, err)
			if f.Type == ActivityRecycling {
				assert.LessOrEqual(t, kg, 0.0, "%s %g", f.Type, v)
			} else {
				assert.GreaterOrEqual(t, kg, 0.0, "%s %g", f.Type, v)
			}
		}
	}
}

func TestComputeErrors(t *testing.T) {
	calc := NewCalculator(DefaultTable())

	tests := []struct {
		name         string
		activityType ActivityType
		value        float64
		wantErr      error
	}{
		{name: "unknown type", activityType: "teleport", value: 1, wantErr: ErrInvalidActivityType},
		{name: "empty type", activityType: "", value: 1, wantErr: ErrInvalidActivityType},
		{name: "negative value", activityType: ActivityCar, value: -1, wantErr: ErrInvalidValue},
		{name: "NaN", activityType: ActivityCar, value: math.NaN(), wantErr: ErrInvalidValue},
		{name: "Inf", activityType: ActivityCar, value: math.Inf(1), wantErr: ErrInvalidValue},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := calc.Compute(tc.activityType, tc.value)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
		})
	}
}

func TestEvaluateUnits(t *testing.T) {
	calc := NewCalculator(DefaultTable())

	t.Run("empty unit resolves to canonical", func(t *testing.T) {
		res, err := calc.Evaluate(ActivityElectricity, 10, "")
		require.NoError(t, err)
		assert.Equal(t, UnitKilowattHour, res.Unit)
		assert.Equal(t, CategoryEnergy, res.Category)
		assert.InDelta(t, 2.9, res.EmissionsCO2, 1e-9)
	})

	t.Run("case insensitive", func(t *testing.T) {
		res, err := calc.Evaluate(ActivityElectricity, 1, "kwh")
		require.NoError(t, err)
		assert.Equal(t, UnitKilowattHour, res.Unit)
	})

	t.Run("mismatched unit", func(t *testing.T) {
		_, err := calc.Evaluate(ActivityCar, 10, UnitKilogram)
		assert.ErrorIs(t, err, ErrInvalidUnit)
	})

	t.Run("invalid type wins over unit", func(t *testing.T) {
		_, err := calc.Evaluate("hovercraft", 10, UnitKilometre)
		assert.ErrorIs(t, err, ErrInvalidActivityType)
	})
}

func TestNewTableValidation(t *testing.T) {
	tests := []struct {
		name    string
		factors []Factor
	}{
		{name: "missing type", factors: []Factor{{Category: CategoryEnergy, Unit: UnitKilowattHour}}},
		{name: "unknown category", factors: []Factor{{Type: "x", Category: "food", Unit: UnitKilogram}}},
		{name: "missing unit", factors: []Factor{{Type: "x", Category: CategoryEnergy}}},
		{name: "negative without offset", factors: []Factor{{Type: "x", Category: CategoryWaste, Unit: UnitKilogram, KgPerUnit: -1}}},
		{name: "NaN factor", factors: []Factor{{Type: "x", Category: CategoryWaste, Unit: UnitKilogram, KgPerUnit: math.NaN()}}},
		{
			name: "duplicate",
			factors: []Factor{
				{Type: "x", Category: CategoryWaste, Unit: UnitKilogram, KgPerUnit: 1},
				{Type: "x", Category: CategoryWaste, Unit: UnitKilogram, KgPerUnit: 2},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTable(tc.factors)
			assert.ErrorIs(t, err, ErrInvalidFactor)
		})
	}
}

func TestFixtureTableIsInjected(t *testing.T) {
	table, err := NewTable([]Factor{
		{Type: "scooter", Category: CategoryTransportation, Unit: UnitKilometre, KgPerUnit: 0.02},
	})
	require.NoError(t, err)

	calc := NewCalculator(table)
	category, kg, err := calc.Compute("scooter", 50)
	require.NoError(t, err)
	assert.Equal(t, CategoryTransportation, category)
	assert.InDelta(t, 1.0, kg, 1e-9)

	_, _, err = calc.Compute(ActivityCar, 1)
	assert.ErrorIs(t, err, ErrInvalidActivityType)
}

func TestWithOverrides(t *testing.T) {
	base := DefaultTable()

	overridden, err := base.WithOverrides(map[ActivityType]float64{ActivityElectricity: 0.1})
	require.NoError(t, err)

	f, ok := overridden.Lookup(ActivityElectricity)
	require.True(t, ok)
	assert.InDelta(t, 0.1, f.KgPerUnit, 1e-12)

	orig, _ := base.Lookup(ActivityElectricity)
	assert.InDelta(t, 0.29, orig.KgPerUnit, 1e-12, "base table must not change")

	_, err = base.WithOverrides(map[ActivityType]float64{"rocket": 1})
	assert.ErrorIs(t, err, ErrInvalidActivityType)

	_, err = base.WithOverrides(map[ActivityType]float64{ActivityCar: -1})
	assert.ErrorIs(t, err, ErrInvalidFactor)
}

func TestCategories(t *testing.T) {
	cats := Categories()
	require.Len(t, cats, 4)
	for _, c := range cats {
		assert.True(t, c.IsValid())
	}
	assert.False(t, Category("food").IsValid())
}
