package greenops

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreesToOffset(t *testing.T) {
	tests := []struct {
		name       string
		kg         float64
		absorption float64
		want       float64
		wantErr    error
	}{
		{name: "one tree-year", kg: 21, absorption: 21, want: 1},
		{name: "fractional", kg: 42, absorption: 21, want: 2},
		{name: "net negative needs none", kg: -5, absorption: 21, want: 0},
		{name: "zero", kg: 0, absorption: 21, want: 0},
		{name: "custom absorption", kg: 100, absorption: 25, want: 4},
		{name: "zero absorption", kg: 10, absorption: 0, wantErr: ErrInvalidFactor},
		{name: "negative absorption", kg: 10, absorption: -1, wantErr: ErrInvalidFactor},
		{name: "NaN input", kg: math.NaN(), absorption: 21, wantErr: ErrCalculationOverflow},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := TreesToOffset(tc.kg, tc.absorption)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestPercentDelta(t *testing.T) {
	assert.InDelta(t, 100.0, PercentDelta(20, 10), 1e-9)
	assert.InDelta(t, -50.0, PercentDelta(5, 10), 1e-9)
	assert.InDelta(t, -100.0, PercentDelta(0, 10), 1e-9)
	assert.Zero(t, PercentDelta(5, 0))
}

func TestCalculate(t *testing.T) {
	t.Run("reference amount", func(t *testing.T) {
		out, err := Calculate(150, Options{})
		require.NoError(t, err)
		require.False(t, out.IsEmpty)
		require.Len(t, out.Results, 3)

		assert.Equal(t, EquivalencyTrees, out.Results[0].Type)
		assert.InDelta(t, 150/DefaultTreeAbsorptionKgPerYear, out.Results[0].Value, 1e-9)
		assert.InDelta(t, 781.25, out.Results[1].Value, 0.01)
		assert.InDelta(t, 18248.18, out.Results[2].Value, 0.01)
		assert.Equal(t, "18,248", out.Results[2].FormattedValue)
		assert.Contains(t, out.DisplayText, "781 miles")
		assert.Contains(t, out.DisplayText, "trees")
	})

	t.Run("custom absorption", func(t *testing.T) {
		out, err := Calculate(100, Options{TreeAbsorptionKgPerYear: 50})
		require.NoError(t, err)
		assert.InDelta(t, 2.0, out.Results[0].Value, 1e-9)
	})

	t.Run("below threshold is empty", func(t *testing.T) {
		out, err := Calculate(0.5, Options{})
		require.NoError(t, err)
		assert.True(t, out.IsEmpty)
		assert.InDelta(t, 0.5, out.InputKg, 1e-12)
	})

	t.Run("net negative is empty", func(t *testing.T) {
		out, err := Calculate(-3, Options{})
		require.NoError(t, err)
		assert.True(t, out.IsEmpty)
	})

	t.Run("infinite input", func(t *testing.T) {
		_, err := Calculate(math.Inf(1), Options{})
		assert.ErrorIs(t, err, ErrCalculationOverflow)
	})
}

func TestEquivalencyTypeString(t *testing.T) {
	assert.Equal(t, "Trees", EquivalencyTrees.String())
	assert.Equal(t, "MilesDriven", EquivalencyMilesDriven.String())
	assert.Equal(t, "EquivalencyType(42)", EquivalencyType(42).String())
}

func TestConvertKg(t *testing.T) {
	tests := []struct {
		unit    string
		kg      float64
		want    float64
		wantErr error
	}{
		{unit: "kg", kg: 2, want: 2},
		{unit: "", kg: 2, want: 2},
		{unit: "g", kg: 2, want: 2000},
		{unit: "tCO2e", kg: 2500, want: 2.5},
		{unit: "LB", kg: 1, want: 2.20462},
		{unit: "kg", kg: -1, want: -1},
		{unit: "stone", kg: 1, wantErr: ErrInvalidUnit},
	}

	for _, tc := range tests {
		t.Run(tc.unit, func(t *testing.T) {
			got, err := ConvertKg(tc.kg, tc.unit)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.False(t, IsRecognizedUnit(tc.unit))
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
			assert.True(t, IsRecognizedUnit(tc.unit))
		})
	}
}
