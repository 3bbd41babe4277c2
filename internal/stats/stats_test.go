package stats

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 2.5, Mean([]float64{1, 2, 3, 4}))
}

func TestStandardDeviation(t *testing.T) {
	assert.Equal(t, 0.0, StandardDeviation(nil))
	assert.Equal(t, 0.0, StandardDeviation([]float64{42}))
	// population form: sqrt(((2-5)^2*1 + (4-5)^2*3 + (5-5)^2*2 + (7-5)^2 + (9-5)^2)/8) = 2
	assert.InDelta(t, 2.0, StandardDeviation([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-12)
}

func TestCoefficientOfVariation(t *testing.T) {
	assert.Equal(t, 0.0, CoefficientOfVariation([]float64{0, 0, 0}))
	assert.InDelta(t, 0.4, CoefficientOfVariation([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-12)
}

func TestPercentChange(t *testing.T) {
	_, ok := PercentChange(0, 10)
	assert.False(t, ok)

	pct, ok := PercentChange(50, 70)
	assert.True(t, ok)
	assert.InDelta(t, 0.4, pct, 1e-12)
}

func TestClampAndDeviation(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-0.3, 0, 1))
	assert.Equal(t, 1.0, Clamp(1.7, 0, 1))
	assert.Equal(t, 0.0, Clamp(math.NaN(), 0, 1))
	assert.Equal(t, 0.0, Deviation(12, 10, 0))
	assert.Equal(t, 1.0, Deviation(12, 10, 2))
	assert.Equal(t, 0.8, Round(0.80000000001, 4))
}

func day(n int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestEstimateElasticity(t *testing.T) {
	t.Run("no price change is unknown", func(t *testing.T) {
		series := []DailyPoint{
			{Day: day(0), Quantity: 10, Revenue: 100},
			{Day: day(1), Quantity: 12, Revenue: 120},
		}
		_, ok := EstimateElasticity(series, MinPriceMove)
		assert.False(t, ok)
	})

	t.Run("single qualifying pair", func(t *testing.T) {
		// price 10 -> 11 (+10%), quantity 10 -> 9 (-10%)
		series := []DailyPoint{
			{Day: day(1), Quantity: 9, Revenue: 99},
			{Day: day(0), Quantity: 10, Revenue: 100},
		}
		e, ok := EstimateElasticity(series, MinPriceMove)
		assert.True(t, ok)
		assert.InDelta(t, -1.0, e, 1e-9)
	})

	t.Run("outliers are discarded", func(t *testing.T) {
		series := []DailyPoint{
			{Day: day(0), Quantity: 10, Revenue: 100},
			// +3% price, +400% quantity -> ratio far above 10
			{Day: day(1), Quantity: 50, Revenue: 515},
		}
		_, ok := EstimateElasticity(series, MinPriceMove)
		assert.False(t, ok)
	})

	t.Run("small price moves are ignored", func(t *testing.T) {
		series := []DailyPoint{
			{Day: day(0), Quantity: 10, Revenue: 100},
			{Day: day(1), Quantity: 5, Revenue: 50.5},
		}
		_, ok := EstimateElasticity(series, MinPriceMove)
		assert.False(t, ok)
	})

	t.Run("zero quantity day gives no signal", func(t *testing.T) {
		series := []DailyPoint{
			{Day: day(0), Quantity: 0, Revenue: 0},
			{Day: day(1), Quantity: 5, Revenue: 60},
		}
		_, ok := EstimateElasticity(series, MinPriceMove)
		assert.False(t, ok)
	})
}
