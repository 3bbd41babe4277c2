package stats

import (
	"math"
	"sort"
	"time"
)

const (
	// MinPriceMove is the smallest relative price change treated as a price signal.
	MinPriceMove = 0.02

	maxElasticity = 10.0
)

// DailyPoint is one day of sales for a single item.
type DailyPoint struct {
	Day      time.Time
	Quantity float64
	Revenue  float64
}

// AvgPrice is revenue per unit, 0 when nothing sold.
func (p DailyPoint) AvgPrice() float64 {
	if p.Quantity == 0 {
		return 0
	}
	return p.Revenue / p.Quantity
}

// EstimateElasticity averages %dQuantity / %dPrice over consecutive day pairs whose
// price moved by more than minPriceMove. Ratios outside [-10, 10] are dropped.
// ok is false when no pair qualifies.
func EstimateElasticity(series []DailyPoint, minPriceMove float64) (float64, bool) {
	if len(series) < 2 {
		return 0, false
	}
	points := make([]DailyPoint, len(series))
	copy(points, series)
	sort.Slice(points, func(i, j int) bool { return points[i].Day.Before(points[j].Day) })

	var samples []float64
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		dPrice, ok := PercentChange(prev.AvgPrice(), cur.AvgPrice())
		if !ok || math.Abs(dPrice) <= minPriceMove {
			continue
		}
		dQty, ok := PercentChange(prev.Quantity, cur.Quantity)
		if !ok {
			continue
		}
		e := dQty / dPrice
		if math.IsNaN(e) || math.IsInf(e, 0) || e < -maxElasticity || e > maxElasticity {
			continue
		}
		samples = append(samples, e)
	}
	if len(samples) == 0 {
		return 0, false
	}
	return Mean(samples), true
}
