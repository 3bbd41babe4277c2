package models

import "time"

// ItemBaseline is an append-only, versioned statistical snapshot of one menu item's
// daily performance. Rows are never updated in place.
type ItemBaseline struct {
	ID               string    `json:"id" gorm:"primaryKey"`
	MenuItemID       string    `json:"menu_item_id" gorm:"uniqueIndex:idx_item_baseline_version,priority:1"`
	RestaurantID     string    `json:"restaurant_id" gorm:"index"`
	Version          int       `json:"version" gorm:"uniqueIndex:idx_item_baseline_version,priority:2"`
	WindowStart      time.Time `json:"window_start"`
	WindowEnd        time.Time `json:"window_end"`
	SampleDays       int       `json:"sample_days"`
	AvgDailyQuantity float64   `json:"avg_daily_quantity"`
	StdDailyQuantity float64   `json:"std_daily_quantity"`
	AvgDailyRevenue  float64   `json:"avg_daily_revenue"`
	StdDailyRevenue  float64   `json:"std_daily_revenue"`
	PriceElasticity  *float64  `json:"price_elasticity,omitempty"` // nil when not measurable
	Confidence       float64   `json:"confidence"`
	ComputedAt       time.Time `json:"computed_at" gorm:"index"`
}

// ElasticityOr returns the measured elasticity, or def when none was measured.
func (b *ItemBaseline) ElasticityOr(def float64) float64 {
	if b == nil || b.PriceElasticity == nil {
		return def
	}
	return *b.PriceElasticity
}

// BaselineComparison is the current value of an item measured against its latest baseline.
type BaselineComparison struct {
	MenuItemID      string      `json:"menu_item_id"`
	BaselineVersion int         `json:"baseline_version"`
	Average         float64     `json:"avg"`
	CurrentValue    float64     `json:"current_value"`
	DeviationSigma  float64     `json:"deviation_sigma"`
	Performance     Performance `json:"performance"`
}
