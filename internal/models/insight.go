package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CausalFactor struct {
	Factor          string          `json:"factor"`
	Contribution    decimal.Decimal `json:"contribution"`
	ContributionPct float64         `json:"contribution_pct"`
	Direction       string          `json:"direction"`
}

// Insight is the append-only record of why revenue moved between two periods.
type Insight struct {
	ID                string          `json:"id" gorm:"primaryKey"`
	RestaurantID      string          `json:"restaurant_id" gorm:"index"`
	Type              string          `json:"type"`
	Severity          Severity        `json:"severity"`
	CurrentFrom       time.Time       `json:"current_from"`
	CurrentTo         time.Time       `json:"current_to"`
	ComparisonFrom    time.Time       `json:"comparison_from"`
	ComparisonTo      time.Time       `json:"comparison_to"`
	CurrentRevenue    decimal.Decimal `json:"current_revenue" gorm:"type:text"`
	ComparisonRevenue decimal.Decimal `json:"comparison_revenue" gorm:"type:text"`
	TotalChange       decimal.Decimal `json:"total_change" gorm:"type:text"`
	PercentChange     float64         `json:"percent_change"`
	Factors           []CausalFactor  `json:"factors" gorm:"serializer:json"`
	Formula           string          `json:"formula"`
	Explanation       string          `json:"explanation"`
	Assumptions       []string        `json:"assumptions" gorm:"serializer:json"`
	SampleSize        int             `json:"sample_size"`
	CurrentSamples    int             `json:"current_samples"`
	ComparisonSamples int             `json:"comparison_samples"`
	Confidence        float64         `json:"confidence"`
	Recommendation    string          `json:"recommendation,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	ExpiresAt         time.Time       `json:"expires_at" gorm:"index"`
}

// Factor returns the named causal factor, or nil.
func (i *Insight) Factor(name string) *CausalFactor {
	for k := range i.Factors {
		if i.Factors[k].Factor == name {
			return &i.Factors[k]
		}
	}
	return nil
}
