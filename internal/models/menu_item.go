package models

import "time"

// DefaultPriceElasticity is used for items whose elasticity has never been measured.
const DefaultPriceElasticity = 1.2

type MenuItem struct {
	ID              string     `json:"id" gorm:"primaryKey"`
	RestaurantID    string     `json:"restaurant_id" gorm:"index"`
	Name            string     `json:"name"`
	Category        string     `json:"category"`
	CostPrice       float64    `json:"cost_price"`
	SellingPrice    float64    `json:"selling_price"`
	PriceElasticity float64    `json:"price_elasticity"`
	LaunchDate      *time.Time `json:"launch_date,omitempty"`
	PrepTime        float64    `json:"prep_time"` // Preparation time in minutes
	Active          bool       `json:"active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ElasticityOr returns the item's configured elasticity, or def when it was never set.
func (m *MenuItem) ElasticityOr(def float64) float64 {
	if m.PriceElasticity == 0 {
		return def
	}
	return m.PriceElasticity
}

// Margin is the current contribution margin per unit.
func (m *MenuItem) Margin() float64 {
	return m.SellingPrice - m.CostPrice
}
