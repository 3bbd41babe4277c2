package factories

import (
	"math"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/lucsky/cuid"
)

type RestaurantTier struct {
	Name                string
	BaseCapacity        int
	CapacityFlexibility float64
	MinMainPrice        float64
	MaxMainPrice        float64
	CostRatio           float64 // typical food cost as a share of price
	OpenHour            int
	CloseHour           int
}

var RestaurantTiers = map[string]RestaurantTier{
	"premium": {
		Name:                "premium",
		BaseCapacity:        30,
		CapacityFlexibility: 0.2,
		MinMainPrice:        18,
		MaxMainPrice:        38,
		CostRatio:           0.28,
		OpenHour:            12,
		CloseHour:           23,
	},
	"standard": {
		Name:                "standard",
		BaseCapacity:        50,
		CapacityFlexibility: 0.3,
		MinMainPrice:        10,
		MaxMainPrice:        22,
		CostRatio:           0.32,
		OpenHour:            11,
		CloseHour:           22,
	},
	"budget": {
		Name:                "budget",
		BaseCapacity:        80,
		CapacityFlexibility: 0.4,
		MinMainPrice:        6,
		MaxMainPrice:        12,
		CostRatio:           0.38,
		OpenHour:            10,
		CloseHour:           23,
	},
}

// Tier returns the named tier, falling back to standard.
func Tier(name string) RestaurantTier {
	if t, ok := RestaurantTiers[name]; ok {
		return t
	}
	return RestaurantTiers["standard"]
}

func (f *Factory) CreateRestaurant(tier RestaurantTier, createdAt time.Time) *models.Restaurant {
	flex := (f.rng.Float64()*2 - 1) * tier.CapacityFlexibility
	capacity := int(math.Round(float64(tier.BaseCapacity) * (1 + flex)))

	return &models.Restaurant{
		ID:        cuid.New(),
		Name:      f.fake.Company().Name(),
		Currency:  "GBP",
		Town:      f.fake.Address().City(),
		Capacity:  max(capacity, 8),
		OpenHour:  tier.OpenHour,
		CloseHour: tier.CloseHour,
		CreatedAt: createdAt.UTC(),
	}
}
