package factories

import (
	"fmt"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/lucsky/cuid"
)

type menuCategory struct {
	Name        string
	Share       float64 // share of the menu
	PriceFactor float64 // relative to a main course
	PrepMin     float64
	PrepMax     float64
}

var menuCategories = []menuCategory{
	{Name: "starters", Share: 0.25, PriceFactor: 0.5, PrepMin: 5, PrepMax: 12},
	{Name: "mains", Share: 0.40, PriceFactor: 1.0, PrepMin: 10, PrepMax: 30},
	{Name: "sides", Share: 0.15, PriceFactor: 0.3, PrepMin: 3, PrepMax: 8},
	{Name: "desserts", Share: 0.10, PriceFactor: 0.45, PrepMin: 4, PrepMax: 10},
	{Name: "drinks", Share: 0.10, PriceFactor: 0.25, PrepMin: 1, PrepMax: 3},
}

var dishCatalogue = []string{
	"Margherita Pizza", "Spaghetti Carbonara", "Lasagna", "Tiramisu",
	"Chicken Tikka Masala", "Vegetable Curry", "Naan Bread", "Biryani",
	"Classic Cheeseburger", "Veggie Burger", "BBQ Ribs", "Apple Pie",
	"Sushi Roll", "Ramen", "Tempura", "Miso Soup",
	"Tacos", "Burrito", "Guacamole", "Quesadilla",
	"Kung Pao Chicken", "Fried Rice", "Dumplings", "Mapo Tofu",
	"Pad Thai", "Green Curry", "Tom Yum Soup", "Mango Sticky Rice",
	"Gyros", "Greek Salad", "Moussaka", "Baklava",
	"Coq au Vin", "Beef Bourguignon", "Ratatouille", "Crème Brûlée",
	"Falafel", "Hummus", "Tabbouleh", "Grilled Halloumi",
	"Grilled Salmon", "Mixed Grill Platter", "Caesar Salad", "Chocolate Shake",
}

func (f *Factory) CreateMenuItem(restaurant *models.Restaurant, tier RestaurantTier, category menuCategory, name string) *models.MenuItem {
	price := round2(f.between(tier.MinMainPrice, tier.MaxMainPrice) * category.PriceFactor)
	// some dishes are deliberately low margin so every quadrant is populated
	costRatio := tier.CostRatio * f.between(0.6, 1.9)
	elasticity := f.between(0.6, 1.8)

	return &models.MenuItem{
		ID:              cuid.New(),
		RestaurantID:    restaurant.ID,
		Name:            name,
		Category:        category.Name,
		CostPrice:       round2(price * min(costRatio, 0.9)),
		SellingPrice:    price,
		PriceElasticity: round2(elasticity),
		PrepTime:        float64(int(f.between(category.PrepMin, category.PrepMax))),
		Active:          true,
		CreatedAt:       restaurant.CreatedAt,
		UpdatedAt:       restaurant.CreatedAt,
	}
}

// CreateMenu builds n items split across categories. Names come from dishes when
// given, otherwise from a built-in catalogue; duplicates get a numeric suffix.
func (f *Factory) CreateMenu(restaurant *models.Restaurant, tier RestaurantTier, n int, dishes []string) []*models.MenuItem {
	if len(dishes) == 0 {
		dishes = dishCatalogue
	}
	names := make([]string, len(dishes))
	copy(names, dishes)
	f.rng.Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })

	weights := make([]float64, len(menuCategories))
	for i, c := range menuCategories {
		weights[i] = c.Share
	}

	items := make([]*models.MenuItem, 0, n)
	seen := make(map[string]int)
	for i := 0; i < n; i++ {
		// one of each category first
		category := menuCategories[i%len(menuCategories)]
		if i >= len(menuCategories) {
			category = menuCategories[f.selectWeighted(weights)]
		}
		name := names[i%len(names)]
		seen[name]++
		if seen[name] > 1 {
			name = fmt.Sprintf("%s %d", name, seen[name])
		}
		items = append(items, f.CreateMenuItem(restaurant, tier, category, name))
	}
	return items
}

// PriceChange is a repricing applied to a menu item partway through the history.
type PriceChange struct {
	Item     *models.MenuItem
	At       time.Time
	OldPrice float64
	NewPrice float64
	NewCost  float64
}

// PlanPriceChanges picks roughly a fifth of the menu to be repriced by -10% to +15%
// at a random day within [from, to).
func (f *Factory) PlanPriceChanges(items []*models.MenuItem, from, to time.Time) []PriceChange {
	span := int(to.Sub(from).Hours() / 24)
	if span < 2 {
		return nil
	}
	var changes []PriceChange
	for _, item := range items {
		if f.rng.Float64() >= 0.2 {
			continue
		}
		day := from.AddDate(0, 0, 1+f.rng.Intn(span-1))
		factor := f.between(0.9, 1.15)
		changes = append(changes, PriceChange{
			Item:     item,
			At:       time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
			OldPrice: item.SellingPrice,
			NewPrice: round2(item.SellingPrice * factor),
			NewCost:  item.CostPrice,
		})
	}
	return changes
}
