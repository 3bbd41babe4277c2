package factories

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/lucsky/cuid"
)

// OrderGenerator produces a day of orders at a time for one restaurant.
type OrderGenerator struct {
	f          *Factory
	restaurant *models.Restaurant
	menu       []*models.MenuItem
	servers    []*models.Server
	changes    []PriceChange
	popularity []float64
	perDay     float64
	cancelRate float64
}

func (f *Factory) NewOrderGenerator(restaurant *models.Restaurant, menu []*models.MenuItem, servers []*models.Server, cfg models.SeedConfig, changes []PriceChange) *OrderGenerator {
	popularity := make([]float64, len(menu))
	for i, item := range menu {
		// long-tailed so a few dishes dominate
		w := math.Exp(f.rng.NormFloat64() * 0.6)
		if item.Category == "mains" {
			w *= 1.5
		}
		popularity[i] = w
	}
	return &OrderGenerator{
		f:          f,
		restaurant: restaurant,
		menu:       menu,
		servers:    servers,
		changes:    changes,
		popularity: popularity,
		perDay:     float64(cfg.OrdersPerDay),
		cancelRate: cfg.CancelRate,
	}
}

// priceAt returns the selling price of menu[idx] at t, honouring planned changes.
func (g *OrderGenerator) priceAt(idx int, t time.Time) float64 {
	item := g.menu[idx]
	price := item.SellingPrice
	for _, c := range g.changes {
		if c.Item.ID != item.ID {
			continue
		}
		price = c.OldPrice
		if !t.Before(c.At) {
			price = c.NewPrice
		}
	}
	return price
}

// GenerateDay returns the orders placed on the UTC day containing day, sorted by
// placement time.
func (g *OrderGenerator) GenerateDay(day time.Time) []*models.Order {
	if len(g.menu) == 0 {
		return nil
	}
	day = day.UTC().Truncate(24 * time.Hour)
	hours := openHours(g.restaurant)
	total := 0.0
	for _, h := range hours {
		total += hourWeight(h)
	}

	expected := g.perDay * WeekdayDemand[day.Weekday()]
	var orders []*models.Order
	for _, h := range hours {
		n := g.f.poisson(expected * hourWeight(h) / total)
		for k := 0; k < n; k++ {
			at := day.Add(time.Duration(h)*time.Hour + time.Duration(g.f.rng.Intn(3600))*time.Second)
			orders = append(orders, g.newOrder(at))
		}
	}
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].PlacedAt.Before(orders[j].PlacedAt) })
	return orders
}

func (g *OrderGenerator) newOrder(at time.Time) *models.Order {
	weights := make([]float64, len(ChannelProfiles))
	for i, p := range ChannelProfiles {
		weights[i] = p.Weight
	}
	profile := ChannelProfiles[g.f.selectWeighted(weights)]
	segment := g.f.assignGuestSegment()

	guests := 1
	if profile.DineIn {
		guests = g.f.partySize(segment)
	}

	quantities := make([]int, len(g.menu))
	items := max(1, g.f.poisson(float64(guests)*segment.ItemsPerGuest))
	for i := 0; i < items; i++ {
		quantities[g.f.selectWeighted(g.popularity)]++
	}

	order := &models.Order{
		ID:           cuid.New(),
		RestaurantID: g.restaurant.ID,
		Channel:      profile.Channel,
		Status:       models.OrderStatusCompleted,
		PlacedAt:     at,
	}
	var slowest float64
	for idx, qty := range quantities {
		if qty == 0 {
			continue
		}
		item := g.menu[idx]
		order.Items = append(order.Items, models.OrderItem{
			ID:         cuid.New(),
			OrderID:    order.ID,
			MenuItemID: item.ID,
			Quantity:   qty,
			UnitPrice:  g.priceAt(idx, at),
			UnitCost:   item.CostPrice,
		})
		slowest = math.Max(slowest, item.PrepTime)
	}

	if profile.DineIn {
		order.GuestCount = guests
		order.TableNumber = fmt.Sprintf("T%d", 1+g.f.rng.Intn(max(1, g.restaurant.Capacity/4)))
		if len(g.servers) > 0 {
			order.ServerID = g.servers[g.f.rng.Intn(len(g.servers))].ID
		}
	}

	order.ComputeTotals()
	order.Fees = round2(order.Subtotal * profile.Commission)
	order.Taxes = round2(order.Subtotal * vatRate)
	order.ComputeTotals()

	if g.f.rng.Float64() < g.cancelRate {
		order.Status = models.OrderStatusCancelled
		return order
	}
	completed := at.Add(time.Duration(slowest+g.f.between(5, 20)) * time.Minute)
	order.CompletedAt = &completed
	return order
}
