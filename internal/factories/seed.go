package factories

import (
	"context"
	"fmt"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/chrisdamba/profitlens/internal/repositories"
)

type SeedResult struct {
	Restaurant   *models.Restaurant `json:"restaurant"`
	MenuItems    int                `json:"menu_items"`
	Servers      int                `json:"servers"`
	Orders       int                `json:"orders"`
	Cancelled    int                `json:"cancelled"`
	PriceChanges int                `json:"price_changes"`
}

// Seed writes one restaurant with its menu, staff and cfg.Days days of orders
// ending the day before end. progress, when set, is called after each day.
// Planned price changes are applied to the stored menu once history is written.
func (f *Factory) Seed(ctx context.Context, store *repositories.Store, cfg models.SeedConfig, end time.Time, progress func(day int)) (*SeedResult, error) {
	if cfg.Days < 1 || cfg.MenuItems < 1 {
		return nil, fmt.Errorf("seed needs at least one day and one menu item, got %d days and %d items", cfg.Days, cfg.MenuItems)
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	to := end.UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -cfg.Days)
	tier := Tier(cfg.Tier)

	restaurant := f.CreateRestaurant(tier, from)
	if err := store.Restaurants.Create(ctx, restaurant); err != nil {
		return nil, fmt.Errorf("create restaurant: %w", err)
	}
	servers := f.CreateServers(restaurant, cfg.Servers, from)
	for _, s := range servers {
		if err := store.Servers.Create(ctx, s); err != nil {
			return nil, fmt.Errorf("create server: %w", err)
		}
	}
	menu := f.CreateMenu(restaurant, tier, cfg.MenuItems, cfg.MenuDishes)
	if err := store.MenuItems.BulkCreate(ctx, menu); err != nil {
		return nil, fmt.Errorf("create menu: %w", err)
	}

	changes := f.PlanPriceChanges(menu, from, to)
	gen := f.NewOrderGenerator(restaurant, menu, servers, cfg, changes)
	res := &SeedResult{Restaurant: restaurant, MenuItems: len(menu), Servers: len(servers), PriceChanges: len(changes)}

	batch := make([]*models.Order, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.Orders.BulkCreate(ctx, batch); err != nil {
			return fmt.Errorf("store orders: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for d := 0; d < cfg.Days; d++ {
		for _, o := range gen.GenerateDay(from.AddDate(0, 0, d)) {
			res.Orders++
			if o.Status == models.OrderStatusCancelled {
				res.Cancelled++
			}
			batch = append(batch, o)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return nil, err
				}
			}
		}
		if progress != nil {
			progress(d + 1)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	for _, c := range changes {
		if err := store.MenuItems.UpdatePricing(ctx, c.Item.ID, c.NewPrice, c.NewCost); err != nil {
			return nil, fmt.Errorf("apply price change for %s: %w", c.Item.Name, err)
		}
		c.Item.SellingPrice = c.NewPrice
		c.Item.CostPrice = c.NewCost
	}
	return res, nil
}
