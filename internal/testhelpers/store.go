// Package testhelpers builds sqlite-backed stores and fixtures for engine tests.
package testhelpers

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/chrisdamba/profitlens/internal/repositories"
	"github.com/chrisdamba/profitlens/internal/repositories/sqlite"
	"github.com/stretchr/testify/require"
)

var seq atomic.Int64

func nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, seq.Add(1))
}

// NewStore returns a migrated in-memory store closed at the end of the test.
func NewStore(t testing.TB) *repositories.Store {
	t.Helper()
	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// FixedClock always returns at.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// Restaurant stores a restaurant open 10:00-22:00 with the given seat count.
func Restaurant(t testing.TB, store *repositories.Store, seats int) *models.Restaurant {
	t.Helper()
	r := &models.Restaurant{
		ID:        nextID("restaurant"),
		Name:      "Test Kitchen",
		Currency:  "GBP",
		Town:      "Leeds",
		Capacity:  seats,
		OpenHour:  10,
		CloseHour: 22,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Restaurants.Create(context.Background(), r))
	return r
}

// MenuItem stores an active menu item.
func MenuItem(t testing.TB, store *repositories.Store, restaurantID, name string, price, cost, prepMinutes float64) *models.MenuItem {
	t.Helper()
	item := &models.MenuItem{
		ID:              nextID("item"),
		RestaurantID:    restaurantID,
		Name:            name,
		Category:        "mains",
		CostPrice:       cost,
		SellingPrice:    price,
		PriceElasticity: models.DefaultPriceElasticity,
		PrepTime:        prepMinutes,
		Active:          true,
		CreatedAt:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.MenuItems.Create(context.Background(), item))
	return item
}

// Line sells qty units of item at its current price and cost.
func Line(item *models.MenuItem, qty int) models.OrderItem {
	return LineAt(item, qty, item.SellingPrice)
}

// LineAt sells qty units of item at an explicit unit price.
func LineAt(item *models.MenuItem, qty int, price float64) models.OrderItem {
	return models.OrderItem{
		ID:         nextID("line"),
		MenuItemID: item.ID,
		Quantity:   qty,
		UnitPrice:  price,
		UnitCost:   item.CostPrice,
	}
}

// Order builds a completed order placed at the given time.
func Order(restaurantID string, channel models.Channel, at time.Time, lines ...models.OrderItem) *models.Order {
	completed := at.Add(30 * time.Minute)
	o := &models.Order{
		ID:           nextID("order"),
		RestaurantID: restaurantID,
		Channel:      channel,
		Status:       models.OrderStatusCompleted,
		PlacedAt:     at,
		CompletedAt:  &completed,
		Items:        lines,
	}
	o.ComputeTotals()
	return o
}

// SaveOrders persists orders in one batch.
func SaveOrders(t testing.TB, store *repositories.Store, orders ...*models.Order) {
	t.Helper()
	require.NoError(t, store.Orders.BulkCreate(context.Background(), orders))
}
