package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/chrisdamba/profitlens/internal/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *repositories.Store {
	t.Helper()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var day0 = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func TestBaselineAppendVersionIncrements(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		b := &models.ItemBaseline{
			ID:         "b" + string(rune('a'+i)),
			MenuItemID: "item-1",
			SampleDays: 10,
			ComputedAt: day0.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, store.Baselines.AppendVersion(ctx, b))
		assert.Equal(t, i+1, b.Version)
	}

	latest, err := store.Baselines.GetLatest(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, 3, latest.Version)

	asOf, err := store.Baselines.GetAsOf(ctx, "item-1", day0.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, asOf.Version)

	_, err = store.Baselines.GetAsOf(ctx, "item-1", day0.Add(-time.Hour))
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = store.Baselines.GetLatest(ctx, "unknown")
	assert.ErrorIs(t, err, models.ErrNotFound)

	versions, err := store.Baselines.ListVersions(ctx, "item-1")
	require.NoError(t, err)
	require.Len(t, versions, 3)
}

func TestBaselineElasticityRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	e := -1.5

	require.NoError(t, store.Baselines.AppendVersion(ctx, &models.ItemBaseline{ID: "x", MenuItemID: "m", PriceElasticity: &e, ComputedAt: day0}))
	require.NoError(t, store.Baselines.AppendVersion(ctx, &models.ItemBaseline{ID: "y", MenuItemID: "m", ComputedAt: day0}))

	versions, err := store.Baselines.ListVersions(ctx, "m")
	require.NoError(t, err)
	require.NotNil(t, versions[0].PriceElasticity)
	assert.Equal(t, -1.5, *versions[0].PriceElasticity)
	assert.Nil(t, versions[1].PriceElasticity)
}

func TestGetCompletedExcludesCancelledAndFiltersItems(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	orders := []*models.Order{
		{
			ID: "o1", RestaurantID: "r1", Channel: models.ChannelWalkIn, Status: models.OrderStatusCompleted,
			PlacedAt: day0.Add(12 * time.Hour),
			Items: []models.OrderItem{
				{ID: "o1-1", MenuItemID: "a", Quantity: 2, UnitPrice: 10, UnitCost: 4},
				{ID: "o1-2", MenuItemID: "b", Quantity: 1, UnitPrice: 6, UnitCost: 2},
			},
		},
		{
			ID: "o2", RestaurantID: "r1", Channel: models.ChannelUberEats, Status: models.OrderStatusCancelled,
			PlacedAt: day0.Add(13 * time.Hour),
			Items:    []models.OrderItem{{ID: "o2-1", MenuItemID: "a", Quantity: 9, UnitPrice: 10, UnitCost: 4}},
		},
		{
			ID: "o3", RestaurantID: "r1", Channel: models.ChannelUberEats, Status: models.OrderStatusCompleted,
			PlacedAt: day0.AddDate(0, 0, 1),
			Items:    []models.OrderItem{{ID: "o3-1", MenuItemID: "b", Quantity: 3, UnitPrice: 6, UnitCost: 2}},
		},
	}
	require.NoError(t, store.Orders.BulkCreate(ctx, orders))

	all, err := store.Orders.GetCompleted(ctx, models.OrderFilter{RestaurantID: "r1"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "o1", all[0].ID)
	assert.Len(t, all[0].Items, 2)

	onlyA, err := store.Orders.GetCompleted(ctx, models.OrderFilter{RestaurantID: "r1", MenuItemID: "a"})
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	require.Len(t, onlyA[0].Items, 1)
	assert.Equal(t, 20.0, onlyA[0].Items[0].LineTotal)

	// To is exclusive
	firstDay, err := store.Orders.GetCompleted(ctx, models.OrderFilter{RestaurantID: "r1", From: day0, To: day0.AddDate(0, 0, 1)})
	require.NoError(t, err)
	assert.Len(t, firstDay, 1)

	uber, err := store.Orders.GetCompleted(ctx, models.OrderFilter{RestaurantID: "r1", Channel: models.ChannelUberEats})
	require.NoError(t, err)
	require.Len(t, uber, 1)
	assert.Equal(t, "o3", uber[0].ID)
}

func TestUpdatePricingKeepsHistoricalLines(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	item := &models.MenuItem{ID: "a", RestaurantID: "r1", Name: "Ramen", CostPrice: 4, SellingPrice: 10, Active: true}
	require.NoError(t, store.MenuItems.Create(ctx, item))
	require.NoError(t, store.Orders.Create(ctx, &models.Order{
		ID: "o1", RestaurantID: "r1", Channel: models.ChannelWalkIn, Status: models.OrderStatusCompleted,
		PlacedAt: day0, Items: []models.OrderItem{{ID: "l1", MenuItemID: "a", Quantity: 1, UnitPrice: 10, UnitCost: 4}},
	}))

	require.NoError(t, store.MenuItems.UpdatePricing(ctx, "a", 12, 5))
	assert.ErrorIs(t, store.MenuItems.UpdatePricing(ctx, "missing", 1, 1), models.ErrNotFound)

	got, err := store.MenuItems.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 12.0, got.SellingPrice)

	orders, err := store.Orders.GetCompleted(ctx, models.OrderFilter{RestaurantID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, 10.0, orders[0].Items[0].UnitPrice)
	assert.Equal(t, 4.0, orders[0].Items[0].UnitCost)
}

func TestOrderUpdateStatus(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	require.NoError(t, store.Orders.Create(ctx, &models.Order{
		ID: "o1", RestaurantID: "r1", Channel: models.ChannelBooking, Status: models.OrderStatusReady, PlacedAt: day0,
	}))

	assert.Error(t, store.Orders.UpdateStatus(ctx, "o1", models.OrderStatusPreparing, day0))
	require.NoError(t, store.Orders.UpdateStatus(ctx, "o1", models.OrderStatusCompleted, day0.Add(time.Hour)))
	assert.ErrorIs(t, store.Orders.UpdateStatus(ctx, "nope", models.OrderStatusCompleted, day0), models.ErrNotFound)

	orders, err := store.Orders.GetCompleted(ctx, models.OrderFilter{RestaurantID: "r1"})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.NotNil(t, orders[0].CompletedAt)
}

func TestDecisionTransitionAndOutcome(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	d := &models.Decision{
		ID: "d1", RestaurantID: "r1", Type: models.DecisionReprice, Category: models.CategoryMenu,
		Target:          models.DecisionTarget{Kind: models.TargetItem, EntityID: "a", Name: "Ramen"},
		Priority:        models.PriorityHigh,
		PredictedImpact: models.Impact{Min: 80, Max: 110, Confidence: 70, Revenue: models.NewRevenueImpact(100, 110)},
		Risks:           []string{"volume drop"},
		Status:          models.DecisionStatusPending,
		CreatedAt:       day0,
		UpdatedAt:       day0,
	}
	require.NoError(t, store.Decisions.Create(ctx, d))

	ok, err := store.Decisions.TransitionStatus(ctx, "d1", models.DecisionStatusAccepted, models.DecisionStatusImplemented, nil, day0)
	require.NoError(t, err)
	assert.False(t, ok, "stale from status must not update")

	implementedAt := day0.Add(time.Hour)
	ok, err = store.Decisions.TransitionStatus(ctx, "d1", models.DecisionStatusPending, models.DecisionStatusImplemented, &implementedAt, implementedAt)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.Decisions.GetByID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, models.DecisionStatusImplemented, got.Status)
	require.NotNil(t, got.ImplementedAt)
	assert.True(t, got.ImplementedAt.Equal(implementedAt))
	assert.Equal(t, d.PredictedImpact, got.PredictedImpact)
	assert.Equal(t, "a", got.Target.EntityID)

	pending, err := store.Decisions.ListByStatus(ctx, "r1", models.DecisionStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := store.Decisions.ListByStatus(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	outcome := &models.DecisionOutcome{ID: "o1", DecisionID: "d1", EvaluatedAt: day0, AccuracyScore: 0.8, Evaluation: "highly accurate"}
	require.NoError(t, store.Decisions.CreateOutcome(ctx, outcome))
	err = store.Decisions.CreateOutcome(ctx, &models.DecisionOutcome{ID: "o2", DecisionID: "d1", EvaluatedAt: day0})
	assert.ErrorIs(t, err, models.ErrAlreadyExists)

	stored, err := store.Decisions.GetOutcome(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 0.8, stored.AccuracyScore)

	outcomes, err := store.Decisions.ListOutcomes(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, outcomes, 1)

	_, err = store.Decisions.GetOutcome(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestInsightsActiveAndDecimalRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	live := &models.Insight{
		ID: "i1", RestaurantID: "r1", Type: models.InsightTypeRevenueChange, Severity: models.SeverityWarning,
		CurrentRevenue:    decimal.RequireFromString("12000.10"),
		ComparisonRevenue: decimal.RequireFromString("10000.05"),
		TotalChange:       decimal.RequireFromString("2000.05"),
		Factors: []models.CausalFactor{
			{Factor: models.FactorVolume, Contribution: decimal.RequireFromString("2000.05"), ContributionPct: 100, Direction: models.DirectionUp},
		},
		Assumptions: []string{"mix is a residual"},
		CreatedAt:   day0,
		ExpiresAt:   day0.AddDate(0, 0, 7),
	}
	expired := &models.Insight{ID: "i2", RestaurantID: "r1", CreatedAt: day0.AddDate(0, 0, -10), ExpiresAt: day0.AddDate(0, 0, -3)}
	require.NoError(t, store.Insights.Create(ctx, live))
	require.NoError(t, store.Insights.Create(ctx, expired))

	active, err := store.Insights.GetActive(ctx, "r1", day0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].TotalChange.Equal(decimal.RequireFromString("2000.05")))
	require.NotNil(t, active[0].Factor(models.FactorVolume))
	assert.True(t, active[0].Factor(models.FactorVolume).Contribution.Equal(live.TotalChange))
}
