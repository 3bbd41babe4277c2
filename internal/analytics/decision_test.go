package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/chrisdamba/profitlens/internal/repositories"
	"github.com/chrisdamba/profitlens/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyIsTotal(t *testing.T) {
	margins := []float64{-5, 0, 4.99, 5, 5.01, 25}
	for p := 0.0; p <= 100; p += 0.5 {
		for _, m := range margins {
			q := Classify(p, m, 5)
			popular, profitable := p >= 50, m >= 5
			switch q {
			case models.QuadrantStar:
				assert.True(t, popular && profitable)
			case models.QuadrantPlowhorse:
				assert.True(t, popular && !profitable)
			case models.QuadrantPuzzle:
				assert.True(t, !popular && profitable)
			case models.QuadrantDog:
				assert.True(t, !popular && !profitable)
			default:
				t.Fatalf("unclassified popularity %v margin %v", p, m)
			}
		}
	}
}

func TestClassifyBoundaries(t *testing.T) {
	assert.Equal(t, models.QuadrantStar, Classify(50, 5, 5))
	assert.Equal(t, models.QuadrantPuzzle, Classify(49.99, 5, 5))
	assert.Equal(t, models.QuadrantPlowhorse, Classify(50, 4.99, 5))
	assert.Equal(t, models.QuadrantDog, Classify(49.99, 4.99, 5))
}

func TestPopularity(t *testing.T) {
	assert.Equal(t, 50.0, Popularity(10, 10))
	assert.Equal(t, 25.0, Popularity(5, 10))
	assert.Equal(t, 100.0, Popularity(40, 10))
	assert.Equal(t, 0.0, Popularity(0, 10))
	assert.Equal(t, 0.0, Popularity(10, 0))
}

func newDecisionEngine(store *repositories.Store) *DecisionEngine {
	return NewDecisionEngine(store, models.DefaultAnalyticsConfig(), nil, WithClock(testhelpers.FixedClock(testNow)))
}

// atHour returns a time daysAgo days before testNow at the given UTC hour.
func atHour(daysAgo, hour int) time.Time {
	d := testNow.AddDate(0, 0, -daysAgo)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.UTC)
}

func sellOrders(t *testing.T, store *repositories.Store, item *models.MenuItem, channel models.Channel, hour, orders, qty int) []*models.Order {
	t.Helper()
	out := make([]*models.Order, 0, orders)
	for i := 0; i < orders; i++ {
		out = append(out, testhelpers.Order(item.RestaurantID, channel, atHour(i%25+1, hour), testhelpers.Line(item, qty)))
	}
	return out
}

func assertImpactInvariants(t *testing.T, decisions []*models.Decision) {
	t.Helper()
	for _, d := range decisions {
		assert.LessOrEqual(t, d.PredictedImpact.Min, d.PredictedImpact.Max, d.Target.Name)
		assert.GreaterOrEqual(t, d.PredictedImpact.Confidence, 0)
		assert.LessOrEqual(t, d.PredictedImpact.Confidence, 100)
		assert.Equal(t, models.DecisionStatusPending, d.Status)
		assert.NotEmpty(t, d.ID)
		assert.NotEmpty(t, d.Rationale)
		assert.NotEmpty(t, d.Risks)
	}
}

type menuFixture struct {
	store                               *repositories.Store
	rest                                *models.Restaurant
	burger, chips, lobster, beef, salad *models.MenuItem
}

func newMenuFixture(t *testing.T) *menuFixture {
	store := testhelpers.NewStore(t)
	r := testhelpers.Restaurant(t, store, 40)
	f := &menuFixture{
		store:   store,
		rest:    r,
		burger:  testhelpers.MenuItem(t, store, r.ID, "Burger", 15, 5, 10),
		chips:   testhelpers.MenuItem(t, store, r.ID, "Chips", 6, 4.5, 5),
		lobster: testhelpers.MenuItem(t, store, r.ID, "Lobster", 40, 20, 12),
		beef:    testhelpers.MenuItem(t, store, r.ID, "Beef Wellington", 12, 9, 40),
		salad:   testhelpers.MenuItem(t, store, r.ID, "Side Salad", 5, 2, 5),
	}
	var orders []*models.Order
	orders = append(orders, sellOrders(t, store, f.burger, models.ChannelWalkIn, 12, 10, 10)...)
	orders = append(orders, sellOrders(t, store, f.chips, models.ChannelWalkIn, 12, 12, 10)...)
	orders = append(orders, sellOrders(t, store, f.lobster, models.ChannelWalkIn, 12, 10, 1)...)
	orders = append(orders, sellOrders(t, store, f.beef, models.ChannelWalkIn, 12, 10, 1)...)
	orders = append(orders, sellOrders(t, store, f.salad, models.ChannelWalkIn, 12, 10, 1)...)
	testhelpers.SaveOrders(t, store, orders...)
	return f
}

func TestGenerateDecisionsMenu(t *testing.T) {
	f := newMenuFixture(t)

	decisions, err := newDecisionEngine(f.store).GenerateDecisions(context.Background(), f.rest.ID)
	require.NoError(t, err)
	require.Len(t, decisions, 3)
	assertImpactInvariants(t, decisions)

	promote, reprice, remove := decisions[0], decisions[1], decisions[2]

	assert.Equal(t, models.DecisionPromote, promote.Type)
	assert.Equal(t, f.lobster.ID, promote.Target.EntityID)
	assert.Equal(t, models.QuadrantPuzzle, promote.Quadrant)
	assert.Equal(t, models.PriorityHigh, promote.Priority)
	assert.Equal(t, 75, promote.PredictedImpact.Confidence)
	assert.InDelta(t, 63, promote.PredictedImpact.Min, 0.001)
	assert.InDelta(t, 108, promote.PredictedImpact.Max, 0.001)
	// 10 lobsters at 40, lifted 45%
	assert.InDelta(t, 400, promote.PredictedImpact.Revenue.BeforeValue, 0.001)
	assert.InDelta(t, 580, promote.PredictedImpact.Revenue.AfterValue, 0.001)
	assert.InDelta(t, 45, promote.PredictedImpact.Revenue.PercentChange, 0.001)
	assert.Contains(t, promote.Risks[0], "cannibalization")

	assert.Equal(t, models.DecisionReprice, reprice.Type)
	assert.Equal(t, f.chips.ID, reprice.Target.EntityID)
	assert.Equal(t, models.QuadrantPlowhorse, reprice.Quadrant)
	assert.Equal(t, models.PriorityHigh, reprice.Priority)
	assert.Equal(t, 70, reprice.PredictedImpact.Confidence)
	assert.InDelta(t, 28.8, reprice.PredictedImpact.Min, 0.001)
	assert.InDelta(t, 39.6, reprice.PredictedImpact.Max, 0.001)
	// 120 at 6 becomes 90 at 6.90: margin rises while revenue falls
	assert.InDelta(t, 720, reprice.PredictedImpact.Revenue.BeforeValue, 0.001)
	assert.InDelta(t, 621, reprice.PredictedImpact.Revenue.AfterValue, 0.001)
	assert.InDelta(t, -13.75, reprice.PredictedImpact.Revenue.PercentChange, 0.001)
	assert.Contains(t, reprice.Rationale, "No price elasticity measured yet, assuming 1.20")

	assert.Equal(t, models.DecisionRemove, remove.Type)
	assert.Equal(t, f.beef.ID, remove.Target.EntityID)
	assert.Equal(t, models.QuadrantDog, remove.Quadrant)
	assert.Equal(t, models.PriorityMedium, remove.Priority)
	assert.Equal(t, 65, remove.PredictedImpact.Confidence)
	assert.InDelta(t, 534, remove.PredictedImpact.Min, 0.001)
	assert.InDelta(t, 890, remove.PredictedImpact.Max, 0.001)
	// 2790 less 120 of beef, plus half of its 10 units at the 11.125 average of the rest
	assert.InDelta(t, 2790, remove.PredictedImpact.Revenue.BeforeValue, 0.001)
	assert.InDelta(t, 2725.625, remove.PredictedImpact.Revenue.AfterValue, 0.01)
	assert.Less(t, remove.PredictedImpact.Revenue.PercentChange, 0.0)
	assert.Contains(t, remove.Recommendation, "under 15 minutes")
}

func TestGenerateDecisionsRepriceReportsMeasuredElasticity(t *testing.T) {
	f := newMenuFixture(t)
	elasticity := -1.5
	require.NoError(t, f.store.Baselines.AppendVersion(context.Background(), &models.ItemBaseline{
		ID:              "baseline-chips",
		MenuItemID:      f.chips.ID,
		RestaurantID:    f.rest.ID,
		SampleDays:      20,
		PriceElasticity: &elasticity,
		ComputedAt:      testNow.AddDate(0, 0, -1),
	}))

	decisions, err := newDecisionEngine(f.store).GenerateDecisions(context.Background(), f.rest.ID)
	require.NoError(t, err)
	for _, d := range decisions {
		if d.Type == models.DecisionReprice {
			assert.Contains(t, d.Rationale, "elasticity is -1.50")
			return
		}
	}
	t.Fatal("no reprice decision generated")
}

func TestGenerateDecisionsRepriceFallsBackToConfiguredElasticity(t *testing.T) {
	store := testhelpers.NewStore(t)
	r := testhelpers.Restaurant(t, store, 40)
	chips := &models.MenuItem{
		ID:           "chips-no-elasticity",
		RestaurantID: r.ID,
		Name:         "Chips",
		Category:     "sides",
		CostPrice:    4.5,
		SellingPrice: 6,
		PrepTime:     5,
		Active:       true,
		CreatedAt:    testNow.AddDate(0, -1, 0),
	}
	require.NoError(t, store.MenuItems.Create(context.Background(), chips))
	testhelpers.SaveOrders(t, store, sellOrders(t, store, chips, models.ChannelWalkIn, 12, 10, 10)...)

	cfg := models.DefaultAnalyticsConfig()
	cfg.DefaultElasticity = 0.9
	engine := NewDecisionEngine(store, cfg, nil, WithClock(testhelpers.FixedClock(testNow)))

	decisions, err := engine.GenerateDecisions(context.Background(), r.ID)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, models.DecisionReprice, decisions[0].Type)
	assert.Contains(t, decisions[0].Rationale, "assuming 0.90")
}

func TestGenerateDecisionsChannel(t *testing.T) {
	store := testhelpers.NewStore(t)
	r := testhelpers.Restaurant(t, store, 40)
	pizza := testhelpers.MenuItem(t, store, r.ID, "Pizza", 10, 3, 12)

	orders := sellOrders(t, store, pizza, models.ChannelWalkIn, 12, 10, 5)
	for _, o := range sellOrders(t, store, pizza, models.ChannelUberEats, 12, 10, 5) {
		o.Fees = 15
		o.ComputeTotals()
		orders = append(orders, o)
	}
	testhelpers.SaveOrders(t, store, orders...)

	decisions, err := newDecisionEngine(store).GenerateDecisions(context.Background(), r.ID)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assertImpactInvariants(t, decisions)

	d := decisions[0]
	assert.Equal(t, models.CategoryChannel, d.Category)
	assert.Equal(t, models.TargetChannel, d.Target.Kind)
	assert.Equal(t, models.PriorityHigh, d.Priority)
	assert.Equal(t, 75, d.PredictedImpact.Confidence)
	// (0.5 - 0.3) * 500 * 0.5
	assert.InDelta(t, 30, d.PredictedImpact.Min, 0.001)
	assert.InDelta(t, 55, d.PredictedImpact.Max, 0.001)
	assert.InDelta(t, 1000, d.PredictedImpact.Revenue.BeforeValue, 0.001)
	assert.InDelta(t, 1050, d.PredictedImpact.Revenue.AfterValue, 0.001)
}

func TestGenerateDecisionsCapacity(t *testing.T) {
	store := testhelpers.NewStore(t)
	r := testhelpers.Restaurant(t, store, 20)
	pizza := testhelpers.MenuItem(t, store, r.ID, "Pizza", 10, 3, 12)

	orders := sellOrders(t, store, pizza, models.ChannelWalkIn, 19, 10, 5)
	orders = append(orders, sellOrders(t, store, pizza, models.ChannelWalkIn, 12, 2, 5)...)
	testhelpers.SaveOrders(t, store, orders...)

	decisions, err := newDecisionEngine(store).GenerateDecisions(context.Background(), r.ID)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assertImpactInvariants(t, decisions)

	d := decisions[0]
	assert.Equal(t, models.DecisionOptimize, d.Type)
	assert.Equal(t, models.CategoryCapacity, d.Category)
	assert.Equal(t, models.PriorityMedium, d.Priority)
	assert.Equal(t, 65, d.PredictedImpact.Confidence)
	// RevPASH gap 500/1800 - 100/5400 over 20 seats, 9 off-peak hours, 30 days at 10%
	assert.InDelta(t, 84, d.PredictedImpact.Min, 0.01)
	assert.InDelta(t, 168, d.PredictedImpact.Max, 0.01)
	assert.InDelta(t, 600, d.PredictedImpact.Revenue.BeforeValue, 0.01)
	assert.InDelta(t, 740, d.PredictedImpact.Revenue.AfterValue, 0.01)
}

func TestGenerateDecisionsCapacityNeedsTwiceOffPeak(t *testing.T) {
	store := testhelpers.NewStore(t)
	r := testhelpers.Restaurant(t, store, 20)
	pizza := testhelpers.MenuItem(t, store, r.ID, "Pizza", 10, 3, 12)

	// peak 300 over 3h against off-peak 450 over 9h: exactly 2x per hour
	orders := sellOrders(t, store, pizza, models.ChannelWalkIn, 19, 6, 5)
	orders = append(orders, sellOrders(t, store, pizza, models.ChannelWalkIn, 12, 9, 5)...)
	testhelpers.SaveOrders(t, store, orders...)

	decisions, err := newDecisionEngine(store).GenerateDecisions(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Empty(t, decisions)
}

func TestGenerateDecisionsNoOrders(t *testing.T) {
	store := testhelpers.NewStore(t)
	r := testhelpers.Restaurant(t, store, 40)
	testhelpers.MenuItem(t, store, r.ID, "Pizza", 10, 3, 12)

	decisions, err := newDecisionEngine(store).GenerateDecisions(context.Background(), r.ID)
	require.NoError(t, err)
	assert.NotNil(t, decisions)
	assert.Empty(t, decisions)
}

func TestSortDecisions(t *testing.T) {
	decisions := []*models.Decision{
		{ID: "a", Priority: models.PriorityMedium, PredictedImpact: models.Impact{Max: 900}},
		{ID: "b", Priority: models.PriorityHigh, PredictedImpact: models.Impact{Max: 10}},
		{ID: "c", Priority: models.PriorityHigh, PredictedImpact: models.Impact{Max: 50}},
		{ID: "d", Priority: models.PriorityLow, PredictedImpact: models.Impact{Max: 5000}},
	}
	sortDecisions(decisions)
	var ids []string
	for _, d := range decisions {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"c", "b", "a", "d"}, ids)
}
