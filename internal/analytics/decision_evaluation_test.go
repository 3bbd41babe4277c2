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

// decidedAt leaves 20 measured days plus the maturation week before testNow.
var decidedAt = testNow.AddDate(0, 0, -27)

// sellFrom stores one noon order per day for days days starting at start. qty
// gives the units sold on day k.
func sellFrom(t *testing.T, store *repositories.Store, item *models.MenuItem, start time.Time, days int, price float64, qty func(k int) int) {
	t.Helper()
	orders := make([]*models.Order, 0, days)
	for k := 0; k < days; k++ {
		if n := qty(k); n > 0 {
			orders = append(orders, testhelpers.Order(item.RestaurantID, models.ChannelWalkIn, start.AddDate(0, 0, k), testhelpers.LineAt(item, n, price)))
		}
	}
	testhelpers.SaveOrders(t, store, orders...)
}

func perDay(n int) func(int) int {
	return func(int) int { return n }
}

// implementOnly generates decisions at decidedAt, expects exactly one of the
// given type, records it and marks it implemented.
func implementOnly(t *testing.T, store *repositories.Store, restaurantID string, typ models.DecisionType) *models.Decision {
	t.Helper()
	ctx := context.Background()
	cfg := models.DefaultAnalyticsConfig()
	clock := WithClock(testhelpers.FixedClock(decidedAt))

	decisions, err := NewDecisionEngine(store, cfg, nil, clock).GenerateDecisions(ctx, restaurantID)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	d := decisions[0]
	require.Equal(t, typ, d.Type)

	tracker := NewTracker(store, cfg, nil, clock)
	_, err = tracker.RecordDecision(ctx, d)
	require.NoError(t, err)
	require.NoError(t, tracker.UpdateDecisionStatus(ctx, d.ID, models.DecisionStatusAccepted))
	require.NoError(t, tracker.UpdateDecisionStatus(ctx, d.ID, models.DecisionStatusImplemented))
	return d
}

func evaluateAtTestNow(t *testing.T, store *repositories.Store, id string) *models.EvaluationResult {
	t.Helper()
	evaluator := NewEvaluator(store, models.DefaultAnalyticsConfig(), nil, WithClock(testhelpers.FixedClock(testNow)))
	res, err := evaluator.EvaluateDecision(context.Background(), id)
	require.NoError(t, err)
	return res
}

func TestRepriceForecastThatComesTrueScoresAccurate(t *testing.T) {
	store := testhelpers.NewStore(t)
	r := testhelpers.Restaurant(t, store, 40)
	chips := testhelpers.MenuItem(t, store, r.ID, "Chips", 10, 8, 5)
	sellFrom(t, store, chips, decidedAt.AddDate(0, 0, -30), 30, 10, perDay(10))

	d := implementOnly(t, store, r.ID, models.DecisionReprice)
	// margin improves but revenue falls: 300 at 10 becomes 225 at 11.50
	assert.Greater(t, d.PredictedImpact.Min, 0.0)
	assert.InDelta(t, 3000, d.PredictedImpact.Revenue.BeforeValue, 0.001)
	assert.InDelta(t, 2587.5, d.PredictedImpact.Revenue.AfterValue, 0.001)
	assert.InDelta(t, -13.75, d.PredictedImpact.Revenue.PercentChange, 0.001)

	// 7.5 a day at the new price, as assumed
	sellFrom(t, store, chips, decidedAt, 20, 11.5, func(k int) int { return 7 + k%2 })

	res := evaluateAtTestNow(t, store, d.ID)
	assert.InDelta(t, 100, res.Actual.BeforeValue, 1e-9)
	assert.InDelta(t, 86.25, res.Actual.AfterValue, 1e-9)
	assert.InDelta(t, -13.75, res.Actual.PercentChange, 1e-9)
	assert.InDelta(t, 1, res.Accuracy, 0.001)
	assert.Equal(t, "Prediction was highly accurate", res.Evaluation)
}

func TestPromoteForecastThatComesTrueScoresAccurate(t *testing.T) {
	store := testhelpers.NewStore(t)
	r := testhelpers.Restaurant(t, store, 40)
	lobster := testhelpers.MenuItem(t, store, r.ID, "Lobster", 40, 20, 12)
	burger := testhelpers.MenuItem(t, store, r.ID, "Burger", 15, 5, 10)
	sellFrom(t, store, lobster, decidedAt.AddDate(0, 0, -30), 30, 40, perDay(1))
	sellFrom(t, store, burger, decidedAt.AddDate(0, 0, -30), 30, 15, perDay(10))

	d := implementOnly(t, store, r.ID, models.DecisionPromote)
	assert.Equal(t, lobster.ID, d.Target.EntityID)
	assert.InDelta(t, 1200, d.PredictedImpact.Revenue.BeforeValue, 0.001)
	assert.InDelta(t, 1740, d.PredictedImpact.Revenue.AfterValue, 0.001)
	assert.InDelta(t, 45, d.PredictedImpact.Revenue.PercentChange, 0.001)

	// 29 lobsters over 20 days is the assumed 45% lift
	sellFrom(t, store, lobster, decidedAt, 20, 40, func(k int) int {
		if k < 9 {
			return 2
		}
		return 1
	})
	sellFrom(t, store, burger, decidedAt, 20, 15, perDay(10))

	res := evaluateAtTestNow(t, store, d.ID)
	assert.InDelta(t, 40, res.Actual.BeforeValue, 1e-9)
	assert.InDelta(t, 58, res.Actual.AfterValue, 1e-9)
	assert.InDelta(t, 45, res.Actual.PercentChange, 1e-9)
	assert.InDelta(t, 1, res.Accuracy, 0.001)
	assert.Equal(t, "Prediction was highly accurate", res.Evaluation)
}

func TestRemoveForecastThatComesTrueScoresAccurate(t *testing.T) {
	store := testhelpers.NewStore(t)
	r := testhelpers.Restaurant(t, store, 40)
	beef := testhelpers.MenuItem(t, store, r.ID, "Beef Wellington", 12, 9, 40)
	burger := testhelpers.MenuItem(t, store, r.ID, "Burger", 15, 5, 10)
	sellFrom(t, store, beef, decidedAt.AddDate(0, 0, -30), 30, 12, perDay(1))
	sellFrom(t, store, burger, decidedAt.AddDate(0, 0, -30), 30, 15, perDay(10))

	d := implementOnly(t, store, r.ID, models.DecisionRemove)
	assert.Equal(t, beef.ID, d.Target.EntityID)
	assert.Greater(t, d.PredictedImpact.Min, 0.0)
	// 4860 less 360 of beef, plus half of its 30 units moving to burgers at 15
	assert.InDelta(t, 4860, d.PredictedImpact.Revenue.BeforeValue, 0.001)
	assert.InDelta(t, 4725, d.PredictedImpact.Revenue.AfterValue, 0.001)
	assert.Less(t, d.PredictedImpact.Revenue.PercentChange, 0.0)

	// beef is gone and half its diners order a burger instead
	sellFrom(t, store, burger, decidedAt, 20, 15, func(k int) int { return 10 + k%2 })

	res := evaluateAtTestNow(t, store, d.ID)
	assert.InDelta(t, 162, res.Actual.BeforeValue, 1e-9)
	assert.InDelta(t, 157.5, res.Actual.AfterValue, 1e-9)
	assert.InDelta(t, d.PredictedImpact.Revenue.PercentChange, res.Actual.PercentChange, 0.01)
	assert.GreaterOrEqual(t, res.Accuracy, 0.99)
	assert.Equal(t, "Prediction was highly accurate", res.Evaluation)
}

func TestRepriceForecastMissesWhenVolumeFallsHarder(t *testing.T) {
	store := testhelpers.NewStore(t)
	r := testhelpers.Restaurant(t, store, 40)
	chips := testhelpers.MenuItem(t, store, r.ID, "Chips", 10, 8, 5)
	sellFrom(t, store, chips, decidedAt.AddDate(0, 0, -30), 30, 10, perDay(10))
	d := implementOnly(t, store, r.ID, models.DecisionReprice)

	// half the volume instead of three quarters
	sellFrom(t, store, chips, decidedAt, 20, 11.5, perDay(5))

	res := evaluateAtTestNow(t, store, d.ID)
	assert.InDelta(t, -42.5, res.Actual.PercentChange, 1e-9)
	assert.Less(t, res.Accuracy, 0.5)
	assert.Equal(t, "Prediction was off; adjusting models", res.Evaluation)
}
