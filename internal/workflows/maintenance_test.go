package workflows

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/chrisdamba/profitlens/internal/analytics"
	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/chrisdamba/profitlens/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

var now = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func seededActivities(t *testing.T) (*Activities, string) {
	t.Helper()
	store := testhelpers.NewStore(t)
	r := testhelpers.Restaurant(t, store, 40)
	gyoza := testhelpers.MenuItem(t, store, r.ID, "Gyoza", 6, 2, 8)
	special := testhelpers.MenuItem(t, store, r.ID, "Chef's Special", 20, 8, 25)

	var orders []*models.Order
	for k := 1; k <= 14; k++ {
		at := now.AddDate(0, 0, -k).Add(time.Hour)
		qty := 10
		if k <= 7 {
			qty = 12
		}
		orders = append(orders, testhelpers.Order(r.ID, models.ChannelWalkIn, at, testhelpers.Line(gyoza, qty)))
		if k <= 3 {
			orders = append(orders, testhelpers.Order(r.ID, models.ChannelWalkIn, at, testhelpers.Line(special, 1)))
		}
	}
	testhelpers.SaveOrders(t, store, orders...)

	engines := analytics.New(store, models.DefaultAnalyticsConfig(), nil, analytics.WithClock(testhelpers.FixedClock(now)))
	return &Activities{Engines: engines}, r.ID
}

func TestDailyMaintenanceWorkflow(t *testing.T) {
	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()

	acts, restaurantID := seededActivities(t)
	env.RegisterActivity(acts)

	env.ExecuteWorkflow(DailyMaintenanceWorkflow, MaintenanceInput{RestaurantID: restaurantID})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var res MaintenanceResult
	require.NoError(t, env.GetWorkflowResult(&res))
	assert.Equal(t, restaurantID, res.RestaurantID)
	assert.Equal(t, analytics.RecomputeSummary{Computed: 1, Insufficient: 1}, res.Baselines)
	assert.Equal(t, analytics.EvaluationSummary{}, res.Evaluations)
	assert.False(t, res.Revenue.Skipped)
	assert.NotEmpty(t, res.Revenue.InsightID)
	assert.Greater(t, res.Revenue.PercentChange, 0.0)

	insights, err := acts.Engines.Insights.GetActiveInsights(context.Background(), restaurantID)
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, res.Revenue.InsightID, insights[0].ID)
}

func TestDailyMaintenanceSkipsThinHistory(t *testing.T) {
	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()

	store := testhelpers.NewStore(t)
	r := testhelpers.Restaurant(t, store, 20)
	testhelpers.MenuItem(t, store, r.ID, "Soup", 5, 1, 5)
	acts := &Activities{Engines: analytics.New(store, models.DefaultAnalyticsConfig(), nil,
		analytics.WithClock(testhelpers.FixedClock(now)))}
	env.RegisterActivity(acts)

	env.ExecuteWorkflow(DailyMaintenanceWorkflow, MaintenanceInput{RestaurantID: r.ID, CurrentDays: 3, ComparisonDays: 3})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var res MaintenanceResult
	require.NoError(t, env.GetWorkflowResult(&res))
	assert.Equal(t, 1, res.Baselines.Insufficient)
	assert.True(t, res.Revenue.Skipped)
	assert.Contains(t, res.Revenue.Reason, "insufficient data")
}

func TestDailyMaintenanceStopsWhenBaselinesFail(t *testing.T) {
	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()

	acts := &Activities{}
	env.RegisterActivity(acts)
	env.OnActivity(acts.RecomputeBaselines, mock.Anything, "r1").
		Return(analytics.RecomputeSummary{}, temporal.NewNonRetryableApplicationError("store offline", "AnalyticsError", nil)).
		Once()

	env.ExecuteWorkflow(DailyMaintenanceWorkflow, MaintenanceInput{RestaurantID: "r1"})
	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store offline")
	env.AssertExpectations(t)
}

func TestDailyMaintenanceDefaultsPeriods(t *testing.T) {
	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()

	acts := &Activities{}
	env.RegisterActivity(acts)
	env.OnActivity(acts.RecomputeBaselines, mock.Anything, "r1").Return(analytics.RecomputeSummary{Computed: 2}, nil)
	env.OnActivity(acts.EvaluateImplementedDecisions, mock.Anything, "r1").Return(analytics.EvaluationSummary{Evaluated: 1}, nil)
	env.OnActivity(acts.AnalyzeRevenue, mock.Anything, "r1", 7, 7).Return(AnalyzeResult{InsightID: "in-1"}, nil).Once()

	env.ExecuteWorkflow(DailyMaintenanceWorkflow, MaintenanceInput{RestaurantID: "r1"})
	require.NoError(t, env.GetWorkflowError())

	var res MaintenanceResult
	require.NoError(t, env.GetWorkflowResult(&res))
	assert.Equal(t, 2, res.Baselines.Computed)
	assert.Equal(t, 1, res.Evaluations.Evaluated)
	assert.Equal(t, "in-1", res.Revenue.InsightID)
	env.AssertExpectations(t)
}

func TestNonRetryable(t *testing.T) {
	assert.NoError(t, nonRetryable(nil))

	storeErr := models.NewComputationError("load orders", errors.New("connection reset"))
	assert.Same(t, storeErr, nonRetryable(storeErr))

	err := nonRetryable(fmt.Errorf("menu item x: %w", models.ErrNotFound))
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.True(t, appErr.NonRetryable())
	assert.Equal(t, "AnalyticsError", appErr.Type())
}
