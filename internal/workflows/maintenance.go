// Package workflows schedules the periodic analytic work on Temporal.
package workflows

import (
	"time"

	"github.com/chrisdamba/profitlens/internal/analytics"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const DailyMaintenanceWorkflowName = "DailyMaintenanceWorkflow"

type MaintenanceInput struct {
	RestaurantID   string `json:"restaurant_id"`
	CurrentDays    int    `json:"current_days"`
	ComparisonDays int    `json:"comparison_days"`
}

type MaintenanceResult struct {
	RestaurantID string                      `json:"restaurant_id"`
	Baselines    analytics.RecomputeSummary  `json:"baselines"`
	Evaluations  analytics.EvaluationSummary `json:"evaluations"`
	Revenue      AnalyzeResult               `json:"revenue"`
}

// DailyMaintenanceWorkflow recomputes baselines first, then evaluates matured
// decisions and analyses the latest revenue change in parallel.
func DailyMaintenanceWorkflow(ctx workflow.Context, in MaintenanceInput) (MaintenanceResult, error) {
	logger := workflow.GetLogger(ctx)
	if in.CurrentDays <= 0 {
		in.CurrentDays = 7
	}
	if in.ComparisonDays <= 0 {
		in.ComparisonDays = 7
	}
	result := MaintenanceResult{RestaurantID: in.RestaurantID}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        5 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        2 * time.Minute,
			MaximumAttempts:        5,
			NonRetryableErrorTypes: []string{"AnalyticsError"},
		},
	})

	var a *Activities
	if err := workflow.ExecuteActivity(ctx, a.RecomputeBaselines, in.RestaurantID).Get(ctx, &result.Baselines); err != nil {
		logger.Error("Baseline recompute failed", "error", err)
		return result, err
	}

	fEvaluate := workflow.ExecuteActivity(ctx, a.EvaluateImplementedDecisions, in.RestaurantID)
	fRevenue := workflow.ExecuteActivity(ctx, a.AnalyzeRevenue, in.RestaurantID, in.CurrentDays, in.ComparisonDays)
	if err := fEvaluate.Get(ctx, &result.Evaluations); err != nil {
		logger.Error("Outcome evaluation failed", "error", err)
		return result, err
	}
	if err := fRevenue.Get(ctx, &result.Revenue); err != nil {
		logger.Error("Revenue analysis failed", "error", err)
		return result, err
	}

	logger.Info("Maintenance completed", "restaurantID", in.RestaurantID,
		"baselines", result.Baselines.Computed, "evaluated", result.Evaluations.Evaluated)
	return result, nil
}
