package workflows

import (
	"context"
	"errors"

	"github.com/chrisdamba/profitlens/internal/analytics"
	"github.com/chrisdamba/profitlens/internal/models"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

// Activities runs the analytic engines on behalf of the maintenance workflow.
type Activities struct {
	Engines *analytics.Engines
}

// AnalyzeResult reports the revenue analysis step. Skipped is set when there was
// not enough history to decompose.
type AnalyzeResult struct {
	InsightID     string   `json:"insight_id,omitempty"`
	PercentChange float64  `json:"percent_change"`
	Severity      string   `json:"severity,omitempty"`
	Skipped       bool     `json:"skipped"`
	Reason        string   `json:"reason,omitempty"`
	Factors       []string `json:"factors,omitempty"`
}

// nonRetryable marks failures that retrying cannot fix. Store failures stay retryable.
func nonRetryable(err error) error {
	var ce *models.ComputationError
	if err == nil || errors.As(err, &ce) {
		return err
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), "AnalyticsError", err)
}

func (a *Activities) RecomputeBaselines(ctx context.Context, restaurantID string) (analytics.RecomputeSummary, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Recomputing baselines", "restaurantID", restaurantID)

	summary, err := a.Engines.Baselines.RecomputeRestaurant(ctx, restaurantID)
	if err != nil {
		return summary, nonRetryable(err)
	}
	logger.Info("Baselines recomputed", "computed", summary.Computed, "insufficient", summary.Insufficient)
	return summary, nil
}

func (a *Activities) EvaluateImplementedDecisions(ctx context.Context, restaurantID string) (analytics.EvaluationSummary, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Evaluating implemented decisions", "restaurantID", restaurantID)

	summary, err := a.Engines.Evaluator.EvaluateImplemented(ctx, restaurantID)
	if err != nil {
		return summary, nonRetryable(err)
	}
	logger.Info("Decisions evaluated", "evaluated", summary.Evaluated, "notYetReady", summary.NotYetReady)
	return summary, nil
}

func (a *Activities) AnalyzeRevenue(ctx context.Context, restaurantID string, currentDays, comparisonDays int) (AnalyzeResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Analysing revenue change", "restaurantID", restaurantID)

	in, err := a.Engines.Insights.AnalyzeRevenueChange(ctx, restaurantID, currentDays, comparisonDays)
	if errors.Is(err, models.ErrInsufficientData) {
		logger.Info("Revenue analysis skipped", "reason", err.Error())
		return AnalyzeResult{Skipped: true, Reason: err.Error()}, nil
	}
	if err != nil {
		return AnalyzeResult{}, nonRetryable(err)
	}

	res := AnalyzeResult{InsightID: in.ID, PercentChange: in.PercentChange, Severity: string(in.Severity)}
	for _, f := range in.Factors {
		res.Factors = append(res.Factors, f.Factor+"="+f.Contribution.StringFixed(2))
	}
	return res, nil
}
