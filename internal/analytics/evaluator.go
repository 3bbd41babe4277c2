package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/chrisdamba/profitlens/internal/output"
	"github.com/chrisdamba/profitlens/internal/repositories"
	"github.com/chrisdamba/profitlens/internal/stats"
	"github.com/lucsky/cuid"
)

const (
	highlyAccurate     = 0.8
	moderatelyAccurate = 0.5
)

// Evaluator measures what implemented decisions actually did.
type Evaluator struct {
	base
}

func NewEvaluator(store *repositories.Store, cfg models.AnalyticsConfig, logger *slog.Logger, opts ...Option) *Evaluator {
	return &Evaluator{base: newBase(store, cfg, logger, "evaluator", opts)}
}

// Accuracy scores an actual percent change against the predicted one on [0, 1].
func Accuracy(predicted, actual float64) float64 {
	if predicted == 0 && actual == 0 {
		return 1
	}
	denom := math.Max(math.Abs(predicted), math.Abs(actual))
	return stats.Round(math.Max(0, 1-math.Abs(predicted-actual)/denom), 4)
}

// EvaluationText describes an accuracy score. Scores on a tier edge belong to the
// higher tier.
func EvaluationText(accuracy float64) string {
	switch {
	case accuracy >= highlyAccurate:
		return "Prediction was highly accurate"
	case accuracy >= moderatelyAccurate:
		return "Prediction was moderately accurate"
	}
	return "Prediction was off; adjusting models"
}

// measuredItem is the menu item whose revenue a decision is measured on. Removals
// and restaurant-wide decisions are measured on total revenue.
func measuredItem(d *models.Decision) string {
	if d.Target.Kind == models.TargetItem && d.Type != models.DecisionRemove {
		return d.Target.EntityID
	}
	return ""
}

// result pairs an outcome with its decision and, for item decisions, the
// baseline that was current when the decision was made.
func (e *Evaluator) result(ctx context.Context, d *models.Decision, o *models.DecisionOutcome) (*models.EvaluationResult, error) {
	res := &models.EvaluationResult{
		DecisionID: d.ID,
		Predicted:  d.PredictedImpact.Revenue,
		Actual:     o.ActualImpact.Revenue,
		Accuracy:   o.AccuracyScore,
		Evaluation: o.Evaluation,
		Outcome:    o,
	}
	if d.Target.Kind != models.TargetItem {
		return res, nil
	}
	b, err := e.store.Baselines.GetAsOf(ctx, d.Target.EntityID, d.CreatedAt)
	switch {
	case err == nil:
		res.Baseline = b
	case !errors.Is(err, models.ErrNotFound):
		return nil, models.NewComputationError("load decision-time baseline", err)
	}
	return res, nil
}

// EvaluateDecision compares an implemented decision's predicted revenue change with
// the measured one and records the outcome. A decision that already has an
// outcome returns it unchanged.
func (e *Evaluator) EvaluateDecision(ctx context.Context, id string) (res *models.EvaluationResult, err error) {
	defer observe("evaluator", time.Now(), &err)

	d, err := e.store.Decisions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("decision %s: %w", id, err)
		}
		return nil, models.NewComputationError("load decision", err)
	}
	if d.Status != models.DecisionStatusImplemented || d.ImplementedAt == nil {
		return nil, fmt.Errorf("decision %s is %s: %w", id, d.Status, models.ErrNotYetEvaluable)
	}

	now := e.now()
	implementedAt := *d.ImplementedAt
	maturation := time.Duration(e.cfg.MaturationDays) * day
	// the after window ends a maturation period before now and must not be empty
	afterEnd := now.Add(-maturation)
	if !afterEnd.After(implementedAt) {
		return nil, fmt.Errorf("decision %s implemented %s ago, needs more than %s: %w",
			id, now.Sub(implementedAt).Round(time.Hour), maturation, models.ErrNotYetEvaluable)
	}

	if existing, err := e.existingOutcome(ctx, d); err != nil || existing != nil {
		return existing, err
	}

	beforeDays := float64(e.cfg.PreWindowDays)
	afterDays := afterEnd.Sub(implementedAt).Hours() / 24
	itemID := measuredItem(d)
	orders, err := e.store.Orders.GetCompleted(ctx, models.OrderFilter{
		RestaurantID: d.RestaurantID,
		MenuItemID:   itemID,
		From:         implementedAt.Add(-time.Duration(e.cfg.PreWindowDays) * day),
		To:           afterEnd,
	})
	if err != nil {
		return nil, models.NewComputationError("load orders", err)
	}
	var beforeRevenue, afterRevenue float64
	for _, o := range orders {
		r := revenueOf([]*models.Order{o}, itemID)
		if o.PlacedAt.Before(implementedAt) {
			beforeRevenue += r
		} else {
			afterRevenue += r
		}
	}

	actual := models.NewRevenueImpact(stats.Round(beforeRevenue/beforeDays, 2), stats.Round(afterRevenue/afterDays, 2))
	actual.PercentChange = stats.Round(actual.PercentChange, 2)
	accuracy := Accuracy(d.PredictedImpact.Revenue.PercentChange, actual.PercentChange)
	change := stats.Round((actual.AfterValue-actual.BeforeValue)*afterDays, 2)

	outcome := &models.DecisionOutcome{
		ID:         cuid.New(),
		DecisionID: d.ID,
		ActualImpact: models.Impact{
			Min:        change,
			Max:        change,
			Confidence: 100,
			Revenue:    actual,
		},
		EvaluatedAt:   now,
		AccuracyScore: accuracy,
		Evaluation:    EvaluationText(accuracy),
	}

	err = e.withLock(ctx, "outcome:"+id, func() error {
		return e.store.Decisions.CreateOutcome(ctx, outcome)
	})
	if errors.Is(err, models.ErrAlreadyExists) {
		return e.existingOutcome(ctx, d)
	}
	if err != nil {
		return nil, models.NewComputationError("store outcome", err)
	}

	e.logger.Info("decision evaluated",
		"decision_id", id, "predicted_pct", d.PredictedImpact.Revenue.PercentChange,
		"actual_pct", actual.PercentChange, "accuracy", accuracy)
	e.publish(models.TopicOutcomeEvents, output.NewOutcomeEvent(d, outcome))
	return e.result(ctx, d, outcome)
}

func (e *Evaluator) existingOutcome(ctx context.Context, d *models.Decision) (*models.EvaluationResult, error) {
	o, err := e.store.Decisions.GetOutcome(ctx, d.ID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewComputationError("load outcome", err)
	}
	return e.result(ctx, d, o)
}

// EvaluationSummary counts a batch evaluation run.
type EvaluationSummary struct {
	Evaluated   int `json:"evaluated"`
	NotYetReady int `json:"not_yet_ready"`
}

// EvaluateImplemented evaluates every implemented decision of the restaurant.
// Decisions that have not matured are counted and skipped.
func (e *Evaluator) EvaluateImplemented(ctx context.Context, restaurantID string) (EvaluationSummary, error) {
	var summary EvaluationSummary
	decisions, err := e.store.Decisions.ListByStatus(ctx, restaurantID, models.DecisionStatusImplemented)
	if err != nil {
		return summary, models.NewComputationError("list implemented decisions", err)
	}
	for _, d := range decisions {
		_, err := e.EvaluateDecision(ctx, d.ID)
		switch {
		case err == nil:
			summary.Evaluated++
		case errors.Is(err, models.ErrNotYetEvaluable):
			summary.NotYetReady++
		default:
			return summary, err
		}
	}
	e.logger.Info("implemented decisions evaluated",
		"restaurant_id", restaurantID, "evaluated", summary.Evaluated, "not_yet_ready", summary.NotYetReady)
	return summary, nil
}
