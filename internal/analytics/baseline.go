package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/chrisdamba/profitlens/internal/output"
	"github.com/chrisdamba/profitlens/internal/repositories"
	"github.com/chrisdamba/profitlens/internal/stats"
	"github.com/lucsky/cuid"
	"golang.org/x/sync/errgroup"
)

// fullConfidenceDays is the sample size at which a baseline stops being penalised
// for short history.
const fullConfidenceDays = 30.0

// BaselineEngine computes versioned per-item statistical baselines.
type BaselineEngine struct {
	base
}

func NewBaselineEngine(store *repositories.Store, cfg models.AnalyticsConfig, logger *slog.Logger, opts ...Option) *BaselineEngine {
	return &BaselineEngine{base: newBase(store, cfg, logger, "baseline", opts)}
}

// ComputeItemBaseline appends a new baseline version for the item from the
// lookbackDays ending now. lookbackDays <= 0 uses the configured window.
func (e *BaselineEngine) ComputeItemBaseline(ctx context.Context, itemID string, lookbackDays int) (b *models.ItemBaseline, err error) {
	defer observe("baseline", time.Now(), &err)
	if lookbackDays <= 0 {
		lookbackDays = e.cfg.BaselineLookbackDays
	}

	item, err := e.store.MenuItems.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("menu item %s: %w", itemID, err)
		}
		return nil, models.NewComputationError("load menu item", err)
	}

	now := e.now()
	windowStart := now.Add(-time.Duration(lookbackDays) * day)
	orders, err := e.store.Orders.GetCompleted(ctx, models.OrderFilter{
		RestaurantID: item.RestaurantID,
		MenuItemID:   itemID,
		From:         windowStart,
		To:           now,
	})
	if err != nil {
		return nil, models.NewComputationError("load item orders", err)
	}

	series := dailySeries(orders, itemID)
	if len(series) < e.cfg.BaselineMinDays {
		e.logger.Debug("not enough history for baseline",
			"menu_item_id", itemID, "days", len(series), "min_days", e.cfg.BaselineMinDays)
		return nil, fmt.Errorf("menu item %s has %d days of sales, need %d: %w",
			itemID, len(series), e.cfg.BaselineMinDays, models.ErrInsufficientData)
	}

	quantities := make([]float64, len(series))
	revenues := make([]float64, len(series))
	for i, p := range series {
		quantities[i] = p.Quantity
		revenues[i] = p.Revenue
	}

	b = &models.ItemBaseline{
		ID:               cuid.New(),
		MenuItemID:       itemID,
		RestaurantID:     item.RestaurantID,
		WindowStart:      windowStart,
		WindowEnd:        now,
		SampleDays:       len(series),
		AvgDailyQuantity: stats.Mean(quantities),
		StdDailyQuantity: stats.StandardDeviation(quantities),
		AvgDailyRevenue:  stats.Mean(revenues),
		StdDailyRevenue:  stats.StandardDeviation(revenues),
		Confidence:       baselineConfidence(quantities),
		ComputedAt:       now,
	}
	if elasticity, ok := stats.EstimateElasticity(series, e.cfg.ElasticityMinPriceMove); ok {
		b.PriceElasticity = &elasticity
	}

	err = e.withLock(ctx, "baseline:"+itemID, func() error {
		return e.store.Baselines.AppendVersion(ctx, b)
	})
	if err != nil {
		return nil, models.NewComputationError("append baseline version", err)
	}

	e.logger.Info("baseline computed",
		"menu_item_id", itemID, "version", b.Version, "sample_days", b.SampleDays, "confidence", b.Confidence)
	e.publish(models.TopicBaselineEvents, output.NewBaselineEvent(b))
	return b, nil
}

// baselineConfidence is max(0, 1 - cv) scaled down for fewer than 30 sample days.
func baselineConfidence(quantities []float64) float64 {
	if stats.Mean(quantities) == 0 {
		return 0
	}
	cv := stats.CoefficientOfVariation(quantities)
	sampleFactor := math.Min(1, float64(len(quantities))/fullConfidenceDays)
	return stats.Clamp(math.Max(0, 1-cv)*sampleFactor, 0, 1)
}

// GetBaselineComparison measures currentValue (daily quantity) against the item's
// latest baseline. It returns nil, nil when no baseline exists yet.
func (e *BaselineEngine) GetBaselineComparison(ctx context.Context, itemID string, currentValue float64) (*models.BaselineComparison, error) {
	b, err := e.store.Baselines.GetLatest(ctx, itemID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, models.NewComputationError("load latest baseline", err)
	}
	return e.compare(b, currentValue), nil
}

func (e *BaselineEngine) compare(b *models.ItemBaseline, currentValue float64) *models.BaselineComparison {
	dev := stats.Deviation(currentValue, b.AvgDailyQuantity, b.StdDailyQuantity)
	perf := models.PerformanceNormal
	switch {
	case dev > e.cfg.DeviationThreshold:
		perf = models.PerformanceAbove
	case dev < -e.cfg.DeviationThreshold:
		perf = models.PerformanceBelow
	}
	return &models.BaselineComparison{
		MenuItemID:      b.MenuItemID,
		BaselineVersion: b.Version,
		Average:         b.AvgDailyQuantity,
		CurrentValue:    currentValue,
		DeviationSigma:  dev,
		Performance:     perf,
	}
}

// BaselineHistory returns every baseline version of the item, oldest first.
func (e *BaselineEngine) BaselineHistory(ctx context.Context, itemID string) ([]*models.ItemBaseline, error) {
	versions, err := e.store.Baselines.ListVersions(ctx, itemID)
	if err != nil {
		return nil, models.NewComputationError("list baseline versions", err)
	}
	return versions, nil
}

// BaselineAsOf returns the baseline that was current at the given time.
func (e *BaselineEngine) BaselineAsOf(ctx context.Context, itemID string, at time.Time) (*models.ItemBaseline, error) {
	b, err := e.store.Baselines.GetAsOf(ctx, itemID, at)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("no baseline for %s at %s: %w", itemID, at.Format(time.RFC3339), err)
		}
		return nil, models.NewComputationError("load baseline", err)
	}
	return b, nil
}

// ScanAnomalies compares every active item's quantity sold on the given UTC day
// with its latest baseline and returns the ones outside the normal band, largest
// deviation first. Items without a baseline are skipped.
func (e *BaselineEngine) ScanAnomalies(ctx context.Context, restaurantID string, on time.Time) (_ []*models.BaselineComparison, err error) {
	defer observe("anomalies", time.Now(), &err)

	items, err := e.store.MenuItems.GetByRestaurantID(ctx, restaurantID)
	if err != nil {
		return nil, models.NewComputationError("load menu items", err)
	}
	from := startOfDay(on)
	orders, err := e.store.Orders.GetCompleted(ctx, models.OrderFilter{
		RestaurantID: restaurantID,
		From:         from,
		To:           from.Add(day),
	})
	if err != nil {
		return nil, models.NewComputationError("load orders", err)
	}
	activity := activityByItem(orders)

	var anomalies []*models.BaselineComparison
	for _, item := range items {
		if !item.Active {
			continue
		}
		var qty float64
		if a, ok := activity[item.ID]; ok {
			qty = float64(a.Quantity)
		}
		cmp, err := e.GetBaselineComparison(ctx, item.ID, qty)
		if err != nil {
			return nil, err
		}
		if cmp == nil || cmp.Performance == models.PerformanceNormal {
			continue
		}
		anomalies = append(anomalies, cmp)
	}
	sort.SliceStable(anomalies, func(i, j int) bool {
		return math.Abs(anomalies[i].DeviationSigma) > math.Abs(anomalies[j].DeviationSigma)
	})
	return anomalies, nil
}

// RecomputeSummary counts the outcome of a restaurant-wide recompute.
type RecomputeSummary struct {
	Computed     int `json:"computed"`
	Insufficient int `json:"insufficient"`
}

// RecomputeRestaurant computes a new baseline for every active item of the
// restaurant. Items with too little history are counted, not treated as failures.
func (e *BaselineEngine) RecomputeRestaurant(ctx context.Context, restaurantID string) (RecomputeSummary, error) {
	var summary RecomputeSummary
	items, err := e.store.MenuItems.GetByRestaurantID(ctx, restaurantID)
	if err != nil {
		return summary, models.NewComputationError("load menu items", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, e.cfg.BaselineConcurrency))
	for _, item := range items {
		if !item.Active {
			continue
		}
		itemID := item.ID
		g.Go(func() error {
			_, err := e.ComputeItemBaseline(gctx, itemID, 0)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				summary.Computed++
			case errors.Is(err, models.ErrInsufficientData):
				summary.Insufficient++
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	e.logger.Info("baselines recomputed",
		"restaurant_id", restaurantID, "computed", summary.Computed, "insufficient", summary.Insufficient)
	return summary, nil
}
