package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/chrisdamba/profitlens/internal/repositories"
	"github.com/chrisdamba/profitlens/internal/stats"
	"github.com/lucsky/cuid"
	"golang.org/x/sync/errgroup"
)

const (
	promoteConfidence  = 75
	repriceConfidence  = 70
	removeConfidence   = 65
	channelConfidence  = 75
	capacityConfidence = 65

	// popularityMidpoint is the index of an item sold at exactly the per-item average.
	popularityMidpoint = 50.0
	maxPopularity      = 100.0
)

// DecisionEngine turns current menu, channel and capacity aggregates into a
// ranked list of quantified recommendations.
type DecisionEngine struct {
	base
}

func NewDecisionEngine(store *repositories.Store, cfg models.AnalyticsConfig, logger *slog.Logger, opts ...Option) *DecisionEngine {
	return &DecisionEngine{base: newBase(store, cfg, logger, "decision", opts)}
}

// Popularity scores quantity against the per-item average: the average lands on
// 50, capped at 100.
func Popularity(quantity, avgQuantity float64) float64 {
	if avgQuantity <= 0 {
		return 0
	}
	return math.Min(maxPopularity, quantity/avgQuantity*popularityMidpoint)
}

// Classify places an item in its menu engineering quadrant. Values equal to a
// threshold fall in the high bucket.
func Classify(popularity, margin, marginThreshold float64) models.MenuQuadrant {
	popular := popularity >= popularityMidpoint
	profitable := margin >= marginThreshold
	switch {
	case popular && profitable:
		return models.QuadrantStar
	case popular:
		return models.QuadrantPlowhorse
	case profitable:
		return models.QuadrantPuzzle
	}
	return models.QuadrantDog
}

// snapshot is everything the analyses read. It is built once and never mutated.
type snapshot struct {
	restaurant   *models.Restaurant
	items        []*models.MenuItem
	activity     map[string]*itemActivity
	channels     map[models.Channel]*channelStats
	orders       []*models.Order
	totalRevenue float64
	windowDays   int
}

// GenerateDecisions analyses the restaurant over the configured lookback window.
// Decisions are returned unsaved, ordered by priority then maximum impact. No
// completed orders yields an empty list.
func (e *DecisionEngine) GenerateDecisions(ctx context.Context, restaurantID string) (decisions []*models.Decision, err error) {
	defer observe("decision", time.Now(), &err)

	now := e.now()
	from := now.Add(-time.Duration(e.cfg.DecisionLookbackDays) * day)
	orders, err := e.store.Orders.GetCompleted(ctx, models.OrderFilter{RestaurantID: restaurantID, From: from, To: now})
	if err != nil {
		return nil, models.NewComputationError("load orders", err)
	}
	if len(orders) == 0 {
		e.logger.Info("no completed orders, nothing to recommend", "restaurant_id", restaurantID)
		return []*models.Decision{}, nil
	}

	restaurant, err := e.store.Restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("restaurant %s: %w", restaurantID, err)
		}
		return nil, models.NewComputationError("load restaurant", err)
	}
	items, err := e.store.MenuItems.GetByRestaurantID(ctx, restaurantID)
	if err != nil {
		return nil, models.NewComputationError("load menu items", err)
	}

	snap := &snapshot{
		restaurant:   restaurant,
		items:        items,
		activity:     activityByItem(orders),
		channels:     statsByChannel(orders),
		orders:       orders,
		totalRevenue: revenueOf(orders, ""),
		windowDays:   e.cfg.DecisionLookbackDays,
	}

	var menu, channel, capacity []*models.Decision
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		menu, err = e.menuDecisions(gctx, snap)
		return err
	})
	g.Go(func() error {
		channel = e.channelDecisions(snap)
		return nil
	})
	g.Go(func() error {
		capacity = e.capacityDecisions(snap)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	decisions = make([]*models.Decision, 0, len(menu)+len(channel)+len(capacity))
	decisions = append(decisions, menu...)
	decisions = append(decisions, channel...)
	decisions = append(decisions, capacity...)
	for _, d := range decisions {
		d.ID = cuid.New()
		d.RestaurantID = restaurantID
		d.Status = models.DecisionStatusPending
		d.CreatedAt = now
		d.UpdatedAt = now
		decisionsGenerated.WithLabelValues(string(d.Type)).Inc()
	}
	sortDecisions(decisions)

	e.logger.Info("decisions generated", "restaurant_id", restaurantID, "count", len(decisions))
	return decisions, nil
}

func sortDecisions(decisions []*models.Decision) {
	sort.SliceStable(decisions, func(i, j int) bool {
		a, b := decisions[i], decisions[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		return a.PredictedImpact.Max > b.PredictedImpact.Max
	})
}

// impactRange scales a point estimate into a [lo, hi] range, rounded to cents.
// before and after are the revenue levels the decision is measured on: the
// item's revenue, or the restaurant's, over the lookback window.
func impactRange(estimate, lo, hi float64, confidence int, before, after float64) models.Impact {
	low, high := stats.Round(estimate*lo, 2), stats.Round(estimate*hi, 2)
	if low > high {
		low, high = high, low
	}
	return models.Impact{
		Min:        low,
		Max:        high,
		Confidence: confidence,
		Revenue:    models.NewRevenueImpact(stats.Round(before, 2), stats.Round(after, 2)),
	}
}

func (e *DecisionEngine) menuDecisions(ctx context.Context, snap *snapshot) ([]*models.Decision, error) {
	var totalQty int
	for _, item := range snap.items {
		if a, ok := snap.activity[item.ID]; ok {
			totalQty += a.Quantity
		}
	}
	if len(snap.items) == 0 || totalQty == 0 {
		return nil, nil
	}
	avgQty := float64(totalQty) / float64(len(snap.items))
	var soldQty int
	for _, a := range snap.activity {
		soldQty += a.Quantity
	}

	var out []*models.Decision
	for _, item := range snap.items {
		if !item.Active {
			continue
		}
		a := snap.activity[item.ID]
		if a == nil {
			a = &itemActivity{}
		}
		margin := item.Margin()
		quadrant := Classify(Popularity(float64(a.Quantity), avgQty), margin, e.cfg.MarginThreshold)

		var d *models.Decision
		switch quadrant {
		case models.QuadrantPuzzle:
			d = e.promote(item, a, margin)
		case models.QuadrantPlowhorse:
			var err error
			if d, err = e.reprice(ctx, item, a, margin); err != nil {
				return nil, err
			}
		case models.QuadrantDog:
			d = e.remove(item, a, margin, snap.totalRevenue, soldQty)
		}
		if d != nil {
			d.Quadrant = quadrant
			out = append(out, d)
		}
	}
	return out, nil
}

func itemTarget(item *models.MenuItem) models.DecisionTarget {
	return models.DecisionTarget{Kind: models.TargetItem, EntityID: item.ID, Name: item.Name}
}

func (e *DecisionEngine) promote(item *models.MenuItem, a *itemActivity, margin float64) *models.Decision {
	extraUnits := float64(a.Quantity) * e.cfg.PromoteVolumeLift
	estimate := extraUnits * margin
	if estimate <= 0 {
		return nil
	}
	priority := models.PriorityMedium
	if margin > e.cfg.HighMarginThreshold {
		priority = models.PriorityHigh
	}
	return &models.Decision{
		Type:            models.DecisionPromote,
		Category:        models.CategoryMenu,
		Target:          itemTarget(item),
		Priority:        priority,
		PredictedImpact: impactRange(estimate, 0.7, 1.2, promoteConfidence, a.Revenue, a.Revenue*(1+e.cfg.PromoteVolumeLift)),
		Rationale: fmt.Sprintf("%s earns %.2f per sale but sold only %d units. A %.0f%% volume lift would add about %.0f units at the current margin.",
			item.Name, margin, a.Quantity, e.cfg.PromoteVolumeLift*100, extraUnits),
		Recommendation: fmt.Sprintf("Feature %s on the menu and have staff recommend it.", item.Name),
		Risks:          []string{"Possible 8-12% cannibalization of similar items"},
	}
}

func (e *DecisionEngine) reprice(ctx context.Context, item *models.MenuItem, a *itemActivity, margin float64) (*models.Decision, error) {
	newPrice := item.SellingPrice * (1 + e.cfg.RepricePriceIncrease)
	newQty := float64(a.Quantity) * (1 - e.cfg.RepriceVolumeLoss)
	estimate := (newPrice-item.CostPrice)*newQty - margin*float64(a.Quantity)
	if estimate <= 0 {
		return nil, nil
	}

	rationale := fmt.Sprintf("%s sells well (%d units) but earns only %.2f per sale. Raising the price %.0f%% to %.2f keeps more margin even if volume falls %.0f%%.",
		item.Name, a.Quantity, margin, e.cfg.RepricePriceIncrease*100, newPrice, e.cfg.RepriceVolumeLoss*100)
	b, err := e.store.Baselines.GetLatest(ctx, item.ID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return nil, models.NewComputationError("load baseline", err)
		}
		b = nil
	}
	elasticity := b.ElasticityOr(item.ElasticityOr(e.cfg.DefaultElasticity))
	if b != nil && b.PriceElasticity != nil {
		rationale += fmt.Sprintf(" Measured price elasticity is %.2f.", elasticity)
	} else {
		rationale += fmt.Sprintf(" No price elasticity measured yet, assuming %.2f.", elasticity)
	}

	priority := models.PriorityMedium
	if a.Quantity >= e.cfg.HighVolumeThreshold {
		priority = models.PriorityHigh
	}
	return &models.Decision{
		Type:            models.DecisionReprice,
		Category:        models.CategoryMenu,
		Target:          itemTarget(item),
		Priority:        priority,
		PredictedImpact: impactRange(estimate, 0.8, 1.1, repriceConfidence, a.Revenue, newPrice*newQty),
		Rationale:       rationale,
		Recommendation:  fmt.Sprintf("Raise the price of %s to %.2f.", item.Name, newPrice),
		Risks: []string{
			fmt.Sprintf("Volume may drop by more than the assumed %.0f%%", e.cfg.RepriceVolumeLoss*100),
			"Competitors may not follow the price increase",
		},
	}, nil
}

func (e *DecisionEngine) remove(item *models.MenuItem, a *itemActivity, margin, totalRevenue float64, soldQty int) *models.Decision {
	if item.PrepTime <= e.cfg.SlowPrepMinutes || a.Orders == 0 {
		return nil
	}
	opportunity := item.PrepTime * float64(a.Orders) * e.cfg.BlockingFactor
	estimate := opportunity - margin*float64(a.Quantity)
	if estimate <= 0 {
		return nil
	}
	// diners who switch dishes pay the average price of everything else sold
	var recaptured float64
	if otherQty := soldQty - a.Quantity; otherQty > 0 {
		otherPrice := (totalRevenue - a.Revenue) / float64(otherQty)
		recaptured = float64(a.Quantity) * e.cfg.RemoveSubstitution * otherPrice
	}
	return &models.Decision{
		Type:            models.DecisionRemove,
		Category:        models.CategoryMenu,
		Target:          itemTarget(item),
		Priority:        models.PriorityMedium,
		PredictedImpact: impactRange(estimate, 0.6, 1.0, removeConfidence, totalRevenue, totalRevenue-a.Revenue+recaptured),
		Rationale: fmt.Sprintf("%s takes %.0f minutes to prepare and earns %.2f per sale. Each order blocks about %.1f other dishes in the kitchen.",
			item.Name, item.PrepTime, margin, e.cfg.BlockingFactor),
		Recommendation: fmt.Sprintf("Replace %s with a dish that takes under %.0f minutes to prepare.", item.Name, e.cfg.SlowPrepMinutes),
		Risks:          []string{"Regular customers who order it may be disappointed"},
	}
}

func (e *DecisionEngine) isAggregator(ch models.Channel) bool {
	for _, a := range e.cfg.AggregatorChannels {
		if strings.EqualFold(a, string(ch)) {
			return true
		}
	}
	return false
}

func (e *DecisionEngine) channelDecisions(snap *snapshot) []*models.Decision {
	var direct channelStats
	var aggRevenue, aggMarginSum float64
	var aggChannels int
	for ch, c := range snap.channels {
		if e.isAggregator(ch) {
			if c.Revenue > 0 {
				aggRevenue += c.Revenue
				aggMarginSum += c.NetMarginPct()
				aggChannels++
			}
			continue
		}
		direct.Revenue += c.Revenue
		direct.Fees += c.Fees
		direct.FoodCost += c.FoodCost
	}
	total := direct.Revenue + aggRevenue
	if aggChannels == 0 || direct.Revenue == 0 || total == 0 {
		return nil
	}

	directMargin := direct.NetMarginPct()
	aggMargin := aggMarginSum / float64(aggChannels)
	share := aggRevenue / total
	if directMargin <= aggMargin || share <= e.cfg.TargetAggregatorShare {
		return nil
	}

	estimate := (share - e.cfg.TargetAggregatorShare) * aggRevenue * e.cfg.ChannelCapture
	return []*models.Decision{{
		Type:     models.DecisionOptimize,
		Category: models.CategoryChannel,
		Target: models.DecisionTarget{
			Kind:     models.TargetChannel,
			EntityID: "aggregators",
			Name:     "Aggregator channels",
		},
		Priority:        models.PriorityHigh,
		PredictedImpact: impactRange(estimate, 0.6, 1.1, channelConfidence, snap.totalRevenue, snap.totalRevenue+estimate),
		Rationale: fmt.Sprintf("Direct orders keep %.1f%% net margin against %.1f%% on aggregators, yet aggregators bring %.1f%% of revenue.",
			directMargin*100, aggMargin*100, share*100),
		Recommendation: fmt.Sprintf("Shift the revenue split towards %.0f%% direct / %.0f%% aggregator with direct-order incentives.",
			(1-e.cfg.TargetAggregatorShare)*100, e.cfg.TargetAggregatorShare*100),
		Risks: []string{
			"Some aggregator customers may not switch and volume could fall",
			"Moving customers to direct ordering needs marketing spend",
		},
	}}
}

func (e *DecisionEngine) inPeak(t time.Time) bool {
	h := t.UTC().Hour()
	return h >= e.cfg.PeakStartHour && h < e.cfg.PeakEndHour
}

func (e *DecisionEngine) capacityDecisions(snap *snapshot) []*models.Decision {
	seats := snap.restaurant.Capacity
	peakHours := e.cfg.PeakEndHour - e.cfg.PeakStartHour
	offPeakHours := snap.restaurant.HoursOpen() - peakHours
	if seats <= 0 || peakHours <= 0 || offPeakHours <= 0 || snap.windowDays <= 0 {
		return nil
	}

	var peakRevenue, offPeakRevenue float64
	for _, o := range snap.orders {
		if e.inPeak(o.PlacedAt) {
			peakRevenue += orderRevenue(o)
		} else {
			offPeakRevenue += orderRevenue(o)
		}
	}
	// compared as revenue per hour; seats and days cancel out
	if peakRevenue*float64(offPeakHours) <= e.cfg.RevPASHRatio*offPeakRevenue*float64(peakHours) {
		return nil
	}

	seatHours := float64(seats * snap.windowDays)
	peakRevPASH := peakRevenue / (seatHours * float64(peakHours))
	offPeakRevPASH := offPeakRevenue / (seatHours * float64(offPeakHours))
	gap := peakRevPASH - offPeakRevPASH
	estimate := gap * float64(seats) * float64(offPeakHours) * float64(e.cfg.CapacityHorizonDays) * e.cfg.CapacityImprovement
	if estimate <= 0 {
		return nil
	}

	return []*models.Decision{{
		Type:     models.DecisionOptimize,
		Category: models.CategoryCapacity,
		Target: models.DecisionTarget{
			Kind:     models.TargetOperations,
			EntityID: "seating",
			Name:     fmt.Sprintf("Seating %02d:00-%02d:00", e.cfg.PeakStartHour, e.cfg.PeakEndHour),
		},
		Priority:        models.PriorityMedium,
		PredictedImpact: impactRange(estimate, 0.6, 1.2, capacityConfidence, snap.totalRevenue, snap.totalRevenue+estimate),
		Rationale: fmt.Sprintf("Peak RevPASH is %.2f against %.2f off-peak. Seats earn far less outside %02d:00-%02d:00.",
			peakRevPASH, offPeakRevPASH, e.cfg.PeakStartHour, e.cfg.PeakEndHour),
		Recommendation: fmt.Sprintf("Add staff and table turns at peak, and move demand off-peak with set menus or early-bird offers to lift off-peak RevPASH by %.0f%%.",
			e.cfg.CapacityImprovement*100),
		Risks: []string{"Off-peak offers may discount customers who would have paid full price"},
	}}
}
