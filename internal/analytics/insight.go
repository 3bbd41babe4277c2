package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/chrisdamba/profitlens/internal/output"
	"github.com/chrisdamba/profitlens/internal/repositories"
	"github.com/chrisdamba/profitlens/internal/stats"
	"github.com/lucsky/cuid"
	"github.com/shopspring/decimal"
)

// insightAssumptions are attached to every decomposition.
var insightAssumptions = []string{
	"Volume effect values quantity changes at the comparison period's average price.",
	"Price effect values price changes at the current period's quantity.",
	"Mix effect is the residual after volume and price; it absorbs new and discontinued items, interaction between price and quantity, and data errors.",
	"Only completed orders are included; cancelled orders are excluded.",
}

// InsightEngine explains revenue movement between two back-to-back periods.
type InsightEngine struct {
	base
}

func NewInsightEngine(store *repositories.Store, cfg models.AnalyticsConfig, logger *slog.Logger, opts ...Option) *InsightEngine {
	return &InsightEngine{base: newBase(store, cfg, logger, "insight", opts)}
}

// Decomposition splits a revenue change into volume, price and mix effects.
// Volume + Price + Mix always equals TotalChange.
type Decomposition struct {
	ComparisonRevenue decimal.Decimal
	CurrentRevenue    decimal.Decimal
	TotalChange       decimal.Decimal
	Volume            decimal.Decimal
	Price             decimal.Decimal
	Mix               decimal.Decimal
}

func decompose(current, comparison map[string]itemPeriod) Decomposition {
	var d Decomposition
	for _, p := range current {
		d.CurrentRevenue = d.CurrentRevenue.Add(p.Revenue)
	}
	for id, prev := range comparison {
		d.ComparisonRevenue = d.ComparisonRevenue.Add(prev.Revenue)

		cur := current[id]
		prevPrice := prev.AvgPrice()
		d.Volume = d.Volume.Add(cur.Quantity.Sub(prev.Quantity).Mul(prevPrice))
		if !cur.Quantity.IsZero() {
			d.Price = d.Price.Add(cur.Quantity.Mul(cur.AvgPrice().Sub(prevPrice)))
		}
	}
	d.TotalChange = d.CurrentRevenue.Sub(d.ComparisonRevenue)
	d.Mix = d.TotalChange.Sub(d.Volume).Sub(d.Price)
	return d
}

func direction(v decimal.Decimal) string {
	switch v.Sign() {
	case 1:
		return models.DirectionUp
	case -1:
		return models.DirectionDown
	}
	return models.DirectionFlat
}

// Factors renders each effect with its share of the absolute total change.
func (d Decomposition) Factors() []models.CausalFactor {
	factor := func(name string, v decimal.Decimal) models.CausalFactor {
		var pct float64
		if !d.TotalChange.IsZero() {
			pct = stats.Round(v.Div(d.TotalChange.Abs()).Mul(decimal.NewFromInt(100)).InexactFloat64(), 2)
		}
		return models.CausalFactor{
			Factor:          name,
			Contribution:    v,
			ContributionPct: pct,
			Direction:       direction(v),
		}
	}
	return []models.CausalFactor{
		factor(models.FactorVolume, d.Volume),
		factor(models.FactorPrice, d.Price),
		factor(models.FactorMix, d.Mix),
	}
}

// Formula renders the additive identity with the computed amounts.
func (d Decomposition) Formula() string {
	return fmt.Sprintf("revenue change = volume effect + price effect + mix effect: %s = %s + %s + %s",
		d.TotalChange.StringFixed(2), d.Volume.StringFixed(2), d.Price.StringFixed(2), d.Mix.StringFixed(2))
}

// PercentChange is the total change relative to the comparison revenue.
func (d Decomposition) PercentChange() float64 {
	if d.ComparisonRevenue.IsZero() {
		return 0
	}
	return stats.Round(d.TotalChange.Div(d.ComparisonRevenue).Mul(decimal.NewFromInt(100)).InexactFloat64(), 2)
}

// dominantFactors returns the factors whose absolute contribution exceeds share of
// the absolute total change, in volume, price, mix order.
func dominantFactors(factors []models.CausalFactor, total decimal.Decimal, share float64) []models.CausalFactor {
	if total.IsZero() {
		return nil
	}
	limit := total.Abs().Mul(decimal.NewFromFloat(share))
	var out []models.CausalFactor
	for _, f := range factors {
		if f.Contribution.Abs().GreaterThan(limit) {
			out = append(out, f)
		}
	}
	return out
}

func factorPhrase(f models.CausalFactor) string {
	up := f.Direction == models.DirectionUp
	switch f.Factor {
	case models.FactorVolume:
		if up {
			return "customer demand increased"
		}
		return "customer demand decreased"
	case models.FactorPrice:
		if up {
			return "prices were raised"
		}
		return "prices were lowered"
	}
	return "product mix changed"
}

func explain(d Decomposition, pct float64, dominant []models.CausalFactor) string {
	verb := "increased"
	if d.TotalChange.Sign() < 0 {
		verb = "decreased"
	} else if d.TotalChange.IsZero() {
		verb = "was unchanged"
	}
	head := fmt.Sprintf("Revenue %s by %.1f%% (%s)", verb, math.Abs(pct), d.TotalChange.Abs().StringFixed(2))
	if d.TotalChange.IsZero() {
		head = "Revenue was unchanged"
	}
	if len(dominant) == 0 {
		return head + " due to minor fluctuations across multiple factors."
	}

	phrases := make([]string, 0, len(dominant))
	mentionsMix := false
	for _, f := range dominant {
		phrases = append(phrases, factorPhrase(f))
		mentionsMix = mentionsMix || f.Factor == models.FactorMix
	}
	text := head + " because " + strings.Join(phrases, " and ") + "."
	if mentionsMix {
		text += " The mix effect is the part of the change not explained by volume or price, not an independently measured cause."
	}
	return text
}

// largestFactor returns the factor with the greatest absolute contribution.
func largestFactor(factors []models.CausalFactor) models.CausalFactor {
	best := factors[0]
	for _, f := range factors[1:] {
		if f.Contribution.Abs().GreaterThan(best.Contribution.Abs()) {
			best = f
		}
	}
	return best
}

func (e *InsightEngine) recommend(d Decomposition, pct float64, factors []models.CausalFactor) string {
	if math.Abs(pct) < e.cfg.MaterialityPct || d.TotalChange.Sign() >= 0 {
		return "Revenue is stable. Keep monitoring."
	}
	switch largestFactor(factors).Factor {
	case models.FactorVolume:
		return "Fewer items are being sold. Consider promotions to drive traffic."
	case models.FactorPrice:
		return "Price changes reduced revenue. Consider smaller price increments."
	}
	return "Sales shifted towards lower-revenue items. Review how top sellers are placed on the menu."
}

func (e *InsightEngine) severity(pct float64) models.Severity {
	switch abs := math.Abs(pct); {
	case abs > e.cfg.CriticalPct:
		return models.SeverityCritical
	case abs > e.cfg.WarningPct:
		return models.SeverityWarning
	}
	return models.SeverityInfo
}

// decompositionConfidence scales with sample size, is penalised when one period
// has less than half the samples of the other, and never exceeds the cap.
func (e *InsightEngine) decompositionConfidence(current, comparison int) float64 {
	total := current + comparison
	sizeFactor := math.Min(1, float64(total)/float64(max(1, e.cfg.ConfidenceSamples)))
	penalty := 1.0
	if float64(min(current, comparison)) < float64(max(current, comparison))/2 {
		penalty = 0.8
	}
	return stats.Clamp(math.Min(e.cfg.ConfidenceCap, sizeFactor*penalty), 0, 1)
}

// AnalyzeRevenueChange decomposes the revenue change between the currentDays
// ending now and the comparisonDays immediately before them, and stores the
// result as an insight.
func (e *InsightEngine) AnalyzeRevenueChange(ctx context.Context, restaurantID string, currentDays, comparisonDays int) (in *models.Insight, err error) {
	defer observe("insight", time.Now(), &err)
	if currentDays <= 0 || comparisonDays <= 0 {
		return nil, fmt.Errorf("period lengths must be positive, got %d and %d days", currentDays, comparisonDays)
	}

	now := e.now()
	currentFrom := now.Add(-time.Duration(currentDays) * day)
	comparisonFrom := currentFrom.Add(-time.Duration(comparisonDays) * day)

	orders, err := e.store.Orders.GetCompleted(ctx, models.OrderFilter{
		RestaurantID: restaurantID,
		From:         comparisonFrom,
		To:           now,
	})
	if err != nil {
		return nil, models.NewComputationError("load orders", err)
	}
	var current, comparison []*models.Order
	for _, o := range orders {
		if o.PlacedAt.Before(currentFrom) {
			comparison = append(comparison, o)
		} else {
			current = append(current, o)
		}
	}
	if len(current) == 0 || len(comparison) == 0 {
		e.logger.Debug("not enough orders to decompose",
			"restaurant_id", restaurantID, "current_orders", len(current), "comparison_orders", len(comparison))
		return nil, fmt.Errorf("restaurant %s has %d current and %d comparison orders: %w",
			restaurantID, len(current), len(comparison), models.ErrInsufficientData)
	}

	d := decompose(aggregateByItem(current), aggregateByItem(comparison))
	if d.ComparisonRevenue.IsZero() {
		return nil, fmt.Errorf("restaurant %s has no comparison revenue: %w", restaurantID, models.ErrInsufficientData)
	}

	pct := d.PercentChange()
	factors := d.Factors()
	dominant := dominantFactors(factors, d.TotalChange, e.cfg.DominantFactorShare)

	in = &models.Insight{
		ID:                cuid.New(),
		RestaurantID:      restaurantID,
		Type:              models.InsightTypeRevenueChange,
		Severity:          e.severity(pct),
		CurrentFrom:       currentFrom,
		CurrentTo:         now,
		ComparisonFrom:    comparisonFrom,
		ComparisonTo:      currentFrom,
		CurrentRevenue:    d.CurrentRevenue,
		ComparisonRevenue: d.ComparisonRevenue,
		TotalChange:       d.TotalChange,
		PercentChange:     pct,
		Factors:           factors,
		Formula:           d.Formula(),
		Explanation:       explain(d, pct, dominant),
		Assumptions:       append([]string(nil), insightAssumptions...),
		SampleSize:        len(current) + len(comparison),
		CurrentSamples:    len(current),
		ComparisonSamples: len(comparison),
		Confidence:        stats.Round(e.decompositionConfidence(len(current), len(comparison)), 4),
		Recommendation:    e.recommend(d, pct, factors),
		CreatedAt:         now,
		ExpiresAt:         now.Add(e.cfg.InsightTTL),
	}
	if err := e.store.Insights.Create(ctx, in); err != nil {
		return nil, models.NewComputationError("store insight", err)
	}

	e.logger.Info("revenue change analysed",
		"restaurant_id", restaurantID, "insight_id", in.ID, "percent_change", pct, "severity", in.Severity)
	e.publish(models.TopicInsightEvents, output.NewInsightEvent(in))
	return in, nil
}

// GetActiveInsights returns the restaurant's insights that have not expired.
func (e *InsightEngine) GetActiveInsights(ctx context.Context, restaurantID string) ([]*models.Insight, error) {
	insights, err := e.store.Insights.GetActive(ctx, restaurantID, e.now())
	if err != nil {
		return nil, models.NewComputationError("load active insights", err)
	}
	return insights, nil
}
