package analytics

import (
	"sort"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/chrisdamba/profitlens/internal/stats"
	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// lineRevenue is quantity times the price recorded at the time of sale.
func lineRevenue(item models.OrderItem) float64 {
	return float64(item.Quantity) * item.UnitPrice
}

func orderRevenue(o *models.Order) float64 {
	var total float64
	for _, item := range o.Items {
		total += lineRevenue(item)
	}
	return total
}

// revenueOf sums line revenue, restricted to one menu item when itemID is set.
func revenueOf(orders []*models.Order, itemID string) float64 {
	var total float64
	for _, o := range orders {
		for _, tx := range o.Transactions() {
			if itemID == "" || tx.MenuItemID == itemID {
				total += tx.LineTotal
			}
		}
	}
	return total
}

// dailySeries groups an item's sales by UTC day, oldest first. Days without
// sales are absent.
func dailySeries(orders []*models.Order, itemID string) []stats.DailyPoint {
	byDay := make(map[time.Time]*stats.DailyPoint)
	for _, o := range orders {
		for _, tx := range o.Transactions() {
			if tx.MenuItemID != itemID {
				continue
			}
			d := startOfDay(tx.Timestamp)
			p, ok := byDay[d]
			if !ok {
				p = &stats.DailyPoint{Day: d}
				byDay[d] = p
			}
			p.Quantity += float64(tx.Quantity)
			p.Revenue += tx.LineTotal
		}
	}
	series := make([]stats.DailyPoint, 0, len(byDay))
	for _, p := range byDay {
		series = append(series, *p)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Day.Before(series[j].Day) })
	return series
}

// itemPeriod is one item's sales within a period, in exact decimal arithmetic.
type itemPeriod struct {
	Quantity decimal.Decimal
	Revenue  decimal.Decimal
}

// AvgPrice is revenue per unit, zero when nothing sold.
func (p itemPeriod) AvgPrice() decimal.Decimal {
	if p.Quantity.IsZero() {
		return decimal.Zero
	}
	return p.Revenue.Div(p.Quantity)
}

func aggregateByItem(orders []*models.Order) map[string]itemPeriod {
	out := make(map[string]itemPeriod)
	for _, o := range orders {
		for _, item := range o.Items {
			qty := decimal.NewFromInt(int64(item.Quantity))
			p := out[item.MenuItemID]
			p.Quantity = p.Quantity.Add(qty)
			p.Revenue = p.Revenue.Add(qty.Mul(decimal.NewFromFloat(item.UnitPrice)))
			out[item.MenuItemID] = p
		}
	}
	return out
}

// itemActivity is one menu item's volume over the decision window.
type itemActivity struct {
	Quantity int
	Orders   int
	Revenue  float64
}

func activityByItem(orders []*models.Order) map[string]*itemActivity {
	out := make(map[string]*itemActivity)
	for _, o := range orders {
		seen := make(map[string]bool, len(o.Items))
		for _, item := range o.Items {
			a, ok := out[item.MenuItemID]
			if !ok {
				a = &itemActivity{}
				out[item.MenuItemID] = a
			}
			a.Quantity += item.Quantity
			a.Revenue += lineRevenue(item)
			if !seen[item.MenuItemID] {
				a.Orders++
				seen[item.MenuItemID] = true
			}
		}
	}
	return out
}

// channelStats is revenue and net margin for one channel.
type channelStats struct {
	Revenue  float64
	Fees     float64
	FoodCost float64
}

// NetMarginPct is (revenue - fees - food cost) / revenue, 0 without revenue.
func (c channelStats) NetMarginPct() float64 {
	if c.Revenue == 0 {
		return 0
	}
	return (c.Revenue - c.Fees - c.FoodCost) / c.Revenue
}

func statsByChannel(orders []*models.Order) map[models.Channel]*channelStats {
	out := make(map[models.Channel]*channelStats)
	for _, o := range orders {
		c, ok := out[o.Channel]
		if !ok {
			c = &channelStats{}
			out[o.Channel] = c
		}
		c.Revenue += orderRevenue(o)
		c.Fees += o.Fees
		c.FoodCost += o.FoodCost()
	}
	return out
}
