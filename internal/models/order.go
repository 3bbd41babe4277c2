package models

import "time"

type Order struct {
	ID           string      `json:"id" gorm:"primaryKey"`
	RestaurantID string      `json:"restaurant_id" gorm:"index"`
	ServerID     string      `json:"server_id,omitempty"`
	Channel      Channel     `json:"channel" gorm:"index"`
	Status       OrderStatus `json:"status" gorm:"index"`
	TableNumber  string      `json:"table_number,omitempty"`
	GuestCount   int         `json:"guest_count,omitempty"`
	Subtotal     float64     `json:"subtotal"`
	Taxes        float64     `json:"taxes"`
	Fees         float64     `json:"fees"` // commission paid to the channel
	Total        float64     `json:"total"`
	PlacedAt     time.Time   `json:"placed_at" gorm:"index"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	Items        []OrderItem `json:"items" gorm:"foreignKey:OrderID"`
}

// OrderItem keeps the price and cost at the time of sale. It is never updated.
type OrderItem struct {
	ID         string  `json:"id" gorm:"primaryKey"`
	OrderID    string  `json:"order_id" gorm:"index"`
	MenuItemID string  `json:"menu_item_id" gorm:"index"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	UnitCost   float64 `json:"unit_cost"`
	LineTotal  float64 `json:"line_total"`
}

// Transaction is the flattened, immutable view of one completed order line.
type Transaction struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	Timestamp  time.Time `json:"timestamp"`
	Channel    Channel   `json:"channel"`
	MenuItemID string    `json:"menu_item_id"`
	Quantity   int       `json:"quantity"`
	UnitPrice  float64   `json:"unit_price"`
	UnitCost   float64   `json:"unit_cost"`
	LineTotal  float64   `json:"line_total"`
}

// OrderFilter scopes queries against completed orders. Zero values are ignored.
type OrderFilter struct {
	RestaurantID string
	MenuItemID   string
	Channel      Channel
	From         time.Time // inclusive
	To           time.Time // exclusive
}

// ComputeTotals fills line totals, subtotal and total from the line items.
func (o *Order) ComputeTotals() {
	var subtotal float64
	for i := range o.Items {
		o.Items[i].LineTotal = float64(o.Items[i].Quantity) * o.Items[i].UnitPrice
		subtotal += o.Items[i].LineTotal
	}
	o.Subtotal = subtotal
	o.Total = subtotal + o.Taxes + o.Fees
}

// FoodCost is the cost of goods sold for the order at time of sale.
func (o *Order) FoodCost() float64 {
	var cost float64
	for _, item := range o.Items {
		cost += float64(item.Quantity) * item.UnitCost
	}
	return cost
}

func (o *Order) Transactions() []Transaction {
	txs := make([]Transaction, 0, len(o.Items))
	for _, item := range o.Items {
		txs = append(txs, Transaction{
			ID:         item.ID,
			OrderID:    o.ID,
			Timestamp:  o.PlacedAt,
			Channel:    o.Channel,
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			UnitCost:   item.UnitCost,
			LineTotal:  float64(item.Quantity) * item.UnitPrice,
		})
	}
	return txs
}

// CanTransitionOrder reports whether an order may move from one status to another.
func CanTransitionOrder(from, to OrderStatus) bool {
	switch from {
	case OrderStatusPending:
		return to == OrderStatusPreparing || to == OrderStatusCancelled
	case OrderStatusPreparing:
		return to == OrderStatusReady || to == OrderStatusCancelled
	case OrderStatusReady:
		return to == OrderStatusCompleted || to == OrderStatusCancelled
	}
	return false
}
