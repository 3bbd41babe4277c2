package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/chrisdamba/profitlens/internal/repositories"
	"gorm.io/gorm"
)

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) repositories.OrderRepository {
	return &orderRepository{db: db}
}

func normalizeOrder(o *models.Order) {
	o.PlacedAt = o.PlacedAt.UTC()
	if o.CompletedAt != nil {
		t := o.CompletedAt.UTC()
		o.CompletedAt = &t
	}
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
		o.Items[i].LineTotal = float64(o.Items[i].Quantity) * o.Items[i].UnitPrice
	}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.BulkCreate(ctx, []*models.Order{order})
}

func (r *orderRepository) BulkCreate(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	for _, o := range orders {
		normalizeOrder(o)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// line items are inserted through the Items association
		return tx.CreateInBatches(orders, 100).Error
	})
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Select("id", "status").First(&order, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if !models.CanTransitionOrder(order.Status, status) {
			return fmt.Errorf("order %s: %s -> %s is not allowed", id, order.Status, status)
		}
		updates := map[string]interface{}{"status": status}
		if status == models.OrderStatusCompleted {
			updates["completed_at"] = at.UTC()
		}
		return tx.Model(&models.Order{}).Where("id = ? AND status = ?", id, order.Status).Updates(updates).Error
	})
}

func (r *orderRepository) GetCompleted(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error) {
	q := r.db.WithContext(ctx).Where("status = ?", models.OrderStatusCompleted)
	if filter.RestaurantID != "" {
		q = q.Where("restaurant_id = ?", filter.RestaurantID)
	}
	if filter.Channel != "" {
		q = q.Where("channel = ?", filter.Channel)
	}
	if !filter.From.IsZero() {
		q = q.Where("placed_at >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		q = q.Where("placed_at < ?", filter.To.UTC())
	}
	if filter.MenuItemID != "" {
		q = q.Where("EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id AND oi.menu_item_id = ?)", filter.MenuItemID)
	}
	q = q.Preload("Items", func(db *gorm.DB) *gorm.DB {
		if filter.MenuItemID != "" {
			db = db.Where("menu_item_id = ?", filter.MenuItemID)
		}
		return db.Order("id")
	})

	var orders []*models.Order
	if err := q.Order("placed_at, id").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
