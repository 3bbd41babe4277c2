package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

var (
	orderCopyColumns = []string{
		"id", "restaurant_id", "server_id", "channel", "status", "table_number",
		"guest_count", "subtotal", "taxes", "fees", "total", "placed_at", "completed_at",
	}
	orderItemCopyColumns = []string{
		"id", "order_id", "menu_item_id", "quantity", "unit_price", "unit_cost", "line_total",
	}
)

func orderValues(o *models.Order) []interface{} {
	return []interface{}{
		o.ID,
		o.RestaurantID,
		nullableString(o.ServerID),
		string(o.Channel),
		string(o.Status),
		nullableString(o.TableNumber),
		o.GuestCount,
		o.Subtotal,
		o.Taxes,
		o.Fees,
		o.Total,
		o.PlacedAt,
		o.CompletedAt,
	}
}

func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.BulkCreate(ctx, []*models.Order{order})
}

// BulkCreate copies the orders and then their line items in one transaction.
func (r *OrderRepository) BulkCreate(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	var items [][]interface{}
	for _, o := range orders {
		for _, it := range o.Items {
			items = append(items, []interface{}{
				it.ID, o.ID, it.MenuItemID, it.Quantity, it.UnitPrice, it.UnitCost,
				float64(it.Quantity) * it.UnitPrice,
			})
		}
	}

	return execTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"orders"}, orderCopyColumns,
			pgx.CopyFromSlice(len(orders), func(i int) ([]interface{}, error) {
				return orderValues(orders[i]), nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy orders: %w", err)
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"order_items"}, orderItemCopyColumns, pgx.CopyFromRows(items)); err != nil {
			return fmt.Errorf("copy order items: %w", err)
		}
		return nil
	})
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) error {
	return execTxWithRetry(ctx, r.pool, defaultTxRetries, func(tx pgx.Tx) error {
		var current string
		err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrNotFound
		}
		if err != nil {
			return err
		}
		if !models.CanTransitionOrder(models.OrderStatus(current), status) {
			return fmt.Errorf("order %s: %s -> %s is not allowed", id, current, status)
		}
		var completedAt *time.Time
		if status == models.OrderStatusCompleted {
			completedAt = &at
		}
		_, err = tx.Exec(ctx,
			`UPDATE orders SET status = $2, completed_at = COALESCE($3, completed_at) WHERE id = $1`,
			id, string(status), completedAt,
		)
		return err
	})
}

func (r *OrderRepository) GetCompleted(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error) {
	conds := []string{"o.status = $1"}
	args := []interface{}{string(models.OrderStatusCompleted)}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.RestaurantID != "" {
		add("o.restaurant_id = $%d", filter.RestaurantID)
	}
	if filter.Channel != "" {
		add("o.channel = $%d", string(filter.Channel))
	}
	if !filter.From.IsZero() {
		add("o.placed_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("o.placed_at < $%d", filter.To)
	}
	if filter.MenuItemID != "" {
		add("EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = o.id AND oi.menu_item_id = $%d)", filter.MenuItemID)
	}

	query := `
        SELECT o.id, o.restaurant_id, o.server_id, o.channel, o.status, o.table_number,
               o.guest_count, o.subtotal, o.taxes, o.fees, o.total, o.placed_at, o.completed_at
        FROM orders o
        WHERE ` + strings.Join(conds, " AND ") + `
        ORDER BY o.placed_at, o.id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query completed orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	byID := make(map[string]*models.Order)
	ids := make([]string, 0)
	for rows.Next() {
		o := &models.Order{}
		var serverID, tableNumber *string
		var channel, status string
		if err := rows.Scan(
			&o.ID, &o.RestaurantID, &serverID, &channel, &status, &tableNumber,
			&o.GuestCount, &o.Subtotal, &o.Taxes, &o.Fees, &o.Total, &o.PlacedAt, &o.CompletedAt,
		); err != nil {
			return nil, err
		}
		o.ServerID = stringFromNullable(serverID)
		o.TableNumber = stringFromNullable(tableNumber)
		o.Channel = models.Channel(channel)
		o.Status = models.OrderStatus(status)
		orders = append(orders, o)
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return orders, nil
	}

	itemQuery := `
        SELECT id, order_id, menu_item_id, quantity, unit_price, unit_cost, line_total
        FROM order_items
        WHERE order_id = ANY($1)`
	itemArgs := []interface{}{ids}
	if filter.MenuItemID != "" {
		itemQuery += ` AND menu_item_id = $2`
		itemArgs = append(itemArgs, filter.MenuItemID)
	}
	itemQuery += ` ORDER BY order_id, id`

	itemRows, err := r.pool.Query(ctx, itemQuery, itemArgs...)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var it models.OrderItem
		if err := itemRows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Quantity, &it.UnitPrice, &it.UnitCost, &it.LineTotal); err != nil {
			return nil, err
		}
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return orders, itemRows.Err()
}
