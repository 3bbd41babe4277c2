package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const menuItemColumns = `
    id, restaurant_id, name, category, cost_price, selling_price,
    price_elasticity, launch_date, prep_time, active, created_at, updated_at`

type MenuItemRepository struct {
	pool *pgxpool.Pool
}

func NewMenuItemRepository(pool *pgxpool.Pool) *MenuItemRepository {
	return &MenuItemRepository{pool: pool}
}

func menuItemValues(m *models.MenuItem) []interface{} {
	return []interface{}{
		m.ID,
		m.RestaurantID,
		m.Name,
		m.Category,
		m.CostPrice,
		m.SellingPrice,
		m.PriceElasticity,
		m.LaunchDate,
		m.PrepTime,
		m.Active,
		m.CreatedAt,
		m.UpdatedAt,
	}
}

func (r *MenuItemRepository) BulkCreate(ctx context.Context, menuItems []*models.MenuItem) error {
	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"menu_items"},
		[]string{
			"id", "restaurant_id", "name", "category", "cost_price", "selling_price",
			"price_elasticity", "launch_date", "prep_time", "active", "created_at", "updated_at",
		},
		pgx.CopyFromSlice(len(menuItems), func(i int) ([]interface{}, error) {
			return menuItemValues(menuItems[i]), nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy menu items: %w", err)
	}
	return nil
}

func (r *MenuItemRepository) Create(ctx context.Context, menuItem *models.MenuItem) error {
	query := `INSERT INTO menu_items (` + menuItemColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	if _, err := r.pool.Exec(ctx, query, menuItemValues(menuItem)...); err != nil {
		return fmt.Errorf("insert menu item %s: %w", menuItem.ID, err)
	}
	return nil
}

func scanMenuItem(row pgx.Row) (*models.MenuItem, error) {
	m := &models.MenuItem{}
	err := row.Scan(
		&m.ID,
		&m.RestaurantID,
		&m.Name,
		&m.Category,
		&m.CostPrice,
		&m.SellingPrice,
		&m.PriceElasticity,
		&m.LaunchDate,
		&m.PrepTime,
		&m.Active,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

func (r *MenuItemRepository) GetByID(ctx context.Context, id string) (*models.MenuItem, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+menuItemColumns+` FROM menu_items WHERE id = $1`, id)
	m, err := scanMenuItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get menu item %s: %w", id, err)
	}
	return m, nil
}

func (r *MenuItemRepository) GetByRestaurantID(ctx context.Context, restaurantID string) ([]*models.MenuItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+menuItemColumns+` FROM menu_items WHERE restaurant_id = $1 ORDER BY name`,
		restaurantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var menuItems []*models.MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		menuItems = append(menuItems, m)
	}
	return menuItems, rows.Err()
}

func (r *MenuItemRepository) UpdatePricing(ctx context.Context, id string, sellingPrice, costPrice float64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE menu_items SET selling_price = $2, cost_price = $3, updated_at = $4 WHERE id = $1`,
		id, sellingPrice, costPrice, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update pricing for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
