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

const baselineColumns = `
    id, menu_item_id, restaurant_id, version, window_start, window_end, sample_days,
    avg_daily_quantity, std_daily_quantity, avg_daily_revenue, std_daily_revenue,
    price_elasticity, confidence, computed_at`

type BaselineRepository struct {
	pool *pgxpool.Pool
}

func NewBaselineRepository(pool *pgxpool.Pool) *BaselineRepository {
	return &BaselineRepository{pool: pool}
}

// AppendVersion serializes writers per item with a transaction-scoped advisory lock
// so that reading the latest version and inserting the next one is atomic.
func (r *BaselineRepository) AppendVersion(ctx context.Context, b *models.ItemBaseline) error {
	return execTxWithRetry(ctx, r.pool, defaultTxRetries, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "baseline:"+b.MenuItemID); err != nil {
			return fmt.Errorf("lock baseline %s: %w", b.MenuItemID, err)
		}
		var next int
		err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(version), 0) + 1 FROM item_baselines WHERE menu_item_id = $1`,
			b.MenuItemID,
		).Scan(&next)
		if err != nil {
			return fmt.Errorf("next baseline version: %w", err)
		}

		_, err = tx.Exec(ctx, `INSERT INTO item_baselines (`+baselineColumns+`)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			b.ID, b.MenuItemID, b.RestaurantID, next, b.WindowStart, b.WindowEnd, b.SampleDays,
			b.AvgDailyQuantity, b.StdDailyQuantity, b.AvgDailyRevenue, b.StdDailyRevenue,
			b.PriceElasticity, b.Confidence, b.ComputedAt,
		)
		if err != nil {
			return fmt.Errorf("insert baseline: %w", err)
		}
		b.Version = next
		return nil
	})
}

func scanBaseline(row pgx.Row) (*models.ItemBaseline, error) {
	b := &models.ItemBaseline{}
	err := row.Scan(
		&b.ID, &b.MenuItemID, &b.RestaurantID, &b.Version, &b.WindowStart, &b.WindowEnd, &b.SampleDays,
		&b.AvgDailyQuantity, &b.StdDailyQuantity, &b.AvgDailyRevenue, &b.StdDailyRevenue,
		&b.PriceElasticity, &b.Confidence, &b.ComputedAt,
	)
	return b, err
}

func (r *BaselineRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.ItemBaseline, error) {
	b, err := scanBaseline(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *BaselineRepository) GetLatest(ctx context.Context, menuItemID string) (*models.ItemBaseline, error) {
	return r.getOne(ctx,
		`SELECT `+baselineColumns+` FROM item_baselines WHERE menu_item_id = $1 ORDER BY version DESC LIMIT 1`,
		menuItemID,
	)
}

func (r *BaselineRepository) GetAsOf(ctx context.Context, menuItemID string, at time.Time) (*models.ItemBaseline, error) {
	return r.getOne(ctx,
		`SELECT `+baselineColumns+` FROM item_baselines
         WHERE menu_item_id = $1 AND computed_at <= $2
         ORDER BY version DESC LIMIT 1`,
		menuItemID, at,
	)
}

func (r *BaselineRepository) ListVersions(ctx context.Context, menuItemID string) ([]*models.ItemBaseline, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+baselineColumns+` FROM item_baselines WHERE menu_item_id = $1 ORDER BY version`,
		menuItemID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var baselines []*models.ItemBaseline
	for rows.Next() {
		b, err := scanBaseline(rows)
		if err != nil {
			return nil, err
		}
		baselines = append(baselines, b)
	}
	return baselines, rows.Err()
}
