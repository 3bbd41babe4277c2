package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/chrisdamba/profitlens/internal/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

func NewPool(ctx context.Context, cfg models.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	return pool, nil
}

// Migrate creates any missing tables. It is safe to run repeatedly.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// NewStore connects, migrates and returns a Store backed by Postgres.
func NewStore(ctx context.Context, cfg models.DatabaseConfig) (*repositories.Store, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return NewStoreFromPool(pool), nil
}

func NewStoreFromPool(pool *pgxpool.Pool) *repositories.Store {
	store := repositories.NewStore(func() error {
		pool.Close()
		return nil
	})
	store.Restaurants = NewRestaurantRepository(pool)
	store.Servers = NewServerRepository(pool)
	store.MenuItems = NewMenuItemRepository(pool)
	store.Orders = NewOrderRepository(pool)
	store.Baselines = NewBaselineRepository(pool)
	store.Decisions = NewDecisionRepository(pool)
	store.Insights = NewInsightRepository(pool)
	return store
}
