package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RestaurantRepository struct {
	pool *pgxpool.Pool
}

func NewRestaurantRepository(pool *pgxpool.Pool) *RestaurantRepository {
	return &RestaurantRepository{pool: pool}
}

func (r *RestaurantRepository) Create(ctx context.Context, restaurant *models.Restaurant) error {
	query := `
        INSERT INTO restaurants (
            id, name, currency, town, capacity, open_hour, close_hour, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := r.pool.Exec(ctx, query,
		restaurant.ID,
		restaurant.Name,
		restaurant.Currency,
		restaurant.Town,
		restaurant.Capacity,
		restaurant.OpenHour,
		restaurant.CloseHour,
		restaurant.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert restaurant %s: %w", restaurant.ID, err)
	}
	return nil
}

func (r *RestaurantRepository) GetByID(ctx context.Context, id string) (*models.Restaurant, error) {
	query := `
        SELECT id, name, currency, town, capacity, open_hour, close_hour, created_at
        FROM restaurants
        WHERE id = $1
    `
	restaurant := &models.Restaurant{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&restaurant.ID,
		&restaurant.Name,
		&restaurant.Currency,
		&restaurant.Town,
		&restaurant.Capacity,
		&restaurant.OpenHour,
		&restaurant.CloseHour,
		&restaurant.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get restaurant %s: %w", id, err)
	}
	return restaurant, nil
}

type ServerRepository struct {
	pool *pgxpool.Pool
}

func NewServerRepository(pool *pgxpool.Pool) *ServerRepository {
	return &ServerRepository{pool: pool}
}

func (r *ServerRepository) Create(ctx context.Context, server *models.Server) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO servers (id, restaurant_id, name, active, created_at) VALUES ($1, $2, $3, $4, $5)`,
		server.ID, server.RestaurantID, server.Name, server.Active, server.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert server %s: %w", server.ID, err)
	}
	return nil
}

func (r *ServerRepository) GetByRestaurantID(ctx context.Context, restaurantID string) ([]*models.Server, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, restaurant_id, name, active, created_at FROM servers WHERE restaurant_id = $1 ORDER BY name`,
		restaurantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var servers []*models.Server
	for rows.Next() {
		s := &models.Server{}
		if err := rows.Scan(&s.ID, &s.RestaurantID, &s.Name, &s.Active, &s.CreatedAt); err != nil {
			return nil, err
		}
		servers = append(servers, s)
	}
	return servers, rows.Err()
}
