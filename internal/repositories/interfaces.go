package repositories

import (
	"context"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
)

type RestaurantRepository interface {
	Create(ctx context.Context, restaurant *models.Restaurant) error
	GetByID(ctx context.Context, id string) (*models.Restaurant, error)
}

type ServerRepository interface {
	Create(ctx context.Context, server *models.Server) error
	GetByRestaurantID(ctx context.Context, restaurantID string) ([]*models.Server, error)
}

type MenuItemRepository interface {
	BulkCreate(ctx context.Context, menuItems []*models.MenuItem) error
	Create(ctx context.Context, menuItem *models.MenuItem) error
	GetByID(ctx context.Context, id string) (*models.MenuItem, error)
	GetByRestaurantID(ctx context.Context, restaurantID string) ([]*models.MenuItem, error)
	// UpdatePricing changes the current price and cost only. Historical order
	// lines keep the values recorded at time of sale.
	UpdatePricing(ctx context.Context, id string, sellingPrice, costPrice float64) error
}

type OrderRepository interface {
	// Create and BulkCreate persist orders together with their line items, all or nothing.
	Create(ctx context.Context, order *models.Order) error
	BulkCreate(ctx context.Context, orders []*models.Order) error
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) error
	// GetCompleted returns completed orders with line items, ordered by placement time.
	// When filter.MenuItemID is set only matching line items are returned.
	GetCompleted(ctx context.Context, filter models.OrderFilter) ([]*models.Order, error)
}

type BaselineRepository interface {
	// AppendVersion assigns the next version number for the item and inserts the
	// row atomically. baseline.Version is set on success.
	AppendVersion(ctx context.Context, baseline *models.ItemBaseline) error
	GetLatest(ctx context.Context, menuItemID string) (*models.ItemBaseline, error)
	ListVersions(ctx context.Context, menuItemID string) ([]*models.ItemBaseline, error)
	// GetAsOf returns the newest baseline computed at or before at.
	GetAsOf(ctx context.Context, menuItemID string, at time.Time) (*models.ItemBaseline, error)
}

type DecisionRepository interface {
	Create(ctx context.Context, decision *models.Decision) error
	GetByID(ctx context.Context, id string) (*models.Decision, error)
	ListByStatus(ctx context.Context, restaurantID string, statuses ...models.DecisionStatus) ([]*models.Decision, error)
	// TransitionStatus moves a decision from one status to another only if it is
	// still in the from status. It reports whether the row was updated.
	TransitionStatus(ctx context.Context, id string, from, to models.DecisionStatus, implementedAt *time.Time, updatedAt time.Time) (bool, error)
	// CreateOutcome fails if the decision already has an outcome.
	CreateOutcome(ctx context.Context, outcome *models.DecisionOutcome) error
	GetOutcome(ctx context.Context, decisionID string) (*models.DecisionOutcome, error)
	ListOutcomes(ctx context.Context, restaurantID string) ([]*models.DecisionOutcome, error)
}

type InsightRepository interface {
	Create(ctx context.Context, insight *models.Insight) error
	// GetActive returns insights that have not expired at now, newest first.
	GetActive(ctx context.Context, restaurantID string, now time.Time) ([]*models.Insight, error)
}

// Store bundles every repository behind one handle.
type Store struct {
	Restaurants RestaurantRepository
	Servers     ServerRepository
	MenuItems   MenuItemRepository
	Orders      OrderRepository
	Baselines   BaselineRepository
	Decisions   DecisionRepository
	Insights    InsightRepository

	closer func() error
}

func NewStore(closer func() error) *Store {
	return &Store{closer: closer}
}

func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
