// Package sqlite is the embedded, gorm-backed store used for single-node runs and tests.
package sqlite

import (
	"fmt"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/chrisdamba/profitlens/internal/repositories"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens (or creates) the database at path. ":memory:" gives a private in-memory store.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(gormsqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; a single connection also keeps ":memory:" shared
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Restaurant{},
		&models.Server{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.ItemBaseline{},
		&models.Decision{},
		&models.DecisionOutcome{},
		&models.Insight{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate sqlite database: %w", err)
	}
	return nil
}

// NewStore opens and migrates the database at path.
func NewStore(path string) (*repositories.Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return NewStoreFromDB(db), nil
}

func NewStoreFromDB(db *gorm.DB) *repositories.Store {
	store := repositories.NewStore(func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	store.Restaurants = NewRestaurantRepository(db)
	store.Servers = NewServerRepository(db)
	store.MenuItems = NewMenuItemRepository(db)
	store.Orders = NewOrderRepository(db)
	store.Baselines = NewBaselineRepository(db)
	store.Decisions = NewDecisionRepository(db)
	store.Insights = NewInsightRepository(db)
	return store
}

func notFound(err error) error {
	if err == gorm.ErrRecordNotFound {
		return models.ErrNotFound
	}
	return err
}
