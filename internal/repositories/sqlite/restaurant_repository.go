package sqlite

import (
	"context"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/chrisdamba/profitlens/internal/repositories"
	"gorm.io/gorm"
)

type restaurantRepository struct {
	db *gorm.DB
}

func NewRestaurantRepository(db *gorm.DB) repositories.RestaurantRepository {
	return &restaurantRepository{db: db}
}

func (r *restaurantRepository) Create(ctx context.Context, restaurant *models.Restaurant) error {
	return r.db.WithContext(ctx).Create(restaurant).Error
}

func (r *restaurantRepository) GetByID(ctx context.Context, id string) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := r.db.WithContext(ctx).First(&restaurant, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &restaurant, nil
}

type serverRepository struct {
	db *gorm.DB
}

func NewServerRepository(db *gorm.DB) repositories.ServerRepository {
	return &serverRepository{db: db}
}

func (r *serverRepository) Create(ctx context.Context, server *models.Server) error {
	return r.db.WithContext(ctx).Create(server).Error
}

func (r *serverRepository) GetByRestaurantID(ctx context.Context, restaurantID string) ([]*models.Server, error) {
	var servers []*models.Server
	err := r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).Order("name").Find(&servers).Error
	return servers, err
}

type menuItemRepository struct {
	db *gorm.DB
}

func NewMenuItemRepository(db *gorm.DB) repositories.MenuItemRepository {
	return &menuItemRepository{db: db}
}

func (r *menuItemRepository) BulkCreate(ctx context.Context, menuItems []*models.MenuItem) error {
	if len(menuItems) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(menuItems, 200).Error
}

func (r *menuItemRepository) Create(ctx context.Context, menuItem *models.MenuItem) error {
	return r.db.WithContext(ctx).Create(menuItem).Error
}

func (r *menuItemRepository) GetByID(ctx context.Context, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (r *menuItemRepository) GetByRestaurantID(ctx context.Context, restaurantID string) ([]*models.MenuItem, error) {
	var items []*models.MenuItem
	err := r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).Order("name").Find(&items).Error
	return items, err
}

func (r *menuItemRepository) UpdatePricing(ctx context.Context, id string, sellingPrice, costPrice float64) error {
	res := r.db.WithContext(ctx).Model(&models.MenuItem{}).Where("id = ?", id).Updates(map[string]interface{}{
		"selling_price": sellingPrice,
		"cost_price":    costPrice,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}
