package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/chrisdamba/profitlens/internal/repositories"
	"gorm.io/gorm"
)

const appendRetries = 5

type baselineRepository struct {
	db *gorm.DB
}

func NewBaselineRepository(db *gorm.DB) repositories.BaselineRepository {
	return &baselineRepository{db: db}
}

// AppendVersion reads the current maximum version and inserts the next one in a
// single transaction. The unique (menu_item_id, version) index rejects a racing
// writer, which then retries with a fresh read.
func (r *baselineRepository) AppendVersion(ctx context.Context, b *models.ItemBaseline) error {
	b.WindowStart = b.WindowStart.UTC()
	b.WindowEnd = b.WindowEnd.UTC()
	b.ComputedAt = b.ComputedAt.UTC()

	var err error
	for attempt := 0; attempt < appendRetries; attempt++ {
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var current int
			if err := tx.Model(&models.ItemBaseline{}).
				Where("menu_item_id = ?", b.MenuItemID).
				Select("COALESCE(MAX(version), 0)").
				Scan(&current).Error; err != nil {
				return err
			}
			row := *b
			row.Version = current + 1
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			b.Version = row.Version
			return nil
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
	}
	return fmt.Errorf("append baseline for %s: %w", b.MenuItemID, err)
}

func (r *baselineRepository) GetLatest(ctx context.Context, menuItemID string) (*models.ItemBaseline, error) {
	var b models.ItemBaseline
	err := r.db.WithContext(ctx).Where("menu_item_id = ?", menuItemID).Order("version DESC").First(&b).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *baselineRepository) GetAsOf(ctx context.Context, menuItemID string, at time.Time) (*models.ItemBaseline, error) {
	var b models.ItemBaseline
	err := r.db.WithContext(ctx).
		Where("menu_item_id = ? AND computed_at <= ?", menuItemID, at.UTC()).
		Order("version DESC").
		First(&b).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (r *baselineRepository) ListVersions(ctx context.Context, menuItemID string) ([]*models.ItemBaseline, error) {
	var baselines []*models.ItemBaseline
	err := r.db.WithContext(ctx).Where("menu_item_id = ?", menuItemID).Order("version").Find(&baselines).Error
	return baselines, err
}
