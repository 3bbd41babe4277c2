package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/chrisdamba/profitlens/internal/repositories"
	"gorm.io/gorm"
)

type decisionRepository struct {
	db *gorm.DB
}

func NewDecisionRepository(db *gorm.DB) repositories.DecisionRepository {
	return &decisionRepository{db: db}
}

func (r *decisionRepository) Create(ctx context.Context, d *models.Decision) error {
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *decisionRepository) GetByID(ctx context.Context, id string) (*models.Decision, error) {
	var d models.Decision
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r *decisionRepository) ListByStatus(ctx context.Context, restaurantID string, statuses ...models.DecisionStatus) ([]*models.Decision, error) {
	q := r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var decisions []*models.Decision
	err := q.Order("created_at, id").Find(&decisions).Error
	return decisions, err
}

// TransitionStatus only touches the status columns, so the serialized impact and
// risks are never rewritten by a status change.
func (r *decisionRepository) TransitionStatus(ctx context.Context, id string, from, to models.DecisionStatus, implementedAt *time.Time, updatedAt time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": updatedAt.UTC(),
	}
	if implementedAt != nil {
		updates["implemented_at"] = implementedAt.UTC()
	}
	res := r.db.WithContext(ctx).Model(&models.Decision{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *decisionRepository) CreateOutcome(ctx context.Context, o *models.DecisionOutcome) error {
	o.EvaluatedAt = o.EvaluatedAt.UTC()
	err := r.db.WithContext(ctx).Create(o).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return models.ErrAlreadyExists
	}
	return err
}

func (r *decisionRepository) GetOutcome(ctx context.Context, decisionID string) (*models.DecisionOutcome, error) {
	var o models.DecisionOutcome
	if err := r.db.WithContext(ctx).First(&o, "decision_id = ?", decisionID).Error; err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (r *decisionRepository) ListOutcomes(ctx context.Context, restaurantID string) ([]*models.DecisionOutcome, error) {
	var outcomes []*models.DecisionOutcome
	err := r.db.WithContext(ctx).
		Joins("JOIN decisions ON decisions.id = decision_outcomes.decision_id").
		Where("decisions.restaurant_id = ?", restaurantID).
		Order("decision_outcomes.evaluated_at").
		Find(&outcomes).Error
	return outcomes, err
}

type insightRepository struct {
	db *gorm.DB
}

func NewInsightRepository(db *gorm.DB) repositories.InsightRepository {
	return &insightRepository{db: db}
}

func (r *insightRepository) Create(ctx context.Context, in *models.Insight) error {
	in.CreatedAt = in.CreatedAt.UTC()
	in.ExpiresAt = in.ExpiresAt.UTC()
	return r.db.WithContext(ctx).Create(in).Error
}

func (r *insightRepository) GetActive(ctx context.Context, restaurantID string, now time.Time) ([]*models.Insight, error) {
	var insights []*models.Insight
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND expires_at > ?", restaurantID, now.UTC()).
		Order("created_at DESC, id").
		Find(&insights).Error
	return insights, err
}
