package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const decisionColumns = `
    id, restaurant_id, type, category, target_kind, target_id, target_name, quadrant,
    priority, predicted_impact, rationale, recommendation, risks, status,
    created_at, updated_at, implemented_at`

type DecisionRepository struct {
	pool *pgxpool.Pool
}

func NewDecisionRepository(pool *pgxpool.Pool) *DecisionRepository {
	return &DecisionRepository{pool: pool}
}

func (r *DecisionRepository) Create(ctx context.Context, d *models.Decision) error {
	impact, err := json.Marshal(d.PredictedImpact)
	if err != nil {
		return fmt.Errorf("marshal predicted impact: %w", err)
	}
	risks, err := json.Marshal(d.Risks)
	if err != nil {
		return fmt.Errorf("marshal risks: %w", err)
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO decisions (`+decisionColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		d.ID, d.RestaurantID, string(d.Type), string(d.Category),
		string(d.Target.Kind), d.Target.EntityID, d.Target.Name, string(d.Quadrant),
		string(d.Priority), impact, d.Rationale, d.Recommendation, risks, string(d.Status),
		d.CreatedAt, d.UpdatedAt, d.ImplementedAt,
	)
	if err != nil {
		return fmt.Errorf("insert decision %s: %w", d.ID, err)
	}
	return nil
}

func scanDecision(row pgx.Row) (*models.Decision, error) {
	d := &models.Decision{}
	var typ, category, kind, quadrant, priority, status string
	var impact, risks []byte
	err := row.Scan(
		&d.ID, &d.RestaurantID, &typ, &category, &kind, &d.Target.EntityID, &d.Target.Name, &quadrant,
		&priority, &impact, &d.Rationale, &d.Recommendation, &risks, &status,
		&d.CreatedAt, &d.UpdatedAt, &d.ImplementedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Type = models.DecisionType(typ)
	d.Category = models.DecisionCategory(category)
	d.Target.Kind = models.TargetKind(kind)
	d.Quadrant = models.MenuQuadrant(quadrant)
	d.Priority = models.Priority(priority)
	d.Status = models.DecisionStatus(status)
	if err := json.Unmarshal(impact, &d.PredictedImpact); err != nil {
		return nil, fmt.Errorf("decode predicted impact of %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(risks, &d.Risks); err != nil {
		return nil, fmt.Errorf("decode risks of %s: %w", d.ID, err)
	}
	return d, nil
}

func (r *DecisionRepository) GetByID(ctx context.Context, id string) (*models.Decision, error) {
	d, err := scanDecision(r.pool.QueryRow(ctx, `SELECT `+decisionColumns+` FROM decisions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *DecisionRepository) ListByStatus(ctx context.Context, restaurantID string, statuses ...models.DecisionStatus) ([]*models.Decision, error) {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	rows, err := r.pool.Query(ctx, `SELECT `+decisionColumns+` FROM decisions
        WHERE restaurant_id = $1 AND (cardinality($2::text[]) = 0 OR status = ANY($2))
        ORDER BY created_at, id`,
		restaurantID, names,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []*models.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// TransitionStatus is a compare-and-set on the status column. The predicted
// impact payload is never part of the update.
func (r *DecisionRepository) TransitionStatus(ctx context.Context, id string, from, to models.DecisionStatus, implementedAt *time.Time, updatedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
        UPDATE decisions
        SET status = $3, updated_at = $4, implemented_at = COALESCE($5, implemented_at)
        WHERE id = $1 AND status = $2`,
		id, string(from), string(to), updatedAt, implementedAt,
	)
	if err != nil {
		return false, fmt.Errorf("update decision %s status: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *DecisionRepository) CreateOutcome(ctx context.Context, o *models.DecisionOutcome) error {
	actual, err := json.Marshal(o.ActualImpact)
	if err != nil {
		return fmt.Errorf("marshal actual impact: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
        INSERT INTO decision_outcomes (id, decision_id, actual_impact, evaluated_at, accuracy_score, evaluation)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.DecisionID, actual, o.EvaluatedAt, o.AccuracyScore, o.Evaluation,
	)
	if isUniqueViolation(err) {
		return models.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert outcome for %s: %w", o.DecisionID, err)
	}
	return nil
}

const outcomeColumns = `o.id, o.decision_id, o.actual_impact, o.evaluated_at, o.accuracy_score, o.evaluation`

func scanOutcome(row pgx.Row) (*models.DecisionOutcome, error) {
	o := &models.DecisionOutcome{}
	var actual []byte
	if err := row.Scan(&o.ID, &o.DecisionID, &actual, &o.EvaluatedAt, &o.AccuracyScore, &o.Evaluation); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(actual, &o.ActualImpact); err != nil {
		return nil, fmt.Errorf("decode actual impact: %w", err)
	}
	return o, nil
}

func (r *DecisionRepository) GetOutcome(ctx context.Context, decisionID string) (*models.DecisionOutcome, error) {
	o, err := scanOutcome(r.pool.QueryRow(ctx,
		`SELECT `+outcomeColumns+` FROM decision_outcomes o WHERE o.decision_id = $1`, decisionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *DecisionRepository) ListOutcomes(ctx context.Context, restaurantID string) ([]*models.DecisionOutcome, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+outcomeColumns+`
        FROM decision_outcomes o
        JOIN decisions d ON d.id = o.decision_id
        WHERE d.restaurant_id = $1
        ORDER BY o.evaluated_at`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []*models.DecisionOutcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}
