package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type InsightRepository struct {
	pool *pgxpool.Pool
}

func NewInsightRepository(pool *pgxpool.Pool) *InsightRepository {
	return &InsightRepository{pool: pool}
}

func (r *InsightRepository) Create(ctx context.Context, in *models.Insight) error {
	factors, err := json.Marshal(in.Factors)
	if err != nil {
		return fmt.Errorf("marshal factors: %w", err)
	}
	assumptions, err := json.Marshal(in.Assumptions)
	if err != nil {
		return fmt.Errorf("marshal assumptions: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
        INSERT INTO insights (
            id, restaurant_id, type, severity, current_from, current_to, comparison_from, comparison_to,
            current_revenue, comparison_revenue, total_change, percent_change, factors, formula,
            explanation, assumptions, sample_size, current_samples, comparison_samples, confidence,
            recommendation, created_at, expires_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10::numeric, $11::numeric, $12, $13, $14,
            $15, $16, $17, $18, $19, $20, $21, $22, $23
        )`,
		in.ID, in.RestaurantID, in.Type, string(in.Severity),
		in.CurrentFrom, in.CurrentTo, in.ComparisonFrom, in.ComparisonTo,
		in.CurrentRevenue.String(), in.ComparisonRevenue.String(), in.TotalChange.String(),
		in.PercentChange, factors, in.Formula, in.Explanation, assumptions,
		in.SampleSize, in.CurrentSamples, in.ComparisonSamples, in.Confidence,
		in.Recommendation, in.CreatedAt, in.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert insight %s: %w", in.ID, err)
	}
	return nil
}

func (r *InsightRepository) GetActive(ctx context.Context, restaurantID string, now time.Time) ([]*models.Insight, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, restaurant_id, type, severity, current_from, current_to, comparison_from, comparison_to,
               current_revenue::text, comparison_revenue::text, total_change::text, percent_change,
               factors, formula, explanation, assumptions, sample_size, current_samples,
               comparison_samples, confidence, recommendation, created_at, expires_at
        FROM insights
        WHERE restaurant_id = $1 AND expires_at > $2
        ORDER BY created_at DESC, id`, restaurantID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var insights []*models.Insight
	for rows.Next() {
		in := &models.Insight{}
		var severity, current, comparison, change string
		var factors, assumptions []byte
		err := rows.Scan(
			&in.ID, &in.RestaurantID, &in.Type, &severity,
			&in.CurrentFrom, &in.CurrentTo, &in.ComparisonFrom, &in.ComparisonTo,
			&current, &comparison, &change, &in.PercentChange,
			&factors, &in.Formula, &in.Explanation, &assumptions,
			&in.SampleSize, &in.CurrentSamples, &in.ComparisonSamples, &in.Confidence,
			&in.Recommendation, &in.CreatedAt, &in.ExpiresAt,
		)
		if err != nil {
			return nil, err
		}
		in.Severity = models.Severity(severity)
		if in.CurrentRevenue, err = decimal.NewFromString(current); err != nil {
			return nil, err
		}
		if in.ComparisonRevenue, err = decimal.NewFromString(comparison); err != nil {
			return nil, err
		}
		if in.TotalChange, err = decimal.NewFromString(change); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(factors, &in.Factors); err != nil {
			return nil, fmt.Errorf("decode factors: %w", err)
		}
		if err := json.Unmarshal(assumptions, &in.Assumptions); err != nil {
			return nil, fmt.Errorf("decode assumptions: %w", err)
		}
		insights = append(insights, in)
	}
	return insights, rows.Err()
}
