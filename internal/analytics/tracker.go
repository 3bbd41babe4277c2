package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/chrisdamba/profitlens/internal/output"
	"github.com/chrisdamba/profitlens/internal/repositories"
	"github.com/lucsky/cuid"
)

var errConcurrentUpdate = errors.New("decision status kept changing concurrently")

// Tracker persists decisions and moves them through the status state machine.
type Tracker struct {
	base
}

func NewTracker(store *repositories.Store, cfg models.AnalyticsConfig, logger *slog.Logger, opts ...Option) *Tracker {
	return &Tracker{base: newBase(store, cfg, logger, "tracker", opts)}
}

// RecordDecision stores a new pending decision and returns its ID.
func (t *Tracker) RecordDecision(ctx context.Context, d *models.Decision) (string, error) {
	if d.Status == "" {
		d.Status = models.DecisionStatusPending
	}
	if d.Status != models.DecisionStatusPending {
		return "", fmt.Errorf("new decisions must be pending, got %s: %w", d.Status, models.ErrInvalidTransition)
	}
	if d.ID == "" {
		d.ID = cuid.New()
	}
	now := t.now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	if err := t.store.Decisions.Create(ctx, d); err != nil {
		return "", models.NewComputationError("store decision", err)
	}
	t.logger.Info("decision recorded", "decision_id", d.ID, "restaurant_id", d.RestaurantID, "type", d.Type)
	t.publish(models.TopicDecisionEvents, output.NewDecisionEvent(output.EventDecisionCreated, d, now))
	return d.ID, nil
}

// UpdateDecisionStatus applies one transition. Writers for the same decision are
// serialised by the locker and the store only applies the change if the status
// read is still current.
func (t *Tracker) UpdateDecisionStatus(ctx context.Context, id string, to models.DecisionStatus) (err error) {
	defer observe("tracker", time.Now(), &err)
	if !to.Valid() {
		return fmt.Errorf("unknown status %q: %w", to, models.ErrInvalidTransition)
	}

	return t.withLock(ctx, "decision:"+id, func() error {
		for attempt := 0; attempt < max(1, t.cfg.TransitionRetries); attempt++ {
			d, err := t.GetDecision(ctx, id)
			if err != nil {
				return err
			}
			if !d.Status.CanTransition(to) {
				return fmt.Errorf("decision %s: %s -> %s: %w", id, d.Status, to, models.ErrInvalidTransition)
			}

			now := t.now()
			var implementedAt *time.Time
			if to == models.DecisionStatusImplemented {
				implementedAt = &now
			}
			ok, err := t.store.Decisions.TransitionStatus(ctx, id, d.Status, to, implementedAt, now)
			if err != nil {
				return models.NewComputationError("update decision status", err)
			}
			if !ok {
				t.logger.Debug("decision status changed underneath, retrying", "decision_id", id, "attempt", attempt+1)
				continue
			}

			from := d.Status
			d.Status, d.UpdatedAt = to, now
			if implementedAt != nil {
				d.ImplementedAt = implementedAt
			}
			t.logger.Info("decision status changed", "decision_id", id, "from", from, "to", to)
			t.publish(models.TopicDecisionEvents, output.NewDecisionEvent(output.EventDecisionStatusChanged, d, now))
			return nil
		}
		return models.NewComputationError("update decision status", errConcurrentUpdate)
	})
}

func (t *Tracker) GetDecision(ctx context.Context, id string) (*models.Decision, error) {
	d, err := t.store.Decisions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("decision %s: %w", id, err)
		}
		return nil, models.NewComputationError("load decision", err)
	}
	return d, nil
}

// GetPendingDecisions returns decisions still awaiting a response, oldest first.
func (t *Tracker) GetPendingDecisions(ctx context.Context, restaurantID string) ([]*models.Decision, error) {
	return t.ListDecisions(ctx, restaurantID, models.DecisionStatusPending)
}

// ListDecisions returns the restaurant's decisions in the given statuses, or all
// of them when none are given.
func (t *Tracker) ListDecisions(ctx context.Context, restaurantID string, statuses ...models.DecisionStatus) ([]*models.Decision, error) {
	decisions, err := t.store.Decisions.ListByStatus(ctx, restaurantID, statuses...)
	if err != nil {
		return nil, models.NewComputationError("list decisions", err)
	}
	return decisions, nil
}

func (t *Tracker) ListOutcomes(ctx context.Context, restaurantID string) ([]*models.DecisionOutcome, error) {
	outcomes, err := t.store.Decisions.ListOutcomes(ctx, restaurantID)
	if err != nil {
		return nil, models.NewComputationError("list outcomes", err)
	}
	return outcomes, nil
}
