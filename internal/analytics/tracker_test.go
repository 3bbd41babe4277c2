package analytics

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/chrisdamba/profitlens/internal/output"
	"github.com/chrisdamba/profitlens/internal/repositories"
	"github.com/chrisdamba/profitlens/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []models.DecisionStatus{
	models.DecisionStatusPending,
	models.DecisionStatusAccepted,
	models.DecisionStatusRejected,
	models.DecisionStatusImplemented,
	models.DecisionStatusDismissed,
}

func newTracker(store *repositories.Store, opts ...Option) *Tracker {
	opts = append([]Option{WithClock(testhelpers.FixedClock(testNow))}, opts...)
	return NewTracker(store, models.DefaultAnalyticsConfig(), nil, opts...)
}

func sampleDecision(restaurantID string) *models.Decision {
	return &models.Decision{
		RestaurantID: restaurantID,
		Type:         models.DecisionPromote,
		Category:     models.CategoryMenu,
		Target:       models.DecisionTarget{Kind: models.TargetItem, EntityID: "item-1", Name: "Lobster"},
		Quadrant:     models.QuadrantPuzzle,
		Priority:     models.PriorityHigh,
		PredictedImpact: models.Impact{
			Min:        63,
			Max:        108,
			Confidence: 75,
			Revenue:    models.NewRevenueImpact(400, 580),
		},
		Rationale:      "earns well, sells little",
		Recommendation: "Feature it",
		Risks:          []string{"Possible 8-12% cannibalization of similar items"},
	}
}

func TestRecordDecision(t *testing.T) {
	store := testhelpers.NewStore(t)
	var buf bytes.Buffer
	tracker := newTracker(store, WithDestination(output.NewConsoleOutput(&buf)))
	ctx := context.Background()

	id, err := tracker.RecordDecision(ctx, sampleDecision("r1"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := tracker.GetDecision(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionStatusPending, got.Status)
	assert.Equal(t, 108.0, got.PredictedImpact.Max)
	assert.Equal(t, "Lobster", got.Target.Name)
	assert.Contains(t, buf.String(), "["+models.TopicDecisionEvents+"]")
	assert.Contains(t, buf.String(), output.EventDecisionCreated)

	d := sampleDecision("r1")
	d.Status = models.DecisionStatusAccepted
	_, err = tracker.RecordDecision(ctx, d)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestUpdateDecisionStatusHappyPath(t *testing.T) {
	store := testhelpers.NewStore(t)
	tracker := newTracker(store)
	ctx := context.Background()

	id, err := tracker.RecordDecision(ctx, sampleDecision("r1"))
	require.NoError(t, err)

	require.NoError(t, tracker.UpdateDecisionStatus(ctx, id, models.DecisionStatusAccepted))
	require.NoError(t, tracker.UpdateDecisionStatus(ctx, id, models.DecisionStatusImplemented))

	got, err := tracker.GetDecision(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionStatusImplemented, got.Status)
	require.NotNil(t, got.ImplementedAt)
	assert.True(t, got.ImplementedAt.Equal(testNow))
	assert.Equal(t, sampleDecision("r1").PredictedImpact, got.PredictedImpact)
}

func TestUpdateDecisionStatusStateMachine(t *testing.T) {
	store := testhelpers.NewStore(t)
	tracker := newTracker(store)
	ctx := context.Background()

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			d := sampleDecision("r1")
			id, err := tracker.RecordDecision(ctx, d)
			require.NoError(t, err)
			if from != models.DecisionStatusPending {
				ok, err := store.Decisions.TransitionStatus(ctx, id, models.DecisionStatusPending, from, nil, testNow)
				require.NoError(t, err)
				require.True(t, ok)
			}

			err = tracker.UpdateDecisionStatus(ctx, id, to)
			got, getErr := tracker.GetDecision(ctx, id)
			require.NoError(t, getErr)

			if from.CanTransition(to) {
				assert.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, got.Status)
			} else {
				assert.ErrorIs(t, err, models.ErrInvalidTransition, "%s -> %s", from, to)
				assert.Equal(t, from, got.Status, "status must not change on %s -> %s", from, to)
			}
		}
	}
}

func TestTransitionTable(t *testing.T) {
	allowed := map[[2]models.DecisionStatus]bool{
		{models.DecisionStatusPending, models.DecisionStatusAccepted}:     true,
		{models.DecisionStatusPending, models.DecisionStatusRejected}:     true,
		{models.DecisionStatusPending, models.DecisionStatusImplemented}:  true,
		{models.DecisionStatusPending, models.DecisionStatusDismissed}:    true,
		{models.DecisionStatusAccepted, models.DecisionStatusImplemented}: true,
		{models.DecisionStatusAccepted, models.DecisionStatusDismissed}:   true,
	}
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			assert.Equal(t, allowed[[2]models.DecisionStatus{from, to}], from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestUpdateDecisionStatusUnknown(t *testing.T) {
	store := testhelpers.NewStore(t)
	tracker := newTracker(store)
	ctx := context.Background()

	assert.ErrorIs(t, tracker.UpdateDecisionStatus(ctx, "missing", models.DecisionStatusAccepted), models.ErrNotFound)

	id, err := tracker.RecordDecision(ctx, sampleDecision("r1"))
	require.NoError(t, err)
	assert.ErrorIs(t, tracker.UpdateDecisionStatus(ctx, id, "archived"), models.ErrInvalidTransition)
}

func TestUpdateDecisionStatusConcurrentTerminalWriters(t *testing.T) {
	store := testhelpers.NewStore(t)
	tracker := newTracker(store)
	ctx := context.Background()

	id, err := tracker.RecordDecision(ctx, sampleDecision("r1"))
	require.NoError(t, err)

	targets := []models.DecisionStatus{
		models.DecisionStatusRejected,
		models.DecisionStatusImplemented,
		models.DecisionStatusDismissed,
	}
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []models.DecisionStatus
	)
	for i := 0; i < 12; i++ {
		to := targets[i%len(targets)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := tracker.UpdateDecisionStatus(ctx, id, to)
			if err == nil {
				mu.Lock()
				succeeded = append(succeeded, to)
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, models.ErrInvalidTransition), "unexpected error: %v", err)
		}()
	}
	wg.Wait()

	require.Len(t, succeeded, 1)
	got, err := tracker.GetDecision(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, succeeded[0], got.Status)
	assert.Equal(t, sampleDecision("r1").PredictedImpact, got.PredictedImpact)
	assert.Equal(t, sampleDecision("r1").Risks, got.Risks)
}

func TestGetPendingDecisions(t *testing.T) {
	store := testhelpers.NewStore(t)
	tracker := newTracker(store)
	ctx := context.Background()

	first, err := tracker.RecordDecision(ctx, sampleDecision("r1"))
	require.NoError(t, err)
	second, err := tracker.RecordDecision(ctx, sampleDecision("r1"))
	require.NoError(t, err)
	_, err = tracker.RecordDecision(ctx, sampleDecision("r2"))
	require.NoError(t, err)
	require.NoError(t, tracker.UpdateDecisionStatus(ctx, second, models.DecisionStatusRejected))

	pending, err := tracker.GetPendingDecisions(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first, pending[0].ID)

	all, err := tracker.ListDecisions(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
