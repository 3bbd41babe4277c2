package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
)

func workflowID(restaurantID string) string {
	return "profitlens-maintenance-" + restaurantID
}

func scheduleID(restaurantID string) string {
	return "profitlens-daily-" + restaurantID
}

// EnsureSchedules creates a daily maintenance schedule for every configured
// restaurant. Schedules that already exist are left alone.
func EnsureSchedules(ctx context.Context, c client.Client, cfg models.TemporalConfig) error {
	for _, restaurantID := range cfg.RestaurantIDs {
		_, err := c.ScheduleClient().Create(ctx, client.ScheduleOptions{
			ID: scheduleID(restaurantID),
			Spec: client.ScheduleSpec{
				CronExpressions: []string{cfg.ScheduleCron},
			},
			Action: &client.ScheduleWorkflowAction{
				ID:        workflowID(restaurantID),
				Workflow:  DailyMaintenanceWorkflow,
				Args:      []interface{}{MaintenanceInput{RestaurantID: restaurantID}},
				TaskQueue: cfg.TaskQueue,
			},
		})
		if errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
			continue
		}
		if err != nil {
			return fmt.Errorf("create schedule for restaurant %s: %w", restaurantID, err)
		}
	}
	return nil
}

// Trigger starts one maintenance run now and returns its run ID.
func Trigger(ctx context.Context, c client.Client, taskQueue string, in MaintenanceInput) (client.WorkflowRun, error) {
	opts := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("%s-%d", workflowID(in.RestaurantID), time.Now().Unix()),
		TaskQueue: taskQueue,
	}
	run, err := c.ExecuteWorkflow(ctx, opts, DailyMaintenanceWorkflow, in)
	if err != nil {
		return nil, fmt.Errorf("start maintenance workflow: %w", err)
	}
	return run, nil
}
