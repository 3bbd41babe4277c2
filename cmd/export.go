package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/chrisdamba/profitlens/internal/analytics"
	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/chrisdamba/profitlens/internal/output"
	"github.com/spf13/cobra"
)

type exportSummary struct {
	Insights  int `json:"insights"`
	Decisions int `json:"decisions"`
	Outcomes  int `json:"outcomes"`
}

// exportRestaurant writes active insights, every decision and every outcome of a
// restaurant to dest as events.
func exportRestaurant(ctx context.Context, engines *analytics.Engines, dest output.Destination, restaurantID string, now time.Time) (exportSummary, error) {
	var summary exportSummary

	insights, err := engines.Insights.GetActiveInsights(ctx, restaurantID)
	if err != nil {
		return summary, err
	}
	for _, in := range insights {
		if err := output.Publish(dest, models.TopicInsightEvents, output.NewInsightEvent(in)); err != nil {
			return summary, err
		}
		summary.Insights++
	}

	decisions, err := engines.Tracker.ListDecisions(ctx, restaurantID)
	if err != nil {
		return summary, err
	}
	byID := make(map[string]*models.Decision, len(decisions))
	for _, d := range decisions {
		byID[d.ID] = d
		ev := output.NewDecisionEvent(output.EventDecisionStatusChanged, d, d.UpdatedAt)
		if d.UpdatedAt.IsZero() {
			ev.Timestamp = now.Unix()
		}
		if err := output.Publish(dest, models.TopicDecisionEvents, ev); err != nil {
			return summary, err
		}
		summary.Decisions++
	}

	outcomes, err := engines.Tracker.ListOutcomes(ctx, restaurantID)
	if err != nil {
		return summary, err
	}
	for _, o := range outcomes {
		d, ok := byID[o.DecisionID]
		if !ok {
			return summary, fmt.Errorf("outcome %s refers to unknown decision %s", o.ID, o.DecisionID)
		}
		if err := output.Publish(dest, models.TopicOutcomeEvents, output.NewOutcomeEvent(d, o)); err != nil {
			return summary, err
		}
		summary.Outcomes++
	}
	return summary, nil
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export insights, decisions and outcomes to the configured output",
	RunE: func(cmd *cobra.Command, args []string) error {
		restaurantID, _ := cmd.Flags().GetString("restaurant")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			dest := a.dest
			if dest == nil {
				var err error
				if dest, err = output.New(ctx, a.cfg); err != nil {
					return fmt.Errorf("open output: %w", err)
				}
				defer dest.Close()
			}
			summary, err := exportRestaurant(ctx, a.engines, dest, restaurantID, time.Now().UTC())
			if err != nil {
				return err
			}
			a.logger.Info("export complete", "restaurant_id", restaurantID,
				"insights", summary.Insights, "decisions", summary.Decisions, "outcomes", summary.Outcomes)
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().String("restaurant", "", "Restaurant ID")
	_ = exportCmd.MarkFlagRequired("restaurant")
	rootCmd.AddCommand(exportCmd)
}
