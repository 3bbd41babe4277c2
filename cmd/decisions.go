package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/spf13/cobra"
)

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "Generate and track profit decisions",
}

var decisionsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate ranked menu, channel and capacity decisions",
	RunE: func(cmd *cobra.Command, args []string) error {
		restaurantID, _ := cmd.Flags().GetString("restaurant")
		record, _ := cmd.Flags().GetBool("record")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			decisions, err := a.engines.Decisions.GenerateDecisions(ctx, restaurantID)
			if err != nil {
				return err
			}
			if record {
				for _, d := range decisions {
					if _, err := a.engines.Tracker.RecordDecision(ctx, d); err != nil {
						return err
					}
				}
			}
			return printJSON(cmd.OutOrStdout(), decisions)
		})
	},
}

// readDecisions accepts a JSON array of decisions or a single decision.
func readDecisions(path string) ([]*models.Decision, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var many []*models.Decision
	if err := json.Unmarshal(data, &many); err == nil {
		return many, nil
	}
	var one models.Decision
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("decode decisions from %s: %w", path, err)
	}
	return []*models.Decision{&one}, nil
}

var decisionsRecordCmd = &cobra.Command{
	Use:   "record <file.json>",
	Short: "Record decisions previously produced by generate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		decisions, err := readDecisions(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			for _, d := range decisions {
				id, err := a.engines.Tracker.RecordDecision(ctx, d)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		})
	},
}

var decisionsStatusCmd = &cobra.Command{
	Use:   "status <decision-id> <status>",
	Short: "Move a decision to accepted, rejected, implemented or dismissed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.engines.Tracker.UpdateDecisionStatus(ctx, args[0], models.DecisionStatus(args[1])); err != nil {
				return err
			}
			d, err := a.engines.Tracker.GetDecision(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), d)
		})
	},
}

var decisionsPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List decisions awaiting a response",
	RunE: func(cmd *cobra.Command, args []string) error {
		restaurantID, _ := cmd.Flags().GetString("restaurant")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			decisions, err := a.engines.Tracker.GetPendingDecisions(ctx, restaurantID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), decisions)
		})
	},
}

func init() {
	decisionsGenerateCmd.Flags().String("restaurant", "", "Restaurant ID")
	decisionsGenerateCmd.Flags().Bool("record", false, "Record the generated decisions as pending")
	_ = decisionsGenerateCmd.MarkFlagRequired("restaurant")
	decisionsPendingCmd.Flags().String("restaurant", "", "Restaurant ID")
	_ = decisionsPendingCmd.MarkFlagRequired("restaurant")

	decisionsCmd.AddCommand(decisionsGenerateCmd, decisionsRecordCmd, decisionsStatusCmd, decisionsPendingCmd)
	rootCmd.AddCommand(decisionsCmd)
}
