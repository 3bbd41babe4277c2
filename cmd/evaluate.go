package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [decision-id]",
	Short: "Measure the outcome of implemented decisions",
	Long: `With a decision ID, evaluates that decision. With --restaurant, evaluates every
implemented decision whose maturation period has passed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		restaurantID, _ := cmd.Flags().GetString("restaurant")
		if len(args) == 0 && restaurantID == "" {
			return errors.New("either a decision ID or --restaurant is required")
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if len(args) == 1 {
				res, err := a.engines.Evaluator.EvaluateDecision(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			}
			summary, err := a.engines.Evaluator.EvaluateImplemented(ctx, restaurantID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		})
	},
}

func init() {
	evaluateCmd.Flags().String("restaurant", "", "Evaluate all implemented decisions of this restaurant")
	rootCmd.AddCommand(evaluateCmd)
}
