package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Explain revenue changes",
}

var insightsAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Decompose the revenue change between two adjacent periods",
	RunE: func(cmd *cobra.Command, args []string) error {
		restaurantID, _ := cmd.Flags().GetString("restaurant")
		current, _ := cmd.Flags().GetInt("current-days")
		comparison, _ := cmd.Flags().GetInt("comparison-days")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			in, err := a.engines.Insights.AnalyzeRevenueChange(ctx, restaurantID, current, comparison)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), in)
		})
	},
}

var insightsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List insights that have not expired",
	RunE: func(cmd *cobra.Command, args []string) error {
		restaurantID, _ := cmd.Flags().GetString("restaurant")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			insights, err := a.engines.Insights.GetActiveInsights(ctx, restaurantID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), insights)
		})
	},
}

func init() {
	insightsCmd.PersistentFlags().String("restaurant", "", "Restaurant ID")
	_ = insightsCmd.MarkPersistentFlagRequired("restaurant")
	insightsAnalyzeCmd.Flags().Int("current-days", 7, "Length of the current period in days")
	insightsAnalyzeCmd.Flags().Int("comparison-days", 7, "Length of the comparison period in days")
	insightsCmd.AddCommand(insightsAnalyzeCmd, insightsListCmd)
	rootCmd.AddCommand(insightsCmd)
}
