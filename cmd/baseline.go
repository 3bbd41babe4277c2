package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// withApp opens the store and engines for the duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Compute and compare per-item sales baselines",
}

var baselineComputeCmd = &cobra.Command{
	Use:   "compute <menu-item-id>...",
	Short: "Compute a new baseline version for each menu item",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lookback, _ := cmd.Flags().GetInt("lookback")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			for _, id := range args {
				b, err := a.engines.Baselines.ComputeItemBaseline(ctx, id, lookback)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), b); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var baselineRecomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute baselines for every active item of a restaurant",
	RunE: func(cmd *cobra.Command, args []string) error {
		restaurantID, _ := cmd.Flags().GetString("restaurant")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			summary, err := a.engines.Baselines.RecomputeRestaurant(ctx, restaurantID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		})
	},
}

var baselineCompareCmd = &cobra.Command{
	Use:   "compare <menu-item-id> <quantity>",
	Short: "Compare a daily quantity against the latest baseline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid quantity %q: %w", args[1], err)
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			cmp, err := a.engines.Baselines.GetBaselineComparison(ctx, args[0], value)
			if err != nil {
				return err
			}
			if cmp == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "No baseline for %s yet\n", args[0])
				return nil
			}
			return printJSON(cmd.OutOrStdout(), cmp)
		})
	},
}

var baselineHistoryCmd = &cobra.Command{
	Use:   "history <menu-item-id>",
	Short: "List every baseline version of a menu item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			versions, err := a.engines.Baselines.BaselineHistory(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), versions)
		})
	},
}

var baselineAsOfCmd = &cobra.Command{
	Use:   "as-of <menu-item-id> <date>",
	Short: "Show the baseline that was current at a date (YYYY-MM-DD or RFC3339)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := parseInstant(args[1])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			b, err := a.engines.Baselines.BaselineAsOf(ctx, args[0], at)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), b)
		})
	},
}

// parseInstant accepts a date, read as the end of that UTC day, or an RFC3339 time.
func parseInstant(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d.Add(24*time.Hour - time.Nanosecond), nil
}

var anomaliesCmd = &cobra.Command{
	Use:   "anomalies",
	Short: "List items selling above or below their baseline on a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		restaurantID, _ := cmd.Flags().GetString("restaurant")
		dateStr, _ := cmd.Flags().GetString("date")
		on := time.Now().UTC()
		if dateStr != "" {
			var err error
			if on, err = time.Parse(time.DateOnly, dateStr); err != nil {
				return fmt.Errorf("invalid date %q: %w", dateStr, err)
			}
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			anomalies, err := a.engines.Baselines.ScanAnomalies(ctx, restaurantID, on)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), anomalies)
		})
	},
}

func init() {
	baselineComputeCmd.Flags().Int("lookback", 0, "Lookback window in days (default from config)")
	baselineRecomputeCmd.Flags().String("restaurant", "", "Restaurant ID")
	_ = baselineRecomputeCmd.MarkFlagRequired("restaurant")
	baselineCmd.AddCommand(baselineComputeCmd, baselineRecomputeCmd, baselineCompareCmd, baselineHistoryCmd, baselineAsOfCmd)

	anomaliesCmd.Flags().String("restaurant", "", "Restaurant ID")
	anomaliesCmd.Flags().String("date", "", "Day to check, YYYY-MM-DD (default today)")
	_ = anomaliesCmd.MarkFlagRequired("restaurant")

	rootCmd.AddCommand(baselineCmd, anomaliesCmd)
}
