package cmd

import (
	"context"
	"time"

	"github.com/chrisdamba/profitlens/internal/factories"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate a synthetic restaurant with order history",
	RunE: func(cmd *cobra.Command, args []string) error {
		seedCfg := cfg.Seed
		return withApp(cmd, func(ctx context.Context, a *app) error {
			bar := progressbar.Default(int64(seedCfg.Days), "seeding orders")
			res, err := factories.New(seedCfg.Seed).Seed(ctx, a.store, seedCfg, time.Now().UTC(), func(int) {
				_ = bar.Add(1)
			})
			_ = bar.Finish()
			if err != nil {
				return err
			}
			a.logger.Info("seed complete",
				"restaurant_id", res.Restaurant.ID, "orders", res.Orders, "cancelled", res.Cancelled,
				"price_changes", res.PriceChanges)
			return printJSON(cmd.OutOrStdout(), res)
		})
	},
}

func init() {
	seedCmd.Flags().Int64("seed", 42, "Random seed")
	seedCmd.Flags().Int("days", 60, "Days of history to generate")
	seedCmd.Flags().Int("menu-items", 20, "Number of menu items")
	seedCmd.Flags().Int("servers", 5, "Number of servers")
	seedCmd.Flags().Int("orders-per-day", 80, "Average orders per day")
	seedCmd.Flags().Float64("cancel-rate", 0.05, "Share of orders cancelled")
	seedCmd.Flags().String("tier", "standard", "Restaurant tier: premium, standard or budget")
	seedCmd.Flags().String("menu-dishes-file", "", "CSV of dish names (second column)")

	bindFlags(seedCmd, map[string]string{
		"seed.seed":             "seed",
		"seed.days":             "days",
		"seed.menu_items":       "menu-items",
		"seed.servers":          "servers",
		"seed.orders_per_day":   "orders-per-day",
		"seed.cancel_rate":      "cancel-rate",
		"seed.tier":             "tier",
		"seed.menu_dishes_file": "menu-dishes-file",
	})
	rootCmd.AddCommand(seedCmd)
}
