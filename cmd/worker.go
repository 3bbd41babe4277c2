package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/chrisdamba/profitlens/internal/workflows"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
)

func dialTemporal(tc models.TemporalConfig) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  tc.HostPort,
		Namespace: tc.Namespace,
		Logger:    tlog.NewStructuredLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create Temporal client: %w", err)
	}
	return c, nil
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	return srv
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal worker for scheduled maintenance",
	RunE: func(cmd *cobra.Command, args []string) error {
		schedule, _ := cmd.Flags().GetBool("schedule")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			c, err := dialTemporal(a.cfg.Temporal)
			if err != nil {
				return err
			}
			defer c.Close()

			if schedule {
				if err := workflows.EnsureSchedules(ctx, c, a.cfg.Temporal); err != nil {
					return err
				}
				a.logger.Info("maintenance schedules ensured", "restaurants", len(a.cfg.Temporal.RestaurantIDs))
			}

			srv := serveMetrics(a.cfg.Metrics.Addr)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			w := worker.New(c, a.cfg.Temporal.TaskQueue, worker.Options{})
			w.RegisterWorkflow(workflows.DailyMaintenanceWorkflow)
			w.RegisterActivity(&workflows.Activities{Engines: a.engines})

			a.logger.Info("worker started", "task_queue", a.cfg.Temporal.TaskQueue, "metrics", a.cfg.Metrics.Addr)
			if err := w.Run(worker.InterruptCh()); err != nil {
				return fmt.Errorf("unable to start worker: %w", err)
			}
			return nil
		})
	},
}

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Start a maintenance workflow run now",
	RunE: func(cmd *cobra.Command, args []string) error {
		restaurantID, _ := cmd.Flags().GetString("restaurant")
		wait, _ := cmd.Flags().GetBool("wait")
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		c, err := dialTemporal(cfg.Temporal)
		if err != nil {
			return err
		}
		defer c.Close()

		run, err := workflows.Trigger(ctx, c, cfg.Temporal.TaskQueue, workflows.MaintenanceInput{RestaurantID: restaurantID})
		if err != nil {
			return err
		}
		logger.Info("started workflow", "workflow_id", run.GetID(), "run_id", run.GetRunID())
		if !wait {
			return nil
		}
		var res workflows.MaintenanceResult
		if err := run.Get(ctx, &res); err != nil {
			return fmt.Errorf("maintenance workflow failed: %w", err)
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	workerCmd.Flags().Bool("schedule", false, "Create daily maintenance schedules for temporal.restaurant_ids")
	workerCmd.Flags().String("temporal-host", "localhost:7233", "Temporal frontend address")
	workerCmd.Flags().String("metrics-addr", ":9102", "Address serving /metrics")
	bindFlags(workerCmd, map[string]string{
		"temporal.host_port": "temporal-host",
		"metrics.addr":       "metrics-addr",
	})

	triggerCmd.Flags().String("restaurant", "", "Restaurant ID")
	triggerCmd.Flags().Bool("wait", false, "Wait for the run to finish and print its result")
	_ = triggerCmd.MarkFlagRequired("restaurant")

	rootCmd.AddCommand(workerCmd, triggerCmd)
}
