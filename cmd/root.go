package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chrisdamba/profitlens/internal/logging"
	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	cfg     *models.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "profitlens",
	Short: "Explains restaurant revenue and recommends profit decisions",
	Long: `profitlens builds per-item sales baselines, decomposes revenue changes into volume,
price and mix effects, recommends menu, channel and capacity decisions, and measures
how accurate those recommendations turned out to be.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = models.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger = logging.New(os.Stderr, cfg.Log)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.profitlens.yaml)")

	rootCmd.PersistentFlags().String("db-driver", "sqlite", "Database driver: sqlite or postgres")
	rootCmd.PersistentFlags().String("db-url", "", "Postgres connection URL")
	rootCmd.PersistentFlags().String("sqlite-path", "profitlens.db", "SQLite database file")
	rootCmd.PersistentFlags().Bool("redis-enabled", false, "Serialise writes through Redis locks")
	rootCmd.PersistentFlags().String("redis-addr", "localhost:6379", "Redis address")
	rootCmd.PersistentFlags().String("output-format", "console", "Event output: console, json, csv, parquet or kafka")
	rootCmd.PersistentFlags().String("output-path", "output", "Base path for file outputs")
	rootCmd.PersistentFlags().Bool("publish", false, "Publish engine events to the configured output")
	rootCmd.PersistentFlags().Bool("kafka-enabled", false, "Enable Kafka output")
	rootCmd.PersistentFlags().String("kafka-broker-list", "localhost:9092", "Kafka broker list")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")

	bindFlags(rootCmd, map[string]string{
		"database.driver":      "db-driver",
		"database.url":         "db-url",
		"database.sqlite_path": "sqlite-path",
		"redis.enabled":        "redis-enabled",
		"redis.addr":           "redis-addr",
		"output.format":        "output-format",
		"output.path":          "output-path",
		"output.publish":       "publish",
		"kafka.enabled":        "kafka-enabled",
		"kafka.broker_list":    "kafka-broker-list",
		"log.level":            "log-level",
		"log.format":           "log-format",
	})
}

// bindFlags binds config keys to persistent or local flags of cmd.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		flag := cmd.PersistentFlags().Lookup(name)
		if flag == nil {
			flag = cmd.Flags().Lookup(name)
		}
		cobra.CheckErr(viper.BindPFlag(key, flag))
	}
}

func initConfig() {
	if cfgFile != "" {
		return
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	candidate := filepath.Join(home, ".profitlens.yaml")
	if _, err := os.Stat(candidate); err == nil {
		cfgFile = candidate
		fmt.Fprintln(os.Stderr, "Using config file:", candidate)
	} else if !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Ignoring config file:", err)
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
