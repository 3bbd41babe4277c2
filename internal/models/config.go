package models

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"` // postgres or sqlite
	URL        string `mapstructure:"url"`
	SQLitePath string `mapstructure:"sqlite_path"`
	MaxConns   int32  `mapstructure:"max_conns"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type KafkaConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BrokerList  string `mapstructure:"broker_list"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

type OutputConfig struct {
	Format      string `mapstructure:"format"`      // console, json, csv, parquet, kafka
	Destination string `mapstructure:"destination"` // local or cloud
	Path        string `mapstructure:"path"`
	Folder      string `mapstructure:"folder"`
	Publish     bool   `mapstructure:"publish"` // publish engine events while commands run
}

type CloudStorageConfig struct {
	Provider   string `mapstructure:"provider"`
	BucketName string `mapstructure:"bucket_name"`
	Region     string `mapstructure:"region"`
}

type TemporalConfig struct {
	HostPort      string   `mapstructure:"host_port"`
	Namespace     string   `mapstructure:"namespace"`
	TaskQueue     string   `mapstructure:"task_queue"`
	ScheduleCron  string   `mapstructure:"schedule_cron"`
	RestaurantIDs []string `mapstructure:"restaurant_ids"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// AnalyticsConfig holds every tunable constant used by the analytic engines.
type AnalyticsConfig struct {
	BaselineLookbackDays   int     `mapstructure:"baseline_lookback_days"`
	BaselineMinDays        int     `mapstructure:"baseline_min_days"`
	BaselineConcurrency    int     `mapstructure:"baseline_concurrency"`
	DefaultElasticity      float64 `mapstructure:"default_elasticity"`
	ElasticityMinPriceMove float64 `mapstructure:"elasticity_min_price_move"`
	DeviationThreshold     float64 `mapstructure:"deviation_threshold"`

	MaterialityPct      float64       `mapstructure:"materiality_pct"`
	DominantFactorShare float64       `mapstructure:"dominant_factor_share"`
	ConfidenceCap       float64       `mapstructure:"confidence_cap"`
	ConfidenceSamples   int           `mapstructure:"confidence_samples"`
	InsightTTL          time.Duration `mapstructure:"insight_ttl"`
	WarningPct          float64       `mapstructure:"warning_pct"`
	CriticalPct         float64       `mapstructure:"critical_pct"`

	DecisionLookbackDays  int      `mapstructure:"decision_lookback_days"`
	MarginThreshold       float64  `mapstructure:"margin_threshold"`
	HighMarginThreshold   float64  `mapstructure:"high_margin_threshold"`
	HighVolumeThreshold   int      `mapstructure:"high_volume_threshold"`
	PromoteVolumeLift     float64  `mapstructure:"promote_volume_lift"`
	RepricePriceIncrease  float64  `mapstructure:"reprice_price_increase"`
	RepriceVolumeLoss     float64  `mapstructure:"reprice_volume_loss"`
	SlowPrepMinutes       float64  `mapstructure:"slow_prep_minutes"`
	BlockingFactor        float64  `mapstructure:"blocking_factor"`
	RemoveSubstitution    float64  `mapstructure:"remove_substitution"` // share of a removed dish's sales that move to other dishes
	TargetAggregatorShare float64  `mapstructure:"target_aggregator_share"`
	ChannelCapture        float64  `mapstructure:"channel_capture"`
	AggregatorChannels    []string `mapstructure:"aggregator_channels"`
	PeakStartHour         int      `mapstructure:"peak_start_hour"`
	PeakEndHour           int      `mapstructure:"peak_end_hour"`
	RevPASHRatio          float64  `mapstructure:"revpash_ratio"`
	CapacityImprovement   float64  `mapstructure:"capacity_improvement"`
	CapacityHorizonDays   int      `mapstructure:"capacity_horizon_days"`

	MaturationDays    int `mapstructure:"maturation_days"`
	PreWindowDays     int `mapstructure:"pre_window_days"`
	TransitionRetries int `mapstructure:"transition_retries"`
}

type SeedConfig struct {
	Seed           int64    `mapstructure:"seed"`
	Days           int      `mapstructure:"days"`
	MenuItems      int      `mapstructure:"menu_items"`
	Servers        int      `mapstructure:"servers"`
	OrdersPerDay   int      `mapstructure:"orders_per_day"`
	CancelRate     float64  `mapstructure:"cancel_rate"`
	BatchSize      int      `mapstructure:"batch_size"`
	Tier           string   `mapstructure:"tier"` // premium, standard or budget
	MenuDishesFile string   `mapstructure:"menu_dishes_file"`
	MenuDishes     []string `mapstructure:"-"`
}

type Config struct {
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Output       OutputConfig       `mapstructure:"output"`
	CloudStorage CloudStorageConfig `mapstructure:"cloud_storage"`
	Temporal     TemporalConfig     `mapstructure:"temporal"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Log          LogConfig          `mapstructure:"log"`
	Analytics    AnalyticsConfig    `mapstructure:"analytics"`
	Seed         SeedConfig         `mapstructure:"seed"`
}

// DefaultAnalyticsConfig returns the constants the engines use when nothing is configured.
func DefaultAnalyticsConfig() AnalyticsConfig {
	aggregators := make([]string, 0, len(DefaultAggregatorChannels))
	for _, ch := range DefaultAggregatorChannels {
		aggregators = append(aggregators, string(ch))
	}
	return AnalyticsConfig{
		BaselineLookbackDays:   30,
		BaselineMinDays:        7,
		BaselineConcurrency:    4,
		DefaultElasticity:      DefaultPriceElasticity,
		ElasticityMinPriceMove: 0.02,
		DeviationThreshold:     0.5,

		MaterialityPct:      5,
		DominantFactorShare: 0.30,
		ConfidenceCap:       0.85,
		ConfidenceSamples:   200,
		InsightTTL:          7 * 24 * time.Hour,
		WarningPct:          10,
		CriticalPct:         20,

		DecisionLookbackDays:  30,
		MarginThreshold:       5,
		HighMarginThreshold:   10,
		HighVolumeThreshold:   100,
		PromoteVolumeLift:     0.45,
		RepricePriceIncrease:  0.15,
		RepriceVolumeLoss:     0.25,
		SlowPrepMinutes:       15,
		BlockingFactor:        2.3,
		RemoveSubstitution:    0.5,
		TargetAggregatorShare: 0.30,
		ChannelCapture:        0.5,
		AggregatorChannels:    aggregators,
		PeakStartHour:         18,
		PeakEndHour:           21,
		RevPASHRatio:          2.0,
		CapacityImprovement:   0.10,
		CapacityHorizonDays:   30,

		MaturationDays:    7,
		PreWindowDays:     14,
		TransitionRetries: 3,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "")
	v.SetDefault("database.sqlite_path", "profitlens.db")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", "30s")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.broker_list", "localhost:9092")
	v.SetDefault("kafka.topic_prefix", "profitlens.")
	v.SetDefault("output.format", "console")
	v.SetDefault("output.destination", "local")
	v.SetDefault("output.path", "output")
	v.SetDefault("output.folder", "")
	v.SetDefault("output.publish", false)
	v.SetDefault("cloud_storage.provider", "s3")
	v.SetDefault("cloud_storage.bucket_name", "")
	v.SetDefault("cloud_storage.region", "eu-west-2")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "profitlens-maintenance")
	v.SetDefault("temporal.schedule_cron", "0 3 * * *")
	v.SetDefault("metrics.addr", ":9102")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("seed.seed", 42)
	v.SetDefault("seed.days", 60)
	v.SetDefault("seed.menu_items", 20)
	v.SetDefault("seed.servers", 5)
	v.SetDefault("seed.orders_per_day", 80)
	v.SetDefault("seed.cancel_rate", 0.05)
	v.SetDefault("seed.batch_size", 500)
	v.SetDefault("seed.menu_dishes_file", "")
	v.SetDefault("seed.tier", "standard")

	// analytics defaults are registered key by key so env overrides bind
	var raw map[string]interface{}
	if err := mapstructure.Decode(DefaultAnalyticsConfig(), &raw); err == nil {
		for k, val := range raw {
			if d, ok := val.(time.Duration); ok {
				val = d.String()
			}
			v.SetDefault("analytics."+k, val)
		}
	}
}

// LoadConfig reads configuration from an optional file, the environment and a .env file.
func LoadConfig(cfgFile string) (*Config, error) {
	return LoadConfigWith(viper.GetViper(), cfgFile)
}

// LoadConfigWith decodes configuration using the given viper instance.
func LoadConfigWith(v *viper.Viper, cfgFile string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	setDefaults(v)
	v.SetEnvPrefix("PROFITLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	decoderConfigOption := viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err := v.Unmarshal(&config, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	if config.Seed.MenuDishesFile != "" {
		if err := config.Seed.LoadMenuDishData(config.Seed.MenuDishesFile); err != nil {
			return nil, fmt.Errorf("loading menu dishes: %w", err)
		}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (cfg *Config) Validate() error {
	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.URL == "" {
			return errors.New("database.url is required for the postgres driver")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
	a := cfg.Analytics
	if a.BaselineMinDays < 1 || a.BaselineLookbackDays < a.BaselineMinDays {
		return fmt.Errorf("invalid baseline window: lookback %d, min days %d", a.BaselineLookbackDays, a.BaselineMinDays)
	}
	if a.MaturationDays < 1 || a.PreWindowDays < 1 {
		return fmt.Errorf("invalid evaluation windows: maturation %d days, pre-window %d days", a.MaturationDays, a.PreWindowDays)
	}
	if a.RemoveSubstitution < 0 || a.RemoveSubstitution > 1 {
		return fmt.Errorf("invalid remove substitution %v, want a share between 0 and 1", a.RemoveSubstitution)
	}
	if a.PeakStartHour < 0 || a.PeakEndHour > 24 || a.PeakStartHour >= a.PeakEndHour {
		return fmt.Errorf("invalid peak window %d-%d", a.PeakStartHour, a.PeakEndHour)
	}
	return nil
}

// LoadMenuDishData reads dish names from a CSV file whose second column is the name.
func (cfg *SeedConfig) LoadMenuDishData(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if _, err := reader.Read(); err != nil {
		return err
	}

	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(fields) < 2 || strings.TrimSpace(fields[1]) == "" {
			continue
		}
		cfg.MenuDishes = append(cfg.MenuDishes, strings.TrimSpace(fields[1]))
	}

	return nil
}
