package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SnapshotLayout is the expected format of pipeline.snapshot_date.
const SnapshotLayout = "2006-01-02"

// Config holds the full application configuration.
type Config struct {
	Source     SourceConfig     `yaml:"source" mapstructure:"source"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// SourceConfig configures where the raw snapshot is read from.
type SourceConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Dir         string `yaml:"dir" mapstructure:"dir"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Schema      string `yaml:"schema" mapstructure:"schema"`
}

// StoreConfig configures the output backend.
type StoreConfig struct {
	Driver      string     `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string     `yaml:"database_url" mapstructure:"database_url"`
	Path        string     `yaml:"path" mapstructure:"path"`
	Dir         string     `yaml:"dir" mapstructure:"dir"`
	Schema      string     `yaml:"schema" mapstructure:"schema"`
	Pool        PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// PipelineConfig configures the build.
type PipelineConfig struct {
	// SnapshotDate is the reference "now" for recency, as YYYY-MM-DD. It has
	// no default: the source data is historical, so wall-clock time is wrong.
	SnapshotDate            string  `yaml:"snapshot_date" mapstructure:"snapshot_date"`
	DensityOutlierThreshold float64 `yaml:"density_outlier_threshold" mapstructure:"density_outlier_threshold"`
	Concurrency             int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// Snapshot parses SnapshotDate.
func (p PipelineConfig) Snapshot() (time.Time, error) {
	if strings.TrimSpace(p.SnapshotDate) == "" {
		return time.Time{}, eris.New("config: pipeline.snapshot_date is required")
	}
	t, err := time.Parse(SnapshotLayout, strings.TrimSpace(p.SnapshotDate))
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "config: parse pipeline.snapshot_date %q", p.SnapshotDate)
	}
	return t, nil
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MonitoringConfig configures data-quality alerts raised after a build.
// Rates are fractions of the relevant table; 0 disables a check.
type MonitoringConfig struct {
	WebhookURL              string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	ChronologyViolationRate float64 `yaml:"chronology_violation_rate" mapstructure:"chronology_violation_rate"`
	MissingPaymentRate      float64 `yaml:"missing_payment_rate" mapstructure:"missing_payment_rate"`
	InvalidPriceRate        float64 `yaml:"invalid_price_rate" mapstructure:"invalid_price_rate"`
	UnmatchedSellerGeoRate  float64 `yaml:"unmatched_seller_geo_rate" mapstructure:"unmatched_seller_geo_rate"`
	MissingTranslationRate  float64 `yaml:"missing_translation_rate" mapstructure:"missing_translation_rate"`
	DuplicateReviewRate     float64 `yaml:"duplicate_review_rate" mapstructure:"duplicate_review_rate"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("WAREHOUSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("source.driver", "csv")
	v.SetDefault("source.dir", "data")
	v.SetDefault("source.schema", "raw")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "warehouse.db")
	v.SetDefault("store.dir", "out")
	v.SetDefault("store.schema", "analytics")
	v.SetDefault("pipeline.snapshot_date", "")
	v.SetDefault("pipeline.density_outlier_threshold", 10.0)
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("monitoring.chronology_violation_rate", 0.01)
	v.SetDefault("monitoring.missing_payment_rate", 0.01)
	v.SetDefault("monitoring.invalid_price_rate", 0.01)
	v.SetDefault("monitoring.unmatched_seller_geo_rate", 0.05)
	v.SetDefault("monitoring.missing_translation_rate", 0.05)
	v.SetDefault("monitoring.duplicate_review_rate", 0.05)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings required by mode: "build", "report" or "migrate".
// All problems are reported together.
func (c *Config) Validate(mode string) error {
	var problems []string

	needSource, needStore := false, false
	switch mode {
	case "build":
		needSource, needStore = true, true
	case "report":
		needSource = true
	case "migrate":
		needStore = true
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if needSource {
		if _, err := c.Pipeline.Snapshot(); err != nil {
			problems = append(problems, strings.TrimPrefix(err.Error(), "config: "))
		}
		if c.Pipeline.Concurrency < 1 || c.Pipeline.Concurrency > 64 {
			problems = append(problems, "pipeline.concurrency must be between 1 and 64")
		}
		if c.Pipeline.DensityOutlierThreshold <= 0 {
			problems = append(problems, "pipeline.density_outlier_threshold must be > 0")
		}
		switch c.Source.Driver {
		case "csv":
			if c.Source.Dir == "" {
				problems = append(problems, "source.dir is required for the csv source")
			}
		case "postgres":
			if c.Source.DatabaseURL == "" {
				problems = append(problems, "source.database_url is required for the postgres source")
			}
		default:
			problems = append(problems, fmt.Sprintf("unknown source.driver %q", c.Source.Driver))
		}
	}

	if needStore {
		switch c.Store.Driver {
		case "sqlite":
			if c.Store.Path == "" {
				problems = append(problems, "store.path is required for the sqlite store")
			}
		case "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required for the postgres store")
			}
		case "csv":
			if c.Store.Dir == "" {
				problems = append(problems, "store.dir is required for the csv store")
			}
		default:
			problems = append(problems, fmt.Sprintf("unknown store.driver %q", c.Store.Driver))
		}
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
