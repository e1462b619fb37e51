package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override, e.g. DISTRISKU_JINA_KEY.
const EnvPrefix = "DISTRISKU"

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Input      InputConfig      `yaml:"input" mapstructure:"input"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Quality    QualityConfig    `yaml:"quality" mapstructure:"quality"`
	Resolver   ResolverConfig   `yaml:"resolver" mapstructure:"resolver"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Fetch      FetchConfig      `yaml:"fetch" mapstructure:"fetch"`
	Breaker    BreakerConfig    `yaml:"breaker" mapstructure:"breaker"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Metrics    MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// InputConfig configures downloads of remote input workbooks.
type InputConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PipelineConfig configures batch processing.
type PipelineConfig struct {
	MaxWorkers int           `yaml:"max_workers" mapstructure:"max_workers"`
	RowDelay   time.Duration `yaml:"row_delay" mapstructure:"row_delay"`
	MaxRows    int           `yaml:"max_rows" mapstructure:"max_rows"`
}

// QualityConfig configures row validation.
type QualityConfig struct {
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
}

// ResolverConfig configures SKU resolution.
type ResolverConfig struct {
	TrustedDomains []string `yaml:"trusted_domains" mapstructure:"trusted_domains"`
	// RulesPath points to a YAML file of extra SKU prefix rules.
	RulesPath string `yaml:"rules_path" mapstructure:"rules_path"`
	// ExcludePaths are URL path globs never fetched for detail extraction.
	ExcludePaths []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
}

// JinaConfig configures the Jina search and reader API. An empty key
// disables web search.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
	Results       int    `yaml:"results" mapstructure:"results"`
}

// FetchConfig configures direct page fetching.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerHost float64 `yaml:"rate_per_host" mapstructure:"rate_per_host"`
}

// BreakerConfig configures the circuit breakers around web lookups.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// StoreConfig configures run history persistence.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// MetricsConfig configures metrics export.
type MetricsConfig struct {
	// Textfile is the node-exporter textfile written after each batch.
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// MonitoringConfig configures run history alerts.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	LookbackHours        int     `yaml:"lookback_hours" mapstructure:"lookback_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	MinValidationRate    float64 `yaml:"min_validation_rate" mapstructure:"min_validation_rate"`
}

// Load reads configuration from .env, config.yaml and the environment, in
// increasing order of precedence over the defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

// setDefaults registers every key so environment overrides are seen by
// Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("input.timeout_secs", 60)
	v.SetDefault("pipeline.max_workers", 3)
	v.SetDefault("pipeline.row_delay", "500ms")
	v.SetDefault("pipeline.max_rows", 1000)
	v.SetDefault("quality.threshold", 95.0)
	v.SetDefault("resolver.trusted_domains", []string{"hikvision.com", "ubitech.fr", "tevah-systems.com", "adi-global.com"})
	v.SetDefault("resolver.rules_path", "")
	v.SetDefault("resolver.exclude_paths", []string{"*.pdf", "*.zip", "/download/*", "/*/download/*", "/support/*"})
	v.SetDefault("jina.key", "")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("jina.results", 5)
	v.SetDefault("fetch.timeout_secs", 15)
	v.SetDefault("fetch.rate_per_host", 2.0)
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.reset_timeout_secs", 60)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "distrisku.db")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.lookback_hours", 24)
	v.SetDefault("monitoring.failure_rate_threshold", 0.2)
	v.SetDefault("monitoring.min_validation_rate", 80.0)
}

// Validate checks values that would make a batch misbehave.
func (c *Config) Validate() error {
	if c.Pipeline.MaxWorkers <= 0 {
		return eris.Errorf("config: pipeline.max_workers must be positive, got %d", c.Pipeline.MaxWorkers)
	}
	if c.Pipeline.RowDelay < 0 {
		return eris.Errorf("config: pipeline.row_delay must not be negative, got %s", c.Pipeline.RowDelay)
	}
	if c.Pipeline.MaxRows < 0 {
		return eris.Errorf("config: pipeline.max_rows must not be negative, got %d", c.Pipeline.MaxRows)
	}
	if c.Quality.Threshold < 0 || c.Quality.Threshold > 100 {
		return eris.Errorf("config: quality.threshold must be within [0,100], got %g", c.Quality.Threshold)
	}
	switch c.Store.Driver {
	case "sqlite", "postgres", "none":
	default:
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if c.Store.Driver != "none" && c.Store.DatabaseURL == "" {
		return eris.Errorf("config: store.database_url is required for driver %q", c.Store.Driver)
	}
	if c.Monitoring.FailureRateThreshold < 0 || c.Monitoring.FailureRateThreshold > 1 {
		return eris.Errorf("config: monitoring.failure_rate_threshold must be within [0,1], got %g", c.Monitoring.FailureRateThreshold)
	}
	return nil
}

// FetchTimeout returns the page fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSecs) * time.Second
}

// InputTimeout returns the remote input download timeout.
func (c *Config) InputTimeout() time.Duration {
	return time.Duration(c.Input.TimeoutSecs) * time.Second
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
