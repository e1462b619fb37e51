package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 60*time.Second, cfg.InputTimeout())
	assert.Equal(t, 3, cfg.Pipeline.MaxWorkers)
	assert.Equal(t, 500*time.Millisecond, cfg.Pipeline.RowDelay)
	assert.Equal(t, 1000, cfg.Pipeline.MaxRows)
	assert.InDelta(t, 95.0, cfg.Quality.Threshold, 1e-9)
	assert.Contains(t, cfg.Resolver.TrustedDomains, "hikvision.com")
	assert.Contains(t, cfg.Resolver.ExcludePaths, "*.pdf")
	assert.Empty(t, cfg.Jina.Key)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "https://s.jina.ai", cfg.Jina.SearchBaseURL)
	assert.Equal(t, 15, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout())
	assert.InDelta(t, 2.0, cfg.Fetch.RatePerHost, 1e-9)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 60, cfg.Breaker.ResetTimeoutSecs)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "distrisku.db", cfg.Store.DatabaseURL)
	assert.Empty(t, cfg.Metrics.Textfile)
	assert.Equal(t, 24, cfg.Monitoring.LookbackHours)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
pipeline:
  max_workers: 1
  row_delay: 2s
quality:
  threshold: 90
resolver:
  trusted_domains: [hikvision.com]
  rules_path: rules.yaml
store:
  driver: none
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 1, cfg.Pipeline.MaxWorkers)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.RowDelay)
	assert.InDelta(t, 90.0, cfg.Quality.Threshold, 1e-9)
	assert.Equal(t, []string{"hikvision.com"}, cfg.Resolver.TrustedDomains)
	assert.Equal(t, "rules.yaml", cfg.Resolver.RulesPath)
	assert.Equal(t, "none", cfg.Store.Driver)
	// Defaults still apply for unset values.
	assert.Equal(t, 1000, cfg.Pipeline.MaxRows)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
store:
  driver: sqlite
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("DISTRISKU_LOG_LEVEL", "warn")
	t.Setenv("DISTRISKU_STORE_DRIVER", "postgres")
	t.Setenv("DISTRISKU_PIPELINE_MAX_WORKERS", "6")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 6, cfg.Pipeline.MaxWorkers)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DISTRISKU_JINA_KEY=jina_test_key\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("DISTRISKU_JINA_KEY") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "jina_test_key", cfg.Jina.Key)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func validDefaults() *Config {
	return &Config{
		Pipeline:   PipelineConfig{MaxWorkers: 3, RowDelay: 500 * time.Millisecond, MaxRows: 1000},
		Quality:    QualityConfig{Threshold: 95},
		Store:      StoreConfig{Driver: "sqlite", DatabaseURL: "distrisku.db"},
		Monitoring: MonitoringConfig{FailureRateThreshold: 0.2},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero workers", func(c *Config) { c.Pipeline.MaxWorkers = 0 }, "max_workers"},
		{"negative delay", func(c *Config) { c.Pipeline.RowDelay = -time.Second }, "row_delay"},
		{"negative max rows", func(c *Config) { c.Pipeline.MaxRows = -1 }, "max_rows"},
		{"threshold above 100", func(c *Config) { c.Quality.Threshold = 101 }, "quality.threshold"},
		{"threshold below 0", func(c *Config) { c.Quality.Threshold = -1 }, "quality.threshold"},
		{"threshold 0 ok", func(c *Config) { c.Quality.Threshold = 0 }, ""},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }, "store.driver"},
		{"missing url", func(c *Config) { c.Store.DatabaseURL = "" }, "database_url"},
		{"none without url", func(c *Config) { c.Store = StoreConfig{Driver: "none"} }, ""},
		{"failure rate", func(c *Config) { c.Monitoring.FailureRateThreshold = 2 }, "failure_rate_threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
