package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data/coffee.csv", cfg.Paths.RawCSV)
	assert.Equal(t, "data/coffee_cleaned.csv", cfg.Paths.CleanedCSV)
	assert.Equal(t, 2.0, cfg.Analysis.OthersThresholdPct)
	assert.Equal(t, "Not Defined", cfg.Analysis.UndefinedSize)
	assert.Equal(t, []SizeDefault{{"Latte", "Small"}, {"Cappuccino", "Regular"}}, cfg.Analysis.SizeDefaults)
	assert.Len(t, cfg.Analysis.WeekdayOrder, 7)
	assert.Equal(t, "Sunday", cfg.Analysis.WeekdayOrder[0])
	assert.Equal(t, "localhost:8084", cfg.Address())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coffee.yaml")
	content := `
paths:
  raw_csv: in/raw.csv
logger:
  level: debug
  format: text
analysis:
  others_threshold_pct: 5
  size_defaults:
    - product: Mocha
      size: Large
server:
  read_timeout: 3s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "in/raw.csv", cfg.Paths.RawCSV)
	assert.Equal(t, "data/coffee_cleaned.csv", cfg.Paths.CleanedCSV)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, 5.0, cfg.Analysis.OthersThresholdPct)
	assert.Equal(t, []SizeDefault{{"Mocha", "Large"}}, cfg.Analysis.SizeDefaults)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coffee.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logger:\n  level: debug\n"), 0o644))

	t.Setenv("COFFEE_LOGGER_LEVEL", "warn")
	t.Setenv("COFFEE_SERVER_PORT", "9090")
	t.Setenv("COFFEE_ANALYSIS_DRINK_CATEGORIES", "Coffee,Tea")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"Coffee", "Tea"}, cfg.Analysis.DrinkCategories)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "Port"},
		{"bad log level", func(c *Config) { c.Logger.Level = "trace" }, "Level"},
		{"bad log format", func(c *Config) { c.Logger.Format = "xml" }, "Format"},
		{"zero threshold", func(c *Config) { c.Analysis.OthersThresholdPct = 0 }, "OthersThresholdPct"},
		{"no drink categories", func(c *Config) { c.Analysis.DrinkCategories = nil }, "DrinkCategories"},
		{"empty size default", func(c *Config) { c.Analysis.SizeDefaults = []SizeDefault{{Product: "Latte"}} }, "Size"},
		{"unknown exporter", func(c *Config) { c.Tracing.Exporter = "jaeger" }, "Exporter"},
		{"zero burst", func(c *Config) { c.Security.RateLimitBurst = 0 }, "RateLimitBurst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestAnalysisConfig_Validate(t *testing.T) {
	assert.NoError(t, Default().Analysis.Validate())

	err := AnalysisConfig{}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Workers")
	assert.Contains(t, err.Error(), "GridColumns")
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Paths.OutputDir = "charts"

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
