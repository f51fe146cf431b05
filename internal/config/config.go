package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides, e.g. COFFEE_LOGGER_LEVEL.
const EnvPrefix = "COFFEE"

type Config struct {
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Logger   LoggerConfig   `yaml:"logger" envconfig:"LOGGER"`
	Tracing  TracingConfig  `yaml:"tracing" envconfig:"TRACING"`
	Analysis AnalysisConfig `yaml:"analysis" envconfig:"ANALYSIS"`
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
}

type PathsConfig struct {
	RawCSV     string `yaml:"raw_csv" envconfig:"RAW_CSV" validate:"required"`
	CleanedCSV string `yaml:"cleaned_csv" envconfig:"CLEANED_CSV" validate:"required"`
	OutputDir  string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	CacheDir   string `yaml:"cache_dir" envconfig:"CACHE_DIR"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
}

type TracingConfig struct {
	Exporter string `yaml:"exporter" envconfig:"EXPORTER" validate:"oneof=none stdout"`
}

// SizeDefault assigns Size to rows of Product whose size is undefined.
type SizeDefault struct {
	Product string `yaml:"product" validate:"required"`
	Size    string `yaml:"size" validate:"required"`
}

type AnalysisConfig struct {
	OthersThresholdPct float64       `yaml:"others_threshold_pct" envconfig:"OTHERS_THRESHOLD_PCT" validate:"gt=0,lt=100"`
	ShareCategories    []string      `yaml:"share_categories" envconfig:"SHARE_CATEGORIES"`
	DrinkCategories    []string      `yaml:"drink_categories" envconfig:"DRINK_CATEGORIES" validate:"min=1,dive,required"`
	SizelessProducts   []string      `yaml:"sizeless_products" envconfig:"SIZELESS_PRODUCTS"`
	UndefinedSize      string        `yaml:"undefined_size" envconfig:"UNDEFINED_SIZE" validate:"required"`
	SizeDefaults       []SizeDefault `yaml:"size_defaults" ignored:"true" validate:"dive"`
	MonthOrder         []string      `yaml:"month_order" envconfig:"MONTH_ORDER" validate:"min=1,dive,required"`
	WeekdayOrder       []string      `yaml:"weekday_order" envconfig:"WEEKDAY_ORDER" validate:"min=1,dive,required"`
	TickEvery          int           `yaml:"tick_every" envconfig:"TICK_EVERY" validate:"gte=1"`
	GridColumns        int           `yaml:"grid_columns" envconfig:"GRID_COLUMNS" validate:"gte=1"`
	Workers            int           `yaml:"workers" envconfig:"WORKERS" validate:"gte=1"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST" validate:"required"`
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `yaml:"enable_rate_limit" envconfig:"RATE_LIMIT_ENABLED"`
	RateLimitRPS    int      `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst  int      `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" validate:"gt=0"`
	AllowedOrigins  []string `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	TrustedProxies  []string `yaml:"trusted_proxies" envconfig:"TRUSTED_PROXIES"`
}

func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			RawCSV:     "data/coffee.csv",
			CleanedCSV: "data/coffee_cleaned.csv",
			OutputDir:  "output",
			CacheDir:   ".cache",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Exporter: "none",
		},
		Analysis: AnalysisConfig{
			OthersThresholdPct: 2,
			ShareCategories:    []string{"Coffee", "Tea"},
			DrinkCategories:    []string{"Coffee", "Tea", "Drinking Chocolate"},
			SizelessProducts:   []string{"Ouro Brasileiro shot", "Espresso shot"},
			UndefinedSize:      "Not Defined",
			SizeDefaults: []SizeDefault{
				{Product: "Latte", Size: "Small"},
				{Product: "Cappuccino", Size: "Regular"},
			},
			MonthOrder:   []string{"January", "February", "March", "April", "May", "June"},
			WeekdayOrder: []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
			TickEvery:    30,
			GridColumns:  3,
			Workers:      4,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8084,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			EnableRateLimit: true,
			RateLimitRPS:    100,
			RateLimitBurst:  10,
			AllowedOrigins:  []string{"http://localhost:8084"},
			TrustedProxies:  []string{"127.0.0.1"},
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and COFFEE_* environment variables, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("config file %s not found", path)
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	return validateStruct(c)
}

// Validate checks the analysis settings on their own, for callers that build
// an AnalysisConfig without going through Load.
func (c AnalysisConfig) Validate() error {
	return validateStruct(c)
}

func validateStruct(v any) error {
	err := validator.New().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q (got %v)", fe.Namespace(), fe.ActualTag(), fe.Value()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Save writes cfg as YAML to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
