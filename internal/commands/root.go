package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"coffee-eda/internal/buildinfo"
	"coffee-eda/internal/config"
	"coffee-eda/internal/observability"
	"coffee-eda/internal/services"
)

// app carries what every pipeline command shares: configuration and the
// logger, tracer and metrics built from it.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg     *config.Config
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.Metrics
	runID   string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "coffee-eda",
		Short:   "Clean and explore coffee shop point-of-sale data",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config file")
	flags.StringVar(&a.logLevel, "log-level", "", "override logger.level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "", "override logger.format (json, text)")

	rootCmd.AddCommand(
		newCleanCommand(a),
		newAnalyzeCommand(a),
		newServeCommand(a),
		newSnapshotCommand(a),
		newConfigCommand(a),
	)

	return rootCmd
}

// runE wraps a pipeline command: it loads configuration, sets up logging,
// tracing and metrics for one run, and flushes traces when fn returns.
func (a *app) runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		shutdown, err := a.setup(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if serr := shutdown(context.Background()); serr != nil && err == nil {
				err = fmt.Errorf("flush traces: %w", serr)
			}
		}()

		if err := fn(cmd, args); err != nil {
			a.logger.Error("command failed", "command", cmd.Name(), "error", err)
			return err
		}
		return nil
	}
}

func (a *app) setup(cmd *cobra.Command) (func(context.Context) error, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	a.cfg = cfg

	a.runID = uuid.NewString()
	a.logger = observability.NewLoggerTo(cmd.ErrOrStderr(), cfg.Logger).With("run_id", a.runID)
	slog.SetDefault(a.logger)

	tracer, shutdown, err := observability.InitTracing(cfg.Tracing, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	a.tracer = tracer
	a.metrics = observability.NewMetrics()

	cmd.SetContext(observability.WithRunID(cmd.Context(), a.runID))

	a.logger.Debug("configuration loaded", "config_file", a.configPath, "version", buildinfo.Version)
	return shutdown, nil
}

func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return nil, err
	}
	if a.logLevel == "" && a.logFormat == "" {
		return cfg, nil
	}
	if a.logLevel != "" {
		cfg.Logger.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logger.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

// loadAnalytics computes the report for the cleaned CSV at path.
func (a *app) loadAnalytics(ctx context.Context, path string, useCache bool) (*services.Analytics, error) {
	opts := []services.Option{
		services.WithLogger(a.logger),
		services.WithTracer(a.tracer),
		services.WithMetrics(a.metrics),
		services.WithRunID(a.runID),
	}
	if useCache {
		opts = append(opts, services.WithCacheDir(a.cfg.Paths.CacheDir))
	}

	analytics := services.NewAnalytics(a.cfg.Analysis, opts...)
	if err := analytics.LoadFromCSV(ctx, path); err != nil {
		return nil, err
	}
	return analytics, nil
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
