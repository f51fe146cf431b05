package services

import (
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"coffee-eda/internal/charts"
	"coffee-eda/internal/config"
	apperrors "coffee-eda/internal/errors"
	"coffee-eda/internal/models"
	"coffee-eda/internal/observability"
)

const cacheVersion = "v2"

// Analytics computes the report once per load and serves it read-only.
type Analytics struct {
	mu               sync.RWMutex
	report           *Report
	cfg              config.AnalysisConfig
	cacheDir         string
	runID            string
	recordsProcessed atomic.Int64
	logger           *slog.Logger
	tracer           trace.Tracer
	metrics          *observability.Metrics
}

type Option func(*Analytics)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Analytics) { a.logger = logger }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(a *Analytics) { a.tracer = tracer }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(a *Analytics) { a.metrics = m }
}

// WithCacheDir enables the report cache. An empty dir disables it.
func WithCacheDir(dir string) Option {
	return func(a *Analytics) { a.cacheDir = dir }
}

func WithRunID(id string) Option {
	return func(a *Analytics) { a.runID = id }
}

func NewAnalytics(cfg config.AnalysisConfig, opts ...Option) *Analytics {
	a := &Analytics{
		report: &Report{},
		cfg:    cfg,
		runID:  uuid.NewString(),
		logger: slog.Default(),
		tracer: observability.Tracer(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Analytics) SetData(ctx context.Context, data []models.Transaction) error {
	report, err := a.compute(ctx, data, "memory")
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.report = report
	a.mu.Unlock()
	a.recordsProcessed.Store(int64(len(data)))
	return nil
}

func (a *Analytics) LoadFromCSV(ctx context.Context, filename string) error {
	if cached, err := a.loadFromCache(filename); err == nil && cached.ConfigFingerprint == a.fingerprint() {
		fileInfo, err := os.Stat(filename)
		if err == nil && fileInfo.ModTime().Before(cached.LastModified) {
			a.mu.Lock()
			a.report = cached
			a.mu.Unlock()
			a.logger.Info("loaded from cache", "records", cached.RecordCount, "cached_run_id", cached.RunID)
			return nil
		}
	}

	start := time.Now()
	a.logger.Info("processing CSV file", "filename", filename)

	txns, err := readCleanedCSV(ctx, filename)
	if err != nil {
		return fmt.Errorf("process csv: %w", err)
	}
	a.recordsProcessed.Store(int64(len(txns)))
	if a.metrics != nil {
		a.metrics.RowsLoaded.WithLabelValues("analyze").Add(float64(len(txns)))
	}

	report, err := a.compute(ctx, txns, filename)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.report = report
	a.mu.Unlock()

	if err := a.saveToCache(filename); err != nil {
		a.logger.Warn("failed to save cache", "error", err)
	}

	duration := time.Since(start)
	count := a.recordsProcessed.Load()
	a.logger.Info("csv processing complete",
		"records", count,
		"figures", len(report.Figures),
		"warnings", len(report.Warnings),
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(count)/duration.Seconds()))

	return nil
}

// compute builds every figure concurrently from the shared, read-only
// rows, then the diagnostics.
func (a *Analytics) compute(ctx context.Context, txns []models.Transaction, source string) (report *Report, err error) {
	ctx, span := a.tracer.Start(ctx, "analytics.compute", trace.WithAttributes(
		attribute.String("source", source),
		attribute.Int("records", len(txns)),
	))
	defer func() { observability.EndSpan(span, err) }()

	if err := a.cfg.Validate(); err != nil {
		return nil, apperrors.InternalWrap(err, "invalid analysis configuration")
	}
	if len(txns) == 0 {
		return nil, apperrors.Parse("no records to analyze in " + source)
	}

	in := newInput(a.cfg, txns)
	results := make([]builtFigure, len(figureBuilders))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)

	for i, fb := range figureBuilders {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			_, fspan := a.tracer.Start(gctx, "figure."+fb.id)
			start := time.Now()
			results[i] = fb.build(in)
			if a.metrics != nil {
				a.metrics.FigureDuration.WithLabelValues(fb.id).Observe(time.Since(start).Seconds())
			}
			fspan.End()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	report = &Report{
		RunID:             a.runID,
		Source:            source,
		RecordCount:       int64(len(txns)),
		Figures:           make([]charts.Figure, 0, len(results)),
		LastModified:      time.Now(),
		ConfigFingerprint: a.fingerprint(),
	}

	var warnings []string
	for _, r := range results {
		report.Figures = append(report.Figures, r.figure)
		warnings = append(warnings, r.warnings...)
	}
	diag, diagWarnings := computeDiagnostics(in)
	report.Diagnostics = diag
	report.Warnings = dedupe(append(warnings, diagWarnings...))

	for _, w := range report.Warnings {
		a.logger.Warn("analysis warning", "run_id", a.runID, "warning", w)
	}
	if a.metrics != nil {
		a.metrics.ReportWarnings.Add(float64(len(report.Warnings)))
	}

	return report, nil
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, s := range items {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func (a *Analytics) fingerprint() string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%#v", cacheVersion, a.cfg))
	return hex.EncodeToString(sum[:8])
}

// Cache management
func (a *Analytics) getCacheFilename(csvPath string) string {
	name := strings.ReplaceAll(filepath.Clean(csvPath), string(filepath.Separator), "_")
	return filepath.Join(a.cacheDir, fmt.Sprintf("%s_%s.gob", name, cacheVersion))
}

func (a *Analytics) saveToCache(csvPath string) error {
	if a.cacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(a.cacheDir, 0o755); err != nil {
		return err
	}

	file, err := os.Create(a.getCacheFilename(csvPath))
	if err != nil {
		return err
	}
	defer file.Close()

	a.mu.RLock()
	defer a.mu.RUnlock()

	return gob.NewEncoder(file).Encode(a.report)
}

func (a *Analytics) loadFromCache(csvPath string) (*Report, error) {
	if a.cacheDir == "" {
		return nil, os.ErrNotExist
	}
	file, err := os.Open(a.getCacheFilename(csvPath))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var report Report
	if err := gob.NewDecoder(file).Decode(&report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Report returns the current report. Callers must not modify it.
func (a *Analytics) Report() *Report {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.report
}

func (a *Analytics) Figures() []charts.Figure {
	return a.Report().Figures
}

func (a *Analytics) Figure(id string) (charts.Figure, bool) {
	return a.Report().Figure(id)
}

func (a *Analytics) Diagnostics() Diagnostics {
	return a.Report().Diagnostics
}

// Utility method for monitoring
func (a *Analytics) Stats() map[string]any {
	r := a.Report()
	return map[string]any{
		"run_id":         r.RunID,
		"source":         r.Source,
		"record_count":   r.RecordCount,
		"last_processed": r.LastModified,
		"figures":        len(r.Figures),
		"warnings":       len(r.Warnings),
	}
}
