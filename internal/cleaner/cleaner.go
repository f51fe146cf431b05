package cleaner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "coffee-eda/internal/errors"
	"coffee-eda/internal/models"
	"coffee-eda/internal/observability"
)

type Cleaner struct {
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.Metrics
}

type Option func(*Cleaner)

func WithMetrics(m *observability.Metrics) Option {
	return func(c *Cleaner) { c.metrics = m }
}

func New(logger *slog.Logger, tracer trace.Tracer, opts ...Option) *Cleaner {
	c := &Cleaner{logger: logger, tracer: tracer}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Result struct {
	Input      string
	Output     string
	Inspection *Inspection
	// Duplicates holds 1-based data row numbers of rows repeating an earlier row.
	Duplicates      []int
	NullsAfterPrune []ColumnInfo
	Rows            int
	Columns         []string
	Duration        time.Duration
}

// Run loads the raw export at in, reports on it, prunes and normalizes it,
// and writes the cleaned file to out. Nothing is written unless every step
// succeeds.
func (c *Cleaner) Run(ctx context.Context, in, out string) (res *Result, err error) {
	ctx, span := c.tracer.Start(ctx, "cleaner.Run", trace.WithAttributes(
		attribute.String("input", in),
		attribute.String("output", out),
	))
	defer func() { observability.EndSpan(span, err) }()

	start := time.Now()

	df, err := c.load(ctx, in)
	if err != nil {
		return nil, err
	}
	if missing := models.Missing(df.Names(), models.RawColumns); len(missing) > 0 {
		return nil, apperrors.Schema(missing)
	}

	insp, err := c.inspect(ctx, df)
	if err != nil {
		return nil, err
	}

	dups := Duplicates(df)
	if len(dups) > 0 {
		c.logger.Warn("duplicate rows found", "count", len(dups))
	}

	pruned, err := Prune(df)
	if err != nil {
		return nil, err
	}

	cleaned, err := NormalizeDates(pruned)
	if err != nil {
		return nil, err
	}

	if err := c.write(ctx, cleaned, out); err != nil {
		return nil, err
	}

	res = &Result{
		Input:           in,
		Output:          out,
		Inspection:      insp,
		Duplicates:      dups,
		NullsAfterPrune: columnInfo(pruned, false),
		Rows:            cleaned.Nrow(),
		Columns:         cleaned.Names(),
		Duration:        time.Since(start),
	}

	c.logger.Info("cleaning complete",
		"input", in,
		"output", out,
		"rows", res.Rows,
		"columns", len(res.Columns),
		"duplicates", len(dups),
		"duration", res.Duration,
	)

	return res, nil
}

func (c *Cleaner) load(ctx context.Context, path string) (dataframe.DataFrame, error) {
	_, span := c.tracer.Start(ctx, "cleaner.load")
	df, err := Load(path)
	observability.EndSpan(span, err)
	if err != nil {
		return df, err
	}

	c.logger.Info("raw data loaded", "path", path, "rows", df.Nrow(), "columns", df.Ncol())
	if c.metrics != nil {
		c.metrics.RowsLoaded.WithLabelValues("clean").Add(float64(df.Nrow()))
	}
	return df, nil
}

func (c *Cleaner) inspect(ctx context.Context, df dataframe.DataFrame) (*Inspection, error) {
	_, span := c.tracer.Start(ctx, "cleaner.inspect")
	insp, err := Inspect(df)
	observability.EndSpan(span, err)
	return insp, err
}

func (c *Cleaner) write(ctx context.Context, df dataframe.DataFrame, path string) error {
	_, span := c.tracer.Start(ctx, "cleaner.write")
	err := Write(df, path)
	observability.EndSpan(span, err)
	return err
}

// Load reads a CSV with every column kept as text, so cells the cleaner
// does not touch are written back byte for byte.
func Load(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return dataframe.DataFrame{}, apperrors.FileNotFound(path, err)
	}
	if err != nil {
		return dataframe.DataFrame{}, apperrors.IOWrap(err, "open "+path)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if df.Err != nil {
		return df, apperrors.ParseWrap(df.Err, "read csv "+path)
	}
	return df, nil
}

// Duplicates returns the 1-based data row numbers of rows identical to an
// earlier row.
func Duplicates(df dataframe.DataFrame) []int {
	records := df.Records()
	seen := make(map[string]struct{}, len(records))
	var dups []int
	for i, row := range records[1:] {
		key := rowKey(row)
		if _, ok := seen[key]; ok {
			dups = append(dups, i+1)
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}

func rowKey(row []string) string {
	n := 0
	for _, v := range row {
		n += len(v) + 1
	}
	b := make([]byte, 0, n)
	for _, v := range row {
		b = append(b, v...)
		b = append(b, 0x1f)
	}
	return string(b)
}

func Prune(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	pruned := df.Drop(models.DroppedColumns)
	if pruned.Err != nil {
		return pruned, apperrors.Schema(models.Missing(df.Names(), models.DroppedColumns))
	}
	return pruned, nil
}

// NormalizeDates rewrites transaction_date as yyyy-mm-dd. Null cells stay
// empty.
func NormalizeDates(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if models.Missing(df.Names(), []string{models.ColTransactionDate}) != nil {
		return df, apperrors.Schema([]string{models.ColTransactionDate})
	}

	raw := df.Col(models.ColTransactionDate).Records()
	out := make([]string, len(raw))
	for i, v := range raw {
		if isNull(v) {
			continue
		}
		t, err := ParseDayFirst(v)
		if err != nil {
			return df, apperrors.ParseWrap(err, fmt.Sprintf("line %d: %s", i+2, models.ColTransactionDate))
		}
		out[i] = t.Format(models.DateLayout)
	}

	mutated := df.Mutate(series.New(out, series.String, models.ColTransactionDate))
	if mutated.Err != nil {
		return df, apperrors.InternalWrap(mutated.Err, "replace date column")
	}
	return mutated, nil
}

// Write replaces path atomically with df as CSV, header first and no
// index column.
func Write(df dataframe.DataFrame, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.IOWrap(err, "create output directory "+dir)
	}

	tmp, err := os.CreateTemp(dir, ".cleaned-*.csv")
	if err != nil {
		return apperrors.IOWrap(err, "create temp file in "+dir)
	}
	defer os.Remove(tmp.Name())

	if err := df.WriteCSV(tmp); err != nil {
		tmp.Close()
		return apperrors.IOWrap(err, "write "+path)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return apperrors.IOWrap(err, "chmod "+path)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.IOWrap(err, "close "+path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperrors.IOWrap(err, "replace "+path)
	}
	return nil
}
