package services

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"coffee-eda/internal/config"
	apperrors "coffee-eda/internal/errors"
	"coffee-eda/internal/models"
	"coffee-eda/internal/observability"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewAnalytics(t *testing.T) {
	a := NewAnalytics(testConfig())
	if a == nil {
		t.Fatal("NewAnalytics() returned nil")
	}
	if a.report == nil {
		t.Error("report should be initialized")
	}
	if a.logger == nil {
		t.Error("logger should be initialized")
	}
	if a.runID == "" {
		t.Error("run id should be generated")
	}
}

func TestAnalytics_SetData(t *testing.T) {
	a := NewAnalytics(testConfig(), WithLogger(quietLogger()))
	if err := a.SetData(context.Background(), sampleTransactions()); err != nil {
		t.Fatalf("SetData() error: %v", err)
	}

	report := a.Report()
	if report.RecordCount != 7 {
		t.Errorf("RecordCount = %d, want 7", report.RecordCount)
	}
	if len(report.Figures) != len(figureBuilders) {
		t.Errorf("got %d figures, want %d", len(report.Figures), len(figureBuilders))
	}
	for i, fb := range figureBuilders {
		if report.Figures[i].ID != fb.id {
			t.Errorf("figure %d = %s, want %s", i, report.Figures[i].ID, fb.id)
		}
	}
	if _, ok := a.Figure(FigHourlySales); !ok {
		t.Error("Figure() should find hourly-sales")
	}
	if _, ok := a.Figure("nope"); ok {
		t.Error("Figure() should not find unknown ids")
	}
}

func TestAnalytics_SetData_Empty(t *testing.T) {
	a := NewAnalytics(testConfig(), WithLogger(quietLogger()))
	err := a.SetData(context.Background(), nil)
	if apperrors.CodeOf(err) != apperrors.CodeParse {
		t.Errorf("expected PARSE_ERROR for empty input, got %v", err)
	}
}

func TestAnalytics_SetData_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  func() config.AnalysisConfig
	}{
		{"zero value", func() config.AnalysisConfig { return config.AnalysisConfig{} }},
		{"no workers", func() config.AnalysisConfig { c := testConfig(); c.Workers = 0; return c }},
		{"no grid columns", func() config.AnalysisConfig { c := testConfig(); c.GridColumns = 0; return c }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalytics(tt.cfg(), WithLogger(quietLogger()))

			done := make(chan error, 1)
			go func() { done <- a.SetData(context.Background(), sampleTransactions()) }()

			select {
			case err := <-done:
				if apperrors.CodeOf(err) != apperrors.CodeInternal {
					t.Errorf("expected INTERNAL_ERROR for invalid config, got %v", err)
				}
			case <-time.After(3 * time.Second):
				t.Fatal("SetData blocked with an invalid config")
			}
		})
	}
}

func TestAnalytics_LoadFromCSV_ValidData(t *testing.T) {
	path := writeCleanedCSV(t, sampleTransactions())
	metrics := observability.NewMetrics()

	a := NewAnalytics(testConfig(), WithLogger(quietLogger()), WithMetrics(metrics))
	if err := a.LoadFromCSV(context.Background(), path); err != nil {
		t.Fatalf("LoadFromCSV() error: %v", err)
	}

	if got := a.Report().RecordCount; got != 7 {
		t.Errorf("RecordCount = %d, want 7", got)
	}
	if a.Report().Source != path {
		t.Errorf("Source = %q, want %q", a.Report().Source, path)
	}

	fig, _ := a.Figure(FigStoreTransactions)
	if got := fig.Panels[0].Labels[0]; got != "Hell's Kitchen" {
		t.Errorf("busiest store = %q, want Hell's Kitchen", got)
	}
}

func TestAnalytics_LoadFromCSV_MatchesInMemory(t *testing.T) {
	path := writeCleanedCSV(t, sampleTransactions())

	fromFile := NewAnalytics(testConfig(), WithLogger(quietLogger()))
	if err := fromFile.LoadFromCSV(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	inMemory := NewAnalytics(testConfig(), WithLogger(quietLogger()))
	if err := inMemory.SetData(context.Background(), sampleTransactions()); err != nil {
		t.Fatal(err)
	}

	a, b := fromFile.Figures(), inMemory.Figures()
	for i := range a {
		if a[i].ID != b[i].ID || len(a[i].Panels) != len(b[i].Panels) {
			t.Fatalf("figure %d differs", i)
		}
		for p := range a[i].Panels {
			if strings.Join(a[i].Panels[p].Labels, "|") != strings.Join(b[i].Panels[p].Labels, "|") {
				t.Errorf("%s panel %d labels differ", a[i].ID, p)
			}
		}
	}
}

func TestAnalytics_LoadFromCSV_Errors(t *testing.T) {
	header := "transaction_date,transaction_qty,store_location,unit_price,product_category,product_type,product_detail,Size,Total_Bill,Month Name,Day Name,Hour\n"
	row := "2023-01-01,2,Astoria,3,Coffee,Gourmet brewed coffee,Latte,Regular,6,January,Sunday,7\n"

	tests := []struct {
		name    string
		content string
		code    apperrors.ErrorCode
		detail  string
	}{
		{"empty file", "", apperrors.CodeParse, "empty"},
		{"missing column", strings.Replace(header, ",Hour", "", 1) + "2023-01-01,2,Astoria,3,Coffee,Gourmet brewed coffee,Latte,Regular,6,January,Sunday\n", apperrors.CodeSchema, ""},
		{"bad quantity", header + row + strings.Replace(row, ",2,", ",two,", 1), apperrors.CodeParse, "line 3"},
		{"bad date", header + strings.Replace(row, "2023-01-01", "01/01/2023", 1), apperrors.CodeParse, "line 2"},
		{"header only", header, apperrors.CodeParse, "no records"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cleaned.csv")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			a := NewAnalytics(testConfig(), WithLogger(quietLogger()))
			err := a.LoadFromCSV(context.Background(), path)
			if apperrors.CodeOf(err) != tt.code {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
			if tt.detail != "" && !strings.Contains(err.Error(), tt.detail) {
				t.Errorf("error %q should mention %q", err.Error(), tt.detail)
			}
		})
	}
}

func TestAnalytics_LoadFromCSV_MissingFile(t *testing.T) {
	a := NewAnalytics(testConfig(), WithLogger(quietLogger()))
	err := a.LoadFromCSV(context.Background(), filepath.Join(t.TempDir(), "absent.csv"))
	if apperrors.CodeOf(err) != apperrors.CodeFileNotFound {
		t.Errorf("expected FILE_NOT_FOUND, got %v", err)
	}
}

func TestAnalytics_Cache(t *testing.T) {
	path := writeCleanedCSV(t, sampleTransactions())
	cacheDir := t.TempDir()

	first := NewAnalytics(testConfig(), WithLogger(quietLogger()), WithCacheDir(cacheDir), WithRunID("first"))
	if err := first.LoadFromCSV(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(first.getCacheFilename(path)); err != nil {
		t.Fatalf("cache file not written: %v", err)
	}

	second := NewAnalytics(testConfig(), WithLogger(quietLogger()), WithCacheDir(cacheDir), WithRunID("second"))
	if err := second.LoadFromCSV(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if got := second.Report().RunID; got != "first" {
		t.Errorf("expected cached report from run %q, got %q", "first", got)
	}

	cfg := testConfig()
	cfg.OthersThresholdPct = 10
	third := NewAnalytics(cfg, WithLogger(quietLogger()), WithCacheDir(cacheDir), WithRunID("third"))
	if err := third.LoadFromCSV(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if got := third.Report().RunID; got != "third" {
		t.Errorf("changed config must bypass the cache, got run %q", got)
	}
}

func TestAnalytics_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewAnalytics(testConfig(), WithLogger(quietLogger()))
	if err := a.SetData(ctx, sampleTransactions()); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestAnalytics_Stats(t *testing.T) {
	a := NewAnalytics(testConfig(), WithLogger(quietLogger()), WithRunID("run-1"))
	if err := a.SetData(context.Background(), sampleTransactions()); err != nil {
		t.Fatal(err)
	}

	stats := a.Stats()
	if stats["run_id"] != "run-1" {
		t.Errorf("run_id = %v", stats["run_id"])
	}
	if stats["record_count"] != int64(7) {
		t.Errorf("record_count = %v", stats["record_count"])
	}
	if stats["figures"] != len(figureBuilders) {
		t.Errorf("figures = %v", stats["figures"])
	}
}

func BenchmarkAnalytics_SetData(b *testing.B) {
	base := sampleTransactions()
	data := make([]models.Transaction, 0, len(base)*2000)
	for range 2000 {
		data = append(data, base...)
	}
	a := NewAnalytics(testConfig(), WithLogger(quietLogger()))

	b.ResetTimer()
	for b.Loop() {
		if err := a.SetData(context.Background(), data); err != nil {
			b.Fatal(err)
		}
	}
}
