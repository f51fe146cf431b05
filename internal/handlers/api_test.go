package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"coffee-eda/internal/config"
	"coffee-eda/internal/models"
	"coffee-eda/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func txn(date, store, category, detail, size string, qty int, price string) models.Transaction {
	d, _ := time.Parse(models.DateLayout, date)
	unit := decimal.RequireFromString(price)
	return models.Transaction{
		Date:            d,
		Quantity:        qty,
		StoreLocation:   store,
		UnitPrice:       unit,
		ProductCategory: category,
		ProductType:     category + " type",
		ProductDetail:   detail,
		Size:            size,
		TotalBill:       unit.Mul(decimal.NewFromInt(int64(qty))),
		MonthName:       d.Month().String(),
		DayName:         d.Weekday().String(),
		Hour:            8,
		DayOfMonth:      d.Day(),
	}
}

func createTestAnalytics() *services.Analytics {
	a := services.NewAnalytics(config.Default().Analysis, services.WithLogger(testLogger()))
	testData := []models.Transaction{
		txn("2023-01-01", "Astoria", "Coffee", "Latte", "Not Defined", 2, "3"),
		txn("2023-01-02", "Astoria", "Tea", "Chai Lg", "Large", 1, "2.5"),
		txn("2023-01-02", "Lower Manhattan", "Coffee", "Cappuccino", "Regular", 1, "4"),
	}
	if err := a.SetData(context.Background(), testData); err != nil {
		panic(err)
	}
	return a
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeSuccess(t *testing.T, body io.Reader, data any) {
	t.Helper()
	var resp struct {
		Data    json.RawMessage `json:"data"`
		Success bool            `json:"success"`
	}
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success response")
	}
	if err := json.Unmarshal(resp.Data, data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestNewAPIHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	logger := testLogger()
	handlers := NewAPIHandlers(analytics, logger)

	if handlers == nil {
		t.Fatal("NewAPIHandlers() returned nil")
	}
	if handlers.analytics != analytics {
		t.Error("NewAPIHandlers() should set analytics field")
	}
}

func TestAPIHandlers_HandleFigures(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/figures", nil)
	w := httptest.NewRecorder()
	handlers.HandleFigures(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=300" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}

	var figures []struct {
		ID string `json:"id"`
	}
	decodeSuccess(t, w.Body, &figures)
	if len(figures) != 13 {
		t.Fatalf("expected 13 figures, got %d", len(figures))
	}
	if figures[0].ID != services.FigStoreTransactions {
		t.Errorf("first figure = %s", figures[0].ID)
	}
}

func TestAPIHandlers_HandleFigure(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/figures/store-transactions", nil), "id", services.FigStoreTransactions)
	w := httptest.NewRecorder()
	handlers.HandleFigure(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var fig struct {
		ID     string `json:"id"`
		Panels []struct {
			Labels []string `json:"labels"`
		} `json:"panels"`
	}
	decodeSuccess(t, w.Body, &fig)
	if fig.ID != services.FigStoreTransactions {
		t.Errorf("id = %s", fig.ID)
	}
	if len(fig.Panels) != 1 || strings.Join(fig.Panels[0].Labels, ",") != "Astoria,Lower Manhattan" {
		t.Errorf("unexpected panels: %+v", fig.Panels)
	}
}

func TestAPIHandlers_HandleFigure_NotFound(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/figures/nope", nil), "id", "nope")
	w := httptest.NewRecorder()
	handlers.HandleFigure(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	if !strings.Contains(w.Body.String(), "NOT_FOUND") {
		t.Errorf("body should carry NOT_FOUND: %s", w.Body.String())
	}
}

func TestAPIHandlers_HandleDiagnostics(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/diagnostics", nil)
	w := httptest.NewRecorder()
	handlers.HandleDiagnostics(w, req)

	var resp struct {
		Diagnostics map[string]float64 `json:"diagnostics"`
		Warnings    []string           `json:"warnings"`
	}
	decodeSuccess(t, w.Body, &resp)

	if got := resp.Diagnostics["coffee_tea_share"]; got != 1 {
		t.Errorf("coffee_tea_share = %v, want 1", got)
	}
	if got := resp.Diagnostics["not_defined_share"]; got != 0.5 {
		t.Errorf("not_defined_share = %v, want 0.5", got)
	}
	if len(resp.Warnings) == 0 {
		t.Error("expected warnings for months and weekdays without data")
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handlers.HandleHealth(w, req)

	var health map[string]string
	decodeSuccess(t, w.Body, &health)

	if health["status"] != "healthy" {
		t.Errorf("status = %q", health["status"])
	}
	if health["version"] == "" {
		t.Error("version should be set")
	}
	if _, err := time.Parse(time.RFC3339, health["timestamp"]); err != nil {
		t.Errorf("timestamp not RFC3339: %v", err)
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	w := httptest.NewRecorder()
	handlers.HandleStats(w, req)

	var stats map[string]any
	decodeSuccess(t, w.Body, &stats)

	if stats["record_count"] != float64(3) {
		t.Errorf("record_count = %v", stats["record_count"])
	}
	if stats["source"] != "memory" {
		t.Errorf("source = %v", stats["source"])
	}
}

func BenchmarkAPIHandlers_HandleFigures(b *testing.B) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/figures", nil)

	for b.Loop() {
		handlers.HandleFigures(httptest.NewRecorder(), req)
	}
}
