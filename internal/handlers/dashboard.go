package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"coffee-eda/internal/buildinfo"
	"coffee-eda/internal/services"
	"coffee-eda/internal/ui/templates"
)

const renderTimeout = 10 * time.Second

// Dashboard serves the page with the current report embedded.
func Dashboard(analytics *services.Analytics, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		report := analytics.Report()
		data := templates.DashboardData{
			Title:       "Coffee shop sales",
			Source:      report.Source,
			RecordCount: report.RecordCount,
			Version:     buildinfo.Version,
			Figures:     report.Figures,
			Diagnostics: DiagnosticRows(report.Diagnostics),
			Warnings:    report.Warnings,
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		if err := templates.Dashboard(data).Render(ctx, w); err != nil {
			logger.Error("render dashboard", "error", err)
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}
