package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"coffee-eda/internal/buildinfo"
	"coffee-eda/internal/errors"
	"coffee-eda/internal/observability"
	"coffee-eda/internal/services"
)

var cacheHeaders = map[string]string{
	"Cache-Control": "public, max-age=300",
}

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *APIHandlers) HandleFigures(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, r, h.analytics.Figures(), cacheHeaders)
}

func (h *APIHandlers) HandleFigure(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	fig, ok := h.analytics.Figure(id)
	if !ok {
		errors.WriteError(w, r, h.logger, errors.NotFound("figure "+id+" not found"), observability.GetRequestID(r.Context()))
		return
	}

	errors.WriteSuccessWithHeaders(w, r, fig, cacheHeaders)
}

type diagnosticsResponse struct {
	Diagnostics services.Diagnostics `json:"diagnostics"`
	Warnings    []string             `json:"warnings"`
}

func (h *APIHandlers) HandleDiagnostics(w http.ResponseWriter, r *http.Request) {
	report := h.analytics.Report()

	errors.WriteSuccessWithHeaders(w, r, diagnosticsResponse{
		Diagnostics: report.Diagnostics,
		Warnings:    report.Warnings,
	}, cacheHeaders)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   buildinfo.Version,
		"commit":    buildinfo.Commit,
	}

	errors.WriteSuccess(w, r, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, r, h.analytics.Stats())
}
