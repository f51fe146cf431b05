package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"coffee-eda/internal/charts"
	"coffee-eda/internal/errors"
	"coffee-eda/internal/observability"
	"coffee-eda/internal/services"
	"coffee-eda/internal/ui/templates"
)

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// DiagnosticRows formats the report diagnostics the way the analyze command
// prints them.
func DiagnosticRows(d services.Diagnostics) []templates.DiagnosticRow {
	scalars := d.Ordered()
	rows := make([]templates.DiagnosticRow, len(scalars))
	for i, s := range scalars {
		rows[i] = templates.DiagnosticRow{Name: s.Name, Value: s.String()}
	}
	return rows
}

func (h *SSEHandlers) renderDiagnostics(r *http.Request) (string, error) {
	report := h.analytics.Report()
	var buf strings.Builder
	err := templates.DiagnosticsTable(DiagnosticRows(report.Diagnostics), report.Warnings).Render(r.Context(), &buf)
	return buf.String(), err
}

func figureSignals(figs ...charts.Figure) ([]byte, error) {
	byKey := make(map[string]charts.Figure, len(figs))
	for _, f := range figs {
		byKey[templates.SignalKey(f.ID)] = f
	}
	return json.Marshal(map[string]any{"figures": byKey})
}

func (h *SSEHandlers) HandleFigure(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	fig, ok := h.analytics.Figure(id)
	if !ok {
		errors.WriteError(w, r, h.logger, errors.NotFound("figure "+id+" not found"), observability.GetRequestID(r.Context()))
		return
	}

	sse := datastar.NewSSE(w, r)

	signals, err := figureSignals(fig)
	if err != nil {
		h.logger.Error("marshal figure signals", "figure", id, "error", err)
		return
	}
	if err := sse.PatchSignals(signals); err != nil {
		h.logger.Warn("patch figure signals", "figure", id, "error", err)
	}
}

func (h *SSEHandlers) HandleDiagnostics(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	html, err := h.renderDiagnostics(r)
	if err != nil {
		h.logger.Error("render diagnostics table", "error", err)
		return
	}
	if err := sse.PatchElements(html); err != nil {
		h.logger.Warn("patch diagnostics", "error", err)
	}
}

func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	html, err := h.renderDiagnostics(r)
	if err != nil {
		h.logger.Error("render diagnostics table", "error", err)
		return
	}
	if err := sse.PatchElements(html); err != nil {
		h.logger.Warn("patch diagnostics", "error", err)
		return
	}

	// All figures in one signal patch.
	signals, err := figureSignals(h.analytics.Figures()...)
	if err != nil {
		h.logger.Error("marshal all figure signals", "error", err)
		return
	}
	if err := sse.PatchSignals(signals); err != nil {
		h.logger.Warn("patch figure signals", "error", err)
	}
}
