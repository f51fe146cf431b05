package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	RowsLoaded     *prometheus.CounterVec
	FigureDuration *prometheus.HistogramVec
	ReportWarnings prometheus.Counter
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
}

// NewMetrics registers all collectors on a private registry so repeated
// construction in tests does not collide with the global one.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RowsLoaded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coffee",
			Name:      "rows_loaded_total",
			Help:      "Rows read from CSV input, by stage.",
		}, []string{"stage"}),
		FigureDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coffee",
			Name:      "figure_build_seconds",
			Help:      "Time spent aggregating one figure.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"figure"}),
		ReportWarnings: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "coffee",
			Name:      "report_warnings_total",
			Help:      "Lookup and reindex warnings raised while building reports.",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coffee",
			Name:      "http_requests_total",
			Help:      "Dashboard requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coffee",
			Name:      "http_request_seconds",
			Help:      "Dashboard request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
