package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	"coffee-eda/internal/config"
	"coffee-eda/internal/handlers"
	"coffee-eda/internal/middleware"
	"coffee-eda/internal/observability"
	"coffee-eda/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	router      chi.Router
	logger      *slog.Logger
	metrics     *observability.Metrics
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

func NewServer(cfg *config.Config, analytics *services.Analytics, logger *slog.Logger, tracer trace.Tracer, metrics *observability.Metrics) *Server {
	s := &Server{
		analytics:   analytics,
		router:      chi.NewRouter(),
		logger:      logger,
		metrics:     metrics,
		apiHandlers: handlers.NewAPIHandlers(analytics, logger),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger),
	}
	s.setupMiddleware(cfg, tracer)
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware(cfg *config.Config, tracer trace.Tracer) {
	s.router.Use(
		middleware.Recovery(s.logger),
		middleware.RequestID(),
		middleware.Logger(s.logger),
		middleware.Tracing(tracer),
		middleware.Metrics(s.metrics),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(middleware.NewRateLimiter(cfg.Security), s.logger),
	)
}

func (s *Server) setupRoutes() {
	// Dashboard routes
	s.router.Get("/", handlers.Dashboard(s.analytics, s.logger))
	s.router.Get("/health", s.apiHandlers.HandleHealth)
	s.router.Get("/admin/stats", s.apiHandlers.HandleStats)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	// REST API endpoints
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/figures", s.apiHandlers.HandleFigures)
		r.Get("/figures/{id}", s.apiHandlers.HandleFigure)
		r.Get("/diagnostics", s.apiHandlers.HandleDiagnostics)
	})

	// Datastar SSE endpoints
	s.router.Route("/sse", func(r chi.Router) {
		r.Get("/figures/{id}", s.sseHandlers.HandleFigure)
		r.Get("/diagnostics", s.sseHandlers.HandleDiagnostics)
		r.Get("/refresh-all", s.sseHandlers.HandleRefreshAll)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer wraps s with the configured timeouts.
func (s *Server) HTTPServer(cfg *config.Config) *http.Server {
	return &http.Server{
		Addr:         cfg.Address(),
		Handler:      s,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}
