package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"coffee-eda/internal/config"
	"coffee-eda/internal/observability"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ok() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "abc", seen)
}

func TestRecovery(t *testing.T) {
	h := Recovery(quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestRateLimit(t *testing.T) {
	cfg := config.Default().Security
	cfg.RateLimitRPS = 1
	cfg.RateLimitBurst = 2
	h := RateLimit(NewRateLimiter(cfg), quietLogger())(ok())

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		last = httptest.NewRecorder()
		h.ServeHTTP(last, req)
		codes = append(codes, last.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.Equal(t, "1", last.Header().Get("Retry-After"))
	assert.Contains(t, last.Body.String(), "RATE_LIMIT_EXCEEDED")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "other clients keep their own bucket")
}

func TestRateLimit_Disabled(t *testing.T) {
	cfg := config.Default().Security
	cfg.EnableRateLimit = false
	cfg.RateLimitBurst = 1
	rl := NewRateLimiter(cfg)

	for range 5 {
		allowed, wait := rl.Allow("10.0.0.1")
		assert.True(t, allowed)
		assert.Zero(t, wait)
	}
	assert.Zero(t, rl.Clients())
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	cfg := config.Default().Security
	cfg.EnableRateLimit = true
	rl := NewRateLimiter(cfg)

	now := time.Date(2023, 1, 5, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("10.0.0.1")
	rl.Allow("10.0.0.2")
	require.Equal(t, 2, rl.Clients())

	now = now.Add(clientIdleTTL + time.Second)
	rl.Allow("10.0.0.3")
	assert.Equal(t, 1, rl.Clients())
}

func TestCORS(t *testing.T) {
	h := CORS(config.Default().Security)(ok())

	req := httptest.NewRequest(http.MethodOptions, "/api/figures", nil)
	req.Header.Set("Origin", "http://localhost:8084")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:8084", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, HEAD", w.Header().Get("Access-Control-Allow-Methods"))

	req = httptest.NewRequest(http.MethodOptions, "/api/figures", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/figures", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
}

func TestSecurityHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	SecurityHeaders()(ok()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	csp := w.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "script-src 'self' 'unsafe-inline' 'unsafe-eval' https://cdn.jsdelivr.net")
	assert.Contains(t, csp, "frame-ancestors 'none'")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "same-origin", w.Header().Get("Cross-Origin-Opener-Policy"))
}

func TestTrustedProxy(t *testing.T) {
	cfg := config.Default().Security
	cfg.TrustedProxies = []string{"127.0.0.1", "10.20.0.0/16", "not-an-ip"}

	var forwarded string
	h := TrustedProxy(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forwarded = r.Header.Get("X-Forwarded-For")
	}))

	tests := []struct {
		remote string
		want   string
	}{
		{"127.0.0.1:5000", "203.0.113.9"},
		{"10.20.3.4:5000", "203.0.113.9"},
		{"198.51.100.7:5000", ""},
		{"10.21.0.1:5000", ""},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			req.Header.Set("X-Forwarded-For", "203.0.113.9")
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, forwarded)
		})
	}
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	m := observability.NewMetrics()
	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/api/figures/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/figures/"+id, nil))
	}

	got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/figures/{id}", "404"))
	assert.Equal(t, 2.0, got)
}

func TestTracing_PassesStatus(t *testing.T) {
	h := Tracing(noop.NewTracerProvider().Tracer("test"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTeapot, w.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:80"
	assert.Equal(t, "192.0.2.1", clientIP(req))

	req.Header.Set("X-Real-IP", "192.0.2.2")
	assert.Equal(t, "192.0.2.2", clientIP(req))

	req.Header.Set("X-Forwarded-For", "192.0.2.3, 10.0.0.1")
	assert.Equal(t, "192.0.2.3", clientIP(req))

	req.Header.Set("X-Forwarded-For", "garbage")
	assert.Equal(t, "192.0.2.2", clientIP(req))
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(Logger(logger))
	r.Get("/api/figures/{id}", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/figures/nope", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "/api/figures/{id}", entry["route"])
	assert.EqualValues(t, 404, entry["status"])
	assert.EqualValues(t, len("missing\n"), entry["bytes"])
}
