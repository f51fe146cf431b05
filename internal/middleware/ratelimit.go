package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"coffee-eda/internal/config"
	"coffee-eda/internal/errors"
	"coffee-eda/internal/observability"
)

// clientIdleTTL is how long a client's bucket is kept after its last request.
const clientIdleTTL = 3 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter holds one token bucket per client. Idle buckets are swept on
// access at most once per clientIdleTTL.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	limit     rate.Limit
	burst     int
	enabled   bool
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(cfg config.SecurityConfig) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(cfg.RateLimitRPS),
		burst:   cfg.RateLimitBurst,
		enabled: cfg.EnableRateLimit,
		now:     time.Now,
	}
}

// Allow takes a token for key. When none is available it reports how long
// the client should wait.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	if !rl.enabled {
		return true, 0
	}

	rl.mu.Lock()
	now := rl.now()
	rl.sweep(now)
	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	rl.mu.Unlock()

	res := c.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	if wait := res.DelayFrom(now); wait > 0 {
		res.CancelAt(now)
		return false, wait
	}
	return true, 0
}

// Clients is the number of buckets currently held.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// sweep must be called with rl.mu held.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < clientIdleTTL {
		return
	}
	for key, c := range rl.clients {
		if now.Sub(c.lastSeen) >= clientIdleTTL {
			delete(rl.clients, key)
		}
	}
	rl.lastSweep = now
}

func RateLimit(limiter *RateLimiter, logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			allowed, wait := limiter.Allow(ip)
			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			requestID := observability.GetRequestID(r.Context())
			logger.Warn("rate limit exceeded", "ip", ip, "retry_after", wait, "request_id", requestID)

			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			errors.WriteError(w, r, logger, errors.RateLimit("Too many requests"), requestID)
		})
	}
}
