package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"coffee-eda/internal/config"
)

// chartCDN serves Chart.js, its boxplot plugin and datastar to the dashboard.
const chartCDN = "https://cdn.jsdelivr.net"

var corsMethods = []string{http.MethodGet, http.MethodHead}

var corsHeaders = []string{"Content-Type", "X-Request-ID", "Datastar-Request"}

// dashboardCSP allows the inline chart bootstrap script and the CDN bundles.
// Chart.js needs 'unsafe-eval' for its option resolver.
var dashboardCSP = []string{
	"default-src 'self'",
	"script-src 'self' 'unsafe-inline' 'unsafe-eval' " + chartCDN,
	"style-src 'self' 'unsafe-inline'",
	"img-src 'self' data:",
	"connect-src 'self'",
	"frame-ancestors 'none'",
}

// CORS answers preflights for the read-only API. Requests from origins
// outside cfg.AllowedOrigins are served without CORS headers, and their
// preflights are refused.
func CORS(cfg config.SecurityConfig) Middleware {
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = true
	}
	allowOrigin := func(origin string) bool {
		return origin != "" && (allowed["*"] || allowed[origin])
	}
	methods := strings.Join(corsMethods, ", ")
	headers := strings.Join(corsHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			w.Header().Add("Vary", "Origin")

			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
			if !allowOrigin(origin) {
				if preflight {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			if !preflight {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Methods", methods)
			w.Header().Set("Access-Control-Allow-Headers", headers)
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func SecurityHeaders() Middleware {
	headers := map[string]string{
		"Content-Security-Policy":    strings.Join(dashboardCSP, "; "),
		"X-Content-Type-Options":     "nosniff",
		"X-Frame-Options":            "DENY",
		"Referrer-Policy":            "no-referrer",
		"Permissions-Policy":         "camera=(), microphone=(), geolocation=()",
		"Cross-Origin-Opener-Policy": "same-origin",
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for k, v := range headers {
				w.Header().Set(k, v)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TrustedProxy strips forwarding headers unless the peer is one of
// cfg.TrustedProxies, given as addresses or CIDR prefixes.
func TrustedProxy(cfg config.SecurityConfig) Middleware {
	prefixes := parseTrusted(cfg.TrustedProxies)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !trusted(r.RemoteAddr, prefixes) {
				r.Header.Del("X-Forwarded-For")
				r.Header.Del("X-Real-IP")
				r.Header.Del("X-Forwarded-Proto")
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseTrusted(entries []string) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if p, err := netip.ParsePrefix(e); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(a, a.BitLen()))
		}
	}
	return prefixes
}

func trusted(remoteAddr string, prefixes []netip.Prefix) bool {
	addr, ok := peerAddr(remoteAddr)
	if !ok {
		return false
	}
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func peerAddr(remoteAddr string) (netip.Addr, bool) {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

// clientIP keys rate limiting. Forwarding headers only survive TrustedProxy
// when a trusted proxy set them; malformed values fall back to the peer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if a, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return a.String()
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if a, err := netip.ParseAddr(xri); err == nil {
			return a.String()
		}
	}
	if a, ok := peerAddr(r.RemoteAddr); ok {
		return a.String()
	}
	return r.RemoteAddr
}
