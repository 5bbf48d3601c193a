package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/birdlaw/amlazy/internal/config"
	"github.com/birdlaw/amlazy/pkg/httpext"
	"github.com/birdlaw/amlazy/pkg/logger"
	"github.com/birdlaw/amlazy/pkg/ratelimit"
)

// CodeRateLimited is the error code of a rejected request
const CodeRateLimited = "rate_limited"

// RateLimit caps how often one client may hit route, using the budget that
// config.GetRateLimitConfig holds for it. Disabled limits pass everything through.
func RateLimit(route string) func(http.Handler) http.Handler {
	cfg := config.GetRateLimitConfig(route)
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}

	limiter := ratelimit.NewLimiter(cfg.Window, cfg.MaxHits)
	retryAfter := strconv.Itoa(int(cfg.Window.Seconds()))
	l := logger.Component(logger.MIDDLEWARE)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if limiter.Allow(ip) {
				next.ServeHTTP(w, r)
				return
			}

			l.Warn().Str("client_ip", ip).Str("route", route).Int("max_hits", cfg.MaxHits).Msg("Rate limit exceeded")
			w.Header().Set("Retry-After", retryAfter)
			httpext.JsonErrorWithDetails(w, http.StatusTooManyRequests, httpext.ErrorResponse{
				Error:            CodeRateLimited,
				ErrorDescription: fmt.Sprintf("at most %d requests per %s", cfg.MaxHits, cfg.Window),
			})
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop and drops the port of RemoteAddr
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
