package middleware

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/set-night/invoicedesk/internal/config"
	"github.com/set-night/invoicedesk/internal/kv"
)

// RateLimit returns middleware that enforces a fixed-window per-client
// request limit. A limit <= 0 disables it.
func RateLimit(store kv.Store, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			window := config.RateLimitWindow
			now := time.Now()
			start := now.Truncate(window)
			key := fmt.Sprintf("ratelimit:%s:%d", clientIP(r), start.Unix())

			count, err := store.Incr(r.Context(), key, window)
			if err != nil {
				slog.Error("rate limit check failed", "error", err, "client", clientIP(r))
				next.ServeHTTP(w, r)
				return
			}

			remaining := int64(limit) - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(limit) {
				retry := int(start.Add(window).Sub(now).Seconds()) + 1
				slog.Debug("rate limited", "client", clientIP(r), "count", count, "limit", limit)
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				writeError(w, r, http.StatusTooManyRequests, "too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
