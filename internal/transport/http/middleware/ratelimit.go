package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/geolink/edge/internal/constants"
	redisStorage "github.com/geolink/edge/internal/storage/redis"
	"github.com/geolink/edge/pkg/httputils"
)

// AccountIDHeader carries the tenant identity on click-socket connects.
const AccountIDHeader = "account-id"

// GeoHeader carries the JSON geo document attached by the fronting edge.
const GeoHeader = "X-Edge-Geo"

// RedisFixedWindowLimiter enforces a simple counter per tenant per fixed
// time window. Used to cap socket connect churn, never the redirect path.
type RedisFixedWindowLimiter struct {
	store *redisStorage.FixedWindowLimiter
	limit int64
}

func NewRedisFixedWindowLimiter(store *redisStorage.FixedWindowLimiter, limitPerMinute int) *RedisFixedWindowLimiter {
	if limitPerMinute <= 0 {
		limitPerMinute = 60
	}
	return &RedisFixedWindowLimiter{
		store: store,
		limit: int64(limitPerMinute),
	}
}

func RateLimitMiddleware(limiter *RedisFixedWindowLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(r)
			ctx, cancel := context.WithTimeout(r.Context(), 200*time.Millisecond)
			defer cancel()

			count, err := limiter.store.Incr(ctx, key)
			if err != nil {
				// Fail open: do not refuse viewers if Redis is temporarily unavailable.
				next.ServeHTTP(w, r)
				return
			}
			if count > limiter.limit {
				httputils.WritePlainError(w, r, constants.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if accountID := strings.TrimSpace(r.Header.Get(AccountIDHeader)); accountID != "" {
		return "account:" + accountID
	}

	// Fallback: use client IP (best-effort).
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return "ip:" + host
	}
	return "ip:unknown"
}
