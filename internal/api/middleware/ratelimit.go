package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	maxTrackedLimiters = 10000
	limiterIdleTTL     = 10 * time.Minute
)

// RateLimiter hands out one token bucket per key. Idle buckets age out of a
// bounded LRU, so memory stays flat no matter how many keys show up.
type RateLimiter struct {
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a rate limiter with the given requests per second and burst size.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](maxTrackedLimiters, nil, limiterIdleTTL),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// getLimiter returns the rate limiter for the given key, creating one if needed.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := rl.limiters.Get(key); ok {
		return limiter
	}
	limiter := rate.NewLimiter(rl.rate, rl.burst)
	// A concurrent first request may also add; either bucket is fine.
	rl.limiters.Add(key, limiter)
	return limiter
}

// Allow checks if a request from the given key should be allowed.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// RateLimit returns middleware that limits requests per IP address.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	return RateLimitBy(rps, burst, func(r *http.Request) string {
		// Use X-Real-IP if set (from chi's RealIP middleware), otherwise RemoteAddr
		if ip := r.Header.Get("X-Real-IP"); ip != "" {
			return ip
		}
		return r.RemoteAddr
	})
}

// RateLimitByCaller limits each tenant and end user pair independently.
// It must run after APIKeyAuth and UserIdentity.
func RateLimitByCaller(rps float64, burst int) func(http.Handler) http.Handler {
	return RateLimitBy(rps, burst, func(r *http.Request) string {
		caller, ok := CallerFromContext(r.Context())
		if !ok {
			return r.RemoteAddr
		}
		return caller.TenantID.String() + ":" + caller.UserID.String()
	})
}

func RateLimitBy(rps float64, burst int, key func(*http.Request) string) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(rps, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(key(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
