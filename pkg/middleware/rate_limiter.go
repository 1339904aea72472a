// Package middleware holds Echo middleware that is not auth-specific.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/storepulse/backend/pkg/models"
	"golang.org/x/time/rate"
)

// cleanupInterval is how often idle client buckets are swept.
const cleanupInterval = 3 * time.Minute

// RateLimiter keeps one token bucket per client IP. Manual sync triggers are
// expensive upstream, so the whole API is limited at the edge.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

// NewRateLimiter creates a limiter allowing requestsPerMinute sustained with
// the given burst, and starts the idle-bucket sweeper.
func NewRateLimiter(requestsPerMinute, burst int) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:   burst,
	}
	go rl.sweep()
	return rl
}

// GetLimiter returns the bucket for an IP, creating it on first sight.
func (rl *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok {
		b = rate.NewLimiter(rl.limit, rl.burst)
		rl.buckets[ip] = b
	}
	return b
}

// sweep drops buckets that have refilled completely. A full bucket means the
// IP has been idle long enough to forget.
func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(cleanupInterval)
	for range ticker.C {
		rl.mu.Lock()
		for ip, b := range rl.buckets {
			if b.Tokens() >= float64(rl.burst) {
				delete(rl.buckets, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimitMiddleware rejects requests over the per-IP limit with 429.
func (rl *RateLimiter) RateLimitMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = c.Request().RemoteAddr
			}

			if !rl.GetLimiter(ip).Allow() {
				return c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
					Error:   "rate_limit_exceeded",
					Message: "Too many requests. Please try again later.",
				})
			}
			return next(c)
		}
	}
}
