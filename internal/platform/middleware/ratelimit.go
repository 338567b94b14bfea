package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig holds token-bucket settings applied per client IP.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns the default limits.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RequestsPerSecond: 100, BurstSize: 200}
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// RateLimit enforces a per-client token bucket. Intake channels share an
// upstream gateway IP, so the burst size should accommodate channel fan-in.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.RequestsPerSecond <= 0 {
		cfg = DefaultRateLimitConfig()
	}
	var (
		mu      sync.Mutex
		buckets = map[string]*bucket{}
	)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			mu.Lock()
			b, ok := buckets[ip]
			if !ok {
				b = &bucket{tokens: float64(cfg.BurstSize), lastRefill: time.Now()}
				buckets[ip] = b
			}
			now := time.Now()
			b.tokens += now.Sub(b.lastRefill).Seconds() * cfg.RequestsPerSecond
			if b.tokens > float64(cfg.BurstSize) {
				b.tokens = float64(cfg.BurstSize)
			}
			b.lastRefill = now
			allowed := b.tokens >= 1
			if allowed {
				b.tokens--
			}
			remaining := b.tokens
			mu.Unlock()

			if !allowed {
				retryAfter := int(1/cfg.RequestsPerSecond) + 1
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(remaining)))
			return next(c)
		}
	}
}
