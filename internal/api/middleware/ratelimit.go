package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/icd-messaging-backend/internal/logger"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter manages one token bucket per caller key
type KeyedRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

// NewKeyedRateLimiter creates a rate limiter allowing r events per second with burst b per key
func NewKeyedRateLimiter(r rate.Limit, b int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     r,
		burst:    b,
		now:      time.Now,
	}
}

// Allow reports whether key may make a request now
func (k *KeyedRateLimiter) Allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	entry, ok := k.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(k.rate, k.burst)}
		k.limiters[key] = entry
	}
	entry.lastSeen = k.now()
	return entry.limiter.Allow()
}

// Cleanup drops limiters idle for longer than ttl
func (k *KeyedRateLimiter) Cleanup(ttl time.Duration) {
	k.mu.Lock()
	defer k.mu.Unlock()

	cutoff := k.now().Add(-ttl)
	for key, entry := range k.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(k.limiters, key)
		}
	}
}

// Len returns the number of tracked keys
func (k *KeyedRateLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.limiters)
}

// RateLimiter returns rate limiting middleware.
// Authenticated requests are keyed by uid, anonymous ones by client IP.
func RateLimiter(limiter *KeyedRateLimiter, audit *logger.AuditLogger) echo.MiddlewareFunc {
	if audit == nil {
		audit = logger.NewAuditLogger(nil)
	}
	retryAfter := "1"
	if limiter.rate > 0 && limiter.rate < 1 {
		retryAfter = strconv.Itoa(int(1/float64(limiter.rate)) + 1)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "ip:" + c.RealIP()
			if identity, ok := IdentityFrom(c); ok {
				key = "uid:" + identity.UID
			}

			if !limiter.Allow(key) {
				audit.RateLimitExceeded(key, c.Request().URL.Path)
				c.Response().Header().Set("Retry-After", retryAfter)
				return echo.NewHTTPError(http.StatusTooManyRequests, map[string]string{
					"error":       "rate limit exceeded",
					"code":        "RATE_LIMITED",
					"retry_after": retryAfter,
				})
			}

			return next(c)
		}
	}
}

// RunCleanup periodically evicts idle limiters until stop is closed
func (k *KeyedRateLimiter) RunCleanup(stop <-chan struct{}) {
	ticker := time.NewTicker(limiterIdleTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			k.Cleanup(limiterIdleTTL)
		case <-stop:
			return
		}
	}
}
