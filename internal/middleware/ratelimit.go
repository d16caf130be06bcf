package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// rateLimitMessage is returned with 429 responses.
const rateLimitMessage = "Too many requests, please try again later"

// rateLimitEntry tracks request counts for a single IP within a time window.
type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// rateLimiter is a fixed-window per-IP counter held in memory.
type rateLimiter struct {
	mu          sync.Mutex
	entries     map[string]*rateLimitEntry
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// allow counts one request from ip and reports whether it is within limit.
func (l *rateLimiter) allow(ip string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.entries[ip]
	if !exists || now.Sub(entry.windowStart) > l.window {
		l.entries[ip] = &rateLimitEntry{count: 1, windowStart: now}
		return true
	}
	entry.count++
	return entry.count <= l.maxRequests
}

// sweep drops entries whose window ended more than one window ago.
func (l *rateLimiter) sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for ip, entry := range l.entries {
		if now.Sub(entry.windowStart) > l.window*2 {
			delete(l.entries, ip)
		}
	}
}

// RateLimit returns middleware that limits requests per IP to maxRequests
// within the given window duration. Returns 429 when exceeded.
func RateLimit(maxRequests int, window time.Duration) echo.MiddlewareFunc {
	l := &rateLimiter{
		entries:     make(map[string]*rateLimitEntry),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}

	go func() {
		for {
			time.Sleep(time.Minute)
			l.sweep()
		}
	}()

	return l.middleware
}

func (l *rateLimiter) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !l.allow(c.RealIP()) {
			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"message": rateLimitMessage,
			})
		}
		return next(c)
	}
}
