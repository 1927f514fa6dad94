// internal/middleware/ratelimit.go
package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/apnedoctors/minirag/pkg/utils"
	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window per-IP limiter.
type RateLimiter struct {
	visitors map[string]*Visitor
	mu       sync.Mutex
	rate     int // requests per window
	window   time.Duration
	cleanup  time.Duration
}

type Visitor struct {
	windowStart time.Time
	lastSeen    time.Time
	count       int
}

// NewRateLimiter allows rate requests per minute per client IP. The cleanup
// goroutine stops with ctx.
func NewRateLimiter(ctx context.Context, rate int) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*Visitor),
		rate:     rate,
		window:   time.Minute,
		cleanup:  time.Minute,
	}

	go rl.cleanupVisitors(ctx)

	return rl
}

// RateLimit middleware function. A non-positive rate disables limiting.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rate > 0 && !rl.allow(c.ClientIP(), time.Now()) {
			c.Header("Retry-After", "60")
			utils.ErrorResponse(c, http.StatusTooManyRequests, "Rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(ip string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists || now.Sub(v.windowStart) > rl.window {
		rl.visitors[ip] = &Visitor{windowStart: now, lastSeen: now, count: 1}
		return true
	}

	v.lastSeen = now
	if v.count >= rl.rate {
		return false
	}
	v.count++
	return true
}

// cleanupVisitors removes old visitor entries
func (rl *RateLimiter) cleanupVisitors(ctx context.Context) {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evictIdle(time.Now(), 5*rl.window)
		}
	}
}

func (rl *RateLimiter) evictIdle(now time.Time, idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > idle {
			delete(rl.visitors, ip)
		}
	}
}

// Security middleware
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// RequestID middleware adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = utils.GenerateRandomID(8)
		}

		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}
