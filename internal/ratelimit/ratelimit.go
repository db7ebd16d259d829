// Package ratelimit implements the request admission gate.
//
// Fixed 60-second windows, counted per (caller identity, route). The window
// boundary is aligned to the epoch, so all callers tick over together; a
// caller that burns its budget gets a fresh one at the next boundary, not a
// sliding 60 seconds after the first request.
package ratelimit

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sentinelai/sentinel/internal/metrics"
)

const window = 60 * time.Second

// Limiter is a fixed-window request counter.
type Limiter struct {
	limit int
	now   func() time.Time

	mu      sync.Mutex
	counts  map[string]int
	current int64 // unix second the open window started at

	stop chan struct{}
	once sync.Once
}

// NewLimiter creates a limiter allowing limit requests per key per minute.
func NewLimiter(limit int) *Limiter {
	l := &Limiter{
		limit:  limit,
		now:    time.Now,
		counts: make(map[string]int),
		stop:   make(chan struct{}),
	}
	go l.sweep()
	return l
}

// Allow records one request for the identity/route pair and reports whether it
// is admitted. The returned count includes this request.
func (l *Limiter) Allow(identity, route string) (bool, int) {
	windowStart := l.now().Unix() / int64(window.Seconds()) * int64(window.Seconds())
	key := identity + "|" + route

	l.mu.Lock()
	defer l.mu.Unlock()

	if windowStart != l.current {
		// New window: every key starts from zero.
		l.counts = make(map[string]int)
		l.current = windowStart
	}

	l.counts[key]++
	n := l.counts[key]
	return n <= l.limit, n
}

// Stop terminates the background sweeper.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

// sweep drops stale counts so an idle server does not hold the last window's
// map forever.
func (l *Limiter) sweep() {
	ticker := time.NewTicker(window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			windowStart := l.now().Unix() / int64(window.Seconds()) * int64(window.Seconds())
			l.mu.Lock()
			if windowStart != l.current {
				l.counts = make(map[string]int)
				l.current = windowStart
			}
			l.mu.Unlock()
		}
	}
}

// Middleware returns a gin middleware enforcing the limit. Callers are
// identified by API key when present, client IP otherwise; each route pattern
// has its own budget.
func Middleware(limiter *Limiter, enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		identity := c.GetHeader("X-API-Key")
		if identity == "" {
			identity = c.ClientIP()
		}
		route := c.Request.Method + " " + c.FullPath()

		ok, _ := limiter.Allow(identity, route)
		if !ok {
			metrics.RateLimitRejectionsTotal.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": fmt.Sprintf("Too many requests (limit: %d/min).", limiter.limit),
				"details": gin.H{"limit_rpm": limiter.limit},
			})
			return
		}
		c.Next()
	}
}
