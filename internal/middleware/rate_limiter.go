package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client IP
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

// NewRateLimiter allows perSecond requests per IP with the given burst.
// Visitors unseen for idle are forgotten by Cleanup.
func NewRateLimiter(perSecond float64, burst int, idle time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*clientLimiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		idle:     idle,
		now:      time.Now,
	}
}

func (l *RateLimiter) visitor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.visitors[ip]
	if !exists {
		v = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = l.now()
	return v.limiter
}

// Cleanup drops idle visitors and returns how many are left
func (l *RateLimiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, v := range l.visitors {
		if l.now().Sub(v.lastSeen) > l.idle {
			delete(l.visitors, ip)
		}
	}
	return len(l.visitors)
}

// Run calls Cleanup every interval until ctx is done
func (l *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

// Handler rejects requests over the limit with 429
func (l *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.visitor(c.IP()).Allow() {
			c.Set(fiber.HeaderRetryAfter, "1")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many requests. Please try again later."})
		}
		return c.Next()
	}
}
