package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apperrors "acu-chatbot/internal/common/errors"
)

// rateLimiter keeps one token bucket per session (or client IP when no
// session is sent). Idle buckets are evicted so the map stays bounded.
type rateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	perMinute int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter(perMinute int) *rateLimiter {
	if perMinute <= 0 {
		perMinute = 20
	}
	return &rateLimiter{
		buckets:   make(map[string]*bucket),
		perMinute: perMinute,
	}
}

func (r *rateLimiter) allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(float64(r.perMinute)/60.0), r.perMinute)}
		r.buckets[key] = b
	}
	b.lastSeen = time.Now()

	if len(r.buckets) > 1024 {
		r.evictIdle()
	}
	return b.limiter.Allow()
}

// evictIdle drops buckets untouched for 10 minutes. Caller holds the lock.
func (r *rateLimiter) evictIdle() {
	cutoff := time.Now().Add(-10 * time.Minute)
	for key, b := range r.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(r.buckets, key)
		}
	}
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-Session-ID")
		if key == "" {
			key = c.ClientIP()
		}
		if !s.limiter.allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "İstek sınırı aşıldı. Lütfen biraz bekleyin.",
				"code":  apperrors.ErrCodeRateLimited,
			})
			return
		}
		c.Next()
	}
}
