package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/compdash/compdash/backend/go-services/pkg/metrics"
)

// rateLimitKey buckets a request by client IP and by whether it mutates.
// Polling GETs then cannot starve the same client's saves. The actor header
// is free text and is never used as a key.
func rateLimitKey(c *gin.Context) string {
	scope := "read"
	switch c.Request.Method {
	case http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete:
		scope = "write"
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return scope + ":ip:" + ip
}

// limiterStore is a per-key token-bucket set.
type limiterStore struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	lim, ok := s.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(s.rps), s.burst)
		s.limiters[key] = lim
	}
	return lim
}

// RateLimitMiddleware returns a Gin middleware enforcing an in-process
// token bucket per key. rps = allowed events per second, burst = maximum
// tokens in bucket.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	store := &limiterStore{limiters: map[string]*rate.Limiter{}, rps: rps, burst: burst}
	return func(c *gin.Context) {
		if !store.get(rateLimitKey(c)).Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
