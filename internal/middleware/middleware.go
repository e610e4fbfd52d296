package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter enforces a minimum interval between order submissions per
// client, keyed on the X-Client-ID header. Rejected requests carry a
// Retry-After header with the remaining wait.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]time.Time
	limit   time.Duration
}

func NewRateLimiter(limit time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]time.Time),
		limit:   limit,
	}
}

// allow reports whether clientID may submit now. When it may not, the
// remaining wait is returned and the client's slot is left untouched.
func (r *RateLimiter) allow(clientID string) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if last, ok := r.clients[clientID]; ok {
		if wait := r.limit - now.Sub(last); wait > 0 {
			return wait, false
		}
	}
	r.clients[clientID] = now
	return 0, true
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetHeader("X-Client-ID")
		if clientID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "X-Client-ID header required"})
			c.Abort()
			return
		}
		if wait, ok := r.allow(clientID); !ok {
			c.Header("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}
