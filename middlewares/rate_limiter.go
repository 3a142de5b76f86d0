package middlewares

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cafe-pos/utils"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	visitors map[string]*visitor
	mu       sync.Mutex
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows requests per interval (seconds) for each IP.
func NewRateLimiter(requests int, interval int) *RateLimiter {
	per := time.Duration(interval) * time.Second
	return &RateLimiter{
		limit:    rate.Every(per / time.Duration(requests)),
		burst:    requests,
		ttl:      3 * per,
		visitors: make(map[string]*visitor),
	}
}

func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.ttl {
			delete(rl.visitors, key)
		}
	}

	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			utils.RespondError(c, http.StatusTooManyRequests, errors.New("too many requests, please slow down"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// NewStrictRateLimiter guards the login endpoint: 5 attempts per minute per IP.
func NewStrictRateLimiter() gin.HandlerFunc {
	return NewRateLimiter(5, 60).RateLimit()
}
