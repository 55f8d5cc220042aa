package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterIdle  = 10 * time.Minute
	limiterSweep = 5 * time.Minute
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet keeps one token bucket per client IP. Idle buckets are dropped
// on access once per sweep period, so no background goroutine is needed.
type limiterSet struct {
	mu        sync.Mutex
	r         rate.Limit
	b         int
	byIP      map[string]*ipLimiter
	lastSweep time.Time
	now       func() time.Time
}

func (s *limiterSet) allow(ip string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if now.Sub(s.lastSweep) >= limiterSweep {
		for k, v := range s.byIP {
			if now.Sub(v.lastSeen) >= limiterIdle {
				delete(s.byIP, k)
			}
		}
		s.lastSweep = now
	}
	il, ok := s.byIP[ip]
	if !ok {
		il = &ipLimiter{limiter: rate.NewLimiter(s.r, s.b)}
		s.byIP[ip] = il
	}
	il.lastSeen = now
	return il.limiter.AllowN(now, 1)
}

func (s *limiterSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byIP)
}

func newLimiterSet(r rate.Limit, b int, now func() time.Time) *limiterSet {
	return &limiterSet{r: r, b: b, byIP: make(map[string]*ipLimiter), lastSweep: now(), now: now}
}

// RateLimit provides per-IP token-bucket rate limiting.
// r = requests per second, b = burst size. A non-positive r disables it.
func RateLimit(r rate.Limit, b int) gin.HandlerFunc {
	if r <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	set := newLimiterSet(r, b, time.Now)
	return func(c *gin.Context) {
		if !set.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
