// Per-client token buckets for the API.
//
// The router installs two policies. "admin" is keyed by the authenticated
// user. "public" covers tracking lookups, PDF reports and the contact form;
// those routes accept a tracking id as the only credential, so they are
// keyed by client IP with a smaller budget. Buckets are process-local and
// idle ones are swept lazily.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-shipment-tracker/internal/observability"
)

// KeyFunc selects the bucket for a request.
type KeyFunc func(*gin.Context) string

// KeyByUserOrIP keys by the user set by Authenticate, falling back to the
// client IP. Keys are namespaced ("user:abc", "ip:203.0.113.7").
func KeyByUserOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if v, ok := c.Get(ctxKeyUserID); ok {
			if s, ok := v.(string); ok && s != "" {
				return "user:" + s
			}
		}
		return "ip:" + c.ClientIP()
	}
}

// KeyByIP keys by client IP, ignoring any presented identity.
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string { return "ip:" + c.ClientIP() }
}

// RatePolicy describes one limiter.
type RatePolicy struct {
	// Name labels rejections in rate_limited_total.
	Name  string
	RPS   float64
	Burst int // <= 0 means 1
	Key   KeyFunc
}

// maxRetryAfter is advertised when the bucket can never refill (RPS 0).
const maxRetryAfter = 60

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a RatePolicy. Safe for concurrent use.
type RateLimiter struct {
	policy RatePolicy
	limit  rate.Limit

	mu        sync.Mutex
	buckets   map[string]*bucket
	idleTTL   time.Duration
	nextSweep time.Time
	now       func() time.Time
}

// NewRateLimiter builds a limiter for p. A nil p.Key keys by client IP.
func NewRateLimiter(p RatePolicy) *RateLimiter {
	if p.Burst <= 0 {
		p.Burst = 1
	}
	if p.Key == nil {
		p.Key = KeyByIP()
	}
	if p.Name == "" {
		p.Name = "default"
	}
	return &RateLimiter{
		policy:  p,
		limit:   rate.Limit(p.RPS),
		buckets: make(map[string]*bucket),
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

// bucketFor returns the bucket for key, creating it on first use. Buckets
// idle for idleTTL are dropped, at most once per idleTTL.
func (rl *RateLimiter) bucketFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !now.Before(rl.nextSweep) {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.nextSweep = now.Add(rl.idleTTL)
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.policy.Burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim
}

// retryAfter is the whole number of seconds until one token is available.
func (rl *RateLimiter) retryAfter(lim *rate.Limiter, now time.Time) int {
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return maxRetryAfter
	}
	d := r.DelayFrom(now)
	r.CancelAt(now)
	secs := int(math.Ceil(d.Seconds()))
	return min(max(secs, 1), maxRetryAfter)
}

// IsRateBypass reports whether IdempotencyValidator replayed this request.
// Replays do not consume tokens.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler enforces the policy. Rejections get 429 with Retry-After and the
// usual error envelope, code "too_many_requests".
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		now := rl.now()
		key := rl.policy.Key(c)
		lim := rl.bucketFor(key, now)
		if lim.AllowN(now, 1) {
			c.Next()
			return
		}

		observability.RateLimited.WithLabelValues(rl.policy.Name).Inc()
		log.Ctx(c.Request.Context()).Debug().
			Str("policy", rl.policy.Name).
			Str("key", key).
			Str("route", c.FullPath()).
			Msg("rate limited")
		c.Header("Retry-After", strconv.Itoa(rl.retryAfter(lim, now)))
		abortJSON(c, http.StatusTooManyRequests, "too_many_requests", "rate limit exceeded")
	}
}
