// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements request rate limiting keyed by caller identity (the
// verified user id, else the client IP). Two backends exist:
//
//   - RateLimiter: process-local token buckets (golang.org/x/time/rate) with
//     opportunistic eviction of idle buckets.
//   - RedisRateLimiter: a fixed one-second window counted in Redis, shared by
//     every replica.
//
// Both skip requests that IdempotencyValidator marked as replays and answer
// 429 rate_limited with Retry-After: 1.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// keyFunc maps a request to a bucket identity.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP prefers "user:<id>" (set by Authenticate) and falls back to
// "ip:<addr>".
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if uid := UserID(c); uid != "" {
			return "user:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

// IsRateBypass reports whether the request is an idempotent replay.
func IsRateBypass(c *gin.Context) bool {
	b, _ := c.Get(ctxKeyRateBypass)
	v, _ := b.(bool)
	return v
}

func rejectRate(c *gin.Context) {
	rateLimited.Inc()
	c.Header("Retry-After", "1")
	abort(c, http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded")
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token-bucket limiter. Safe for concurrent use.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	keyFn    keyFunc
	mu       sync.Mutex
	visitors map[string]*visitor

	ttl      time.Duration
	cleanupN uint64
}

// NewRateLimiter builds a limiter refilling rps tokens per second up to burst
// (coerced to at least 1).
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
	}
}

// getVisitor returns the bucket for key. Every 5000 lookups idle buckets are
// evicted first, so a stale bucket is dropped even when it is the one asked for.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.cleanupN = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// Handler enforces the limit.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) || rl.getVisitor(rl.keyFn(c)).Allow() {
			c.Next()
			return
		}
		rejectRate(c)
	}
}

// windowCounter is the subset of *redis.Client used by RedisRateLimiter.
type windowCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisRateLimiter allows Limit requests per key per second across all
// replicas. Redis failures let the request through.
type RedisRateLimiter struct {
	rdb    windowCounter
	limit  int64
	prefix string
	keyFn  keyFunc
	now    func() time.Time
}

// NewRedisRateLimiter builds a shared limiter. limit is coerced to at least 1.
func NewRedisRateLimiter(rdb windowCounter, limit int, keyFn keyFunc) *RedisRateLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &RedisRateLimiter{
		rdb:    rdb,
		limit:  int64(limit),
		prefix: "ratelimit:",
		keyFn:  keyFn,
		now:    time.Now,
	}
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

// allow counts the request in the current window.
func (rl *RedisRateLimiter) allow(ctx context.Context, key string) (bool, error) {
	k := rl.prefix + key + ":" + strconv.FormatInt(rl.now().Unix(), 10)
	n, err := rl.rdb.Incr(ctx, k).Result()
	if err != nil {
		return true, err
	}
	if n == 1 {
		// Two windows, so a slow clock on one replica still finds the key.
		if err := rl.rdb.Expire(ctx, k, 2*time.Second).Err(); err != nil {
			return true, err
		}
	}
	return n <= rl.limit, nil
}

// Handler enforces the limit.
func (rl *RedisRateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}
		ok, err := rl.allow(c.Request.Context(), rl.keyFn(c))
		if err != nil {
			LoggerFrom(c).Warn().Err(err).Msg("rate limiter unavailable")
		}
		if ok {
			c.Next()
			return
		}
		rejectRate(c)
	}
}
