package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jackwatters45/blog-api/logger"
)

// Limiter decides whether another request under key fits the window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter is a per-process sliding window. Clients whose window has
// emptied are forgotten.
type MemoryLimiter struct {
	mu        sync.Mutex
	requests  map[string][]time.Time
	limit     int
	window    time.Duration
	lastSweep time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		requests:  make(map[string][]time.Time),
		limit:     limit,
		window:    window,
		lastSweep: time.Now(),
	}
}

func (rl *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)
	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweep(cutoff)
		rl.lastSweep = now
	}

	requests := expire(rl.requests[key], cutoff)
	if len(requests) >= rl.limit {
		rl.requests[key] = requests
		return false, nil
	}

	rl.requests[key] = append(requests, now)
	return true, nil
}

// sweep drops every key with no request after cutoff. rl.mu must be held.
func (rl *MemoryLimiter) sweep(cutoff time.Time) {
	for key, requests := range rl.requests {
		if len(expire(requests, cutoff)) == 0 {
			delete(rl.requests, key)
		}
	}
}

// expire returns the suffix of requests newer than cutoff.
func expire(requests []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(requests); i++ {
		if requests[i].After(cutoff) {
			break
		}
	}
	return requests[i:]
}

// RedisLimiter is a fixed window shared by every instance behind the
// same Redis.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	key = "ratelimit:" + key
	n, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := rl.client.Expire(ctx, key, rl.window).Err(); err != nil {
			return false, err
		}
	}
	return n <= int64(rl.limit), nil
}

// RateLimit rejects clients over the limit with 429. Limiter failures let
// the request through.
func RateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := l.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warn.Printf("[RateLimit] limiter unavailable, allowing request: %v", err)
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests, please try again later"})
			return
		}
		c.Next()
	}
}
