package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"rank-api/internal/response"
	"rank-api/pkg/logging"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimiter decides whether one more request from key fits the window.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimitMiddleware rejects clients over their budget with 429. Limiter
// errors let the request through.
func RateLimitMiddleware(scope string, limiter RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := scope + ":" + c.ClientIP()
		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logging.Warnf("Rate limiter unavailable for %s: %v", key, err)
			c.Next()
			return
		}
		if !allowed {
			logging.Warnf("Rate limit exceeded for %s", key)
			response.AbortErrorJSON(c, http.StatusTooManyRequests, "Too many requests, please try again later.")
			return
		}
		c.Next()
	}
}

// RedisRateLimiter is a fixed window counter shared by every instance.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{client: client, limit: limit, window: window, now: time.Now}
}

// windowKey names the counter of the window that contains now.
func (l *RedisRateLimiter) windowKey(key string, now time.Time) string {
	window := now.UnixNano() / int64(l.window)
	return fmt.Sprintf("rate_limit:%s:%s", key, strconv.FormatInt(window, 10))
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := l.windowKey(key, l.now())

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit counter failed: %w", err)
	}
	return incr.Val() <= int64(l.limit), nil
}

// MemoryRateLimiter keeps a token bucket per key in process memory.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryRateLimiter allows limit requests per window with a full burst.
func NewMemoryRateLimiter(limit int, window time.Duration) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		limit:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
		idleTTL: window,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (l *MemoryRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		l.prune(now)
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1), nil
}

// prune drops buckets idle for a whole window; they are full again by then.
func (l *MemoryRateLimiter) prune(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idleTTL {
			delete(l.buckets, key)
		}
	}
}
