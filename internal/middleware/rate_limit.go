package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/nailbook/booking-api/internal/pkg/logger"
	"github.com/nailbook/booking-api/internal/pkg/response"
)

// RateLimiter allows limit requests per window per client IP.
// With Redis the counter is shared across instances (fixed window);
// without it each process keeps a token bucket per IP.
type RateLimiter struct {
	redis  *redis.Client
	scope  string
	limit  int
	window time.Duration

	mu        sync.Mutex
	limiters  map[string]*localBucket
	lastSweep time.Time
	now       func() time.Time
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter; redisClient may be nil.
func NewRateLimiter(redisClient *redis.Client, scope string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:    redisClient,
		scope:    scope,
		limit:    limit,
		window:   window,
		limiters: make(map[string]*localBucket),
		now:      time.Now,
	}
}

// Allow reports whether the client identified by key may proceed.
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	if rl.limit <= 0 {
		return true
	}
	if rl.redis != nil {
		allowed, err := rl.allowRedis(ctx, key)
		if err == nil {
			return allowed
		}
		logger.FromContext(ctx).Warn().Err(err).Str("scope", rl.scope).Msg("rate limit redis error, using local limiter")
	}
	return rl.localLimiter(key).Allow()
}

func (rl *RateLimiter) allowRedis(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%s", rl.scope, key)

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rl.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		ttl = pipe.TTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		return false, err
	}

	// A key without expiry would block the client forever; this also heals
	// keys whose earlier Expire failed.
	if ttl.Val() < 0 {
		if err := rl.redis.Expire(ctx, redisKey, rl.window).Err(); err != nil {
			return false, err
		}
	}
	return incr.Val() <= int64(rl.limit), nil
}

func (rl *RateLimiter) localLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	b, ok := rl.limiters[key]
	if !ok {
		b = &localBucket{limiter: rate.NewLimiter(rate.Every(rl.window/time.Duration(rl.limit)), rl.limit)}
		rl.limiters[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// sweep drops buckets idle for a full window; their replacement starts just as full.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.window {
		return
	}
	for key, b := range rl.limiters {
		if now.Sub(b.lastSeen) >= rl.window {
			delete(rl.limiters, key)
		}
	}
	rl.lastSweep = now
}

// Middleware rejects over-limit clients with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		if !rl.Allow(r.Context(), ip) {
			logger.FromContext(r.Context()).Warn().Str("ip", ip).Str("scope", rl.scope).Msg("rate limit exceeded")
			response.TooManyRequests(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
