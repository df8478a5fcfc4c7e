// Package rate implementa rate limiting fixed-window para los endpoints
// sensibles (authenticate, password reset).
package rate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	CurrentHits int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// RedisLimiter: fixed window sencillo (INCR + EXPIRE).
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
	Max    int64
	Window time.Duration
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{Client: client, Prefix: prefix, Max: int64(max), Window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	winStart := now.Truncate(l.Window)
	redisKey := fmt.Sprintf("%s%s:%d", l.Prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	// set expiry on first hit
	if incr.Val() == 1 {
		_ = l.Client.Expire(ctx, redisKey, l.Window).Err()
		ttl = l.Client.TTL(ctx, redisKey)
	}

	hits := incr.Val()
	allowed := hits <= l.Max
	remaining := l.Max - hits
	if remaining < 0 {
		remaining = 0
	}

	res := Result{Allowed: allowed, Remaining: remaining, CurrentHits: hits}
	if !allowed {
		res.RetryAfter = ttl.Val()
		if res.RetryAfter < 0 {
			res.RetryAfter = time.Duration(math.Ceil(l.Window.Seconds())) * time.Second
		}
	}
	return res, nil
}

// MemoryLimiter: misma ventana fija, in-process. Para deployments sin
// Redis; los contadores no se comparten entre réplicas.
type MemoryLimiter struct {
	Max    int64
	Window time.Duration

	mu   sync.Mutex
	wins map[string]*memWindow
}

type memWindow struct {
	start time.Time
	hits  int64
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{Max: int64(max), Window: window, wins: make(map[string]*memWindow)}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	winStart := now.Truncate(l.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.wins[key]
	if !ok || !w.start.Equal(winStart) {
		w = &memWindow{start: winStart}
		l.wins[key] = w
	}
	w.hits++

	allowed := w.hits <= l.Max
	remaining := l.Max - w.hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{Allowed: allowed, Remaining: remaining, CurrentHits: w.hits}
	if !allowed {
		res.RetryAfter = winStart.Add(l.Window).Sub(now)
	}
	return res, nil
}

// NoopLimiter permite todo. Para tests y para deshabilitar por config.
type NoopLimiter struct{}

func (NoopLimiter) Allow(ctx context.Context, key string) (Result, error) {
	return Result{Allowed: true, Remaining: 1}, nil
}
