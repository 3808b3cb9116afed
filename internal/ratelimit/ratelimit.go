// Package ratelimit throttles the public account RPCs per client.
//
// Local keeps a token bucket per key in process memory. Redis keeps a fixed
// window counter per key in Redis, so every server instance shares one
// budget.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter reports whether one more request for key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

var (
	_ Limiter = (*Local)(nil)
	_ Limiter = (*Redis)(nil)
)

// idleTTL is how long an unused bucket is kept before it is swept.
const idleTTL = 5 * time.Minute

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// Local is an in-process token bucket per key.
type Local struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	now       func() time.Time
	lastSweep time.Time
}

func NewLocal(perSecond float64, burst int) *Local {
	return &Local{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
	}
}

func (l *Local) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > idleTTL {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > idleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1), nil
}

// Redis allows limit requests per key in each fixed window.
type Redis struct {
	client redis.UniversalClient
	limit  int64
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRedis(client redis.UniversalClient, limit int, window time.Duration) *Redis {
	return &Redis{
		client: client,
		limit:  int64(limit),
		window: window,
		prefix: "realmhub:ratelimit",
		now:    time.Now,
	}
}

// Allow fails open: on a Redis error the request is allowed and the error
// is returned for logging.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	slot := r.now().UnixNano() / int64(r.window)
	redisKey := r.prefix + ":" + key + ":" + strconv.FormatInt(slot, 10)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return incr.Val() <= r.limit, nil
}
