package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "pulsekeeper:ingest:"

// counter increments the hit count of key within its window.
type counter interface {
	incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type redisCounter struct {
	client redis.Cmdable
}

func (c redisCounter) incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Redis is a fixed-window limiter shared by every instance pointing at the
// same Redis. A window lasts burst/perSecond and admits burst events, which
// keeps the long-run rate equal to the in-memory limiter.
type Redis struct {
	counter counter
	limit   int64
	window  time.Duration
	now     func() time.Time
}

func NewRedis(client redis.Cmdable, perSecond float64, burst int) *Redis {
	return newRedis(redisCounter{client: client}, perSecond, burst)
}

func newRedis(c counter, perSecond float64, burst int) *Redis {
	if burst < 1 {
		burst = 1
	}
	window := time.Second
	if perSecond > 0 {
		window = time.Duration(float64(burst) / perSecond * float64(time.Second))
	}
	if window < time.Millisecond {
		window = time.Millisecond
	}
	return &Redis{counter: c, limit: int64(burst), window: window, now: time.Now}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	slot := r.now().UnixNano() / int64(r.window)
	n, err := r.counter.incr(ctx, fmt.Sprintf("%s%s:%d", keyPrefix, key, slot), r.window)
	if err != nil {
		return false, fmt.Errorf("redis limiter: %w", err)
	}
	return n <= r.limit, nil
}
