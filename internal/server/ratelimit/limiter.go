// Package ratelimit throttles sample ingestion per account.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter decides whether one more event for key is allowed right now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Memory keeps one token bucket per key in process memory. It is enough for
// a single instance; use Redis when several instances share the limit.
type Memory struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func NewMemory(perSecond float64, burst int) *Memory {
	return &Memory{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	l, ok := m.limiters[key]
	if !ok {
		l = rate.NewLimiter(m.limit, m.burst)
		m.limiters[key] = l
	}
	m.mu.Unlock()

	return l.Allow(), nil
}
