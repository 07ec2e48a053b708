// Package ratelimit provides an in-memory token bucket rate limiter for the
// demo backend's mutating endpoints.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether a request identified by key should be allowed.
// Implementations must be safe for concurrent use. Callers treat limiter
// errors as fail-open.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Close() error
}

// Noop permits every request. Used when rate limiting is disabled.
type Noop struct{}

// Allow always returns true.
func (Noop) Allow(context.Context, string) (bool, error) { return true, nil }

// Close is a no-op.
func (Noop) Close() error { return nil }

// bucket is a single token bucket for one key.
type bucket struct {
	tokens     float64
	lastAccess time.Time
}

// Memory implements Limiter with an independent token bucket per key.
// A background goroutine evicts keys not accessed recently to bound memory.
type Memory struct {
	rate  float64 // tokens added per second
	burst float64 // bucket capacity

	mu      sync.Mutex
	buckets map[string]*bucket

	stopOnce sync.Once
	done     chan struct{}
}

const staleThreshold = 10 * time.Minute

// NewMemory creates a token bucket limiter with the given sustained rate
// (requests per second per key) and burst capacity. Call Close to stop the
// eviction goroutine.
func NewMemory(rate float64, burst int) *Memory {
	m := &Memory{
		rate:    rate,
		burst:   float64(burst),
		buckets: make(map[string]*bucket),
		done:    make(chan struct{}),
	}
	go m.evictLoop()
	return m
}

// Allow consumes one token from key's bucket. Returns false when the bucket
// is empty (request should be rejected with 429).
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	b, ok := m.buckets[key]
	if !ok {
		m.buckets[key] = &bucket{tokens: m.burst - 1, lastAccess: now}
		return true, nil
	}

	elapsed := now.Sub(b.lastAccess).Seconds()
	b.tokens += elapsed * m.rate
	if b.tokens > m.burst {
		b.tokens = m.burst
	}
	b.lastAccess = now

	if b.tokens < 1 {
		return false, nil
	}
	b.tokens--
	return true, nil
}

// Close stops the eviction goroutine. Safe to call multiple times.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.done) })
	return nil
}

func (m *Memory) evictLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictStale()
		}
	}
}

func (m *Memory) evictStale() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-staleThreshold)
	for key, b := range m.buckets {
		if b.lastAccess.Before(cutoff) {
			delete(m.buckets, key)
		}
	}
}
