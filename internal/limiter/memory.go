package limiter

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	windowStart time.Time
	count       int
}

// MemoryStore keeps fixed-window counters in process memory. A single mutex
// guards the map so the multi-key check-then-increment is atomic: two
// concurrent requests for the same key can never both take the last slot.
// Expired counters are reset lazily on the next request for their key.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: make(map[string]*counter),
		now:      time.Now,
	}
}

func (s *MemoryStore) Allow(ctx context.Context, keys []string, limit int, window time.Duration) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	// Reset expired counters first; resets stick even when the request is
	// then denied on another key.
	checked := make([]*counter, len(keys))
	for i, key := range keys {
		c := s.counters[key]
		if c == nil {
			c = &counter{windowStart: now}
			s.counters[key] = c
		} else if now.Sub(c.windowStart) >= window {
			c.windowStart = now
			c.count = 0
		}
		checked[i] = c
	}

	for i, c := range checked {
		if c.count+1 > limit {
			return Decision{
				DeniedKey:  keys[i],
				Remaining:  limit - c.count,
				RetryAfter: c.windowStart.Add(window).Sub(now),
			}, nil
		}
	}

	remaining := limit
	for _, c := range checked {
		c.count++
		if r := limit - c.count; r < remaining {
			remaining = r
		}
	}
	return Decision{Allowed: true, Remaining: remaining}, nil
}
