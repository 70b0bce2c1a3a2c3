package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps buckets in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*bucket)}
}

// Hit implements Store.
func (s *MemoryStore) Hit(_ context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		b = &bucket{count: 1, resetAt: now.Add(window)}
		s.buckets[key] = b
		return Decision{Allowed: true, Count: 1, ResetAt: b.resetAt}, nil
	}
	if b.count >= limit {
		return Decision{Allowed: false, Count: b.count, ResetAt: b.resetAt}, nil
	}
	b.count++
	return Decision{Allowed: true, Count: b.count, ResetAt: b.resetAt}, nil
}

// Prune drops buckets whose window has ended and returns how many it removed.
func (s *MemoryStore) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, b := range s.buckets {
		if !now.Before(b.resetAt) {
			delete(s.buckets, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked buckets.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// StartJanitor prunes expired buckets every interval until ctx is done.
func (s *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.Prune(now)
			}
		}
	}()
}
