package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/djhunter67/study-site/internal/cache"
)

// RateStore coordinates rate limiting counters for a specific key.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

// memoryRateStore is a process-local RateStore. Stale windows are swept
// opportunistically on Increment, so no background goroutine is needed.
type memoryRateStore struct {
	mu        sync.Mutex
	windows   map[string]*rateWindow
	lastSweep time.Time
	clock     func() time.Time
}

type rateWindow struct {
	count int
	until time.Time
}

const sweepInterval = time.Minute

// NewMemoryRateStore constructs an in-memory rate store.
func NewMemoryRateStore() RateStore {
	return &memoryRateStore{
		windows: make(map[string]*rateWindow),
		clock:   time.Now,
	}
}

func (s *memoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}

	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= sweepInterval {
		for k, w := range s.windows {
			if now.After(w.until) {
				delete(s.windows, k)
			}
		}
		s.lastSweep = now
	}

	w, ok := s.windows[key]
	if !ok || now.After(w.until) {
		w = &rateWindow{until: now.Add(window)}
		s.windows[key] = w
	}
	w.count++

	return w.count, w.until.Sub(now), nil
}

// cacheRateStore implements RateStore on the shared cache, so limits hold
// across instances when Redis backs the cache.
type cacheRateStore struct {
	store cache.Store
}

// NewCacheRateStore wraps a shared cache store in a RateStore implementation.
func NewCacheRateStore(store cache.Store) RateStore {
	if store == nil {
		return nil
	}
	return &cacheRateStore{store: store}
}

func (s *cacheRateStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	count, ttl, err := s.store.IncrementWithTTL(ctx, key, window)
	return int(count), ttl, err
}
