package ratecache

import (
	"context"
	"sync"
	"time"

	"github.com/gyeh/remitcheck/internal/model"
)

// DefaultTTL is how long a quote stays fresh.
const DefaultTTL = 24 * time.Hour

// Store persists quotes with a time-to-live. Implementations must be safe
// for concurrent use. A missing or expired key returns ok=false.
type Store interface {
	Get(ctx context.Context, key string) (model.RateQuote, bool, error)
	Set(ctx context.Context, key string, q model.RateQuote, ttl time.Duration) error
}

type memEntry struct {
	quote     model.RateQuote
	expiresAt time.Time
}

// MemoryStore is an in-process Store with per-entry expiry and a
// background sweep of expired entries.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	nowFunc func() time.Time // for testing; defaults to time.Now
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryStore creates a MemoryStore sweeping expired entries every interval.
// A non-positive interval disables the sweep.
func NewMemoryStore(sweep time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memEntry),
		nowFunc: time.Now,
		stop:    make(chan struct{}),
	}
	if sweep > 0 {
		go s.cleanupLoop(sweep)
	}
	return s
}

// SetClock replaces the store's time source.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFunc = now
}

func (s *MemoryStore) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.stop:
			return
		}
	}
}

// Stop terminates the background sweep. Safe to call more than once.
func (s *MemoryStore) Stop() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryStore) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFunc()
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (model.RateQuote, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || !s.nowFunc().Before(e.expiresAt) {
		return model.RateQuote{}, false, nil
	}
	return e.quote, true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, q model.RateQuote, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memEntry{quote: q, expiresAt: s.nowFunc().Add(ttl)}
	return nil
}

// Len returns the number of entries held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ Store = (*MemoryStore)(nil)
