package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTTL is how long a response stays valid without being refreshed
const DefaultTTL = 7 * 24 * time.Hour

// MemoryStore implements Store with a mutex-guarded map. It is safe for
// concurrent use by request handlers and sweepers.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	logger     zerolog.Logger
	metrics    *Metrics
}

var _ Store = (*MemoryStore)(nil)

// Option configures a MemoryStore
type Option func(*MemoryStore)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for failures and evictions
func WithLogger(l zerolog.Logger) Option {
	return func(s *MemoryStore) { s.logger = l }
}

// WithMetrics attaches Prometheus collectors
func WithMetrics(m *Metrics) Option {
	return func(s *MemoryStore) { s.metrics = m }
}

// WithMaxEntries bounds the number of entries. When a new key would exceed
// the bound, the entry with the oldest CreatedAt is evicted. Zero means
// unbounded.
func WithMaxEntries(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// NewMemoryStore creates an empty store
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*Entry),
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// TTL returns the configured time-to-live
func (s *MemoryStore) TTL() time.Duration {
	return s.ttl
}

// Get implements Reader. Entries past their expiration are deleted on
// access.
func (s *MemoryStore) Get(key string) (response string, ok bool) {
	defer s.recoverOp("get", key)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, found := s.entries[key]
	if !found {
		s.metrics.miss()
		return "", false
	}

	if s.now().After(entry.ExpiresAt) {
		delete(s.entries, key)
		s.metrics.expire(1)
		s.metrics.miss()
		s.metrics.size(len(s.entries))
		return "", false
	}

	s.metrics.hit()
	s.logger.Debug().Str("key", key).Msg("cache hit")
	return entry.Response, true
}

// Set implements Writer
func (s *MemoryStore) Set(key, response string) {
	defer s.recoverOp("set", key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.evictOldestLocked()
	}

	now := s.now()
	s.entries[key] = &Entry{
		Response:  response,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.metrics.set()
	s.metrics.size(len(s.entries))
	s.logger.Debug().Str("key", key).Msg("cache set")
}

// Delete removes a single entry
func (s *MemoryStore) Delete(key string) {
	defer s.recoverOp("delete", key)

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	s.metrics.size(len(s.entries))
}

// Clear removes every entry
func (s *MemoryStore) Clear() {
	defer s.recoverOp("clear", "")

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := len(s.entries)
	s.entries = make(map[string]*Entry)
	s.metrics.size(0)
	s.logger.Info().Int("previous_size", previous).Msg("cache cleared")
}

// Len returns the number of stored entries, expired ones included
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats scans the store for the oldest and newest CreatedAt
func (s *MemoryStore) Stats() (stats Stats) {
	defer s.recoverOp("stats", "")
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats = Stats{Size: len(s.entries), TTL: s.ttl}
	for _, entry := range s.entries {
		created := entry.CreatedAt
		if stats.OldestEntry == nil || created.Before(*stats.OldestEntry) {
			stats.OldestEntry = &created
		}
		if stats.NewestEntry == nil || created.After(*stats.NewestEntry) {
			stats.NewestEntry = &created
		}
	}
	return stats
}

// EntriesOlderThan returns the entries created more than age ago, oldest
// first
func (s *MemoryStore) EntriesOlderThan(age time.Duration) (out []AgedEntry) {
	defer s.recoverOp("scan", "")
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	for key, entry := range s.entries {
		if entryAge := now.Sub(entry.CreatedAt); entryAge > age {
			out = append(out, AgedEntry{Key: key, Age: entryAge})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Age != out[j].Age {
			return out[i].Age > out[j].Age
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// RefreshEntry restarts the lifetime of an entry without touching its
// response. It reports whether the key was present.
func (s *MemoryStore) RefreshEntry(key string) (refreshed bool) {
	defer s.recoverOp("refresh", key)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return false
	}

	now := s.now()
	previous := entry.CreatedAt
	s.entries[key] = &Entry{
		Response:  entry.Response,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.metrics.refresh()
	s.logger.Debug().
		Str("key", key).
		Time("previous_created_at", previous).
		Time("created_at", now).
		Msg("cache entry refreshed")
	return true
}

// SweepExpired deletes every entry whose expiration has passed and returns
// how many were removed
func (s *MemoryStore) SweepExpired() (removed int) {
	defer s.recoverOp("sweep", "")

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.entries {
		if now.After(entry.ExpiresAt) {
			delete(s.entries, key)
			removed++
		}
	}

	s.metrics.expire(removed)
	s.metrics.size(len(s.entries))
	if removed > 0 {
		s.logger.Info().
			Int("expired", removed).
			Int("remaining", len(s.entries)).
			Msg("cleared expired cache entries")
	}
	return removed
}

// evictOldestLocked drops the entry with the oldest CreatedAt. s.mu must be
// held for writing.
func (s *MemoryStore) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for key, entry := range s.entries {
		if !found || entry.CreatedAt.Before(oldest) {
			oldestKey, oldest, found = key, entry.CreatedAt, true
		}
	}
	if found {
		delete(s.entries, oldestKey)
		s.metrics.evict()
		s.logger.Debug().Str("key", oldestKey).Msg("cache entry evicted")
	}
}

// recoverOp keeps a failing cache operation from reaching the caller. The
// operation is logged and behaves like a miss or a no-op.
func (s *MemoryStore) recoverOp(op, key string) {
	if r := recover(); r != nil {
		s.logger.Error().
			Str("operation", op).
			Str("key", key).
			Interface("panic", r).
			Msg("cache operation failed")
	}
}
