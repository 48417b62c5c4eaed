// Package cache provides the in-memory response cache used by the chat
// assistant, with key normalization, TTL-based expiration and periodic
// refresh/eviction sweeps.
package cache

import "time"

// Entry represents a cached response with its timestamps
type Entry struct {
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AgedEntry is a key paired with the age of its entry at scan time
type AgedEntry struct {
	Key string        `json:"key"`
	Age time.Duration `json:"age"`
}

// Stats summarizes the store contents
type Stats struct {
	Size        int
	OldestEntry *time.Time
	NewestEntry *time.Time
	TTL         time.Duration
}

// Reader defines the interface for reading cache entries
type Reader interface {
	// Get returns the response stored under key and true on a hit.
	// Expired entries are removed and reported as a miss.
	Get(key string) (string, bool)
}

// Writer defines the interface for writing cache entries
type Writer interface {
	// Set stores response under key, replacing any previous entry
	Set(key, response string)
}

// ReadWriter combines both cache operations
type ReadWriter interface {
	Reader
	Writer
}

// Inspector exposes read-only scans over the store
type Inspector interface {
	Stats() Stats
	EntriesOlderThan(age time.Duration) []AgedEntry
}

// Maintainer is what the sweepers and the admin surface need
type Maintainer interface {
	Inspector
	RefreshEntry(key string) bool
	SweepExpired() int
	TTL() time.Duration
}

// Store is the main interface that combines all cache operations
type Store interface {
	ReadWriter
	Maintainer
	Delete(key string)
	Clear()
}
