package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T, ttl time.Duration, opts ...Option) (*MemoryStore, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	opts = append([]Option{WithTTL(ttl), WithClock(clock.Now)}, opts...)
	return NewMemoryStore(opts...), clock
}

func TestSetAndGet(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)

	s.Set("chat:hello", "hi there")

	got, ok := s.Get("chat:hello")
	require.True(t, ok)
	assert.Equal(t, "hi there", got)

	_, ok = s.Get("chat:missing")
	assert.False(t, ok)
}

func TestSetWritesBothTimestamps(t *testing.T) {
	s, clock := newTestStore(t, time.Hour)

	s.Set("k", "v")

	entry := s.entries["k"]
	require.NotNil(t, entry)
	assert.Equal(t, clock.Now(), entry.CreatedAt)
	assert.Equal(t, entry.CreatedAt.Add(time.Hour), entry.ExpiresAt)
}

func TestSetOverwrites(t *testing.T) {
	s, clock := newTestStore(t, time.Hour)

	s.Set("k", "first")
	clock.Advance(30 * time.Minute)
	s.Set("k", "second")

	got, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "second", got)
	assert.Equal(t, clock.Now(), s.entries["k"].CreatedAt)
	assert.Equal(t, 1, s.Len())
}

func TestTTLExpiration(t *testing.T) {
	ttl := 7 * 24 * time.Hour
	s, clock := newTestStore(t, ttl)

	s.Set("k", "v")

	clock.Advance(ttl - time.Millisecond)
	got, ok := s.Get("k")
	require.True(t, ok, "entry should be valid before its TTL elapses")
	assert.Equal(t, "v", got)

	clock.Advance(2 * time.Millisecond)
	_, ok = s.Get("k")
	assert.False(t, ok, "entry should be absent after its TTL")

	// lazy expiration removed the entry
	assert.Equal(t, 0, s.Len())
}

func TestRefreshExtendsLife(t *testing.T) {
	ttl := 7 * 24 * time.Hour
	s, clock := newTestStore(t, ttl)

	s.Set("k", "v")
	created := clock.Now()

	clock.Advance(ttl/2 + time.Millisecond)
	refreshedAt := clock.Now()
	require.True(t, s.RefreshEntry("k"))

	// still valid at the end of the original schedule
	clock.Advance(created.Add(ttl - time.Millisecond).Sub(clock.Now()))
	got, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	// and past it, up to refresh time + TTL
	clock.Advance(refreshedAt.Add(ttl - time.Millisecond).Sub(clock.Now()))
	_, ok = s.Get("k")
	assert.True(t, ok)

	clock.Advance(2 * time.Millisecond)
	_, ok = s.Get("k")
	assert.False(t, ok)
}

func TestRefreshEntryMissing(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)
	assert.False(t, s.RefreshEntry("nope"))
}

func TestRefreshEntryKeepsResponse(t *testing.T) {
	s, clock := newTestStore(t, time.Hour)

	s.Set("k", "v")
	clock.Advance(10 * time.Minute)
	require.True(t, s.RefreshEntry("k"))

	entry := s.entries["k"]
	assert.Equal(t, "v", entry.Response)
	assert.Equal(t, clock.Now(), entry.CreatedAt)
	assert.Equal(t, clock.Now().Add(time.Hour), entry.ExpiresAt)
}

func TestDeleteAndClear(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)

	s.Set("a", "1")
	s.Set("b", "2")
	s.Set("c", "3")

	s.Delete("a")
	_, ok := s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 2, s.Stats().Size)

	s.Clear()
	assert.Equal(t, 0, s.Stats().Size)
	for _, k := range []string{"b", "c"} {
		_, ok := s.Get(k)
		assert.False(t, ok, "key %s should be gone after Clear", k)
	}
}

func TestStatsEmpty(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)
	s.Set("k", "v")
	s.Clear()

	stats := s.Stats()
	assert.Equal(t, 0, stats.Size)
	assert.Nil(t, stats.OldestEntry)
	assert.Nil(t, stats.NewestEntry)
	assert.Equal(t, time.Hour, stats.TTL)
}

func TestStatsOldestNewest(t *testing.T) {
	s, clock := newTestStore(t, time.Hour)

	first := clock.Now()
	s.Set("a", "1")
	clock.Advance(time.Minute)
	s.Set("b", "2")
	clock.Advance(time.Minute)
	last := clock.Now()
	s.Set("c", "3")

	stats := s.Stats()
	assert.Equal(t, 3, stats.Size)
	require.NotNil(t, stats.OldestEntry)
	require.NotNil(t, stats.NewestEntry)
	assert.Equal(t, first, *stats.OldestEntry)
	assert.Equal(t, last, *stats.NewestEntry)
}

func TestEntriesOlderThan(t *testing.T) {
	s, clock := newTestStore(t, 30*24*time.Hour)

	s.Set("oldest", "1")
	clock.Advance(2 * 24 * time.Hour)
	s.Set("middle", "2")
	clock.Advance(2 * 24 * time.Hour)
	s.Set("fresh", "3")
	clock.Advance(time.Hour)

	older := s.EntriesOlderThan(24 * time.Hour)
	require.Len(t, older, 2)
	assert.Equal(t, "oldest", older[0].Key)
	assert.Equal(t, 4*24*time.Hour+time.Hour, older[0].Age)
	assert.Equal(t, "middle", older[1].Key)

	assert.Empty(t, s.EntriesOlderThan(10*24*time.Hour))
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	ttl := time.Hour
	s, clock := newTestStore(t, ttl)

	s.Set("stale", "1")
	clock.Advance(1001 * time.Millisecond)
	s.Set("fresh", "2")

	// stale expired 1ms ago, fresh expires 1000ms from now
	clock.Advance(ttl - 1000*time.Millisecond)
	removed := s.SweepExpired()

	assert.Equal(t, 1, removed)
	_, ok := s.Get("stale")
	assert.False(t, ok)
	got, ok := s.Get("fresh")
	require.True(t, ok)
	assert.Equal(t, "2", got)
}

func TestEndToEndScenario(t *testing.T) {
	s, clock := newTestStore(t, 7*24*time.Hour)

	s.Set("chat:ola", "Oi! Como posso ajudar?")

	clock.Advance(24 * time.Hour)
	got, ok := s.Get("chat:ola")
	require.True(t, ok)
	assert.Equal(t, "Oi! Como posso ajudar?", got)

	clock.Advance(7 * 24 * time.Hour)
	assert.Equal(t, 1, s.SweepExpired())

	clock.Advance(time.Millisecond)
	_, ok = s.Get("chat:ola")
	assert.False(t, ok)
}

func TestMaxEntriesEvictsOldest(t *testing.T) {
	s, clock := newTestStore(t, time.Hour, WithMaxEntries(2))

	s.Set("a", "1")
	clock.Advance(time.Second)
	s.Set("b", "2")
	clock.Advance(time.Second)

	// overwriting an existing key never evicts
	s.Set("b", "2b")
	assert.Equal(t, 2, s.Len())

	s.Set("c", "3")
	assert.Equal(t, 2, s.Len())
	_, ok := s.Get("a")
	assert.False(t, ok, "oldest entry should have been evicted")
	_, ok = s.Get("c")
	assert.True(t, ok)
}

func TestOperationFailureIsAMiss(t *testing.T) {
	s := NewMemoryStore(WithClock(func() time.Time { panic("clock broke") }))

	assert.NotPanics(t, func() {
		s.Set("k", "v")
	})
	assert.NotPanics(t, func() {
		_, ok := s.Get("k")
		assert.False(t, ok)
	})
	assert.NotPanics(t, func() {
		assert.False(t, s.RefreshEntry("k"))
		s.SweepExpired()
	})
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s, clock := newTestStore(t, time.Hour, WithMetrics(m))

	s.Set("a", "1")
	s.Set("b", "2")
	s.Get("a")
	s.Get("zzz")
	s.RefreshEntry("b")

	clock.Advance(2 * time.Hour)
	s.SweepExpired()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.hits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.misses))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sets))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshed))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.expired))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.entries))
}

func TestConcurrentAccess(t *testing.T) {
	s := NewMemoryStore(WithTTL(time.Minute))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("chat:%d:%d", worker, j%10)
				s.Set(key, "v")
				s.Get(key)
				s.RefreshEntry(key)
				if j%50 == 0 {
					s.SweepExpired()
					s.Stats()
					s.EntriesOlderThan(0)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 80, s.Len())
}

func TestScansSurviveFailingClock(t *testing.T) {
	clock := newFakeClock()
	var broken atomic.Bool
	s := NewMemoryStore(WithTTL(time.Hour), WithClock(func() time.Time {
		if broken.Load() {
			panic("clock exploded")
		}
		return clock.Now()
	}))
	s.Set("k", "v")
	broken.Store(true)

	assert.NotPanics(t, func() {
		assert.Empty(t, s.EntriesOlderThan(0))
	})
	assert.NotPanics(t, func() {
		res := RefreshOlderThan(s, 0)
		assert.Equal(t, 0, res.Refreshed)
		assert.Equal(t, 1, res.After.Size)
	})
}
