package cache

import (
	"fmt"
	"testing"
	"time"

	"tradeai-hq/companion/pkg/config"
)

func newTestCache(maxEntries int, ttl time.Duration) *Cache {
	return New(config.CacheConfig{MaxEntries: maxEntries, TTL: ttl}, nil)
}

func TestGetSet(t *testing.T) {
	c := newTestCache(4, time.Minute)

	if _, ok := c.Get("quote:AAPL"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set("quote:AAPL", 187.32)
	got, ok := c.Get("quote:AAPL")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if got != 187.32 {
		t.Errorf("expected 187.32, got %v", got)
	}
}

func TestExpiry(t *testing.T) {
	c := newTestCache(4, 10*time.Millisecond)

	c.Set("quote:AAPL", 1.0)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("quote:AAPL"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestCapacityEviction(t *testing.T) {
	c := newTestCache(2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if c.Len() != 2 {
		t.Errorf("expected 2 entries after eviction, got %d", c.Len())
	}
	stats := c.Snapshot()
	if stats.Evictions != 1 {
		t.Errorf("expected 1 eviction, got %d", stats.Evictions)
	}
}

func TestOverwriteDoesNotEvict(t *testing.T) {
	c := newTestCache(2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)

	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}
	if got, _ := c.Get("a"); got != 10 {
		t.Errorf("expected overwritten value 10, got %v", got)
	}
}

func TestCleanup(t *testing.T) {
	c := newTestCache(8, 10*time.Millisecond)

	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)
	c.Set("fresh", 3)

	if removed := c.Cleanup(); removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry left, got %d", c.Len())
	}
}

func TestSnapshot(t *testing.T) {
	c := newTestCache(8, time.Minute)

	c.Set("a", 1)
	c.Get("a")
	c.Get("missing")

	stats := c.Snapshot()
	if stats.Entries != 1 {
		t.Errorf("expected 1 entry, got %d", stats.Entries)
	}
	if stats.Hits != 1 {
		t.Errorf("expected 1 hit, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
}

type countingRecorder struct {
	hits, misses, sizeCalls int
}

func (r *countingRecorder) RecordCacheHit()          { r.hits++ }
func (r *countingRecorder) RecordCacheMiss()         { r.misses++ }
func (r *countingRecorder) UpdateCacheSize(size int) { r.sizeCalls++ }

func TestRecorderNotified(t *testing.T) {
	rec := &countingRecorder{}
	c := New(config.CacheConfig{MaxEntries: 4, TTL: time.Minute}, rec)

	c.Set("a", 1)
	c.Get("a")
	c.Get("missing")

	if rec.hits != 1 || rec.misses != 1 {
		t.Errorf("expected 1 hit and 1 miss recorded, got %d/%d", rec.hits, rec.misses)
	}
	if rec.sizeCalls == 0 {
		t.Error("expected size updates recorded")
	}
}

func TestJanitorSweepsAllSweepers(t *testing.T) {
	c := newTestCache(8, time.Minute)
	j := NewJanitor("@every 1h", c, nil)

	extra := 0
	j.Add(sweepFunc(func() int {
		extra++
		return 1
	}))

	// Drive the sweep directly; cron scheduling itself is the library's
	// concern.
	j.sweep()

	if extra != 1 {
		t.Errorf("expected extra sweeper invoked once, got %d", extra)
	}
}

func TestJanitorEmptyScheduleDisabled(t *testing.T) {
	c := newTestCache(8, time.Minute)
	j := NewJanitor("", c, nil)

	if err := j.Start(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	j.Stop()
}

func TestJanitorInvalidSchedule(t *testing.T) {
	c := newTestCache(8, time.Minute)
	j := NewJanitor("not-a-schedule", c, nil)

	if err := j.Start(); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func BenchmarkCacheGet(b *testing.B) {
	c := newTestCache(1024, time.Minute)
	for i := 0; i < 512; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get(fmt.Sprintf("key-%d", i%512))
	}
}
