package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewLRUCache[string](size, ttl).WithClock(clock.now), clock
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v; want 1, true", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) reported a hit")
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should survive, it was used most recently")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)

	c.Set("long", "x")
	c.SetWithTTL("short", "y", 10*time.Second)
	c.SetWithTTL("capped", "z", time.Hour)

	clock.advance(10 * time.Second)
	if _, ok := c.Get("short"); ok {
		t.Error("short should expire at its own TTL")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("long should still be present")
	}

	clock.advance(time.Minute)
	if removed := c.CleanExpired(); removed != 2 {
		t.Errorf("CleanExpired() = %d, want 2", removed)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCache_Take(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	c.Set("state", "alice")

	v, ok := c.Take("state")
	if !ok || v != "alice" {
		t.Fatalf("Take() = %q, %v; want alice, true", v, ok)
	}
	if _, ok := c.Take("state"); ok {
		t.Error("second Take() should miss")
	}
}

func TestManager_CleanAll(t *testing.T) {
	sessions, clock := newTestCache(10, time.Minute)
	sessions.Set("s1", "alice")
	clock.advance(2 * time.Minute)

	m := NewManager()
	m.Register("sessions", sessions)

	removed := m.CleanAll()
	if removed["sessions"] != 1 {
		t.Errorf("CleanAll()[sessions] = %d, want 1", removed["sessions"])
	}
	m.Stop()
	m.Stop()
}
