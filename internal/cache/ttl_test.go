package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestTTLCacheSetGet(t *testing.T) {
	c := NewTTLCache[string](time.Hour, 10)

	c.Set("key1", "value1")

	got, found := c.Get("key1")
	if !found {
		t.Fatal("expected cache hit for key1")
	}
	if got != "value1" {
		t.Errorf("Get(key1) = %q, want %q", got, "value1")
	}

	if _, found := c.Get("missing"); found {
		t.Error("expected cache miss for absent key")
	}
}

func TestTTLCacheExpiration(t *testing.T) {
	c := NewTTLCache[string](time.Hour, 10)

	c.SetTTL("key1", "value1", 50*time.Millisecond)

	if _, found := c.Get("key1"); !found {
		t.Fatal("key1 should exist immediately")
	}

	time.Sleep(60 * time.Millisecond)

	if _, found := c.Get("key1"); found {
		t.Error("key1 should have expired")
	}
	// The expired lookup must have evicted the entry.
	if c.Has("key1") {
		t.Error("Has(key1) should be false after lazy eviction")
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0 after eviction", c.Size())
	}
}

func TestTTLCacheHasEvictsExpired(t *testing.T) {
	c := NewTTLCache[int](time.Hour, 10)

	c.SetTTL("key1", 1, 50*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	if c.Has("key1") {
		t.Error("Has should not report an expired entry")
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0: Has must evict as a side effect", c.Size())
	}
}

func TestTTLCacheCapacityEviction(t *testing.T) {
	const maxSize = 10
	c := NewTTLCache[int](time.Hour, maxSize)

	// Fill to capacity with distinct insertion times.
	for i := 0; i < maxSize; i++ {
		c.Set(fmt.Sprintf("key%d", i), i)
		time.Sleep(time.Millisecond)
	}

	// One more insert triggers eviction of the two oldest (ceil(10*0.2)).
	c.Set("overflow", maxSize)

	if c.Size() > maxSize {
		t.Fatalf("Size() = %d, exceeds bound %d", c.Size(), maxSize)
	}
	for i := 0; i < 2; i++ {
		if c.Has(fmt.Sprintf("key%d", i)) {
			t.Errorf("key%d should have been evicted as oldest", i)
		}
	}
	for i := 2; i < maxSize; i++ {
		if !c.Has(fmt.Sprintf("key%d", i)) {
			t.Errorf("key%d should have survived eviction", i)
		}
	}
	if !c.Has("overflow") {
		t.Error("newly inserted key should be present")
	}
}

func TestTTLCacheCapacitySweepPrefersExpired(t *testing.T) {
	const maxSize = 5
	c := NewTTLCache[int](time.Hour, maxSize)

	// key0 expires quickly; the rest never do.
	c.SetTTL("key0", 0, 30*time.Millisecond)
	time.Sleep(time.Millisecond)
	for i := 1; i < maxSize; i++ {
		c.Set(fmt.Sprintf("key%d", i), i)
		time.Sleep(time.Millisecond)
	}

	time.Sleep(40 * time.Millisecond)

	// The sweep removes key0, so no live entry needs to be dropped.
	c.Set("overflow", maxSize)

	for i := 1; i < maxSize; i++ {
		if !c.Has(fmt.Sprintf("key%d", i)) {
			t.Errorf("key%d should survive when an expired entry can be swept", i)
		}
	}
	if !c.Has("overflow") {
		t.Error("overflow should be present")
	}
	if c.Size() > maxSize {
		t.Errorf("Size() = %d, exceeds bound %d", c.Size(), maxSize)
	}
}

func TestTTLCacheOverwrite(t *testing.T) {
	c := NewTTLCache[string](time.Hour, 10)

	c.Set("key1", "old")
	c.Set("key1", "new")

	got, found := c.Get("key1")
	if !found || got != "new" {
		t.Errorf("Get(key1) = %q, %v; want %q, true", got, found, "new")
	}
	if c.Size() != 1 {
		t.Errorf("Size() = %d, want 1 after overwrite", c.Size())
	}
}

func TestTTLCacheRemoveAndClear(t *testing.T) {
	c := NewTTLCache[string](time.Hour, 10)

	c.Set("key1", "value1")
	c.Set("key2", "value2")

	c.Remove("key1")
	if c.Has("key1") {
		t.Error("key1 should be gone after Remove")
	}
	c.Remove("key1") // no-op on absent key

	c.Clear()
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0 after Clear", c.Size())
	}
}

func TestTTLCacheCleanExpired(t *testing.T) {
	c := NewTTLCache[int](time.Hour, 10)

	c.SetTTL("short1", 1, 30*time.Millisecond)
	c.SetTTL("short2", 2, 30*time.Millisecond)
	c.Set("long", 3)

	time.Sleep(40 * time.Millisecond)

	if removed := c.CleanExpired(); removed != 2 {
		t.Errorf("CleanExpired() = %d, want 2", removed)
	}
	if !c.Has("long") {
		t.Error("unexpired entry should survive CleanExpired")
	}
}

func TestManagerCleanup(t *testing.T) {
	c := NewTTLCache[int](time.Hour, 10)
	c.SetTTL("short", 1, 20*time.Millisecond)

	m := NewManager()
	m.Register(c)
	m.StartCleanup(30 * time.Millisecond)
	defer m.Stop()

	time.Sleep(80 * time.Millisecond)

	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0 after background cleanup", c.Size())
	}
}
