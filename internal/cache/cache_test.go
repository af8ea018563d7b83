package cache

import (
	"testing"
	"time"
)

func TestValue_HitWithinTTL(t *testing.T) {
	c := New[int](5 * time.Second)
	now := time.Now()

	if _, ok := c.Get(now); ok {
		t.Fatalf("empty cache should miss")
	}
	c.Put(42, now)
	got, ok := c.Get(now.Add(4 * time.Second))
	if !ok || got != 42 {
		t.Fatalf("Get = %d,%v; want 42,true", got, ok)
	}
}

func TestValue_ExpiresAtTTL(t *testing.T) {
	c := New[string](5 * time.Second)
	now := time.Now()
	c.Put("slots", now)

	if _, ok := c.Get(now.Add(5 * time.Second)); ok {
		t.Fatalf("value at exactly TTL should miss")
	}
}

func TestValue_Invalidate(t *testing.T) {
	c := New[[]int](time.Minute)
	now := time.Now()
	c.Put([]int{1, 2, 3}, now)
	c.Invalidate()
	if _, ok := c.Get(now); ok {
		t.Fatalf("invalidated cache should miss")
	}
}

func TestValue_DisabledTTL(t *testing.T) {
	c := New[int](0)
	now := time.Now()
	c.Put(7, now)
	if _, ok := c.Get(now); ok {
		t.Fatalf("ttl<=0 must disable caching")
	}
}
