package cache

import (
	"testing"
	"time"
)

func TestTTLCacheSetGet(t *testing.T) {
	c := NewTTLCache()

	c.Set("k", 42, time.Minute)
	v, ok := c.Get("k")
	if !ok || v.(int) != 42 {
		t.Fatalf("got %v ok=%v", v, ok)
	}
	if _, ok := c.Get("absent"); ok {
		t.Fatal("missing key reported present")
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache()

	c.Set("k", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry still readable")
	}
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewTTLCache()

	c.Set("k", "v", 0)
	time.Sleep(2 * time.Millisecond)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("zero TTL entry expired")
	}
}
