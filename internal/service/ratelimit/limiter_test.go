package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterBurstThenDeny(t *testing.T) {
	l := New()

	if !l.Allow("k", 2, 1) {
		t.Fatal("first take denied")
	}
	if !l.Allow("k", 2, 1) {
		t.Fatal("second take denied")
	}
	if l.Allow("k", 2, 1) {
		t.Fatal("bucket exhausted but take allowed")
	}
}

func TestLimiterRefill(t *testing.T) {
	l := New()

	if !l.Allow("k", 1, 100) {
		t.Fatal("first take denied")
	}
	if l.Allow("k", 1, 100) {
		t.Fatal("take allowed on empty bucket")
	}
	time.Sleep(50 * time.Millisecond)
	if !l.Allow("k", 1, 100) {
		t.Fatal("take denied after refill")
	}
}

func TestLimiterKeysIndependent(t *testing.T) {
	l := New()

	if !l.Allow("a", 1, 1) {
		t.Fatal("key a denied")
	}
	if !l.Allow("b", 1, 1) {
		t.Fatal("key b should not share key a's bucket")
	}
}
