package ratelimiter

import (
	"testing"
	"time"
)

func TestFixedWindowLimit(t *testing.T) {
	rl := NewFixedWindowRateLimiter(3, time.Hour)
	defer rl.Close()

	for i := 0; i < 3; i++ {
		if ok, _ := rl.Allow("10.0.0.1"); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	ok, retryAfter := rl.Allow("10.0.0.1")
	if ok {
		t.Fatal("fourth request should be rejected")
	}
	if retryAfter <= 0 {
		t.Errorf("expected a positive retry-after, got %v", retryAfter)
	}
}

func TestFixedWindowIsolatesClients(t *testing.T) {
	rl := NewFixedWindowRateLimiter(1, time.Hour)
	defer rl.Close()

	if ok, _ := rl.Allow("10.0.0.1"); !ok {
		t.Fatal("first client should be allowed")
	}
	if ok, _ := rl.Allow("10.0.0.2"); !ok {
		t.Error("a different client must have its own budget")
	}
	if ok, _ := rl.Allow("10.0.0.1"); ok {
		t.Error("first client should be over its budget")
	}
}
