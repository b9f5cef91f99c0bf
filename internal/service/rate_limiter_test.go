package service

import (
	"testing"
	"time"
)

func TestSortRateLimiter_AllowsUpToMax(t *testing.T) {
	limiter := NewSortRateLimiter(time.Minute, 3)
	for i := 0; i < 3; i++ {
		if !limiter.Allow("u1") {
			t.Fatalf("expected attempt %d to be allowed", i+1)
		}
	}
	if limiter.Allow("u1") {
		t.Fatalf("expected fourth attempt to be denied")
	}
	// Separate users have separate windows.
	if !limiter.Allow("u2") {
		t.Fatalf("expected separate key to be allowed")
	}
}

func TestSortRateLimiter_WindowExpires(t *testing.T) {
	limiter := NewSortRateLimiter(20*time.Millisecond, 1)
	if !limiter.Allow("u1") {
		t.Fatalf("expected first attempt allowed")
	}
	if limiter.Allow("u1") {
		t.Fatalf("expected second attempt denied")
	}
	time.Sleep(30 * time.Millisecond)
	if !limiter.Allow("u1") {
		t.Fatalf("expected attempt after window to be allowed")
	}
}

func TestSortRateLimiter_EmptyKeyDenied(t *testing.T) {
	limiter := NewSortRateLimiter(time.Minute, 3)
	if limiter.Allow("  ") {
		t.Fatalf("expected blank key to be denied")
	}
}
