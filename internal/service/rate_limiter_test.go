package service

import (
	"testing"
	"time"
)

func TestMemoryRateLimiter_Window(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(10*time.Minute, 3).(*memoryRateLimiter)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Fatalf("expected request %d allowed", i+1)
		}
	}
	if l.Allow("k") {
		t.Fatalf("expected fourth request denied")
	}
	if !l.Allow("other") {
		t.Fatalf("expected other key allowed")
	}

	now = now.Add(10*time.Minute + time.Second)
	if !l.Allow("k") {
		t.Fatalf("expected allow after window slides")
	}
}

func TestMemoryRateLimiter_DropsIdleKeys(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(time.Minute, 1).(*memoryRateLimiter)
	l.now = func() time.Time { return now }

	for _, key := range []string{"a", "b", "c"} {
		if !l.Allow(key) {
			t.Fatalf("expected %s allowed", key)
		}
	}
	if len(l.hits) != 3 {
		t.Fatalf("expected 3 tracked keys, got %d", len(l.hits))
	}

	now = now.Add(2 * time.Minute)
	if !l.Allow("d") {
		t.Fatalf("expected d allowed")
	}
	if len(l.hits) != 1 {
		t.Fatalf("expected idle keys dropped, got %v", l.hits)
	}
	if _, ok := l.hits["d"]; !ok {
		t.Fatalf("expected current key kept")
	}
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	l := NewRateLimiter(0, 0).(*memoryRateLimiter)
	if l.max != 1 || l.window != time.Minute {
		t.Fatalf("unexpected defaults: %d %v", l.max, l.window)
	}
}
