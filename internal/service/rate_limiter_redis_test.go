package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type failingRunner struct {
	calls int
}

func (f *failingRunner) Eval(ctx context.Context, _ string, _ []string, _ ...interface{}) *redis.Cmd {
	f.calls++
	cmd := redis.NewCmd(ctx)
	cmd.SetErr(errors.New("connection refused"))
	return cmd
}

func newMiniredisLimiter(t *testing.T, window time.Duration, max int) (*redisRateLimiter, *miniredis.Miniredis, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisRateLimiter(client, zap.NewNop(), window, max).(*redisRateLimiter)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, mr, &now
}

func TestRedisRateLimiter_SlidingWindow(t *testing.T) {
	l, mr, now := newMiniredisLimiter(t, time.Minute, 2)

	if !l.Allow("reset:a@example.com") {
		t.Fatalf("expected first request allowed")
	}
	*now = now.Add(30 * time.Second)
	if !l.Allow(" Reset:A@Example.com ") {
		t.Fatalf("expected second request allowed")
	}
	if l.Allow("reset:a@example.com") {
		t.Fatalf("expected third request denied")
	}
	if !l.Allow("reset:b@example.com") {
		t.Fatalf("expected independent key allowed")
	}

	members, err := mr.ZMembers("ratelimit:reset:a@example.com")
	if err != nil {
		t.Fatalf("zmembers: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected denied request not recorded, got %d entries", len(members))
	}
	if ttl := mr.TTL("ratelimit:reset:a@example.com"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected ttl within window, got %v", ttl)
	}

	// el primer registro sale de la ventana; el segundo sigue dentro
	*now = now.Add(31 * time.Second)
	if !l.Allow("reset:a@example.com") {
		t.Fatalf("expected allow once oldest entry slides out")
	}
	if l.Allow("reset:a@example.com") {
		t.Fatalf("expected deny while window is full again")
	}
}

func TestRedisRateLimiter_EmptyKeyDenied(t *testing.T) {
	runner := &failingRunner{}
	l := &redisRateLimiter{client: runner, logger: zap.NewNop(), window: time.Minute, max: 3, now: time.Now}

	if l.Allow("   ") {
		t.Fatalf("expected empty key denied")
	}
	if runner.calls != 0 {
		t.Fatalf("expected no redis call for empty key")
	}
}

func TestRedisRateLimiter_FailsOpen(t *testing.T) {
	runner := &failingRunner{}
	l := &redisRateLimiter{client: runner, logger: zap.NewNop(), window: time.Minute, max: 1, now: time.Now}

	for i := 0; i < 3; i++ {
		if !l.Allow("verify:a@example.com") {
			t.Fatalf("expected allow while redis is unavailable")
		}
	}
	if runner.calls != 3 {
		t.Fatalf("expected 3 redis calls, got %d", runner.calls)
	}
}

func TestNewRedisRateLimiter_Defaults(t *testing.T) {
	if l := NewRedisRateLimiter(nil, nil, time.Minute, 3); l != nil {
		t.Fatalf("expected nil limiter for nil client")
	}

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })
	l := NewRedisRateLimiter(client, nil, 0, 0).(*redisRateLimiter)
	if l.window != time.Minute || l.max != 1 || l.logger == nil {
		t.Fatalf("unexpected defaults: %+v", l)
	}
}
