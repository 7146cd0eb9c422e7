package calls

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, limit int, ttl time.Duration) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	l, err := NewRedisLimiter(rdb, limit, ttl)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	return l, mr
}

func TestNoopLimiterAlwaysAcquires(t *testing.T) {
	var l NoopLimiter
	for i := 0; i < 3; i++ {
		ok, err := l.Acquire(context.Background(), "lead-1")
		if err != nil || !ok {
			t.Fatalf("expected acquire, got %v %v", ok, err)
		}
	}
	if err := l.Release(context.Background(), "lead-1"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestNewRedisLimiterValidates(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()

	if _, err := NewRedisLimiter(nil, 1, time.Minute); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := NewRedisLimiter(rdb, 0, time.Minute); err == nil {
		t.Fatalf("expected error for zero limit")
	}
	if _, err := NewRedisLimiter(rdb, 1, 0); err == nil {
		t.Fatalf("expected error for zero ttl")
	}
	l, err := NewRedisLimiter(rdb, 2, time.Minute)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got := l.key("lead-9"); got != "comms:calls:inflight:lead:lead-9" {
		t.Fatalf("unexpected key %q", got)
	}
	if _, err := l.Acquire(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty lead id")
	}
}

func TestRedisLimiter_CapsPerLead(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, 2, time.Minute)

	for i := 0; i < 2; i++ {
		ok, err := l.Acquire(ctx, "lead-1")
		if err != nil || !ok {
			t.Fatalf("acquire %d: expected ok, got %v %v", i, ok, err)
		}
	}
	ok, err := l.Acquire(ctx, "lead-1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ok {
		t.Fatalf("expected third acquire to be rejected")
	}
	if got, _ := mr.Get(l.key("lead-1")); got != "2" {
		t.Fatalf("rejected acquire must not leave the counter raised, got %q", got)
	}
	if ttl := mr.TTL(l.key("lead-1")); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected ttl within a minute, got %v", ttl)
	}

	// Other leads are independent.
	if ok, err := l.Acquire(ctx, "lead-2"); err != nil || !ok {
		t.Fatalf("expected other lead to acquire, got %v %v", ok, err)
	}
}

func TestRedisLimiter_ReleaseFreesSlot(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, 1, time.Minute)

	if ok, _ := l.Acquire(ctx, "lead-1"); !ok {
		t.Fatalf("expected acquire")
	}
	if ok, _ := l.Acquire(ctx, "lead-1"); ok {
		t.Fatalf("expected cap to hold")
	}
	if err := l.Release(ctx, "lead-1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if mr.Exists(l.key("lead-1")) {
		t.Fatalf("expected counter to be deleted at zero")
	}
	// Releasing an absent counter is a no-op, never negative.
	if err := l.Release(ctx, "lead-1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if mr.Exists(l.key("lead-1")) {
		t.Fatalf("release must not recreate the counter")
	}
	if ok, _ := l.Acquire(ctx, "lead-1"); !ok {
		t.Fatalf("expected acquire after release")
	}
}

func TestRedisLimiter_SlotExpires(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLimiter(t, 1, time.Minute)

	if ok, _ := l.Acquire(ctx, "lead-1"); !ok {
		t.Fatalf("expected acquire")
	}
	mr.FastForward(2 * time.Minute)

	if ok, err := l.Acquire(ctx, "lead-1"); err != nil || !ok {
		t.Fatalf("expected expired slot to be reclaimed, got %v %v", ok, err)
	}
}

func TestRedisLimiter_ReleaseRequiresLead(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Minute)
	if err := l.Release(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty lead id")
	}
}
