package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLocalOrderLock(t *testing.T) {
	lock := NewLocalOrderLock()
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "1001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := lock.Acquire(ctx, "1001"); !errors.Is(err, ErrOrderInFlight) {
		t.Fatalf("err = %v, want ErrOrderInFlight", err)
	}

	other, err := lock.Acquire(ctx, "1002")
	if err != nil {
		t.Fatalf("other order: %v", err)
	}
	other()

	release()
	release() // idempotent

	again, err := lock.Acquire(ctx, "1001")
	if err != nil {
		t.Fatalf("after release: %v", err)
	}
	again()
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisOrderLock(t *testing.T) {
	mr, client := newTestRedis(t)
	lock := NewRedisOrderLock(client)
	ctx := context.Background()

	release, err := lock.Acquire(ctx, "1001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ttl := mr.TTL("order_lock:1001"); ttl != orderLockTTL {
		t.Fatalf("ttl = %v, want %v", ttl, orderLockTTL)
	}

	if _, err := lock.Acquire(ctx, "1001"); !errors.Is(err, ErrOrderInFlight) {
		t.Fatalf("err = %v, want ErrOrderInFlight", err)
	}
	other, err := lock.Acquire(ctx, "1002")
	if err != nil {
		t.Fatalf("other order: %v", err)
	}
	other()

	release()
	if mr.Exists("order_lock:1001") {
		t.Fatal("release left the key behind")
	}
	again, err := lock.Acquire(ctx, "1001")
	if err != nil {
		t.Fatalf("after release: %v", err)
	}
	again()
}

func TestRedisOrderLockReleaseAfterExpiry(t *testing.T) {
	mr, client := newTestRedis(t)
	lock := NewRedisOrderLock(client)
	ctx := context.Background()

	stale, err := lock.Acquire(ctx, "1001")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	mr.FastForward(orderLockTTL + time.Second)

	current, err := lock.Acquire(ctx, "1001")
	if err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}

	// the first holder outlived its TTL and must not drop the second holder's lock
	stale()
	if !mr.Exists("order_lock:1001") {
		t.Fatal("stale release deleted a lock it no longer owns")
	}
	if _, err := lock.Acquire(ctx, "1001"); !errors.Is(err, ErrOrderInFlight) {
		t.Fatalf("err = %v, want ErrOrderInFlight", err)
	}

	current()
	if mr.Exists("order_lock:1001") {
		t.Fatal("owner release left the key behind")
	}
}

func TestRedisOrderLockUnavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	lock := NewRedisOrderLock(client)
	mr.SetError("ERR backend unavailable")

	_, err := lock.Acquire(context.Background(), "1001")
	if err == nil || errors.Is(err, ErrOrderInFlight) {
		t.Fatalf("err = %v, want a backend error", err)
	}
}
