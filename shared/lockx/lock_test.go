package lockx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestAcquireIsExclusive(t *testing.T) {
	ctx := context.Background()
	rdb := newClient(t)

	first, ok, err := Acquire(ctx, rdb, "lock:payments", time.Second)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if _, ok, err := Acquire(ctx, rdb, "lock:payments", time.Second); err != nil || ok {
		t.Fatalf("second acquire should fail: ok=%v err=%v", ok, err)
	}
	if err := Release(ctx, rdb, first); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok, err := Acquire(ctx, rdb, "lock:payments", time.Second); err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
}

func TestAcquireWaitHonorsContext(t *testing.T) {
	rdb := newClient(t)
	if _, ok, err := Acquire(context.Background(), rdb, "lock:messages", time.Minute); err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	if _, err := AcquireWait(ctx, rdb, "lock:messages", time.Minute, 10*time.Millisecond); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestReleaseIgnoresForeignToken(t *testing.T) {
	ctx := context.Background()
	rdb := newClient(t)
	if _, ok, _ := Acquire(ctx, rdb, "lock:x", time.Minute); !ok {
		t.Fatalf("acquire failed")
	}
	if err := Release(ctx, rdb, &Lock{Key: "lock:x", Token: "other"}); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok, _ := Acquire(ctx, rdb, "lock:x", time.Minute); ok {
		t.Fatalf("foreign release must not drop the lock")
	}
}
