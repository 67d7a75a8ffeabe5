package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"renttalk-tenant-portal/shared/lockx"
	"renttalk-tenant-portal/shared/logx"
)

// LocalLocker holds one single-slot semaphore per key. Waiting honors ctx.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]chan struct{})}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-slot }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RedisLocker shares the write lock between processes using one Redis.
type RedisLocker struct {
	Client *redis.Client
	TTL    time.Duration
	Retry  time.Duration
	Log    logx.Logger
}

func (l RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := lockx.AcquireWait(ctx, l.Client, "lock:"+key, l.TTL, l.Retry)
	if err != nil {
		return nil, err
	}
	return func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := lockx.Release(rctx, l.Client, lock); err != nil {
			l.Log.Warn(rctx, "store_unlock_failed", "record store lock release failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}, nil
}
