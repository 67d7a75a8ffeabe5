package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"renttalk-tenant-portal/shared/cachex"
	"renttalk-tenant-portal/shared/config"
	"renttalk-tenant-portal/shared/dbx"
	"renttalk-tenant-portal/shared/logx"
)

// Handle bundles the configured backend and locker with their shutdown.
type Handle struct {
	Backend Backend
	Locker  Locker
	Redis   *cachex.Client
	closers []func()
}

func (h *Handle) Close() {
	for i := len(h.closers) - 1; i >= 0; i-- {
		h.closers[i]()
	}
}

// Open builds the backend named by STORE_DRIVER and the locker named by
// STORE_LOCK.
func Open(ctx context.Context, cfg config.Config, log logx.Logger) (*Handle, error) {
	h := &Handle{}

	if cfg.StoreDriver == config.StoreDriverRedis || cfg.StoreLock == config.StoreLockRedis {
		client, err := cachex.New(cfg)
		if err != nil {
			return nil, err
		}
		h.Redis = client
		h.closers = append(h.closers, func() { _ = client.Close() })
	}

	switch cfg.StoreDriver {
	case config.StoreDriverRedis:
		h.Backend = RedisBackend{Client: h.Redis}
	case config.StoreDriverPostgres:
		pool, err := dbx.NewPool(ctx, cfg)
		if err != nil {
			h.Close()
			return nil, err
		}
		h.closers = append(h.closers, pool.Close)
		if err := dbx.Migrate(ctx, pool); err != nil {
			h.Close()
			return nil, fmt.Errorf("migrate record store: %w", err)
		}
		h.Backend = PostgresBackend{Pool: pool}
	case config.StoreDriverMemory, "":
		h.Backend = NewMemoryBackend()
	default:
		return nil, errors.New("unknown store driver: " + cfg.StoreDriver)
	}

	if cfg.StoreLock == config.StoreLockRedis {
		h.Locker = RedisLocker{
			Client: h.Redis.Client(),
			TTL:    time.Duration(cfg.StoreLockTTLMS) * time.Millisecond,
			Log:    log,
		}
	} else {
		h.Locker = NewLocalLocker()
	}
	return h, nil
}
