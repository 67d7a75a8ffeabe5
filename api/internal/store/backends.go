package store

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"renttalk-tenant-portal/shared/cachex"
	"renttalk-tenant-portal/shared/dbx"
)

type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (b *MemoryBackend) Read(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (b *MemoryBackend) Write(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	b.mu.Lock()
	b.data[key] = v
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Ping(context.Context) error { return nil }

// RedisBackend keeps each collection as one string value.
type RedisBackend struct {
	Client *cachex.Client
}

func (b RedisBackend) Read(ctx context.Context, key string) ([]byte, bool, error) {
	return b.Client.GetRaw(ctx, key)
}

func (b RedisBackend) Write(ctx context.Context, key string, value []byte) error {
	return b.Client.SetRaw(ctx, key, value, 0)
}

func (b RedisBackend) Ping(ctx context.Context) error {
	return b.Client.Ping(ctx)
}

const (
	selectCollectionSQL = `SELECT value::text FROM record_collections WHERE key = $1`
	upsertCollectionSQL = `
INSERT INTO record_collections (key, value, updated_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
)

// PostgresBackend keeps each collection as one JSONB row.
type PostgresBackend struct {
	Pool *pgxpool.Pool
}

func (b PostgresBackend) Read(ctx context.Context, key string) ([]byte, bool, error) {
	if b.Pool == nil {
		return nil, false, errors.New("db pool is nil")
	}
	var value string
	err := b.Pool.QueryRow(ctx, selectCollectionSQL, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(value), true, nil
}

func (b PostgresBackend) Write(ctx context.Context, key string, value []byte) error {
	if b.Pool == nil {
		return errors.New("db pool is nil")
	}
	_, err := b.Pool.Exec(ctx, upsertCollectionSQL, key, string(value))
	return err
}

func (b PostgresBackend) Ping(ctx context.Context) error {
	return dbx.Ping(ctx, b.Pool)
}
