package store

import (
	"context"
	"encoding/json"
	"log/slog"

	"renttalk-tenant-portal/shared/logx"
	"renttalk-tenant-portal/shared/metricsx"
)

// Document persists a single JSON object under one key, with the same
// self-healing load as Store.
type Document[T any] struct {
	name    string
	key     string
	backend Backend
	log     logx.Logger
}

func NewDocument[T any](name string, backend Backend, log logx.Logger) *Document[T] {
	return &Document[T]{name: name, key: Key(name), backend: backend, log: log}
}

// Load returns the stored value. Missing, unreadable or unparsable values
// report false.
func (d *Document[T]) Load(ctx context.Context) (T, bool) {
	var out T
	raw, ok, err := d.backend.Read(ctx, d.key)
	if err != nil {
		metricsx.IncStoreError(d.name, "read")
		d.log.Warn(ctx, "store_read_failed", "document read failed",
			slog.String("key", d.key),
			slog.String("error", err.Error()),
		)
		return out, false
	}
	if !ok || len(raw) == 0 {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		metricsx.IncStoreError(d.name, "decode")
		var zero T
		return zero, false
	}
	return out, true
}

func (d *Document[T]) Save(ctx context.Context, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := d.backend.Write(ctx, d.key, raw); err != nil {
		metricsx.IncStoreError(d.name, "write")
		return err
	}
	return nil
}

// SaveIfAbsent writes v only when nothing parsable is stored yet.
func (d *Document[T]) SaveIfAbsent(ctx context.Context, v T) (bool, error) {
	if _, ok := d.Load(ctx); ok {
		return false, nil
	}
	return true, d.Save(ctx, v)
}
