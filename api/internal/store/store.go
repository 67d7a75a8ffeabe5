// Package store persists one JSON array of records per resource type under
// a fixed key. Loads self-heal: a missing or unparsable value reads as an
// empty collection.
package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"renttalk-tenant-portal/shared/logx"
	"renttalk-tenant-portal/shared/metricsx"
)

const keyPrefix = "renttalk_"

// Key is the storage key of a resource type.
func Key(resource string) string {
	return keyPrefix + resource
}

// Backend reads and writes whole collections as raw JSON text.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, bool, error)
	Write(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
}

// Locker serializes load-modify-save cycles on one key.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type Store[T any] struct {
	resource string
	key      string
	backend  Backend
	locker   Locker
	log      logx.Logger
}

func New[T any](resource string, backend Backend, locker Locker, log logx.Logger) *Store[T] {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Store[T]{
		resource: resource,
		key:      Key(resource),
		backend:  backend,
		locker:   locker,
		log:      log.With(slog.String("resource", resource)),
	}
}

func (s *Store[T]) Resource() string { return s.resource }

func (s *Store[T]) Key() string { return s.key }

// Load returns every stored record. Read failures are logged and yield an
// empty collection.
func (s *Store[T]) Load(ctx context.Context) []T {
	records, err := s.read(ctx)
	if err != nil {
		s.log.Warn(ctx, "store_read_failed", "record store read failed",
			slog.String("key", s.key),
			slog.String("error_code", "STORE_READ_FAILED"),
			slog.String("error", err.Error()),
		)
		return []T{}
	}
	return records
}

// Save overwrites the whole collection with one write.
func (s *Store[T]) Save(ctx context.Context, records []T) error {
	if records == nil {
		records = []T{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		metricsx.IncStoreError(s.resource, "encode")
		return err
	}
	if err := s.backend.Write(ctx, s.key, raw); err != nil {
		metricsx.IncStoreError(s.resource, "write")
		return err
	}
	return nil
}

// Mutate runs load, fn and save under the key's lock. Nothing is written
// when fn reports no change. A failed read aborts before fn runs, so a
// backend outage never overwrites stored data with a partial view.
func (s *Store[T]) Mutate(ctx context.Context, fn func(records []T) ([]T, bool)) error {
	start := time.Now()
	unlock, err := s.locker.Lock(ctx, s.key)
	if err != nil {
		metricsx.IncStoreError(s.resource, "lock")
		return err
	}
	defer unlock()
	metricsx.ObserveLockWait(s.resource, time.Since(start))

	records, err := s.read(ctx)
	if err != nil {
		return err
	}
	next, changed := fn(records)
	if !changed {
		return nil
	}
	return s.Save(ctx, next)
}

// SeedIfEmpty writes records only when the collection holds none.
func (s *Store[T]) SeedIfEmpty(ctx context.Context, records []T) (bool, error) {
	seeded := false
	err := s.Mutate(ctx, func(existing []T) ([]T, bool) {
		if len(existing) > 0 {
			return existing, false
		}
		seeded = true
		out := make([]T, len(records))
		copy(out, records)
		return out, true
	})
	if err != nil {
		return false, err
	}
	return seeded, nil
}

func (s *Store[T]) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

func (s *Store[T]) read(ctx context.Context) ([]T, error) {
	raw, ok, err := s.backend.Read(ctx, s.key)
	if err != nil {
		metricsx.IncStoreError(s.resource, "read")
		return nil, err
	}
	if !ok || len(raw) == 0 {
		return []T{}, nil
	}
	var records []T
	if err := json.Unmarshal(raw, &records); err != nil {
		metricsx.IncStoreError(s.resource, "decode")
		s.log.Warn(ctx, "store_decode_failed", "stored collection unparsable, treating as empty",
			slog.String("key", s.key),
			slog.String("error_code", "STORE_DECODE_FAILED"),
			slog.String("error", err.Error()),
		)
		return []T{}, nil
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}
