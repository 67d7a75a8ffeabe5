// Package resource provides uniform CRUD over one record type. In local
// mode every call sleeps a fixed simulated latency and then works on the
// record store. In remote mode calls go to the portal HTTP API and fall
// back to the record store on any failure except a remote 404.
//
// No operation returns an error. Absorbed failures are reported on Result.
package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"renttalk-tenant-portal/api/internal/models"
	"renttalk-tenant-portal/api/internal/store"
	"renttalk-tenant-portal/shared/config"
	"renttalk-tenant-portal/shared/logx"
	"renttalk-tenant-portal/shared/metricsx"
)

type Source string

const (
	SourceLocal    Source = "local"
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
)

// ErrInvalidPatch matches a StoreErr for a patch that does not fit the
// record type. Nothing was written.
var ErrInvalidPatch = errors.New("invalid patch")

// Result carries an operation's answer plus whatever failed on the way.
// RemoteErr is the remote failure that caused a fallback. StoreErr is a
// local persistence failure, a cancelled wait or an ErrInvalidPatch. A
// failed create reports Found false and no Value.
type Result[V any] struct {
	Value     V
	Found     bool
	Source    Source
	RemoteErr error
	StoreErr  error
}

// Patch holds top-level JSON fields to overwrite on a record.
type Patch map[string]any

// Remote is the HTTP contract served by the portal API.
type Remote interface {
	List(ctx context.Context, resource string, out any) error
	Get(ctx context.Context, resource string, id string, out any) error
	Create(ctx context.Context, resource string, body any, out any) error
	Patch(ctx context.Context, resource string, id string, patch any, out any) error
	Delete(ctx context.Context, resource string, id string) error
	Seed(ctx context.Context, resource string, items any) error
}

type Delays struct {
	GetAll  time.Duration
	GetByID time.Duration
	Create  time.Duration
	Update  time.Duration
	Delete  time.Duration
}

func DefaultDelays() Delays {
	return Delays{
		GetAll:  600 * time.Millisecond,
		GetByID: 400 * time.Millisecond,
		Create:  800 * time.Millisecond,
		Update:  600 * time.Millisecond,
		Delete:  500 * time.Millisecond,
	}
}

// DelaysFor scales the default delays by the configured latency scale.
func DelaysFor(cfg config.Config) Delays {
	d := DefaultDelays()
	return Delays{
		GetAll:  cfg.LatencyFor(d.GetAll),
		GetByID: cfg.LatencyFor(d.GetByID),
		Create:  cfg.LatencyFor(d.Create),
		Update:  cfg.LatencyFor(d.Update),
		Delete:  cfg.LatencyFor(d.Delete),
	}
}

type Options struct {
	Mode   string
	Remote Remote
	Delays Delays
	Logger logx.Logger
	NewID  func() (string, error)
}

type Service[T models.Record[T]] struct {
	resource string
	store    *store.Store[T]
	mode     string
	remote   Remote
	delays   Delays
	log      logx.Logger
	newID    func() (string, error)
	tracer   trace.Tracer
}

func New[T models.Record[T]](st *store.Store[T], opts Options) *Service[T] {
	mode := opts.Mode
	if mode != config.APIModeRemote || opts.Remote == nil {
		mode = config.APIModeLocal
	}
	newID := opts.NewID
	if newID == nil {
		newID = newRecordID
	}
	return &Service[T]{
		resource: st.Resource(),
		store:    st,
		mode:     mode,
		remote:   opts.Remote,
		delays:   opts.Delays,
		log:      opts.Logger.With(slog.String("resource", st.Resource())),
		newID:    newID,
		tracer:   otel.Tracer("resource"),
	}
}

func (s *Service[T]) Resource() string { return s.resource }

func (s *Service[T]) Mode() string { return s.mode }

func (s *Service[T]) Store() *store.Store[T] { return s.store }

func (s *Service[T]) remoteMode() bool { return s.mode == config.APIModeRemote }

func (s *Service[T]) GetAll(ctx context.Context) (res Result[[]T]) {
	ctx, done := s.begin(ctx, "get_all", "")
	defer func() { done(res.Source) }()

	if s.remoteMode() {
		var out []T
		err := s.remote.List(ctx, s.resource, &out)
		if err == nil {
			if out == nil {
				out = []T{}
			}
			return Result[[]T]{Value: out, Found: true, Source: SourceRemote}
		}
		s.fallback(ctx, "get_all", err)
		return Result[[]T]{Value: s.store.Load(ctx), Found: true, Source: SourceFallback, RemoteErr: err}
	}

	if err := sleep(ctx, s.delays.GetAll); err != nil {
		return Result[[]T]{Value: []T{}, Source: SourceLocal, StoreErr: err}
	}
	return Result[[]T]{Value: s.store.Load(ctx), Found: true, Source: SourceLocal}
}

func (s *Service[T]) GetByID(ctx context.Context, id string) (res Result[T]) {
	ctx, done := s.begin(ctx, "get_by_id", id)
	defer func() { done(res.Source) }()

	if s.remoteMode() {
		var out T
		err := s.remote.Get(ctx, s.resource, id, &out)
		if err == nil {
			return Result[T]{Value: out, Found: true, Source: SourceRemote}
		}
		if isNotFound(err) {
			return Result[T]{Source: SourceRemote}
		}
		s.fallback(ctx, "get_by_id", err)
		res = s.findLocal(ctx, id)
		res.Source, res.RemoteErr = SourceFallback, err
		return res
	}

	if err := sleep(ctx, s.delays.GetByID); err != nil {
		return Result[T]{Source: SourceLocal, StoreErr: err}
	}
	return s.findLocal(ctx, id)
}

// Create assigns a fresh id and appends the record. Any id already set on
// the input is replaced.
func (s *Service[T]) Create(ctx context.Context, record T) (res Result[T]) {
	ctx, done := s.begin(ctx, "create", "")
	defer func() { done(res.Source) }()

	if s.remoteMode() {
		var out T
		err := s.remote.Create(ctx, s.resource, withoutID(record), &out)
		if err == nil {
			return Result[T]{Value: out, Found: true, Source: SourceRemote}
		}
		s.fallback(ctx, "create", err)
		res = s.createLocal(ctx, record)
		res.Source, res.RemoteErr = SourceFallback, err
		return res
	}

	if err := sleep(ctx, s.delays.Create); err != nil {
		return Result[T]{Source: SourceLocal, StoreErr: err}
	}
	return s.createLocal(ctx, record)
}

// Update shallow-merges patch into the stored record. The id is never
// patched.
func (s *Service[T]) Update(ctx context.Context, id string, patch Patch) (res Result[T]) {
	ctx, done := s.begin(ctx, "update", id)
	defer func() { done(res.Source) }()

	if s.remoteMode() {
		var out T
		err := s.remote.Patch(ctx, s.resource, id, patch, &out)
		if err == nil {
			return Result[T]{Value: out, Found: true, Source: SourceRemote}
		}
		if isNotFound(err) {
			return Result[T]{Source: SourceRemote}
		}
		if isBadRequest(err) {
			return Result[T]{Found: true, Source: SourceRemote, StoreErr: fmt.Errorf("%w: %w", ErrInvalidPatch, err)}
		}
		s.fallback(ctx, "update", err)
		res = s.updateLocal(ctx, id, patch)
		res.Source, res.RemoteErr = SourceFallback, err
		return res
	}

	if err := sleep(ctx, s.delays.Update); err != nil {
		return Result[T]{Source: SourceLocal, StoreErr: err}
	}
	return s.updateLocal(ctx, id, patch)
}

// Modify reads the record, applies fn and writes the result. Locally the
// read and the write happen under one store lock so concurrent modifiers
// never drop each other's changes. fn returning false leaves the record
// as it is.
func (s *Service[T]) Modify(ctx context.Context, id string, fn func(current T) (T, bool)) (res Result[T]) {
	ctx, done := s.begin(ctx, "modify", id)
	defer func() { done(res.Source) }()

	if s.remoteMode() {
		var current T
		err := s.remote.Get(ctx, s.resource, id, &current)
		if err == nil {
			next, changed := fn(current)
			if !changed {
				return Result[T]{Value: current, Found: true, Source: SourceRemote}
			}
			patch, perr := toPatch(next)
			if perr != nil {
				return Result[T]{Value: current, Found: true, Source: SourceRemote, StoreErr: perr}
			}
			var out T
			err = s.remote.Patch(ctx, s.resource, id, patch, &out)
			if err == nil {
				return Result[T]{Value: out, Found: true, Source: SourceRemote}
			}
		}
		if isNotFound(err) {
			return Result[T]{Source: SourceRemote}
		}
		s.fallback(ctx, "modify", err)
		res = s.modifyLocal(ctx, id, fn)
		res.Source, res.RemoteErr = SourceFallback, err
		return res
	}

	if err := sleep(ctx, s.delays.GetByID+s.delays.Update); err != nil {
		return Result[T]{Source: SourceLocal, StoreErr: err}
	}
	return s.modifyLocal(ctx, id, fn)
}

func (s *Service[T]) Delete(ctx context.Context, id string) (res Result[bool]) {
	ctx, done := s.begin(ctx, "delete", id)
	defer func() { done(res.Source) }()

	if s.remoteMode() {
		err := s.remote.Delete(ctx, s.resource, id)
		if err == nil {
			return Result[bool]{Value: true, Found: true, Source: SourceRemote}
		}
		if isNotFound(err) {
			return Result[bool]{Value: false, Source: SourceRemote}
		}
		s.fallback(ctx, "delete", err)
		res = s.deleteLocal(ctx, id)
		res.Source, res.RemoteErr = SourceFallback, err
		return res
	}

	if err := sleep(ctx, s.delays.Delete); err != nil {
		return Result[bool]{Source: SourceLocal, StoreErr: err}
	}
	return s.deleteLocal(ctx, id)
}

// Seed initializes an empty collection with records. Value reports
// whether anything was written.
func (s *Service[T]) Seed(ctx context.Context, records []T) (res Result[bool]) {
	existing := s.GetAll(ctx)
	if existing.StoreErr != nil {
		return Result[bool]{Source: existing.Source, StoreErr: existing.StoreErr}
	}
	if len(existing.Value) > 0 {
		return Result[bool]{Value: false, Found: true, Source: existing.Source, RemoteErr: existing.RemoteErr}
	}

	ctx, done := s.begin(ctx, "seed", "")
	defer func() { done(res.Source) }()

	if s.remoteMode() {
		err := s.remote.Seed(ctx, s.resource, records)
		if err == nil {
			return Result[bool]{Value: true, Found: true, Source: SourceRemote}
		}
		if isStatus(err) {
			s.log.Warn(ctx, "seed_bulk_rejected", "bulk seed rejected, creating records one by one",
				slog.String("error", err.Error()),
			)
			for _, r := range records {
				s.Create(ctx, r)
			}
			return Result[bool]{Value: true, Found: true, Source: SourceRemote, RemoteErr: err}
		}
		s.fallback(ctx, "seed", err)
		seeded, serr := s.store.SeedIfEmpty(ctx, records)
		return Result[bool]{Value: seeded, Found: true, Source: SourceFallback, RemoteErr: err, StoreErr: s.storeFailed(ctx, "seed", serr)}
	}

	seeded, err := s.store.SeedIfEmpty(ctx, records)
	return Result[bool]{Value: seeded, Found: true, Source: SourceLocal, StoreErr: s.storeFailed(ctx, "seed", err)}
}

func (s *Service[T]) findLocal(ctx context.Context, id string) Result[T] {
	for _, r := range s.store.Load(ctx) {
		if r.RecordID() == id {
			return Result[T]{Value: r, Found: true, Source: SourceLocal}
		}
	}
	return Result[T]{Source: SourceLocal}
}

func (s *Service[T]) createLocal(ctx context.Context, record T) Result[T] {
	id, err := s.newID()
	if err != nil {
		return Result[T]{Source: SourceLocal, StoreErr: s.storeFailed(ctx, "create", err)}
	}
	created := record.WithRecordID(id)
	err = s.store.Mutate(ctx, func(records []T) ([]T, bool) {
		return append(records, created), true
	})
	if err != nil {
		return Result[T]{Source: SourceLocal, StoreErr: s.storeFailed(ctx, "create", err)}
	}
	return Result[T]{Value: created, Found: true, Source: SourceLocal}
}

func (s *Service[T]) updateLocal(ctx context.Context, id string, patch Patch) Result[T] {
	var patchErr error
	res := s.modifyLocal(ctx, id, func(current T) (T, bool) {
		merged, err := merge(current, patch)
		if err != nil {
			patchErr = err
			return current, false
		}
		return merged, true
	})
	if patchErr != nil {
		s.log.Warn(ctx, "patch_rejected", "patch could not be applied",
			slog.String("id", id),
			slog.String("error_code", "INVALID_ARGUMENT"),
			slog.String("error", patchErr.Error()),
		)
		res.StoreErr = fmt.Errorf("%w: %w", ErrInvalidPatch, patchErr)
	}
	return res
}

func (s *Service[T]) modifyLocal(ctx context.Context, id string, fn func(T) (T, bool)) Result[T] {
	var out T
	found := false
	err := s.store.Mutate(ctx, func(records []T) ([]T, bool) {
		for i, r := range records {
			if r.RecordID() != id {
				continue
			}
			found = true
			next, changed := fn(r)
			if !changed {
				out = r
				return records, false
			}
			out = next.WithRecordID(id)
			records[i] = out
			return records, true
		}
		return records, false
	})
	return Result[T]{Value: out, Found: found, Source: SourceLocal, StoreErr: s.storeFailed(ctx, "update", err)}
}

func (s *Service[T]) deleteLocal(ctx context.Context, id string) Result[bool] {
	removed := false
	err := s.store.Mutate(ctx, func(records []T) ([]T, bool) {
		kept := records[:0]
		for _, r := range records {
			if r.RecordID() == id {
				removed = true
				continue
			}
			kept = append(kept, r)
		}
		return kept, removed
	})
	return Result[bool]{Value: removed, Found: removed, Source: SourceLocal, StoreErr: s.storeFailed(ctx, "delete", err)}
}

func (s *Service[T]) begin(ctx context.Context, op string, id string) (context.Context, func(Source)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "resource."+op, trace.WithAttributes(
		attribute.String("resource.type", s.resource),
		attribute.String("resource.mode", s.mode),
	))
	if id != "" {
		span.SetAttributes(attribute.String("resource.id", id))
	}
	return ctx, func(src Source) {
		span.SetAttributes(attribute.String("resource.source", string(src)))
		span.End()
		metricsx.IncResourceOp(s.resource, op, string(src))
		metricsx.ObserveResourceLatency(s.resource, op, time.Since(start))
	}
}

func (s *Service[T]) fallback(ctx context.Context, op string, err error) {
	metricsx.IncRemoteFallback(s.resource, op)
	s.log.Warn(ctx, "remote_fallback", "remote call failed, serving from local store",
		slog.String("op", op),
		slog.String("error_code", "REMOTE_UNAVAILABLE"),
		slog.String("error", err.Error()),
	)
}

func (s *Service[T]) storeFailed(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	s.log.Error(ctx, "store_write_failed", "record store write failed",
		slog.String("op", op),
		slog.String("error_code", "STORE_WRITE_FAILED"),
		slog.String("error", err.Error()),
	)
	return err
}

func newRecordID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// withoutID encodes record with its id field dropped, the shape the
// remote create endpoint expects.
func withoutID[T models.Record[T]](record T) any {
	m, err := toPatch(record)
	if err != nil {
		return record
	}
	delete(m, "id")
	return m
}

func toPatch(v any) (Patch, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m Patch
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
