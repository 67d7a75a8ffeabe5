// Package fetch wraps one zero-argument call with loading/error/data state.
package fetch

import (
	"context"
	"sync"
	"time"

	"renttalk-tenant-portal/api/internal/notify"
)

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateFailed  State = "failed"
)

const defaultErrorMessage = "An error occurred"

type Options[T any] struct {
	AutoFetch      bool
	Notifier       notify.Notifier
	LoadingMessage string
	SuccessMessage string
	ErrorMessage   string
	OnSuccess      func(T)
	OnError        func(error)
}

type Snapshot[T any] struct {
	State State
	Data  T
	Err   error
}

// Fetcher runs op on demand. There is no retry, and a running call is never
// cancelled by the fetcher itself.
type Fetcher[T any] struct {
	op   func(ctx context.Context) (T, error)
	opts Options[T]

	mu    sync.Mutex
	state State
	data  T
	err   error
}

func New[T any](op func(ctx context.Context) (T, error), opts Options[T]) *Fetcher[T] {
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	return &Fetcher[T]{op: op, opts: opts, state: StateIdle}
}

// Mount executes once when AutoFetch is set and reports the snapshot.
func (f *Fetcher[T]) Mount(ctx context.Context) Snapshot[T] {
	if f.opts.AutoFetch {
		_, _ = f.Execute(ctx)
	}
	return f.Snapshot()
}

func (f *Fetcher[T]) Execute(ctx context.Context) (T, error) {
	f.mu.Lock()
	f.state = StateLoading
	f.mu.Unlock()
	f.toast(ctx, notify.LevelLoading, f.opts.LoadingMessage)

	v, err := f.op(ctx)

	f.mu.Lock()
	if err != nil {
		f.state = StateFailed
		f.err = err
	} else {
		f.state = StateSuccess
		f.data = v
		f.err = nil
	}
	f.mu.Unlock()

	if err != nil {
		msg := f.opts.ErrorMessage
		if msg == "" {
			msg = err.Error()
		}
		if msg == "" {
			msg = defaultErrorMessage
		}
		f.toast(ctx, notify.LevelError, msg)
		if f.opts.OnError != nil {
			f.opts.OnError(err)
		}
		var zero T
		return zero, err
	}
	f.toast(ctx, notify.LevelSuccess, f.opts.SuccessMessage)
	if f.opts.OnSuccess != nil {
		f.opts.OnSuccess(v)
	}
	return v, nil
}

// Set overwrites the held value without calling op.
func (f *Fetcher[T]) Set(v T) {
	f.mu.Lock()
	f.data = v
	f.mu.Unlock()
}

// Update applies fn to the held value under the fetcher's lock.
func (f *Fetcher[T]) Update(fn func(T) T) {
	f.mu.Lock()
	f.data = fn(f.data)
	f.mu.Unlock()
}

func (f *Fetcher[T]) Snapshot() Snapshot[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Snapshot[T]{State: f.state, Data: f.data, Err: f.err}
}

func (f *Fetcher[T]) toast(ctx context.Context, level notify.Level, msg string) {
	if msg == "" {
		return
	}
	f.opts.Notifier.Notify(ctx, notify.Notification{Level: level, Message: msg, Source: "fetch", At: time.Now().UTC()})
}
