// Package notify delivers toast-style notifications. Delivery is fire and
// forget: failures are logged, never returned.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"renttalk-tenant-portal/shared/cachex"
	"renttalk-tenant-portal/shared/logx"
)

type Level string

const (
	LevelLoading Level = "loading"
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notification struct {
	Level    Level     `json:"level"`
	Message  string    `json:"message"`
	TenantID string    `json:"tenant_id,omitempty"`
	Source   string    `json:"source,omitempty"`
	At       time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type Nop struct{}

func (Nop) Notify(context.Context, Notification) {}

type LogNotifier struct {
	Logger logx.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notification) {
	l.Logger.Info(ctx, "notification", n.Message,
		slog.String("level", string(n.Level)),
		slog.String("tenant_id", n.TenantID),
		slog.String("source", n.Source),
	)
}

// RedisNotifier publishes notifications as JSON on a pub/sub channel that
// portal clients subscribe to.
type RedisNotifier struct {
	Client  *cachex.Client
	Channel string
	Logger  logx.Logger
}

func (r RedisNotifier) Notify(ctx context.Context, n Notification) {
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return
	}
	if err := r.Client.Publish(ctx, r.Channel, payload); err != nil {
		r.Logger.Warn(ctx, "notification_publish_failed", "notification publish failed",
			slog.String("channel", r.Channel),
			slog.String("error", err.Error()),
		)
	}
}

type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, x := range m {
		if x != nil {
			x.Notify(ctx, n)
		}
	}
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu  sync.Mutex
	all []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	r.all = append(r.all, n)
	r.mu.Unlock()
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.all))
	copy(out, r.all)
	return out
}
