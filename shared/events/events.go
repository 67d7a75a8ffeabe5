package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"renttalk-tenant-portal/shared/logx"
	"renttalk-tenant-portal/shared/metricsx"
)

type Envelope struct {
	EventID       uuid.UUID       `json:"event_id"`
	TenantID      string          `json:"tenant_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
}

const (
	AggregateMaintenanceRequest = "maintenance_request"
	AggregateMessage            = "message"
	AggregatePayment            = "payment"
)

func NewEnvelope(tenantID string, aggregateType string, aggregateID string, eventType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       id,
		TenantID:      tenantID,
		OccurredAt:    time.Now().UTC(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       raw,
	}, nil
}

type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

type PublisherFunc func(ctx context.Context, env Envelope) error

func (f PublisherFunc) Publish(ctx context.Context, env Envelope) error { return f(ctx, env) }

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Envelope) error { return nil }

// Multi publishes to every sink and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, env Envelope) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type LogPublisher struct {
	Logger logx.Logger
}

func (p LogPublisher) Publish(ctx context.Context, env Envelope) error {
	p.Logger.Info(ctx, "domain_event", "domain event",
		slog.String("event_id", env.EventID.String()),
		slog.String("event_type", env.EventType),
		slog.String("aggregate_type", env.AggregateType),
		slog.String("aggregate_id", env.AggregateID),
	)
	return nil
}

// Async hands events to the wrapped publisher on a background goroutine,
// detached from the caller's context. Failures are logged and counted.
type Async struct {
	Next    Publisher
	Logger  logx.Logger
	Timeout time.Duration
	Sink    string

	wg sync.WaitGroup
}

func (a *Async) Publish(ctx context.Context, env Envelope) error {
	if a == nil || a.Next == nil {
		return nil
	}
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	base := context.WithoutCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		pctx, cancel := context.WithTimeout(base, timeout)
		defer cancel()
		if err := a.Next.Publish(pctx, env); err != nil {
			metricsx.IncEventPublishFailure(a.Sink)
			a.Logger.Warn(pctx, "domain_event_publish_failed", "domain event publish failed",
				slog.String("event_type", env.EventType),
				slog.String("aggregate_id", env.AggregateID),
				slog.String("error_code", "EVENT_PUBLISH_FAILED"),
				slog.String("error", err.Error()),
			)
		}
	}()
	return nil
}

// Wait blocks until every in-flight publish has returned.
func (a *Async) Wait() {
	if a == nil {
		return
	}
	a.wg.Wait()
}
