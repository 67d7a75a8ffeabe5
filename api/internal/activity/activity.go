// Package activity projects consumed domain events into the tenant's
// activity feed: time series points and live notifications.
package activity

import (
	"context"
	"fmt"
	"strings"

	"renttalk-tenant-portal/api/internal/notify"
	"renttalk-tenant-portal/shared/events"
	"renttalk-tenant-portal/shared/mqx"
	"renttalk-tenant-portal/shared/workflow"
)

type Projector struct {
	Points   events.Publisher
	Notifier notify.Notifier
}

// Handle decodes one message value and fans it out. A malformed value is
// returned as an error so the caller can skip it.
func (p Projector) Handle(ctx context.Context, value []byte) (events.Envelope, error) {
	env, err := mqx.DecodeEnvelope(value)
	if err != nil {
		return events.Envelope{}, err
	}
	if env.AggregateID == "" || env.TenantID == "" {
		return env, fmt.Errorf("event %s missing tenant_id/aggregate_id", env.EventID)
	}
	if p.Points != nil {
		if err := p.Points.Publish(ctx, env); err != nil {
			return env, err
		}
	}
	if p.Notifier != nil {
		if n, ok := Describe(env); ok {
			p.Notifier.Notify(ctx, n)
		}
	}
	return env, nil
}

// Describe renders the notification a tenant sees for an event. Events the
// tenant caused themselves produce none.
func Describe(env events.Envelope) (notify.Notification, bool) {
	n := notify.Notification{
		Level:    notify.LevelInfo,
		TenantID: env.TenantID,
		Source:   env.AggregateType,
		At:       env.OccurredAt,
	}
	switch env.EventType {
	case workflow.EventRequestStatusChanged:
		n.Message = "A maintenance request was updated"
	case workflow.EventMessageReplied:
		n.Message = "New message from your landlord"
	case workflow.EventPaymentSettled:
		n.Level = notify.LevelSuccess
		n.Message = "Payment received"
	case workflow.EventPaymentOverdue:
		n.Level = notify.LevelError
		n.Message = "A payment is overdue"
	case workflow.EventPaymentScheduled:
		n.Message = "A new rent payment was scheduled"
	default:
		return notify.Notification{}, false
	}
	if id := strings.TrimSpace(env.AggregateID); id != "" {
		n.Message += " (" + id + ")"
	}
	return n, true
}
