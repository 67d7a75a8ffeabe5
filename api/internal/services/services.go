// Package services holds the tenant portal's domain operations on top of
// the generic resource layer.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"renttalk-tenant-portal/api/internal/notify"
	"renttalk-tenant-portal/shared/events"
	"renttalk-tenant-portal/shared/logx"
)

const (
	ResourceMaintenanceRequests = "maintenance_requests"
	ResourceMessages            = "messages"
	ResourcePayments            = "payments"
)

var (
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrValidation        = errors.New("validation failed")
	ErrStore             = errors.New("record store write failed")
)

// storeError wraps a resource StoreErr so callers can match both ErrStore
// and the cause.
func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

// ValidationError carries per-field problems and matches ErrValidation.
type ValidationError struct {
	Problems any
}

func (e *ValidationError) Error() string { return ErrValidation.Error() }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Deps are the side channels every domain service writes to.
type Deps struct {
	Events   events.Publisher
	Notifier notify.Notifier
	Logger   logx.Logger
	Now      func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

func (d Deps) emit(ctx context.Context, aggregateType string, aggregateID string, eventType string, payload any) {
	env, err := events.NewEnvelope(TenantID, aggregateType, aggregateID, eventType, payload)
	if err == nil {
		err = d.Events.Publish(ctx, env)
	}
	if err != nil {
		d.Logger.Warn(ctx, "domain_event_failed", "domain event not published",
			slog.String("event_type", eventType),
			slog.String("aggregate_id", aggregateID),
			slog.String("error", err.Error()),
		)
	}
}

func (d Deps) notify(ctx context.Context, level notify.Level, source string, msg string) {
	d.Notifier.Notify(ctx, notify.Notification{
		Level:    level,
		Message:  msg,
		TenantID: TenantID,
		Source:   source,
		At:       d.Now(),
	})
}

// Portal groups the domain services of one tenant portal.
type Portal struct {
	Maintenance *MaintenanceService
	Messages    *MessageService
	Payments    *PaymentService
	Profiles    *ProfileService
}

// Seed initializes every collection that is still empty. It is called once
// at startup, never implicitly.
func (p *Portal) Seed(ctx context.Context) error {
	var errs []error
	if r := p.Maintenance.res.Seed(ctx, SeedMaintenanceRequests()); r.StoreErr != nil {
		errs = append(errs, r.StoreErr)
	}
	if r := p.Messages.res.Seed(ctx, SeedMessages()); r.StoreErr != nil {
		errs = append(errs, r.StoreErr)
	}
	if r := p.Payments.res.Seed(ctx, SeedPayments()); r.StoreErr != nil {
		errs = append(errs, r.StoreErr)
	}
	if err := p.Profiles.Seed(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
