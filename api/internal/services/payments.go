package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"renttalk-tenant-portal/api/internal/models"
	"renttalk-tenant-portal/api/internal/notify"
	"renttalk-tenant-portal/api/internal/resource"
	"renttalk-tenant-portal/shared/events"
	"renttalk-tenant-portal/shared/workflow"
)

type PaymentSummary struct {
	OutstandingTotal models.Amount   `json:"outstandingTotal"`
	PaidTotal        models.Amount   `json:"paidTotal"`
	OverdueCount     int             `json:"overdueCount"`
	NextDue          *models.Payment `json:"nextDue,omitempty"`
}

type PaymentService struct {
	res          *resource.Service[models.Payment]
	deps         Deps
	defaultCount int
}

func NewPaymentService(res *resource.Service[models.Payment], deps Deps, defaultCount int) *PaymentService {
	if defaultCount <= 0 {
		defaultCount = 6
	}
	return &PaymentService{res: res, deps: deps.withDefaults(), defaultCount: defaultCount}
}

func (s *PaymentService) Resource() *resource.Service[models.Payment] { return s.res }

// List returns payments ordered by due date.
func (s *PaymentService) List(ctx context.Context) []models.Payment {
	all := s.res.GetAll(ctx).Value
	sort.SliceStable(all, func(i, j int) bool { return all[i].DueDate.Before(all[j].DueDate) })
	return all
}

// GetUpcomingPayment returns the first stored payment with status due.
func (s *PaymentService) GetUpcomingPayment(ctx context.Context) (models.Payment, bool) {
	for _, p := range s.res.GetAll(ctx).Value {
		if p.Status == workflow.PaymentStatusDue {
			return p, true
		}
	}
	return models.Payment{}, false
}

// MakePayment settles a due or overdue payment. Settling an already paid
// payment changes nothing and returns it as stored.
func (s *PaymentService) MakePayment(ctx context.Context, id string) (models.Payment, bool, error) {
	var transitionErr error
	var from string
	res := s.res.Modify(ctx, id, func(p models.Payment) (models.Payment, bool) {
		from = p.Status
		if p.Status == workflow.PaymentStatusPaid {
			return p, false
		}
		if !workflow.CanTransitionPayment(p.Status, workflow.PaymentStatusPaid) {
			transitionErr = fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, workflow.PaymentStatusPaid)
			return p, false
		}
		now := s.deps.Now()
		p.Status = workflow.PaymentStatusPaid
		p.PaidDate = &now
		return p, true
	})
	if res.StoreErr != nil {
		return models.Payment{}, res.Found, storeError("make payment", res.StoreErr)
	}
	if !res.Found {
		return models.Payment{}, false, nil
	}
	if transitionErr != nil {
		return res.Value, true, transitionErr
	}
	if from != workflow.PaymentStatusPaid {
		s.deps.emit(ctx, events.AggregatePayment, id, workflow.EventTypeForPaymentTransition(from, workflow.PaymentStatusPaid), map[string]any{
			"from":   from,
			"amount": res.Value.Amount,
			"type":   res.Value.Type,
		})
		s.deps.notify(ctx, notify.LevelSuccess, "payments", "Payment of $"+res.Value.Amount.StringFixed(2)+" received")
	}
	return res.Value, true, nil
}

// GenerateFuturePayments creates count monthly rent payments due on the
// first of each month after the latest known due date, or after now when
// there are no payments. count <= 0 uses the configured default. It stops
// at the first store failure and returns what was created before it.
func (s *PaymentService) GenerateFuturePayments(ctx context.Context, count int) ([]models.Payment, error) {
	if count <= 0 {
		count = s.defaultCount
	}
	existing := s.res.GetAll(ctx).Value
	amount := rentAmount(existing)

	last := s.deps.Now()
	if latest, ok := latestDueDate(existing); ok {
		last = latest
	}

	out := make([]models.Payment, 0, count)
	for i := 0; i < count; i++ {
		last = firstOfNextMonth(last)
		res := s.res.Create(ctx, models.Payment{
			Tenant:  TenantID,
			Amount:  amount,
			DueDate: last,
			Status:  workflow.PaymentStatusDue,
			Type:    workflow.PaymentTypeRent,
		})
		if res.StoreErr != nil {
			return out, storeError("generate payments", res.StoreErr)
		}
		created := res.Value
		out = append(out, created)
		s.deps.emit(ctx, events.AggregatePayment, created.ID, workflow.EventPaymentScheduled, map[string]any{
			"dueDate": created.DueDate,
			"amount":  created.Amount,
		})
	}
	return out, nil
}

// MarkOverdue flips due payments whose due date is before now to overdue
// and returns the ones this call flipped. Store failures are joined into
// the error; the remaining payments are still processed.
func (s *PaymentService) MarkOverdue(ctx context.Context, now time.Time) ([]models.Payment, error) {
	var changed []models.Payment
	var errs []error
	for _, p := range s.res.GetAll(ctx).Value {
		if p.Status != workflow.PaymentStatusDue || !p.DueDate.Before(now) {
			continue
		}
		var flipped bool
		res := s.res.Modify(ctx, p.ID, func(cur models.Payment) (models.Payment, bool) {
			flipped = workflow.CanTransitionPayment(cur.Status, workflow.PaymentStatusOverdue) && cur.DueDate.Before(now)
			if !flipped {
				return cur, false
			}
			cur.Status = workflow.PaymentStatusOverdue
			return cur, true
		})
		if res.StoreErr != nil {
			errs = append(errs, storeError("mark overdue "+p.ID, res.StoreErr))
			continue
		}
		if !res.Found || !flipped {
			continue
		}
		changed = append(changed, res.Value)
		s.deps.emit(ctx, events.AggregatePayment, p.ID, workflow.EventPaymentOverdue, map[string]any{
			"dueDate": p.DueDate,
		})
	}
	if len(changed) > 0 {
		s.deps.notify(ctx, notify.LevelError, "payments", fmt.Sprintf("%d payment(s) are overdue", len(changed)))
	}
	return changed, errors.Join(errs...)
}

func (s *PaymentService) Summary(ctx context.Context) PaymentSummary {
	all := s.List(ctx)
	outstanding := decimal.Zero
	paid := decimal.Zero
	sum := PaymentSummary{}
	for i, p := range all {
		switch p.Status {
		case workflow.PaymentStatusPaid:
			paid = paid.Add(p.Amount.Decimal)
		case workflow.PaymentStatusOverdue:
			sum.OverdueCount++
			outstanding = outstanding.Add(p.Amount.Decimal)
		case workflow.PaymentStatusDue:
			outstanding = outstanding.Add(p.Amount.Decimal)
			if sum.NextDue == nil {
				sum.NextDue = &all[i]
			}
		}
	}
	sum.OutstandingTotal = models.AmountFromDecimal(outstanding)
	sum.PaidTotal = models.AmountFromDecimal(paid)
	return sum
}

// rentAmount is the amount of the rent payment with the latest due date.
func rentAmount(payments []models.Payment) models.Amount {
	var latest *models.Payment
	for i := range payments {
		p := &payments[i]
		if p.Type != workflow.PaymentTypeRent {
			continue
		}
		if latest == nil || p.DueDate.After(latest.DueDate) {
			latest = p
		}
	}
	if latest == nil || !latest.Amount.IsPositive() {
		return models.NewAmount(defaultRentAmount)
	}
	return latest.Amount
}

func latestDueDate(payments []models.Payment) (time.Time, bool) {
	var latest time.Time
	for _, p := range payments {
		if p.DueDate.After(latest) {
			latest = p.DueDate
		}
	}
	return latest, !latest.IsZero()
}

func firstOfNextMonth(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
}
