package workflow

import "testing"

func TestCanTransitionPayment(t *testing.T) {
	if !CanTransitionPayment(PaymentStatusDue, PaymentStatusPaid) {
		t.Fatalf("expected due -> paid to be allowed")
	}
	if !CanTransitionPayment(PaymentStatusOverdue, PaymentStatusPaid) {
		t.Fatalf("expected overdue -> paid to be allowed")
	}
	if CanTransitionPayment(PaymentStatusPaid, PaymentStatusDue) {
		t.Fatalf("expected paid -> due to be blocked")
	}
	if CanTransitionPayment(PaymentStatusOverdue, PaymentStatusDue) {
		t.Fatalf("expected overdue -> due to be blocked")
	}
}

func TestEventTypeForPaymentTransition(t *testing.T) {
	if ev := EventTypeForPaymentTransition(PaymentStatusDue, PaymentStatusPaid); ev != EventPaymentSettled {
		t.Fatalf("expected %q, got %q", EventPaymentSettled, ev)
	}
	if ev := EventTypeForPaymentTransition(PaymentStatusPaid, PaymentStatusPaid); ev != "" {
		t.Fatalf("expected no event for paid -> paid, got %q", ev)
	}
}

func TestRequestStatuses(t *testing.T) {
	if !IsRequestStatus(" In_Progress ") {
		t.Fatalf("expected normalized status to be accepted")
	}
	if IsRequestStatus("scheduled") {
		t.Fatalf("expected unknown status to be rejected")
	}
	if IsActiveRequestStatus(RequestStatusCompleted) {
		t.Fatalf("completed must not be active")
	}
}

func TestIsIssueCategory(t *testing.T) {
	if !IsIssueCategory("pest control") {
		t.Fatalf("expected case-insensitive category match")
	}
	if IsIssueCategory("Gardening") {
		t.Fatalf("expected unknown category to be rejected")
	}
}
