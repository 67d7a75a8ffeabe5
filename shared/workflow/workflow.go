package workflow

import "strings"

const (
	RequestStatusPending    = "pending"
	RequestStatusInProgress = "in_progress"
	RequestStatusCompleted  = "completed"
)

const (
	PaymentStatusDue     = "due"
	PaymentStatusOverdue = "overdue"
	PaymentStatusPaid    = "paid"
)

const (
	PaymentTypeRent    = "rent"
	PaymentTypeDeposit = "deposit"
	PaymentTypeFee     = "fee"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

const (
	EventRequestSubmitted     = "maintenance.submitted"
	EventRequestStatusChanged = "maintenance.status_changed"
	EventPaymentSettled       = "payment.settled"
	EventPaymentOverdue       = "payment.overdue"
	EventPaymentScheduled     = "payment.scheduled"
	EventMessageSent          = "message.sent"
	EventMessageReplied       = "message.replied"
	EventMessageRead          = "message.read"
)

// Maintenance requests may move between any two statuses; every move is
// recorded on the timeline, so only the target has to be known.
var requestStatuses = map[string]bool{
	RequestStatusPending:    true,
	RequestStatusInProgress: true,
	RequestStatusCompleted:  true,
}

var paymentTransitions = map[string]map[string]string{
	PaymentStatusDue: {
		PaymentStatusPaid:    EventPaymentSettled,
		PaymentStatusOverdue: EventPaymentOverdue,
	},
	PaymentStatusOverdue: {
		PaymentStatusPaid: EventPaymentSettled,
	},
}

func NormalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

func IsRequestStatus(status string) bool {
	return requestStatuses[NormalizeStatus(status)]
}

func IsActiveRequestStatus(status string) bool {
	status = NormalizeStatus(status)
	return status == RequestStatusPending || status == RequestStatusInProgress
}

func CanTransitionPayment(fromStatus string, toStatus string) bool {
	fromStatus = NormalizeStatus(fromStatus)
	toStatus = NormalizeStatus(toStatus)
	next := paymentTransitions[fromStatus]
	if next == nil {
		return false
	}
	_, ok := next[toStatus]
	return ok
}

func EventTypeForPaymentTransition(fromStatus string, toStatus string) string {
	next := paymentTransitions[NormalizeStatus(fromStatus)]
	if next == nil {
		return ""
	}
	return next[NormalizeStatus(toStatus)]
}

func AllRequestStatuses() []string {
	return []string{
		RequestStatusPending,
		RequestStatusInProgress,
		RequestStatusCompleted,
	}
}

func IssueCategories() []string {
	return []string{
		"Plumbing",
		"Electrical",
		"HVAC",
		"Appliance",
		"Structural",
		"Pest Control",
		"Flooring",
		"Other",
	}
}

func IsIssueCategory(category string) bool {
	for _, c := range IssueCategories() {
		if strings.EqualFold(c, strings.TrimSpace(category)) {
			return true
		}
	}
	return false
}
