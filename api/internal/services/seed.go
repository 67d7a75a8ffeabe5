package services

import (
	"time"

	"renttalk-tenant-portal/api/internal/models"
	"renttalk-tenant-portal/shared/workflow"
)

const (
	TenantID   = "u1"
	LandlordID = "l1"

	defaultRentAmount = 1200
)

func DefaultTenant() models.Profile {
	return models.Profile{
		ID:       TenantID,
		Name:     "Alex Johnson",
		Email:    "alex@example.com",
		Avatar:   "https://i.pravatar.cc/300?img=12",
		Role:     "tenant",
		Property: "Apartment 3B, Maple Residences",
	}
}

func DefaultLandlord() models.Profile {
	return models.Profile{
		ID:     LandlordID,
		Name:   "Morgan Smith",
		Email:  "morgan@propertymanagement.com",
		Avatar: "https://i.pravatar.cc/300?img=8",
		Role:   "landlord",
		Phone:  "(555) 123-4567",
	}
}

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func tenantRef() models.TenantRef {
	return models.TenantRef{ID: TenantID, Name: DefaultTenant().Name}
}

// SeedMaintenanceRequests returns the demo requests. Every timeline ends
// in the request's current status.
func SeedMaintenanceRequests() []models.MaintenanceRequest {
	return []models.MaintenanceRequest{
		{
			ID:          "req1",
			Title:       "Leaking Kitchen Faucet",
			Description: "The kitchen faucet has been leaking for two days. Water is pooling around the base.",
			Category:    "Plumbing",
			Priority:    workflow.PriorityMedium,
			Status:      workflow.RequestStatusInProgress,
			Created:     ts("2023-09-15T14:30:00Z"),
			Updated:     ts("2023-09-16T10:15:00Z"),
			Tenant:      tenantRef(),
			Images: []string{
				"https://images.unsplash.com/photo-1585704032915-c3400ca199e7?w=800&auto=format&fit=crop&q=60",
			},
			Timeline: []models.TimelineEntry{
				{Date: ts("2023-09-15T14:30:00Z"), Status: workflow.RequestStatusPending, Note: "Request submitted by tenant"},
				{Date: ts("2023-09-15T16:45:00Z"), Status: workflow.RequestStatusPending, Note: "Request reviewed by landlord"},
				{Date: ts("2023-09-16T10:15:00Z"), Status: workflow.RequestStatusInProgress, Note: "Plumber scheduled for 9/18"},
			},
		},
		{
			ID:          "req2",
			Title:       "Broken Air Conditioning",
			Description: "The A/C unit is not cooling the apartment. It's running but only blowing warm air.",
			Category:    "HVAC",
			Priority:    workflow.PriorityHigh,
			Status:      workflow.RequestStatusPending,
			Created:     ts("2023-09-14T09:20:00Z"),
			Updated:     ts("2023-09-14T09:20:00Z"),
			Tenant:      tenantRef(),
			Timeline: []models.TimelineEntry{
				{Date: ts("2023-09-14T09:20:00Z"), Status: workflow.RequestStatusPending, Note: "Request submitted by tenant"},
			},
		},
		{
			ID:          "req3",
			Title:       "Light Fixture Replacement",
			Description: "The ceiling light in the dining room needs to be replaced. It flickers and sometimes doesn't turn on.",
			Category:    "Electrical",
			Priority:    workflow.PriorityLow,
			Status:      workflow.RequestStatusCompleted,
			Created:     ts("2023-09-10T11:05:00Z"),
			Updated:     ts("2023-09-13T15:30:00Z"),
			Tenant:      tenantRef(),
			Timeline: []models.TimelineEntry{
				{Date: ts("2023-09-10T11:05:00Z"), Status: workflow.RequestStatusPending, Note: "Request submitted by tenant"},
				{Date: ts("2023-09-10T14:20:00Z"), Status: workflow.RequestStatusPending, Note: "Request reviewed by landlord"},
				{Date: ts("2023-09-12T09:00:00Z"), Status: workflow.RequestStatusInProgress, Note: "Electrician scheduled for 9/13"},
				{Date: ts("2023-09-13T15:30:00Z"), Status: workflow.RequestStatusCompleted, Note: "Light fixture replaced and tested"},
			},
		},
	}
}

// SeedMessages is empty: the conversation starts with the tenant.
func SeedMessages() []models.Message {
	return []models.Message{}
}

func SeedPayments() []models.Payment {
	paid1 := ts("2023-08-29T10:15:00Z")
	paid3 := ts("2023-09-15T09:30:00Z")
	return []models.Payment{
		{
			ID:       "pay1",
			Tenant:   TenantID,
			Amount:   models.NewAmount(1200),
			DueDate:  ts("2023-09-01T00:00:00Z"),
			PaidDate: &paid1,
			Status:   workflow.PaymentStatusPaid,
			Type:     workflow.PaymentTypeRent,
		},
		{
			ID:      "pay2",
			Tenant:  TenantID,
			Amount:  models.NewAmount(1200),
			DueDate: ts("2023-10-01T00:00:00Z"),
			Status:  workflow.PaymentStatusDue,
			Type:    workflow.PaymentTypeRent,
		},
		{
			ID:       "pay3",
			Tenant:   TenantID,
			Amount:   models.NewAmount(50),
			DueDate:  ts("2023-09-15T00:00:00Z"),
			PaidDate: &paid3,
			Status:   workflow.PaymentStatusPaid,
			Type:     workflow.PaymentTypeFee,
		},
	}
}
