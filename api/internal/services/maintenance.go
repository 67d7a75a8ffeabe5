package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"renttalk-tenant-portal/api/internal/models"
	"renttalk-tenant-portal/api/internal/notify"
	"renttalk-tenant-portal/api/internal/resource"
	"renttalk-tenant-portal/shared/events"
	"renttalk-tenant-portal/shared/validatex"
	"renttalk-tenant-portal/shared/workflow"
)

const submittedNote = "Request submitted by tenant"

// NewMaintenanceRequest is what a tenant fills in on the request form.
type NewMaintenanceRequest struct {
	Title       string   `json:"title" validate:"notblank,max=120"`
	Description string   `json:"description" validate:"notblank,max=2000"`
	Category    string   `json:"category" validate:"required,issue_category"`
	Priority    string   `json:"priority" validate:"required,oneof=low medium high"`
	Images      []string `json:"images,omitempty" validate:"omitempty,max=10,dive,url"`
}

type MaintenanceService struct {
	res  *resource.Service[models.MaintenanceRequest]
	deps Deps
}

func NewMaintenanceService(res *resource.Service[models.MaintenanceRequest], deps Deps) *MaintenanceService {
	return &MaintenanceService{res: res, deps: deps.withDefaults()}
}

func (s *MaintenanceService) Resource() *resource.Service[models.MaintenanceRequest] { return s.res }

// List returns every request, newest first.
func (s *MaintenanceService) List(ctx context.Context) []models.MaintenanceRequest {
	all := s.res.GetAll(ctx).Value
	sort.SliceStable(all, func(i, j int) bool { return all[i].Created.After(all[j].Created) })
	return all
}

func (s *MaintenanceService) Get(ctx context.Context, id string) (models.MaintenanceRequest, bool) {
	r := s.res.GetByID(ctx, id)
	return r.Value, r.Found
}

// GetActiveRequests returns requests that are pending or in progress.
func (s *MaintenanceService) GetActiveRequests(ctx context.Context) []models.MaintenanceRequest {
	all := s.res.GetAll(ctx).Value
	active := make([]models.MaintenanceRequest, 0, len(all))
	for _, r := range all {
		if workflow.IsActiveRequestStatus(r.Status) {
			active = append(active, r)
		}
	}
	return active
}

// Submit files a new pending request for the current tenant.
func (s *MaintenanceService) Submit(ctx context.Context, in NewMaintenanceRequest) (models.MaintenanceRequest, error) {
	if err := validatex.Struct(in); err != nil {
		return models.MaintenanceRequest{}, &ValidationError{Problems: validatex.Problems(err)}
	}
	now := s.deps.Now()
	req := models.MaintenanceRequest{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Category:    canonicalCategory(in.Category),
		Priority:    in.Priority,
		Status:      workflow.RequestStatusPending,
		Created:     now,
		Updated:     now,
		Tenant:      tenantRef(),
		Images:      in.Images,
		Timeline: []models.TimelineEntry{
			{Date: now, Status: workflow.RequestStatusPending, Note: submittedNote},
		},
	}
	res := s.res.Create(ctx, req)
	if res.StoreErr != nil {
		return models.MaintenanceRequest{}, storeError("submit request", res.StoreErr)
	}
	created := res.Value

	s.deps.emit(ctx, events.AggregateMaintenanceRequest, created.ID, workflow.EventRequestSubmitted, map[string]any{
		"title":    created.Title,
		"category": created.Category,
		"priority": created.Priority,
	})
	s.deps.notify(ctx, notify.LevelSuccess, "maintenance", "Maintenance request submitted successfully")
	return created, nil
}

// UpdateStatus appends one timeline entry and moves the request to status.
// An unknown id reports false. An empty note becomes
// "Status updated to <status>".
func (s *MaintenanceService) UpdateStatus(ctx context.Context, id string, status string, note string) (models.MaintenanceRequest, bool, error) {
	status = workflow.NormalizeStatus(status)
	if !workflow.IsRequestStatus(status) {
		return models.MaintenanceRequest{}, false, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if strings.TrimSpace(note) == "" {
		note = "Status updated to " + status
	}

	var previous string
	res := s.res.Modify(ctx, id, func(r models.MaintenanceRequest) (models.MaintenanceRequest, bool) {
		now := s.deps.Now()
		previous = r.Status
		timeline := make([]models.TimelineEntry, 0, len(r.Timeline)+1)
		timeline = append(timeline, r.Timeline...)
		r.Timeline = append(timeline, models.TimelineEntry{Date: now, Status: status, Note: note})
		r.Status = status
		r.Updated = now
		return r, true
	})
	if res.StoreErr != nil {
		return models.MaintenanceRequest{}, res.Found, storeError("update status", res.StoreErr)
	}
	if !res.Found {
		return models.MaintenanceRequest{}, false, nil
	}

	s.deps.emit(ctx, events.AggregateMaintenanceRequest, id, workflow.EventRequestStatusChanged, map[string]any{
		"from": previous,
		"to":   status,
		"note": note,
	})
	s.deps.notify(ctx, notify.LevelInfo, "maintenance", fmt.Sprintf("Request %q is now %s", res.Value.Title, strings.ReplaceAll(status, "_", " ")))
	return res.Value, true, nil
}

func canonicalCategory(c string) string {
	for _, known := range workflow.IssueCategories() {
		if strings.EqualFold(known, strings.TrimSpace(c)) {
			return known
		}
	}
	return strings.TrimSpace(c)
}
