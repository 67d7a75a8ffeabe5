package httpapi

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"renttalk-tenant-portal/api/internal/fetch"
	"renttalk-tenant-portal/api/internal/models"
	"renttalk-tenant-portal/api/internal/services"
	"renttalk-tenant-portal/shared/httpx"
	"renttalk-tenant-portal/shared/validatex"
)

type dashboardResponse struct {
	Tenant          models.Profile              `json:"tenant"`
	Landlord        models.Profile              `json:"landlord"`
	ActiveRequests  []models.MaintenanceRequest `json:"activeRequests"`
	UpcomingPayment *models.Payment             `json:"upcomingPayment"`
	UnreadMessages  int                         `json:"unreadMessages"`
	RecentMessages  []models.Message            `json:"recentMessages"`
}

// dashboard loads every panel concurrently, each through its own fetcher so
// a failing panel toasts without blanking the others.
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := s.Portal
	n := s.notifier()

	active := fetch.New(func(ctx context.Context) ([]models.MaintenanceRequest, error) {
		return p.Maintenance.GetActiveRequests(ctx), ctx.Err()
	}, fetch.Options[[]models.MaintenanceRequest]{AutoFetch: true, Notifier: n, ErrorMessage: "Failed to load maintenance requests"})
	upcoming := fetch.New(func(ctx context.Context) (*models.Payment, error) {
		if pay, ok := p.Payments.GetUpcomingPayment(ctx); ok {
			return &pay, nil
		}
		return nil, ctx.Err()
	}, fetch.Options[*models.Payment]{AutoFetch: true, Notifier: n, ErrorMessage: "Failed to load payments"})
	unread := fetch.New(func(ctx context.Context) (int, error) {
		return p.Messages.GetUnreadCount(ctx), ctx.Err()
	}, fetch.Options[int]{AutoFetch: true, Notifier: n})
	recent := fetch.New(func(ctx context.Context) ([]models.Message, error) {
		all := p.Messages.List(ctx)
		if len(all) > 5 {
			all = all[len(all)-5:]
		}
		return all, ctx.Err()
	}, fetch.Options[[]models.Message]{AutoFetch: true, Notifier: n, ErrorMessage: "Failed to load messages"})

	var wg sync.WaitGroup
	for _, mount := range []func(context.Context){
		func(ctx context.Context) { active.Mount(ctx) },
		func(ctx context.Context) { upcoming.Mount(ctx) },
		func(ctx context.Context) { unread.Mount(ctx) },
		func(ctx context.Context) { recent.Mount(ctx) },
	} {
		wg.Add(1)
		go func(mount func(context.Context)) {
			defer wg.Done()
			mount(ctx)
		}(mount)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := dashboardResponse{
		Tenant:          p.Profiles.Tenant(ctx),
		Landlord:        p.Profiles.Landlord(ctx),
		ActiveRequests:  active.Snapshot().Data,
		UpcomingPayment: upcoming.Snapshot().Data,
		UnreadMessages:  unread.Snapshot().Data,
		RecentMessages:  recent.Snapshot().Data,
	}
	if resp.ActiveRequests == nil {
		resp.ActiveRequests = []models.MaintenanceRequest{}
	}
	if resp.RecentMessages == nil {
		resp.RecentMessages = []models.Message{}
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]models.Profile{
		"tenant":   s.Portal.Profiles.Tenant(r.Context()),
		"landlord": s.Portal.Profiles.Landlord(r.Context()),
	})
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in services.ProfileUpdate
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error(), nil)
		return
	}
	p, err := s.Portal.Profiles.UpdateTenant(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, s.Portal.Maintenance.List(r.Context()))
}

func (s *Server) activeRequests(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, s.Portal.Maintenance.GetActiveRequests(r.Context()))
}

func (s *Server) submitRequest(w http.ResponseWriter, r *http.Request) {
	var in services.NewMaintenanceRequest
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error(), nil)
		return
	}
	created, err := s.Portal.Maintenance.Submit(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

type statusUpdateRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

func (s *Server) updateRequestStatus(w http.ResponseWriter, r *http.Request) {
	var in statusUpdateRequest
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error(), nil)
		return
	}
	updated, ok, err := s.Portal.Maintenance.UpdateStatus(r.Context(), r.PathValue("id"), in.Status, in.Note)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !ok {
		httpx.WriteError(w, r, http.StatusNotFound, "NOT_FOUND", "maintenance request not found", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updated)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, s.Portal.Messages.List(r.Context()))
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var in sendMessageRequest
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error(), nil)
		return
	}
	sent, err := s.Portal.Messages.SendMessage(r.Context(), in.Content)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, sent)
}

func (s *Server) unreadCount(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"count": s.Portal.Messages.GetUnreadCount(r.Context())})
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	msg, ok, err := s.Portal.Messages.MarkAsRead(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !ok {
		httpx.WriteError(w, r, http.StatusNotFound, "NOT_FOUND", "message not found", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, msg)
}

func (s *Server) markAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := s.Portal.Messages.MarkAllAsRead(r.Context())
	if err != nil {
		s.logFailure(r, "mark_all_read_failed", err)
		s.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"updated": n})
}

type simulateRequest struct {
	DelayMS *int `json:"delay_ms,omitempty" validate:"omitempty,gte=0,lte=30000"`
}

func (s *Server) simulateResponse(w http.ResponseWriter, r *http.Request) {
	var in simulateRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(w, r, &in); err != nil {
			httpx.WriteError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error(), nil)
			return
		}
	}
	if err := validatex.Struct(in); err != nil {
		s.writeServiceError(w, r, &services.ValidationError{Problems: validatex.Problems(err)})
		return
	}
	delay := services.DefaultSimulationDelay
	if in.DelayMS != nil {
		delay = time.Duration(*in.DelayMS) * time.Millisecond
	}
	msg, err := s.Portal.Messages.SimulateLandlordResponse(r.Context(), delay)
	if err != nil {
		s.logFailure(r, "simulate_response_failed", err)
		s.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, msg)
}

func (s *Server) listPayments(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, s.Portal.Payments.List(r.Context()))
}

func (s *Server) upcomingPayment(w http.ResponseWriter, r *http.Request) {
	p, ok := s.Portal.Payments.GetUpcomingPayment(r.Context())
	if !ok {
		httpx.WriteError(w, r, http.StatusNotFound, "NOT_FOUND", "no upcoming payment", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) paymentSummary(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, s.Portal.Payments.Summary(r.Context()))
}

type generateRequest struct {
	Count int `json:"count" validate:"gte=0,lte=24"`
}

func (s *Server) generatePayments(w http.ResponseWriter, r *http.Request) {
	var in generateRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(w, r, &in); err != nil {
			httpx.WriteError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error(), nil)
			return
		}
	}
	if err := validatex.Struct(in); err != nil {
		s.writeServiceError(w, r, &services.ValidationError{Problems: validatex.Problems(err)})
		return
	}
	created, err := s.Portal.Payments.GenerateFuturePayments(r.Context(), in.Count)
	if err != nil {
		s.logFailure(r, "generate_payments_failed", err)
		s.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) payPayment(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	paid, ok, err := s.Portal.Payments.MakePayment(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !ok {
		httpx.WriteError(w, r, http.StatusNotFound, "NOT_FOUND", "payment not found", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, paid)
}
