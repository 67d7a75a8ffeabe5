// Package httpapi exposes the record contract and the tenant portal's
// domain operations over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"renttalk-tenant-portal/api/internal/notify"
	"renttalk-tenant-portal/api/internal/services"
	"renttalk-tenant-portal/shared/httpx"
	"renttalk-tenant-portal/shared/logx"
)

type Server struct {
	Portal   *services.Portal
	Notifier notify.Notifier
	Log      logx.Logger
}

// Register mounts every portal route on mux.
func (s *Server) Register(mux *http.ServeMux) {
	registerResource(mux, s.Portal.Maintenance.Resource())
	registerResource(mux, s.Portal.Messages.Resource())
	registerResource(mux, s.Portal.Payments.Resource())

	mux.HandleFunc("GET /api/v1/dashboard", s.dashboard)
	mux.HandleFunc("GET /api/v1/profile", s.profile)
	mux.HandleFunc("PATCH /api/v1/profile", s.updateProfile)

	mux.HandleFunc("GET /api/v1/maintenance", s.listRequests)
	mux.HandleFunc("GET /api/v1/maintenance/active", s.activeRequests)
	mux.HandleFunc("POST /api/v1/maintenance", s.submitRequest)
	mux.HandleFunc("POST /api/v1/maintenance/{id}/status", s.updateRequestStatus)

	mux.HandleFunc("GET /api/v1/messages", s.listMessages)
	mux.HandleFunc("POST /api/v1/messages", s.sendMessage)
	mux.HandleFunc("GET /api/v1/messages/unread-count", s.unreadCount)
	mux.HandleFunc("POST /api/v1/messages/read-all", s.markAllRead)
	mux.HandleFunc("POST /api/v1/messages/{id}/read", s.markRead)
	mux.HandleFunc("POST /api/v1/messages/simulate-response", s.simulateResponse)

	mux.HandleFunc("GET /api/v1/payments", s.listPayments)
	mux.HandleFunc("GET /api/v1/payments/upcoming", s.upcomingPayment)
	mux.HandleFunc("GET /api/v1/payments/summary", s.paymentSummary)
	mux.HandleFunc("POST /api/v1/payments/generate", s.generatePayments)
	mux.HandleFunc("POST /api/v1/payments/{id}/pay", s.payPayment)
}

func (s *Server) notifier() notify.Notifier {
	if s.Notifier == nil {
		return notify.Nop{}
	}
	return s.Notifier
}

// writeServiceError maps domain errors onto the error envelope.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error(), verr.Problems)
	case errors.Is(err, services.ErrInvalidStatus):
		httpx.WriteError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error(), nil)
	case errors.Is(err, services.ErrInvalidTransition):
		httpx.WriteError(w, r, http.StatusConflict, "FAILED_PRECONDITION", err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(w, r, http.StatusGatewayTimeout, "TIMEOUT", "request timeout", nil)
	case errors.Is(err, services.ErrStore):
		writeStoreError(w, r, err)
	default:
		writeStoreError(w, r, err)
	}
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	httpx.WriteError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "record store unavailable", map[string]any{"error": err.Error()})
}

func (s *Server) logFailure(r *http.Request, event string, err error) {
	s.Log.Warn(r.Context(), event, "request failed",
		slog.String("route", r.Pattern),
		slog.String("error", err.Error()),
	)
}
