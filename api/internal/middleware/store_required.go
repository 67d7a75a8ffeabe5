package middleware

import (
	"context"
	"net/http"

	"renttalk-tenant-portal/shared/httpx"
)

// Pinger is anything that can report backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreRequiredMiddleware rejects requests while no record store backend is
// configured. Reachability problems are left to the resource layer, which
// degrades instead of failing.
type StoreRequiredMiddleware struct {
	Store Pinger
	Skip  func(*http.Request) bool
}

func (m StoreRequiredMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Skip != nil && m.Skip(r) {
			next.ServeHTTP(w, r)
			return
		}
		if m.Store == nil {
			httpx.WriteError(w, r, http.StatusServiceUnavailable, "FAILED_PRECONDITION", "record store not configured", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
