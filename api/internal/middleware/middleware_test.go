package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"renttalk-tenant-portal/shared/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestRateLimitPerClient(t *testing.T) {
	m := RateLimitMiddleware{Limiter: NewIPRateLimiter(0.001, 2, time.Minute)}
	h := m.Wrap(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
		req.Header.Set("X-Forwarded-For", "10.1.1.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	req.Header.Set("X-Forwarded-For", "10.2.2.2")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("other client limited: %d", rec.Code)
	}
}

func TestRateLimitSkip(t *testing.T) {
	m := RateLimitMiddleware{
		Limiter: NewIPRateLimiter(0.001, 1, time.Minute),
		Skip:    func(r *http.Request) bool { return r.URL.Path == "/healthz" },
	}
	h := m.Wrap(okHandler())
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("healthz limited")
		}
	}
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestStoreRequired(t *testing.T) {
	rec := httptest.NewRecorder()
	StoreRequiredMiddleware{}.Wrap(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/payments", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	m := StoreRequiredMiddleware{Store: pingerFunc(func(context.Context) error { return nil })}
	m.Wrap(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/payments", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	m := NewCORS(config.Config{CORSAllowedOrigins: []string{"http://localhost:5173"}, CORSMaxAgeSec: 3600})
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/messages", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	m.Wrap(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("allow origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if rec.Header().Get("Access-Control-Max-Age") != "3600" {
		t.Fatalf("max age = %q", rec.Header().Get("Access-Control-Max-Age"))
	}
	if rec.Header().Get("Access-Control-Allow-Methods") != "POST" {
		t.Fatalf("allow methods = %q", rec.Header().Get("Access-Control-Allow-Methods"))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/messages", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	m.Wrap(okHandler()).ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected allow origin")
	}
}

func TestCORSOrigins(t *testing.T) {
	cases := []struct {
		name    string
		origins []string
		creds   bool
		origin  string
		want    string
	}{
		{"no origins configured", nil, false, "http://localhost:5173", ""},
		{"wildcard", []string{"*"}, false, "http://a.example", "*"},
		{"exact with credentials", []string{"http://localhost:5173"}, true, "http://localhost:5173", "http://localhost:5173"},
		{"subdomain", []string{"https://*.renttalk.app"}, false, "https://maple.renttalk.app", "https://maple.renttalk.app"},
		{"subdomain needs a label", []string{"https://*.renttalk.app"}, false, "https://renttalk.app", ""},
		{"subdomain scheme must match", []string{"https://*.renttalk.app"}, false, "http://maple.renttalk.app", ""},
		{"subdomain rejects lookalike", []string{"https://*.renttalk.app"}, false, "https://maple.renttalk.app.evil.io", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewCORS(config.Config{CORSAllowedOrigins: tc.origins, CORSAllowCredentials: tc.creds})
			req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
			req.Header.Set("Origin", tc.origin)
			rec := httptest.NewRecorder()
			m.Wrap(okHandler()).ServeHTTP(rec, req)
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.want {
				t.Fatalf("allow origin = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCORSSkipsHealthEndpoints(t *testing.T) {
	m := NewCORS(config.Config{CORSAllowedOrigins: []string{"*"}})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://a.example")
	rec := httptest.NewRecorder()
	m.Wrap(okHandler()).ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" || rec.Header().Get("Vary") != "" {
		t.Fatalf("health endpoint carried CORS headers: %v", rec.Header())
	}
}
