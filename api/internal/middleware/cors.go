package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"renttalk-tenant-portal/shared/config"
)

// CORS lets the tenant portal front end call the API from another origin.
// Origins may be exact, "*" or a subdomain pattern such as
// "https://*.renttalk.app".
type CORS struct {
	cors      *cors.Cors
	skipPaths map[string]bool
}

// NewCORS reads the allowed origins and preflight caching from cfg. With
// no origins configured no CORS headers are sent. Health and metrics
// endpoints never carry them.
func NewCORS(cfg config.Config) CORS {
	c := CORS{skipPaths: map[string]bool{"/healthz": true, "/readyz": true, "/metrics": true}}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return c
	}
	c.cors = cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: cfg.CORSAllowCredentials,
		MaxAge:           cfg.CORSMaxAgeSec,
	})
	return c
}

func (c CORS) Wrap(next http.Handler) http.Handler {
	if c.cors == nil {
		return next
	}
	withCORS := c.cors.Handler(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		withCORS.ServeHTTP(w, r)
	})
}
