// Package http provides HTTP routing and middleware configuration
// for the KMS service.
package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"fishkms/internal/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the KMS API.
//
// Routes:
//
//	GET  /health   → kmsHandler.Health  (no auth)
//	GET  /metrics  → prometheus handler (no auth)
//	GET  /status   → kmsHandler.Status
//	POST /unlock   → kmsHandler.Unlock
//	POST /lock     → kmsHandler.Lock
//	POST /encrypt  → kmsHandler.Encrypt
//	POST /decrypt  → kmsHandler.Decrypt
//
// Middleware chain (applied in order):
//  1. WithRequestLogging(logger) — logs incoming requests
//  2. Auth(secret)               — enforces the shared-secret header
//  3. AllowContentType           — rejects non-JSON POST bodies
func NewRouter(kmsHandler *KMSHandler, secret string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))
	// Enforce shared-secret authentication
	r.Use(middleware.Auth(secret))

	r.Get("/health", kmsHandler.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/status", kmsHandler.Status)

	r.Group(func(r chi.Router) {
		// Only allow requests with Content-Type: application/json
		r.Use(chiMiddleware.AllowContentType("application/json"))

		r.Post("/unlock", kmsHandler.Unlock)
		r.Post("/lock", kmsHandler.Lock)
		r.Post("/encrypt", kmsHandler.Encrypt)
		r.Post("/decrypt", kmsHandler.Decrypt)
	})

	return r
}
