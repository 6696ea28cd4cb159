// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"crypto/subtle"
	"net/http"
)

// AuthHeader is the request header carrying the shared secret.
const AuthHeader = "X-FISH-AUTH"

// Auth returns a middleware that enforces shared-secret authentication.
//
// Every request must carry an X-FISH-AUTH header equal to the configured
// secret. The /health and /metrics endpoints are excluded so probes and
// scrapers work without credentials. The comparison is constant-time so the
// secret cannot be recovered through timing.
func Auth(secret string) func(http.Handler) http.Handler {
	want := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}
			got := []byte(r.Header.Get(AuthHeader))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				http.Error(w, "invalid or missing API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
