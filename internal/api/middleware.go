// Package api implements the Folio catalog HTTP service using chi.
package api

import (
	"net/http"
	"strings"

	"github.com/starford/folio/internal/auth"
)

// AdminGate returns middleware that requires a valid admin session, taken
// from the session cookie or an "Authorization: Bearer <token>" header.
// When the auth service is disabled every request passes through.
func AdminGate(svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !svc.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			if err := svc.Validate(sessionToken(r)); err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(auth.CookieName); err == nil {
		return c.Value
	}
	return ""
}
