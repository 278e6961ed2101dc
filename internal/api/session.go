package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/auth"
)

// SessionHandler issues and clears admin sessions.
type SessionHandler struct {
	auth    *auth.Service
	secure  bool
	limiter *rate.Limiter
	logger  *slog.Logger
}

// SessionOption configures a SessionHandler.
type SessionOption func(*SessionHandler)

// WithSecureCookie marks the session cookie Secure (HTTPS deployments).
func WithSecureCookie(secure bool) SessionOption {
	return func(h *SessionHandler) { h.secure = secure }
}

// WithLoginRate limits login attempts across all clients.
func WithLoginRate(every time.Duration, burst int) SessionOption {
	return func(h *SessionHandler) { h.limiter = rate.NewLimiter(rate.Every(every), burst) }
}

// WithSessionLogger sets the logger for login events.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(h *SessionHandler) { h.logger = l }
}

// NewSessionHandler creates a SessionHandler. Login attempts default to one
// per second with a burst of five.
func NewSessionHandler(svc *auth.Service, opts ...SessionOption) *SessionHandler {
	h := &SessionHandler{
		auth:    svc,
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Login handles POST /auth.
//
//	@Summary		Exchange the admin password for a session cookie
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LoginRequest	true	"Credentials"
//	@Success		200		{object}	LoginResponse
//	@Failure		401		{object}	LoginResponse
//	@Failure		429		{object}	LoginResponse
//	@Router			/auth [post]
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, LoginResponse{Message: "Too many attempts"})
		return
	}
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, LoginResponse{Message: "Invalid request body"})
		return
	}
	if err := check(req); err != nil {
		writeJSON(w, http.StatusBadRequest, LoginResponse{Message: "Password is required"})
		return
	}
	if !h.auth.Enabled() {
		writeJSON(w, http.StatusOK, LoginResponse{Success: true})
		return
	}

	token, expires, err := h.auth.Login(req.Password)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			h.logger.Warn("admin login rejected", slog.String("remote", r.RemoteAddr))
			writeJSON(w, http.StatusUnauthorized, LoginResponse{Message: "Invalid password"})
			return
		}
		h.logger.Error("admin login failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, LoginResponse{Message: "Server error"})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(h.auth.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, LoginResponse{Success: true})
}

// Logout handles POST /auth/logout.
//
//	@Summary		Clear the admin session cookie
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	successResponse
//	@Router			/auth/logout [post]
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, okBody)
}

// Session handles GET /auth/session. It is mounted behind AdminGate, so
// reaching it means the session is valid.
//
//	@Summary		Check the current admin session
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	SessionResponse
//	@Failure		401	{object}	errResponse
//	@Security		AdminSession
//	@Router			/auth/session [get]
func (h *SessionHandler) Session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SessionResponse{Authenticated: true, AuthEnabled: h.auth.Enabled()})
}
