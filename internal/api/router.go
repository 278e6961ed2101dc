package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/auth"
)

// Routes bundles everything the API router mounts.
type Routes struct {
	Handler  *Handler
	Sessions *SessionHandler
	Uploads  *UploadHandler
	Auth     *auth.Service
	// Events, if non-nil, is mounted at GET /events outside the admin gate.
	Events http.Handler
}

// NewRouter creates a chi router with all API routes mounted. Reads are
// public; writes go through AdminGate.
func NewRouter(rt Routes) chi.Router {
	h := rt.Handler

	r := chi.NewRouter()

	// Public catalog reads.
	r.Get("/portfolio", h.GetPortfolio)
	r.Get("/portfolio/images", h.ListImages)
	r.Get("/portfolio/search", h.Search)

	if rt.Events != nil {
		r.Get("/events", rt.Events.ServeHTTP)
	}

	// Session.
	r.Post("/auth", rt.Sessions.Login)
	r.Post("/auth/logout", rt.Sessions.Logout)

	// Admin.
	r.Group(func(r chi.Router) {
		r.Use(AdminGate(rt.Auth))

		r.Get("/auth/session", rt.Sessions.Session)

		r.Post("/portfolio", h.SavePortfolio)
		r.Post("/portfolio/reorder", h.Reorder)
		r.Patch("/portfolio/images/{id}", h.PatchImage)

		r.Post("/collections", h.AddCollection)
		r.Delete("/collections", h.RemoveCollection)

		r.Post("/delete-image", h.DeleteImage)
		if rt.Uploads != nil {
			r.Post("/upload", rt.Uploads.Upload)
		}
	})

	return r
}
