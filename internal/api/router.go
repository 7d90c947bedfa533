package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/ehwaz/internal/assetsvc"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *assetsvc.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Staging.
	r.Post("/stage", h.Stage)

	// Workflow recovery.
	r.Get("/workflow/quick", h.QuickWorkflow)
	r.Get("/metadata", h.Metadata)

	// Gallery listings.
	r.Get("/assets", h.ListAssets)
	r.Get("/assets/search", h.SearchAssets)

	// Raw file serving for previews and single drag-out.
	r.Get("/view/{scope}/*", h.View)

	// Batch export.
	r.Post("/archive", h.StartArchive)
	r.Get("/archive/{token}", h.FetchArchive)

	// SSE event log (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
