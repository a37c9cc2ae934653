package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Catalog.
	r.Get("/fixes", h.ListFixes)
	r.Get("/fixes/{slug}", h.GetFix)
	r.Get("/categories", h.Categories)
	r.Get("/tags", h.Tags)

	// Search.
	r.Get("/search", h.Search)

	// Working draft.
	r.Get("/draft", h.GetDraft)
	r.Put("/draft", h.PutDraft)
	r.Delete("/draft", h.DeleteDraft)

	// Local publish overlay.
	r.Get("/local-fixes", h.ListLocalFixes)
	r.Post("/local-fixes", h.PublishLocal)
	r.Delete("/local-fixes/{slug}", h.RemoveLocal)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
