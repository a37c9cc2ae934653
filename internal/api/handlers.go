package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/calloway/fixport/internal/models"
	"github.com/calloway/fixport/internal/schema"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ListFixes handles GET /api/fixes.
//
//	@Summary		List the merged fix catalog with optional filtering
//	@Tags			fixes
//	@Produce		json
//	@Param			category	query		string	false	"Filter by category"
//	@Param			tag			query		string	false	"Filter by tag"
//	@Success		200			{object}	FixListResponse
//	@Security		BearerAuth
//	@Router			/fixes [get]
func (h *Handler) ListFixes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fixes := h.svc.ListFixes(r.Context(), q.Get("category"), q.Get("tag"))
	writeJSON(w, http.StatusOK, FixListResponse{Fixes: fixes, Total: len(fixes)})
}

// GetFix handles GET /api/fixes/{slug}.
//
//	@Summary		Get a single fix by slug
//	@Tags			fixes
//	@Produce		json
//	@Param			slug	path		string	true	"Fix slug"
//	@Success		200		{object}	models.FixEntry
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/fixes/{slug} [get]
func (h *Handler) GetFix(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	fix, ok := h.svc.GetFix(r.Context(), slug)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	writeJSON(w, http.StatusOK, fix)
}

// Categories handles GET /api/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": h.svc.Categories(r.Context()),
	})
}

// Tags handles GET /api/tags.
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tags": h.svc.Tags(r.Context()),
	})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across fixes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// GetDraft handles GET /api/draft.
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.LoadDraft(r.Context()))
}

// PutDraft handles PUT /api/draft. The draft is working state: it is stored
// as-is without validation, so half-finished entries survive reloads.
func (h *Handler) PutDraft(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var d models.Draft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	h.svc.SaveDraft(r.Context(), d)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteDraft handles DELETE /api/draft.
func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	h.svc.ResetDraft(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// ListLocalFixes handles GET /api/local-fixes.
func (h *Handler) ListLocalFixes(w http.ResponseWriter, r *http.Request) {
	fixes := h.svc.LocalFixes(r.Context())
	writeJSON(w, http.StatusOK, FixListResponse{Fixes: fixes, Total: len(fixes)})
}

// PublishLocal handles POST /api/local-fixes.
//
//	@Summary		Publish a fix into the profile-local overlay
//	@Tags			local
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.FixEntry	true	"Fix to publish locally"
//	@Success		200		{object}	LocalPublishResponse
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/local-fixes [post]
func (h *Handler) PublishLocal(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	fix, replaced, err := h.svc.PublishLocal(r.Context(), raw)
	if err != nil {
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  "validation failed",
				"issues": verr.Issues,
			})
			return
		}
		slog.Error("local publish failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, LocalPublishResponse{Fix: fix, Replaced: replaced})
}

// RemoveLocal handles DELETE /api/local-fixes/{slug}.
func (h *Handler) RemoveLocal(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if !h.svc.RemoveLocal(r.Context(), slug) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
