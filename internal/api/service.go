package api

import (
	"context"

	"github.com/calloway/fixport/internal/catalog"
	"github.com/calloway/fixport/internal/draft"
	"github.com/calloway/fixport/internal/index"
	"github.com/calloway/fixport/internal/models"
	"github.com/calloway/fixport/internal/overlay"
)

// Service coordinates catalog, draft, overlay and search operations for the
// portal API.
type Service struct {
	resolver *catalog.Resolver
	drafts   *draft.Store
	overlay  *overlay.Store
	db       index.FixIndex
}

// NewService creates a new portal service.
func NewService(resolver *catalog.Resolver, drafts *draft.Store, ov *overlay.Store, db index.FixIndex) *Service {
	return &Service{resolver: resolver, drafts: drafts, overlay: ov, db: db}
}

// ListFixes returns the merged catalog, optionally filtered by category
// and/or tag.
func (s *Service) ListFixes(_ context.Context, category, tag string) []models.FixEntry {
	entries := s.resolver.Catalog()
	if category == "" && tag == "" {
		return entries
	}
	out := entries[:0]
	for _, e := range entries {
		if category != "" && e.Category != category {
			continue
		}
		if tag != "" && !hasTag(e, tag) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// GetFix returns the visible entry for slug.
func (s *Service) GetFix(_ context.Context, slug string) (models.FixEntry, bool) {
	return s.resolver.Get(slug)
}

// Categories returns the distinct categories in the merged catalog.
func (s *Service) Categories(_ context.Context) []string {
	return s.resolver.Categories()
}

// Tags returns the distinct tags in the merged catalog.
func (s *Service) Tags(_ context.Context) []string {
	return s.resolver.Tags()
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// LoadDraft returns the working draft.
func (s *Service) LoadDraft(_ context.Context) models.Draft {
	return s.drafts.Load()
}

// SaveDraft records the working draft (debounced persistence).
func (s *Service) SaveDraft(_ context.Context, d models.Draft) {
	s.drafts.Save(d)
}

// ResetDraft discards the working draft.
func (s *Service) ResetDraft(_ context.Context) {
	s.drafts.Reset()
}

// LocalFixes returns the overlay entries, most recent first.
func (s *Service) LocalFixes(_ context.Context) []models.FixEntry {
	return s.overlay.List()
}

// PublishLocal validates and upserts an entry into the local overlay.
func (s *Service) PublishLocal(_ context.Context, input any) (models.FixEntry, bool, error) {
	return s.overlay.Upsert(input)
}

// RemoveLocal deletes an overlay entry by its stored slug.
func (s *Service) RemoveLocal(_ context.Context, slug string) bool {
	return s.overlay.Remove(slug)
}

func hasTag(e models.FixEntry, tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
