package api

import (
	"github.com/calloway/fixport/internal/index"
	"github.com/calloway/fixport/internal/models"
)

// FixListResponse wraps catalog listings.
type FixListResponse struct {
	Fixes []models.FixEntry `json:"fixes"`
	Total int               `json:"total"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results"`
}

// LocalPublishResponse is returned after a successful local publish.
type LocalPublishResponse struct {
	Fix      models.FixEntry `json:"fix"`
	Replaced bool            `json:"replaced"`
}
