package docstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/calloway/fixport/internal/apperr"
	"github.com/calloway/fixport/internal/models"
)

// Memory implements Store in process memory with a token-generation
// counter. Used by tests and by dev deployments without a configured
// backend.
type Memory struct {
	mu  sync.Mutex
	doc *models.StoreDocument
	gen int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Read returns the current document and its version token.
func (m *Memory) Read(_ context.Context) (*models.StoreDocument, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return nil, "", fmt.Errorf("docstore: memory read: %w", apperr.ErrNotFound)
	}
	doc := m.doc.Clone()
	return &doc, m.token(), nil
}

// WriteIf replaces the document when expectedToken matches the current
// generation.
func (m *Memory) WriteIf(_ context.Context, doc *models.StoreDocument, expectedToken, _, _ string) (WriteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := ""
	if m.doc != nil {
		current = m.token()
	}
	if expectedToken != current {
		return WriteResult{}, fmt.Errorf("docstore: memory write: token %q is stale: %w", expectedToken, apperr.ErrConflict)
	}
	clone := doc.Clone()
	m.doc = &clone
	m.gen++
	return WriteResult{Token: m.token(), CommitRef: m.token(), Path: "memory"}, nil
}

func (m *Memory) token() string {
	return fmt.Sprintf("gen-%d", m.gen)
}
