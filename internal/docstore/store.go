// Package docstore provides the versioned document store behind remote
// publishing: a read returns the document plus an opaque version token,
// and writes are conditional on the token from the most recent read. The
// conditional write is the only concurrency control in the publish path,
// so a stale writer always gets a conflict instead of silently
// overwriting.
package docstore

import (
	"context"

	"github.com/calloway/fixport/internal/models"
)

// WriteResult identifies a successful conditional write.
type WriteResult struct {
	// Token is the new version token for subsequent conditional writes.
	Token string
	// CommitRef is the backend's commit identity for this write.
	CommitRef string
	// Path is the document's location within the backend.
	Path string
}

// Store is the versioned document port.
//
// Read returns an error wrapping apperr.ErrNotFound when the document does
// not exist yet (first-write case). WriteIf returns an error wrapping
// apperr.ErrConflict when the document changed since expectedToken was
// read, and apperr.ErrIndeterminate when the outcome of the write is
// unknown (the caller must verify before resubmitting). An empty
// expectedToken asserts the document does not exist.
type Store interface {
	Read(ctx context.Context) (*models.StoreDocument, string, error)
	WriteIf(ctx context.Context, doc *models.StoreDocument, expectedToken, message, author string) (WriteResult, error)
}
