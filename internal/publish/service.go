// Package publish promotes a fix entry into the shared published store.
// A publish is a read-modify-write against the docstore: load the current
// document, upsert the entry by slug, and write back conditioned on the
// version token from the read.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/calloway/fixport/internal/apperr"
	"github.com/calloway/fixport/internal/docstore"
	"github.com/calloway/fixport/internal/models"
	"github.com/calloway/fixport/internal/schema"
)

// Result reports what a successful publish did.
type Result struct {
	Slug      string `json:"slug"`
	Replaced  bool   `json:"replaced"`
	Path      string `json:"path"`
	CommitRef string `json:"commitRef,omitempty"`
}

// Service runs the publish pipeline against a document store.
type Service struct {
	store  docstore.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a publish service.
func NewService(store docstore.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// Publish validates fix, merges it into the stored document and writes the
// document back. The write is conditional on the version token observed by
// the read; a concurrent publish in between surfaces as apperr.ErrConflict
// and the caller retries from scratch. Validation failures return
// *schema.ValidationError.
func (s *Service) Publish(ctx context.Context, fix any, identity, message string) (*Result, error) {
	entry, err := schema.Normalize(fix)
	if err != nil {
		return nil, err
	}

	doc, token, err := s.store.Read(ctx)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("publish: read store: %w", err)
		}
		// First publish ever. An empty token makes the write assert
		// that the document still does not exist.
		doc, token = &models.StoreDocument{Version: models.StoreDocumentVersion}, ""
	}

	replaced := upsertEntry(doc, *entry)
	doc.UpdatedAt = s.now().UTC().Truncate(time.Second)
	doc.UpdatedBy = identity

	if message == "" {
		verb := "Add"
		if replaced {
			verb = "Update"
		}
		message = fmt.Sprintf("%s fix: %s", verb, entry.Slug)
	}

	res, err := s.store.WriteIf(ctx, doc, token, message, identity)
	if err != nil {
		return nil, fmt.Errorf("publish: write store: %w", err)
	}

	s.logger.Info("fix published",
		slog.String("slug", entry.Slug),
		slog.Bool("replaced", replaced),
		slog.String("by", identity),
		slog.String("commit", res.CommitRef))

	return &Result{
		Slug:      entry.Slug,
		Replaced:  replaced,
		Path:      res.Path,
		CommitRef: res.CommitRef,
	}, nil
}

// upsertEntry replaces an existing entry with the same slug in place, or
// inserts the new entry at the front so the newest publish lists first.
func upsertEntry(doc *models.StoreDocument, entry models.FixEntry) bool {
	for i := range doc.Entries {
		if doc.Entries[i].Slug == entry.Slug {
			doc.Entries[i] = entry
			return true
		}
	}
	doc.Entries = append([]models.FixEntry{entry}, doc.Entries...)
	return false
}
