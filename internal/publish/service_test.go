package publish

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/calloway/fixport/internal/apperr"
	"github.com/calloway/fixport/internal/docstore"
	"github.com/calloway/fixport/internal/models"
	"github.com/calloway/fixport/internal/schema"
	"github.com/calloway/fixport/internal/testutil"
)

func validFix(slug string) map[string]any {
	return map[string]any{
		"slug":          slug,
		"title":         "Fix something",
		"description":   "What this fixes.",
		"category":      "Windows",
		"severity":      "Medium",
		"accessLevel":   "User Safe",
		"estimatedTime": "5 minutes",
		"tags":          []string{"outlook"},
		"steps": []map[string]any{
			{"title": "Do it", "type": "command", "content": "ipconfig /flushdns"},
		},
	}
}

// countingStore wraps a store and counts writes, so tests can assert a
// rejected publish never touched the backend.
type countingStore struct {
	docstore.Store
	writes int
}

func (c *countingStore) WriteIf(ctx context.Context, doc *models.StoreDocument, token, message, author string) (docstore.WriteResult, error) {
	c.writes++
	return c.Store.WriteIf(ctx, doc, token, message, author)
}

func TestPublishFirstWrite(t *testing.T) {
	store := docstore.NewMemory()
	svc := NewService(store, testutil.DiscardLogger())

	res, err := svc.Publish(context.Background(), validFix("fix-dns"), "alice@example.com", "")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.Slug != "fix-dns" || res.Replaced {
		t.Errorf("result = %+v", res)
	}

	doc, _, err := store.Read(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Entries) != 1 || doc.Entries[0].Slug != "fix-dns" {
		t.Errorf("doc = %+v", doc)
	}
	if doc.UpdatedBy != "alice@example.com" {
		t.Errorf("updatedBy = %q", doc.UpdatedBy)
	}
	if doc.Version != models.StoreDocumentVersion {
		t.Errorf("version = %d", doc.Version)
	}
}

func TestPublishInsertsNewestFirst(t *testing.T) {
	store := docstore.NewMemory()
	svc := NewService(store, testutil.DiscardLogger())
	ctx := context.Background()

	for _, slug := range []string{"fix-a", "fix-b", "fix-c"} {
		if _, err := svc.Publish(ctx, validFix(slug), "", ""); err != nil {
			t.Fatalf("publish %s: %v", slug, err)
		}
	}

	doc, _, _ := store.Read(ctx)
	got := []string{doc.Entries[0].Slug, doc.Entries[1].Slug, doc.Entries[2].Slug}
	want := []string{"fix-c", "fix-b", "fix-a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestPublishReplacesBySlugInPlace(t *testing.T) {
	store := docstore.NewMemory()
	svc := NewService(store, testutil.DiscardLogger())
	ctx := context.Background()

	for _, slug := range []string{"fix-a", "fix-b"} {
		if _, err := svc.Publish(ctx, validFix(slug), "", ""); err != nil {
			t.Fatal(err)
		}
	}

	updated := validFix("fix-a")
	updated["title"] = "Fix something, again"
	res, err := svc.Publish(ctx, updated, "", "")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !res.Replaced {
		t.Error("Replaced = false, want true")
	}

	doc, _, _ := store.Read(ctx)
	if len(doc.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(doc.Entries))
	}
	// Replacement keeps the entry's position.
	if doc.Entries[0].Slug != "fix-b" || doc.Entries[1].Slug != "fix-a" {
		t.Errorf("order = [%s %s]", doc.Entries[0].Slug, doc.Entries[1].Slug)
	}
	if doc.Entries[1].Title != "Fix something, again" {
		t.Errorf("title = %q", doc.Entries[1].Title)
	}
}

func TestPublishInvalidFixNeverWrites(t *testing.T) {
	store := &countingStore{Store: docstore.NewMemory()}
	svc := NewService(store, testutil.DiscardLogger())

	bad := validFix("fix-a")
	bad["category"] = "BeOS"
	_, err := svc.Publish(context.Background(), bad, "", "")

	var verr *schema.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *schema.ValidationError", err)
	}
	if store.writes != 0 {
		t.Errorf("writes = %d, want 0", store.writes)
	}
}

func TestPublishConflictPropagates(t *testing.T) {
	store := docstore.NewMemory()
	ctx := context.Background()

	// Advance the store between this publish's read and write.
	racing := &racingStore{Memory: store, svc: NewService(store, testutil.DiscardLogger())}
	racingSvc := NewService(racing, testutil.DiscardLogger())

	_, err := racingSvc.Publish(ctx, validFix("fix-a"), "", "")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

// racingStore sneaks a competing publish in after every Read.
type racingStore struct {
	*docstore.Memory
	svc *Service
	n   int
}

func (r *racingStore) Read(ctx context.Context) (*models.StoreDocument, string, error) {
	doc, token, err := r.Memory.Read(ctx)
	r.n++
	if _, perr := r.svc.Publish(ctx, validFix(fmt.Sprintf("racer-%d", r.n)), "", ""); perr != nil {
		return nil, "", perr
	}
	return doc, token, err
}

func TestPublishDefaultCommitMessage(t *testing.T) {
	store := &recordingStore{Store: docstore.NewMemory()}
	svc := NewService(store, testutil.DiscardLogger())
	ctx := context.Background()

	if _, err := svc.Publish(ctx, validFix("fix-a"), "", ""); err != nil {
		t.Fatal(err)
	}
	if store.lastMessage != "Add fix: fix-a" {
		t.Errorf("message = %q", store.lastMessage)
	}

	if _, err := svc.Publish(ctx, validFix("fix-a"), "", ""); err != nil {
		t.Fatal(err)
	}
	if store.lastMessage != "Update fix: fix-a" {
		t.Errorf("message = %q", store.lastMessage)
	}

	if _, err := svc.Publish(ctx, validFix("fix-b"), "", "custom message"); err != nil {
		t.Fatal(err)
	}
	if store.lastMessage != "custom message" {
		t.Errorf("message = %q", store.lastMessage)
	}
}

type recordingStore struct {
	docstore.Store
	lastMessage string
}

func (r *recordingStore) WriteIf(ctx context.Context, doc *models.StoreDocument, token, message, author string) (docstore.WriteResult, error) {
	r.lastMessage = message
	return r.Store.WriteIf(ctx, doc, token, message, author)
}
