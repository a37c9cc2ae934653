// Package overlay maintains the profile-local "published" fix entries that
// are layered over the shared catalog at merge time. Entries here exist
// only in this profile's storage and shadow remote and built-in entries
// with the same slug.
package overlay

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/calloway/fixport/internal/kvstore"
	"github.com/calloway/fixport/internal/models"
	"github.com/calloway/fixport/internal/schema"
)

const (
	storageKey      = "local-fixes.json"
	envelopeVersion = 1
)

// SlugPrefix namespaces locally published slugs so they can never collide
// with a remotely published slug.
const SlugPrefix = "local-"

// LocalTag is attached to every overlay entry so views can tell local
// entries apart from published ones.
const LocalTag = "local-draft"

type envelope struct {
	Version int               `json:"version"`
	Entries []models.FixEntry `json:"entries"`
}

// Listener receives overlay change notifications. kind is "published",
// "updated" or "removed"; slug is the stored (prefixed) slug.
// Notifications are in-process only.
type Listener func(kind, slug string)

// Store is the local publish overlay: an upsert-by-slug collection kept in
// most-recent-first order.
type Store struct {
	kv     kvstore.Provider
	logger *slog.Logger

	mu        sync.Mutex
	listeners []Listener
}

// NewStore creates an overlay store over the given provider.
func NewStore(kv kvstore.Provider, logger *slog.Logger) *Store {
	return &Store{kv: kv, logger: logger}
}

// Subscribe registers a change listener. Listeners are invoked after every
// successful mutation, outside the store's lock.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// List returns the locally published entries, most recent first. Invalid
// stored records are dropped silently: the overlay self-heals instead of
// failing catalog rendering.
func (s *Store) List() []models.FixEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Upsert normalizes the input, rewrites its slug into the local namespace,
// and inserts or replaces it. Upserting an already-prefixed entry does not
// double-prefix it. Returns the stored entry and whether an existing entry
// was replaced.
func (s *Store) Upsert(input any) (models.FixEntry, bool, error) {
	entry, err := schema.Normalize(input)
	if err != nil {
		return models.FixEntry{}, false, err
	}
	entry.Slug = SlugPrefix + strings.TrimPrefix(entry.Slug, SlugPrefix)
	entry.Tags = schema.NormalizeTags(append(entry.Tags, LocalTag))

	s.mu.Lock()
	entries := s.loadLocked()
	replaced := false
	for i := range entries {
		if entries[i].Slug == entry.Slug {
			entries[i] = entry.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append([]models.FixEntry{entry.Clone()}, entries...)
	}
	s.persistLocked(entries)
	s.mu.Unlock()

	kind := "published"
	if replaced {
		kind = "updated"
	}
	s.notify(kind, entry.Slug)
	return *entry, replaced, nil
}

// Remove deletes the entry with the given stored slug. Returns false when
// the slug is not present.
func (s *Store) Remove(slug string) bool {
	s.mu.Lock()
	entries := s.loadLocked()
	kept := entries[:0]
	removed := false
	for _, e := range entries {
		if e.Slug == slug {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	if removed {
		s.persistLocked(kept)
	}
	s.mu.Unlock()

	if removed {
		s.notify("removed", slug)
	}
	return removed
}

// loadLocked reads and filters the stored entries. Storage errors and
// corrupt data degrade to an empty overlay.
func (s *Store) loadLocked() []models.FixEntry {
	data, err := s.kv.Get(storageKey)
	if err != nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Version != envelopeVersion {
		s.logger.Warn("overlay: discarding unreadable stored overlay")
		return nil
	}
	out := make([]models.FixEntry, 0, len(env.Entries))
	for _, e := range env.Entries {
		if !schema.IsValid(e) {
			s.logger.Warn("overlay: dropping invalid stored entry", slog.String("slug", e.Slug))
			continue
		}
		out = append(out, e)
	}
	return out
}

// persistLocked writes the entries back. Write failures are logged and
// swallowed: the mutation still takes effect for this call's result, the
// user just loses the persistence guarantee.
func (s *Store) persistLocked(entries []models.FixEntry) {
	data, err := json.Marshal(envelope{Version: envelopeVersion, Entries: entries})
	if err != nil {
		s.logger.Warn("overlay: marshal failed", slog.String("error", err.Error()))
		return
	}
	if err := s.kv.Put(storageKey, data); err != nil {
		s.logger.Warn("overlay: save failed", slog.String("error", err.Error()))
	}
}

func (s *Store) notify(kind, slug string) {
	s.mu.Lock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(kind, slug)
	}
}
