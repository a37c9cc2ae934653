// Package draft persists the author's in-progress working copy. A draft is
// advisory working state, never authoritative: absent or corrupted stored
// data falls back to the default draft, and storage write failures are
// swallowed so the editor is never blocked.
package draft

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/calloway/fixport/internal/kvstore"
	"github.com/calloway/fixport/internal/models"
)

const (
	storageKey      = "draft.json"
	envelopeVersion = 1
)

// envelope is the stored shape; the explicit version allows older shapes
// to be rejected safely.
type envelope struct {
	Version int          `json:"version"`
	Draft   models.Draft `json:"draft"`
}

// Store persists the working draft with debounced writes. Save is expected
// on every field mutation; physical writes coalesce within the debounce
// window. Last write wins.
type Store struct {
	kv       kvstore.Provider
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	pending *models.Draft
	timer   *time.Timer
}

// NewStore creates a draft store. A non-positive debounce defaults to one
// second.
func NewStore(kv kvstore.Provider, logger *slog.Logger, debounce time.Duration) *Store {
	if debounce <= 0 {
		debounce = time.Second
	}
	return &Store{kv: kv, logger: logger, debounce: debounce}
}

// Default returns the hard-coded draft used when nothing is stored.
func Default() models.Draft {
	return models.Draft{
		Category:    "Windows",
		Severity:    "Medium",
		AccessLevel: "User Safe",
		Tags:        []string{},
		Steps:       []models.Step{{Type: "info"}},
	}
}

// Load returns the stored draft, or the default when nothing valid is
// stored. Unflushed pending saves are visible immediately.
func (s *Store) Load() models.Draft {
	s.mu.Lock()
	if s.pending != nil {
		d := cloneDraft(*s.pending)
		s.mu.Unlock()
		return d
	}
	s.mu.Unlock()

	data, err := s.kv.Get(storageKey)
	if err != nil {
		return Default()
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Version != envelopeVersion {
		return Default()
	}
	return env.Draft
}

// Save records the draft and schedules a debounced write.
func (s *Store) Save(d models.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := cloneDraft(d)
	s.pending = &clone
	if s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, s.Flush)
	} else {
		s.timer.Reset(s.debounce)
	}
}

// Flush writes any pending draft immediately. Write failures are logged
// and swallowed: persistence is best-effort.
func (s *Store) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

func (s *Store) flushLocked() {
	if s.pending == nil {
		return
	}
	data, err := json.Marshal(envelope{Version: envelopeVersion, Draft: *s.pending})
	s.pending = nil
	s.stopTimerLocked()
	if err != nil {
		s.logger.Warn("draft: marshal failed", slog.String("error", err.Error()))
		return
	}
	if err := s.kv.Put(storageKey, data); err != nil {
		s.logger.Warn("draft: save failed", slog.String("error", err.Error()))
	}
}

// Reset discards the draft, pending and stored.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	s.stopTimerLocked()
	if err := s.kv.Delete(storageKey); err != nil {
		s.logger.Warn("draft: reset failed", slog.String("error", err.Error()))
	}
}

// Close flushes any pending write. Used on shutdown.
func (s *Store) Close() {
	s.Flush()
}

func (s *Store) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func cloneDraft(d models.Draft) models.Draft {
	return models.Draft(models.FixEntry(d).Clone())
}
