// Package snapshot loads the published-fixes document from a local file.
// The file mirrors the remote store and is refreshed out of band (by the
// sync-snapshot command or a cron job), so the portal keeps serving the
// last known remote tier even when the store is unreachable.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/calloway/fixport/internal/models"
	"github.com/calloway/fixport/internal/schema"
)

// Loader holds the most recently loaded snapshot in memory.
type Loader struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	entries []models.FixEntry
}

// NewLoader creates a loader for the snapshot file at path. Call Load to
// populate it.
func NewLoader(path string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{path: path, logger: logger}
}

// Load reads and replaces the in-memory snapshot. A missing file is not an
// error: the remote tier is simply empty until the first sync. Entries that
// fail validation are dropped with a warning rather than poisoning the
// whole snapshot.
func (l *Loader) Load() error {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.replace(nil)
			return nil
		}
		return fmt.Errorf("snapshot: read %s: %w", l.path, err)
	}

	var doc models.StoreDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("snapshot: parse %s: %w", l.path, err)
	}

	entries := make([]models.FixEntry, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		normalized, err := schema.Normalize(e)
		if err != nil {
			l.logger.Warn("snapshot: dropping invalid entry",
				slog.String("slug", e.Slug),
				slog.String("error", err.Error()))
			continue
		}
		entries = append(entries, *normalized)
	}

	l.replace(entries)
	l.logger.Debug("snapshot: loaded", slog.Int("entries", len(entries)))
	return nil
}

func (l *Loader) replace(entries []models.FixEntry) {
	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
}

// Entries returns a copy of the current snapshot entries.
func (l *Loader) Entries() []models.FixEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.FixEntry, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Clone()
	}
	return out
}

// Path returns the snapshot file path.
func (l *Loader) Path() string {
	return l.path
}

// Write stores doc at path atomically. Used by the sync-snapshot command.
func Write(path string, doc *models.StoreDocument) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".fixport-tmp-*")
	if err != nil {
		return fmt.Errorf("snapshot: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(raw, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("snapshot: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("snapshot: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("snapshot: rename: %w", err)
	}
	return nil
}
