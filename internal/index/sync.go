package index

import (
	"log/slog"
	"strings"
	"time"

	"github.com/calloway/fixport/internal/models"
)

// Rebuild brings the index in line with the merged catalog:
//   - every entry is upserted
//   - indexed slugs no longer in the catalog are deleted
//
// It is called at startup and again whenever any source tier changes.
func Rebuild(db *DB, entries []models.FixEntry, logger *slog.Logger) error {
	indexed, err := db.AllSlugs()
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.Slug] = struct{}{}

		row := FixRow{
			Slug:      e.Slug,
			Title:     e.Title,
			Category:  e.Category,
			Severity:  e.Severity,
			Tags:      e.Tags,
			UpdatedAt: time.Now().UTC(),
		}
		if err := db.UpsertFix(row, searchBody(e)); err != nil {
			logger.Warn("rebuild: upsert failed", slog.String("slug", e.Slug), slog.String("error", err.Error()))
		}
	}

	// Remove stale entries.
	for slug := range indexed {
		if _, ok := seen[slug]; !ok {
			if err := db.DeleteFix(slug); err != nil {
				logger.Warn("rebuild: delete failed", slog.String("slug", slug), slog.String("error", err.Error()))
			} else {
				logger.Debug("rebuild: removed stale", slog.String("slug", slug))
			}
		}
	}

	return nil
}

// searchBody flattens an entry into the text the search engine matches on.
func searchBody(e models.FixEntry) string {
	parts := make([]string, 0, 1+len(e.Steps))
	parts = append(parts, e.Description)
	for _, s := range e.Steps {
		parts = append(parts, s.Title, s.Content)
	}
	return strings.Join(parts, "\n")
}
