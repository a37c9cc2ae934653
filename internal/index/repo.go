package index

import (
	"encoding/json"
	"fmt"
	"time"
)

// FixRow represents a row in the fixes table.
type FixRow struct {
	Slug      string
	Title     string
	Category  string
	Severity  string
	Tags      []string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertFix inserts or replaces a fix and its FTS entry within a transaction.
func (db *DB) UpsertFix(row FixRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(row.Tags)

	// Body is stored alongside for the LIKE fallback.
	_, err = tx.Exec(`
		INSERT INTO fixes (slug, title, category, severity, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			title      = excluded.title,
			category   = excluded.category,
			severity   = excluded.severity,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, row.Slug, row.Title, row.Category, row.Severity, string(tagsJSON), body, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert fix: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, row.Slug, row.Title, body, row.Tags); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteFix removes a fix and its FTS entry.
func (db *DB) DeleteFix(slug string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, slug)
	_, _ = tx.Exec(`DELETE FROM fixes WHERE slug = ?`, slug)

	return tx.Commit()
}

// AllSlugs returns every indexed fix slug.
func (db *DB) AllSlugs() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT slug FROM fixes`)
	if err != nil {
		return nil, fmt.Errorf("index: all slugs: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out[s] = struct{}{}
	}
	return out, rows.Err()
}
