// Package catalog composes the three entry tiers (local overlay, remote
// snapshot, built-ins) into the merged catalog end users see.
package catalog

import (
	"sort"

	"github.com/calloway/fixport/internal/models"
)

// Merge combines the tiers in precedence order: local entries shadow
// remote, remote shadows built-in. The first occurrence of a slug wins and
// the output never contains duplicate slugs, regardless of duplication
// within a tier.
func Merge(local, remote, builtin []models.FixEntry) []models.FixEntry {
	seen := make(map[string]struct{})
	out := make([]models.FixEntry, 0, len(local)+len(remote)+len(builtin))
	for _, tier := range [][]models.FixEntry{local, remote, builtin} {
		for _, e := range tier {
			if _, dup := seen[e.Slug]; dup {
				continue
			}
			seen[e.Slug] = struct{}{}
			out = append(out, e.Clone())
		}
	}
	return out
}

// Resolver recomputes the merged catalog from its three sources on every
// read. It holds no merged state of its own, so it is safe to call from
// any rendering context after any storage change.
type Resolver struct {
	local   func() []models.FixEntry
	remote  func() []models.FixEntry
	builtin func() []models.FixEntry
}

// NewResolver wires the three tier sources, highest precedence first.
func NewResolver(local, remote, builtin func() []models.FixEntry) *Resolver {
	return &Resolver{local: local, remote: remote, builtin: builtin}
}

// Catalog returns the merged, deduplicated catalog.
func (r *Resolver) Catalog() []models.FixEntry {
	return Merge(r.local(), r.remote(), r.builtin())
}

// Get returns the visible entry for slug, honoring tier precedence.
func (r *Resolver) Get(slug string) (models.FixEntry, bool) {
	for _, e := range r.Catalog() {
		if e.Slug == slug {
			return e, true
		}
	}
	return models.FixEntry{}, false
}

// Categories returns the distinct categories present in the merged
// catalog, sorted for stable display.
func (r *Resolver) Categories() []string {
	return distinct(r.Catalog(), func(e models.FixEntry) []string {
		return []string{e.Category}
	})
}

// Tags returns the distinct tags present in the merged catalog, sorted.
func (r *Resolver) Tags() []string {
	return distinct(r.Catalog(), func(e models.FixEntry) []string {
		return e.Tags
	})
}

func distinct(entries []models.FixEntry, pick func(models.FixEntry) []string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, e := range entries {
		for _, v := range pick(e) {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
