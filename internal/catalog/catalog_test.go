package catalog

import (
	"reflect"
	"testing"

	"github.com/calloway/fixport/internal/models"
)

func entry(slug, title string, tags ...string) models.FixEntry {
	if tags == nil {
		tags = []string{"general"}
	}
	return models.FixEntry{
		Slug:          slug,
		Title:         title,
		Description:   "desc",
		Category:      "Windows",
		Severity:      "Low",
		AccessLevel:   "User Safe",
		EstimatedTime: "5 minutes",
		Tags:          tags,
		Steps:         []models.Step{{Title: "Do", Type: "info", Content: "it"}},
	}
}

func TestMergePrecedence(t *testing.T) {
	local := []models.FixEntry{entry("a", "Local")}
	remote := []models.FixEntry{entry("a", "Remote"), entry("b", "Remote B")}
	builtin := []models.FixEntry{entry("a", "Built-in"), entry("c", "Built-in C")}

	got := Merge(local, remote, builtin)
	if len(got) != 3 {
		t.Fatalf("merged length = %d, want 3", len(got))
	}
	byslug := map[string]string{}
	for _, e := range got {
		byslug[e.Slug] = e.Title
	}
	if byslug["a"] != "Local" {
		t.Errorf(`title for "a" = %q, want "Local"`, byslug["a"])
	}

	// Removing the local entry exposes the remote one.
	got = Merge(nil, remote, builtin)
	byslug = map[string]string{}
	for _, e := range got {
		byslug[e.Slug] = e.Title
	}
	if byslug["a"] != "Remote" {
		t.Errorf(`title for "a" after local removal = %q, want "Remote"`, byslug["a"])
	}
}

func TestMergeNoDuplicateSlugs(t *testing.T) {
	// Duplicates within a single tier must also collapse.
	local := []models.FixEntry{entry("x", "L1"), entry("x", "L2")}
	remote := []models.FixEntry{entry("x", "R"), entry("y", "R"), entry("y", "R2")}
	builtin := []models.FixEntry{entry("z", "B"), entry("z", "B2")}

	got := Merge(local, remote, builtin)
	seen := map[string]int{}
	for _, e := range got {
		seen[e.Slug]++
	}
	for slug, n := range seen {
		if n != 1 {
			t.Errorf("slug %q appears %d times", slug, n)
		}
	}
	if len(got) != 3 {
		t.Errorf("merged length = %d, want 3", len(got))
	}
}

func TestResolverRecomputesPerRead(t *testing.T) {
	localEntries := []models.FixEntry{entry("a", "Local")}
	r := NewResolver(
		func() []models.FixEntry { return localEntries },
		func() []models.FixEntry { return []models.FixEntry{entry("a", "Remote")} },
		func() []models.FixEntry { return nil },
	)

	if e, ok := r.Get("a"); !ok || e.Title != "Local" {
		t.Errorf("Get = %+v, %v", e, ok)
	}

	localEntries = nil
	if e, ok := r.Get("a"); !ok || e.Title != "Remote" {
		t.Errorf("Get after overlay change = %+v, %v", e, ok)
	}
}

func TestDerivedViewsDeterministic(t *testing.T) {
	a := entry("a", "A", "vpn", "outlook")
	a.Category = "Networking"
	b := entry("b", "B", "outlook", "teams")
	b.Category = "O365"

	r := NewResolver(
		func() []models.FixEntry { return nil },
		func() []models.FixEntry { return []models.FixEntry{a, b} },
		func() []models.FixEntry { return nil },
	)

	wantCats := []string{"Networking", "O365"}
	if got := r.Categories(); !reflect.DeepEqual(got, wantCats) {
		t.Errorf("Categories = %v, want %v", got, wantCats)
	}
	wantTags := []string{"outlook", "teams", "vpn"}
	if got := r.Tags(); !reflect.DeepEqual(got, wantTags) {
		t.Errorf("Tags = %v, want %v", got, wantTags)
	}
}
