// Package models defines the domain types for Fixport.
package models

import "time"

// Category values form a closed set. Entries with any other value are
// rejected at the validation boundary.
var Categories = []string{
	"Windows",
	"macOS",
	"Linux",
	"O365",
	"Networking",
	"Hardware",
	"Security",
}

// Severity values.
var Severities = []string{"Low", "Medium", "High"}

// AccessLevel values.
var AccessLevels = []string{"User Safe", "Admin Required"}

// StepTypes are the allowed step renderings.
var StepTypes = []string{"info", "command", "warning"}

// Step is one ordered instruction inside a fix entry. Steps have no
// identity of their own; order is execution order and is preserved exactly.
type Step struct {
	Title   string `json:"title"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// FixEntry is one canonical knowledge-base troubleshooting document.
type FixEntry struct {
	Slug          string   `json:"slug"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	Severity      string   `json:"severity"`
	AccessLevel   string   `json:"accessLevel"`
	EstimatedTime string   `json:"estimatedTime"`
	Tags          []string `json:"tags"`
	Steps         []Step   `json:"steps"`
}

// Clone returns a deep copy so callers can mutate freely.
func (e FixEntry) Clone() FixEntry {
	out := e
	if e.Tags != nil {
		out.Tags = make([]string, len(e.Tags))
		copy(out.Tags, e.Tags)
	}
	if e.Steps != nil {
		out.Steps = make([]Step, len(e.Steps))
		copy(out.Steps, e.Steps)
	}
	return out
}

// Draft is an author's in-progress working copy. It has the same shape as
// FixEntry but fields may be empty or invalid mid-edit; a draft is never
// published without passing through schema.Normalize first.
type Draft FixEntry

// StoreDocumentVersion is the current shared document format version.
const StoreDocumentVersion = 1

// StoreDocument is the shared versioned JSON document behind remote
// publishing. Entries never contain duplicate slugs and every element
// passes full validation before the document is written.
type StoreDocument struct {
	Version   int        `json:"version"`
	UpdatedAt time.Time  `json:"updatedAt"`
	UpdatedBy string     `json:"updatedBy,omitempty"`
	Entries   []FixEntry `json:"entries"`
}

// Clone returns a deep copy of the document.
func (d StoreDocument) Clone() StoreDocument {
	out := d
	out.Entries = make([]FixEntry, len(d.Entries))
	for i, e := range d.Entries {
		out.Entries[i] = e.Clone()
	}
	return out
}
