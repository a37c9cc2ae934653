// Package schema validates and normalizes untrusted fix-entry input. It is
// the single validation boundary shared by the local publish overlay, the
// catalog's ingestion of remote snapshot data, and the remote publish
// service: data accepted by one tier is guaranteed valid in all others.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/calloway/fixport/internal/models"
)

var slugRe = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidationError enumerates every rule the input violated.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "schema: invalid fix entry: " + strings.Join(e.Issues, "; ")
}

// Normalize coerces untrusted input into a canonical FixEntry or returns a
// *ValidationError. Side effects are always applied: every string field is
// trimmed, tags are lowercased and de-duplicated preserving first-seen
// order, and step titles/contents are trimmed. Normalize is idempotent for
// any input that passes validation.
func Normalize(input any) (*models.FixEntry, error) {
	e, err := coerce(input)
	if err != nil {
		return nil, &ValidationError{Issues: []string{err.Error()}}
	}

	e.Slug = strings.TrimSpace(e.Slug)
	e.Title = strings.TrimSpace(e.Title)
	e.Description = strings.TrimSpace(e.Description)
	e.Category = strings.TrimSpace(e.Category)
	e.Severity = strings.TrimSpace(e.Severity)
	e.AccessLevel = strings.TrimSpace(e.AccessLevel)
	e.EstimatedTime = strings.TrimSpace(e.EstimatedTime)
	e.Tags = NormalizeTags(e.Tags)
	for i := range e.Steps {
		e.Steps[i].Title = strings.TrimSpace(e.Steps[i].Title)
		e.Steps[i].Type = strings.TrimSpace(e.Steps[i].Type)
		e.Steps[i].Content = strings.TrimSpace(e.Steps[i].Content)
	}

	issues := validate(e)
	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	return e, nil
}

// IsValid reports whether input passes the same rule set Normalize applies.
// The editor UI uses this predicate for field-level feedback; the overlay
// uses it to drop corrupted stored records.
func IsValid(input any) bool {
	_, err := Normalize(input)
	return err == nil
}

// NormalizeTags lowercases and trims tags, drops empties, and de-duplicates
// while preserving the first occurrence order of the surviving tags.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func validate(e *models.FixEntry) []string {
	var issues []string

	err := validation.ValidateStruct(e,
		validation.Field(&e.Slug, validation.Required,
			validation.Match(slugRe).Error("must be lowercase words separated by single hyphens")),
		validation.Field(&e.Title, validation.Required),
		validation.Field(&e.Description, validation.Required),
		validation.Field(&e.EstimatedTime, validation.Required),
		validation.Field(&e.Category, validation.Required, validation.In(toAny(models.Categories)...)),
		validation.Field(&e.Severity, validation.Required, validation.In(toAny(models.Severities)...)),
		validation.Field(&e.AccessLevel, validation.Required, validation.In(toAny(models.AccessLevels)...)),
		validation.Field(&e.Tags, validation.Required.Error("at least one tag is required")),
		validation.Field(&e.Steps, validation.Required.Error("at least one step is required")),
	)
	if err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			for field, ferr := range verrs {
				issues = append(issues, field+": "+ferr.Error())
			}
		} else {
			issues = append(issues, err.Error())
		}
	}

	for i, step := range e.Steps {
		if step.Title == "" {
			issues = append(issues, fmt.Sprintf("steps[%d].title: cannot be blank", i))
		}
		if step.Content == "" {
			issues = append(issues, fmt.Sprintf("steps[%d].content: cannot be blank", i))
		}
		if !contains(models.StepTypes, step.Type) {
			issues = append(issues, fmt.Sprintf("steps[%d].type: must be one of info, command, warning", i))
		}
	}

	sort.Strings(issues)
	return issues
}

// coerce accepts the shapes callers actually hand us: domain values from
// in-process callers and raw JSON from the HTTP and MCP boundaries.
func coerce(input any) (*models.FixEntry, error) {
	switch v := input.(type) {
	case nil:
		return nil, errors.New("fix entry is required")
	case *models.FixEntry:
		if v == nil {
			return nil, errors.New("fix entry is required")
		}
		c := v.Clone()
		return &c, nil
	case models.FixEntry:
		c := v.Clone()
		return &c, nil
	case models.Draft:
		c := models.FixEntry(v).Clone()
		return &c, nil
	case json.RawMessage:
		return decode(v)
	case []byte:
		return decode(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, errors.New("fix entry is not a JSON object")
		}
		return decode(raw)
	}
}

func decode(raw []byte) (*models.FixEntry, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errors.New("fix entry is required")
	}
	var e models.FixEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, errors.New("fix entry is not a JSON object")
	}
	return &e, nil
}

func toAny(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func contains(values []string, v string) bool {
	for _, c := range values {
		if c == v {
			return true
		}
	}
	return false
}
