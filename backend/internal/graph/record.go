package graph

import (
	"sort"
	"strings"
)

// Record is the flat attribute map of one entity record. Fields the engine does
// not read are carried through untouched.
type Record map[string]any

// Field names read by the heuristics and the stores.
const (
	FieldID           = "id"
	FieldTitle        = "title"
	FieldContent      = "content"
	FieldDescription  = "description"
	FieldTags         = "tags"
	FieldTopics       = "topics"
	FieldProject      = "project"
	FieldOrganization = "organization"
	FieldName         = "name"
	FieldEmail        = "email"
	FieldStatus       = "status"
	FieldCreatedAt    = "created_at"
	FieldUpdatedAt    = "updated_at"
)

// ID returns the record id or "" when missing.
func (r Record) ID() string { return r.StringField(FieldID) }

// Title returns the title field.
func (r Record) Title() string { return r.StringField(FieldTitle) }

// Content returns the content field.
func (r Record) Content() string { return r.StringField(FieldContent) }

// Description returns the description field.
func (r Record) Description() string { return r.StringField(FieldDescription) }

// Project returns the project field.
func (r Record) Project() string { return r.StringField(FieldProject) }

// Organization returns the organization field.
func (r Record) Organization() string { return r.StringField(FieldOrganization) }

// Name returns the name field.
func (r Record) Name() string { return r.StringField(FieldName) }

// Tags returns the tag set.
func (r Record) Tags() StringSet { return r.Set(FieldTags) }

// Topics returns the topic set (documents).
func (r Record) Topics() StringSet { return r.Set(FieldTopics) }

// StringField returns a string field, "" when missing or not a string.
func (r Record) StringField(field string) string {
	return getStringFromMap(r, field, "")
}

// Set returns a string-list field as a set; non-string members are dropped.
func (r Record) Set(field string) StringSet {
	return NewStringSet(getStringSliceFromMap(r, field)...)
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge writes every key of patch into r (merge-by-key).
func (r Record) Merge(patch map[string]any) {
	for k, v := range patch {
		r[k] = cloneValue(v)
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Record(t).Clone())
	case Record:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		if t == nil {
			return t
		}
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}

// StringSet is a set of strings.
type StringSet map[string]struct{}

// NewStringSet builds a set from values.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Has reports membership (exact, case-sensitive).
func (s StringSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Intersect returns the members present in both sets.
func (s StringSet) Intersect(other StringSet) StringSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(StringSet)
	for v := range small {
		if large.Has(v) {
			out[v] = struct{}{}
		}
	}
	return out
}

// Union returns the members present in either set.
func (s StringSet) Union(other StringSet) StringSet {
	out := make(StringSet, len(s)+len(other))
	for v := range s {
		out[v] = struct{}{}
	}
	for v := range other {
		out[v] = struct{}{}
	}
	return out
}

// Sorted returns the members in lexical order.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// containsFold reports whether needle is a non-empty, case-insensitive
// substring of haystack.
func containsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
