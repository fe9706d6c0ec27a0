package graph

import (
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// Text-match weights. Tag matches count once per entity however many tags hit.
const (
	scorePrimary   = 3.0
	scoreSecondary = 2.0
	scoreTertiary  = 1.5
	scoreTag       = 1.0

	snippetContext = 50
	snippetPreview = 100
)

// DefaultSearchKinds are searched when TextSearch is given no kinds.
var DefaultSearchKinds = []Kind{KindNote, KindTask, KindContact}

// SearchHit is one text-search result.
type SearchHit struct {
	EntityRef
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

// TextSearch scores every entity of the given kinds against query with
// case-insensitive substring matching and returns the hits best first. Equal
// scores keep graph order. A limit <= 0 returns every hit.
//
// Notes score title 3.0 and content 2.0, tasks title 3.0 and description 2.0,
// contacts name 3.0, email 2.0 and organization 1.5, documents title 3.0 and
// content 2.0. Any matching tag adds 1.0.
func (q *QueryEngine) TextSearch(query string, kinds []Kind, limit int) []SearchHit {
	hits := make([]SearchHit, 0)
	query = strings.TrimSpace(query)
	if query == "" {
		return hits
	}
	if len(kinds) == 0 {
		kinds = DefaultSearchKinds
	}
	wanted := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}

	for _, n := range q.graph.nodes {
		if !wanted[n.Key.Kind] {
			continue
		}
		score := textScore(n.Key.Kind, n.Record, query)
		if score == 0 {
			continue
		}
		hits = append(hits, SearchHit{
			EntityRef: refFor(n),
			Score:     score,
			Snippet:   snippetFor(n.Key.Kind, n.Record, query),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	q.logger.Debug("Text search finished", zap.String("query", query), zap.Int("hits", len(hits)))
	return hits
}

func textScore(kind Kind, rec Record, query string) float64 {
	var score float64
	add := func(field string, weight float64) {
		if containsFold(rec.StringField(field), query) {
			score += weight
		}
	}

	switch kind {
	case KindNote, KindDocument:
		add(FieldTitle, scorePrimary)
		add(FieldContent, scoreSecondary)
	case KindTask:
		add(FieldTitle, scorePrimary)
		add(FieldDescription, scoreSecondary)
	case KindContact:
		add(FieldName, scorePrimary)
		add(FieldEmail, scoreSecondary)
		add(FieldOrganization, scoreTertiary)
	}

	for tag := range rec.Tags() {
		if containsFold(tag, query) {
			score += scoreTag
			break
		}
	}
	return score
}

func snippetFor(kind Kind, rec Record, query string) string {
	switch kind {
	case KindTask:
		return extractSnippet(rec.Description(), query)
	case KindContact:
		var parts []string
		if v := rec.Name(); v != "" {
			parts = append(parts, "Name: "+v)
		}
		if v := rec.StringField(FieldEmail); v != "" {
			parts = append(parts, "Email: "+v)
		}
		if v := rec.Organization(); v != "" {
			parts = append(parts, "Organization: "+v)
		}
		return strings.Join(parts, ", ")
	default:
		return extractSnippet(rec.Content(), query)
	}
}

// extractSnippet returns up to snippetContext runes either side of the first
// match, or the opening of the text when query does not occur in it.
func extractSnippet(text, query string) string {
	if text == "" {
		return ""
	}
	runes := []rune(text)
	pos := indexFold(runes, []rune(query))
	if pos < 0 {
		if len(runes) > snippetPreview {
			return string(runes[:snippetPreview]) + "..."
		}
		return text
	}

	start := max(0, pos-snippetContext)
	end := min(len(runes), pos+len([]rune(query))+snippetContext)
	snippet := string(runes[start:end])
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(runes) {
		snippet += "..."
	}
	return snippet
}

// indexFold is a rune-wise case-insensitive index of needle in haystack.
func indexFold(haystack, needle []rune) int {
	if len(needle) == 0 {
		return 0
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, r := range needle {
			if unicode.ToLower(haystack[i+j]) != unicode.ToLower(r) {
				continue outer
			}
		}
		return i
	}
	return -1
}
