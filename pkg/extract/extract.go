// Package extract turns raw health-report text into candidate parameter
// tuples. Extraction strategies are interchangeable per report-vendor format;
// the registry selects one by document format metadata and falls back to the
// generic strategy.
package extract

import (
	"regexp"
	"strings"
)

// Candidate is one extracted (name, value, metadata) tuple. Name is stored in
// cleaned form (lowercase, single-spaced); Value is the raw extracted result.
type Candidate struct {
	Name           string
	Value          string
	Unit           string
	ReferenceRange string
	Method         string
}

// Result is the outcome of running a strategy over one document's text.
// Dropped counts recognized name labels whose candidate failed per-candidate
// validation; those are non-fatal and simply skipped.
type Result struct {
	Candidates []Candidate
	Dropped    int
}

// Strategy extracts candidates from raw document text. Implementations must
// be safe for concurrent use; extraction shares no mutable state across
// documents.
type Strategy interface {
	// Name identifies the strategy in logs and registry lookups.
	Name() string
	// Extract produces the ordered candidate sequence for one document.
	Extract(text string) (Result, error)
}

// Registry maps document format metadata to extraction strategies.
type Registry struct {
	strategies map[string]Strategy
	fallback   Strategy
}

// NewRegistry builds a registry with the given fallback strategy.
func NewRegistry(fallback Strategy) *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
		fallback:   fallback,
	}
}

// Register associates a document format with a strategy.
func (r *Registry) Register(format string, s Strategy) {
	r.strategies[strings.ToLower(strings.TrimSpace(format))] = s
}

// Select returns the strategy for the given document format, or the fallback
// when the format is unknown or empty.
func (r *Registry) Select(format string) Strategy {
	if s, ok := r.strategies[strings.ToLower(strings.TrimSpace(format))]; ok {
		return s
	}
	return r.fallback
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// CleanName lowercases a raw parameter name, trims it, and collapses interior
// whitespace. This is the stored form of the extracted name.
func CleanName(name string) string {
	return whitespacePattern.ReplaceAllString(strings.TrimSpace(strings.ToLower(name)), " ")
}

var nonAlphanumPattern = regexp.MustCompile(`[^a-z0-9]`)

// normalizeKey reduces a name to its alphanumeric skeleton for in-document
// deduplication, so "HDL Cholesterol" and "hdl-cholesterol" collapse.
func normalizeKey(name string) string {
	return nonAlphanumPattern.ReplaceAllString(strings.ToLower(name), "")
}

// genericWords are adjectives that show up around result tables but are not
// part of a test name.
var genericWords = map[string]struct{}{
	"high":       {},
	"low":        {},
	"borderline": {},
	"normal":     {},
	"desirable":  {},
	"above":      {},
	"below":      {},
	"ref":        {},
	"method":     {},
}

// validName reports whether a candidate name looks like a real test name:
// at least two words, and not mostly made of generic range adjectives.
func validName(name string) bool {
	words := strings.Fields(name)
	if len(words) < 2 {
		return false
	}
	generic := 0
	for _, w := range words {
		if _, ok := genericWords[strings.ToLower(w)]; ok {
			generic++
		}
	}
	return float64(generic) < float64(len(words))/2
}

// isGenericOnly reports whether every word in the name is a generic range
// adjective, i.e. the "name" is really a classification like "borderline high".
func isGenericOnly(name string) bool {
	words := strings.Fields(name)
	if len(words) == 0 {
		return true
	}
	for _, w := range words {
		if _, ok := genericWords[strings.ToLower(w)]; !ok {
			return false
		}
	}
	return true
}
