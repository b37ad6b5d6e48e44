package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/rescuedex/internal/domain/search/method"
)

// Classification limits.
const (
	// MaxKeywords caps the extracted keyword list.
	MaxKeywords = 10
	// FallbackKeywords is the number of query words kept when classification fails closed.
	FallbackKeywords = 5
	// FallbackConfidence is the confidence reported by the fail-closed path.
	FallbackConfidence = 0.3
)

// Analysis is the classifier's immutable decision for one query.
type Analysis struct {
	query          string
	recommended    method.Method
	keywords       []string
	categories     []string
	locationFilter string
	exactName      string
	confidence     float64
	reasoning      string
	fallback       bool
}

// Params holds the raw fields of an analysis before validation.
type Params struct {
	Query          string
	Recommended    method.Method
	Keywords       []string
	Categories     []string
	LocationFilter string
	ExactName      string
	Confidence     float64
	Reasoning      string
}

// New validates and normalizes an analysis.
// Recommended must be keyword, semantic or hybrid; confidence must be in [0,1].
// Keywords are trimmed, lowercased, deduplicated and capped at MaxKeywords.
// Categories become a sorted lowercase set.
func New(p Params) (Analysis, error) {
	if !p.Recommended.IsForceable() {
		return Analysis{}, fmt.Errorf("invalid recommended method %q", p.Recommended)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return Analysis{}, fmt.Errorf("confidence %v out of range [0,1]", p.Confidence)
	}

	return Analysis{
		query:          p.Query,
		recommended:    p.Recommended,
		keywords:       normalizeKeywords(p.Keywords),
		categories:     normalizeSet(p.Categories),
		locationFilter: strings.TrimSpace(p.LocationFilter),
		exactName:      strings.TrimSpace(p.ExactName),
		confidence:     p.Confidence,
		reasoning:      p.Reasoning,
	}, nil
}

// Fallback is the permissive fail-closed analysis: hybrid, first words of the query,
// low confidence, and a reasoning naming cause.
func Fallback(query string, cause error) Analysis {
	words := strings.Fields(strings.ToLower(query))
	if len(words) > FallbackKeywords {
		words = words[:FallbackKeywords]
	}
	reason := "fallback to hybrid"
	if cause != nil {
		reason = "fallback to hybrid: " + cause.Error()
	}
	return Analysis{
		query:       query,
		recommended: method.Hybrid,
		keywords:    words,
		confidence:  FallbackConfidence,
		reasoning:   reason,
		fallback:    true,
	}
}

// Forced returns the analysis used when classification is skipped for a forced method.
func Forced(query string, m method.Method, reasoning string) Analysis {
	return Analysis{
		query:       query,
		recommended: m,
		confidence:  1,
		reasoning:   reasoning,
	}
}

// Empty returns the analysis for a blank query: nothing is searched.
func Empty(query string) Analysis {
	return Analysis{
		query:       query,
		recommended: method.Hybrid,
		reasoning:   "empty query: nothing to search",
	}
}

// Query returns the original query text.
func (a Analysis) Query() string { return a.query }

// RecommendedMethod returns the classifier's recommended retrieval method.
func (a Analysis) RecommendedMethod() method.Method { return a.recommended }

// Keywords returns a copy of the extracted keywords (at most MaxKeywords).
func (a Analysis) Keywords() []string { return append([]string(nil), a.keywords...) }

// Categories returns a copy of the category filter set, sorted.
func (a Analysis) Categories() []string { return append([]string(nil), a.categories...) }

// LocationFilter returns the location constraint, empty when none.
func (a Analysis) LocationFilter() string { return a.locationFilter }

// ExactName returns the entity name for a direct lookup, empty when not a lookup.
func (a Analysis) ExactName() string { return a.exactName }

// Confidence returns the classifier's confidence in [0,1].
func (a Analysis) Confidence() float64 { return a.confidence }

// Reasoning returns the diagnostic explanation. Never parsed.
func (a Analysis) Reasoning() string { return a.reasoning }

// IsFallback reports whether this analysis came from the fail-closed path.
func (a Analysis) IsFallback() bool { return a.fallback }

// HasFilters reports whether any keyword, category or location constraint is present.
func (a Analysis) HasFilters() bool {
	return len(a.keywords) > 0 || len(a.categories) > 0 || a.locationFilter != ""
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, kw := range in {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
		if len(out) == MaxKeywords {
			break
		}
	}
	return out
}

func normalizeSet(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
