package vocabulary

import (
	"sort"
	"strings"
)

// MaxAttributes caps the attribute names exposed to classifiers.
const MaxAttributes = 100

// Vocabulary is the known catalog terms a classifier may recognize in a query.
type Vocabulary struct {
	attributes []string
	categories []string
	locations  []string
	entities   []string
}

// New builds a vocabulary. Each list is deduplicated case-insensitively
// (first spelling wins), blanks dropped and sorted. Attribute names are capped at MaxAttributes.
func New(attributes, categories, locations, entities []string) Vocabulary {
	attrs := dedupSorted(attributes)
	if len(attrs) > MaxAttributes {
		attrs = attrs[:MaxAttributes]
	}
	return Vocabulary{
		attributes: attrs,
		categories: dedupSorted(categories),
		locations:  dedupSorted(locations),
		entities:   dedupSorted(entities),
	}
}

// Attributes returns known attribute names.
func (v Vocabulary) Attributes() []string { return append([]string(nil), v.attributes...) }

// Categories returns known attribute categories.
func (v Vocabulary) Categories() []string { return append([]string(nil), v.categories...) }

// Locations returns known location tags.
func (v Vocabulary) Locations() []string { return append([]string(nil), v.locations...) }

// Entities returns known entity names.
func (v Vocabulary) Entities() []string { return append([]string(nil), v.entities...) }

// IsEmpty reports whether no terms are known.
func (v Vocabulary) IsEmpty() bool {
	return len(v.attributes) == 0 && len(v.categories) == 0 &&
		len(v.locations) == 0 && len(v.entities) == 0
}

func dedupSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i]), strings.ToLower(out[j])
		if li != lj {
			return li < lj
		}
		return out[i] < out[j]
	})
	return out
}
