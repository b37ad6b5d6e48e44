package search

import (
	"context"
	"math"
	"strings"

	"github.com/kailas-cloud/rescuedex/internal/domain"
	"github.com/kailas-cloud/rescuedex/internal/domain/entity"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/method"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/result"
)

// DefaultKeywordSaturation is the match count at which the keyword score reaches 1.
const DefaultKeywordSaturation = 5

// KeywordRetriever matches entities by attribute name/category substrings and location.
type KeywordRetriever struct {
	catalog    Catalog
	saturation float64
}

// NewKeywordRetriever creates a keyword retriever. saturation <= 0 uses DefaultKeywordSaturation.
func NewKeywordRetriever(catalog Catalog, saturation float64) *KeywordRetriever {
	if saturation <= 0 {
		saturation = DefaultKeywordSaturation
	}
	return &KeywordRetriever{catalog: catalog, saturation: saturation}
}

// Search returns entities with at least one matching attribute that satisfy the location filter.
// An attribute matches when its name or category contains any keyword, or its category equals
// a requested category (all case-insensitive). With no keywords and no categories, every
// attribute of an entity in the filtered location matches. With no constraint at all the
// result is empty.
func (r *KeywordRetriever) Search(
	ctx context.Context, keywords, categories []string, locationFilter string, limit int,
) ([]result.Result, error) {
	kws := lowerNonEmpty(keywords)
	cats := lowerNonEmpty(categories)
	loc := strings.ToLower(strings.TrimSpace(locationFilter))

	if len(kws) == 0 && len(cats) == 0 && loc == "" {
		return []result.Result{}, nil
	}

	entities, err := r.catalog.Entities(ctx)
	if err != nil {
		return nil, domain.Unavailable("keyword search", err)
	}

	locationOnly := len(kws) == 0 && len(cats) == 0
	results := make([]result.Result, 0)
	for _, e := range entities {
		if loc != "" && !strings.Contains(strings.ToLower(e.Location()), loc) {
			continue
		}

		var matched []result.AttributeMatch
		for _, a := range e.Attributes() {
			if locationOnly || attributeMatches(a, kws, cats) {
				matched = append(matched, result.AttributeMatch{
					ID: a.ID(), Name: a.Name(), Category: a.Category(),
				})
			}
		}
		if len(matched) == 0 {
			continue
		}

		score := math.Min(float64(len(matched))/r.saturation, 1)
		results = append(results, result.New(e.ID(), e.Name(), e.Kind(), score, method.Keyword, result.Detail{
			Location:          e.Location(),
			MatchedAttributes: matched,
			MatchCount:        len(matched),
			FoundBy:           result.FoundByKeyword,
		}))
	}

	return rank(results, limit), nil
}

func attributeMatches(a entity.Attribute, keywords, categories []string) bool {
	name := strings.ToLower(a.Name())
	category := strings.ToLower(a.Category())
	for _, kw := range keywords {
		if strings.Contains(name, kw) || strings.Contains(category, kw) {
			return true
		}
	}
	for _, c := range categories {
		if category == c {
			return true
		}
	}
	return false
}

func lowerNonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
