package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/rescuedex/internal/domain"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/method"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/result"
)

// SemanticRetriever ranks entities by the best cosine similarity of their attributes to the query.
type SemanticRetriever struct {
	catalog Catalog
	embed   Embedder
}

// NewSemanticRetriever creates a semantic retriever.
func NewSemanticRetriever(catalog Catalog, embed Embedder) *SemanticRetriever {
	return &SemanticRetriever{catalog: catalog, embed: embed}
}

// Search embeds the query and scores every embedded attribute. Each entity keeps its best
// similarity as score; all scored attributes are reported in the detail. Attributes without
// an embedding are skipped. Aggregation happens before the limit.
func (r *SemanticRetriever) Search(ctx context.Context, query string, limit int) ([]result.Result, error) {
	vec, err := r.vectorize(ctx, query)
	if err != nil {
		return nil, err
	}

	entities, err := r.catalog.Entities(ctx)
	if err != nil {
		return nil, domain.Unavailable("semantic search", err)
	}

	results := make([]result.Result, 0)
	for _, e := range entities {
		var matched []result.AttributeMatch
		best := -1.0
		for _, a := range e.Attributes() {
			if !a.HasEmbedding() {
				continue
			}
			sim, ok, err := similarity(a.Embedding(), vec)
			if err != nil {
				return nil, fmt.Errorf("attribute %q: %w", a.ID(), err)
			}
			if !ok {
				continue
			}
			matched = append(matched, result.AttributeMatch{
				ID: a.ID(), Name: a.Name(), Category: a.Category(), Similarity: result.Float(sim),
			})
			if sim > best {
				best = sim
			}
		}
		if len(matched) == 0 {
			continue
		}

		sortBySimilarity(matched)
		results = append(results, result.New(e.ID(), e.Name(), e.Kind(), best, method.Semantic, result.Detail{
			Location:          e.Location(),
			MatchedAttributes: matched,
			MatchCount:        len(matched),
			BestSimilarity:    result.Float(best),
			FoundBy:           result.FoundBySemantic,
		}))
	}

	return rank(results, limit), nil
}

// SimilarAttributes ranks catalog attributes (independent of entities) by similarity to name,
// excluding attributes whose name equals name case-insensitively.
func (r *SemanticRetriever) SimilarAttributes(ctx context.Context, name string, limit int) ([]result.Similar, error) {
	vec, err := r.vectorize(ctx, name)
	if err != nil {
		return nil, err
	}

	attrs, err := r.catalog.Attributes(ctx)
	if err != nil {
		return nil, domain.Unavailable("similar attributes", err)
	}

	target := strings.TrimSpace(name)
	out := make([]result.Similar, 0, len(attrs))
	for _, a := range attrs {
		if strings.EqualFold(strings.TrimSpace(a.Name()), target) || !a.HasEmbedding() {
			continue
		}
		d, err := domain.CosineDistance(a.Embedding(), vec)
		if errors.Is(err, domain.ErrZeroVector) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", a.ID(), err)
		}
		out = append(out, result.Similar{
			ID: a.ID(), Name: a.Name(), Category: a.Category(),
			Similarity: 1 - d, Distance: d,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *SemanticRetriever) vectorize(ctx context.Context, text string) ([]float32, error) {
	res, err := r.embed.Embed(ctx, text)
	if err != nil {
		return nil, domain.Unavailable("vectorize query", err)
	}
	if len(res.Embedding) == 0 {
		return nil, domain.Unavailable("vectorize query", errors.New("empty embedding"))
	}
	return res.Embedding, nil
}

// similarity returns 1 - cosine distance. ok is false for zero vectors.
func similarity(a, b []float32) (float64, bool, error) {
	d, err := domain.CosineDistance(a, b)
	if errors.Is(err, domain.ErrZeroVector) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err //nolint:wrapcheck // wrapped by caller with attribute id
	}
	return 1 - d, true, nil
}

func sortBySimilarity(matches []result.AttributeMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		si, sj := *matches[i].Similarity, *matches[j].Similarity
		if si != sj {
			return si > sj
		}
		if matches[i].Name != matches[j].Name {
			return matches[i].Name < matches[j].Name
		}
		return matches[i].ID < matches[j].ID
	})
}
