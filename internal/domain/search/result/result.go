package result

import "github.com/kailas-cloud/rescuedex/internal/domain/search/method"

// Provenance tags for Detail.FoundBy.
const (
	FoundByKeyword  = "keyword"
	FoundBySemantic = "semantic"
	FoundByBoth     = "both"
	FoundByExact    = "exact"
)

// AttributeMatch is one attribute that contributed to a hit.
// Similarity is set only when the semantic path scored the attribute.
type AttributeMatch struct {
	ID         string
	Name       string
	Category   string
	Similarity *float64
}

// Detail carries the auxiliary fields of a hit.
type Detail struct {
	Location          string
	MatchedAttributes []AttributeMatch
	MatchCount        int
	BestSimilarity    *float64
	FoundBy           string
}

// Clone returns a deep copy of the detail.
func (d Detail) Clone() Detail {
	out := d
	out.MatchedAttributes = make([]AttributeMatch, len(d.MatchedAttributes))
	for i, m := range d.MatchedAttributes {
		out.MatchedAttributes[i] = m
		if m.Similarity != nil {
			out.MatchedAttributes[i].Similarity = Float(*m.Similarity)
		}
	}
	if d.BestSimilarity != nil {
		out.BestSimilarity = Float(*d.BestSimilarity)
	}
	return out
}

// Result is a single ranked hit.
type Result struct {
	id     string
	name   string
	kind   string
	score  float64
	method method.Method
	detail Detail
}

// New creates a search result. score is clamped to [0,1].
func New(id, name, kind string, score float64, m method.Method, detail Detail) Result {
	return Result{
		id:     id,
		name:   name,
		kind:   kind,
		score:  clamp(score),
		method: m,
		detail: detail,
	}
}

// ID returns the entity identifier.
func (r Result) ID() string { return r.id }

// Name returns the entity display name.
func (r Result) Name() string { return r.name }

// Kind returns the entity kind.
func (r Result) Kind() string { return r.kind }

// Score returns the relevance score in [0,1].
func (r Result) Score() float64 { return r.score }

// Method returns the path that produced or merged the hit.
func (r Result) Method() method.Method { return r.method }

// Detail returns a copy of the auxiliary fields.
func (r Result) Detail() Detail { return r.detail.Clone() }

// SameAs reports whether both results refer to the same entity.
func (r Result) SameAs(other Result) bool { return r.id == other.id }

// Similar is one attribute returned by a catalog-level similarity lookup.
type Similar struct {
	ID         string
	Name       string
	Category   string
	Similarity float64
	Distance   float64
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
