package search

import (
	"fmt"

	"github.com/kailas-cloud/rescuedex/internal/domain"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/method"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/result"
)

// Weights are the per-path multipliers of the merged score.
type Weights struct {
	Keyword  float64
	Semantic float64
}

// DefaultWeights favors semantic similarity over keyword match counts.
func DefaultWeights() Weights {
	return Weights{Keyword: 0.4, Semantic: 0.6}
}

// MergeInconsistencyError is raised (via panic) when merged output breaks a merge invariant.
type MergeInconsistencyError struct {
	ID     string
	Reason string
}

func (e *MergeInconsistencyError) Error() string {
	return fmt.Sprintf("%s: result %q %s", domain.ErrMergeInconsistency, e.ID, e.Reason)
}

func (e *MergeInconsistencyError) Unwrap() error { return domain.ErrMergeInconsistency }

// Merger combines keyword and semantic results by weighted score.
type Merger struct {
	weights Weights
}

// NewMerger creates a merger with the given weights.
func NewMerger(w Weights) *Merger {
	return &Merger{weights: w}
}

// Weights returns the configured weights.
func (m *Merger) Weights() Weights { return m.weights }

// Merge unions both lists by id (first occurrence per list wins) and scores each entity:
// both paths => wk*k + ws*s (hybrid), one path => that path's weight times its score.
// Output is ranked and truncated to limit. Panics with *MergeInconsistencyError if an output
// id is missing from both inputs.
func (m *Merger) Merge(keyword, semantic []result.Result, limit int) []result.Result {
	kwByID, kwOrder := index(keyword)
	semByID, semOrder := index(semantic)

	ids := make([]string, 0, len(kwOrder)+len(semOrder))
	ids = append(ids, kwOrder...)
	for _, id := range semOrder {
		if _, ok := kwByID[id]; !ok {
			ids = append(ids, id)
		}
	}

	merged := make([]result.Result, 0, len(ids))
	for _, id := range ids {
		kw, inKW := kwByID[id]
		sem, inSem := semByID[id]

		switch {
		case inKW && inSem:
			score := m.weights.Keyword*kw.Score() + m.weights.Semantic*sem.Score()
			merged = append(merged, result.New(id, sem.Name(), sem.Kind(), score, method.Hybrid,
				mergeDetail(kw.Detail(), sem.Detail())))
		case inSem:
			d := sem.Detail()
			d.FoundBy = string(method.Semantic)
			merged = append(merged, result.New(id, sem.Name(), sem.Kind(),
				m.weights.Semantic*sem.Score(), method.Semantic, d))
		case inKW:
			d := kw.Detail()
			d.FoundBy = string(method.Keyword)
			merged = append(merged, result.New(id, kw.Name(), kw.Kind(),
				m.weights.Keyword*kw.Score(), method.Keyword, d))
		}
	}

	verify(merged, kwByID, semByID)
	return rank(merged, limit)
}

// mergeDetail uses the semantic detail as base. Matched attributes are unioned by id
// in keyword order, semantic entries replacing keyword ones, then semantic-only entries appended.
func mergeDetail(kw, sem result.Detail) result.Detail {
	out := sem
	if out.Location == "" {
		out.Location = kw.Location
	}

	semAttrs := make(map[string]result.AttributeMatch, len(sem.MatchedAttributes))
	for _, a := range sem.MatchedAttributes {
		if _, dup := semAttrs[a.ID]; !dup {
			semAttrs[a.ID] = a
		}
	}

	attrs := make([]result.AttributeMatch, 0, len(kw.MatchedAttributes)+len(sem.MatchedAttributes))
	seen := make(map[string]struct{}, cap(attrs))
	for _, a := range kw.MatchedAttributes {
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		if s, ok := semAttrs[a.ID]; ok {
			a = s
		}
		attrs = append(attrs, a)
	}
	for _, a := range sem.MatchedAttributes {
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		attrs = append(attrs, a)
	}

	out.MatchedAttributes = attrs
	out.MatchCount = len(attrs)
	out.FoundBy = result.FoundByBoth
	return out
}

func index(results []result.Result) (map[string]result.Result, []string) {
	byID := make(map[string]result.Result, len(results))
	order := make([]string, 0, len(results))
	for _, r := range results {
		if _, dup := byID[r.ID()]; dup {
			continue
		}
		byID[r.ID()] = r
		order = append(order, r.ID())
	}
	return byID, order
}

func verify(merged []result.Result, kw, sem map[string]result.Result) {
	seen := make(map[string]struct{}, len(merged))
	for _, r := range merged {
		_, inKW := kw[r.ID()]
		_, inSem := sem[r.ID()]
		if !inKW && !inSem {
			panic(&MergeInconsistencyError{ID: r.ID(), Reason: "is in neither input"})
		}
		if _, dup := seen[r.ID()]; dup {
			panic(&MergeInconsistencyError{ID: r.ID(), Reason: "appears twice in output"})
		}
		seen[r.ID()] = struct{}{}
	}
	if len(seen) != len(unionIDs(kw, sem)) {
		panic(&MergeInconsistencyError{Reason: "output does not cover the input union"})
	}
}

func unionIDs(a, b map[string]result.Result) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for id := range a {
		out[id] = struct{}{}
	}
	for id := range b {
		out[id] = struct{}{}
	}
	return out
}
