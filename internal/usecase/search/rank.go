package search

import (
	"sort"

	"github.com/kailas-cloud/rescuedex/internal/domain/search/result"
)

// rank orders results by score desc, then name asc, then id asc, and truncates to limit.
// limit <= 0 keeps everything.
func rank(results []result.Result, limit int) []result.Result {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score() != b.Score() {
			return a.Score() > b.Score()
		}
		if a.Name() != b.Name() {
			return a.Name() < b.Name()
		}
		return a.ID() < b.ID()
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
