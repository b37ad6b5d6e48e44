package chi

import (
	"context"

	"github.com/kailas-cloud/rescuedex/internal/domain/search/analysis"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/request"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/result"
	"github.com/kailas-cloud/rescuedex/internal/domain/vocabulary"
	healthuc "github.com/kailas-cloud/rescuedex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/rescuedex/internal/usecase/search"
)

// SearchService is the retrieval API consumed by the HTTP layer.
type SearchService interface {
	SmartSearch(ctx context.Context, req request.Request) (searchuc.Response, error)
	FindSimilar(ctx context.Context, req request.SimilarRequest) ([]result.Similar, error)
	Analyze(ctx context.Context, query string) (analysis.Analysis, error)
	RefreshVocabulary(ctx context.Context) (vocabulary.Vocabulary, error)
}

// HealthService reports component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}
