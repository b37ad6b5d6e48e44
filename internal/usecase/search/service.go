package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/rescuedex/internal/domain"
	"github.com/kailas-cloud/rescuedex/internal/domain/entity"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/analysis"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/method"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/request"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/result"
	"github.com/kailas-cloud/rescuedex/internal/domain/vocabulary"
	logpkg "github.com/kailas-cloud/rescuedex/internal/logger"
	"github.com/kailas-cloud/rescuedex/internal/metrics"
)

// DefaultTimeout bounds a search when neither the caller nor the config sets a deadline.
const DefaultTimeout = 10 * time.Second

// Stage names the pipeline step that failed.
type Stage string

// Pipeline failure stages.
const (
	StageClassification Stage = "classification_failed"
	StageKeyword        Stage = "keyword_failed"
	StageSemantic       Stage = "semantic_failed"
	StageMerge          Stage = "merge_failed"
)

// StageError tags a search failure with the stage that caused it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Response is the outcome of a smart search.
type Response struct {
	Query        string
	Analysis     analysis.Analysis
	ActualMethod method.Method
	Results      []result.Result
	Count        int
}

// Config holds the orchestrator tuning knobs.
type Config struct {
	Timeout           time.Duration
	Weights           Weights
	KeywordSaturation float64
}

// Service routes each query to keyword, semantic or hybrid retrieval.
type Service struct {
	catalog    Catalog
	keyword    *KeywordRetriever
	semantic   *SemanticRetriever
	merger     *Merger
	classifier Classifier
	vocab      VocabularyProvider
	timeout    time.Duration
	logger     *zap.Logger
}

// New creates a search service.
func New(
	catalog Catalog, embed Embedder, classifier Classifier, vocab VocabularyProvider,
	cfg Config, logger *zap.Logger,
) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		catalog:    catalog,
		keyword:    NewKeywordRetriever(catalog, cfg.KeywordSaturation),
		semantic:   NewSemanticRetriever(catalog, embed),
		merger:     NewMerger(cfg.Weights),
		classifier: classifier,
		vocab:      vocab,
		timeout:    cfg.Timeout,
		logger:     logger,
	}
}

// SmartSearch classifies the query (unless semantic is forced), routes it and returns ranked results.
// A blank query yields an empty response. Failures are *StageError; nothing partial is returned.
func (s *Service) SmartSearch(ctx context.Context, req request.Request) (Response, error) {
	if req.IsBlank() {
		a := analysis.Empty(req.Query())
		return Response{
			Query: req.Query(), Analysis: a, ActualMethod: a.RecommendedMethod(),
			Results: []result.Result{},
		}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	a, err := s.analyze(ctx, req)
	if err != nil {
		s.observe(req.Forced(), err, 0)
		return Response{}, err
	}

	m := req.Forced()
	if m == "" {
		m = a.RecommendedMethod()
	}

	log := logpkg.FromContextOr(ctx, s.logger)
	log.Debug("search routed",
		zap.String("query", req.Query()),
		zap.String("recommended", string(a.RecommendedMethod())),
		zap.String("method", string(m)),
		zap.Float64("confidence", a.Confidence()),
		zap.Bool("fallback", a.IsFallback()),
	)

	results, actual, err := s.execute(ctx, m, a, req.Limit())
	s.observe(actual, err, len(results))
	if err != nil {
		log.Warn("search failed",
			zap.String("query", req.Query()),
			zap.String("method", string(m)),
			zap.Error(err),
		)
		return Response{}, err
	}

	return Response{
		Query:        req.Query(),
		Analysis:     a,
		ActualMethod: actual,
		Results:      results,
		Count:        len(results),
	}, nil
}

// FindSimilar returns catalog attributes similar to the named one, excluding itself.
func (s *Service) FindSimilar(ctx context.Context, req request.SimilarRequest) ([]result.Similar, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	out, err := s.semantic.SimilarAttributes(ctx, req.Attribute(), req.Limit())
	metrics.SearchStageDuration.WithLabelValues("similar").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, stageErr(ctx, StageSemantic, err)
	}
	return out, nil
}

// Analyze runs classification alone.
func (s *Service) Analyze(ctx context.Context, query string) (analysis.Analysis, error) {
	req, err := request.New(query, "", 0)
	if err != nil {
		return analysis.Analysis{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	if req.IsBlank() {
		return analysis.Empty(query), nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.analyze(ctx, req)
}

// RefreshVocabulary reloads the vocabulary used to ground classification.
func (s *Service) RefreshVocabulary(ctx context.Context) (vocabulary.Vocabulary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	v, err := s.vocab.Refresh(ctx)
	if err != nil {
		return vocabulary.Vocabulary{}, stageErr(ctx, StageClassification, domain.Unavailable("refresh vocabulary", err))
	}
	s.logger.Info("vocabulary refreshed",
		zap.Int("attributes", len(v.Attributes())),
		zap.Int("categories", len(v.Categories())),
		zap.Int("locations", len(v.Locations())),
	)
	return v, nil
}

func (s *Service) analyze(ctx context.Context, req request.Request) (analysis.Analysis, error) {
	if req.Forced() == method.Semantic {
		return analysis.Forced(req.Query(), method.Semantic, "semantic retrieval forced by caller, classification skipped"), nil
	}

	start := time.Now()
	defer func() {
		metrics.SearchStageDuration.WithLabelValues("classify").Observe(time.Since(start).Seconds())
	}()

	vocab, err := s.vocab.Get(ctx)
	if err != nil {
		return analysis.Analysis{}, stageErr(ctx, StageClassification, domain.Unavailable("load vocabulary", err))
	}
	return s.classifier.Classify(ctx, req.Query(), vocab), nil
}

func (s *Service) execute(
	ctx context.Context, m method.Method, a analysis.Analysis, limit int,
) ([]result.Result, method.Method, error) {
	switch m {
	case method.Keyword:
		if a.ExactName() != "" {
			res, found, err := s.exact(ctx, a.ExactName())
			if err != nil {
				return nil, method.Exact, err
			}
			if found {
				return res, method.Exact, nil
			}
		}
		res, err := s.runKeyword(ctx, a, limit)
		return res, method.Keyword, err
	case method.Semantic:
		res, err := s.runSemantic(ctx, a.Query(), limit)
		return res, method.Semantic, err
	case method.Hybrid:
		res, err := s.hybrid(ctx, a, limit)
		return res, method.Hybrid, err
	default:
		return nil, m, fmt.Errorf("%w: unsupported search method %q", domain.ErrInvalidRequest, m)
	}
}

// exact looks an entity up by name. found is false when no entity has that name.
func (s *Service) exact(ctx context.Context, name string) ([]result.Result, bool, error) {
	start := time.Now()
	defer func() {
		metrics.SearchStageDuration.WithLabelValues("exact").Observe(time.Since(start).Seconds())
	}()

	e, err := s.catalog.EntityByName(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, stageErr(ctx, StageKeyword, domain.Unavailable("exact lookup", err))
	}
	return []result.Result{exactResult(e)}, true, nil
}

func (s *Service) runKeyword(ctx context.Context, a analysis.Analysis, limit int) ([]result.Result, error) {
	start := time.Now()
	res, err := s.keyword.Search(ctx, a.Keywords(), a.Categories(), a.LocationFilter(), limit)
	metrics.SearchStageDuration.WithLabelValues("keyword").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, stageErr(ctx, StageKeyword, err)
	}
	return res, nil
}

func (s *Service) runSemantic(ctx context.Context, query string, limit int) ([]result.Result, error) {
	start := time.Now()
	res, err := s.semantic.Search(ctx, query, limit)
	metrics.SearchStageDuration.WithLabelValues("semantic").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, stageErr(ctx, StageSemantic, err)
	}
	return res, nil
}

// hybrid runs both retrievers concurrently. Either failure cancels the other and fails the call.
func (s *Service) hybrid(ctx context.Context, a analysis.Analysis, limit int) ([]result.Result, error) {
	g, gctx := errgroup.WithContext(ctx)

	var kw, sem []result.Result
	g.Go(func() error {
		var err error
		kw, err = s.runKeyword(gctx, a, limit)
		return err
	})
	g.Go(func() error {
		var err error
		sem, err = s.runSemantic(gctx, a.Query(), limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // already a *StageError
	}

	return s.merge(kw, sem, limit)
}

func (s *Service) merge(kw, sem []result.Result, limit int) ([]result.Result, error) {
	return s.mergeWith(func() []result.Result { return s.merger.Merge(kw, sem, limit) })
}

// mergeWith converts a merge invariant panic into a merge_failed stage error.
func (s *Service) mergeWith(fn func() []result.Result) (out []result.Result, err error) {
	start := time.Now()
	defer func() {
		metrics.SearchStageDuration.WithLabelValues("merge").Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			var mie *MergeInconsistencyError
			if e, ok := r.(error); ok && errors.As(e, &mie) {
				out, err = nil, &StageError{Stage: StageMerge, Err: mie}
				return
			}
			panic(r)
		}
	}()
	return fn(), nil
}

func (s *Service) observe(m method.Method, err error, count int) {
	label := string(m)
	if label == "" {
		label = "auto"
	}
	status := "ok"
	if err != nil {
		status = "error"
		var se *StageError
		if errors.As(err, &se) {
			status = string(se.Stage)
		}
	}
	metrics.SearchRequestsTotal.WithLabelValues(label, status).Inc()
	if err == nil {
		metrics.SearchResultsCount.WithLabelValues(label).Observe(float64(count))
	}
}

// stageErr tags err with stage; a context deadline is reported as retrieval unavailable.
func stageErr(ctx context.Context, stage Stage, err error) error {
	if !errors.Is(err, domain.ErrRetrievalUnavailable) &&
		(errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		err = domain.Unavailable("deadline exceeded", err)
	}
	return &StageError{Stage: stage, Err: err}
}

func exactResult(e entity.Entity) result.Result {
	attrs := make([]result.AttributeMatch, 0, len(e.Attributes()))
	for _, a := range e.Attributes() {
		attrs = append(attrs, result.AttributeMatch{ID: a.ID(), Name: a.Name(), Category: a.Category()})
	}
	return result.New(e.ID(), e.Name(), e.Kind(), 1, method.Exact, result.Detail{
		Location:          e.Location(),
		MatchedAttributes: attrs,
		MatchCount:        len(attrs),
		FoundBy:           result.FoundByExact,
	})
}
