package chi

import (
	"github.com/kailas-cloud/rescuedex/internal/domain/search/analysis"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/result"
	"github.com/kailas-cloud/rescuedex/internal/domain/vocabulary"
	searchuc "github.com/kailas-cloud/rescuedex/internal/usecase/search"
)

// ErrorCode is the machine-readable error code in error responses.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest           ErrorCode = "bad_request"
	ErrorCodeValidationFailed     ErrorCode = "validation_failed"
	ErrorCodeUnauthorized         ErrorCode = "unauthorized"
	ErrorCodeNotFound             ErrorCode = "not_found"
	ErrorCodeRetrievalUnavailable ErrorCode = "retrieval_unavailable"
	ErrorCodeInternalError        ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Stage   string    `json:"stage,omitempty"`
}

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	Query  string `json:"query"`
	Method string `json:"method,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// SimilarRequest is the body of POST /v1/similar.
type SimilarRequest struct {
	Attribute string `json:"attribute"`
	Limit     int    `json:"limit,omitempty"`
}

// AnalyzeRequest is the body of POST /v1/analyze.
type AnalyzeRequest struct {
	Query string `json:"query"`
}

// AnalysisResponse is the classifier's decision.
type AnalysisResponse struct {
	Query             string   `json:"query"`
	RecommendedMethod string   `json:"recommended_method"`
	Keywords          []string `json:"keywords"`
	Categories        []string `json:"categories"`
	LocationFilter    *string  `json:"location_filter"`
	ExactName         *string  `json:"exact_name,omitempty"`
	Confidence        float64  `json:"confidence"`
	Reasoning         string   `json:"reasoning"`
	Fallback          bool     `json:"fallback"`
}

// AttributeMatchResponse is one matched attribute of a result.
type AttributeMatchResponse struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	Similarity *float64 `json:"similarity,omitempty"`
}

// DetailResponse is the auxiliary match record of a result.
type DetailResponse struct {
	Location          string                   `json:"location,omitempty"`
	MatchedAttributes []AttributeMatchResponse `json:"matched_attributes"`
	MatchCount        int                      `json:"match_count"`
	BestSimilarity    *float64                 `json:"best_similarity,omitempty"`
	FoundBy           string                   `json:"found_by"`
}

// ResultResponse is one ranked entity.
type ResultResponse struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Kind    string         `json:"kind"`
	Score   float64        `json:"score"`
	Method  string         `json:"method"`
	Details DetailResponse `json:"details"`
}

// SearchResponse is the body of a successful smart search.
type SearchResponse struct {
	Query        string           `json:"query"`
	Analysis     AnalysisResponse `json:"analysis"`
	ActualMethod string           `json:"actual_method"`
	Results      []ResultResponse `json:"results"`
	Count        int              `json:"count"`
}

// SimilarItem is one attribute similar to the requested one.
type SimilarItem struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Similarity float64 `json:"similarity"`
	Distance   float64 `json:"distance"`
}

// SimilarResponse is the body of POST /v1/similar.
type SimilarResponse struct {
	Attribute string        `json:"attribute"`
	Results   []SimilarItem `json:"results"`
	Count     int           `json:"count"`
}

// VocabularyResponse summarizes a refreshed vocabulary.
type VocabularyResponse struct {
	Attributes int `json:"attributes"`
	Categories int `json:"categories"`
	Locations  int `json:"locations"`
	Entities   int `json:"entities"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func analysisToResponse(a analysis.Analysis) AnalysisResponse {
	return AnalysisResponse{
		Query:             a.Query(),
		RecommendedMethod: string(a.RecommendedMethod()),
		Keywords:          nonNil(a.Keywords()),
		Categories:        nonNil(a.Categories()),
		LocationFilter:    optional(a.LocationFilter()),
		ExactName:         optional(a.ExactName()),
		Confidence:        a.Confidence(),
		Reasoning:         a.Reasoning(),
		Fallback:          a.IsFallback(),
	}
}

func resultToResponse(r result.Result) ResultResponse {
	d := r.Detail()
	matches := make([]AttributeMatchResponse, len(d.MatchedAttributes))
	for i, m := range d.MatchedAttributes {
		matches[i] = AttributeMatchResponse{
			ID:         m.ID,
			Name:       m.Name,
			Category:   m.Category,
			Similarity: m.Similarity,
		}
	}
	return ResultResponse{
		ID:     r.ID(),
		Name:   r.Name(),
		Kind:   r.Kind(),
		Score:  r.Score(),
		Method: string(r.Method()),
		Details: DetailResponse{
			Location:          d.Location,
			MatchedAttributes: matches,
			MatchCount:        d.MatchCount,
			BestSimilarity:    d.BestSimilarity,
			FoundBy:           d.FoundBy,
		},
	}
}

func searchToResponse(resp searchuc.Response) SearchResponse {
	items := make([]ResultResponse, len(resp.Results))
	for i, r := range resp.Results {
		items[i] = resultToResponse(r)
	}
	return SearchResponse{
		Query:        resp.Query,
		Analysis:     analysisToResponse(resp.Analysis),
		ActualMethod: string(resp.ActualMethod),
		Results:      items,
		Count:        resp.Count,
	}
}

func similarToResponse(attribute string, similar []result.Similar) SimilarResponse {
	items := make([]SimilarItem, len(similar))
	for i, s := range similar {
		items[i] = SimilarItem{
			ID:         s.ID,
			Name:       s.Name,
			Category:   s.Category,
			Similarity: s.Similarity,
			Distance:   s.Distance,
		}
	}
	return SimilarResponse{Attribute: attribute, Results: items, Count: len(items)}
}

func vocabularyToResponse(v vocabulary.Vocabulary) VocabularyResponse {
	return VocabularyResponse{
		Attributes: len(v.Attributes()),
		Categories: len(v.Categories()),
		Locations:  len(v.Locations()),
		Entities:   len(v.Entities()),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
