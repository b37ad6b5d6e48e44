package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rescuedex/internal/domain"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/analysis"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/method"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/request"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/result"
	"github.com/kailas-cloud/rescuedex/internal/domain/vocabulary"
	healthuc "github.com/kailas-cloud/rescuedex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/rescuedex/internal/usecase/search"
)

type mockSearch struct {
	gotReq     request.Request
	gotSimilar request.SimilarRequest
	resp       searchuc.Response
	similar    []result.Similar
	analysis   analysis.Analysis
	vocab      vocabulary.Vocabulary
	err        error
}

func (m *mockSearch) SmartSearch(_ context.Context, req request.Request) (searchuc.Response, error) {
	m.gotReq = req
	return m.resp, m.err
}

func (m *mockSearch) FindSimilar(_ context.Context, req request.SimilarRequest) ([]result.Similar, error) {
	m.gotSimilar = req
	return m.similar, m.err
}

func (m *mockSearch) Analyze(_ context.Context, _ string) (analysis.Analysis, error) {
	return m.analysis, m.err
}

func (m *mockSearch) RefreshVocabulary(_ context.Context) (vocabulary.Vocabulary, error) {
	return m.vocab, m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

func newTestRouter(search *mockSearch, health *mockHealth, keys ...string) http.Handler {
	if health == nil {
		health = &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}}
	}
	return NewRouter(NewServer(search, health, zap.NewNop()), keys, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func keywordResponse(t *testing.T) searchuc.Response {
	t.Helper()
	a, err := analysis.New(analysis.Params{
		Query:          "medical in cryo",
		Recommended:    method.Keyword,
		Keywords:       []string{"medical"},
		LocationFilter: "CRYO",
		Confidence:     0.9,
		Reasoning:      "category and location",
	})
	if err != nil {
		t.Fatalf("analysis.New: %v", err)
	}
	r := result.New("survivor_frost", "Dr. Frost", "survivor", 0.2, method.Keyword, result.Detail{
		Location:          "CRYO",
		MatchedAttributes: []result.AttributeMatch{{ID: "skill_medical", Name: "Medical Training", Category: "medical"}},
		MatchCount:        1,
		FoundBy:           result.FoundByKeyword,
	})
	return searchuc.Response{
		Query:        "medical in cryo",
		Analysis:     a,
		ActualMethod: method.Keyword,
		Results:      []result.Result{r},
		Count:        1,
	}
}

func TestSearch_OK(t *testing.T) {
	ms := &mockSearch{resp: keywordResponse(t)}
	rr := do(t, newTestRouter(ms, nil), "POST", "/v1/search", `{"query":"medical in cryo","limit":3}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}
	resp := decode[SearchResponse](t, rr)
	if resp.ActualMethod != "keyword" || resp.Count != 1 || len(resp.Results) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	got := resp.Results[0]
	if got.Name != "Dr. Frost" || got.Details.FoundBy != "keyword" || got.Details.MatchCount != 1 {
		t.Errorf("unexpected result: %+v", got)
	}
	if resp.Analysis.LocationFilter == nil || *resp.Analysis.LocationFilter != "CRYO" {
		t.Errorf("location filter not rendered: %+v", resp.Analysis)
	}
	if ms.gotReq.Limit() != 3 || ms.gotReq.Forced() != "" {
		t.Errorf("request not forwarded: limit=%d forced=%q", ms.gotReq.Limit(), ms.gotReq.Forced())
	}
}

func TestSearch_ForcedMethodAlias(t *testing.T) {
	ms := &mockSearch{resp: keywordResponse(t)}
	rr := do(t, newTestRouter(ms, nil), "POST", "/v1/search", `{"query":"healing","method":"rag"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ms.gotReq.Forced() != method.Semantic {
		t.Errorf("forced = %q, want semantic", ms.gotReq.Forced())
	}
}

func TestSearch_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code ErrorCode
	}{
		{"malformed json", `{"query":`, ErrorCodeBadRequest},
		{"unknown field", `{"query":"x","foo":1}`, ErrorCodeBadRequest},
		{"unknown method", `{"query":"x","method":"magic"}`, ErrorCodeValidationFailed},
		{"exact not forceable", `{"query":"x","method":"exact"}`, ErrorCodeValidationFailed},
		{"negative limit", `{"query":"x","limit":-1}`, ErrorCodeValidationFailed},
		{"query too long", fmt.Sprintf(`{"query":%q}`, strings.Repeat("a", request.MaxQueryLength+1)), ErrorCodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, newTestRouter(&mockSearch{}, nil), "POST", "/v1/search", tt.body)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			if resp := decode[ErrorResponse](t, rr); resp.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Code, tt.code)
			}
		})
	}
}

func TestSearch_StageErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorCode
		stage  string
	}{
		{
			name:   "semantic unavailable",
			err:    &searchuc.StageError{Stage: searchuc.StageSemantic, Err: domain.Unavailable("embed", errors.New("timeout"))},
			status: http.StatusServiceUnavailable,
			code:   ErrorCodeRetrievalUnavailable,
			stage:  "semantic_failed",
		},
		{
			name:   "merge inconsistency",
			err:    &searchuc.StageError{Stage: searchuc.StageMerge, Err: domain.ErrMergeInconsistency},
			status: http.StatusInternalServerError,
			code:   ErrorCodeInternalError,
			stage:  "merge_failed",
		},
		{
			name:   "unexpected",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			code:   ErrorCodeInternalError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, newTestRouter(&mockSearch{err: tt.err}, nil), "POST", "/v1/search", `{"query":"x"}`)

			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			resp := decode[ErrorResponse](t, rr)
			if resp.Code != tt.code || resp.Stage != tt.stage {
				t.Errorf("got %+v", resp)
			}
			if strings.Contains(resp.Message, "timeout") || strings.Contains(resp.Message, "boom") {
				t.Errorf("internal detail leaked: %q", resp.Message)
			}
		})
	}
}

func TestSimilar_OK(t *testing.T) {
	ms := &mockSearch{similar: []result.Similar{
		{ID: "skill_healing", Name: "Healing", Category: "medical", Similarity: 0.9, Distance: 0.1},
	}}
	rr := do(t, newTestRouter(ms, nil), "POST", "/v1/similar", `{"attribute":" First Aid "}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decode[SimilarResponse](t, rr)
	if resp.Attribute != "First Aid" || resp.Count != 1 || resp.Results[0].Distance != 0.1 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if ms.gotSimilar.Limit() != request.DefaultSimilarLimit {
		t.Errorf("limit = %d", ms.gotSimilar.Limit())
	}
}

func TestSimilar_MissingAttribute(t *testing.T) {
	rr := do(t, newTestRouter(&mockSearch{}, nil), "POST", "/v1/similar", `{"attribute":"  "}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestAnalyze_OK(t *testing.T) {
	ms := &mockSearch{analysis: analysis.Fallback("who can fly", errors.New("parse"))}
	rr := do(t, newTestRouter(ms, nil), "POST", "/v1/analyze", `{"query":"who can fly"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decode[AnalysisResponse](t, rr)
	if resp.RecommendedMethod != "hybrid" || !resp.Fallback || resp.LocationFilter != nil {
		t.Errorf("unexpected analysis: %+v", resp)
	}
	if len(resp.Categories) != 0 || resp.Categories == nil {
		t.Errorf("categories must render as an empty list: %v", resp.Categories)
	}
}

func TestAnalyze_InvalidRequest(t *testing.T) {
	ms := &mockSearch{err: fmt.Errorf("%w: query too long", domain.ErrInvalidRequest)}
	rr := do(t, newTestRouter(ms, nil), "POST", "/v1/analyze", `{"query":"x"}`)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestRefreshVocabulary(t *testing.T) {
	ms := &mockSearch{vocab: vocabulary.New([]string{"First Aid", "Pilot"}, []string{"medical"}, []string{"CRYO"}, nil)}
	rr := do(t, newTestRouter(ms, nil), "POST", "/v1/vocabulary/refresh", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decode[VocabularyResponse](t, rr)
	if resp.Attributes != 2 || resp.Categories != 1 || resp.Locations != 1 || resp.Entities != 0 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		want   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusOK},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			h := &mockHealth{report: healthuc.Report{
				Status: tt.status,
				Checks: map[string]healthuc.CheckResult{"catalog": healthuc.CheckOK},
			}}
			rr := do(t, newTestRouter(&mockSearch{}, h, "secret"), "GET", "/health", "")

			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			resp := decode[HealthResponse](t, rr)
			if resp.Status != string(tt.status) || resp.Checks["catalog"] != "ok" {
				t.Errorf("unexpected body: %+v", resp)
			}
		})
	}
}

func TestRouter_RequiresAuth(t *testing.T) {
	rr := do(t, newTestRouter(&mockSearch{}, nil, "secret"), "POST", "/v1/search", `{"query":"x"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestRouter_NotFoundAndRequestID(t *testing.T) {
	rr := do(t, newTestRouter(&mockSearch{}, nil), "GET", "/v1/nope", "")

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestSearch_ConfiguredLimits(t *testing.T) {
	ms := &mockSearch{resp: keywordResponse(t)}
	h := NewRouter(NewServer(ms, &mockHealth{}, nil).WithLimits(4, 20), nil, zap.NewNop())

	do(t, h, "POST", "/v1/search", `{"query":"x"}`)
	if ms.gotReq.Limit() != 4 {
		t.Errorf("default limit = %d, want 4", ms.gotReq.Limit())
	}
	do(t, h, "POST", "/v1/search", `{"query":"x","limit":50}`)
	if ms.gotReq.Limit() != 20 {
		t.Errorf("clamped limit = %d, want 20", ms.gotReq.Limit())
	}
}
