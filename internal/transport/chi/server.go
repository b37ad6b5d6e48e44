package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rescuedex/internal/domain"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/method"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/rescuedex/internal/logger"
	healthuc "github.com/kailas-cloud/rescuedex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/rescuedex/internal/usecase/search"
)

// maxBodyBytes caps request bodies; the longest valid body is a max-length query.
const maxBodyBytes = 64 << 10

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the retrieval API.
type Server struct {
	search        SearchService
	defaultLimit  int
	maxLimit      int
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search SearchService, health HealthService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search:       search,
		health:       health,
		defaultLimit: request.DefaultLimit,
		maxLimit:     request.MaxLimit,
		logger:       logger,
	}
	s.errorHandlers = []errorHandler{
		stageErrorHandler,
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrRetrievalUnavailable, http.StatusServiceUnavailable, ErrorCodeRetrievalUnavailable),
	}
	return s
}

// WithLimits overrides the default and maximum result counts for /v1/search.
// Non-positive values keep the built-in limits.
func (s *Server) WithLimits(defaultLimit, maxLimit int) *Server {
	if defaultLimit > 0 {
		s.defaultLimit = defaultLimit
	}
	if maxLimit > 0 {
		s.maxLimit = maxLimit
	}
	return s
}

func (s *Server) clampLimit(limit int) int {
	if limit == 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	return limit
}

// Search handles POST /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	if !decodeBody(w, r, &body) {
		return
	}

	var forced method.Method
	if body.Method != "" {
		m, err := method.Parse(body.Method)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
			return
		}
		forced = m
	}

	req, err := request.New(body.Query, forced, s.clampLimit(body.Limit))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	resp, err := s.search.SmartSearch(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchToResponse(resp))
}

// Similar handles POST /v1/similar.
func (s *Server) Similar(w http.ResponseWriter, r *http.Request) {
	var body SimilarRequest
	if !decodeBody(w, r, &body) {
		return
	}

	req, err := request.NewSimilar(body.Attribute, body.Limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	similar, err := s.search.FindSimilar(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, similarToResponse(req.Attribute(), similar))
}

// Analyze handles POST /v1/analyze.
func (s *Server) Analyze(w http.ResponseWriter, r *http.Request) {
	var body AnalyzeRequest
	if !decodeBody(w, r, &body) {
		return
	}

	a, err := s.search.Analyze(r.Context(), body.Query)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysisToResponse(a))
}

// RefreshVocabulary handles POST /v1/vocabulary/refresh.
func (s *Server) RefreshVocabulary(w http.ResponseWriter, r *http.Request) {
	v, err := s.search.RefreshVocabulary(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vocabularyToResponse(v))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrNotFound,
		domain.ErrRetrievalUnavailable,
		domain.ErrMergeInconsistency,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// stageErrorHandler reports the failing pipeline stage. Unavailable dependencies map
// to 503 so clients may retry; anything else in a stage is a server bug.
func stageErrorHandler(w http.ResponseWriter, err error, msg string) bool {
	var se *searchuc.StageError
	if !errors.As(err, &se) {
		return false
	}
	status, code := http.StatusInternalServerError, ErrorCodeInternalError
	if errors.Is(err, domain.ErrRetrievalUnavailable) {
		status, code = http.StatusServiceUnavailable, ErrorCodeRetrievalUnavailable
	}
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: fmt.Sprintf("%s: %s", se.Stage, msg),
		Stage:   string(se.Stage),
	})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("search request failed", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
