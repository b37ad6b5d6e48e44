package request

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/rescuedex/internal/domain/search/method"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultLimit   = 10
	MaxLimit       = 100
)

// Request is a validated smart search query.
type Request struct {
	query  string
	forced method.Method
	limit  int
}

// New validates and normalizes search parameters.
// A blank query is valid and yields an empty response downstream.
// forced may be empty (let the classifier decide) or keyword, semantic, hybrid.
func New(query string, forced method.Method, limit int) (Request, error) {
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if forced != "" && !forced.IsForceable() {
		return Request{}, fmt.Errorf("invalid forced method: %q", forced)
	}
	if limit < 0 {
		return Request{}, fmt.Errorf("limit must be non-negative")
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Request{query: query, forced: forced, limit: limit}, nil
}

// Query returns the search query text.
func (r Request) Query() string { return r.query }

// IsBlank reports whether the query has no searchable content.
func (r Request) IsBlank() bool { return strings.TrimSpace(r.query) == "" }

// Forced returns the caller-forced method, empty when the classifier decides.
func (r Request) Forced() method.Method { return r.forced }

// Limit returns the maximum results to return.
func (r Request) Limit() int { return r.limit }
