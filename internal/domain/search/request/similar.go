package request

import (
	"fmt"
	"strings"
)

// DefaultSimilarLimit is the result count for attribute similarity lookups.
const DefaultSimilarLimit = 5

// SimilarRequest is a validated "find similar attributes" query.
type SimilarRequest struct {
	attribute string
	limit     int
}

// NewSimilar validates and normalizes similar request parameters.
func NewSimilar(attribute string, limit int) (SimilarRequest, error) {
	attribute = strings.TrimSpace(attribute)
	if attribute == "" {
		return SimilarRequest{}, fmt.Errorf("attribute name is required")
	}
	if len(attribute) > MaxQueryLength {
		return SimilarRequest{}, fmt.Errorf("attribute name too long (max %d chars)", MaxQueryLength)
	}
	if limit < 0 {
		return SimilarRequest{}, fmt.Errorf("limit must be non-negative")
	}
	if limit == 0 {
		limit = DefaultSimilarLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return SimilarRequest{attribute: attribute, limit: limit}, nil
}

// Attribute returns the attribute name to compare against.
func (r SimilarRequest) Attribute() string { return r.attribute }

// Limit returns the maximum results to return.
func (r SimilarRequest) Limit() int { return r.limit }
