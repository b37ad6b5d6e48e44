package method

import (
	"fmt"
	"strings"
)

// Method is the retrieval path that produced (or should produce) results.
type Method string

// Retrieval method constants.
const (
	Keyword  Method = "keyword"
	Semantic Method = "semantic"
	// Hybrid runs keyword and semantic retrieval and merges them.
	Hybrid Method = "hybrid"
	// Exact is a direct lookup by a known entity name. Never forced by callers.
	Exact Method = "exact"
)

// IsValid checks if the method is one of the supported values.
func (m Method) IsValid() bool {
	return m == Keyword || m == Semantic || m == Hybrid || m == Exact
}

// IsForceable reports whether callers (or a delegate classifier) may request this method.
func (m Method) IsForceable() bool {
	return m == Keyword || m == Semantic || m == Hybrid
}

// Parse maps a case-insensitive name to a Method. "rag" is accepted as semantic.
func Parse(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "keyword":
		return Keyword, nil
	case "semantic", "rag":
		return Semantic, nil
	case "hybrid":
		return Hybrid, nil
	case "exact":
		return Exact, nil
	default:
		return "", fmt.Errorf("unknown search method %q", s)
	}
}
