package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rescuedex/internal/domain/search/analysis"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/method"
	"github.com/kailas-cloud/rescuedex/internal/domain/vocabulary"
	"github.com/kailas-cloud/rescuedex/internal/metrics"
)

// promptAttributes caps the attribute names listed in the delegate prompt.
const promptAttributes = 30

// Fallback causes, used as metric labels.
const (
	causeCompletion = "completion"
	causeParse      = "parse"
	causeSchema     = "schema"
)

// ClassificationParseError reports delegate output that is not the expected JSON shape.
// It is always absorbed by the fail-closed fallback.
type ClassificationParseError struct {
	Raw string
	Err error
}

func (e *ClassificationParseError) Error() string {
	return fmt.Sprintf("classification parse error: %v", e.Err)
}

func (e *ClassificationParseError) Unwrap() error { return e.Err }

// DelegateClassifier asks an external text completer to classify the query.
type DelegateClassifier struct {
	completer TextCompleter
	timeout   time.Duration
	logger    *zap.Logger
}

// NewDelegateClassifier creates a classifier backed by completer.
// timeout bounds each completion call; zero means the caller's deadline only.
func NewDelegateClassifier(completer TextCompleter, timeout time.Duration, logger *zap.Logger) *DelegateClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DelegateClassifier{completer: completer, timeout: timeout, logger: logger}
}

// Classify never fails: completion, parse and schema errors fall back to a permissive hybrid analysis.
func (c *DelegateClassifier) Classify(ctx context.Context, query string, vocab vocabulary.Vocabulary) analysis.Analysis {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	raw, err := c.completer.Complete(ctx, BuildPrompt(query, vocab))
	if err != nil {
		return c.fallback(query, causeCompletion, fmt.Errorf("delegate completion: %w", err))
	}

	a, err := ParseResponse(query, raw)
	if err != nil {
		cause := causeSchema
		var perr *ClassificationParseError
		if errors.As(err, &perr) {
			cause = causeParse
		}
		return c.fallback(query, cause, err)
	}
	return a
}

func (c *DelegateClassifier) fallback(query, cause string, err error) analysis.Analysis {
	metrics.ClassifierFallbackTotal.WithLabelValues(cause).Inc()
	c.logger.Warn("classification fell back to hybrid",
		zap.String("cause", cause),
		zap.Error(err),
	)
	return analysis.Fallback(query, err)
}

// BuildPrompt renders the classification prompt with the known vocabulary.
func BuildPrompt(query string, vocab vocabulary.Vocabulary) string {
	attrs := vocab.Attributes()
	if len(attrs) > promptAttributes {
		attrs = attrs[:promptAttributes]
	}

	var b strings.Builder
	b.WriteString("Classify the search query below for a survivor skill database.\n\n")
	fmt.Fprintf(&b, "Known skills: %s\n", strings.Join(attrs, ", "))
	fmt.Fprintf(&b, "Known categories: %s\n", strings.Join(vocab.Categories(), ", "))
	fmt.Fprintf(&b, "Known locations: %s\n", strings.Join(vocab.Locations(), ", "))
	b.WriteString(`
Rules:
- similarity or analogy language ("similar to", "like", "related to") => semantic
- an explicit known category or location => keyword
- vague or abstract phrasing with no enumerable filter => semantic
- a filter AND a concept together => hybrid
- a direct lookup by an exact known name => keyword

Respond with JSON only, no prose:
{"recommended_method": "keyword|semantic|hybrid", "keywords": ["..."], "categories": ["..."], "location_filter": "... or null", "confidence": 0.0, "reasoning": "..."}
`)
	fmt.Fprintf(&b, "\nQuery: %s\n", query)
	return b.String()
}

// delegateResponse is the JSON shape requested from the delegate.
// biome_filter is accepted as a synonym of location_filter.
type delegateResponse struct {
	RecommendedMethod string   `json:"recommended_method"`
	Keywords          []string `json:"keywords"`
	Categories        []string `json:"categories"`
	LocationFilter    *string  `json:"location_filter"`
	BiomeFilter       *string  `json:"biome_filter"`
	ExactName         *string  `json:"exact_name"`
	Confidence        *float64 `json:"confidence"`
	Reasoning         string   `json:"reasoning"`
}

// ParseResponse decodes and validates delegate output.
// Malformed JSON yields *ClassificationParseError; a well-formed but invalid
// decision yields a plain schema error.
func ParseResponse(query, raw string) (analysis.Analysis, error) {
	body := stripFences(raw)

	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()
	var resp delegateResponse
	if err := dec.Decode(&resp); err != nil {
		return analysis.Analysis{}, &ClassificationParseError{Raw: raw, Err: err}
	}
	if dec.More() {
		return analysis.Analysis{}, &ClassificationParseError{Raw: raw, Err: errors.New("trailing data after JSON object")}
	}

	m, err := method.Parse(resp.RecommendedMethod)
	if err != nil {
		return analysis.Analysis{}, fmt.Errorf("schema: %w", err)
	}
	if !m.IsForceable() {
		return analysis.Analysis{}, fmt.Errorf("schema: method %q cannot be recommended", m)
	}
	if resp.Confidence == nil {
		return analysis.Analysis{}, errors.New("schema: confidence is required")
	}

	location := ""
	switch {
	case resp.LocationFilter != nil:
		location = *resp.LocationFilter
	case resp.BiomeFilter != nil:
		location = *resp.BiomeFilter
	}
	if strings.EqualFold(strings.TrimSpace(location), "null") {
		location = ""
	}
	exact := ""
	if resp.ExactName != nil {
		exact = *resp.ExactName
	}

	a, err := analysis.New(analysis.Params{
		Query:          query,
		Recommended:    m,
		Keywords:       resp.Keywords,
		Categories:     resp.Categories,
		LocationFilter: location,
		ExactName:      exact,
		Confidence:     *resp.Confidence,
		Reasoning:      resp.Reasoning,
	})
	if err != nil {
		return analysis.Analysis{}, fmt.Errorf("schema: %w", err)
	}
	return a, nil
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
