package classify

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kailas-cloud/rescuedex/internal/domain/search/analysis"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/method"
	"github.com/kailas-cloud/rescuedex/internal/domain/vocabulary"
)

// Rule classifier confidences per decision branch.
const (
	confidenceSimilarity = 0.85
	confidenceExact      = 0.95
	confidenceHybrid     = 0.75
	confidenceKeyword    = 0.9
	confidenceVague      = 0.6
)

// minLocationToken is the shortest single query word that may match part of a location tag.
const minLocationToken = 4

// minResidualToken is the shortest word kept as a concept keyword.
const minResidualToken = 3

var (
	quotedRegex = regexp.MustCompile(`(?:^|[\s(])["'\x{201C}\x{2018}]([^"'\x{201C}\x{201D}\x{2018}\x{2019}]+)["'\x{201D}\x{2019}]`)

	similarityPhrases = []string{"similar to", "related to", "resembling", "like", "similar"}

	stopwords = toSet(
		"a", "an", "the", "and", "or", "of", "in", "on", "at", "to", "for", "from", "with", "by",
		"is", "are", "was", "were", "be", "been", "do", "does", "did", "has", "have", "having",
		"can", "could", "would", "should", "will", "who", "whom", "what", "which", "where", "whose",
		"that", "this", "these", "those", "there", "their", "them", "they", "i", "me", "my", "we",
		"us", "our", "you", "your", "it", "its", "s", "t", "d", "ll", "m", "re", "ve", "any", "all", "some", "anyone", "someone",
		"somebody", "anybody", "people", "person", "persons", "find", "show", "list", "get", "give",
		"search", "look", "looking", "need", "needs", "want", "know", "knows", "good", "skill",
		"skills", "skilled", "survivor", "survivors", "ability", "abilities", "help", "please",
		"near", "located", "live", "lives", "living", "biome", "area", "zone",
	)
)

// RuleClassifier is the deterministic, offline classifier.
// Decision order: similarity language, exact entity name, filter plus concept,
// filter only, vague.
type RuleClassifier struct{}

// NewRuleClassifier creates a rule-based classifier.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// Classify maps a query to an analysis using the known vocabulary. Never fails.
func (c *RuleClassifier) Classify(_ context.Context, query string, vocab vocabulary.Vocabulary) analysis.Analysis {
	f := extract(query, vocab)

	p := analysis.Params{
		Query:          query,
		Keywords:       f.keywords(),
		Categories:     f.categories,
		LocationFilter: f.location,
	}

	switch {
	case f.similarity:
		p.Recommended = method.Semantic
		p.Confidence = confidenceSimilarity
		p.Reasoning = "similarity language detected"
	case f.exactName != "":
		p.Recommended = method.Keyword
		p.ExactName = f.exactName
		p.Confidence = confidenceExact
		p.Reasoning = fmt.Sprintf("direct lookup of known name %q", f.exactName)
	case f.hasFilter() && len(f.residual) > 0:
		p.Recommended = method.Hybrid
		p.Confidence = confidenceHybrid
		p.Reasoning = fmt.Sprintf("filter %s combined with concept %q", f.describeFilter(), strings.Join(f.residual, " "))
	case f.hasFilter():
		p.Recommended = method.Keyword
		p.Confidence = confidenceKeyword
		p.Reasoning = "explicit filter " + f.describeFilter()
	default:
		p.Recommended = method.Semantic
		p.Confidence = confidenceVague
		p.Reasoning = "no enumerable filter, conceptual query"
	}

	a, err := analysis.New(p)
	if err != nil {
		return analysis.Fallback(query, err)
	}
	return a
}

// features are the terms recognized in one query.
type features struct {
	quoted     []string
	attributes []string
	categories []string
	location   string
	residual   []string
	exactName  string
	similarity bool
}

func (f features) hasFilter() bool {
	return len(f.quoted) > 0 || len(f.attributes) > 0 || len(f.categories) > 0 || f.location != ""
}

func (f features) keywords() []string {
	out := make([]string, 0, len(f.quoted)+len(f.attributes)+len(f.residual))
	out = append(out, f.quoted...)
	out = append(out, f.attributes...)
	out = append(out, f.residual...)
	return out
}

func (f features) describeFilter() string {
	var parts []string
	if len(f.quoted) > 0 {
		parts = append(parts, "quoted="+strings.Join(f.quoted, ","))
	}
	if len(f.attributes) > 0 {
		parts = append(parts, "attributes="+strings.Join(f.attributes, ","))
	}
	if len(f.categories) > 0 {
		parts = append(parts, "categories="+strings.Join(f.categories, ","))
	}
	if f.location != "" {
		parts = append(parts, "location="+f.location)
	}
	return "(" + strings.Join(parts, "; ") + ")"
}

func extract(query string, vocab vocabulary.Vocabulary) features {
	var f features

	tokens := tokenize(query)
	padded := pad(tokens)
	covered := make(map[string]struct{})
	cover := func(phrase []string) {
		for _, t := range phrase {
			covered[t] = struct{}{}
		}
	}

	for _, p := range similarityPhrases {
		if strings.Contains(padded, pad(tokenize(p))) {
			f.similarity = true
			break
		}
	}

	for _, m := range quotedRegex.FindAllStringSubmatch(query, -1) {
		phrase := tokenize(m[1])
		if len(phrase) == 0 {
			continue
		}
		f.quoted = append(f.quoted, strings.Join(phrase, " "))
		cover(phrase)
	}

	for _, name := range vocab.Attributes() {
		phrase := tokenize(name)
		if len(phrase) > 0 && strings.Contains(padded, pad(phrase)) {
			joined := strings.Join(phrase, " ")
			if !contains(f.quoted, joined) {
				f.attributes = append(f.attributes, joined)
			}
			cover(phrase)
		}
	}

	for _, cat := range vocab.Categories() {
		phrase := tokenize(cat)
		if len(phrase) > 0 && !allCovered(phrase, covered) && strings.Contains(padded, pad(phrase)) {
			f.categories = append(f.categories, strings.ToLower(cat))
			cover(phrase)
		}
	}

	f.location = matchLocation(tokens, padded, covered, vocab.Locations())
	if f.location != "" {
		cover(tokenize(f.location))
	}

	for _, t := range tokens {
		if _, stop := stopwords[t]; stop {
			continue
		}
		if _, ok := covered[t]; ok {
			continue
		}
		if strings.Trim(t, "0123456789") == "" || utf8.RuneCountInString(t) < minResidualToken {
			continue
		}
		if !contains(f.residual, t) {
			f.residual = append(f.residual, t)
		}
	}

	f.exactName = matchEntity(query, tokens, f.quoted, vocab.Entities())
	return f
}

// matchLocation prefers a full location tag in the query. Otherwise it returns the longest
// run of consecutive query words found in order inside one tag, so "dark forest" matches
// "Dark Forest Biome" and the substring filter still applies. A one-word run must be at
// least minLocationToken long.
func matchLocation(tokens []string, padded string, covered map[string]struct{}, locations []string) string {
	for _, loc := range locations {
		phrase := tokenize(loc)
		if len(phrase) > 0 && !allCovered(phrase, covered) && strings.Contains(padded, pad(phrase)) {
			return loc
		}
	}

	tags := make([]string, 0, len(locations))
	for _, loc := range locations {
		if phrase := tokenize(loc); len(phrase) > 0 {
			tags = append(tags, pad(phrase))
		}
	}

	var best []string
	for i := range tokens {
		for j := i + 1; j <= len(tokens); j++ {
			run := tokens[i:j]
			if !locationCandidate(run[len(run)-1], covered) || !inAnyTag(run, tags) {
				break
			}
			if len(run) == 1 && utf8.RuneCountInString(run[0]) < minLocationToken {
				continue
			}
			if len(run) > len(best) {
				best = run
			}
		}
	}
	return strings.Join(best, " ")
}

func locationCandidate(t string, covered map[string]struct{}) bool {
	if _, stop := stopwords[t]; stop {
		return false
	}
	_, ok := covered[t]
	return !ok
}

func inAnyTag(run []string, tags []string) bool {
	needle := pad(run)
	for _, tag := range tags {
		if strings.Contains(tag, needle) {
			return true
		}
	}
	return false
}

// matchEntity returns the entity name when the query content (or a quoted phrase)
// is exactly a known entity name.
func matchEntity(query string, tokens, quoted, entities []string) string {
	content := strings.Join(withoutStopwords(tokens), " ")
	whole := strings.Join(tokens, " ")
	for _, name := range entities {
		nameTokens := tokenize(name)
		if len(nameTokens) == 0 {
			continue
		}
		full := strings.Join(nameTokens, " ")
		if whole == full || strings.EqualFold(strings.TrimSpace(query), name) {
			return name
		}
		if stripped := strings.Join(withoutStopwords(nameTokens), " "); stripped != "" && content == stripped {
			return name
		}
		if contains(quoted, full) {
			return name
		}
	}
	return ""
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func withoutStopwords(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, stop := stopwords[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}

func pad(tokens []string) string {
	return " " + strings.Join(tokens, " ") + " "
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func allCovered(phrase []string, covered map[string]struct{}) bool {
	for _, t := range phrase {
		if _, ok := covered[t]; !ok {
			return false
		}
	}
	return true
}

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
