package nlp

import (
	"context"
	"regexp"
	"unicode"
)

// NER extracts named entities from text. Implementations must dedupe by
// Text, keeping the highest-scoring instance, and apply any score/length
// filtering themselves — callers may rely on the returned slice already
// being clean.
type NER interface {
	Extract(ctx context.Context, text string) ([]Entity, error)
}

var wordPattern = regexp.MustCompile(`\p{L}+`)

// SimpleNER is a fast, LLM-free recognizer: it tokenizes on runs of letters
// and classifies each token by surface heuristics (a capitalization and
// gazetteer check for Latin script, a bare length check for logographic
// scripts such as Han, where there is no casing signal). It trades
// precision for the ability to run with no model call, matching the spirit
// of a POS-tagger-based fast path without depending on a language-specific
// tagger.
type SimpleNER struct {
	minLength int
	gazetteer map[string]EntityType
	score     float64
}

// SimpleNEROption configures a SimpleNER.
type SimpleNEROption func(*SimpleNER)

// WithMinLength sets the minimum rune length for a token to be considered
// an entity candidate. Defaults to 2.
func WithMinLength(n int) SimpleNEROption {
	return func(s *SimpleNER) { s.minLength = n }
}

// WithGazetteer supplies known surface forms mapped to an EntityType,
// overriding the default heuristic for those exact tokens (case-sensitive).
func WithGazetteer(g map[string]EntityType) SimpleNEROption {
	return func(s *SimpleNER) { s.gazetteer = g }
}

// NewSimpleNER constructs a SimpleNER.
func NewSimpleNER(opts ...SimpleNEROption) *SimpleNER {
	s := &SimpleNER{minLength: 2, score: 0.8}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SimpleNER) Extract(ctx context.Context, text string) ([]Entity, error) {
	if text == "" {
		return nil, nil
	}

	var entities []Entity
	for _, tok := range wordPattern.FindAllString(text, -1) {
		if len([]rune(tok)) < s.minLength {
			continue
		}

		if typ, ok := s.gazetteer[tok]; ok {
			entities = append(entities, Entity{Text: tok, Type: typ, Score: s.score, Metadata: map[string]any{"method": "gazetteer"}})
			continue
		}

		entities = append(entities, Entity{Text: tok, Type: classify(tok), Score: s.score, Metadata: map[string]any{"method": "heuristic"}})
	}

	return dedupEntities(entities), nil
}

// classify applies the surface heuristic: capitalized Latin tokens are
// presumed proper nouns (OTHER, since there is no signal to split
// PERSON/LOCATION/ORGANIZATION without a gazetteer or model); anything
// else, including logographic script where capitalization carries no
// meaning, is presumed TOPIC.
func classify(tok string) EntityType {
	runes := []rune(tok)
	if len(runes) == 0 {
		return EntityOther
	}
	if unicode.IsUpper(runes[0]) && isLatinWord(runes) {
		return EntityOther
	}
	return EntityTopic
}

func isLatinWord(runes []rune) bool {
	for _, r := range runes {
		if r > unicode.MaxLatin1 && !unicode.In(r, unicode.Latin) {
			return false
		}
	}
	return true
}
