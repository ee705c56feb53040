package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/windlass-ai/retrievalkit/llm"
	"github.com/windlass-ai/retrievalkit/schema"
)

// RerankStageName is the stage name recorded into metadata["stage"] by
// SemanticRerankStage.
const RerankStageName = "SemanticRerank"

const rerankBoostWeight = 0.1

var wordTokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// SemanticRerankStage reorders results by a finer relevance signal than
// the upstream retrievers used: either a word-overlap heuristic (rule
// mode) or an LLM-judged permutation (model mode).
type SemanticRerankStage struct {
	model  llm.ChatModel
	useLLM bool
	logger *slog.Logger
}

// RerankOption configures a SemanticRerankStage.
type RerankOption func(*SemanticRerankStage)

// WithRerankModel supplies a chat model and switches the stage into model
// mode. Without this option the stage always uses the rule-based mode.
func WithRerankModel(model llm.ChatModel) RerankOption {
	return func(s *SemanticRerankStage) {
		s.model = model
		s.useLLM = true
	}
}

// WithRerankLogger overrides the stage's logger.
func WithRerankLogger(logger *slog.Logger) RerankOption {
	return func(s *SemanticRerankStage) { s.logger = logger }
}

// NewSemanticRerankStage constructs a SemanticRerankStage.
func NewSemanticRerankStage(opts ...RerankOption) *SemanticRerankStage {
	s := &SemanticRerankStage{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SemanticRerankStage) Name() string { return RerankStageName }

func (s *SemanticRerankStage) Process(ctx context.Context, previous []Result, ec *ExecContext) ([]Result, error) {
	if len(previous) <= 1 {
		return cloneResults(previous), nil
	}

	if s.useLLM && s.model != nil {
		return s.llmRerank(ctx, ec.Query, previous), nil
	}
	return s.ruleRerank(ec.Query, previous), nil
}

// ruleRerank boosts each result's score by up to 10% of the Jaccard-like
// overlap ratio between the query's words and the document's words.
func (s *SemanticRerankStage) ruleRerank(query string, results []Result) []Result {
	queryWords := tokenizeWords(query)

	out := cloneResults(results)
	for i := range out {
		docWords := tokenizeWords(out[i].Content)
		overlap := intersectionSize(queryWords, docWords)

		denom := len(queryWords)
		if denom == 0 {
			denom = 1
		}
		ratio := float64(overlap) / float64(denom)
		boost := ratio * rerankBoostWeight

		r := out[i].WithMetadata("keyword_overlap", overlap)
		r = r.WithMetadata("rerank_boost", boost)
		r.Score += boost
		out[i] = r
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

const rerankLLMWindow = 10
const rerankContentPreview = 200

// llmRerank asks the model for a relevance-ordered permutation of indices
// over the top 10 results (truncated to 200 characters each to bound
// prompt size), falling back to the unchanged input on any parse failure.
func (s *SemanticRerankStage) llmRerank(ctx context.Context, query string, results []Result) []Result {
	window := results
	rest := []Result(nil)
	if len(results) > rerankLLMWindow {
		window = results[:rerankLLMWindow]
		rest = results[rerankLLMWindow:]
	}

	var b strings.Builder
	for i, r := range window {
		preview := r.Content
		if runes := []rune(preview); len(runes) > rerankContentPreview {
			preview = string(runes[:rerankContentPreview])
		}
		fmt.Fprintf(&b, "Document %d: %s...\n\n", i, preview)
	}

	prompt := fmt.Sprintf(
		"Order the following documents by relevance to the query, most relevant first.\n\nQuery: %s\n\nDocuments:\n%s\nReturn the document numbers separated by commas, most relevant first (example: 0,2,1,3):",
		query, b.String(),
	)

	msg, err := s.model.Generate(ctx, []schema.Message{schema.NewHumanMessage(prompt)}, llm.WithTemperature(0.1))
	if err != nil {
		s.logger.ErrorContext(ctx, "retrieval.rerank.llm_failed", "error", err)
		return cloneResults(results)
	}

	indices := parseIndices(msg.Text(), len(window))
	if len(indices) == 0 {
		return cloneResults(results)
	}

	used := make(map[int]bool, len(indices))
	reranked := make([]Result, 0, len(results))
	for _, idx := range indices {
		if used[idx] {
			continue
		}
		used[idx] = true
		reranked = append(reranked, window[idx])
	}
	for i, r := range window {
		if !used[i] {
			reranked = append(reranked, r)
		}
	}
	reranked = append(reranked, rest...)

	return reranked
}

var digitPattern = regexp.MustCompile(`\d+`)

func parseIndices(text string, bound int) []int {
	matches := digitPattern.FindAllString(text, -1)
	indices := make([]int, 0, len(matches))
	for _, m := range matches {
		var n int
		if _, err := fmt.Sscanf(m, "%d", &n); err != nil {
			continue
		}
		if n >= 0 && n < bound {
			indices = append(indices, n)
		}
	}
	return indices
}

func tokenizeWords(text string) map[string]bool {
	words := wordTokenPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

func intersectionSize(a, b map[string]bool) int {
	count := 0
	for w := range a {
		if b[w] {
			count++
		}
	}
	return count
}
