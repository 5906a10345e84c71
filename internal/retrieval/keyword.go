package retrieval

import (
	"context"
	"sort"
	"strings"
)

// #region keyword-retriever

// KeywordRetriever scores an in-memory corpus by raw term overlap with
// the query. Scores are overlap counts, unbounded and incomparable with
// similarity scores; fusion normalization reconciles them.
type KeywordRetriever struct {
	corpus []Document
}

// NewKeywordRetriever creates a retriever over a fixed corpus.
func NewKeywordRetriever(corpus []Document) *KeywordRetriever {
	return &KeywordRetriever{corpus: corpus}
}

// Name implements Retriever.
func (r *KeywordRetriever) Name() string { return "keyword" }

// Retrieve returns the top-k documents by query term overlap. Documents
// with zero overlap are dropped. Returned documents are clones; the
// stored corpus is never handed to the pipeline.
func (r *KeywordRetriever) Retrieve(ctx context.Context, query string, k int) (Result, error) {
	queryTerms := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToLower(query)) {
		queryTerms[t] = true
	}

	var scored []Document
	for _, doc := range r.corpus {
		overlap := 0
		seen := make(map[string]bool)
		for _, t := range strings.Fields(strings.ToLower(doc.Content)) {
			if queryTerms[t] && !seen[t] {
				seen[t] = true
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		c := doc.Clone()
		c.Score = float64(overlap)
		scored = append(scored, c)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}

	return Result{
		Documents: scored,
		Signals: map[string]any{
			"retriever": r.Name(),
			"count":     len(scored),
		},
	}, nil
}

// #endregion keyword-retriever
