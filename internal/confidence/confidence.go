// Package confidence scores a generated answer against retrieved
// evidence. Everything here is deterministic string analysis with no
// I/O, so the evaluator can run once per retry tier for free.
package confidence

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/danielpatrickdp/brainbox/internal/retrieval"
)

// #region signals

// Signals is the evaluator output attached to a run.
type Signals struct {
	RetrievalSupport float64
	AnswerCoverage   float64
	Metadata         map[string]any
}

// #endregion signals

// #region retrieval-support

// RetrievalSupport returns the maximum per-document score across the
// pool, clamped to [0,1]. An empty pool scores 0.
func RetrievalSupport(docs []retrieval.Document) float64 {
	if len(docs) == 0 {
		return 0.0
	}
	maxScore := docs[0].Score
	for _, d := range docs[1:] {
		if d.Score > maxScore {
			maxScore = d.Score
		}
	}
	return clamp01(maxScore)
}

// #endregion retrieval-support

// #region answer-coverage

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// AnswerCoverage returns the fraction of answer tokens that occur as a
// substring anywhere in the concatenated lowercased document content.
// Reasoning-trace blocks are stripped first; tokens are lowercased,
// whitespace-split, and dropped when shorter than 3 characters.
func AnswerCoverage(answer string, docs []retrieval.Document) float64 {
	if answer == "" {
		return 0.0
	}
	clean := thinkBlock.ReplaceAllString(answer, "")

	var tokens []string
	for _, t := range strings.Fields(strings.ToLower(clean)) {
		if utf8.RuneCountInString(t) >= 3 {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return 0.0
	}

	var parts []string
	for _, d := range docs {
		parts = append(parts, d.Content)
	}
	contextText := strings.ToLower(strings.Join(parts, " "))

	matches := 0
	for _, t := range tokens {
		if strings.Contains(contextText, t) {
			matches++
		}
	}
	return clamp01(float64(matches) / float64(len(tokens)))
}

// #endregion answer-coverage

// #region evaluate

// Evaluate runs both heuristics and bundles them with metadata.
func Evaluate(answer string, docs []retrieval.Document) Signals {
	return Signals{
		RetrievalSupport: RetrievalSupport(docs),
		AnswerCoverage:   AnswerCoverage(answer, docs),
		Metadata: map[string]any{
			"num_documents": len(docs),
			"answer_length": len(answer),
		},
	}
}

// #endregion evaluate

// #region evidence-guard

// HasAnswerEvidence reports whether the retrieved documents share at
// least one meaningful term with the question. It is the cheap
// pre-generation guard: when it fails, no model call should be made.
// A question with no meaningful terms of its own passes the guard;
// the tier evaluation still gates the final answer.
func HasAnswerEvidence(question string, docs []retrieval.Document) bool {
	if len(docs) == 0 {
		return false
	}
	questionTerms := retrieval.Tokenize(question)
	if len(questionTerms) == 0 {
		return true
	}
	var parts []string
	for _, d := range docs {
		parts = append(parts, d.Content)
	}
	return retrieval.SharedTerms(questionTerms, retrieval.Tokenize(strings.Join(parts, " "))) > 0
}

// #endregion evidence-guard

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
