package agents

import (
	"log"

	"github.com/danielpatrickdp/brainbox/internal/confidence"
	"github.com/danielpatrickdp/brainbox/internal/runstate"
)

// #region critic

// Critic scores the current response against the retrieved documents.
// It never changes the answer, only attaches confidence signals.
func Critic(s *runstate.RunState) *runstate.Delta {
	if s.Response == nil {
		return nil
	}
	sig := confidence.Evaluate(s.Response.Text, s.Documents)
	log.Printf("[AGENT] run=%s critic support=%.3f coverage=%.3f",
		s.RunID, sig.RetrievalSupport, sig.AnswerCoverage)
	return &runstate.Delta{Confidence: &sig}
}

// #endregion critic
