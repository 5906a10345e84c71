package agents

import (
	"context"
	"log"

	"github.com/danielpatrickdp/brainbox/internal/model"
	"github.com/danielpatrickdp/brainbox/internal/runstate"
)

// #region retrieval-agent

// RetrievalAgent answers grounded in the retrieved documents. Each
// generation is a recorded attempt so confidence-gated retries can
// compare tiers afterwards.
type RetrievalAgent struct {
	client model.Client
}

// NewRetrievalAgent builds the grounded-answer agent.
func NewRetrievalAgent(client model.Client) *RetrievalAgent {
	return &RetrievalAgent{client: client}
}

// Name implements Agent.
func (a *RetrievalAgent) Name() string { return "retrieval_agent" }

// Generate runs one tier: calls the model over the retrieved context
// and appends an attempt record. Confidence on the attempt stays nil
// until the evaluation step fills it.
func (a *RetrievalAgent) Generate(ctx context.Context, s *runstate.RunState, tierID string, opts model.Options) (*runstate.Delta, error) {
	resp, err := a.client.Generate(ctx, ragSystemInstruction, s.Question, contextDocs(s.Documents), opts)
	if err != nil {
		return nil, err
	}
	log.Printf("[AGENT] run=%s tier=%s model=%s generated %d chars",
		s.RunID, tierID, resp.ModelName, len(resp.Text))

	attempts := append(append([]runstate.Attempt(nil), s.Attempts...), runstate.Attempt{
		Tier:    tierID,
		Model:   resp.ModelName,
		Options: opts,
	})
	return &runstate.Delta{
		Response:    &model.Response{Text: resp.Text, ModelName: resp.ModelName, TokenUsage: resp.TokenUsage},
		Tier:        tierID,
		Attempts:    attempts,
		SetAttempts: true,
	}, nil
}

// Run implements Agent with a single conservative tier. The graph
// normally drives tiers through Generate directly.
func (a *RetrievalAgent) Run(ctx context.Context, s *runstate.RunState) (*runstate.Delta, error) {
	return a.Generate(ctx, s, "TIER_1", model.Options{Temperature: 0.1})
}

// #endregion retrieval-agent
