package agents

import (
	"context"

	"github.com/danielpatrickdp/brainbox/internal/model"
	"github.com/danielpatrickdp/brainbox/internal/runstate"
)

// #region answer-agent

// AnswerAgent answers directly from the model, no retrieval and no
// tools. It is the fallback when nothing else applies.
type AnswerAgent struct {
	client model.Client
	opts   model.Options
}

// NewAnswerAgent builds the direct-answer agent.
func NewAnswerAgent(client model.Client, opts model.Options) *AnswerAgent {
	return &AnswerAgent{client: client, opts: opts}
}

// Name implements Agent.
func (a *AnswerAgent) Name() string { return "answer_agent" }

// Run implements Agent.
func (a *AnswerAgent) Run(ctx context.Context, s *runstate.RunState) (*runstate.Delta, error) {
	resp, err := a.client.Generate(ctx, answerSystemInstruction, s.Question, nil, a.opts)
	if err != nil {
		return nil, err
	}
	return &runstate.Delta{
		Response:      &model.Response{Text: resp.Text, ModelName: resp.ModelName, TokenUsage: resp.TokenUsage},
		FinalDecision: DecisionAnswerReady,
	}, nil
}

// #endregion answer-agent
