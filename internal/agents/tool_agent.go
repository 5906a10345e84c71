package agents

import (
	"context"
	"log"

	"github.com/danielpatrickdp/brainbox/internal/model"
	"github.com/danielpatrickdp/brainbox/internal/runstate"
	"github.com/danielpatrickdp/brainbox/internal/tools"
)

// #region tool-agent

// ToolAgent runs the think/act loop: each invocation asks the model
// for one step, which is either a tool request or a final answer.
type ToolAgent struct {
	client model.Client
	tools  *tools.Registry
	opts   model.Options
}

// NewToolAgent builds the tool-use agent. Generation runs at
// temperature zero so tool selection stays reproducible.
func NewToolAgent(client model.Client, reg *tools.Registry) *ToolAgent {
	return &ToolAgent{
		client: client,
		tools:  reg,
		opts:   model.Options{Temperature: 0},
	}
}

// Name implements Agent.
func (a *ToolAgent) Name() string { return "tool_agent" }

// Run implements Agent. On a parse failure the run aborts rather than
// looping on garbage output.
func (a *ToolAgent) Run(ctx context.Context, s *runstate.RunState) (*runstate.Delta, error) {
	system := reactSystemInstruction(a.tools.Specs())
	user := reactUserInput(s.Question, s.Documents, s.History)

	resp, err := a.client.Generate(ctx, system, user, nil, a.opts)
	if err != nil {
		return nil, err
	}

	d, ok := parseDecision(resp.Text)
	if !ok {
		log.Printf("[AGENT] run=%s unparseable decision, aborting", s.RunID)
		return &runstate.Delta{FinalDecision: DecisionAbortAgent}, nil
	}

	if req := d.toRequest(); req != nil {
		log.Printf("[AGENT] run=%s step=%d tool=%s", s.RunID, s.StepCount+1, req.Name)
		return &runstate.Delta{
			ToolRequest: req,
			StepCount:   runstate.StepTo(s.StepCount + 1),
		}, nil
	}

	log.Printf("[AGENT] run=%s final answer after %d steps", s.RunID, s.StepCount)
	return &runstate.Delta{
		Response:         &model.Response{Text: d.FinalAnswer.text, ModelName: resp.ModelName, TokenUsage: resp.TokenUsage},
		FinalDecision:    DecisionAnswerReady,
		ClearToolRequest: true,
	}, nil
}

// #endregion tool-agent
