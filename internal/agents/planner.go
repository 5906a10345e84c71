package agents

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/danielpatrickdp/brainbox/internal/model"
	"github.com/danielpatrickdp/brainbox/internal/runstate"
	"github.com/danielpatrickdp/brainbox/internal/tools"
)

// #region planner

// Planner drafts the whole step sequence up front instead of deciding
// one step at a time. It never executes anything itself; the executor
// consumes the plan.
type Planner struct {
	client model.Client
	tools  *tools.Registry
	opts   model.Options
}

// NewPlanner builds the planning agent. Plans are generated at
// temperature zero so the same question plans the same way.
func NewPlanner(client model.Client, reg *tools.Registry) *Planner {
	return &Planner{
		client: client,
		tools:  reg,
		opts:   model.Options{Temperature: 0},
	}
}

// Name implements Agent.
func (p *Planner) Name() string { return "planner" }

// Run implements Agent. Unusable model output yields an empty plan,
// which the executor turns into a terminal decision.
func (p *Planner) Run(ctx context.Context, s *runstate.RunState) (*runstate.Delta, error) {
	resp, err := p.client.Generate(ctx, plannerSystemInstruction, plannerUserInput(s.Question, p.tools.Specs()), nil, p.opts)
	if err != nil {
		return nil, err
	}

	steps := parsePlan(resp.Text)
	log.Printf("[PLANNER] run=%s plan has %d steps", s.RunID, len(steps))
	return &runstate.Delta{Plan: steps, SetPlan: true}, nil
}

// #endregion planner

// #region plan-parsing

type planStep struct {
	Action  string         `json:"action"`
	Thought string         `json:"thought"`
	Name    string         `json:"name"`
	Input   map[string]any `json:"input"`
}

type planDoc struct {
	Steps []planStep `json:"steps"`
}

// parsePlan extracts the ordered step list from raw model output.
// Anything that does not contain a well-formed steps object comes back
// as an empty plan.
func parsePlan(raw string) []runstate.PlanStep {
	text := strings.TrimSpace(thinkPattern.ReplaceAllString(raw, ""))

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil
	}

	var doc planDoc
	if err := json.Unmarshal([]byte(text[start:end+1]), &doc); err != nil {
		return nil
	}

	out := make([]runstate.PlanStep, 0, len(doc.Steps))
	for _, st := range doc.Steps {
		in := st.Input
		if in == nil {
			in = map[string]any{}
		}
		out = append(out, runstate.PlanStep{
			Action:  st.Action,
			Thought: st.Thought,
			Name:    st.Name,
			Input:   in,
		})
	}
	return out
}

// #endregion plan-parsing
