package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/danielpatrickdp/brainbox/internal/agents"
	"github.com/danielpatrickdp/brainbox/internal/confidence"
	"github.com/danielpatrickdp/brainbox/internal/model"
	"github.com/danielpatrickdp/brainbox/internal/router"
	"github.com/danielpatrickdp/brainbox/internal/runstate"
	"github.com/danielpatrickdp/brainbox/internal/tools"
)

// #region decisions

// DecisionRefuseNoContext terminates before any model call when the
// evidence guard finds nothing to ground an answer in.
const DecisionRefuseNoContext = "REFUSE_NO_CONTEXT"

// DecisionRefuseLowConfidence terminates after the last tier still
// fails the acceptance thresholds.
const DecisionRefuseLowConfidence = "REFUSE_LOW_CONFIDENCE"

// DecisionPlanExhausted terminates a planned run whose steps ran out
// without an answer step.
const DecisionPlanExhausted = "PLAN_EXHAUSTED"

// acceptDecision names the terminal decision for a tier that passed.
func acceptDecision(tierID string) string {
	return "ACCEPT_" + tierID
}

// #endregion decisions

// #region retrieval-nodes

// retrieveNode fills Documents and RetrievalSignals from the fused
// retriever. Retrieval failure aborts the run via the graph.
func (o *Orchestrator) retrieveNode(ctx context.Context, s *runstate.RunState) (*runstate.Delta, error) {
	res, err := o.retriever.Retrieve(ctx, s.Question, o.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	return &runstate.Delta{
		Documents:        res.Documents,
		SetDocuments:     true,
		RetrievalSignals: res.Signals,
	}, nil
}

// guardNode is the pre-generation evidence check.
func guardNode(_ context.Context, s *runstate.RunState) (*runstate.Delta, error) {
	if confidence.HasAnswerEvidence(s.Question, s.Documents) {
		return nil, nil
	}
	log.Printf("[ORCH] run=%s no answer evidence, refusing before generation", s.RunID)
	return &runstate.Delta{FinalDecision: DecisionRefuseNoContext}, nil
}

// #endregion retrieval-nodes

// #region tier-nodes

// tierNode generates one retry tier through the retrieval agent.
func (o *Orchestrator) tierNode(tier Tier) func(context.Context, *runstate.RunState) (*runstate.Delta, error) {
	return func(ctx context.Context, s *runstate.RunState) (*runstate.Delta, error) {
		return o.retrievalAgent.Generate(ctx, s, tier.ID, tier.Options)
	}
}

// evalNode scores the tier that just ran and decides accept, retry,
// or refuse. The attempt record gets its confidence filled here, so
// diagnostics show the signals each tier produced.
func (o *Orchestrator) evalNode(tier Tier, last bool) func(context.Context, *runstate.RunState) (*runstate.Delta, error) {
	return func(_ context.Context, s *runstate.RunState) (*runstate.Delta, error) {
		if s.Response == nil {
			return nil, fmt.Errorf("eval %s: no response to score", tier.ID)
		}
		sig := confidence.Evaluate(s.Response.Text, s.Documents)

		attempts := append([]runstate.Attempt(nil), s.Attempts...)
		if n := len(attempts); n > 0 {
			attempts[n-1].Confidence = &sig
		}
		d := &runstate.Delta{
			Confidence:  &sig,
			Attempts:    attempts,
			SetAttempts: true,
		}

		accepted := sig.RetrievalSupport >= o.cfg.MinRetrievalSupport &&
			sig.AnswerCoverage >= o.cfg.MinAnswerCoverage
		log.Printf("[ORCH] run=%s tier=%s support=%.3f coverage=%.3f accepted=%v",
			s.RunID, tier.ID, sig.RetrievalSupport, sig.AnswerCoverage, accepted)

		switch {
		case accepted:
			d.FinalDecision = acceptDecision(tier.ID)
		case last:
			d.FinalDecision = DecisionRefuseLowConfidence
		}
		return d, nil
	}
}

// #endregion tier-nodes

// #region routing-nodes

// routerNode runs the deterministic system router.
func (o *Orchestrator) routerNode(_ context.Context, s *runstate.RunState) (*runstate.Delta, error) {
	return o.router.Route(s), nil
}

// agentSelectNode picks the agent for this question and validates the
// pick against the registry before handing control over.
func (o *Orchestrator) agentSelectNode(_ context.Context, s *runstate.RunState) (*runstate.Delta, error) {
	name := router.SelectAgent(s)
	if _, err := o.agents.Get(name); err != nil {
		log.Printf("[ORCH] run=%s %v", s.RunID, err)
		return &runstate.Delta{FinalDecision: "ABORT_UNKNOWN_AGENT_" + strings.ToUpper(name)}, nil
	}
	log.Printf("[ORCH] run=%s selected agent=%s", s.RunID, name)
	return &runstate.Delta{NextStep: name}, nil
}

// agentNode dispatches to the registered agent named by NextStep.
func (o *Orchestrator) agentNode(name string) func(context.Context, *runstate.RunState) (*runstate.Delta, error) {
	return func(ctx context.Context, s *runstate.RunState) (*runstate.Delta, error) {
		a, err := o.agents.Get(name)
		if err != nil {
			return nil, err
		}
		return a.Run(ctx, s)
	}
}

// criticNode attaches confidence signals to a ready answer.
func criticNode(_ context.Context, s *runstate.RunState) (*runstate.Delta, error) {
	return agents.Critic(s), nil
}

// #endregion routing-nodes

// #region tool-nodes

// toolExecuteNode resolves chained inputs and runs the requested tool.
// Tool failures become an observable error-string result stored into
// tool memory like any success, not a run abort; only a missing
// registration aborts.
func (o *Orchestrator) toolExecuteNode(ctx context.Context, s *runstate.RunState) (*runstate.Delta, error) {
	req := s.ToolRequest
	if req == nil {
		return nil, fmt.Errorf("tool_execute: no pending tool request")
	}
	t, err := o.tools.Get(req.Name)
	if err != nil {
		log.Printf("[ORCH] run=%s %v", s.RunID, err)
		return &runstate.Delta{FinalDecision: "ABORT_UNKNOWN_TOOL_" + strings.ToUpper(req.Name)}, nil
	}

	input := tools.ResolveInputs(req.Input, s.ToolMemory)
	result, err := t.Run(ctx, input)
	if err != nil {
		log.Printf("[ORCH] run=%s tool=%s failed: %v", s.RunID, req.Name, err)
		errResult := fmt.Sprintf("Error: %v", err)
		return &runstate.Delta{
			ToolResult:    errResult,
			SetToolResult: true,
			ToolMemory:    map[string]any{req.Name: errResult},
		}, nil
	}

	log.Printf("[ORCH] run=%s tool=%s ok", s.RunID, req.Name)
	return &runstate.Delta{
		ToolResult:    result,
		SetToolResult: true,
		ToolMemory:    map[string]any{req.Name: result},
	}, nil
}

// observationNode commits the completed tool round to history and
// clears the ephemeral per-step fields.
func observationNode(_ context.Context, s *runstate.RunState) (*runstate.Delta, error) {
	history := append([]runstate.HistoryEntry(nil), s.History...)
	if s.ToolRequest != nil {
		history = append(history, runstate.HistoryEntry{
			Thought: s.ToolRequest.Thought,
			Request: s.ToolRequest,
			Result:  s.ToolResult,
		})
	}
	return &runstate.Delta{
		History:          history,
		SetHistory:       true,
		ClearToolRequest: true,
		ClearToolResult:  true,
		ClearNextStep:    true,
	}, nil
}

// #endregion tool-nodes

// #region executor-node

// executorNode consumes the plan one step per transition. Tool
// failures become error-string results and the plan keeps going; only
// an exhausted plan or an answer step terminates.
func (o *Orchestrator) executorNode(ctx context.Context, s *runstate.RunState) (*runstate.Delta, error) {
	if len(s.Plan) == 0 {
		log.Printf("[ORCH] run=%s plan exhausted after %d steps", s.RunID, s.StepCount)
		return &runstate.Delta{FinalDecision: DecisionPlanExhausted}, nil
	}
	step := s.Plan[0]
	rest := append([]runstate.PlanStep(nil), s.Plan[1:]...)

	switch step.Action {
	case "answer":
		text := "No answer provided."
		if v, ok := step.Input["answer"]; ok {
			text = fmt.Sprint(v)
		}
		log.Printf("[ORCH] run=%s plan answer after %d steps", s.RunID, s.StepCount)
		return &runstate.Delta{
			Plan:          rest,
			SetPlan:       true,
			Response:      &model.Response{Text: text, ModelName: "planner"},
			FinalDecision: agents.DecisionAnswerReady,
		}, nil

	case "tool":
		var result any
		if t, err := o.tools.Get(step.Name); err != nil {
			log.Printf("[ORCH] run=%s plan step tool=%s: %v", s.RunID, step.Name, err)
			result = fmt.Sprintf("Error: %v", err)
		} else {
			input := tools.ResolveInputs(step.Input, s.ToolMemory)
			result, err = t.Run(ctx, input)
			if err != nil {
				log.Printf("[ORCH] run=%s plan step tool=%s failed: %v", s.RunID, step.Name, err)
				result = fmt.Sprintf("Error: %v", err)
			}
		}

		req := &runstate.ToolRequest{Name: step.Name, Input: step.Input, Thought: step.Thought}
		history := append([]runstate.HistoryEntry(nil), s.History...)
		history = append(history, runstate.HistoryEntry{Thought: step.Thought, Request: req, Result: result})
		return &runstate.Delta{
			Plan:       rest,
			SetPlan:    true,
			History:    history,
			SetHistory: true,
			ToolMemory: map[string]any{step.Name: result},
			StepCount:  runstate.StepTo(s.StepCount + 1),
		}, nil

	default:
		// "thought" and anything unrecognized is consumed silently.
		return &runstate.Delta{Plan: rest, SetPlan: true}, nil
	}
}

// #endregion executor-node
