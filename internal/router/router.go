// Package router holds the cheap deterministic decisions made before
// any model call: the system router that pattern-matches questions
// onto tools, and the agent selection heuristic.
package router

import (
	"fmt"
	"log"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/brainbox/internal/model"
	"github.com/danielpatrickdp/brainbox/internal/runstate"
)

// #region decisions

// RouteToModel asks the graph to hand control to an agent.
const RouteToModel = "LLM"

// DecisionNoRoute terminates a deterministic chain that would
// otherwise re-fire the same tool forever.
const DecisionNoRoute = "NO_ROUTE"

// DecisionStepLimit force-terminates a run past the step ceiling.
const DecisionStepLimit = "ABORT_STEP_LIMIT"

// #endregion decisions

// #region system-router

var arithmeticExpr = regexp.MustCompile(`^[0-9+\-*/%(). ]+$`)
var hasDigit = regexp.MustCompile(`[0-9]`)

// System is the deterministic system router. When a cheap rule matches
// the raw question it populates the tool request directly and routes
// straight to tool execution, skipping the model entirely.
type System struct {
	MaxSteps int
}

// Route inspects the state and returns the routing update.
func (r System) Route(s *runstate.RunState) *runstate.Delta {
	if r.MaxSteps > 0 && s.StepCount >= r.MaxSteps {
		log.Printf("[ROUTER] step ceiling %d reached", r.MaxSteps)
		return &runstate.Delta{FinalDecision: DecisionStepLimit, Response: answerFromMemory(s)}
	}

	det := deterministicRequest(s.Question)

	if len(s.History) > 0 {
		// The same deterministic rule would fire again with the same
		// input; stop here instead of cycling, carrying the prior
		// tool result as the answer.
		if det != nil && refiresLast(det, s.History[len(s.History)-1]) {
			log.Printf("[ROUTER] loop prevention: %s would re-fire, terminating", det.Name)
			return &runstate.Delta{FinalDecision: DecisionNoRoute, Response: answerFromMemory(s)}
		}
		// Work has been done; the model decides summarize-or-continue.
		return &runstate.Delta{NextStep: RouteToModel}
	}

	if det != nil {
		log.Printf("[ROUTER] deterministic match: %s %v", det.Name, det.Input)
		return &runstate.Delta{
			ToolRequest: det,
			NextStep:    det.Name,
			StepCount:   runstate.StepTo(s.StepCount + 1),
		}
	}

	return &runstate.Delta{NextStep: RouteToModel}
}

// deterministicRequest matches the raw question against the cheap
// rules. Returns nil when no rule applies.
func deterministicRequest(question string) *runstate.ToolRequest {
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return nil
	}

	// The entire question is an arithmetic expression.
	if arithmeticExpr.MatchString(q) && hasDigit.MatchString(q) {
		return &runstate.ToolRequest{
			Name:    "calculator",
			Input:   map[string]any{"expression": q},
			Thought: "Router shortcut",
		}
	}

	if expr, ok := strings.CutPrefix(q, "calculate "); ok {
		return &runstate.ToolRequest{
			Name:    "calculator",
			Input:   map[string]any{"expression": strings.TrimSpace(expr)},
			Thought: "Router shortcut",
		}
	}

	return nil
}

// refiresLast reports whether det repeats the previous step's tool
// call with identical input.
func refiresLast(det *runstate.ToolRequest, last runstate.HistoryEntry) bool {
	return last.Request != nil &&
		last.Request.Name == det.Name &&
		reflect.DeepEqual(last.Request.Input, det.Input)
}

// answerFromMemory projects the most recent tool result into a
// response so a terminated chain still carries its best answer.
func answerFromMemory(s *runstate.RunState) *model.Response {
	if len(s.History) == 0 {
		return nil
	}
	last := s.History[len(s.History)-1]
	if last.Result == nil {
		return nil
	}
	return &model.Response{Text: formatResult(last.Result), ModelName: "system-router"}
}

func formatResult(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// #endregion system-router

// #region agent-selector

// toolVocabulary triggers the tool agent when present in a question.
var toolVocabulary = []string{
	"calc", "calculate", "compute", "python", "code", "weather",
	"search", "multiply", "divide", "sum of", "evaluate",
}

// SelectAgent picks which agent handles the question. Precedence:
// documents present → retrieval agent; tool vocabulary → tool agent;
// otherwise the answer agent.
func SelectAgent(s *runstate.RunState) string {
	if len(s.Documents) > 0 {
		return "retrieval_agent"
	}
	q := strings.ToLower(s.Question)
	for _, kw := range toolVocabulary {
		if strings.Contains(q, kw) {
			return "tool_agent"
		}
	}
	return "answer_agent"
}

// #endregion agent-selector
