package orchestrator

import (
	"context"
	"testing"
)

const multiStepPlan = `{
  "steps": [
    {"action": "thought", "name": null, "input": {}, "thought": "Plan the arithmetic."},
    {"action": "tool", "name": "calculator", "input": {"expression": "10 + 5"}, "thought": "First calculate the sum."},
    {"action": "answer", "name": null, "input": {"answer": "15"}, "thought": "Final answer."}
  ]
}`

func TestRunPlannedExecutesPlan(t *testing.T) {
	client := &scriptedClient{responses: []string{multiStepPlan}}
	o := newEngine(t, fixedRetriever{}, client)

	res, err := o.RunPlanned(context.Background(), "calculate 10 + 5")
	if err != nil {
		t.Fatalf("run planned: %v", err)
	}
	if res.FinalDecision != "ANSWER_READY" {
		t.Fatalf("expected ANSWER_READY, got %s", res.FinalDecision)
	}
	if res.Answer != "15" {
		t.Fatalf("expected 15, got %q", res.Answer)
	}
	if client.calls != 1 {
		t.Fatalf("planning must cost exactly one model call, got %d", client.calls)
	}
	if res.Diagnostics["step_count"] != 1 {
		t.Fatalf("thought steps must not count as tool steps, got %v", res.Diagnostics["step_count"])
	}
	memory := res.Diagnostics["tool_memory"].(map[string]any)
	if memory["calculator"] != 15.0 {
		t.Fatalf("expected calculator memory 15, got %v", memory["calculator"])
	}
	if res.Diagnostics["history_length"] != 1 {
		t.Fatalf("expected one committed tool round, got %v", res.Diagnostics["history_length"])
	}
}

func TestRunPlannedContinuesPastToolFailure(t *testing.T) {
	client := &scriptedClient{responses: []string{`{
  "steps": [
    {"action": "tool", "name": "calculator", "input": {"expression": "1 / 0"}, "thought": "Divide."},
    {"action": "answer", "name": null, "input": {"answer": "done"}, "thought": "Final answer."}
  ]
}`}}
	o := newEngine(t, fixedRetriever{}, client)

	res, err := o.RunPlanned(context.Background(), "divide one by zero")
	if err != nil {
		t.Fatalf("run planned: %v", err)
	}
	if res.FinalDecision != "ANSWER_READY" {
		t.Fatalf("a failed step must not end the plan, got %s", res.FinalDecision)
	}
	if res.Answer != "done" {
		t.Fatalf("expected done, got %q", res.Answer)
	}
	memory := res.Diagnostics["tool_memory"].(map[string]any)
	if memory["calculator"] != "Error: division by zero" {
		t.Fatalf("failed step must store its error string, got %v", memory["calculator"])
	}
}

func TestRunPlannedUnknownToolContinues(t *testing.T) {
	client := &scriptedClient{responses: []string{`{
  "steps": [
    {"action": "tool", "name": "telescope", "input": {}, "thought": "Look."},
    {"action": "answer", "name": null, "input": {"answer": "cloudy"}, "thought": "Final answer."}
  ]
}`}}
	o := newEngine(t, fixedRetriever{}, client)

	res, err := o.RunPlanned(context.Background(), "what is in the sky")
	if err != nil {
		t.Fatalf("run planned: %v", err)
	}
	if res.Answer != "cloudy" {
		t.Fatalf("expected cloudy, got %q", res.Answer)
	}
	memory := res.Diagnostics["tool_memory"].(map[string]any)
	if s, ok := memory["telescope"].(string); !ok || s == "" {
		t.Fatalf("unregistered tool step must leave an error result, got %v", memory["telescope"])
	}
}

func TestRunPlannedExhaustedPlanRefuses(t *testing.T) {
	client := &scriptedClient{responses: []string{"I cannot plan this."}}
	o := newEngine(t, fixedRetriever{}, client)

	res, err := o.RunPlanned(context.Background(), "do something")
	if err != nil {
		t.Fatalf("run planned: %v", err)
	}
	if res.FinalDecision != DecisionPlanExhausted {
		t.Fatalf("expected %s, got %s", DecisionPlanExhausted, res.FinalDecision)
	}
	if res.Answer != refusalAnswer {
		t.Fatalf("an exhausted plan must refuse, got %q", res.Answer)
	}
}
