package agents

import (
	"testing"
)

func TestParseDecisionToolCall(t *testing.T) {
	raw := `{"thought": "need math", "tool": {"name": "calculator", "input": {"expression": "15 * 6"}}, "final_answer": null}`
	d, ok := parseDecision(raw)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	req := d.toRequest()
	if req == nil || req.Name != "calculator" {
		t.Fatalf("expected calculator request, got %+v", req)
	}
	if req.Input["expression"] != "15 * 6" {
		t.Fatalf("expected expression input, got %v", req.Input)
	}
	if req.Thought != "need math" {
		t.Fatalf("expected thought carried over, got %q", req.Thought)
	}
}

func TestParseDecisionFinalAnswer(t *testing.T) {
	raw := `{"thought": "done", "tool": null, "final_answer": "80"}`
	d, ok := parseDecision(raw)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if d.toRequest() != nil {
		t.Fatal("final answer must not produce a tool request")
	}
	if d.FinalAnswer == nil || d.FinalAnswer.text != "80" {
		t.Fatalf("expected answer 80, got %+v", d.FinalAnswer)
	}
}

func TestParseDecisionSurroundingProse(t *testing.T) {
	raw := "Sure, here is my step:\n" +
		`{"thought": "t", "tool": {"name": "websearch", "input": {"query": "go"}}, "final_answer": null}` +
		"\nhope that helps"
	d, ok := parseDecision(raw)
	if !ok {
		t.Fatal("expected parse to succeed with surrounding prose")
	}
	if d.Tool == nil || d.Tool.Name != "websearch" {
		t.Fatalf("expected websearch call, got %+v", d.Tool)
	}
}

func TestParseDecisionNumericFinalAnswer(t *testing.T) {
	raw := `{"thought": "t", "tool": null, "final_answer": 80}`
	d, ok := parseDecision(raw)
	if !ok {
		t.Fatal("expected numeric answer to parse")
	}
	if d.FinalAnswer == nil || d.FinalAnswer.text != "80" {
		t.Fatalf("expected 80, got %+v", d.FinalAnswer)
	}
}

func TestParseDecisionFinalAnswerFallback(t *testing.T) {
	raw := "I could not produce JSON.\nFinal Answer: the capital is Paris"
	d, ok := parseDecision(raw)
	if !ok {
		t.Fatal("expected fallback to fire")
	}
	if d.FinalAnswer == nil || d.FinalAnswer.text != "the capital is Paris" {
		t.Fatalf("expected recovered answer, got %+v", d.FinalAnswer)
	}
}

func TestParseDecisionReasoningTraceStripped(t *testing.T) {
	raw := "<think>{\"tool\": \"wrong\"}</think>" +
		`{"thought": "t", "tool": null, "final_answer": "ok"}`
	d, ok := parseDecision(raw)
	if !ok {
		t.Fatal("expected parse to succeed after stripping trace")
	}
	if d.FinalAnswer == nil || d.FinalAnswer.text != "ok" {
		t.Fatalf("expected ok, got %+v", d.FinalAnswer)
	}
}

func TestParseDecisionGarbage(t *testing.T) {
	if _, ok := parseDecision("total nonsense with no structure"); ok {
		t.Fatal("expected garbage to fail")
	}
	if _, ok := parseDecision(`{"thought": "t", "tool": null, "final_answer": null}`); ok {
		t.Fatal("a decision with neither tool nor answer is unusable")
	}
}

func TestToRequestDefaultsInput(t *testing.T) {
	d := decision{Tool: &toolCall{Name: "code"}}
	req := d.toRequest()
	if req.Input == nil {
		t.Fatal("expected non-nil input map")
	}
}
