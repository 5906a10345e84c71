package agents

import (
	"context"
	"testing"

	"github.com/danielpatrickdp/brainbox/internal/model"
	"github.com/danielpatrickdp/brainbox/internal/retrieval"
	"github.com/danielpatrickdp/brainbox/internal/runstate"
	"github.com/danielpatrickdp/brainbox/internal/tools"
)

// scriptedClient returns canned responses in order.
type scriptedClient struct {
	responses []string
	calls     int
	lastOpts  model.Options
}

func (c *scriptedClient) Generate(ctx context.Context, system, user string, docs []string, opts model.Options) (model.Response, error) {
	c.lastOpts = opts
	text := c.responses[c.calls%len(c.responses)]
	c.calls++
	return model.Response{Text: text, ModelName: "scripted"}, nil
}

func TestToolAgentEmitsToolRequest(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"thought": "math first", "tool": {"name": "calculator", "input": {"expression": "15 * 6"}}, "final_answer": null}`,
	}}
	a := NewToolAgent(client, tools.NewRegistry(tools.Calculator{}))

	s := runstate.New("what is 15 * 6")
	d, err := a.Run(context.Background(), s)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if d.ToolRequest == nil || d.ToolRequest.Name != "calculator" {
		t.Fatalf("expected calculator request, got %+v", d.ToolRequest)
	}
	if d.StepCount == nil || *d.StepCount != 1 {
		t.Fatal("expected step increment")
	}
	if client.lastOpts.Temperature != 0 {
		t.Fatalf("tool selection must run at temperature 0, got %v", client.lastOpts.Temperature)
	}
}

func TestToolAgentFinalAnswer(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"thought": "got it", "tool": null, "final_answer": "90"}`,
	}}
	a := NewToolAgent(client, tools.NewRegistry(tools.Calculator{}))

	s := runstate.New("what is 15 * 6")
	d, err := a.Run(context.Background(), s)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if d.FinalDecision != DecisionAnswerReady {
		t.Fatalf("expected ANSWER_READY, got %q", d.FinalDecision)
	}
	if d.Response == nil || d.Response.Text != "90" {
		t.Fatalf("expected answer 90, got %+v", d.Response)
	}
}

func TestToolAgentUnparseableAborts(t *testing.T) {
	client := &scriptedClient{responses: []string{"no structure at all"}}
	a := NewToolAgent(client, tools.NewRegistry(tools.Calculator{}))

	d, err := a.Run(context.Background(), runstate.New("q"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if d.FinalDecision != DecisionAbortAgent {
		t.Fatalf("expected abort, got %q", d.FinalDecision)
	}
}

func TestRetrievalAgentRecordsAttempt(t *testing.T) {
	client := &scriptedClient{responses: []string{"Paris is the capital of France."}}
	a := NewRetrievalAgent(client)

	s := runstate.New("what is the capital of france")
	s.Documents = []retrieval.Document{{ID: "d1", Content: "the capital of france is paris", Score: 0.9}}

	d, err := a.Generate(context.Background(), s, "TIER_2", model.Options{Temperature: 0.3})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !d.SetAttempts || len(d.Attempts) != 1 {
		t.Fatalf("expected one recorded attempt, got %+v", d.Attempts)
	}
	att := d.Attempts[0]
	if att.Tier != "TIER_2" || att.Options.Temperature != 0.3 {
		t.Fatalf("attempt records wrong tier: %+v", att)
	}
	if att.Confidence != nil {
		t.Fatal("confidence is filled by evaluation, not generation")
	}
	if d.Tier != "TIER_2" {
		t.Fatalf("expected tier set, got %q", d.Tier)
	}
}

func TestRetrievalAgentAppendsAttempts(t *testing.T) {
	client := &scriptedClient{responses: []string{"answer"}}
	a := NewRetrievalAgent(client)

	s := runstate.New("q")
	s.Attempts = []runstate.Attempt{{Tier: "TIER_1"}}

	d, err := a.Generate(context.Background(), s, "TIER_2", model.Options{Temperature: 0.3})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(d.Attempts) != 2 || d.Attempts[1].Tier != "TIER_2" {
		t.Fatalf("expected append, got %+v", d.Attempts)
	}
	if len(s.Attempts) != 1 {
		t.Fatal("generate must not mutate the state in place")
	}
}

func TestCriticAttachesConfidence(t *testing.T) {
	s := runstate.New("q")
	if d := Critic(s); d != nil {
		t.Fatal("critic without a response must be a no-op")
	}

	s.Response = &model.Response{Text: "paris"}
	s.Documents = []retrieval.Document{{ID: "d1", Content: "paris france", Score: 0.8}}
	d := Critic(s)
	if d == nil || d.Confidence == nil {
		t.Fatal("expected confidence signals")
	}
	if d.Confidence.AnswerCoverage != 1.0 {
		t.Fatalf("expected full coverage, got %v", d.Confidence.AnswerCoverage)
	}
}
