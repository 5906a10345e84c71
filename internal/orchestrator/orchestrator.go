package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/danielpatrickdp/brainbox/internal/agents"
	"github.com/danielpatrickdp/brainbox/internal/confidence"
	"github.com/danielpatrickdp/brainbox/internal/graph"
	"github.com/danielpatrickdp/brainbox/internal/model"
	"github.com/danielpatrickdp/brainbox/internal/retrieval"
	"github.com/danielpatrickdp/brainbox/internal/router"
	"github.com/danielpatrickdp/brainbox/internal/runlog"
	"github.com/danielpatrickdp/brainbox/internal/runstate"
	"github.com/danielpatrickdp/brainbox/internal/tools"
)

// #region result

// Result is the caller-facing projection of a finished run.
type Result struct {
	RunID         string
	Answer        string
	FinalDecision string
	Tier          string
	Confidence    *confidence.Signals
	Attempts      []runstate.Attempt
	Diagnostics   map[string]any
}

// refusalAnswer is returned when no accepted response exists.
const refusalAnswer = "I do not know"

// #endregion result

// #region orchestrator

// Recorder persists finished runs. Recording failures are logged and
// never affect the run outcome.
type Recorder interface {
	Record(ctx context.Context, e runlog.Entry) error
}

// Orchestrator owns one compiled graph and serves concurrent runs
// over it.
type Orchestrator struct {
	cfg            Config
	retriever      retrieval.Retriever
	tools          *tools.Registry
	agents         *agents.Registry
	retrievalAgent *agents.RetrievalAgent
	router         router.System
	graph          *graph.Graph
	planner        *graph.Graph
	recorder       Recorder
}

// Option adjusts orchestrator construction.
type Option func(*Orchestrator)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) { o.cfg = cfg }
}

// WithRecorder attaches a run recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithAgent registers an additional agent before the graph compiles.
func WithAgent(a agents.Agent) Option {
	return func(o *Orchestrator) { o.agents.Register(a) }
}

// New builds the engine around a fused retriever, a model client, and
// a tool registry.
func New(retriever retrieval.Retriever, client model.Client, toolReg *tools.Registry, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		cfg:            DefaultConfig(),
		retriever:      retriever,
		tools:          toolReg,
		retrievalAgent: agents.NewRetrievalAgent(client),
	}
	o.agents = agents.NewRegistry(
		o.retrievalAgent,
		agents.NewToolAgent(client, toolReg),
		agents.NewAnswerAgent(client, model.Options{Temperature: 0.3}),
		agents.NewPlanner(client, toolReg),
	)
	for _, opt := range opts {
		opt(o)
	}
	if len(o.cfg.Tiers) == 0 {
		return nil, fmt.Errorf("config has no generation tiers")
	}
	o.router = router.System{MaxSteps: o.cfg.MaxSteps}

	g, err := o.buildGraph()
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	o.graph = g

	p, err := o.buildPlannerGraph()
	if err != nil {
		return nil, fmt.Errorf("build planner graph: %w", err)
	}
	o.planner = p
	return o, nil
}

// #endregion orchestrator

// #region graph-wiring

func (o *Orchestrator) buildGraph() (*graph.Graph, error) {
	b := graph.NewBuilder()

	b.AddNode("retrieve", o.retrieveNode)
	b.AddNode("router", o.routerNode)
	b.AddNode("agent_select", o.agentSelectNode)
	b.AddNode("guard", guardNode)
	b.AddNode("tool_agent", o.agentNode("tool_agent"))
	b.AddNode("answer_agent", o.agentNode("answer_agent"))
	b.AddNode("critic", criticNode)
	b.AddNode("tool_execute", o.toolExecuteNode)
	b.AddNode("observation", observationNode)

	tierNames := make([]string, len(o.cfg.Tiers))
	for i, tier := range o.cfg.Tiers {
		tierNames[i] = fmt.Sprintf("tier_%d", i+1)
		b.AddNode(tierNames[i], o.tierNode(tier))
		b.AddNode(fmt.Sprintf("eval_%d", i+1), o.evalNode(tier, i == len(o.cfg.Tiers)-1))
	}

	b.SetEntryPoint("retrieve")
	b.AddEdge("retrieve", "router")

	b.AddConditionalEdges("router", func(s *runstate.RunState) string {
		if s.FinalDecision != "" {
			return graph.End
		}
		if s.ToolRequest != nil {
			return "tool_execute"
		}
		return "agent_select"
	}, "tool_execute", "agent_select")

	b.AddConditionalEdges("agent_select", func(s *runstate.RunState) string {
		switch {
		case s.FinalDecision != "":
			return graph.End
		case s.NextStep == "retrieval_agent":
			return "guard"
		case s.NextStep == "tool_agent":
			return "tool_agent"
		default:
			return "answer_agent"
		}
	}, "guard", "tool_agent", "answer_agent")

	b.AddConditionalEdges("guard", func(s *runstate.RunState) string {
		if s.FinalDecision != "" {
			return graph.End
		}
		return tierNames[0]
	}, tierNames[0])

	for i := range o.cfg.Tiers {
		evalName := fmt.Sprintf("eval_%d", i+1)
		b.AddEdge(tierNames[i], evalName)
		if i == len(o.cfg.Tiers)-1 {
			b.AddEdge(evalName, graph.End)
			continue
		}
		next := tierNames[i+1]
		b.AddConditionalEdges(evalName, func(s *runstate.RunState) string {
			if s.FinalDecision != "" {
				return graph.End
			}
			return next
		}, next)
	}

	b.AddConditionalEdges("tool_agent", func(s *runstate.RunState) string {
		switch {
		case s.FinalDecision == agents.DecisionAnswerReady:
			return "critic"
		case s.FinalDecision != "":
			return graph.End
		case s.ToolRequest != nil:
			return "tool_execute"
		default:
			return graph.End
		}
	}, "critic", "tool_execute")

	b.AddEdge("answer_agent", "critic")
	b.AddEdge("critic", graph.End)

	b.AddConditionalEdges("tool_execute", func(s *runstate.RunState) string {
		if s.FinalDecision != "" {
			return graph.End
		}
		return "observation"
	}, "observation")

	b.AddConditionalEdges("observation", func(s *runstate.RunState) string {
		if s.FinalDecision != "" {
			return graph.End
		}
		return "router"
	}, "router")

	return b.Compile()
}

// buildPlannerGraph wires the plan-then-execute pipeline: the planner
// drafts every step up front and the executor loops until the plan is
// consumed or an answer step fires.
func (o *Orchestrator) buildPlannerGraph() (*graph.Graph, error) {
	b := graph.NewBuilder()

	b.AddNode("planner", o.agentNode("planner"))
	b.AddNode("executor", o.executorNode)

	b.SetEntryPoint("planner")
	b.AddEdge("planner", "executor")

	b.AddConditionalEdges("executor", func(s *runstate.RunState) string {
		if s.FinalDecision != "" {
			return graph.End
		}
		return "executor"
	}, "executor")

	return b.Compile()
}

// #endregion graph-wiring

// #region run

// Run executes one query end to end. The returned result is always
// usable; orchestration faults surface as ABORT decisions, not errors.
func (o *Orchestrator) Run(ctx context.Context, question string) (Result, error) {
	return o.run(ctx, question, o.graph)
}

// RunPlanned executes one query through the plan-then-execute
// pipeline instead of the routed graph.
func (o *Orchestrator) RunPlanned(ctx context.Context, question string) (Result, error) {
	return o.run(ctx, question, o.planner)
}

func (o *Orchestrator) run(ctx context.Context, question string, g *graph.Graph) (Result, error) {
	s := runstate.New(question)
	log.Printf("[ORCH] run=%s start question=%q", s.RunID, question)

	g.Invoke(ctx, s)
	res := o.project(s)
	log.Printf("[ORCH] run=%s done decision=%s steps=%d attempts=%d",
		res.RunID, res.FinalDecision, s.StepCount, len(res.Attempts))

	if o.recorder != nil {
		if err := o.recorder.Record(ctx, entryFor(s, res)); err != nil {
			log.Printf("[ORCH] run=%s record failed: %v", res.RunID, err)
		}
	}
	return res, nil
}

func (o *Orchestrator) project(s *runstate.RunState) Result {
	res := Result{
		RunID:         s.RunID,
		Answer:        refusalAnswer,
		FinalDecision: s.FinalDecision,
		Tier:          s.Tier,
		Confidence:    s.Confidence,
		Attempts:      s.Attempts,
		Diagnostics: map[string]any{
			"num_documents":     len(s.Documents),
			"retrieval_signals": s.RetrievalSignals,
			"step_count":        s.StepCount,
			"history_length":    len(s.History),
			"tool_memory":       s.ToolMemory,
		},
	}
	if res.FinalDecision == "" {
		res.FinalDecision = "UNKNOWN"
	}
	if s.Response != nil && accepted(res.FinalDecision) {
		res.Answer = s.Response.Text
	}
	return res
}

// accepted reports whether the decision carries the response text out
// as the answer. Refusals and aborts keep the refusal answer.
func accepted(decision string) bool {
	switch {
	case strings.HasPrefix(decision, "ACCEPT_"):
		return true
	case decision == agents.DecisionAnswerReady:
		return true
	case decision == router.DecisionNoRoute, decision == router.DecisionStepLimit:
		return true
	default:
		return false
	}
}

func entryFor(s *runstate.RunState, res Result) runlog.Entry {
	e := runlog.Entry{
		RunID:         res.RunID,
		Question:      s.Question,
		Answer:        res.Answer,
		FinalDecision: res.FinalDecision,
		Tier:          res.Tier,
		Steps:         s.StepCount,
		Attempts:      len(res.Attempts),
	}
	if res.Confidence != nil {
		e.RetrievalSupport = res.Confidence.RetrievalSupport
		e.AnswerCoverage = res.Confidence.AnswerCoverage
	}
	for i, a := range res.Attempts {
		ae := runlog.AttemptEntry{
			Seq:         i + 1,
			Tier:        a.Tier,
			Model:       a.Model,
			Temperature: a.Options.Temperature,
		}
		if a.Confidence != nil {
			ae.RetrievalSupport = a.Confidence.RetrievalSupport
			ae.AnswerCoverage = a.Confidence.AnswerCoverage
		}
		e.TierAttempts = append(e.TierAttempts, ae)
	}
	return e
}

// #endregion run
