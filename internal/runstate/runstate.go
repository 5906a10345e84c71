// Package runstate holds the single mutable record threaded through
// one execution of the orchestration graph, and the typed partial
// update nodes return.
package runstate

import (
	"github.com/danielpatrickdp/brainbox/internal/confidence"
	"github.com/danielpatrickdp/brainbox/internal/model"
	"github.com/danielpatrickdp/brainbox/internal/retrieval"
	"github.com/google/uuid"
)

// #region tool-types

// ToolRequest is an ephemeral request produced by a router or an
// agent, consumed by tool execution, then cleared.
type ToolRequest struct {
	Name    string
	Input   map[string]any
	Thought string
}

// HistoryEntry is one completed tool round in the append-only trail.
type HistoryEntry struct {
	Thought string
	Request *ToolRequest
	Result  any
}

// PlanStep is one planned action. Steps execute in order, one per
// graph transition, and are removed from the plan as they run.
type PlanStep struct {
	Action  string // "tool" | "answer" | "thought"
	Thought string
	Name    string // tool name, empty otherwise
	Input   map[string]any
}

// #endregion tool-types

// #region attempt

// Attempt records one generation tier. Appended, never overwritten.
type Attempt struct {
	Tier       string
	Model      string
	Options    model.Options
	Confidence *confidence.Signals // filled by the evaluation step
}

// #endregion attempt

// #region run-state

// RunState is created fresh per query, exclusively owned by one graph
// execution, and discarded after the result is projected.
type RunState struct {
	RunID    string
	Question string // immutable input

	Documents        []retrieval.Document
	RetrievalSignals map[string]any

	Response   *model.Response
	Tier       string
	Confidence *confidence.Signals

	// FinalDecision empty means "still running".
	FinalDecision string
	Attempts      []Attempt

	// Ephemeral per-step tool fields.
	ToolRequest *ToolRequest
	ToolResult  any

	// ToolMemory accumulates raw tool results by tool name across
	// steps. Entries are overwritten by key, never deleted.
	ToolMemory map[string]any

	StepCount int
	History   []HistoryEntry
	Plan      []PlanStep

	// NextStep is the ephemeral routing decision.
	NextStep string
}

// New creates the run state for one query.
func New(question string) *RunState {
	return &RunState{
		RunID:      uuid.New().String(),
		Question:   question,
		ToolMemory: make(map[string]any),
	}
}

// #endregion run-state
