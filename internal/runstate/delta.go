package runstate

import (
	"github.com/danielpatrickdp/brainbox/internal/confidence"
	"github.com/danielpatrickdp/brainbox/internal/model"
	"github.com/danielpatrickdp/brainbox/internal/retrieval"
)

// #region delta

// Delta is the typed partial update a node returns. Unset fields leave
// the state untouched; set fields win wholesale (sequence fields are
// replaced, not appended — a node wanting an append returns the full
// appended sequence). Explicit clear flags exist for the ephemeral
// fields whose "set to nothing" is a meaningful transition.
type Delta struct {
	Documents    []retrieval.Document
	SetDocuments bool

	RetrievalSignals map[string]any // nil = unchanged

	Response   *model.Response
	Tier       string
	Confidence *confidence.Signals

	FinalDecision string

	Attempts    []Attempt
	SetAttempts bool

	ToolRequest      *ToolRequest
	ClearToolRequest bool

	ToolResult      any
	SetToolResult   bool
	ClearToolResult bool

	// ToolMemory entries are merged by key; existing keys are
	// overwritten, none are ever removed.
	ToolMemory map[string]any

	StepCount *int

	History    []HistoryEntry
	SetHistory bool

	Plan    []PlanStep
	SetPlan bool

	NextStep      string
	ClearNextStep bool
}

// #endregion delta

// #region apply

// Apply merges the delta into s, last writer wins.
func (d *Delta) Apply(s *RunState) {
	if d == nil {
		return
	}
	if d.SetDocuments {
		s.Documents = d.Documents
	}
	if d.RetrievalSignals != nil {
		s.RetrievalSignals = d.RetrievalSignals
	}
	if d.Response != nil {
		s.Response = d.Response
	}
	if d.Tier != "" {
		s.Tier = d.Tier
	}
	if d.Confidence != nil {
		s.Confidence = d.Confidence
	}
	if d.FinalDecision != "" {
		s.FinalDecision = d.FinalDecision
	}
	if d.SetAttempts {
		s.Attempts = d.Attempts
	}
	if d.ClearToolRequest {
		s.ToolRequest = nil
	} else if d.ToolRequest != nil {
		s.ToolRequest = d.ToolRequest
	}
	if d.ClearToolResult {
		s.ToolResult = nil
	} else if d.SetToolResult {
		s.ToolResult = d.ToolResult
	}
	for k, v := range d.ToolMemory {
		s.ToolMemory[k] = v
	}
	if d.StepCount != nil {
		s.StepCount = *d.StepCount
	}
	if d.SetHistory {
		s.History = d.History
	}
	if d.SetPlan {
		s.Plan = d.Plan
	}
	if d.ClearNextStep {
		s.NextStep = ""
	} else if d.NextStep != "" {
		s.NextStep = d.NextStep
	}
}

// StepTo is a convenience for setting the step counter in a delta.
func StepTo(n int) *int { return &n }

// #endregion apply
