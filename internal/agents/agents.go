// Package agents holds the model-backed and deterministic agents the
// graph can hand a run to, plus their registry.
package agents

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/brainbox/internal/runstate"
)

// #region decisions

// DecisionAnswerReady marks an answer awaiting the critic.
const DecisionAnswerReady = "ANSWER_READY"

// DecisionAbortAgent marks an unparseable model decision.
const DecisionAbortAgent = "ABORT_AGENT_ERROR"

// #endregion decisions

// #region agent

// Agent is one selectable brain. Run returns a partial state update.
type Agent interface {
	Name() string
	Run(ctx context.Context, s *runstate.RunState) (*runstate.Delta, error)
}

// #endregion agent

// #region registry

// Registry maps agent names to implementations. Populated once at
// graph build time.
type Registry struct {
	byName map[string]Agent
}

// NewRegistry creates a registry holding the given agents.
func NewRegistry(as ...Agent) *Registry {
	r := &Registry{byName: make(map[string]Agent, len(as))}
	for _, a := range as {
		r.byName[a.Name()] = a
	}
	return r
}

// Register adds an agent, replacing any prior agent with the same name.
func (r *Registry) Register(a Agent) {
	r.byName[a.Name()] = a
}

// Get returns the named agent.
func (r *Registry) Get(name string) (Agent, error) {
	a, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("agent %q not found in registry", name)
	}
	return a, nil
}

// #endregion registry
