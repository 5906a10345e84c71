// Package tools holds the executable tool registry and the chained
// input resolver that lets one tool consume another's output.
package tools

import (
	"context"
	"fmt"
	"sort"
)

// #region spec

// Spec describes a tool to the model. Registered once, never mutated.
type Spec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// #endregion spec

// #region tool

// Tool executes a structured request.
type Tool interface {
	Spec() Spec
	Run(ctx context.Context, input map[string]any) (any, error)
}

// #endregion tool

// #region registry

// Registry maps tool names to implementations. It is populated once at
// startup and read-only afterwards.
type Registry struct {
	byName map[string]Tool
}

// NewRegistry creates a registry holding the given tools.
func NewRegistry(ts ...Tool) *Registry {
	r := &Registry{byName: make(map[string]Tool, len(ts))}
	for _, t := range ts {
		r.byName[t.Spec().Name] = t
	}
	return r
}

// Register adds a tool, replacing any prior tool with the same name.
func (r *Registry) Register(t Tool) {
	r.byName[t.Spec().Name] = t
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, error) {
	t, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("tool %q not found in registry", name)
	}
	return t, nil
}

// Specs returns all tool specs sorted by name, so prompts built from
// the catalog are deterministic.
func (r *Registry) Specs() []Spec {
	specs := make([]Spec, 0, len(r.byName))
	for _, t := range r.byName {
		specs = append(specs, t.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// #endregion registry
