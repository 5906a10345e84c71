// Package graph executes a fixed set of named nodes connected by
// deterministic and conditional edges over a run state, until a
// terminal condition is reached. Nodes run strictly sequentially
// within one run; a node may do I/O internally but the engine does not
// advance until its update is merged.
package graph

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/danielpatrickdp/brainbox/internal/runstate"
)

// #region types

// End is the terminal pseudo-node.
const End = "__end__"

// NodeFunc computes a partial update from the current state. A nil
// delta means no change.
type NodeFunc func(ctx context.Context, s *runstate.RunState) (*runstate.Delta, error)

// Predicate picks the next node after a conditional edge. It must
// return one of the targets declared at build time (or End).
type Predicate func(s *runstate.RunState) string

type conditional struct {
	pick    Predicate
	targets map[string]bool
}

// #endregion types

// #region builder

// Builder accumulates nodes and edges; Compile validates the topology
// so unknown node names fail at build time, not at run time.
type Builder struct {
	nodes map[string]NodeFunc
	edges map[string]string
	conds map[string]conditional
	entry string
	err   error
}

// NewBuilder creates an empty graph builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes: make(map[string]NodeFunc),
		edges: make(map[string]string),
		conds: make(map[string]conditional),
	}
}

// AddNode registers a named node.
func (b *Builder) AddNode(name string, fn NodeFunc) *Builder {
	if name == End || name == "" {
		b.fail(fmt.Errorf("invalid node name %q", name))
		return b
	}
	if _, dup := b.nodes[name]; dup {
		b.fail(fmt.Errorf("duplicate node %q", name))
		return b
	}
	b.nodes[name] = fn
	return b
}

// AddEdge adds an unconditional edge from → to. to may be End.
func (b *Builder) AddEdge(from, to string) *Builder {
	if _, dup := b.edges[from]; dup {
		b.fail(fmt.Errorf("node %q already has an outgoing edge", from))
		return b
	}
	if _, dup := b.conds[from]; dup {
		b.fail(fmt.Errorf("node %q already has conditional edges", from))
		return b
	}
	b.edges[from] = to
	return b
}

// AddConditionalEdges routes from via pick, whose result must be one
// of targets or End.
func (b *Builder) AddConditionalEdges(from string, pick Predicate, targets ...string) *Builder {
	if _, dup := b.edges[from]; dup {
		b.fail(fmt.Errorf("node %q already has an outgoing edge", from))
		return b
	}
	if _, dup := b.conds[from]; dup {
		b.fail(fmt.Errorf("node %q already has conditional edges", from))
		return b
	}
	set := map[string]bool{End: true}
	for _, t := range targets {
		set[t] = true
	}
	b.conds[from] = conditional{pick: pick, targets: set}
	return b
}

// SetEntryPoint designates the starting node.
func (b *Builder) SetEntryPoint(name string) *Builder {
	b.entry = name
	return b
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Compile validates the graph and returns an executable form.
func (b *Builder) Compile() (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.entry == "" {
		return nil, fmt.Errorf("no entry point set")
	}
	if _, ok := b.nodes[b.entry]; !ok {
		return nil, fmt.Errorf("entry point %q is not a node", b.entry)
	}
	for from, to := range b.edges {
		if _, ok := b.nodes[from]; !ok {
			return nil, fmt.Errorf("edge from unknown node %q", from)
		}
		if to != End {
			if _, ok := b.nodes[to]; !ok {
				return nil, fmt.Errorf("edge %q -> unknown node %q", from, to)
			}
		}
	}
	for from, c := range b.conds {
		if _, ok := b.nodes[from]; !ok {
			return nil, fmt.Errorf("conditional edges from unknown node %q", from)
		}
		for t := range c.targets {
			if t != End {
				if _, ok := b.nodes[t]; !ok {
					return nil, fmt.Errorf("conditional edge %q -> unknown node %q", from, t)
				}
			}
		}
	}
	for name := range b.nodes {
		if _, ok := b.edges[name]; ok {
			continue
		}
		if _, ok := b.conds[name]; ok {
			continue
		}
		return nil, fmt.Errorf("node %q has no outgoing edge", name)
	}
	return &Graph{
		nodes: b.nodes,
		edges: b.edges,
		conds: b.conds,
		entry: b.entry,
	}, nil
}

// #endregion builder

// #region graph

// maxTransitions bounds a single invocation as a safety net; cyclic
// graphs are expected to terminate far earlier via their own ceilings.
const maxTransitions = 64

// Graph is a compiled, immutable graph. One Graph serves arbitrarily
// many concurrent runs; all per-run mutation lives in the RunState.
type Graph struct {
	nodes map[string]NodeFunc
	edges map[string]string
	conds map[string]conditional
	entry string
}

// Invoke executes the graph over s until End. Node failures never
// propagate: they become an ABORT_<NODE>_ERROR terminal decision so
// the caller can tell orchestration faults from refusals.
func (g *Graph) Invoke(ctx context.Context, s *runstate.RunState) {
	current := g.entry
	for i := 0; i < maxTransitions; i++ {
		delta, err := g.runNode(ctx, current, s)
		if err != nil {
			log.Printf("[GRAPH] node %s failed: %v", current, err)
			s.FinalDecision = abortDecision(current)
			return
		}
		delta.Apply(s)

		next, err := g.next(current, s)
		if err != nil {
			log.Printf("[GRAPH] routing after %s failed: %v", current, err)
			s.FinalDecision = abortDecision(current)
			return
		}
		if next == End {
			return
		}
		current = next
	}
	log.Printf("[GRAPH] transition ceiling hit at node %s", current)
	s.FinalDecision = "ABORT_GRAPH_LIMIT"
}

func (g *Graph) runNode(ctx context.Context, name string, s *runstate.RunState) (delta *runstate.Delta, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return g.nodes[name](ctx, s)
}

func (g *Graph) next(current string, s *runstate.RunState) (string, error) {
	if to, ok := g.edges[current]; ok {
		return to, nil
	}
	c := g.conds[current]
	next := c.pick(s)
	if !c.targets[next] {
		return "", fmt.Errorf("predicate returned undeclared target %q", next)
	}
	return next, nil
}

func abortDecision(node string) string {
	return "ABORT_" + strings.ToUpper(node) + "_ERROR"
}

// #endregion graph
