package tools

import (
	"context"
	"fmt"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// #region code-tool

// Code evaluates a Go snippet in an embedded interpreter. A fresh
// interpreter per call keeps snippets from observing each other's
// state; cross-step data flows through tool memory like any other tool.
type Code struct{}

// Spec implements Tool.
func (Code) Spec() Spec {
	return Spec{
		Name:        "code",
		Description: "Evaluates a Go expression or snippet and returns its value.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"source": map[string]any{
					"type":        "string",
					"description": "Go expression or statements to evaluate (e.g., 'len(\"hello\")*3')",
				},
			},
			"required": []string{"source"},
		},
	}
}

// Run implements Tool.
func (Code) Run(ctx context.Context, input map[string]any) (any, error) {
	raw, ok := input["source"]
	if !ok || raw == nil {
		return nil, fmt.Errorf("missing source")
	}
	src, ok := raw.(string)
	if !ok {
		src = fmt.Sprint(raw)
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("interpreter setup: %w", err)
	}
	v, err := i.EvalWithContext(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("eval: %w", err)
	}
	if !v.IsValid() {
		return nil, nil
	}
	return v.Interface(), nil
}

// #endregion code-tool
