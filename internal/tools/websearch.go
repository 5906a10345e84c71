package tools

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/danielpatrickdp/brainbox/internal/codec"
)

// #region config

// WebSearchConfig holds web search parameters.
type WebSearchConfig struct {
	MaxResults int
}

// DefaultWebSearchConfig returns defaults, overridable via
// WEB_SEARCH_MAX_RESULTS.
func DefaultWebSearchConfig() WebSearchConfig {
	cfg := WebSearchConfig{MaxResults: 3}
	if v := os.Getenv("WEB_SEARCH_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxResults = n
		}
	}
	return cfg
}

// #endregion config

// #region websearch-tool

// WebSearch queries the web through the inference sidecar.
type WebSearch struct {
	client *codec.Client
	config WebSearchConfig
}

// NewWebSearch creates the tool over a sidecar connection.
func NewWebSearch(client *codec.Client, config WebSearchConfig) *WebSearch {
	return &WebSearch{client: client, config: config}
}

// Spec implements Tool.
func (w *WebSearch) Spec() Spec {
	return Spec{
		Name:        "websearch",
		Description: "Searches the web and returns titles, snippets, and URLs.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search query",
				},
			},
			"required": []string{"query"},
		},
	}
}

// Run implements Tool.
func (w *WebSearch) Run(ctx context.Context, input map[string]any) (any, error) {
	raw, ok := input["query"]
	if !ok || raw == nil {
		return nil, fmt.Errorf("missing query")
	}
	query, ok := raw.(string)
	if !ok {
		query = fmt.Sprint(raw)
	}
	hits, err := w.client.WebSearch(ctx, query, w.config.MaxResults)
	if err != nil {
		return nil, err
	}
	results := make([]map[string]string, 0, len(hits))
	for _, h := range hits {
		results = append(results, map[string]string{
			"title":   h.Title,
			"snippet": h.Snippet,
			"url":     h.URL,
		})
	}
	return results, nil
}

// #endregion websearch-tool
