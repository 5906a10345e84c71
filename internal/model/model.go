// Package model defines the language model contract consumed by the
// orchestration graph. The model itself lives behind the inference
// sidecar; the engine only sees text plus usage counters.
package model

import (
	"context"

	"github.com/danielpatrickdp/brainbox/internal/codec"
)

// #region types

// Options are per-call runtime options. Temperature at minimum must be
// honored by implementations; it is what distinguishes retry tiers.
type Options struct {
	Temperature float64
	MaxTokens   int // 0 = provider default
}

// Response is a completed generation.
type Response struct {
	Text       string
	ModelName  string
	TokenUsage map[string]int
}

// Client is implemented by language model backends.
type Client interface {
	Generate(ctx context.Context, systemInstruction, userInput string, contextDocs []string, opts Options) (Response, error)
}

// #endregion types

// #region codec-client

// CodecClient generates through the inference sidecar.
type CodecClient struct {
	client *codec.Client
}

// NewCodecClient wraps a sidecar connection as a model Client.
func NewCodecClient(client *codec.Client) *CodecClient {
	return &CodecClient{client: client}
}

// Generate implements Client.
func (c *CodecClient) Generate(ctx context.Context, systemInstruction, userInput string, contextDocs []string, opts Options) (Response, error) {
	runtime := map[string]any{"temperature": opts.Temperature}
	if opts.MaxTokens > 0 {
		runtime["max_tokens"] = opts.MaxTokens
	}
	resp, err := c.client.Generate(ctx, codec.GenerateRequest{
		SystemInstruction: systemInstruction,
		UserInput:         userInput,
		Context:           contextDocs,
		RuntimeOptions:    runtime,
	})
	if err != nil {
		return Response{}, err
	}
	return Response{
		Text:       resp.Text,
		ModelName:  resp.ModelName,
		TokenUsage: resp.TokenUsage,
	}, nil
}

// #endregion codec-client
