// Package codec wraps the gRPC connection to the inference sidecar,
// which fronts the language model, the embedder, and the vector store.
// Messages travel as JSON over gRPC: the sidecar registers the same
// content subtype, so no generated stubs are required on either side.
package codec

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

// #region json-codec

const jsonSubtype = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }
func (jsonCodec) Name() string { return jsonSubtype }

func init() { encoding.RegisterCodec(jsonCodec{}) }

// #endregion json-codec

// #region wire-types

// GenerateRequest is the wire form of a model generation call.
type GenerateRequest struct {
	SystemInstruction string         `json:"system_instruction"`
	UserInput         string         `json:"user_input"`
	Context           []string       `json:"context,omitempty"`
	RuntimeOptions    map[string]any `json:"runtime_options,omitempty"`
}

// GenerateResponse carries the generated text plus usage counters.
type GenerateResponse struct {
	Text       string         `json:"text"`
	ModelName  string         `json:"model_name"`
	TokenUsage map[string]int `json:"token_usage"`
}

// EmbedRequest asks the sidecar for a text embedding.
type EmbedRequest struct {
	Text string `json:"text"`
}

// EmbedResponse carries the embedding vector.
type EmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// SearchRequest queries the sidecar vector store.
type SearchRequest struct {
	QueryText string `json:"query_text"`
	TopK      int    `json:"top_k"`
}

// SearchHit is a single vector search result.
type SearchHit struct {
	ID           string  `json:"id"`
	Text         string  `json:"text"`
	Score        float64 `json:"score"`
	MetadataJSON string  `json:"metadata_json"`
}

// SearchResponse carries ranked vector search hits.
type SearchResponse struct {
	Results []SearchHit `json:"results"`
}

// WebSearchRequest queries the sidecar web search service.
type WebSearchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

// WebSearchHit is a single web search result.
type WebSearchHit struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// WebSearchResponse carries web search hits.
type WebSearchResponse struct {
	Results []WebSearchHit `json:"results"`
}

// #endregion wire-types

// #region client

// Invoker is the transport seam; *grpc.ClientConn satisfies it.
// Tests inject a fake.
type Invoker interface {
	Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error
}

// Client is the inference sidecar client.
type Client struct {
	conn    *grpc.ClientConn
	invoker Invoker
}

// New connects to the inference sidecar at addr.
func New(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonSubtype)),
	)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, invoker: conn}, nil
}

// NewWithInvoker creates a Client over an injected transport.
// Used for testing without a real gRPC connection.
func NewWithInvoker(inv Invoker) *Client {
	return &Client{invoker: inv}
}

// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion client

// #region rpcs

// Generate sends a prompt to the model behind the sidecar.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	var resp GenerateResponse
	if err := c.invoker.Invoke(ctx, "/brainbox.Inference/Generate", &req, &resp); err != nil {
		return GenerateResponse{}, fmt.Errorf("generate rpc: %w", err)
	}
	return resp, nil
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	var resp EmbedResponse
	if err := c.invoker.Invoke(ctx, "/brainbox.Inference/Embed", &EmbedRequest{Text: text}, &resp); err != nil {
		return nil, fmt.Errorf("embed rpc: %w", err)
	}
	return resp.Embedding, nil
}

// Search queries the sidecar vector store.
func (c *Client) Search(ctx context.Context, queryText string, topK int) ([]SearchHit, error) {
	var resp SearchResponse
	if err := c.invoker.Invoke(ctx, "/brainbox.Inference/Search", &SearchRequest{QueryText: queryText, TopK: topK}, &resp); err != nil {
		return nil, fmt.Errorf("search rpc: %w", err)
	}
	return resp.Results, nil
}

// WebSearch queries the sidecar web search service.
func (c *Client) WebSearch(ctx context.Context, query string, maxResults int) ([]WebSearchHit, error) {
	var resp WebSearchResponse
	if err := c.invoker.Invoke(ctx, "/brainbox.Inference/WebSearch", &WebSearchRequest{Query: query, MaxResults: maxResults}, &resp); err != nil {
		return nil, fmt.Errorf("web search rpc: %w", err)
	}
	return resp.Results, nil
}

// #endregion rpcs
