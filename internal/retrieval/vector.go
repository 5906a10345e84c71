package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/danielpatrickdp/brainbox/internal/codec"
)

// #region vector-retriever

// VectorRetriever queries the sidecar vector store. Scores are cosine
// similarities, already bounded; fusion still normalizes them against
// the pooled candidates.
type VectorRetriever struct {
	client *codec.Client
}

// NewVectorRetriever creates a retriever over the sidecar vector store.
func NewVectorRetriever(client *codec.Client) *VectorRetriever {
	return &VectorRetriever{client: client}
}

// Name implements Retriever.
func (r *VectorRetriever) Name() string { return "vector" }

// Retrieve runs a similarity search via the sidecar.
func (r *VectorRetriever) Retrieve(ctx context.Context, query string, k int) (Result, error) {
	hits, err := r.client.Search(ctx, query, k)
	if err != nil {
		return Result{}, fmt.Errorf("vector search: %w", err)
	}
	docs := make([]Document, 0, len(hits))
	for _, h := range hits {
		doc := Document{ID: h.ID, Content: h.Text, Score: h.Score, Metadata: map[string]string{}}
		if h.MetadataJSON != "" {
			var meta map[string]string
			if err := json.Unmarshal([]byte(h.MetadataJSON), &meta); err == nil {
				doc.Metadata = meta
			}
		}
		docs = append(docs, doc)
	}
	return Result{
		Documents: docs,
		Signals:   map[string]any{"retriever": r.Name(), "count": len(docs)},
	}, nil
}

// #endregion vector-retriever

// #region embedding-reranker

// EmbeddingReranker rescores a candidate pool by cosine similarity
// between sidecar embeddings of the query and each document.
type EmbeddingReranker struct {
	client *codec.Client
}

// NewEmbeddingReranker creates a reranker over the sidecar embedder.
func NewEmbeddingReranker(client *codec.Client) *EmbeddingReranker {
	return &EmbeddingReranker{client: client}
}

// Rerank implements Reranker. Documents are rescored in place and
// returned in the incoming order; fusion sorts after normalization.
func (r *EmbeddingReranker) Rerank(ctx context.Context, query string, docs []Document) ([]Document, error) {
	if len(docs) == 0 {
		return docs, nil
	}
	queryVec, err := r.client.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	for i := range docs {
		docVec, err := r.client.Embed(ctx, docs[i].Content)
		if err != nil {
			return nil, fmt.Errorf("embed document %s: %w", docs[i].ID, err)
		}
		docs[i].Score = cosine(queryVec, docVec)
	}
	return docs, nil
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// #endregion embedding-reranker
