package retrieval

import "context"

// #region document

// Document is a single piece of retrieved evidence. Score is
// retriever-local until fusion normalizes it; fusion rewrites it in
// place, so a Document returned by Retrieve belongs to that one call.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
	Score    float64
}

// Clone returns a deep copy so stored corpora never leak mutable
// documents into the pipeline.
func (d Document) Clone() Document {
	meta := make(map[string]string, len(d.Metadata))
	for k, v := range d.Metadata {
		meta[k] = v
	}
	d.Metadata = meta
	return d
}

// #endregion document

// #region result

// Result bundles ranked documents with a free-form diagnostics bag.
// Signals are additive telemetry only, never inputs to control flow.
type Result struct {
	Documents []Document
	Signals   map[string]any
}

// #endregion result

// #region interfaces

// Retriever produces ranked candidate documents for a query.
type Retriever interface {
	Name() string
	Retrieve(ctx context.Context, query string, k int) (Result, error)
}

// Reranker reorders and rescores a deduplicated candidate pool.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []Document) ([]Document, error)
}

// #endregion interfaces
