package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type stubRetriever struct {
	name string
	docs []Document
	err  error
}

func (s stubRetriever) Name() string { return s.name }

func (s stubRetriever) Retrieve(ctx context.Context, query string, k int) (Result, error) {
	if s.err != nil {
		return Result{}, s.err
	}
	docs := make([]Document, len(s.docs))
	for i, d := range s.docs {
		docs[i] = d.Clone()
	}
	return Result{Documents: docs, Signals: map[string]any{"count": len(docs)}}, nil
}

func ids(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func TestCompositeBestScoreFusion(t *testing.T) {
	a := stubRetriever{name: "a", docs: []Document{
		{ID: "d1", Content: "one", Score: 3.0},
		{ID: "d2", Content: "two", Score: 1.0},
	}}
	b := stubRetriever{name: "b", docs: []Document{
		{ID: "d1", Content: "one", Score: 2.0},
		{ID: "d3", Content: "three", Score: 2.0},
	}}
	c := NewComposite([]Retriever{a, b}, nil, FusionConfig{})

	res, err := c.Retrieve(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}

	want := []string{"d1", "d3", "d2"}
	if diff := cmp.Diff(want, ids(res.Documents)); diff != "" {
		t.Fatalf("ranking mismatch (-want +got):\n%s", diff)
	}
	// d1 keeps its best raw score 3.0 → normalized 1.0; d2 is the
	// minimum → 0.0; d3 sits halfway.
	if res.Documents[0].Score != 1.0 {
		t.Fatalf("expected top score 1.0, got %v", res.Documents[0].Score)
	}
	if res.Documents[1].Score != 0.5 {
		t.Fatalf("expected middle score 0.5, got %v", res.Documents[1].Score)
	}
	if res.Documents[2].Score != 0.0 {
		t.Fatalf("expected bottom score 0.0, got %v", res.Documents[2].Score)
	}
	if res.Signals["deduped_count"] != 3 {
		t.Fatalf("expected deduped_count 3, got %v", res.Signals["deduped_count"])
	}
}

func TestCompositeFusionIsIdempotent(t *testing.T) {
	a := stubRetriever{name: "a", docs: []Document{
		{ID: "d1", Content: "one", Score: 3.0},
		{ID: "d2", Content: "two", Score: 1.0},
	}}
	b := stubRetriever{name: "b", docs: []Document{
		{ID: "d1", Content: "one", Score: 2.0},
		{ID: "d3", Content: "three", Score: 2.0},
	}}
	c := NewComposite([]Retriever{a, b}, nil, FusionConfig{})

	first, err := c.Retrieve(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("first retrieve: %v", err)
	}
	second, err := c.Retrieve(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("second retrieve: %v", err)
	}

	if diff := cmp.Diff(first.Documents, second.Documents); diff != "" {
		t.Fatalf("repeated fusion changed the ranked list (-first +second):\n%s", diff)
	}
}

func TestCompositeProvenanceMetadata(t *testing.T) {
	a := stubRetriever{name: "a", docs: []Document{{ID: "d1", Score: 7.0}}}
	c := NewComposite([]Retriever{a}, nil, FusionConfig{})

	res, err := c.Retrieve(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	doc := res.Documents[0]
	if doc.Metadata["retriever"] != "a" {
		t.Fatalf("expected retriever tag, got %v", doc.Metadata)
	}
	if doc.Metadata["raw_score"] != "7" {
		t.Fatalf("expected raw_score 7, got %q", doc.Metadata["raw_score"])
	}
}

func TestCompositeUniformPoolNormalizesToOne(t *testing.T) {
	a := stubRetriever{name: "a", docs: []Document{
		{ID: "d1", Score: 2.0},
		{ID: "d2", Score: 2.0},
	}}
	c := NewComposite([]Retriever{a}, nil, FusionConfig{})

	res, err := c.Retrieve(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	for _, d := range res.Documents {
		if d.Score != 1.0 {
			t.Fatalf("uniform pool should map to 1.0, got %v for %s", d.Score, d.ID)
		}
	}
}

func TestCompositeReciprocalRankFusion(t *testing.T) {
	a := stubRetriever{name: "a", docs: []Document{
		{ID: "d1", Score: 9.0},
		{ID: "d2", Score: 5.0},
	}}
	b := stubRetriever{name: "b", docs: []Document{
		{ID: "d1", Score: 0.8},
	}}
	c := NewComposite([]Retriever{a, b}, nil, FusionConfig{Policy: PolicyRRF})

	res, err := c.Retrieve(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	want := []string{"d1", "d2"}
	if diff := cmp.Diff(want, ids(res.Documents)); diff != "" {
		t.Fatalf("ranking mismatch (-want +got):\n%s", diff)
	}
	// d1 appears at rank 0 in both lists, d2 only at rank 1 in one.
	if res.Documents[0].Score != 1.0 || res.Documents[1].Score != 0.0 {
		t.Fatalf("expected normalized 1.0/0.0, got %v/%v",
			res.Documents[0].Score, res.Documents[1].Score)
	}
	if res.Signals["fusion_policy"] != "rrf" {
		t.Fatalf("expected rrf policy signal, got %v", res.Signals["fusion_policy"])
	}
}

func TestCompositeEmptyPool(t *testing.T) {
	a := stubRetriever{name: "a"}
	c := NewComposite([]Retriever{a}, nil, FusionConfig{})

	res, err := c.Retrieve(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("empty pool must not error: %v", err)
	}
	if len(res.Documents) != 0 {
		t.Fatalf("expected no documents, got %d", len(res.Documents))
	}
	counts := res.Signals["raw_counts"].(map[string]int)
	if counts["a"] != 0 {
		t.Fatalf("expected raw count 0, got %v", counts["a"])
	}
}

func TestCompositeRetrieverErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	a := stubRetriever{name: "a", docs: []Document{{ID: "d1", Score: 1.0}}}
	b := stubRetriever{name: "b", err: boom}
	c := NewComposite([]Retriever{a, b}, nil, FusionConfig{})

	if _, err := c.Retrieve(context.Background(), "q", 5); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped retriever error, got %v", err)
	}
}

type reverseReranker struct{}

func (reverseReranker) Rerank(ctx context.Context, query string, docs []Document) ([]Document, error) {
	for i := range docs {
		docs[i].Score = float64(i)
	}
	return docs, nil
}

func TestCompositeRerankRunsAfterDedup(t *testing.T) {
	a := stubRetriever{name: "a", docs: []Document{
		{ID: "d1", Score: 9.0},
		{ID: "d2", Score: 1.0},
	}}
	c := NewComposite([]Retriever{a}, reverseReranker{}, FusionConfig{})

	res, err := c.Retrieve(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	// The reranker inverted the order by scoring position ascending.
	want := []string{"d2", "d1"}
	if diff := cmp.Diff(want, ids(res.Documents)); diff != "" {
		t.Fatalf("rerank order mismatch (-want +got):\n%s", diff)
	}
}

func TestCompositeTopKCut(t *testing.T) {
	var docs []Document
	for i := 0; i < 10; i++ {
		docs = append(docs, Document{ID: string(rune('a' + i)), Score: float64(10 - i)})
	}
	a := stubRetriever{name: "a", docs: docs}
	c := NewComposite([]Retriever{a}, nil, FusionConfig{})

	res, err := c.Retrieve(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(res.Documents) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(res.Documents))
	}
	if res.Documents[0].ID != "a" {
		t.Fatalf("expected best document first, got %s", res.Documents[0].ID)
	}
}
