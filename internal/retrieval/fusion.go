package retrieval

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

// #region policy

// FusionPolicy selects how per-retriever scores are fused before
// normalization. Exactly one policy applies per composite; the two are
// never mixed within a call.
type FusionPolicy string

const (
	// PolicyMinMax keeps the best raw score per document id. Suited to
	// retrievers whose score scales are individually meaningful.
	PolicyMinMax FusionPolicy = "minmax"
	// PolicyRRF sums reciprocal ranks (1/(60+rank+1)) across lists.
	// Suited to incomparable score scales (e.g. term counts vs cosine).
	PolicyRRF FusionPolicy = "rrf"
)

const rrfConstant = 60

// #endregion policy

// #region config

// FusionConfig holds fan-out and scoring parameters for a composite.
type FusionConfig struct {
	Overfetch int         // candidates requested per retriever; 0 = 4*k
	Policy    FusionPolicy // empty = PolicyMinMax
}

// #endregion config

// #region composite

// Composite fans a query out to independent retrievers, fuses the
// pooled candidates into one ranked list, and returns the top k.
type Composite struct {
	retrievers []Retriever
	reranker   Reranker // nil = no rerank stage
	config     FusionConfig
}

// NewComposite creates a composite over the given retrievers.
// reranker may be nil.
func NewComposite(retrievers []Retriever, reranker Reranker, config FusionConfig) *Composite {
	if config.Policy == "" {
		config.Policy = PolicyMinMax
	}
	return &Composite{retrievers: retrievers, reranker: reranker, config: config}
}

// Name implements Retriever.
func (c *Composite) Name() string { return "composite" }

// #endregion composite

// #region retrieve

// Retrieve runs the fusion pipeline:
//  1. Fan out to every retriever with overfetch candidates, concurrently.
//  2. Tag provenance (retriever name, raw score) into metadata.
//  3. Fuse into one pool per the configured policy (dedup by id).
//  4. Rerank the deduplicated pool, if a reranker is configured.
//  5. Min-max normalize scores to [0,1]; a uniform pool maps to 1.0.
//  6. Sort descending, return top k plus a signals bag.
//
// An empty pool is not an error; the signals bag is still populated.
func (c *Composite) Retrieve(ctx context.Context, query string, k int) (Result, error) {
	start := time.Now()
	if k <= 0 {
		k = 5
	}
	overfetch := c.config.Overfetch
	if overfetch <= 0 {
		overfetch = 4 * k
	}

	// 1. Fan-out. Results land in per-retriever slots so the pooled
	// order stays deterministic regardless of completion order.
	results := make([]Result, len(c.retrievers))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range c.retrievers {
		i, r := i, r
		g.Go(func() error {
			res, err := r.Retrieve(gctx, query, overfetch)
			if err != nil {
				return fmt.Errorf("retriever %s: %w", r.Name(), err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	signals := map[string]any{
		"retrievers_used": []string{},
		"raw_counts":      map[string]int{},
		"components":      map[string]any{},
		"fusion_policy":   string(c.config.Policy),
	}

	// 2. Provenance tagging. raw_score is written once and never
	// overwritten by later stages.
	var pool []Document
	var lists [][]Document
	for i, r := range c.retrievers {
		name := r.Name()
		docs := results[i].Documents
		signals["retrievers_used"] = append(signals["retrievers_used"].([]string), name)
		signals["raw_counts"].(map[string]int)[name] = len(docs)
		signals["components"].(map[string]any)[name] = results[i].Signals
		for j := range docs {
			if docs[j].Metadata == nil {
				docs[j].Metadata = map[string]string{}
			}
			docs[j].Metadata["retriever"] = name
			docs[j].Metadata["raw_score"] = strconv.FormatFloat(docs[j].Score, 'g', -1, 64)
		}
		pool = append(pool, docs...)
		lists = append(lists, docs)
	}

	if len(pool) == 0 {
		signals["retrieval_latency_ms"] = time.Since(start).Milliseconds()
		return Result{Documents: []Document{}, Signals: signals}, nil
	}

	// 3. Fuse.
	var unique []Document
	switch c.config.Policy {
	case PolicyRRF:
		unique = fuseReciprocalRank(lists)
	default:
		unique = fuseBestScore(pool)
	}
	signals["deduped_count"] = len(unique)

	// 4. Rerank after dedup, before normalization.
	if c.reranker != nil {
		reranked, err := c.reranker.Rerank(ctx, query, unique)
		if err != nil {
			return Result{}, fmt.Errorf("rerank: %w", err)
		}
		unique = reranked
	}

	// 5. Normalize.
	var sum float64
	for _, d := range unique {
		sum += d.Score
	}
	signals["avg_score"] = sum / float64(len(unique))
	normalizeMinMax(unique)

	// 6. Rank and cut.
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Score > unique[j].Score
	})
	if len(unique) > k {
		unique = unique[:k]
	}

	signals["retrieval_latency_ms"] = time.Since(start).Milliseconds()
	log.Printf("[FUSION] query=%q pooled=%d unique=%d returned=%d", query, len(pool), signals["deduped_count"], len(unique))
	return Result{Documents: unique, Signals: signals}, nil
}

// #endregion retrieve

// #region fuse-best-score

// fuseBestScore deduplicates by id keeping the highest raw score.
// Ties keep the first-seen copy. Output preserves first-seen order.
func fuseBestScore(pool []Document) []Document {
	bestIdx := make(map[string]int, len(pool))
	var unique []Document
	for _, doc := range pool {
		if i, ok := bestIdx[doc.ID]; ok {
			if doc.Score > unique[i].Score {
				unique[i] = doc
			}
			continue
		}
		bestIdx[doc.ID] = len(unique)
		unique = append(unique, doc)
	}
	return unique
}

// #endregion fuse-best-score

// #region fuse-rrf

// fuseReciprocalRank scores each document by the sum of reciprocal
// ranks across the per-retriever lists. The first-seen copy represents
// a duplicated id; only its score is rewritten.
func fuseReciprocalRank(lists [][]Document) []Document {
	idx := make(map[string]int)
	var unique []Document
	for _, list := range lists {
		for rank, doc := range list {
			contribution := 1.0 / float64(rrfConstant+rank+1)
			if i, ok := idx[doc.ID]; ok {
				unique[i].Score += contribution
				continue
			}
			doc.Score = contribution
			idx[doc.ID] = len(unique)
			unique = append(unique, doc)
		}
	}
	return unique
}

// #endregion fuse-rrf

// #region normalize

// normalizeMinMax rescales scores into [0,1] in place. When the pool is
// uniform every document gets 1.0, avoiding a divide by zero and
// avoiding zeroing out an all-equal pool.
func normalizeMinMax(docs []Document) {
	if len(docs) == 0 {
		return
	}
	minS, maxS := docs[0].Score, docs[0].Score
	for _, d := range docs[1:] {
		if d.Score < minS {
			minS = d.Score
		}
		if d.Score > maxS {
			maxS = d.Score
		}
	}
	for i := range docs {
		if maxS > minS {
			docs[i].Score = (docs[i].Score - minS) / (maxS - minS)
		} else {
			docs[i].Score = 1.0
		}
	}
}

// #endregion normalize
