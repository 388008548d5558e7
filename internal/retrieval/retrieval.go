// Package retrieval finds the nearest candidates for a query embedding.
package retrieval

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnorderedIndex is returned when an index yields scores that are not in
// descending order.
var ErrUnorderedIndex = errors.New("index results are not in descending score order")

// Hit is a retrieved record and its similarity to the query.
type Hit struct {
	RecordID   string
	Similarity float64
}

// VectorIndex is a nearest-neighbour index. Search returns up to k ids with
// their scores, best first. Implementations may pad short results with
// empty ids.
type VectorIndex interface {
	Search(vector []float32, k int) (ids []string, scores []float32, err error)
	Len() int
}

// Retriever wraps a VectorIndex with the candidate-pool contract used by the
// scorer.
type Retriever struct {
	index VectorIndex
}

// New creates a Retriever over index.
func New(index VectorIndex) *Retriever {
	return &Retriever{index: index}
}

// Len returns the number of indexed records.
func (r *Retriever) Len() int {
	return r.index.Len()
}

// Retrieve returns at most poolSize hits in the index's own order with
// padding entries dropped. Results are not re-sorted; an index that returns
// a score above the one before it fails with ErrUnorderedIndex.
func (r *Retriever) Retrieve(ctx context.Context, vector []float32, poolSize int) ([]Hit, error) {
	if poolSize <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", poolSize)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids, scores, err := r.index.Search(vector, poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}
	if len(ids) != len(scores) {
		return nil, fmt.Errorf("index returned %d ids and %d scores", len(ids), len(scores))
	}

	hits := make([]Hit, 0, len(ids))
	for i, id := range ids {
		if id == "" {
			continue
		}
		sim := float64(scores[i])
		if n := len(hits); n > 0 && sim > hits[n-1].Similarity {
			return nil, fmt.Errorf("%w: %q scored %v after %q scored %v",
				ErrUnorderedIndex, id, sim, hits[n-1].RecordID, hits[n-1].Similarity)
		}
		hits = append(hits, Hit{RecordID: id, Similarity: sim})
	}
	if len(hits) > poolSize {
		hits = hits[:poolSize]
	}
	return hits, nil
}
