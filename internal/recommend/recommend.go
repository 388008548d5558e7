// Package recommend turns a free-text query into a ranked list of books.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/DhruvParmar051/book-recommendation-system/internal/features"
	"github.com/DhruvParmar051/book-recommendation-system/internal/metrics"
	"github.com/DhruvParmar051/book-recommendation-system/internal/models"
	"github.com/DhruvParmar051/book-recommendation-system/internal/providers"
	"github.com/DhruvParmar051/book-recommendation-system/internal/retrieval"
	"github.com/DhruvParmar051/book-recommendation-system/internal/scoring"
)

const (
	DefaultPoolSize = 30
	DefaultTopK     = 5
	MaxTopK         = 100
)

var (
	// ErrNotReady is returned while no recommender has been installed.
	ErrNotReady = errors.New("recommendation engine warming up")
	// ErrSchemaMismatch means the vector index and the record store were
	// built from different data.
	ErrSchemaMismatch = errors.New("index and record store sizes differ")
	// ErrInvalidRequest wraps query or top_k validation failures.
	ErrInvalidRequest = errors.New("invalid recommendation request")
)

// Catalog is the record store the recommender joins candidates against.
type Catalog interface {
	Count(ctx context.Context) (int, error)
	Lookup(ctx context.Context, ids []string) (map[string]models.Book, error)
}

// Result is one recommended book.
type Result struct {
	RecordID       string      `json:"record_id"`
	FinalScore     float64     `json:"final_score"`
	RetrievalScore float64     `json:"retrieval_score"`
	RerankScore    *float64    `json:"rerank_score,omitempty"`
	Book           models.Book `json:"book"`
}

// Options configure a Recommender.
type Options struct {
	Model    string
	PoolSize int
	Weights  scoring.Weights
	// Reranker is optional; without it results are ranked by retrieval
	// score alone.
	Reranker scoring.Reranker
	// RerankConcurrency bounds concurrent reranker calls per request.
	RerankConcurrency int
}

// Recommender embeds a query, retrieves a candidate pool and scores it.
type Recommender struct {
	embedder  providers.Embedder
	retriever *retrieval.Retriever
	catalog   Catalog
	scorer    *scoring.Scorer
	model     string
	poolSize  int
}

// New wires a recommender and verifies the index covers exactly the
// records in the catalog.
func New(ctx context.Context, embedder providers.Embedder, index retrieval.VectorIndex, catalog Catalog, opts Options) (*Recommender, error) {
	count, err := catalog.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count catalog records: %w", err)
	}
	if index.Len() != count {
		return nil, fmt.Errorf("%w: index has %d vectors, catalog has %d records", ErrSchemaMismatch, index.Len(), count)
	}

	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	weights := opts.Weights
	if weights == (scoring.Weights{}) {
		weights = scoring.CanonicalWeights
	}

	scorer := scoring.New(weights, opts.Reranker)
	if opts.RerankConcurrency > 0 {
		scorer.Concurrency = opts.RerankConcurrency
	}

	return &Recommender{
		embedder:  embedder,
		retriever: retrieval.New(index),
		catalog:   catalog,
		scorer:    scorer,
		model:     opts.Model,
		poolSize:  poolSize,
	}, nil
}

// Recommend returns at most topK books for query, best first.
func (r *Recommender) Recommend(ctx context.Context, query string, topK int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidRequest)
	}
	if topK <= 0 || topK > MaxTopK {
		return nil, fmt.Errorf("%w: top_k must be between 1 and %d, got %d", ErrInvalidRequest, MaxTopK, topK)
	}

	start := time.Now()

	vector, err := r.embedder.Embed(ctx, providers.Config{Model: r.model, Input: query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := r.retriever.Retrieve(ctx, vector, r.poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve candidates: %w", err)
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.RecordID
	}
	books, err := r.catalog.Lookup(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to look up candidates: %w", err)
	}

	pool := make([]scoring.Input, 0, len(hits))
	for _, h := range hits {
		b, ok := books[h.RecordID]
		if !ok {
			slog.Warn("Indexed record missing from catalog", "record_id", h.RecordID)
			continue
		}
		pool = append(pool, scoring.Input{
			RecordID:       h.RecordID,
			RetrievalScore: h.Similarity,
			Pages:          b.Pages,
			Summary:        b.Summary,
			Text:           features.RerankText(features.FromBook(b)),
		})
	}

	candidates, mode := r.scorer.Score(ctx, query, pool, topK)
	metrics.RecordRecommend(string(mode), time.Since(start))

	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i] = Result{
			RecordID:       c.RecordID,
			FinalScore:     c.FinalScore,
			RetrievalScore: c.RetrievalScore,
			RerankScore:    c.RerankScore,
			Book:           books[c.RecordID],
		}
	}

	slog.Debug("Recommendation served", "pool", len(pool), "results", len(results), "mode", mode)
	return results, nil
}

// Service holds the active recommender. It starts empty and can be swapped
// while requests are in flight.
type Service struct {
	current atomic.Pointer[Recommender]
}

// NewService returns a service with no recommender loaded.
func NewService() *Service {
	return &Service{}
}

// Set installs r. A nil r puts the service back into the not-ready state.
func (s *Service) Set(r *Recommender) {
	s.current.Store(r)
}

// Ready reports whether a recommender is installed.
func (s *Service) Ready() bool {
	return s.current.Load() != nil
}

// Recommend delegates to the installed recommender.
func (s *Service) Recommend(ctx context.Context, query string, topK int) ([]Result, error) {
	r := s.current.Load()
	if r == nil {
		return nil, ErrNotReady
	}
	return r.Recommend(ctx, query, topK)
}
