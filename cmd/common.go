package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DhruvParmar051/book-recommendation-system/internal/catalog"
	"github.com/DhruvParmar051/book-recommendation-system/internal/config"
	"github.com/DhruvParmar051/book-recommendation-system/internal/embedding"
	"github.com/DhruvParmar051/book-recommendation-system/internal/recommend"
	"github.com/DhruvParmar051/book-recommendation-system/internal/rerank"
	"github.com/DhruvParmar051/book-recommendation-system/internal/retrieval"
)

// buildRecommender loads the vector index and wires the embedding provider
// and optional reranker. The caller closes the returned service.
func buildRecommender(ctx context.Context, cfg *config.Config, store *catalog.Store) (*recommend.Recommender, *embedding.Service, error) {
	index, err := retrieval.LoadFlatIndex(cfg.Index.Path)
	if err != nil {
		return nil, nil, err
	}

	svc, err := embedding.NewService(cfg.Embedding.Provider, cfg.Embedding.Model)
	if err != nil {
		return nil, nil, err
	}

	opts := recommend.Options{
		Model:             svc.Model(),
		PoolSize:          cfg.Serve.PoolSize,
		Weights:           cfg.Weights(),
		RerankConcurrency: cfg.Rerank.Concurrency,
	}
	if cfg.Rerank.URL != "" {
		opts.Reranker = rerank.New(cfg.Rerank.URL, cfg.Rerank.Timeout)
	} else {
		slog.Info("No reranker configured, ranking by retrieval score")
	}

	r, err := recommend.New(ctx, svc, index, store, opts)
	if err != nil {
		_ = svc.Close()
		return nil, nil, fmt.Errorf("failed to build recommender: %w", err)
	}
	slog.Info("Recommender loaded", "index", cfg.Index.Path, "vectors", index.Len(), "provider", svc.Provider(), "model", svc.Model())
	return r, svc, nil
}
