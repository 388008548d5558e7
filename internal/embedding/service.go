// Package embedding selects an embedding provider and turns texts into
// unit-length vectors.
package embedding

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/DhruvParmar051/book-recommendation-system/internal/gemini"
	"github.com/DhruvParmar051/book-recommendation-system/internal/ollama"
	"github.com/DhruvParmar051/book-recommendation-system/internal/openai"
	"github.com/DhruvParmar051/book-recommendation-system/internal/providers"
	"golang.org/x/sync/errgroup"
)

type Service struct {
	provider string
	model    string
	embedder providers.Embedder
}

// NewService returns a service for provider. An empty model falls back to
// the provider's default embedding model.
func NewService(provider, model string) (*Service, error) {
	var embedder providers.Embedder
	switch provider {
	case "ollama":
		embedder = ollama.New()
	case "openai":
		embedder = openai.New()
	case "gemini":
		embedder = gemini.New()
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
	return NewWithEmbedder(provider, model, embedder), nil
}

// NewWithEmbedder wraps an existing embedder.
func NewWithEmbedder(provider, model string, embedder providers.Embedder) *Service {
	if model == "" {
		model = DefaultModel(provider)
	}
	return &Service{provider: provider, model: model, embedder: embedder}
}

// DefaultModel is the embedding model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		return "text-embedding-3-small"
	case "ollama":
		return "nomic-embed-text"
	case "gemini":
		return "text-embedding-004"
	default:
		return ""
	}
}

func (s *Service) Provider() string { return s.provider }

func (s *Service) Model() string { return s.model }

// Embed implements providers.Embedder. An empty config.Model uses the
// service's model. The returned vector is L2-normalized.
func (s *Service) Embed(ctx context.Context, config providers.Config) ([]float32, error) {
	if config.Model == "" {
		config.Model = s.model
	}
	v, err := s.embedder.Embed(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to embed with %s: %w", s.provider, err)
	}
	return providers.Normalize(v), nil
}

// EmbedAll embeds texts with at most concurrency requests in flight. The
// result is index-aligned with texts; the first error aborts the batch.
func (s *Service) EmbedAll(ctx context.Context, texts []string, concurrency int) ([][]float32, error) {
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	for i, text := range texts {
		g.Go(func() error {
			v, err := s.Embed(gctx, providers.Config{Model: s.model, Input: text})
			if err != nil {
				return fmt.Errorf("text %d: %w", i, err)
			}
			out[i] = v
			if (i+1)%500 == 0 {
				slog.Info("Embedding progress", "done", i+1, "total", len(texts))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases provider resources, if any.
func (s *Service) Close() error {
	if c, ok := s.embedder.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
