package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/DhruvParmar051/book-recommendation-system/internal/catalog"
	"github.com/DhruvParmar051/book-recommendation-system/internal/embedding"
	"github.com/DhruvParmar051/book-recommendation-system/internal/features"
	"github.com/DhruvParmar051/book-recommendation-system/internal/retrieval"
	"github.com/spf13/cobra"
)

func newIndexCmd(opts *rootOptions) *cobra.Command {
	var (
		provider    string
		model       string
		output      string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed every stored record and write the vector index",
		Long: `Builds the semantic text of each record in the SQLite store (summary,
title, subjects, class number, publisher), embeds it with the configured
provider and saves an exact inner-product index as Parquet.`,
		Example: `  # Local embeddings through Ollama
  bookrec index

  # OpenAI embeddings
  bookrec index --provider openai --model text-embedding-3-small`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("provider") {
				cfg.Embedding.Provider = provider
			}
			if cmd.Flags().Changed("model") {
				cfg.Embedding.Model = model
			}
			if output == "" {
				output = cfg.Index.Path
			}

			store, err := catalog.Open(cfg.Catalog.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			books, err := store.All(cmd.Context())
			if err != nil {
				return err
			}
			if len(books) == 0 {
				return fmt.Errorf("no records in %s; run load first", cfg.Catalog.Path)
			}

			svc, err := embedding.NewService(cfg.Embedding.Provider, cfg.Embedding.Model)
			if err != nil {
				return err
			}
			defer svc.Close()

			texts := make([]string, len(books))
			for i, b := range books {
				texts[i] = features.SemanticText(features.FromBook(b))
			}

			slog.Info("Embedding records", "records", len(texts), "provider", svc.Provider(), "model", svc.Model())
			vectors, err := svc.EmbedAll(cmd.Context(), texts, concurrency)
			if err != nil {
				return err
			}

			index := retrieval.NewFlatIndex(len(vectors[0]))
			for i, b := range books {
				if err := index.Add(b.RecordID, vectors[i]); err != nil {
					return fmt.Errorf("failed to index %s: %w", b.RecordID, err)
				}
			}

			if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
				return fmt.Errorf("failed to create index directory: %w", err)
			}
			if err := index.Save(output); err != nil {
				return err
			}
			slog.Info("Index written", "path", output, "vectors", index.Len(), "dim", index.Dim())
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Embedding provider (ollama, openai, or gemini)")
	cmd.Flags().StringVar(&model, "model", "", "Embedding model (defaults to the provider's default)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Index file (default from config)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Concurrent embedding requests")

	return cmd
}
