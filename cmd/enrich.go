package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/DhruvParmar051/book-recommendation-system/internal/dataset"
	"github.com/DhruvParmar051/book-recommendation-system/internal/enrichment"
	"github.com/DhruvParmar051/book-recommendation-system/internal/sources"
	"github.com/DhruvParmar051/book-recommendation-system/internal/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newEnrichCmd(opts *rootOptions) *cobra.Command {
	var (
		input       string
		checkpoint  string
		concurrency int
		adapters    []string
	)

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Enrich catalogue records from bibliographic sources",
		Long: `Looks up every catalogue record against a chain of metadata sources
(Open Library, Google Books, a Koha OPAC) and appends FOUND or MISSING results
to a JSON checkpoint. Records already in the checkpoint are skipped, so an
interrupted run resumes where it left off.

Press Ctrl+C to stop: in-flight lookups get a grace period, then the
checkpoint is flushed.`,
		Example: `  # Enrich a CSV export with the default adapter chain
  bookrec enrich --input books.csv

  # ISBN lookups first, 20 workers
  bookrec enrich --input books.parquet --adapters isbn-exact,google-isbn,strict --concurrency 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("input") {
				cfg.Enrich.Input = input
			}
			if cmd.Flags().Changed("checkpoint") {
				cfg.Enrich.Checkpoint = checkpoint
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Enrich.Concurrency = concurrency
			}
			if cmd.Flags().Changed("adapters") {
				cfg.Enrich.Adapters = adapters
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.Enrich.Input == "" {
				return fmt.Errorf("%w: set --input or enrich.input", dataset.ErrMissingInput)
			}

			rows, err := dataset.NewLoader(cfg.Enrich.Input).Load()
			if err != nil {
				return err
			}
			slog.Info("Dataset loaded", "path", cfg.Enrich.Input, "rows", len(rows))

			chain, err := sources.Build(cfg.Enrich.Adapters, cfg.SourceOptions())
			if err != nil {
				return err
			}

			store := storage.NewCheckpointStore(cfg.Enrich.Checkpoint, cfg.Enrich.FlushInterval)
			orch := enrichment.New(store, chain, cfg.OrchestratorConfig())

			summary, err := orch.Run(cmd.Context(), rows)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(summary); err != nil {
				return fmt.Errorf("failed to write summary: %w", err)
			}
			if summary.Interrupted {
				slog.Warn("Run interrupted; rerun to resume", "checkpoint", store.Path())
			}
			return enc.Close()
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Catalogue export (.csv, .jsonl or .parquet)")
	cmd.Flags().StringVarP(&checkpoint, "checkpoint", "o", "", "Checkpoint JSON file (default from config)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "Number of records looked up concurrently")
	cmd.Flags().StringSliceVar(&adapters, "adapters", nil, "Adapter chain in priority order")

	return cmd
}
