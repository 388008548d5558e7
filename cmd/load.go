package cmd

import (
	"log/slog"

	"github.com/DhruvParmar051/book-recommendation-system/internal/catalog"
	"github.com/DhruvParmar051/book-recommendation-system/internal/storage"
	"github.com/spf13/cobra"
)

func newLoadCmd(opts *rootOptions) *cobra.Command {
	var checkpoint, db string

	cmd := &cobra.Command{
		Use:     "load",
		Short:   "Load an enrichment checkpoint into the SQLite record store",
		Example: `  bookrec load --checkpoint data/enriched.json --db data/books.sqlite`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if checkpoint == "" {
				checkpoint = cfg.Enrich.Checkpoint
			}
			if db == "" {
				db = cfg.Catalog.Path
			}

			results, err := storage.ReadResults(checkpoint)
			if err != nil {
				return err
			}

			store, err := catalog.Open(db)
			if err != nil {
				return err
			}
			defer store.Close()

			inserted, err := store.Load(cmd.Context(), results)
			if err != nil {
				return err
			}
			total, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			slog.Info("Records loaded", "checkpoint", checkpoint, "read", len(results), "inserted", inserted, "total", total)
			return nil
		},
	}

	cmd.Flags().StringVar(&checkpoint, "checkpoint", "", "Checkpoint JSON file (default from config)")
	cmd.Flags().StringVar(&db, "db", "", "SQLite database path (default from config)")

	return cmd
}
