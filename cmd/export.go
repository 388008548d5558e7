package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/DhruvParmar051/book-recommendation-system/internal/features"
	"github.com/DhruvParmar051/book-recommendation-system/internal/storage"
	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var checkpoint, output, format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export enriched records as a flat feature table",
		Long: `Flattens enriched records into one row per book with the columns
record_id, title, class_no_book_no, publisher, pages, authors, subjects and
summary. Lists are joined with ", ".`,
		Example: `  bookrec export --output data/books_features.csv
  bookrec export --output data/books_features.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkpoint == "" {
				checkpoint = opts.cfg.Enrich.Checkpoint
			}
			if format == "" {
				format = strings.TrimPrefix(filepath.Ext(output), ".")
			}

			results, err := storage.ReadResults(checkpoint)
			if err != nil {
				return err
			}
			rows := features.FromResults(results)

			if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			defer f.Close()

			switch format {
			case "csv":
				err = features.WriteCSV(f, rows)
			case "parquet":
				err = features.WriteParquet(f, rows)
			default:
				return fmt.Errorf("unsupported format: %s", format)
			}
			if err != nil {
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to close %s: %w", output, err)
			}

			slog.Info("Features exported", "rows", len(rows), "path", output, "format", format)
			return nil
		},
	}

	cmd.Flags().StringVar(&checkpoint, "checkpoint", "", "Checkpoint JSON file (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "data/books_features.csv", "Output file")
	cmd.Flags().StringVar(&format, "format", "", "csv or parquet (default from the output extension)")

	return cmd
}
