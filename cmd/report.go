package cmd

import (
	"fmt"
	"os"
	"slices"

	"github.com/DhruvParmar051/book-recommendation-system/internal/report"
	"github.com/DhruvParmar051/book-recommendation-system/internal/storage"
	"github.com/spf13/cobra"
)

func newReportCmd(opts *rootOptions) *cobra.Command {
	var checkpoint, format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize enrichment coverage of a checkpoint",
		Example: `  bookrec report
  bookrec report --checkpoint data/enriched.json --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(report.Formats, format) {
				return fmt.Errorf("unsupported format: %s", format)
			}
			if checkpoint == "" {
				checkpoint = opts.cfg.Enrich.Checkpoint
			}

			results, err := storage.ReadResults(checkpoint)
			if err != nil {
				return fmt.Errorf("failed to load results: %w", err)
			}

			r := report.Summarize(results)
			r.Source = checkpoint
			return report.Write(os.Stdout, format, r)
		},
	}

	cmd.Flags().StringVar(&checkpoint, "checkpoint", "", "Checkpoint JSON file (default from config)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, json, csv, yaml)")

	return cmd
}
