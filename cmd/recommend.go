package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/DhruvParmar051/book-recommendation-system/internal/catalog"
	"github.com/DhruvParmar051/book-recommendation-system/internal/recommend"
	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newRecommendCmd(opts *rootOptions) *cobra.Command {
	var (
		topK   int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "recommend <query>",
		Short:   "Recommend books for a free-text query",
		Args:    cobra.MinimumNArgs(1),
		Example: `  bookrec recommend "introduction to machine learning" --top-k 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg

			store, err := catalog.Open(cfg.Catalog.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			r, svc, err := buildRecommender(cmd.Context(), cfg, store)
			if err != nil {
				return err
			}
			defer svc.Close()

			results, err := r.Recommend(cmd.Context(), strings.Join(args, " "), topK)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			fmt.Println(renderRecommendations(results))
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", recommend.DefaultTopK, "Number of books to return")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")

	return cmd
}

func renderRecommendations(results []recommend.Result) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Score", "Title", "Authors", "Year"})
	for i, res := range results {
		year := ""
		if res.Book.Year != nil {
			year = strconv.Itoa(*res.Book.Year)
		}
		tw.AppendRow(table.Row{
			i + 1,
			fmt.Sprintf("%.4f", res.FinalScore),
			truncate(res.Book.Title, 60),
			truncate(strings.Join(res.Book.Authors, ", "), 40),
			year,
		})
	}
	return tw.Render()
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
