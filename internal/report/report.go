// Package report summarizes an enrichment checkpoint.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/DhruvParmar051/book-recommendation-system/internal/models"
	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"
)

// Fields are the metadata columns coverage is reported for.
var Fields = []string{"authors", "subjects", "summary", "publisher", "year", "pages", "isbn"}

// Formats lists the supported output formats.
var Formats = []string{"text", "json", "csv", "yaml"}

// FieldCoverage is how many results carry a value for a field.
type FieldCoverage struct {
	Field   string  `json:"field" yaml:"field"`
	Present int     `json:"present" yaml:"present"`
	Ratio   float64 `json:"ratio" yaml:"ratio"`
}

// Report is the coverage summary of a set of results.
type Report struct {
	Source   string          `json:"source,omitempty" yaml:"source,omitempty"`
	Total    int             `json:"total" yaml:"total"`
	Found    int             `json:"found" yaml:"found"`
	Missing  int             `json:"missing" yaml:"missing"`
	HitRate  float64         `json:"hit_rate" yaml:"hit_rate"`
	Methods  map[string]int  `json:"methods" yaml:"methods"`
	Coverage []FieldCoverage `json:"coverage" yaml:"coverage"`
}

// Summarize computes totals, per-method counts and field coverage.
func Summarize(results []models.EnrichmentResult) Report {
	r := Report{
		Total:   len(results),
		Methods: make(map[string]int),
	}
	present := make(map[string]int, len(Fields))

	for _, res := range results {
		switch res.Status {
		case models.StatusFound:
			r.Found++
		case models.StatusMissing:
			r.Missing++
		}
		if res.MatchMethod != nil && *res.MatchMethod != "" {
			r.Methods[*res.MatchMethod]++
		}
		if len(res.Authors) > 0 {
			present["authors"]++
		}
		if len(res.Subjects) > 0 {
			present["subjects"]++
		}
		if hasText(res.Summary) {
			present["summary"]++
		}
		if hasText(res.Publisher) {
			present["publisher"]++
		}
		if res.Year != nil {
			present["year"]++
		}
		if hasText(res.Pages) {
			present["pages"]++
		}
		if hasText(res.ISBN) {
			present["isbn"]++
		}
	}

	r.HitRate = ratio(r.Found, r.Total)
	for _, f := range Fields {
		r.Coverage = append(r.Coverage, FieldCoverage{Field: f, Present: present[f], Ratio: ratio(present[f], r.Total)})
	}
	return r
}

func hasText(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

// Write renders r to w in the given format.
func Write(w io.Writer, format string, r Report) error {
	switch format {
	case "text":
		return writeText(w, r)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return enc.Close()
	case "csv":
		return writeCSV(w, r)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func sortedMethods(methods map[string]int) []string {
	names := make([]string, 0, len(methods))
	for m := range methods {
		names = append(names, m)
	}
	sort.Slice(names, func(i, j int) bool {
		if methods[names[i]] != methods[names[j]] {
			return methods[names[i]] > methods[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

func writeText(w io.Writer, r Report) error {
	var b strings.Builder
	b.WriteString("========================================\n")
	b.WriteString("Enrichment Coverage Report\n")
	b.WriteString("========================================\n")
	if r.Source != "" {
		fmt.Fprintf(&b, "Checkpoint: %s\n", r.Source)
	}
	fmt.Fprintf(&b, "Total:      %d\n", r.Total)
	fmt.Fprintf(&b, "Found:      %d (%.2f%%)\n", r.Found, r.HitRate*100)
	fmt.Fprintf(&b, "Missing:    %d\n\n", r.Missing)

	methodRows := make([][]string, 0, len(r.Methods))
	for _, m := range sortedMethods(r.Methods) {
		methodRows = append(methodRows, []string{m, strconv.Itoa(r.Methods[m]), percent(ratio(r.Methods[m], r.Found))})
	}
	coverageRows := make([][]string, 0, len(r.Coverage))
	for _, c := range r.Coverage {
		coverageRows = append(coverageRows, []string{c.Field, strconv.Itoa(c.Present), percent(c.Ratio)})
	}

	if isTerminal(w) {
		b.WriteString("Match methods:\n")
		b.WriteString(renderTable([]string{"Method", "Count", "Share"}, methodRows))
		b.WriteString("\n\nField coverage:\n")
		b.WriteString(renderTable([]string{"Field", "Present", "Coverage"}, coverageRows))
		b.WriteString("\n")
	} else {
		b.WriteString("Match methods:\n")
		for _, row := range methodRows {
			fmt.Fprintf(&b, "  %-20s %6s  %s\n", row[0], row[1], row[2])
		}
		b.WriteString("\nField coverage:\n")
		for _, row := range coverageRows {
			fmt.Fprintf(&b, "  %-20s %6s  %s\n", row[0], row[1], row[2])
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeCSV(w io.Writer, r Report) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"metric", "name", "count", "ratio"}); err != nil {
		return err
	}
	rows := [][]string{
		{"total", "", strconv.Itoa(r.Total), ""},
		{"status", string(models.StatusFound), strconv.Itoa(r.Found), fmt.Sprintf("%.4f", r.HitRate)},
		{"status", string(models.StatusMissing), strconv.Itoa(r.Missing), fmt.Sprintf("%.4f", ratio(r.Missing, r.Total))},
	}
	for _, m := range sortedMethods(r.Methods) {
		rows = append(rows, []string{"method", m, strconv.Itoa(r.Methods[m]), fmt.Sprintf("%.4f", ratio(r.Methods[m], r.Total))})
	}
	for _, c := range r.Coverage {
		rows = append(rows, []string{"coverage", c.Field, strconv.Itoa(c.Present), fmt.Sprintf("%.4f", c.Ratio)})
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func renderTable(headers []string, rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, v := range row {
			r[i] = v
		}
		tw.AppendRow(r)
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
