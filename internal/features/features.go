// Package features flattens enriched records into the feature table consumed
// by the embedding and recommendation stages.
package features

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/DhruvParmar051/book-recommendation-system/internal/models"
	"github.com/parquet-go/parquet-go"
)

// Row is one flattened record. List fields are joined with ", ".
type Row struct {
	RecordID      string `json:"record_id" parquet:"record_id"`
	Title         string `json:"title" parquet:"title"`
	ClassNoBookNo string `json:"class_no_book_no" parquet:"class_no_book_no"`
	Publisher     string `json:"publisher" parquet:"publisher"`
	Pages         string `json:"pages" parquet:"pages"`
	Authors       string `json:"authors" parquet:"authors"`
	Subjects      string `json:"subjects" parquet:"subjects"`
	Summary       string `json:"summary" parquet:"summary"`
}

// Columns is the frozen column order of the feature table.
var Columns = []string{"record_id", "title", "class_no_book_no", "publisher", "pages", "authors", "subjects", "summary"}

func (r Row) values() []string {
	return []string{r.RecordID, r.Title, r.ClassNoBookNo, r.Publisher, r.Pages, r.Authors, r.Subjects, r.Summary}
}

// FromResults flattens checkpoint results.
func FromResults(results []models.EnrichmentResult) []Row {
	rows := make([]Row, 0, len(results))
	for _, r := range results {
		rows = append(rows, Row{
			RecordID:      r.RecordID,
			Title:         r.Title,
			ClassNoBookNo: r.ClassNoBookNo,
			Publisher:     models.Deref(r.Publisher),
			Pages:         models.Deref(r.Pages),
			Authors:       strings.Join(r.Authors, ", "),
			Subjects:      strings.Join(r.Subjects, ", "),
			Summary:       models.Deref(r.Summary),
		})
	}
	return rows
}

// FromBook flattens a stored book.
func FromBook(b models.Book) Row {
	return Row{
		RecordID:      b.RecordID,
		Title:         b.Title,
		ClassNoBookNo: b.ClassNoBookNo,
		Publisher:     b.Publisher,
		Pages:         b.Pages,
		Authors:       strings.Join(b.Authors, ", "),
		Subjects:      strings.Join(b.Subjects, ", "),
		Summary:       b.Summary,
	}
}

// SemanticText is the text embedded for a record: summary, title, subjects,
// classification and publisher, skipping blanks.
func SemanticText(r Row) string {
	return joinNonEmpty(r.Summary, r.Title, r.Subjects, r.ClassNoBookNo, r.Publisher)
}

// RerankText is the candidate text scored against the query by the reranker.
func RerankText(r Row) string {
	return joinNonEmpty(r.Title, r.Subjects, r.Publisher, r.Authors)
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.values()); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteParquet writes rows as a single Parquet file.
func WriteParquet(w io.Writer, rows []Row) error {
	pw := parquet.NewGenericWriter[Row](w)
	if _, err := pw.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}
