// Package dataset reads raw catalogue rows from CSV, JSONL or Parquet files.
package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/DhruvParmar051/book-recommendation-system/internal/models"
	"github.com/goccy/go-json"
	"github.com/parquet-go/parquet-go"
)

// ErrMissingInput is returned when the input file does not exist.
var ErrMissingInput = errors.New("input file not found")

// Plausible publication years; anything outside is treated as a typo.
const (
	MinYear = 1500
	MaxYear = 2035
)

// columnAliases maps the spreadsheet headers used by the library export, and
// a few common variants, onto canonical snake_case names.
var columnAliases = map[string]string{
	"date":               "date",
	"acc. no.":           "accession_no",
	"accession_no":       "accession_no",
	"title":              "title",
	"author/editor":      "author",
	"author_editor":      "author",
	"author":             "author",
	"authors":            "author",
	"ed./vol.":           "edition_volume",
	"edition_volume":     "edition_volume",
	"place & publisher":  "place_publisher",
	"place_publisher":    "place_publisher",
	"isbn":               "isbn",
	"year":               "year",
	"page(s)":            "pages",
	"pages":              "pages",
	"source":             "source",
	"class no./book no.": "class_no_book_no",
	"class_no_book_no":   "class_no_book_no",
	"record_id":          "record_id",
}

// Loader handles loading of raw catalogue records.
type Loader struct {
	path string
}

// NewLoader creates a new dataset loader
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads every row from the input, dispatching on file extension.
func (l *Loader) Load() ([]models.RawRecord, error) {
	if _, err := os.Stat(l.path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, l.path)
	}

	var (
		records []models.RawRecord
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(l.path)); ext {
	case ".csv":
		records, err = l.loadCSV()
	case ".jsonl", ".ndjson":
		records, err = l.loadJSONL()
	case ".parquet":
		records, err = l.loadParquet()
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .csv, .jsonl, .parquet)", ext)
	}
	if err != nil {
		return nil, err
	}

	for i := range records {
		clean(&records[i])
	}
	slog.Debug("Loaded input rows", "path", l.path, "rows", len(records))
	return records, nil
}

func (l *Loader) loadCSV() ([]models.RawRecord, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(bufio.NewReader(file))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if canonical, ok := columnAliases[name]; ok {
			if _, dup := columns[canonical]; !dup {
				columns[canonical] = i
			}
		}
	}
	if _, ok := columns["title"]; !ok {
		return nil, fmt.Errorf("CSV has no title column")
	}

	var records []models.RawRecord
	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV at line %d: %w", line, err)
		}

		field := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}
		records = append(records, models.RawRecord{
			RecordID:       field("record_id"),
			Title:          field("title"),
			Author:         field("author"),
			ISBN:           field("isbn"),
			AccessionNo:    field("accession_no"),
			ClassNoBookNo:  field("class_no_book_no"),
			Pages:          field("pages"),
			Date:           field("date"),
			EditionVolume:  field("edition_volume"),
			PlacePublisher: field("place_publisher"),
			Year:           parseYear(field("year")),
			Source:         field("source"),
		})
	}
	return records, nil
}

func (l *Loader) loadJSONL() ([]models.RawRecord, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	var records []models.RawRecord
	scanner := bufio.NewScanner(file)

	const maxCapacity = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}

		var record models.RawRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}
	return records, nil
}

func (l *Loader) loadParquet() ([]models.RawRecord, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[models.RawRecord](pf)
	defer reader.Close()

	records := make([]models.RawRecord, 0, pf.NumRows())
	rows := make([]models.RawRecord, 128)
	for {
		n, err := reader.Read(rows)
		records = append(records, rows[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return records, nil
}

// clean trims every text field and drops implausible years.
func clean(r *models.RawRecord) {
	for _, f := range []*string{
		&r.RecordID, &r.Title, &r.Author, &r.ISBN, &r.AccessionNo, &r.ClassNoBookNo,
		&r.Pages, &r.Date, &r.EditionVolume, &r.PlacePublisher, &r.Source,
	} {
		*f = strings.TrimSpace(*f)
		if strings.EqualFold(*f, "nan") {
			*f = ""
		}
	}
	if r.Year != nil && (*r.Year < MinYear || *r.Year > MaxYear) {
		r.Year = nil
	}
}

func parseYear(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	// Spreadsheet exports write years as floats ("1998.0").
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	y := int(f)
	return &y
}
