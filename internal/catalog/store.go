// Package catalog stores enriched records in SQLite for browsing and for
// joining recommendation results back to displayable metadata.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/DhruvParmar051/book-recommendation-system/internal/models"
	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"
)

var (
	// ErrMalformedList is returned when a stored list column is not a JSON
	// array of strings.
	ErrMalformedList = errors.New("malformed list field")
	// ErrInvalidField is returned by Browse for an unsupported search field.
	ErrInvalidField = errors.New("invalid search field")
)

// SearchFields are the columns Browse can filter on.
var SearchFields = []string{"title", "authors", "publisher"}

// Store is the SQLite-backed record store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate db: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS books (
		record_id        TEXT NOT NULL,
		book_key         TEXT UNIQUE,
		status           TEXT NOT NULL,
		accession_no     TEXT,
		class_no_book_no TEXT,
		pages            TEXT,
		title            TEXT,
		authors          TEXT,
		isbn             TEXT,
		year             INTEGER,
		subjects         TEXT,
		summary          TEXT,
		publisher        TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_books_record_id ON books(record_id);
	`)
	return err
}

// Load inserts results, ignoring any whose book_key is already stored. It
// returns the number of rows actually inserted.
func (s *Store) Load(ctx context.Context, results []models.EnrichmentResult) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR IGNORE INTO books (
		record_id, book_key, status,
		accession_no, class_no_book_no, pages,
		title, authors, isbn, year,
		subjects, summary, publisher
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range results {
		authors, err := encodeList(r.Authors)
		if err != nil {
			return 0, err
		}
		subjects, err := encodeList(r.Subjects)
		if err != nil {
			return 0, err
		}

		res, err := stmt.ExecContext(ctx,
			r.RecordID, r.BookKey, string(r.Status),
			nullString(r.AccessionNo), nullString(r.ClassNoBookNo), r.Pages,
			r.Title, authors, r.ISBN, r.Year,
			subjects, r.Summary, r.Publisher,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert %s: %w", r.BookKey, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return inserted, nil
}

// Count returns the number of stored books.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return n, nil
}

const bookColumns = `record_id, book_key, status, accession_no, class_no_book_no, pages,
	title, authors, isbn, year, subjects, summary, publisher`

// Lookup fetches the books with the given record ids, keyed by record id.
// Unknown ids are simply absent from the result.
func (s *Store) Lookup(ctx context.Context, ids []string) (map[string]models.Book, error) {
	out := make(map[string]models.Book, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE record_id IN (`+placeholders+`) ORDER BY rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	books, err := scanBooks(rows)
	if err != nil {
		return nil, err
	}
	for _, b := range books {
		if _, ok := out[b.RecordID]; !ok {
			out[b.RecordID] = b
		}
	}
	return out, nil
}

// BrowseQuery selects a page of books, optionally filtered by a
// case-insensitive substring match on one field.
type BrowseQuery struct {
	Field string
	Query string
	Skip  int
	Limit int
}

// Browse returns the total number of matching books and the requested page.
func (s *Store) Browse(ctx context.Context, q BrowseQuery) (int, []models.Book, error) {
	where := ""
	var args []any
	if q.Field != "" && q.Query != "" {
		if !slices.Contains(SearchFields, q.Field) {
			return 0, nil, fmt.Errorf("%w: %s", ErrInvalidField, q.Field)
		}
		where = fmt.Sprintf(` WHERE %s IS NOT NULL AND lower(%s) LIKE ? ESCAPE '\'`, q.Field, q.Field)
		args = append(args, "%"+escapeLike(strings.ToLower(q.Query))+"%")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`+where, args...).Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("failed to count books: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	skip := max(q.Skip, 0)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books`+where+` ORDER BY rowid LIMIT ? OFFSET ?`,
		append(args, limit, skip)...)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	books, err := scanBooks(rows)
	if err != nil {
		return 0, nil, err
	}
	return total, books, nil
}

// All returns every stored book in insertion order.
func (s *Store) All(ctx context.Context) ([]models.Book, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+bookColumns+` FROM books ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()
	return scanBooks(rows)
}

func scanBooks(rows *sql.Rows) ([]models.Book, error) {
	var books []models.Book
	for rows.Next() {
		var (
			b                                     models.Book
			status                                string
			accession, class, pages, title, isbn  sql.NullString
			authors, subjects, summary, publisher sql.NullString
			year                                  sql.NullInt64
		)
		if err := rows.Scan(&b.RecordID, &b.BookKey, &status, &accession, &class, &pages,
			&title, &authors, &isbn, &year, &subjects, &summary, &publisher); err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}

		var err error
		if b.Authors, err = ParseList(authors.String); err != nil {
			return nil, fmt.Errorf("record %s authors: %w", b.RecordID, err)
		}
		if b.Subjects, err = ParseList(subjects.String); err != nil {
			return nil, fmt.Errorf("record %s subjects: %w", b.RecordID, err)
		}

		b.Status = models.Status(status)
		b.AccessionNo = accession.String
		b.ClassNoBookNo = class.String
		b.Pages = pages.String
		b.Title = title.String
		b.ISBN = isbn.String
		b.Summary = summary.String
		b.Publisher = publisher.String
		if year.Valid {
			y := int(year.Int64)
			b.Year = &y
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate books: %w", err)
	}
	return books, nil
}

// ParseList decodes a stored list column. Empty and "null" decode to nil;
// anything that is not a JSON array of strings is rejected.
func ParseList(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "[") {
		return nil, fmt.Errorf("%w: %.40q", ErrMalformedList, s)
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedList, err)
	}
	return out, nil
}

func encodeList(values []string) (any, error) {
	if values == nil {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to encode list: %w", err)
	}
	return string(data), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
