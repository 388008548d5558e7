package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/DhruvParmar051/book-recommendation-system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "books.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func str(s string) *string { return &s }

func sampleResults() []models.EnrichmentResult {
	year := 1988
	return []models.EnrichmentResult{
		{
			RecordID: "r1", BookKey: "9780131103627|the c programming language", Status: models.StatusFound,
			MatchMethod: str("strict"), Title: "The C Programming Language", ISBN: str("9780131103627"),
			Authors: []string{"Brian W. Kernighan", "Dennis M. Ritchie"}, Subjects: []string{"C (Computer program language)"},
			Summary: str("A classic."), Publisher: str("Prentice Hall"), Year: &year, Pages: str("272"),
			AccessionNo: "A1", ClassNoBookNo: "005.133 KER",
		},
		{
			RecordID: "r2", BookKey: "NOISBN|intro to ml", Status: models.StatusMissing,
			Title: "Intro to ML", Pages: str("xii, 320 p."),
		},
		{
			RecordID: "r3", BookKey: "NOISBN|100% pure_data", Status: models.StatusFound,
			Title: "100% Pure_Data", Publisher: str("Acme Press"),
		},
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n, err := s.Load(ctx, sampleResults())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.Load(ctx, sampleResults())
	require.NoError(t, err)
	assert.Equal(t, 0, n, "INSERT OR IGNORE keeps the first row per book_key")

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestLookup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.Load(ctx, sampleResults())
	require.NoError(t, err)

	books, err := s.Lookup(ctx, []string{"r1", "r2", "unknown"})
	require.NoError(t, err)
	require.Len(t, books, 2)

	c := books["r1"]
	assert.Equal(t, []string{"Brian W. Kernighan", "Dennis M. Ritchie"}, c.Authors)
	assert.Equal(t, "Prentice Hall", c.Publisher)
	require.NotNil(t, c.Year)
	assert.Equal(t, 1988, *c.Year)
	assert.Equal(t, "272", c.Pages)

	ml := books["r2"]
	assert.Nil(t, ml.Authors)
	assert.Empty(t, ml.Summary)
	assert.Nil(t, ml.Year)

	empty, err := s.Lookup(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBrowse(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.Load(ctx, sampleResults())
	require.NoError(t, err)

	tests := []struct {
		name     string
		query    BrowseQuery
		total    int
		expected []string
	}{
		{name: "all", query: BrowseQuery{Limit: 10}, total: 3, expected: []string{"r1", "r2", "r3"}},
		{name: "paged", query: BrowseQuery{Skip: 1, Limit: 1}, total: 3, expected: []string{"r2"}},
		{name: "title substring", query: BrowseQuery{Field: "title", Query: "PROGRAMMING"}, total: 1, expected: []string{"r1"}},
		{name: "authors json column", query: BrowseQuery{Field: "authors", Query: "ritchie"}, total: 1, expected: []string{"r1"}},
		{name: "publisher skips nulls", query: BrowseQuery{Field: "publisher", Query: "a"}, total: 2, expected: []string{"r1", "r3"}},
		{name: "like wildcards are literal", query: BrowseQuery{Field: "title", Query: "100%"}, total: 1, expected: []string{"r3"}},
		{name: "underscore is literal", query: BrowseQuery{Field: "title", Query: "g_l"}, total: 0, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, books, err := s.Browse(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.total, total)
			var ids []string
			for _, b := range books {
				ids = append(ids, b.RecordID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}

	_, _, err = s.Browse(ctx, BrowseQuery{Field: "summary", Query: "x"})
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
		wantErr  bool
	}{
		{name: "json array", input: `["a", "b"]`, expected: []string{"a", "b"}},
		{name: "empty", input: ``, expected: nil},
		{name: "null", input: `null`, expected: nil},
		{name: "python literal", input: `['a', 'b']`, wantErr: true},
		{name: "code injection", input: `__import__('os').system('ls')`, wantErr: true},
		{name: "array of numbers", input: `[1, 2]`, wantErr: true},
		{name: "bare string", input: `Kernighan`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseList(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedList)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMalformedListFailsClosed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx, `INSERT INTO books (record_id, book_key, status, title, authors) VALUES ('bad', 'k', 'FOUND', 'Bad', '[''x'']')`)
	require.NoError(t, err)

	_, err = s.All(ctx)
	assert.ErrorIs(t, err, ErrMalformedList)
}
