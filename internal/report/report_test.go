package report

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/DhruvParmar051/book-recommendation-system/internal/models"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleResults() []models.EnrichmentResult {
	year := 2012
	strict := "strict"
	title := "title-only"
	return []models.EnrichmentResult{
		{RecordID: "1", BookKey: "9780262035613", Status: models.StatusFound, MatchMethod: &strict,
			Authors: []string{"Ian Goodfellow"}, Subjects: []string{"Machine learning"},
			Summary: models.StringPtr("Deep nets."), Publisher: models.StringPtr("MIT Press"), Year: &year,
			Pages: models.StringPtr("775"), ISBN: models.StringPtr("9780262035613")},
		{RecordID: "2", BookKey: "NOISBN", Status: models.StatusFound, MatchMethod: &title,
			Authors: []string{"Someone"}, Pages: models.StringPtr("  ")},
		{RecordID: "3", BookKey: "0131103628", Status: models.StatusMissing, ISBN: models.StringPtr("0131103628")},
		{RecordID: "4", BookKey: "1234567890", Status: models.StatusFound, MatchMethod: &strict},
	}
}

func coverage(r Report, field string) FieldCoverage {
	for _, c := range r.Coverage {
		if c.Field == field {
			return c
		}
	}
	return FieldCoverage{}
}

func TestSummarize(t *testing.T) {
	r := Summarize(sampleResults())

	assert.Equal(t, 4, r.Total)
	assert.Equal(t, 3, r.Found)
	assert.Equal(t, 1, r.Missing)
	assert.InDelta(t, 0.75, r.HitRate, 1e-12)
	assert.Equal(t, map[string]int{"strict": 2, "title-only": 1}, r.Methods)

	require.Len(t, r.Coverage, len(Fields))
	assert.Equal(t, 2, coverage(r, "authors").Present)
	assert.Equal(t, 1, coverage(r, "subjects").Present)
	assert.Equal(t, 1, coverage(r, "pages").Present, "blank pages do not count")
	assert.Equal(t, 2, coverage(r, "isbn").Present)
	assert.InDelta(t, 0.5, coverage(r, "isbn").Ratio, 1e-12)
}

func TestSummarizeEmpty(t *testing.T) {
	r := Summarize(nil)
	assert.Zero(t, r.Total)
	assert.Zero(t, r.HitRate)
	for _, c := range r.Coverage {
		assert.Zero(t, c.Ratio)
	}
}

func TestWriteFormats(t *testing.T) {
	r := Summarize(sampleResults())
	r.Source = "enriched.json"

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, "text", r))
		out := buf.String()
		assert.Contains(t, out, "Enrichment Coverage Report")
		assert.Contains(t, out, "Checkpoint: enriched.json")
		assert.Contains(t, out, "Found:      3 (75.00%)")
		assert.Contains(t, out, "strict")
		assert.Less(t, bytes.Index(buf.Bytes(), []byte("strict")), bytes.Index(buf.Bytes(), []byte("title-only")))
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, "json", r))
		var decoded Report
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, r.Total, decoded.Total)
		assert.Equal(t, r.Methods, decoded.Methods)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, "yaml", r))
		var decoded Report
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, r.Found, decoded.Found)
		assert.Len(t, decoded.Coverage, len(Fields))
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, "csv", r))
		rows, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		assert.Equal(t, []string{"metric", "name", "count", "ratio"}, rows[0])
		assert.Equal(t, []string{"total", "", "4", ""}, rows[1])
		assert.Equal(t, []string{"method", "strict", "2", "0.5000"}, rows[4])
		assert.Len(t, rows, 1+3+2+len(Fields))
	})

	t.Run("unsupported", func(t *testing.T) {
		assert.Error(t, Write(&bytes.Buffer{}, "xml", r))
	})
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Field", "Present", "Coverage"}, [][]string{{"authors", "2", "50.0%"}})
	assert.Contains(t, out, "authors")
	assert.Contains(t, out, "Coverage")
}
