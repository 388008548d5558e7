package features

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/DhruvParmar051/book-recommendation-system/internal/models"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }

func TestFromResults(t *testing.T) {
	rows := FromResults([]models.EnrichmentResult{
		{
			RecordID: "r1", Title: "Intro to ML", ClassNoBookNo: "006.31",
			Authors: []string{"J Doe", "K Roe"}, Subjects: []string{"ML"},
			Publisher: str("Acme"), Pages: str("320"), Summary: str("Learn."),
		},
		{RecordID: "r2", Title: "Bare"},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, Row{
		RecordID: "r1", Title: "Intro to ML", ClassNoBookNo: "006.31", Publisher: "Acme",
		Pages: "320", Authors: "J Doe, K Roe", Subjects: "ML", Summary: "Learn.",
	}, rows[0])
	assert.Equal(t, Row{RecordID: "r2", Title: "Bare"}, rows[1])
}

func TestSemanticAndRerankText(t *testing.T) {
	r := Row{Title: "Intro to ML", Subjects: "ML, AI", ClassNoBookNo: " 006.31 ", Publisher: "Acme", Authors: "J Doe", Summary: "Learn."}
	assert.Equal(t, "Learn. Intro to ML ML, AI 006.31 Acme", SemanticText(r))
	assert.Equal(t, "Intro to ML ML, AI Acme J Doe", RerankText(r))
	assert.Equal(t, "Only", SemanticText(Row{Title: "Only"}))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []Row{{RecordID: "r1", Title: "A, with comma"}}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, Columns, records[0])
	assert.Equal(t, "A, with comma", records[1][1])
}

func TestWriteParquet(t *testing.T) {
	var buf bytes.Buffer
	in := []Row{{RecordID: "r1", Title: "One"}, {RecordID: "r2", Title: "Two", Pages: "10"}}
	require.NoError(t, WriteParquet(&buf, in))

	out, err := parquet.Read[Row](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
