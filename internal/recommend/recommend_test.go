package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/DhruvParmar051/book-recommendation-system/internal/models"
	"github.com/DhruvParmar051/book-recommendation-system/internal/providers"
	"github.com/DhruvParmar051/book-recommendation-system/internal/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	last   providers.Config
}

func (f *fakeEmbedder) Embed(ctx context.Context, config providers.Config) ([]float32, error) {
	f.last = config
	return f.vector, f.err
}

type fakeCatalog map[string]models.Book

func (c fakeCatalog) Count(ctx context.Context) (int, error) { return len(c), nil }

func (c fakeCatalog) Lookup(ctx context.Context, ids []string) (map[string]models.Book, error) {
	out := make(map[string]models.Book)
	for _, id := range ids {
		if b, ok := c[id]; ok {
			out[id] = b
		}
	}
	return out, nil
}

type titleReranker map[string]float64

func (t titleReranker) Score(ctx context.Context, query, text string) (float64, error) {
	for title, score := range t {
		if len(text) >= len(title) && text[:len(title)] == title {
			return score, nil
		}
	}
	return 0, errors.New("no score")
}

func fixture(t *testing.T) (*retrieval.FlatIndex, fakeCatalog) {
	t.Helper()
	index := retrieval.NewFlatIndex(2)
	require.NoError(t, index.Add("B", []float32{1, 0.1}))
	require.NoError(t, index.Add("A", []float32{1, 0.3}))
	require.NoError(t, index.Add("C", []float32{0, 1}))

	catalog := fakeCatalog{
		"A": {RecordID: "A", Title: "Alpha", Pages: "320", Summary: "about alpha"},
		"B": {RecordID: "B", Title: "Beta", Pages: "50", Summary: "about beta"},
		"C": {RecordID: "C", Title: "Gamma"},
	}
	return index, catalog
}

func TestNewSchemaMismatch(t *testing.T) {
	index, catalog := fixture(t)
	delete(catalog, "C")

	_, err := New(context.Background(), &fakeEmbedder{}, index, catalog, Options{})
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestRecommendReranked(t *testing.T) {
	index, catalog := fixture(t)
	emb := &fakeEmbedder{vector: []float32{1, 0}}
	r, err := New(context.Background(), emb, index, catalog, Options{
		Model:    "nomic-embed-text",
		Reranker: titleReranker{"Alpha": 0.9, "Beta": 0.85, "Gamma": 0.1},
	})
	require.NoError(t, err)

	results, err := r.Recommend(context.Background(), "  machine learning  ", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "A", results[0].RecordID)
	assert.InDelta(t, 0.765, results[0].FinalScore, 1e-9)
	assert.Equal(t, "Alpha", results[0].Book.Title)
	assert.Equal(t, "B", results[1].RecordID)
	assert.InDelta(t, 0.6525, results[1].FinalScore, 1e-9)

	assert.Equal(t, "nomic-embed-text", emb.last.Model)
	assert.Equal(t, "machine learning", emb.last.Input)
}

func TestRecommendRetrievalOnly(t *testing.T) {
	index, catalog := fixture(t)
	r, err := New(context.Background(), &fakeEmbedder{vector: []float32{1, 0}}, index, catalog, Options{})
	require.NoError(t, err)

	results, err := r.Recommend(context.Background(), "query", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"B", "A", "C"}, []string{results[0].RecordID, results[1].RecordID, results[2].RecordID})
	assert.Nil(t, results[0].RerankScore)
	assert.Equal(t, results[0].RetrievalScore, results[0].FinalScore)
}

func TestRecommendSkipsRecordsMissingFromCatalog(t *testing.T) {
	index, catalog := fixture(t)
	r, err := New(context.Background(), &fakeEmbedder{vector: []float32{1, 0}}, index, catalog, Options{})
	require.NoError(t, err)
	delete(catalog, "B")

	results, err := r.Recommend(context.Background(), "query", 3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "A", results[0].RecordID)
}

func TestRecommendValidation(t *testing.T) {
	index, catalog := fixture(t)
	r, err := New(context.Background(), &fakeEmbedder{vector: []float32{1, 0}}, index, catalog, Options{})
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		topK  int
	}{
		{"empty query", "", 5},
		{"blank query", "   ", 5},
		{"zero top_k", "q", 0},
		{"negative top_k", "q", -1},
		{"top_k too large", "q", MaxTopK + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Recommend(context.Background(), tt.query, tt.topK)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestRecommendEmbedFailure(t *testing.T) {
	index, catalog := fixture(t)
	r, err := New(context.Background(), &fakeEmbedder{err: errors.New("provider down")}, index, catalog, Options{})
	require.NoError(t, err)

	_, err = r.Recommend(context.Background(), "q", 1)
	assert.ErrorContains(t, err, "failed to embed query")
}

func TestServiceReadiness(t *testing.T) {
	svc := NewService()
	assert.False(t, svc.Ready())

	_, err := svc.Recommend(context.Background(), "q", 1)
	assert.ErrorIs(t, err, ErrNotReady)

	index, catalog := fixture(t)
	r, err := New(context.Background(), &fakeEmbedder{vector: []float32{1, 0}}, index, catalog, Options{})
	require.NoError(t, err)
	svc.Set(r)
	assert.True(t, svc.Ready())

	results, err := svc.Recommend(context.Background(), "q", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	svc.Set(nil)
	_, err = svc.Recommend(context.Background(), "q", 1)
	assert.ErrorIs(t, err, ErrNotReady)
}
