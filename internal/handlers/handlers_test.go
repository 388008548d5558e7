package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DhruvParmar051/book-recommendation-system/internal/catalog"
	"github.com/DhruvParmar051/book-recommendation-system/internal/models"
	"github.com/DhruvParmar051/book-recommendation-system/internal/recommend"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecommender struct {
	ready   bool
	results []recommend.Result
	err     error
	topK    int
	query   string
}

func (f *fakeRecommender) Ready() bool { return f.ready }

func (f *fakeRecommender) Recommend(ctx context.Context, query string, topK int) ([]recommend.Result, error) {
	f.query, f.topK = query, topK
	return f.results, f.err
}

func newStore(t *testing.T) *catalog.Store {
	t.Helper()
	store, err := catalog.Open(filepath.Join(t.TempDir(), "books.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.Load(context.Background(), []models.EnrichmentResult{
		{RecordID: "r1", BookKey: "k1", Status: models.StatusFound, Title: "Deep Learning", Authors: []string{"Ian Goodfellow"}, Publisher: models.StringPtr("MIT Press")},
		{RecordID: "r2", BookKey: "k2", Status: models.StatusFound, Title: "Pattern Recognition", Authors: []string{"Christopher Bishop"}, Publisher: models.StringPtr("Springer")},
		{RecordID: "r3", BookKey: "k3", Status: models.StatusMissing, Title: "Learning Go"},
	})
	require.NoError(t, err)
	return store
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRecommendNotReady(t *testing.T) {
	h := New(&fakeRecommender{}, newStore(t)).Routes(DefaultRouteConfig())

	rec := do(t, h, http.MethodPost, "/recommend", `{"query":"ml"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "warming up")
}

func TestRecommend(t *testing.T) {
	rerank := 0.9
	fake := &fakeRecommender{ready: true, results: []recommend.Result{
		{RecordID: "r1", FinalScore: 0.765, RerankScore: &rerank, Book: models.Book{RecordID: "r1", Title: "Deep Learning", Authors: []string{"Ian Goodfellow"}}},
	}}
	h := New(fake, newStore(t)).Routes(DefaultRouteConfig())

	rec := do(t, h, http.MethodPost, "/recommend", `{"query":"neural networks","top_k":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var items []recommendItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Deep Learning", items[0].Title)
	assert.InDelta(t, 0.765, items[0].Score, 1e-12)
	assert.Equal(t, 3, fake.topK)
	assert.Equal(t, "neural networks", fake.query)
}

func TestRecommendDefaultsTopK(t *testing.T) {
	fake := &fakeRecommender{ready: true}
	h := New(fake, newStore(t)).Routes(DefaultRouteConfig())

	rec := do(t, h, http.MethodPost, "/recommend", `{"query":"x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, recommend.DefaultTopK, fake.topK)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRecommendErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		expected int
	}{
		{"bad json", `{"query":`, nil, http.StatusBadRequest},
		{"invalid request", `{"query":""}`, recommend.ErrInvalidRequest, http.StatusBadRequest},
		{"not ready race", `{"query":"x"}`, recommend.ErrNotReady, http.StatusServiceUnavailable},
		{"embedder down", `{"query":"x"}`, assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(&fakeRecommender{ready: true, err: tt.err}, newStore(t)).Routes(DefaultRouteConfig())
			rec := do(t, h, http.MethodPost, "/recommend", tt.body)
			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}

func TestBooks(t *testing.T) {
	h := New(&fakeRecommender{}, newStore(t)).Routes(DefaultRouteConfig())

	tests := []struct {
		name   string
		target string
		code   int
		total  int
		titles []string
	}{
		{"all", "/books", http.StatusOK, 3, []string{"Deep Learning", "Pattern Recognition", "Learning Go"}},
		{"trailing slash", "/books/?limit=1", http.StatusOK, 3, []string{"Deep Learning"}},
		{"paged", "/books?skip=1&limit=1", http.StatusOK, 3, []string{"Pattern Recognition"}},
		{"title search", "/books?search_field=title&query=LEARNING", http.StatusOK, 2, []string{"Deep Learning", "Learning Go"}},
		{"author search", "/books?search_field=authors&query=bishop", http.StatusOK, 1, []string{"Pattern Recognition"}},
		{"no match", "/books?search_field=publisher&query=nowhere", http.StatusOK, 0, []string{}},
		{"invalid field", "/books?search_field=isbn&query=1", http.StatusBadRequest, 0, nil},
		{"invalid limit", "/books?limit=abc", http.StatusBadRequest, 0, nil},
		{"negative skip", "/books?skip=-1", http.StatusBadRequest, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.target, "")
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			if tt.code != http.StatusOK {
				return
			}
			var resp browseResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.total, resp.Total)
			titles := make([]string, len(resp.Items))
			for i, b := range resp.Items {
				titles[i] = b.Title
			}
			assert.Equal(t, tt.titles, titles)
		})
	}
}

func TestHealthcheck(t *testing.T) {
	h := New(&fakeRecommender{ready: true}, newStore(t)).Routes(DefaultRouteConfig())
	rec := do(t, h, http.MethodGet, "/healthcheck", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","recommender_loaded":true}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h := New(&fakeRecommender{}, newStore(t)).Routes(DefaultRouteConfig())
	do(t, h, http.MethodGet, "/books", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bookrec_api_requests_total")
}

func TestRecommendRateLimit(t *testing.T) {
	h := New(&fakeRecommender{ready: true}, newStore(t)).Routes(RouteConfig{CORSOrigins: []string{"*"}, RecommendPerMinute: 2})

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = do(t, h, http.MethodPost, "/recommend", `{"query":"x"}`).Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCORSPreflight(t *testing.T) {
	h := New(&fakeRecommender{}, newStore(t)).Routes(DefaultRouteConfig())

	req := httptest.NewRequest(http.MethodOptions, "/recommend", nil)
	req.Header.Set("Origin", "http://frontend.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
