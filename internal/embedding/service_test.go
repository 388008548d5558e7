package embedding

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/DhruvParmar051/book-recommendation-system/internal/providers"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lengthEmbedder struct {
	calls atomic.Int32
	fail  string
}

func (l *lengthEmbedder) Embed(ctx context.Context, config providers.Config) ([]float32, error) {
	l.calls.Add(1)
	if config.Input == l.fail {
		return nil, errors.New("boom")
	}
	return []float32{float32(len(config.Input)), 0}, nil
}

func TestNewServiceProviders(t *testing.T) {
	for _, p := range []string{"ollama", "openai", "gemini"} {
		s, err := NewService(p, "")
		require.NoError(t, err, p)
		assert.Equal(t, DefaultModel(p), s.Model())
		assert.Equal(t, p, s.Provider())
	}

	_, err := NewService("cohere", "")
	assert.ErrorContains(t, err, "unsupported provider")
}

func TestEmbedNormalizesAndDefaultsModel(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel = body["model"]
		_, _ = w.Write([]byte(`{"embedding":[3,4]}`))
	}))
	defer srv.Close()
	t.Setenv("OLLAMA_URL", srv.URL)

	s, err := NewService("ollama", "")
	require.NoError(t, err)

	v, err := s.Embed(context.Background(), providers.Config{Input: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", gotModel)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
}

func TestEmbedAll(t *testing.T) {
	fake := &lengthEmbedder{}
	s := NewWithEmbedder("fake", "m", fake)

	texts := []string{"a", "bb", "ccc", strings.Repeat("d", 10)}
	vectors, err := s.EmbedAll(context.Background(), texts, 2)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	for _, v := range vectors {
		norm := math.Sqrt(float64(v[0]*v[0] + v[1]*v[1]))
		assert.InDelta(t, 1, norm, 1e-6)
	}
	assert.Equal(t, int32(4), fake.calls.Load())
}

func TestEmbedAllFails(t *testing.T) {
	s := NewWithEmbedder("fake", "m", &lengthEmbedder{fail: "bad"})
	_, err := s.EmbedAll(context.Background(), []string{"ok", "bad"}, 1)
	assert.ErrorContains(t, err, "boom")
}
