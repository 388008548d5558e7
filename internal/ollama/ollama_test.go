package ollama

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DhruvParmar051/book-recommendation-system/internal/providers"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "nomic-embed-text", body["model"])
		assert.Equal(t, "books about whales", body["prompt"])
		w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	}))
	defer srv.Close()

	o := &Ollama{BaseURL: srv.URL, HTTPClient: srv.Client()}
	vec, err := o.Embed(context.Background(), providers.Config{Model: "nomic-embed-text", Input: "books about whales"})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEmbedErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `model not found`},
		{name: "empty embedding", status: http.StatusOK, body: `{"embedding":[]}`},
		{name: "bad json", status: http.StatusOK, body: `{"embedding":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			o := &Ollama{BaseURL: srv.URL, HTTPClient: srv.Client()}
			_, err := o.Embed(context.Background(), providers.Config{Model: "m", Input: "q"})
			assert.Error(t, err)
		})
	}
}
