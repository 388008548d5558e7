// Package rerank talks to an external cross-encoder service that scores a
// (query, text) pair.
package rerank

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// Client scores pairs with POST {URL} {"query": ..., "text": ...} -> {"score": ...}.
type Client struct {
	URL        string
	HTTPClient *http.Client
}

// New creates a reranker client. A zero timeout defaults to 10 seconds.
func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		URL:        url,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Score returns the relevance of text to query.
func (c *Client) Score(ctx context.Context, query, text string) (float64, error) {
	requestBody, err := json.Marshal(map[string]string{"query": query, "text": text})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(requestBody))
	if err != nil {
		return 0, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Score *float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("failed to decode response body: %w", err)
	}
	if response.Score == nil {
		return 0, fmt.Errorf("reranker response has no score")
	}
	return *response.Score, nil
}
