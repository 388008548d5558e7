package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/goccy/go-json"
)

// UserAgent is sent with every outbound metadata request.
var UserAgent = "bookrec/0.1 (+https://github.com/DhruvParmar051/book-recommendation-system)"

// DefaultTimeout bounds a single request to a metadata provider.
const DefaultTimeout = 20 * time.Second

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func get(ctx context.Context, client *http.Client, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}
	return resp, nil
}

func getJSON(ctx context.Context, client *http.Client, u string, v any) error {
	resp, err := get(ctx, client, u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

func getDocument(ctx context.Context, client *http.Client, u string) (*goquery.Document, error) {
	resp, err := get(ctx, client, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

var (
	whitespace = regexp.MustCompile(`\s+`)
	yearRe     = regexp.MustCompile(`\b(1[5-9]\d\d|20\d\d)\b`)
)

// cleanText trims s and collapses internal whitespace. Empty input yields nil.
func cleanText(s string) *string {
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	if s == "" {
		return nil
	}
	return &s
}

// nonEmpty drops blank entries and returns nil for an empty result.
func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if c := cleanText(v); c != nil {
			out = append(out, *c)
		}
	}
	return out
}

// parseYear extracts the first plausible publication year from free text
// such as "2004-03-01" or "c1998.".
func parseYear(s string) *int {
	m := yearRe.FindString(s)
	if m == "" {
		return nil
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &y
}

func intPtr(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func pagesPtr(n int) *string {
	if n <= 0 {
		return nil
	}
	s := strconv.Itoa(n)
	return &s
}
