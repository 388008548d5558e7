package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/DhruvParmar051/book-recommendation-system/internal/models"
	"github.com/PuerkitoBio/goquery"
)

// OPAC scrapes a Koha online catalogue. BaseURL points at the cgi-bin/koha
// directory, e.g. https://opac.example.edu/cgi-bin/koha.
type OPAC struct {
	BaseURL    string
	HTTPClient *http.Client
	guard      *guard
}

// NewOPAC creates a Koha OPAC scraper.
func NewOPAC(baseURL string, client *http.Client, cfg GuardConfig) *OPAC {
	if client == nil {
		client = newHTTPClient(DefaultTimeout)
	}
	return &OPAC{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: client,
		guard:      newGuard("opac", cfg),
	}
}

// Search looks the record up by ISBN when it has one, by title otherwise,
// then scrapes the first detail page the search links to.
func (c *OPAC) Search(ctx context.Context, q Query) (*models.Match, error) {
	if c.BaseURL == "" {
		return nil, fmt.Errorf("opac base url not configured")
	}

	params := url.Values{"idx": {"ti"}, "q": {q.Title}}
	if q.ISBN != "" {
		params = url.Values{"idx": {"nb"}, "q": {q.ISBN}}
	}
	searchURL := c.BaseURL + "/opac-search.pl?" + params.Encode()

	return c.guard.do(ctx, func() (*models.Match, error) {
		doc, err := getDocument(ctx, c.HTTPClient, searchURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch search page: %w", err)
		}

		// Koha jumps straight to the detail page on a single hit.
		if doc.Find("h1.title").Length() > 0 && doc.Find("a[href*='opac-detail.pl']").Length() == 0 {
			return parseDetail(doc), nil
		}

		biblio := firstBiblionumber(doc)
		if biblio == "" {
			return nil, nil
		}

		detailURL := c.BaseURL + "/opac-detail.pl?" + url.Values{"biblionumber": {biblio}}.Encode()
		detail, err := getDocument(ctx, c.HTTPClient, detailURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch detail page: %w", err)
		}
		return parseDetail(detail), nil
	})
}

func firstBiblionumber(doc *goquery.Document) string {
	var biblio string
	doc.Find("a[href*='opac-detail.pl']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		u, err := url.Parse(href)
		if err != nil {
			return true
		}
		biblio = u.Query().Get("biblionumber")
		return biblio == ""
	})
	return biblio
}

func parseDetail(doc *goquery.Document) *models.Match {
	text := func(sel string) *string {
		return cleanText(doc.Find(sel).First().Text())
	}
	list := func(sel string) []string {
		var out []string
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			out = append(out, s.Text())
		})
		return nonEmpty(out)
	}

	m := &models.Match{
		Authors:   list("span.results_summary.author span[property='name']"),
		Subjects:  list("span.results_summary.subjects a.subject"),
		Summary:   text("p.marcnote-520"),
		Publisher: text("span.publisher_name"),
	}
	if date := text("span.publisher_date"); date != nil {
		m.Year = parseYear(*date)
	}
	return m
}

// NewOPACAdapter wraps a Koha OPAC scraper as an Adapter.
func NewOPACAdapter(opac *OPAC) Adapter {
	return &adapter{
		name:   MethodOPAC,
		source: "opac",
		lookup: opac.Search,
	}
}
