package sources

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/DhruvParmar051/book-recommendation-system/internal/identity"
	"github.com/DhruvParmar051/book-recommendation-system/internal/models"
	"github.com/goccy/go-json"
)

// DefaultOpenLibraryURL is the Open Library search endpoint.
const DefaultOpenLibraryURL = "https://openlibrary.org/search.json"

// OpenLibrary queries the Open Library search API.
type OpenLibrary struct {
	BaseURL    string
	HTTPClient *http.Client
	guard      *guard
}

// NewOpenLibrary creates an Open Library client. An empty baseURL selects the
// public endpoint.
func NewOpenLibrary(baseURL string, client *http.Client, cfg GuardConfig) *OpenLibrary {
	if baseURL == "" {
		baseURL = DefaultOpenLibraryURL
	}
	if client == nil {
		client = newHTTPClient(DefaultTimeout)
	}
	return &OpenLibrary{
		BaseURL:    baseURL,
		HTTPClient: client,
		guard:      newGuard("openlibrary", cfg),
	}
}

type openLibraryDoc struct {
	Title               string          `json:"title"`
	AuthorName          []string        `json:"author_name"`
	Subject             []string        `json:"subject"`
	FirstSentence       json.RawMessage `json:"first_sentence"`
	Publisher           []string        `json:"publisher"`
	FirstPublishYear    int             `json:"first_publish_year"`
	NumberOfPagesMedian int             `json:"number_of_pages_median"`
}

type openLibraryResponse struct {
	NumFound int              `json:"numFound"`
	Docs     []openLibraryDoc `json:"docs"`
}

// Search issues one search.json request and converts the first document.
func (c *OpenLibrary) Search(ctx context.Context, params url.Values) (*models.Match, error) {
	params.Set("limit", "1")
	u := c.BaseURL + "?" + params.Encode()

	return c.guard.do(ctx, func() (*models.Match, error) {
		var resp openLibraryResponse
		if err := getJSON(ctx, c.HTTPClient, u, &resp); err != nil {
			return nil, err
		}
		if resp.NumFound == 0 || len(resp.Docs) == 0 {
			return nil, nil
		}
		return resp.Docs[0].toMatch(), nil
	})
}

func (d openLibraryDoc) toMatch() *models.Match {
	m := &models.Match{
		Authors:  nonEmpty(d.AuthorName),
		Subjects: nonEmpty(d.Subject),
		Summary:  firstSentence(d.FirstSentence),
		Year:     intPtr(d.FirstPublishYear),
		Pages:    pagesPtr(d.NumberOfPagesMedian),
	}
	if len(d.Publisher) > 0 {
		m.Publisher = cleanText(d.Publisher[0])
	}
	return m
}

// firstSentence accepts the shapes Open Library uses for first_sentence: a
// list of strings, a plain string, or a {"value": ...} object.
func firstSentence(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return cleanText(strings.Join(list, " "))
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return cleanText(s)
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return cleanText(obj.Value)
	}
	return nil
}

// NewStrictMatch searches Open Library by title and author. It only applies
// when the record has an author.
func NewStrictMatch(ol *OpenLibrary) Adapter {
	return &adapter{
		name:    MethodStrict,
		source:  "openlibrary",
		applies: hasAuthor,
		lookup: func(ctx context.Context, q Query) (*models.Match, error) {
			return ol.Search(ctx, url.Values{"title": {q.Title}, "author": {q.Author}})
		},
	}
}

// NewShortTitle searches Open Library by the part of the title before the
// first colon. It only applies when the title contains a colon.
func NewShortTitle(ol *OpenLibrary) Adapter {
	return &adapter{
		name:   MethodShortTitle,
		source: "openlibrary",
		applies: func(q Query) bool {
			_, ok := identity.ShortTitle(q.Title)
			return ok
		},
		lookup: func(ctx context.Context, q Query) (*models.Match, error) {
			short, _ := identity.ShortTitle(q.Title)
			return ol.Search(ctx, url.Values{"title": {short}})
		},
	}
}

// NewTitleOnly searches Open Library by the full title.
func NewTitleOnly(ol *OpenLibrary) Adapter {
	return &adapter{
		name:   MethodTitleOnly,
		source: "openlibrary",
		lookup: func(ctx context.Context, q Query) (*models.Match, error) {
			return ol.Search(ctx, url.Values{"title": {q.Title}})
		},
	}
}

// NewISBNExact searches Open Library by normalized ISBN.
func NewISBNExact(ol *OpenLibrary) Adapter {
	return &adapter{
		name:    MethodISBNExact,
		source:  "openlibrary",
		applies: hasISBN,
		lookup: func(ctx context.Context, q Query) (*models.Match, error) {
			return ol.Search(ctx, url.Values{"isbn": {q.ISBN}})
		},
	}
}
