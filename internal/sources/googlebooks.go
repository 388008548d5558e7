package sources

import (
	"context"
	"net/http"
	"net/url"

	"github.com/DhruvParmar051/book-recommendation-system/internal/models"
)

// DefaultGoogleBooksURL is the Google Books volumes endpoint.
const DefaultGoogleBooksURL = "https://www.googleapis.com/books/v1/volumes"

// GoogleBooks queries the Google Books volumes API.
type GoogleBooks struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	guard      *guard
}

// NewGoogleBooks creates a Google Books client. The API key is optional.
func NewGoogleBooks(baseURL, apiKey string, client *http.Client, cfg GuardConfig) *GoogleBooks {
	if baseURL == "" {
		baseURL = DefaultGoogleBooksURL
	}
	if client == nil {
		client = newHTTPClient(DefaultTimeout)
	}
	return &GoogleBooks{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: client,
		guard:      newGuard("googlebooks", cfg),
	}
}

type volumeInfo struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Categories    []string `json:"categories"`
	Description   string   `json:"description"`
	Publisher     string   `json:"publisher"`
	PublishedDate string   `json:"publishedDate"`
	PageCount     int      `json:"pageCount"`
}

type volumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		ID         string     `json:"id"`
		VolumeInfo volumeInfo `json:"volumeInfo"`
	} `json:"items"`
}

// Search runs a volumes query and converts the first item.
func (c *GoogleBooks) Search(ctx context.Context, q string) (*models.Match, error) {
	params := url.Values{"q": {q}, "maxResults": {"1"}}
	if c.APIKey != "" {
		params.Set("key", c.APIKey)
	}
	u := c.BaseURL + "?" + params.Encode()

	return c.guard.do(ctx, func() (*models.Match, error) {
		var resp volumesResponse
		if err := getJSON(ctx, c.HTTPClient, u, &resp); err != nil {
			return nil, err
		}
		if len(resp.Items) == 0 {
			return nil, nil
		}
		info := resp.Items[0].VolumeInfo
		return &models.Match{
			Authors:   nonEmpty(info.Authors),
			Subjects:  nonEmpty(info.Categories),
			Summary:   cleanText(info.Description),
			Publisher: cleanText(info.Publisher),
			Year:      parseYear(info.PublishedDate),
			Pages:     pagesPtr(info.PageCount),
		}, nil
	})
}

// NewGoogleISBN searches Google Books with an isbn: query.
func NewGoogleISBN(gb *GoogleBooks) Adapter {
	return &adapter{
		name:    MethodGoogleISBN,
		source:  "googlebooks",
		applies: hasISBN,
		lookup: func(ctx context.Context, q Query) (*models.Match, error) {
			return gb.Search(ctx, "isbn:"+q.ISBN)
		},
	}
}

// NewGoogleTitleAuthor searches Google Books by title, narrowed by author
// when one is known.
func NewGoogleTitleAuthor(gb *GoogleBooks) Adapter {
	return &adapter{
		name:   MethodGoogleTitleAuthor,
		source: "googlebooks",
		lookup: func(ctx context.Context, q Query) (*models.Match, error) {
			query := q.Title
			if q.Author != "" {
				query += " inauthor:" + q.Author
			}
			return gb.Search(ctx, query)
		},
	}
}
