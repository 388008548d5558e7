package sources

import (
	"fmt"
	"time"
)

// DefaultChain is the adapter priority order used when none is configured.
var DefaultChain = []string{MethodStrict, MethodShortTitle, MethodTitleOnly, MethodISBNExact}

// Options configures the providers behind a chain.
type Options struct {
	OpenLibraryURL    string
	GoogleBooksURL    string
	GoogleBooksAPIKey string
	OPACURL           string
	Timeout           time.Duration
	Guard             GuardConfig
}

// Build resolves adapter names into a chain in the given order. Adapters
// backed by the same provider share one client, and so one rate limiter and
// one circuit breaker.
func Build(names []string, opts Options) ([]Adapter, error) {
	if len(names) == 0 {
		names = DefaultChain
	}

	var (
		ol   *OpenLibrary
		gb   *GoogleBooks
		opac *OPAC
	)
	openLibrary := func() *OpenLibrary {
		if ol == nil {
			ol = NewOpenLibrary(opts.OpenLibraryURL, newHTTPClient(opts.Timeout), opts.Guard)
		}
		return ol
	}
	googleBooks := func() *GoogleBooks {
		if gb == nil {
			gb = NewGoogleBooks(opts.GoogleBooksURL, opts.GoogleBooksAPIKey, newHTTPClient(opts.Timeout), opts.Guard)
		}
		return gb
	}

	seen := make(map[string]bool, len(names))
	chain := make([]Adapter, 0, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("adapter %q listed twice", name)
		}
		seen[name] = true

		switch name {
		case MethodStrict:
			chain = append(chain, NewStrictMatch(openLibrary()))
		case MethodShortTitle:
			chain = append(chain, NewShortTitle(openLibrary()))
		case MethodTitleOnly:
			chain = append(chain, NewTitleOnly(openLibrary()))
		case MethodISBNExact:
			chain = append(chain, NewISBNExact(openLibrary()))
		case MethodGoogleISBN:
			chain = append(chain, NewGoogleISBN(googleBooks()))
		case MethodGoogleTitleAuthor:
			chain = append(chain, NewGoogleTitleAuthor(googleBooks()))
		case MethodOPAC:
			if opts.OPACURL == "" {
				return nil, fmt.Errorf("adapter %q requires an OPAC url", name)
			}
			if opac == nil {
				opac = NewOPAC(opts.OPACURL, newHTTPClient(opts.Timeout), opts.Guard)
			}
			chain = append(chain, NewOPACAdapter(opac))
		default:
			return nil, fmt.Errorf("unknown adapter: %s", name)
		}
	}
	return chain, nil
}
