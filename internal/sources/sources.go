// Package sources implements the metadata lookups used during enrichment.
//
// Every lookup is exposed through the Adapter interface. Adapters fail soft:
// transport errors, parse errors, rate-limit waits cut short by cancellation
// and open circuit breakers are all logged and reported as "no match".
package sources

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DhruvParmar051/book-recommendation-system/internal/metrics"
	"github.com/DhruvParmar051/book-recommendation-system/internal/models"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Method names double as registry names and as the match_method recorded on
// FOUND results.
const (
	MethodStrict            = "strict"
	MethodShortTitle        = "short-title"
	MethodTitleOnly         = "title-only"
	MethodISBNExact         = "isbn-exact"
	MethodGoogleISBN        = "google-isbn"
	MethodGoogleTitleAuthor = "google-title-author"
	MethodOPAC              = "opac"
)

// Query is what the orchestrator knows about a record when it asks a source.
type Query struct {
	Title  string
	Author string
	ISBN   string
}

// Adapter looks up metadata for a single record. A nil Match means no match.
type Adapter interface {
	Name() string
	Search(ctx context.Context, q Query) *models.Match
}

type lookupFunc func(ctx context.Context, q Query) (*models.Match, error)

// adapter is the shared Adapter implementation. applies decides whether the
// query carries what this variant needs; lookup does the network work.
type adapter struct {
	name    string
	source  string
	applies func(Query) bool
	lookup  lookupFunc
}

func (a *adapter) Name() string {
	return a.name
}

func (a *adapter) Search(ctx context.Context, q Query) *models.Match {
	if a.applies != nil && !a.applies(q) {
		return nil
	}

	start := time.Now()
	match, err := a.lookup(ctx, q)
	duration := time.Since(start)

	if err != nil {
		outcome := "error"
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			outcome = "rejected"
		case ctx.Err() != nil:
			outcome = "cancelled"
		}
		metrics.RecordSourceRequest(a.source, outcome, duration)
		slog.Warn("Source lookup failed", "adapter", a.name, "title", q.Title, "outcome", outcome, "err", err)
		return nil
	}

	if match == nil {
		metrics.RecordSourceRequest(a.source, "no_match", duration)
		return nil
	}

	metrics.RecordSourceRequest(a.source, "match", duration)
	match.Method = a.name
	return match
}

func hasAuthor(q Query) bool { return q.Author != "" }
func hasISBN(q Query) bool   { return q.ISBN != "" }
