// Package scoring blends retrieval similarity, reranker relevance and
// lightweight metadata signals into the final recommendation order.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/DhruvParmar051/book-recommendation-system/internal/models"
	"golang.org/x/sync/errgroup"
)

// Weights are the coefficients of the reranked blend.
type Weights struct {
	Rerank  float64 `json:"rerank" yaml:"rerank"`
	Depth   float64 `json:"depth" yaml:"depth"`
	Summary float64 `json:"summary" yaml:"summary"`
}

var (
	// CanonicalWeights is the default three-term blend.
	CanonicalWeights = Weights{Rerank: 0.65, Depth: 0.25, Summary: 0.10}
	// TwoTermWeights drops the summary bonus and leans harder on the
	// reranker.
	TwoTermWeights = Weights{Rerank: 0.80, Depth: 0.20, Summary: 0}
)

// Mode names the regime a ranked list was produced under.
type Mode string

const (
	ModeReranked      Mode = "reranked"
	ModeRetrievalOnly Mode = "retrieval_only"
)

// Reranker scores a candidate text against the query.
type Reranker interface {
	Score(ctx context.Context, query, text string) (float64, error)
}

// Input is one retrieved candidate with the metadata the blend needs.
type Input struct {
	RecordID       string
	RetrievalScore float64
	Pages          string
	Summary        string
	// Text is what the reranker sees.
	Text string
}

// Scorer produces the final ranking. With a nil Reranker it runs in
// low-resource mode and ranks by retrieval score alone.
type Scorer struct {
	Weights     Weights
	Reranker    Reranker
	Concurrency int
}

// New creates a scorer with the given weights and optional reranker.
func New(weights Weights, reranker Reranker) *Scorer {
	return &Scorer{Weights: weights, Reranker: reranker, Concurrency: 8}
}

var firstInt = regexp.MustCompile(`\d+`)

// DepthScore is the first integer found in pages divided by 1000, or 0.
func DepthScore(pages string) float64 {
	m := firstInt.FindString(pages)
	if m == "" {
		return 0
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return n / 1000.0
}

// SummaryBonus is 1 when a summary is present.
func SummaryBonus(summary string) float64 {
	if strings.TrimSpace(summary) == "" {
		return 0
	}
	return 1
}

// Score ranks pool for query and keeps the best topK. If the reranker fails
// for any candidate the whole list falls back to retrieval order so a single
// response never mixes the two regimes.
func (s *Scorer) Score(ctx context.Context, query string, pool []Input, topK int) ([]models.Candidate, Mode) {
	candidates := make([]models.Candidate, len(pool))
	for i, in := range pool {
		candidates[i] = models.Candidate{
			RecordID:       in.RecordID,
			RetrievalScore: in.RetrievalScore,
			DepthScore:     DepthScore(in.Pages),
			SummaryBonus:   SummaryBonus(in.Summary),
		}
	}

	mode := ModeRetrievalOnly
	if s.Reranker != nil && len(pool) > 0 {
		scores, err := s.rerank(ctx, query, pool)
		if err != nil {
			slog.Warn("Reranker unavailable, ranking by retrieval score", "err", err)
		} else {
			mode = ModeReranked
			for i := range candidates {
				score := scores[i]
				candidates[i].RerankScore = &score
			}
		}
	}

	for i := range candidates {
		candidates[i].FinalScore = s.final(candidates[i], mode)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].FinalScore > candidates[j].FinalScore
	})
	if topK < 0 {
		topK = 0
	}
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, mode
}

func (s *Scorer) final(c models.Candidate, mode Mode) float64 {
	if mode != ModeReranked || c.RerankScore == nil {
		return c.RetrievalScore
	}
	return s.Weights.Rerank**c.RerankScore + s.Weights.Depth*c.DepthScore + s.Weights.Summary*c.SummaryBonus
}

func (s *Scorer) rerank(ctx context.Context, query string, pool []Input) ([]float64, error) {
	scores := make([]float64, len(pool))
	g, gctx := errgroup.WithContext(ctx)
	limit := s.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, in := range pool {
		g.Go(func() error {
			score, err := s.Reranker.Score(gctx, query, in.Text)
			if err != nil {
				return fmt.Errorf("failed to rerank %s: %w", in.RecordID, err)
			}
			scores[i] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}
