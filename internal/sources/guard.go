package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DhruvParmar051/book-recommendation-system/internal/metrics"
	"github.com/DhruvParmar051/book-recommendation-system/internal/models"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// GuardConfig controls request pacing and circuit breaking for one provider.
type GuardConfig struct {
	RequestsPerSecond float64
	Burst             int
	// FailureThreshold is the number of consecutive failures that opens the
	// breaker. Zero disables tripping.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// DefaultGuardConfig paces at roughly one request per second, which keeps
// Open Library under its 100 requests per 5 minutes allowance with headroom.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		RequestsPerSecond: 1,
		Burst:             5,
		FailureThreshold:  10,
		OpenTimeout:       time.Minute,
	}
}

// guard wraps every request a provider issues with a rate limiter and a
// circuit breaker.
type guard struct {
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[*models.Match]
}

func newGuard(name string, cfg GuardConfig) *guard {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[*models.Match](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.FailureThreshold > 0 && counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		// A caller giving up is not a provider failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})

	return &guard{
		limiter: rate.NewLimiter(limit, burst),
		cb:      cb,
	}
}

func (g *guard) do(ctx context.Context, fn func() (*models.Match, error)) (*models.Match, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for rate limiter: %w", err)
	}
	return g.cb.Execute(fn)
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
