package providers

import (
	"context"
	"math"
)

// Config represents a single embedding request
type Config struct {
	Model string
	Input string
}

// Embedder defines the interface for an embedding provider
type Embedder interface {
	Embed(ctx context.Context, config Config) ([]float32, error)
}

// Normalize scales v to unit L2 length in place and returns it. A zero
// vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}
