// Package embed generates vector embeddings for chunk content through
// an HTTP embedding service.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// DefaultBatchSize is the default batch size for embedding requests.
	DefaultBatchSize = 64

	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 120 * time.Second

	// DefaultMaxRetries is the number of attempts per request.
	DefaultMaxRetries = 3

	// PaddedDimensions is the fixed width chunks are stored at. Model
	// output shorter than this is zero-padded on the right.
	PaddedDimensions = 1536
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the native embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the embedder is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// Pad returns a vector of exactly PaddedDimensions elements: the
// native dims first, zeros after. Vectors already at or beyond the
// padded width are truncated.
func Pad(v []float32) []float32 {
	out := make([]float32, PaddedDimensions)
	copy(out, v)
	return out
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
