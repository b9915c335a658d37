// Package embedding turns media metadata text into normalized, context-adjusted embedding
// vectors, with caching, cross-lingual transformation, and guarded model inference.
package embedding

import "context"

// Embedder produces vector embeddings for text. Engine implements it for callers that only
// need raw vectors and prefer explicit errors over error results.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
