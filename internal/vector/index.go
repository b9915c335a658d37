package vector

import "context"

// VectorIndex defines vector storage and similarity search.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Size() int
	Close() error
}

// VectorResult is a single similarity hit (ID is the caller's media key).
type VectorResult struct {
	ID    string
	Score float64 // cosine similarity in [-1, 1]
}
