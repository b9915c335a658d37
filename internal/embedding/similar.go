package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kotoba/internal/models"
	"github.com/hyperjump/kotoba/internal/vector"
)

// MaxRecommendations caps the number of FindSimilar results.
const MaxRecommendations = 20

// Candidate is a piece of media text to compare against, identified by the caller's key.
type Candidate struct {
	ID   string
	Text string
}

// FindSimilar embeds target and candidates and returns up to MaxRecommendations candidates
// whose similarity to target reaches threshold, most similar first. The threshold is clamped as
// in VerifySemanticConsistency. Candidates that fail to embed are skipped.
func (e *Engine) FindSimilar(ctx context.Context, target string, candidates []Candidate, threshold float64, ec models.EmbeddingContext) ([]*vector.VectorResult, error) {
	if threshold <= 0 {
		threshold = e.threshold
	}
	threshold = vector.ClampThreshold(threshold)

	query := e.GenerateEmbedding(ctx, target, ec)
	if !query.OK() {
		return nil, fmt.Errorf("embed target: %w", query.Err)
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	results := e.GenerateEmbeddings(ctx, texts, ec)

	idx, err := vector.NewMemoryIndex(e.dims)
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	ids := make([]string, 0, len(candidates))
	vecs := make([][]float32, 0, len(candidates))
	for i, res := range results {
		if !res.OK() {
			e.logger.Debug("skipping candidate", zap.String("id", candidates[i].ID), zap.Error(res.Err))
			continue
		}
		ids = append(ids, candidates[i].ID)
		vecs = append(vecs, res.Vector)
	}
	if err := idx.Add(ctx, ids, vecs); err != nil {
		return nil, err
	}
	if idx.Size() == 0 {
		return nil, nil
	}

	hits, err := idx.Search(ctx, query.Vector, MaxRecommendations)
	if err != nil {
		return nil, err
	}
	out := hits[:0]
	for _, h := range hits {
		if h.Score >= threshold {
			out = append(out, h)
		}
	}
	return out, nil
}
