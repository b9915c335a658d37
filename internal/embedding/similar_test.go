package embedding

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/kotoba/internal/config"
)

// directionModel maps the first token id to a fixed direction so tests control similarity.
func directionModel(dirs map[int64][]float32) ModelFunc {
	return func(_ context.Context, ids, _ []int64) ([]float32, error) {
		v := make([]float32, 768)
		copy(v, dirs[ids[0]])
		return v, nil
	}
}

func TestFindSimilar(t *testing.T) {
	off := false
	cfg := testConfig(func(c *config.Config) { c.Embedding.EnableContextEnhancement = &off })
	// "he"=5, "wo"=7, "東京"=10 in the test vocabulary.
	model := directionModel(map[int64][]float32{
		5:  {1, 0},
		7:  {0.8, 0.6},
		10: {0, 1},
	})
	e := newTestEngine(t, model, WithConfig(cfg))

	hits, err := e.FindSimilar(context.Background(), "hello", []Candidate{
		{ID: "tokyo", Text: "東京"},
		{ID: "world", Text: "world"},
		{ID: "same", Text: "hello there"},
		{ID: "broken", Text: ""},
	}, 0, noContext())
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "same", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, "world", hits[1].ID)
	assert.InDelta(t, 0.8, hits[1].Score, 1e-6)

	hits, err = e.FindSimilar(context.Background(), "hello", []Candidate{{ID: "world", Text: "world"}}, 0.85, noContext())
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFindSimilar_Limit(t *testing.T) {
	e := newTestEngine(t, NewStubModel(unitVector(768)))
	candidates := make([]Candidate, MaxRecommendations+5)
	for i := range candidates {
		candidates[i] = Candidate{ID: fmt.Sprint(i), Text: fmt.Sprintf("hello %d", i)}
	}
	hits, err := e.FindSimilar(context.Background(), "hello", candidates, 0.7, noContext())
	require.NoError(t, err)
	assert.Len(t, hits, MaxRecommendations)
}

func TestFindSimilar_TargetFails(t *testing.T) {
	e := newTestEngine(t, NewMockModel(768))
	_, err := e.FindSimilar(context.Background(), "", []Candidate{{ID: "a", Text: "hello"}}, 0, noContext())
	assert.ErrorIs(t, err, ErrTokenizationFailure)
}

func TestFindSimilar_NoUsableCandidates(t *testing.T) {
	e := newTestEngine(t, NewStubModel(unitVector(768)))
	hits, err := e.FindSimilar(context.Background(), "hello", []Candidate{
		{ID: "blank", Text: ""},
		{ID: "space", Text: "   "},
	}, 0, noContext())
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = e.FindSimilar(context.Background(), "hello", nil, 0, noContext())
	require.NoError(t, err)
	assert.Empty(t, hits)
}
