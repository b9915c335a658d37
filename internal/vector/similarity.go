// Package vector provides vector normalization, cosine similarity, and an in-memory similarity index.
package vector

import (
	"math"

	"github.com/hyperjump/kotoba/pkg/utils"
)

const (
	// DefaultThreshold is the default cosine similarity needed for two embeddings to be consistent.
	DefaultThreshold = 0.7
	// MinThreshold and MaxThreshold bound caller-supplied thresholds.
	MinThreshold = 0.5
	MaxThreshold = 0.9
)

// Normalize returns a unit-length copy of v. A zero-magnitude vector is returned unchanged (as a copy).
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	utils.NormalizeL2(out)
	return out
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	return utils.Magnitude(x)
}

// TruncateCommon returns a and b cut to their common length.
func TruncateCommon(a, b []float32) ([]float32, []float32) {
	n := min(len(a), len(b))
	return a[:n], b[:n]
}

// InnerProduct returns the inner product over the common prefix of a and b.
func InnerProduct(a, b []float32) float64 {
	a, b = TruncateCommon(a, b)
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// CosineSimilarity returns the cosine of the angle between a and b, computed over their common
// length. It is 0 when either vector has zero magnitude.
func CosineSimilarity(a, b []float32) float64 {
	a, b = TruncateCommon(a, b)
	magA, magB := L2Norm(a), L2Norm(b)
	if magA == 0 || magB == 0 {
		return 0
	}
	sim := InnerProduct(a, b) / (magA * magB)
	return math.Max(-1, math.Min(1, sim))
}

// ClampThreshold limits t to [MinThreshold, MaxThreshold].
func ClampThreshold(t float64) float64 {
	return math.Max(MinThreshold, math.Min(MaxThreshold, t))
}

// Consistent reports whether a and b are at least threshold-similar after clamping the threshold.
func Consistent(a, b []float32, threshold float64) bool {
	return CosineSimilarity(a, b) >= ClampThreshold(threshold)
}
