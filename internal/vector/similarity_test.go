package vector

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	v := []float32{3, 4, 0}
	n := Normalize(v)
	assert.InDelta(t, 1.0, L2Norm(n), 1e-6)
	assert.Equal(t, float32(3), v[0], "input must not be modified")

	zero := []float32{0, 0, 0}
	assert.Equal(t, zero, Normalize(zero))
}

func TestNormalize_RandomVectors(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 50; i++ {
		v := make([]float32, 768)
		for j := range v {
			v[j] = float32(r.NormFloat64())
		}
		assert.InDelta(t, 1.0, L2Norm(Normalize(v)), 1e-6)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"truncated to common length", []float32{1, 0, 5}, []float32{1, 0}, 1},
		{"empty", nil, []float32{1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 100; i++ {
		a := make([]float32, 1+r.IntN(20))
		b := make([]float32, 1+r.IntN(20))
		for j := range a {
			a[j] = float32(r.Float64()*2 - 1)
		}
		for j := range b {
			b[j] = float32(r.Float64()*2 - 1)
		}
		if CosineSimilarity(a, b) != CosineSimilarity(b, a) {
			t.Fatalf("asymmetric similarity for %v / %v", a, b)
		}
	}
}

func TestClampThreshold(t *testing.T) {
	assert.Equal(t, 0.5, ClampThreshold(0.1))
	assert.Equal(t, 0.9, ClampThreshold(0.99))
	assert.Equal(t, 0.7, ClampThreshold(0.7))
}

func TestConsistent(t *testing.T) {
	a := []float32{0.3, -0.2, 0.9}
	assert.True(t, Consistent(a, a, DefaultThreshold))
	assert.False(t, Consistent(a, []float32{0, 0, 0}, DefaultThreshold))
	assert.False(t, Consistent([]float32{1, 0}, []float32{0, 1}, 0.1), "threshold is clamped to 0.5")
}
