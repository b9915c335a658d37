package utils

import "math"

// Magnitude returns the L2 norm of x, accumulated in float64.
func Magnitude(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// NormalizeL2 normalizes the slice in place to unit L2 norm.
// If the norm is zero, the slice is unchanged.
func NormalizeL2(x []float32) {
	mag := Magnitude(x)
	if mag == 0 {
		return
	}
	for i := range x {
		x[i] = float32(float64(x[i]) / mag)
	}
}
