package domain

import (
	"errors"
	"fmt"
	"math"
)

// ErrZeroVector signals a vector with zero magnitude, for which cosine distance is undefined.
var ErrZeroVector = errors.New("zero vector")

// CosineDistance returns 1 - cos(a, b), in [0, 2]. Accumulates in float64.
func CosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrVectorDimMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, ErrZeroVector
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// rounding can push |cos| slightly past 1
	cos = math.Max(-1, math.Min(1, cos))
	return 1 - cos, nil
}
