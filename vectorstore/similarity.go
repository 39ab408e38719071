package vectorstore

import "math"

// CosineSimilarity computes the cosine similarity between two vectors.
// It never errors: a zero-magnitude vector or a length mismatch scores 0,
// which threshold filtering then discards. Accumulation happens in float64
// so long vectors don't lose precision.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na2) * math.Sqrt(nb2)))
}
