package search

import "math"

// Mean returns the componentwise arithmetic mean of the given vectors.
// All vectors must share the same dimension. Returns nil for empty input.
func Mean(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	sums := make([]float64, dim)
	for _, v := range vectors {
		for i := range v {
			sums[i] += float64(v[i])
		}
	}
	mean := make([]float32, dim)
	n := float64(len(vectors))
	for i, s := range sums {
		mean[i] = float32(s / n)
	}
	return mean
}

// Normalize returns an L2-normalized copy of v. A zero vector is
// returned unchanged rather than divided by zero.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	norm := Norm(v)
	if norm == 0 {
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / norm)
	}
	return out
}

// Dot returns the inner product of a and b over their shared length.
func Dot(a, b []float32) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Norm returns the Euclidean norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine similarity of a and b. If either vector has
// zero norm it returns 0.0, never dividing by zero.
func Cosine(a, b []float32) float64 {
	na := Norm(a)
	nb := Norm(b)
	if na == 0 || nb == 0 {
		return 0.0
	}
	return Dot(a, b) / (na * nb)
}

// DistanceToScore maps a squared Euclidean distance to a similarity
// score in (0, 1]: 1/(1+d), so d=0 scores 1.0 and the score decreases
// monotonically with distance. Negative distances indicate a data
// problem upstream; callers log them, the value is still computed.
func DistanceToScore(d float64) float64 {
	return 1.0 / (1.0 + d)
}
