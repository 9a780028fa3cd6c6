package vectorizer

import "math"

// Entry is one non-zero component of a sparse vector.
type Entry struct {
	Index int     `json:"i"`
	Value float64 `json:"v"`
}

// Vector is a sparse feature vector with entries sorted by index.
type Vector []Entry

// Dot returns the dot product of two sparse vectors.
func (v Vector) Dot(other Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v) && j < len(other) {
		switch {
		case v[i].Index < other[j].Index:
			i++
		case v[i].Index > other[j].Index:
			j++
		default:
			sum += v[i].Value * other[j].Value
			i++
			j++
		}
	}
	return sum
}

// Norm returns the Euclidean norm.
func (v Vector) Norm() float64 {
	var sum float64
	for _, e := range v {
		sum += e.Value * e.Value
	}
	return math.Sqrt(sum)
}

// CosineSimilarity returns the cosine of the angle between v and other.
// Either vector being zero yields 0.
func (v Vector) CosineSimilarity(other Vector) float64 {
	nv, no := v.Norm(), other.Norm()
	if nv == 0 || no == 0 {
		return 0
	}
	return v.Dot(other) / (nv * no)
}

// IsZero reports whether the vector has no non-zero entries.
func (v Vector) IsZero() bool {
	return len(v) == 0
}
