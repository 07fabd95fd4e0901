package tensor

// ArgMax returns the index of the largest element, the first one on ties.
// It returns -1 for an empty vector.
func ArgMax(v []float32) int {
	if len(v) == 0 {
		return -1
	}
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// Sum returns the sum of all elements.
func Sum(v []float32) float32 {
	var s float32
	for _, x := range v {
		s += x
	}
	return s
}

// OneHot returns a vector of length size with a 1 at index.
func OneHot(index, size int) []float32 {
	v := make([]float32, size)
	if index >= 0 && index < size {
		v[index] = 1
	}
	return v
}

// Clear zeroes v in place.
func Clear(v []float32) {
	for i := range v {
		v[i] = 0
	}
}
