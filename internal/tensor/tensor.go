// Package tensor holds the dense float32 containers exchanged between layers.
//
// A Tensor3 is laid out row-major over (height, width, channels), so a tensor
// of shape (N, 1, 1) shares its memory layout with a plain vector of length N.
// Flattening before a dense layer is therefore a reinterpretation, not a copy.
package tensor

import "fmt"

// Tensor3 is a dense 3-D array of float32 with axes (height, width, channels).
type Tensor3 struct {
	shape Shape3
	data  []float32
}

// Zeros creates a zero-filled tensor.
func Zeros(shape Shape3) *Tensor3 {
	if err := shape.Validate(); err != nil {
		panic(fmt.Sprintf("tensor.Zeros: %v", err))
	}
	return &Tensor3{shape: shape, data: make([]float32, shape.NumElements())}
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape3) *Tensor3 {
	return Full(shape, 1)
}

// Full creates a tensor filled with value.
func Full(shape Shape3, value float32) *Tensor3 {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

// FromSlice wraps data without copying.
func FromSlice(data []float32, shape Shape3) (*Tensor3, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	return &Tensor3{shape: shape, data: data}, nil
}

// FromVector wraps a vector as an (N, 1, 1) tensor without copying.
func FromVector(v []float32) *Tensor3 {
	return &Tensor3{shape: Shape3{H: len(v), W: 1, C: 1}, data: v}
}

// Shape returns the tensor shape.
func (t *Tensor3) Shape() Shape3 { return t.shape }

// Data returns the underlying row-major storage.
func (t *Tensor3) Data() []float32 { return t.data }

// Len returns the number of elements.
func (t *Tensor3) Len() int { return len(t.data) }

// At returns the element at (h, w, c).
func (t *Tensor3) At(h, w, c int) float32 {
	return t.data[t.shape.Index(h, w, c)]
}

// Set stores v at (h, w, c).
func (t *Tensor3) Set(h, w, c int, v float32) {
	t.data[t.shape.Index(h, w, c)] = v
}

// Reshape reinterprets the storage with a new shape holding the same number
// of elements. The result shares memory with t.
func (t *Tensor3) Reshape(shape Shape3) (*Tensor3, error) {
	return FromSlice(t.data, shape)
}

// Clone returns a deep copy.
func (t *Tensor3) Clone() *Tensor3 {
	data := make([]float32, len(t.data))
	copy(data, t.data)
	return &Tensor3{shape: t.shape, data: data}
}

// Fill sets every element to value.
func (t *Tensor3) Fill(value float32) {
	for i := range t.data {
		t.data[i] = value
	}
}

// Equal reports whether both tensors have the same shape and elements.
func (t *Tensor3) Equal(other *Tensor3) bool {
	if t.shape != other.shape {
		return false
	}
	for i, v := range t.data {
		if other.data[i] != v {
			return false
		}
	}
	return true
}

func (t *Tensor3) String() string {
	return fmt.Sprintf("Tensor3%v", t.shape)
}
