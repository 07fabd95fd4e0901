package tensor

import "fmt"

// Shape3 is the (height, width, channels) shape of a Tensor3.
type Shape3 struct {
	H int `json:"h"`
	W int `json:"w"`
	C int `json:"c"`
}

// S3 builds a Shape3.
func S3(h, w, c int) Shape3 {
	return Shape3{H: h, W: w, C: c}
}

// ShapeOf builds a Shape3 from up to three dimensions.
// Missing trailing dimensions default to 1.
func ShapeOf(dims ...int) (Shape3, error) {
	if len(dims) == 0 || len(dims) > 3 {
		return Shape3{}, fmt.Errorf("expected 1 to 3 dimensions, got %d", len(dims))
	}
	s := Shape3{H: dims[0], W: 1, C: 1}
	if len(dims) > 1 {
		s.W = dims[1]
	}
	if len(dims) > 2 {
		s.C = dims[2]
	}
	return s, s.Validate()
}

// NumElements returns the total number of elements.
func (s Shape3) NumElements() int {
	return s.H * s.W * s.C
}

// Validate checks that all dimensions are > 0.
func (s Shape3) Validate() error {
	for i, dim := range [3]int{s.H, s.W, s.C} {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// IsZero reports whether the shape was never set.
func (s Shape3) IsZero() bool {
	return s == Shape3{}
}

// Flat returns the (N, 1, 1) shape holding the same number of elements.
func (s Shape3) Flat() Shape3 {
	return Shape3{H: s.NumElements(), W: 1, C: 1}
}

// Index returns the flat row-major offset of (h, w, c).
func (s Shape3) Index(h, w, c int) int {
	return (h*s.W+w)*s.C + c
}

// Dims returns the shape as a slice, handy for serialization tables.
func (s Shape3) Dims() []int {
	return []int{s.H, s.W, s.C}
}

func (s Shape3) String() string {
	return fmt.Sprintf("(%d, %d, %d)", s.H, s.W, s.C)
}
