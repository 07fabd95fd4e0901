package serialization

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func meta(name string, offset int64, shape ...int) TensorMeta {
	return TensorMeta{Name: name, DType: DTypeFloat32, Shape: shape, Offset: offset, Size: numElements(shape) * 4}
}

func TestValidateTensorOffsets(t *testing.T) {
	tests := []struct {
		name     string
		tensors  []TensorMeta
		dataSize int64
		want     error
	}{
		{"contiguous", []TensorMeta{meta("a", 0, 25), meta("b", 100, 50), meta("c", 300, 10)}, 340, nil},
		{"unsorted", []TensorMeta{meta("b", 100, 25), meta("a", 0, 25)}, 200, nil},
		{"overlap", []TensorMeta{meta("a", 0, 25), meta("b", 96, 25)}, 200, ErrOffsetOverlap},
		{"out of bounds", []TensorMeta{meta("a", 0, 25), meta("b", 100, 26)}, 200, ErrOutOfBounds},
		{"negative offset", []TensorMeta{meta("a", -4, 1)}, 200, ErrNegativeOffset},
		{"negative size", []TensorMeta{{Name: "a", Offset: 0, Size: -1}}, 200, ErrNegativeOffset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTensorOffsets(tt.tensors, tt.dataSize)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			var verr *ValidationError
			assert.True(t, errors.As(err, &verr))
		})
	}

	many := make([]TensorMeta, MaxTensorCount+1)
	assert.ErrorIs(t, ValidateTensorOffsets(many, 0), ErrTooManyTensors)
}

func TestValidateTensorName(t *testing.T) {
	for _, name := range []string{"layers.0.kernels", "layers.12.weights.m", "biases"} {
		assert.NoError(t, ValidateTensorName(name), name)
	}
	for _, name := range []string{
		"../../../etc/passwd",
		"layers/0/kernels",
		"layers\\0",
		"layers\x00hidden",
		strings.Repeat("a", MaxTensorNameLen+1),
	} {
		assert.ErrorIs(t, ValidateTensorName(name), ErrInvalidTensorName, name)
	}
}

func TestValidateHeader(t *testing.T) {
	valid := Header{Tensors: []TensorMeta{meta("a", 0, 2, 3), meta("b", 24, 3)}}
	require.NoError(t, ValidateHeader(&valid, 36))

	overlap := Header{Tensors: []TensorMeta{meta("a", 0, 2, 3), meta("b", 20, 3)}}
	assert.ErrorIs(t, ValidateHeader(&overlap, 36), ErrOffsetOverlap)
	assert.ErrorIs(t, ValidateHeader(&valid, 30), ErrOutOfBounds)

	dup := Header{Tensors: []TensorMeta{meta("a", 0, 1), meta("a", 4, 1)}}
	assert.ErrorIs(t, ValidateHeader(&dup, 8), ErrInvalidTensorName)

	wrongSize := Header{Tensors: []TensorMeta{{Name: "a", DType: DTypeFloat32, Shape: []int{3}, Size: 8}}}
	assert.ErrorIs(t, ValidateHeader(&wrongSize, 8), ErrOutOfBounds)

	wrongType := Header{Tensors: []TensorMeta{{Name: "a", DType: "float64", Shape: []int{1}, Size: 4}}}
	assert.Error(t, ValidateHeader(&wrongType, 8))

	traversal := Header{Tensors: []TensorMeta{meta("../x", 0, 1)}}
	assert.ErrorIs(t, ValidateHeader(&traversal, 4), ErrInvalidTensorName)
}

func TestValidationErrorMessages(t *testing.T) {
	assert.Equal(t, `out_of_bounds: tensor "w": offset 100 + size 200 > data_size 250`,
		(&ValidationError{Type: "out_of_bounds", Tensor: "w", Details: "offset 100 + size 200 > data_size 250"}).Error())
	assert.Equal(t, `offset_overlap: tensors "a" and "b": regions [0-100] and [50-150] overlap`,
		(&ValidationError{Type: "offset_overlap", Tensor: "a", Tensor2: "b", Details: "regions [0-100] and [50-150] overlap"}).Error())
	assert.Equal(t, "too_many_tensors: got 100001, max 100000",
		(&ValidationError{Type: "too_many_tensors", Details: "got 100001, max 100000"}).Error())
}

func FuzzValidateTensorName(f *testing.F) {
	f.Add("layers.0.kernels")
	f.Add("../malicious")
	f.Add("\x00null_byte")
	f.Fuzz(func(_ *testing.T, name string) {
		_ = ValidateTensorName(name)
	})
}
