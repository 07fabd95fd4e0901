package nn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/convnet/internal/tensor"
)

// requireShapePanic runs f and checks that it panics with a shape mismatch.
func requireShapePanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		require.True(t, errors.Is(err, ErrShapeMismatch), "got %v", err)
	}()
	f()
}

func mustTensor(t *testing.T, data []float32, shape tensor.Shape3) *tensor.Tensor3 {
	t.Helper()
	x, err := tensor.FromSlice(data, shape)
	require.NoError(t, err)
	return x
}

func ascending(n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = float32(i + 1)
	}
	return v
}
