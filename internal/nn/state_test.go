package nn

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convnet/internal/optim"
	"github.com/born-ml/convnet/internal/tensor"
)

// trainStep runs one forward/backward/update cycle on an all-ones input.
func trainStep(l Layer) {
	l.Forward(tensor.Ones(l.InputShape()), true)
	l.Backward(tensor.Ones(l.OutputShape()), true)
	l.Update(1)
}

func TestStateRoundTrip(t *testing.T) {
	adam := optim.NewAdamConfig(0.01, 0, 0, 0)
	conv, err := NewConv2D(tensor.S3(6, 6, 2), 3, 1, 4, adam, NewRand(3))
	require.NoError(t, err)
	pool, err := NewMaxPool2D(conv.OutputShape(), 2, 2)
	require.NoError(t, err)
	dense, err := NewDense(pool.OutputShape(), 5, Sigmoid, 0, adam, NewRand(4))
	require.NoError(t, err)

	for _, layer := range []Layer{conv, pool, dense} {
		t.Run(string(layer.Kind()), func(t *testing.T) {
			trainStep(layer)

			data, err := json.Marshal(StateOf(layer))
			require.NoError(t, err)
			var state LayerState
			require.NoError(t, json.Unmarshal(data, &state))

			restored, err := FromState(state, NewRand(9))
			require.NoError(t, err)
			assert.Equal(t, StateOf(layer), StateOf(restored))
			assert.Equal(t, layer.String(), restored.String())

			// Both continue training identically, optimizer moments included.
			trainStep(layer)
			trainStep(restored)
			assert.Equal(t, StateOf(layer), StateOf(restored))
		})
	}
}

func TestStateIsACopy(t *testing.T) {
	d := fixedDense(t, ReLU, 0)
	s := d.State()
	s.Weights[0] = 100
	assert.Equal(t, float32(1), d.Weights()[0])
}

func TestFromStateErrors(t *testing.T) {
	d := fixedDense(t, ReLU, 0)
	bad := d.State()
	bad.Weights = bad.Weights[:2]

	tests := []struct {
		name  string
		state LayerState
	}{
		{"unknown kind", LayerState{Kind: "rnn"}},
		{"missing section", LayerState{Kind: KindConv}},
		{"truncated weights", LayerState{Kind: KindDense, Dense: bad}},
		{"bad pool geometry", LayerState{Kind: KindMxpl, Mxpl: &MaxPoolState{InputShape: tensor.S3(2, 2, 1), KernelSize: 3, Stride: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromState(tt.state, NewRand(1))
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}
