package network

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/tensor"
)

// TestNumericalGradients compares the accumulated gradients of every
// learnable tensor with central differences of the cross-entropy loss.
func TestNumericalGradients(t *testing.T) {
	const (
		label   = 2
		epsilon = float32(1e-2)
	)
	n := newTestNetwork(t, testHyperparameters(),
		"input:7:7:2,conv:3:3:2,pool:2:1,dense:5:sigmoid,dense:4:softmax")

	rng := rand.New(rand.NewPCG(7, 11))
	sample := tensor.Zeros(tensor.S3(7, 7, 2))
	for i := range sample.Data() {
		sample.Data()[i] = rng.Float32()
	}

	n.Zero()
	n.ForwardPropagate(sample, true)
	require.NoError(t, n.BackPropagate(label, true))

	// loss also returns the pooling routing, so perturbations that move a
	// window maximum (where the loss has a kink) can be left out.
	loss := func() (float32, [][]int) {
		out := n.ForwardPropagate(sample, false)
		var routes [][]int
		for _, l := range n.Layers() {
			if p, ok := l.(*nn.MaxPool2D); ok {
				routes = append(routes, slices.Clone(p.Argmax()))
			}
		}
		return nn.CrossEntropy(out, label), routes
	}

	type param struct {
		name         string
		values, grad []float32
	}
	var params []param
	for i, l := range n.Layers() {
		switch l := l.(type) {
		case *nn.Conv2D:
			params = append(params,
				param{fmt.Sprintf("layers.%d.kernels", i), l.Kernels(), slices.Clone(l.KernelGrads())},
				param{fmt.Sprintf("layers.%d.biases", i), l.Biases(), slices.Clone(l.BiasGrads())})
		case *nn.Dense:
			params = append(params,
				param{fmt.Sprintf("layers.%d.weights", i), l.Weights(), slices.Clone(l.WeightGrads())},
				param{fmt.Sprintf("layers.%d.biases", i), l.Biases(), slices.Clone(l.BiasGrads())})
		}
	}
	require.Len(t, params, 6)

	var checked, total int
	for _, p := range params {
		for i := range p.values {
			total++
			orig := p.values[i]
			p.values[i] = orig + epsilon
			plus, routesPlus := loss()
			p.values[i] = orig - epsilon
			minus, routesMinus := loss()
			p.values[i] = orig
			if !slices.EqualFunc(routesPlus, routesMinus, slices.Equal[[]int]) {
				continue
			}
			checked++

			numeric := (plus - minus) / (2 * epsilon)
			analytic := p.grad[i]
			tolerance := 1e-3 + 2e-2*math32.Max(math32.Abs(numeric), math32.Abs(analytic))
			assert.InDelta(t, numeric, analytic, float64(tolerance), "%s[%d]", p.name, i)
		}
	}
	assert.Greater(t, checked, total*9/10, "too many parameters sit on a pooling kink")
}
