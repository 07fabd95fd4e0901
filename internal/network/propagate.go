package network

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"

	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/tensor"
)

// ForwardPropagate runs sample through every layer and returns the output of
// the last one, flattened. The returned slice is owned by the network and is
// only valid until the next forward pass.
//
// It panics with *nn.ShapeMismatchError when sample does not have the input
// shape. Predict is the error-returning variant.
func (n *Network) ForwardPropagate(sample *tensor.Tensor3, training bool) []float32 {
	out := sample
	for _, l := range n.layers {
		out = l.Forward(out, training)
	}
	if len(n.layers) == 0 && sample.Shape() != n.inputShape {
		panic(&nn.ShapeMismatchError{Layer: "Network", Op: "forward", Want: n.inputShape, Got: sample.Shape()})
	}
	return out.Data()
}

// Predict runs an inference forward pass and returns a copy of the output.
func (n *Network) Predict(sample *tensor.Tensor3) ([]float32, error) {
	var out []float32
	err := exceptions.TryCatch[error](func() { out = n.ForwardPropagate(sample, false) })
	if err != nil {
		return nil, err
	}
	return slices.Clone(out), nil
}

// Classify returns the output position with the highest score.
func (n *Network) Classify(sample *tensor.Tensor3) (int, error) {
	out, err := n.Predict(sample)
	if err != nil {
		return -1, err
	}
	return tensor.ArgMax(out), nil
}

// Output returns the cached output of the final Dense layer, nil when the
// network does not end with one.
func (n *Network) Output() []float32 {
	d, err := n.lastDense()
	if err != nil {
		return nil
	}
	return d.Output()
}

// LastLayerError returns predicted - one_hot(classIndex), the gradient of the
// cross-entropy loss with respect to the input of a final Softmax.
func (n *Network) LastLayerError(classIndex int) ([]float32, error) {
	d, err := n.lastDense()
	if err != nil {
		return nil, err
	}
	if classIndex < 0 || classIndex >= d.OutFeatures() {
		return nil, fmt.Errorf("%w: class index %d outside [0, %d)", nn.ErrConfiguration, classIndex, d.OutFeatures())
	}
	return nn.CrossEntropyGrad(d.Output(), classIndex), nil
}

// BackPropagate pushes the output error for classIndex back through every
// layer. When training is true each layer adds its gradient contribution to
// its accumulators.
func (n *Network) BackPropagate(classIndex int, training bool) error {
	lastErr, err := n.LastLayerError(classIndex)
	if err != nil {
		return err
	}
	return exceptions.TryCatch[error](func() {
		errOut := tensor.FromVector(lastErr)
		for i := len(n.layers) - 1; i >= 0; i-- {
			errOut = n.layers[i].Backward(errOut, training)
		}
	})
}

// Update applies the accumulated gradients of every layer, averaged over
// batchSize samples, then clears the accumulators.
func (n *Network) Update(batchSize int) {
	for _, l := range n.layers {
		l.Update(batchSize)
	}
}

// Zero clears every layer's accumulators and cached output. Parameters are
// left untouched.
func (n *Network) Zero() {
	for _, l := range n.layers {
		l.Zero()
	}
}

// Accuracy returns 1 when the cached output ranks classIndex first, else 0.
func (n *Network) Accuracy(classIndex int) float32 {
	if tensor.ArgMax(n.Output()) == classIndex {
		return 1
	}
	return 0
}
