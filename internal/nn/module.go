// Package nn implements the layers of the convolutional engine.
//
// This package provides building blocks for feed-forward networks:
//   - Layer interface: the closed set of layer kinds driven by the network
//   - Conv2D: valid cross-correlation with learnable filters
//   - MaxPool2D: max pooling with argmax routing on the backward pass
//   - Dense: affine transform + activation + optional inverted dropout
//   - Activations: ReLU, Sigmoid, Softmax
//
// Gradients are derived by hand per layer kind. A layer accumulates the
// gradient of every sample it back-propagates; Update averages the
// accumulator over the mini-batch, applies the optimizer and clears it.
package nn

import (
	"github.com/born-ml/convnet/internal/tensor"
)

// Kind tags the variant of a Layer.
type Kind string

// Layer kinds.
const (
	KindConv  Kind = "conv"
	KindMxpl  Kind = "mxpl"
	KindDense Kind = "dense"
)

// Layer is the closed union of Conv2D, MaxPool2D and Dense.
//
// The interface is sealed: only this package can add variants. Callers that
// need variant-specific behavior use a type switch.
//
// Every layer speaks Tensor3. Dense layers read their input as a flat vector
// and return (N, 1, 1) tensors, which share the vector layout.
type Layer interface {
	// Kind returns the variant tag.
	Kind() Kind

	// InputShape returns the configured input shape. For Dense this is the
	// transition shape of the preceding layer.
	InputShape() tensor.Shape3

	// OutputShape returns the shape produced by Forward.
	OutputShape() tensor.Shape3

	// Forward computes the layer output and caches what Backward needs.
	// It panics with *ShapeMismatchError on a wrong input shape.
	Forward(input *tensor.Tensor3, training bool) *tensor.Tensor3

	// Backward converts the error on the output into the error on the input.
	// When training is true the gradient contribution is added to the
	// layer's accumulators; otherwise they are left untouched.
	Backward(err *tensor.Tensor3, training bool) *tensor.Tensor3

	// Update averages the accumulated gradient over batchSize samples,
	// applies the optimizer to the parameters and clears the accumulators.
	Update(batchSize int)

	// Zero clears the gradient accumulators and the cached output without
	// touching learned parameters.
	Zero()

	// NumParameters returns the number of learnable scalars.
	NumParameters() int

	// String returns a one-line description.
	String() string

	sealed()
}

func checkBatchSize(layer string, batchSize int) {
	if batchSize <= 0 {
		panic(layer + ".Update: batch size must be > 0")
	}
}
