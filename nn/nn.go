// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the layers a network is built from.
//
// # Layers
//
// Conv2D: valid cross-correlation with a square kernel and a stride.
//
// MaxPool2D: per-channel maximum over square windows.
//
// Dense: fully connected layer with an activation and inverted dropout.
//
// All layers keep their own gradient accumulators. Backward adds to them,
// Update applies them averaged over the batch and clears them.
//
// # Activations
//
// ReLU, Sigmoid and Softmax. Softmax is only valid on the last layer, whose
// output error is the cross-entropy gradient predicted - one_hot(label).
package nn

import (
	"math/rand/v2"

	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/optim"
	"github.com/born-ml/convnet/internal/tensor"
)

// Layer is implemented by Conv2D, MaxPool2D and Dense.
type Layer = nn.Layer

// Kind tags the variant of a Layer.
type Kind = nn.Kind

// Layer kinds.
const (
	KindConv  = nn.KindConv
	KindMxpl  = nn.KindMxpl
	KindDense = nn.KindDense
)

// Conv2D is a convolutional layer.
type Conv2D = nn.Conv2D

// MaxPool2D is a max pooling layer.
type MaxPool2D = nn.MaxPool2D

// Dense is a fully connected layer.
type Dense = nn.Dense

// Activation is the non-linearity of a Dense layer.
type Activation = nn.Activation

// Activations.
const (
	ReLU    = nn.ReLU
	Sigmoid = nn.Sigmoid
	Softmax = nn.Softmax
)

// LayerState is the serializable form of a Layer.
type LayerState = nn.LayerState

// ShapeMismatchError reports a tensor of the wrong shape.
type ShapeMismatchError = nn.ShapeMismatchError

// Errors.
var (
	ErrConfiguration = nn.ErrConfiguration
	ErrShapeMismatch = nn.ErrShapeMismatch
)

// NewConv2D creates a convolution over input with filters kernels of
// kernelSize x kernelSize.
func NewConv2D(input tensor.Shape3, kernelSize, stride, filters int, opt optim.Config, rng *rand.Rand) (*Conv2D, error) {
	return nn.NewConv2D(input, kernelSize, stride, filters, opt, rng)
}

// NewMaxPool2D creates a max pooling layer over input.
func NewMaxPool2D(input tensor.Shape3, kernelSize, stride int) (*MaxPool2D, error) {
	return nn.NewMaxPool2D(input, kernelSize, stride)
}

// NewDense creates a fully connected layer reading the flattened transition
// shape.
func NewDense(transition tensor.Shape3, outFeatures int, act Activation, dropout float32, opt optim.Config, rng *rand.Rand) (*Dense, error) {
	return nn.NewDense(transition, outFeatures, act, dropout, opt, rng)
}

// ParseActivation parses "relu", "sigmoid" or "softmax".
func ParseActivation(name string) (Activation, error) { return nn.ParseActivation(name) }

// NewRand returns a seeded generator; seed 0 picks a random seed.
func NewRand(seed uint64) *rand.Rand { return nn.NewRand(seed) }

// CrossEntropy returns -log(probs[label]).
func CrossEntropy(probs []float32, label int) float32 { return nn.CrossEntropy(probs, label) }

// StateOf returns the serializable state of l.
func StateOf(l Layer) LayerState { return nn.StateOf(l) }

// FromState rebuilds a layer from its state.
func FromState(s LayerState, rng *rand.Rand) (Layer, error) { return nn.FromState(s, rng) }
