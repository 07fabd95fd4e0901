package nn

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/born-ml/convnet/internal/optim"
	"github.com/born-ml/convnet/internal/tensor"
)

// LayerState is the serializable form of a Layer: the Kind tag selects which
// of the variant fields is set.
//
// Gradient accumulators and cached activations are not part of the state.
// Parameters and optimizer moments are, so a restored layer continues
// training exactly where the saved one stopped.
type LayerState struct {
	Kind  Kind          `json:"kind"`
	Conv  *ConvState    `json:"conv,omitempty"`
	Mxpl  *MaxPoolState `json:"mxpl,omitempty"`
	Dense *DenseState   `json:"dense,omitempty"`
}

// ConvState holds the configuration and parameters of a Conv2D.
type ConvState struct {
	InputShape tensor.Shape3 `json:"input_shape"`
	KernelSize int           `json:"kernel_size"`
	Stride     int           `json:"stride"`
	Filters    int           `json:"filters"`
	Kernels    []float32     `json:"kernels"`
	Biases     []float32     `json:"biases"`
	Optimizer  optim.Config  `json:"optimizer"`
	KernelOpt  optim.State   `json:"kernel_opt"`
	BiasOpt    optim.State   `json:"bias_opt"`
}

// MaxPoolState holds the configuration of a MaxPool2D.
type MaxPoolState struct {
	InputShape tensor.Shape3 `json:"input_shape"`
	KernelSize int           `json:"kernel_size"`
	Stride     int           `json:"stride"`
}

// DenseState holds the configuration and parameters of a Dense.
type DenseState struct {
	TransitionShape tensor.Shape3 `json:"transition_shape"`
	OutFeatures     int           `json:"out_features"`
	Activation      Activation    `json:"activation"`
	Dropout         float32       `json:"dropout"`
	Weights         []float32     `json:"weights"`
	Biases          []float32     `json:"biases"`
	Optimizer       optim.Config  `json:"optimizer"`
	WeightOpt       optim.State   `json:"weight_opt"`
	BiasOpt         optim.State   `json:"bias_opt"`
}

// State returns a deep copy of the layer's configuration and parameters.
func (c *Conv2D) State() *ConvState {
	return &ConvState{
		InputShape: c.inputShape,
		KernelSize: c.kernelSize,
		Stride:     c.stride,
		Filters:    c.filters,
		Kernels:    slices.Clone(c.kernels),
		Biases:     slices.Clone(c.biases),
		Optimizer:  c.optimizer,
		KernelOpt:  c.kernelOpt.State(),
		BiasOpt:    c.biasOpt.State(),
	}
}

// State returns the layer configuration.
func (m *MaxPool2D) State() *MaxPoolState {
	return &MaxPoolState{
		InputShape: m.inputShape,
		KernelSize: m.kernelSize,
		Stride:     m.stride,
	}
}

// State returns a deep copy of the layer's configuration and parameters.
func (d *Dense) State() *DenseState {
	return &DenseState{
		TransitionShape: d.transitionShape,
		OutFeatures:     d.outFeatures,
		Activation:      d.activation,
		Dropout:         d.dropout,
		Weights:         slices.Clone(d.weights),
		Biases:          slices.Clone(d.biases),
		Optimizer:       d.optimizer,
		WeightOpt:       d.weightOpt.State(),
		BiasOpt:         d.biasOpt.State(),
	}
}

// StateOf snapshots any layer.
func StateOf(l Layer) LayerState {
	switch l := l.(type) {
	case *Conv2D:
		return LayerState{Kind: KindConv, Conv: l.State()}
	case *MaxPool2D:
		return LayerState{Kind: KindMxpl, Mxpl: l.State()}
	case *Dense:
		return LayerState{Kind: KindDense, Dense: l.State()}
	default:
		panic(fmt.Sprintf("nn.StateOf: unknown layer %T", l))
	}
}

// FromState rebuilds a layer. rng is only used for dropout masks.
func FromState(s LayerState, rng *rand.Rand) (Layer, error) {
	switch s.Kind {
	case KindConv:
		if s.Conv == nil {
			return nil, configErrorf("layer state %q has no conv section", s.Kind)
		}
		return ConvFromState(s.Conv)
	case KindMxpl:
		if s.Mxpl == nil {
			return nil, configErrorf("layer state %q has no mxpl section", s.Kind)
		}
		return MaxPoolFromState(s.Mxpl)
	case KindDense:
		if s.Dense == nil {
			return nil, configErrorf("layer state %q has no dense section", s.Kind)
		}
		return DenseFromState(s.Dense, rng)
	default:
		return nil, configErrorf("unknown layer kind %q", s.Kind)
	}
}

// ConvFromState rebuilds a Conv2D, copying its parameters.
func ConvFromState(s *ConvState) (*Conv2D, error) {
	outputShape, err := convOutputShape(s.InputShape, s.KernelSize, s.Stride, s.Filters)
	if err != nil {
		return nil, err
	}
	n := s.KernelSize * s.KernelSize * s.InputShape.C * s.Filters
	if len(s.Kernels) != n || len(s.Biases) != s.Filters {
		return nil, configErrorf("conv2d: state holds %d kernels and %d biases, expected %d and %d",
			len(s.Kernels), len(s.Biases), n, s.Filters)
	}
	kernelOpt, err := s.Optimizer.Restore(n, s.KernelOpt)
	if err != nil {
		return nil, configErrorf("conv2d: kernel optimizer: %v", err)
	}
	biasOpt, err := s.Optimizer.Restore(s.Filters, s.BiasOpt)
	if err != nil {
		return nil, configErrorf("conv2d: bias optimizer: %v", err)
	}
	return &Conv2D{
		inputShape:  s.InputShape,
		outputShape: outputShape,
		kernelSize:  s.KernelSize,
		stride:      s.Stride,
		filters:     s.Filters,
		kernels:     slices.Clone(s.Kernels),
		biases:      slices.Clone(s.Biases),
		kernelGrads: make([]float32, n),
		biasGrads:   make([]float32, s.Filters),
		output:      tensor.Zeros(outputShape),
		optimizer:   s.Optimizer,
		kernelOpt:   kernelOpt,
		biasOpt:     biasOpt,
	}, nil
}

// MaxPoolFromState rebuilds a MaxPool2D.
func MaxPoolFromState(s *MaxPoolState) (*MaxPool2D, error) {
	return NewMaxPool2D(s.InputShape, s.KernelSize, s.Stride)
}

// DenseFromState rebuilds a Dense, copying its parameters.
func DenseFromState(s *DenseState, rng *rand.Rand) (*Dense, error) {
	// Builds a throwaway initialization first so every constructor check runs.
	d, err := NewDense(s.TransitionShape, s.OutFeatures, s.Activation, s.Dropout, s.Optimizer, rng)
	if err != nil {
		return nil, err
	}
	if len(s.Weights) != len(d.weights) || len(s.Biases) != len(d.biases) {
		return nil, configErrorf("dense: state holds %d weights and %d biases, expected %d and %d",
			len(s.Weights), len(s.Biases), len(d.weights), len(d.biases))
	}
	copy(d.weights, s.Weights)
	copy(d.biases, s.Biases)
	if d.weightOpt, err = s.Optimizer.Restore(len(d.weights), s.WeightOpt); err != nil {
		return nil, configErrorf("dense: weight optimizer: %v", err)
	}
	if d.biasOpt, err = s.Optimizer.Restore(len(d.biases), s.BiasOpt); err != nil {
		return nil, configErrorf("dense: bias optimizer: %v", err)
	}
	return d, nil
}
