package nn

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/convnet/internal/optim"
	"github.com/born-ml/convnet/internal/tensor"
)

// Dense implements a fully connected layer.
//
// Performs the transformation: y = dropout(act(W @ x + b))
// where:
//   - x is the flattened input of length in_features
//   - W is the weight matrix with shape [out_features, in_features], row-major
//   - b is the bias vector with shape [out_features]
//   - dropout is inverted dropout, active only while training
//
// The input may be any tensor holding in_features elements shaped like the
// transition shape (the output shape of the preceding layer) or its flat
// (in_features, 1, 1) view. Output is (out_features, 1, 1).
//
// Weights are initialized using Xavier/Glorot initialization.
// Biases are initialized to zeros.
//
// Example:
//
//	layer, err := nn.NewDense(tensor.S3(13, 13, 8), 10, nn.Softmax, 0, optim.NewSGDConfig(0.1), rng)
//	probs := layer.Forward(features, false) // (10, 1, 1)
type Dense struct {
	transitionShape tensor.Shape3
	inFeatures      int
	outFeatures     int
	activation      Activation
	dropout         float32

	weights []float32 // [out_features, in_features]
	biases  []float32 // [out_features]

	weightGrads []float32
	biasGrads   []float32

	input     []float32 // cached for Backward
	activated []float32 // act(W @ x + b)
	output    []float32 // activated after dropout
	mask      []float32 // nil when dropout was not applied

	optimizer optim.Config
	weightOpt optim.Optimizer
	biasOpt   optim.Optimizer

	rng *rand.Rand // dropout masks
}

// NewDense creates a new fully connected layer.
//
// Parameters:
//   - transition: Output shape of the preceding layer (or the network input)
//   - outFeatures: Number of output units (> 0)
//   - act: Activation applied after the affine transform
//   - dropout: Drop probability in [0, 1), 0 disables dropout
//   - opt: Optimizer descriptor, copied into the layer
//   - rng: Source for weight initialization and dropout masks
func NewDense(transition tensor.Shape3, outFeatures int, act Activation, dropout float32, opt optim.Config, rng *rand.Rand) (*Dense, error) {
	if err := transition.Validate(); err != nil {
		return nil, configErrorf("dense: transition shape: %v", err)
	}
	if outFeatures <= 0 {
		return nil, configErrorf("dense: invalid output size %d", outFeatures)
	}
	if _, ok := activationNames[act]; !ok {
		return nil, configErrorf("dense: unknown activation %d", int(act))
	}
	if dropout < 0 || dropout >= 1 {
		return nil, configErrorf("dense: dropout %v outside [0, 1)", dropout)
	}
	if err := opt.Validate(); err != nil {
		return nil, configErrorf("dense: %v", err)
	}

	inFeatures := transition.NumElements()
	n := inFeatures * outFeatures
	return &Dense{
		transitionShape: transition,
		inFeatures:      inFeatures,
		outFeatures:     outFeatures,
		activation:      act,
		dropout:         dropout,
		weights:         Xavier(rng, inFeatures, outFeatures, n),
		biases:          make([]float32, outFeatures),
		weightGrads:     make([]float32, n),
		biasGrads:       make([]float32, outFeatures),
		output:          make([]float32, outFeatures),
		optimizer:       opt,
		weightOpt:       opt.New(n),
		biasOpt:         opt.New(outFeatures),
		rng:             rng,
	}, nil
}

func (d *Dense) sealed() {}

// Kind returns KindDense.
func (d *Dense) Kind() Kind { return KindDense }

// InputShape returns the transition shape.
func (d *Dense) InputShape() tensor.Shape3 { return d.transitionShape }

// OutputShape returns (out_features, 1, 1).
func (d *Dense) OutputShape() tensor.Shape3 { return tensor.S3(d.outFeatures, 1, 1) }

// InFeatures returns the flattened input size.
func (d *Dense) InFeatures() int { return d.inFeatures }

// OutFeatures returns the number of output units.
func (d *Dense) OutFeatures() int { return d.outFeatures }

// Activation returns the activation kind.
func (d *Dense) Activation() Activation { return d.activation }

// Dropout returns the drop probability.
func (d *Dense) Dropout() float32 { return d.dropout }

// Weights returns the live weight matrix, [out_features, in_features].
func (d *Dense) Weights() []float32 { return d.weights }

// Biases returns the live biases.
func (d *Dense) Biases() []float32 { return d.biases }

// WeightGrads returns the weight gradient accumulator.
func (d *Dense) WeightGrads() []float32 { return d.weightGrads }

// BiasGrads returns the bias gradient accumulator.
func (d *Dense) BiasGrads() []float32 { return d.biasGrads }

// Output returns the vector cached by the last forward pass.
func (d *Dense) Output() []float32 { return d.output }

// NumParameters returns in*out + out.
func (d *Dense) NumParameters() int { return len(d.weights) + len(d.biases) }

// Forward flattens the input and applies ForwardVector.
func (d *Dense) Forward(input *tensor.Tensor3, training bool) *tensor.Tensor3 {
	if got := input.Shape(); got != d.transitionShape && got != d.transitionShape.Flat() {
		checkShape("Dense", "forward", d.transitionShape, got)
	}
	return tensor.FromVector(d.ForwardVector(input.Data(), training))
}

// ForwardVector computes dropout(act(W @ x + b)) on a flat input.
// The mask is resampled on every training call.
func (d *Dense) ForwardVector(x []float32, training bool) []float32 {
	if len(x) != d.inFeatures {
		checkShape("Dense", "forward", d.transitionShape.Flat(), tensor.S3(len(x), 1, 1))
	}

	z := make([]float32, d.outFeatures)
	for o := range z {
		row := d.weights[o*d.inFeatures : (o+1)*d.inFeatures]
		sum := d.biases[o]
		for i, w := range row {
			sum += w * x[i]
		}
		z[o] = sum
	}

	d.input = x
	d.activated = Forward(z, d.activation)

	if !training || d.dropout == 0 {
		d.mask = nil
		d.output = d.activated
		return d.output
	}

	// Inverted dropout: survivors are scaled so inference needs no rescaling.
	keep := 1 / (1 - d.dropout)
	d.mask = make([]float32, d.outFeatures)
	d.output = make([]float32, d.outFeatures)
	for o := range d.mask {
		if d.rng.Float32() >= d.dropout {
			d.mask[o] = keep
		}
		d.output[o] = d.activated[o] * d.mask[o]
	}
	return d.output
}

// Backward applies BackwardVector and reshapes the input error to the
// transition shape.
func (d *Dense) Backward(errOut *tensor.Tensor3, training bool) *tensor.Tensor3 {
	checkShape("Dense", "backward", d.OutputShape(), errOut.Shape())
	dx := d.BackwardVector(errOut.Data(), training)
	t, err := tensor.FromSlice(dx, d.transitionShape)
	if err != nil {
		panic(err)
	}
	return t
}

// BackwardVector computes delta = err ⊙ mask ⊙ act'(activated), accumulates
// outer(delta, input) and delta when training, and returns W^T @ delta.
func (d *Dense) BackwardVector(errOut []float32, training bool) []float32 {
	if len(errOut) != d.outFeatures {
		checkShape("Dense", "backward", d.OutputShape(), tensor.S3(len(errOut), 1, 1))
	}
	if d.input == nil {
		panic("Dense.Backward: called before Forward")
	}

	delta := Backward(d.activated, d.activation)
	for o := range delta {
		delta[o] *= errOut[o]
		if d.mask != nil {
			delta[o] *= d.mask[o]
		}
	}

	if training {
		for o, g := range delta {
			if g == 0 {
				continue
			}
			row := d.weightGrads[o*d.inFeatures : (o+1)*d.inFeatures]
			for i, x := range d.input {
				row[i] += g * x
			}
			d.biasGrads[o] += g
		}
	}

	dx := make([]float32, d.inFeatures)
	for o, g := range delta {
		if g == 0 {
			continue
		}
		row := d.weights[o*d.inFeatures : (o+1)*d.inFeatures]
		for i, w := range row {
			dx[i] += w * g
		}
	}
	return dx
}

// Update averages the accumulated gradients over batchSize samples, applies
// the optimizer and clears the accumulators.
func (d *Dense) Update(batchSize int) {
	checkBatchSize("Dense", batchSize)
	scale := 1 / float32(batchSize)
	for i := range d.weightGrads {
		d.weightGrads[i] *= scale
	}
	for i := range d.biasGrads {
		d.biasGrads[i] *= scale
	}
	d.weightOpt.Step(d.weights, d.weightGrads)
	d.biasOpt.Step(d.biases, d.biasGrads)
	tensor.Clear(d.weightGrads)
	tensor.Clear(d.biasGrads)
}

// Zero clears the gradient accumulators and the cached output.
func (d *Dense) Zero() {
	tensor.Clear(d.weightGrads)
	tensor.Clear(d.biasGrads)
	d.output = make([]float32, d.outFeatures)
	d.mask = nil
}

// String returns a string representation of the layer.
func (d *Dense) String() string {
	return fmt.Sprintf("Dense(in_features=%d, out_features=%d, activation=%v, dropout=%v, optimizer=%v)",
		d.inFeatures, d.outFeatures, d.activation, d.dropout, d.optimizer)
}
