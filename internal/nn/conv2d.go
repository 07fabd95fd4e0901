package nn

import (
	"fmt"
	"math/rand/v2"

	"github.com/born-ml/convnet/internal/optim"
	"github.com/born-ml/convnet/internal/parallel"
	"github.com/born-ml/convnet/internal/tensor"
)

// Conv2D is a 2D convolutional layer with "valid" boundaries.
//
// Performs cross-correlation (no kernel flip) of F filters over the input:
//
//	output[oh, ow, f] = bias[f] + Σ input[oh*S+kh, ow*S+kw, ci] * kernel[kh, kw, ci, f]
//
// Input shape:  (H, W, C_in)
// Kernel shape: (K, K, C_in, F)
// Output shape: ((H-K)/S+1, (W-K)/S+1, F)
//
// A stride that does not divide H-K (or W-K) leaves the remaining border
// unvisited, as valid convolution does.
//
// Example:
//
//	conv, err := nn.NewConv2D(tensor.S3(28, 28, 1), 3, 1, 8, optim.NewSGDConfig(0.1), rng)
//	out := conv.Forward(image, true) // (26, 26, 8)
type Conv2D struct {
	inputShape  tensor.Shape3
	outputShape tensor.Shape3
	kernelSize  int
	stride      int
	filters     int

	kernels []float32 // (K, K, C_in, F), row-major
	biases  []float32 // (F)

	kernelGrads []float32 // accumulated, same layout as kernels
	biasGrads   []float32

	input  *tensor.Tensor3 // cached for Backward
	output *tensor.Tensor3

	optimizer optim.Config
	kernelOpt optim.Optimizer
	biasOpt   optim.Optimizer

	par parallel.Config
}

// NewConv2D creates a convolutional layer with Xavier-initialized kernels and
// zero biases.
//
// Parameters:
//   - input: Input shape (H, W, C_in)
//   - kernelSize: Square kernel side K (K <= H and K <= W)
//   - stride: Stride S (> 0)
//   - filters: Number of filters F (> 0)
//   - opt: Optimizer descriptor, copied into the layer
//   - rng: Source for weight initialization
func NewConv2D(input tensor.Shape3, kernelSize, stride, filters int, opt optim.Config, rng *rand.Rand) (*Conv2D, error) {
	outputShape, err := convOutputShape(input, kernelSize, stride, filters)
	if err != nil {
		return nil, err
	}
	if err := opt.Validate(); err != nil {
		return nil, configErrorf("conv2d: %v", err)
	}

	n := kernelSize * kernelSize * input.C * filters
	// fan_in = C_in * K * K, fan_out = F * K * K
	fanIn := input.C * kernelSize * kernelSize
	fanOut := filters * kernelSize * kernelSize

	c := &Conv2D{
		inputShape:  input,
		outputShape: outputShape,
		kernelSize:  kernelSize,
		stride:      stride,
		filters:     filters,
		kernels:     Xavier(rng, fanIn, fanOut, n),
		biases:      make([]float32, filters),
		kernelGrads: make([]float32, n),
		biasGrads:   make([]float32, filters),
		output:      tensor.Zeros(outputShape),
		optimizer:   opt,
		kernelOpt:   opt.New(n),
		biasOpt:     opt.New(filters),
	}
	return c, nil
}

func convOutputShape(input tensor.Shape3, kernelSize, stride, filters int) (tensor.Shape3, error) {
	if err := input.Validate(); err != nil {
		return tensor.Shape3{}, configErrorf("conv2d: input shape: %v", err)
	}
	if kernelSize <= 0 || kernelSize > input.H || kernelSize > input.W {
		return tensor.Shape3{}, configErrorf("conv2d: kernel size %d invalid for input %v", kernelSize, input)
	}
	if stride <= 0 {
		return tensor.Shape3{}, configErrorf("conv2d: invalid stride %d", stride)
	}
	if filters <= 0 {
		return tensor.Shape3{}, configErrorf("conv2d: invalid filter count %d", filters)
	}
	return tensor.S3(
		(input.H-kernelSize)/stride+1,
		(input.W-kernelSize)/stride+1,
		filters,
	), nil
}

func (c *Conv2D) sealed() {}

// Kind returns KindConv.
func (c *Conv2D) Kind() Kind { return KindConv }

// InputShape returns (H, W, C_in).
func (c *Conv2D) InputShape() tensor.Shape3 { return c.inputShape }

// OutputShape returns ((H-K)/S+1, (W-K)/S+1, F).
func (c *Conv2D) OutputShape() tensor.Shape3 { return c.outputShape }

// KernelSize returns K.
func (c *Conv2D) KernelSize() int { return c.kernelSize }

// Stride returns S.
func (c *Conv2D) Stride() int { return c.stride }

// Filters returns F.
func (c *Conv2D) Filters() int { return c.filters }

// Kernels returns the live kernel weights, laid out (K, K, C_in, F).
func (c *Conv2D) Kernels() []float32 { return c.kernels }

// Biases returns the live per-filter biases.
func (c *Conv2D) Biases() []float32 { return c.biases }

// KernelGrads returns the kernel gradient accumulator.
func (c *Conv2D) KernelGrads() []float32 { return c.kernelGrads }

// BiasGrads returns the bias gradient accumulator.
func (c *Conv2D) BiasGrads() []float32 { return c.biasGrads }

// Output returns the output cached by the last Forward.
func (c *Conv2D) Output() *tensor.Tensor3 { return c.output }

// SetParallel lets Forward and Backward fan out over filters and channels.
func (c *Conv2D) SetParallel(cfg parallel.Config) { c.par = cfg }

// NumParameters returns K*K*C_in*F + F.
func (c *Conv2D) NumParameters() int { return len(c.kernels) + len(c.biases) }

// kernelIndex returns the flat offset of kernel[kh, kw, ci, f].
func (c *Conv2D) kernelIndex(kh, kw, ci, f int) int {
	return ((kh*c.kernelSize+kw)*c.inputShape.C+ci)*c.filters + f
}

// Forward performs the valid cross-correlation and caches the input.
func (c *Conv2D) Forward(input *tensor.Tensor3, _ bool) *tensor.Tensor3 {
	checkShape("Conv2D", "forward", c.inputShape, input.Shape())

	in := input.Data()
	output := tensor.Zeros(c.outputShape)
	out := output.Data()

	hOut, wOut := c.outputShape.H, c.outputShape.W
	cIn, k, s := c.inputShape.C, c.kernelSize, c.stride

	// Each filter writes its own output channel.
	parallel.For(c.filters, func(f int) {
		for oh := 0; oh < hOut; oh++ {
			for ow := 0; ow < wOut; ow++ {
				sum := c.biases[f]
				for kh := 0; kh < k; kh++ {
					for kw := 0; kw < k; kw++ {
						base := c.inputShape.Index(oh*s+kh, ow*s+kw, 0)
						for ci := 0; ci < cIn; ci++ {
							sum += in[base+ci] * c.kernels[c.kernelIndex(kh, kw, ci, f)]
						}
					}
				}
				out[c.outputShape.Index(oh, ow, f)] = sum
			}
		}
	}, c.par)

	c.input = input
	c.output = output
	return output
}

// Backward accumulates the kernel and bias gradients (when training) and
// returns the error on the input, shaped exactly like the configured input.
//
// Kernel gradient: the cached input cross-correlated with the output error.
// Input error: the kernels applied transposed, summed over all filters and
// routed back through the stride.
func (c *Conv2D) Backward(errOut *tensor.Tensor3, training bool) *tensor.Tensor3 {
	checkShape("Conv2D", "backward", c.outputShape, errOut.Shape())
	if c.input == nil {
		panic("Conv2D.Backward: called before Forward")
	}

	in := c.input.Data()
	e := errOut.Data()
	hOut, wOut := c.outputShape.H, c.outputShape.W
	cIn, k, s := c.inputShape.C, c.kernelSize, c.stride

	if training {
		// Each filter owns its slice of the kernel gradient and its bias.
		parallel.For(c.filters, func(f int) {
			for oh := 0; oh < hOut; oh++ {
				for ow := 0; ow < wOut; ow++ {
					g := e[c.outputShape.Index(oh, ow, f)]
					if g == 0 {
						continue
					}
					c.biasGrads[f] += g
					for kh := 0; kh < k; kh++ {
						for kw := 0; kw < k; kw++ {
							base := c.inputShape.Index(oh*s+kh, ow*s+kw, 0)
							for ci := 0; ci < cIn; ci++ {
								c.kernelGrads[c.kernelIndex(kh, kw, ci, f)] += in[base+ci] * g
							}
						}
					}
				}
			}
		}, c.par)
	}

	inputErr := tensor.Zeros(c.inputShape)
	dx := inputErr.Data()

	// Each input channel owns its slice of the input error.
	parallel.For(cIn, func(ci int) {
		for oh := 0; oh < hOut; oh++ {
			for ow := 0; ow < wOut; ow++ {
				outBase := c.outputShape.Index(oh, ow, 0)
				for kh := 0; kh < k; kh++ {
					for kw := 0; kw < k; kw++ {
						kBase := c.kernelIndex(kh, kw, ci, 0)
						var sum float32
						for f := 0; f < c.filters; f++ {
							sum += c.kernels[kBase+f] * e[outBase+f]
						}
						dx[c.inputShape.Index(oh*s+kh, ow*s+kw, ci)] += sum
					}
				}
			}
		}
	}, c.par)

	return inputErr
}

// Update averages the accumulated gradients over batchSize samples, applies
// the optimizer and clears the accumulators.
func (c *Conv2D) Update(batchSize int) {
	checkBatchSize("Conv2D", batchSize)
	scale := 1 / float32(batchSize)
	for i := range c.kernelGrads {
		c.kernelGrads[i] *= scale
	}
	for i := range c.biasGrads {
		c.biasGrads[i] *= scale
	}
	c.kernelOpt.Step(c.kernels, c.kernelGrads)
	c.biasOpt.Step(c.biases, c.biasGrads)
	tensor.Clear(c.kernelGrads)
	tensor.Clear(c.biasGrads)
}

// Zero clears the gradient accumulators and the cached output.
func (c *Conv2D) Zero() {
	tensor.Clear(c.kernelGrads)
	tensor.Clear(c.biasGrads)
	c.output = tensor.Zeros(c.outputShape)
}

// String returns a string representation of the layer.
func (c *Conv2D) String() string {
	return fmt.Sprintf("Conv2D(input=%v, filters=%d, kernel_size=%d, stride=%d, output=%v, optimizer=%v)",
		c.inputShape, c.filters, c.kernelSize, c.stride, c.outputShape, c.optimizer)
}
