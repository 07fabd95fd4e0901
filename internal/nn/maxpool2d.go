package nn

import (
	"fmt"

	"github.com/born-ml/convnet/internal/tensor"
)

// MaxPool2D is a 2D max pooling layer.
//
// Max pooling reduces spatial dimensions by taking the maximum value
// in each window, channel by channel. Unlike Conv2D, MaxPool2D has no
// learnable parameters.
//
// Input shape:  (H, W, C)
// Output shape: ((H-K)/S+1, (W-K)/S+1, C)
//
// Forward records, for every output cell, the flat position kh*K+kw of the
// winning element inside its window. The first maximum wins on ties.
// Backward routes the output error to exactly those positions.
//
// Example:
//
//	pool, err := nn.NewMaxPool2D(tensor.S3(26, 26, 8), 2, 2)
//	out := pool.Forward(features, true) // (13, 13, 8)
type MaxPool2D struct {
	inputShape  tensor.Shape3
	outputShape tensor.Shape3
	kernelSize  int
	stride      int

	argmax []int // per output cell, index within its window
	output *tensor.Tensor3
}

// NewMaxPool2D creates a new 2D max pooling layer.
//
// Parameters:
//   - input: Input shape (H, W, C)
//   - kernelSize: Size of pooling window (square, <= H and <= W)
//   - stride: Stride for pooling (typically same as kernelSize for non-overlapping)
func NewMaxPool2D(input tensor.Shape3, kernelSize, stride int) (*MaxPool2D, error) {
	if err := input.Validate(); err != nil {
		return nil, configErrorf("maxpool2d: input shape: %v", err)
	}
	if kernelSize <= 0 || kernelSize > input.H || kernelSize > input.W {
		return nil, configErrorf("maxpool2d: kernel size %d invalid for input %v", kernelSize, input)
	}
	if stride <= 0 {
		return nil, configErrorf("maxpool2d: invalid stride %d", stride)
	}

	outputShape := tensor.S3(
		(input.H-kernelSize)/stride+1,
		(input.W-kernelSize)/stride+1,
		input.C,
	)
	return &MaxPool2D{
		inputShape:  input,
		outputShape: outputShape,
		kernelSize:  kernelSize,
		stride:      stride,
		argmax:      make([]int, outputShape.NumElements()),
		output:      tensor.Zeros(outputShape),
	}, nil
}

func (m *MaxPool2D) sealed() {}

// Kind returns KindMxpl.
func (m *MaxPool2D) Kind() Kind { return KindMxpl }

// InputShape returns (H, W, C).
func (m *MaxPool2D) InputShape() tensor.Shape3 { return m.inputShape }

// OutputShape returns ((H-K)/S+1, (W-K)/S+1, C).
func (m *MaxPool2D) OutputShape() tensor.Shape3 { return m.outputShape }

// KernelSize returns the pooling window size.
func (m *MaxPool2D) KernelSize() int { return m.kernelSize }

// Stride returns the pooling stride.
func (m *MaxPool2D) Stride() int { return m.stride }

// Argmax returns the winning window positions recorded by the last Forward,
// indexed like the output.
func (m *MaxPool2D) Argmax() []int { return m.argmax }

// Output returns the output cached by the last Forward.
func (m *MaxPool2D) Output() *tensor.Tensor3 { return m.output }

// NumParameters returns 0.
func (m *MaxPool2D) NumParameters() int { return 0 }

// Forward takes the maximum of each window and records its position.
func (m *MaxPool2D) Forward(input *tensor.Tensor3, _ bool) *tensor.Tensor3 {
	checkShape("MaxPool2D", "forward", m.inputShape, input.Shape())

	output := tensor.Zeros(m.outputShape)
	out := output.Data()
	k, s := m.kernelSize, m.stride

	for oh := 0; oh < m.outputShape.H; oh++ {
		for ow := 0; ow < m.outputShape.W; ow++ {
			for c := 0; c < m.outputShape.C; c++ {
				best := 0
				maxVal := input.At(oh*s, ow*s, c)
				for kh := 0; kh < k; kh++ {
					for kw := 0; kw < k; kw++ {
						v := input.At(oh*s+kh, ow*s+kw, c)
						if v > maxVal {
							maxVal = v
							best = kh*k + kw
						}
					}
				}
				idx := m.outputShape.Index(oh, ow, c)
				out[idx] = maxVal
				m.argmax[idx] = best
			}
		}
	}

	m.output = output
	return output
}

// Backward returns an input-shaped tensor that is zero everywhere except at
// the recorded maxima, which receive the output error.
func (m *MaxPool2D) Backward(errOut *tensor.Tensor3, _ bool) *tensor.Tensor3 {
	checkShape("MaxPool2D", "backward", m.outputShape, errOut.Shape())

	e := errOut.Data()
	inputErr := tensor.Zeros(m.inputShape)
	dx := inputErr.Data()
	k, s := m.kernelSize, m.stride

	for oh := 0; oh < m.outputShape.H; oh++ {
		for ow := 0; ow < m.outputShape.W; ow++ {
			for c := 0; c < m.outputShape.C; c++ {
				idx := m.outputShape.Index(oh, ow, c)
				pos := m.argmax[idx]
				kh, kw := pos/k, pos%k
				// Overlapping windows may share a winner.
				dx[m.inputShape.Index(oh*s+kh, ow*s+kw, c)] += e[idx]
			}
		}
	}
	return inputErr
}

// Update is a no-op: pooling has nothing to learn.
func (m *MaxPool2D) Update(batchSize int) {
	checkBatchSize("MaxPool2D", batchSize)
}

// Zero clears the cached output and the argmax record.
func (m *MaxPool2D) Zero() {
	m.output = tensor.Zeros(m.outputShape)
	m.argmax = make([]int, len(m.argmax))
}

// String returns a string representation of the layer.
func (m *MaxPool2D) String() string {
	return fmt.Sprintf("MaxPool2D(input=%v, kernel_size=%d, stride=%d, output=%v)",
		m.inputShape, m.kernelSize, m.stride, m.outputShape)
}
