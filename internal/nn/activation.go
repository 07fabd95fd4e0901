package nn

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"

	"github.com/born-ml/convnet/internal/tensor"
)

// Activation selects the element-wise (or, for Softmax, vector-wise)
// non-linearity of a Dense layer.
type Activation int

// Supported activations.
const (
	// ReLU applies f(x) = max(0, x).
	ReLU Activation = iota

	// Sigmoid applies σ(x) = 1 / (1 + exp(-x)).
	Sigmoid

	// Softmax applies exp(x_i) / Σ exp(x_j).
	//
	// Its backward pass is the all-ones vector. That is only correct because
	// the network computes the output error as predicted - one_hot(label), the
	// combined softmax + cross-entropy gradient. Softmax must never be paired
	// with any other loss.
	Softmax
)

var activationNames = map[Activation]string{
	ReLU:    "relu",
	Sigmoid: "sigmoid",
	Softmax: "softmax",
}

// String returns the lower-case name ("relu", "sigmoid", "softmax").
func (a Activation) String() string {
	if name, ok := activationNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Activation(%d)", int(a))
}

// ParseActivation parses a case-insensitive activation name.
func ParseActivation(name string) (Activation, error) {
	for a, n := range activationNames {
		if strings.EqualFold(n, name) {
			return a, nil
		}
	}
	return 0, configErrorf("unknown activation %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (a Activation) MarshalText() ([]byte, error) {
	name, ok := activationNames[a]
	if !ok {
		return nil, fmt.Errorf("unknown activation %d", int(a))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Activation) UnmarshalText(text []byte) error {
	parsed, err := ParseActivation(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Forward applies the activation to v and returns a new vector.
func Forward(v []float32, a Activation) []float32 {
	out := make([]float32, len(v))
	switch a {
	case ReLU:
		for i, x := range v {
			out[i] = math32.Max(0, x)
		}
	case Sigmoid:
		for i, x := range v {
			out[i] = 1 / (1 + math32.Exp(-x))
		}
	case Softmax:
		softmax(out, v)
	default:
		panic(fmt.Sprintf("activation: unknown kind %d", int(a)))
	}
	return out
}

// Backward returns the derivative of the activation evaluated on the
// activated values v (the output of Forward).
//
//   - ReLU: 1 where v > 0, else 0
//   - Sigmoid: v * (1 - v)
//   - Softmax: all ones (see Softmax)
func Backward(v []float32, a Activation) []float32 {
	out := make([]float32, len(v))
	switch a {
	case ReLU:
		for i, x := range v {
			if x > 0 {
				out[i] = 1
			}
		}
	case Sigmoid:
		for i, y := range v {
			out[i] = y * (1 - y)
		}
	case Softmax:
		for i := range out {
			out[i] = 1
		}
	default:
		panic(fmt.Sprintf("activation: unknown kind %d", int(a)))
	}
	return out
}

// softmax writes the max-shifted softmax of v into out.
func softmax(out, v []float32) {
	if len(v) == 0 {
		return
	}
	maxVal := v[0]
	for _, x := range v[1:] {
		maxVal = math32.Max(maxVal, x)
	}
	for i, x := range v {
		out[i] = math32.Exp(x - maxVal)
	}
	sum := tensor.Sum(out)
	for i := range out {
		out[i] /= sum
	}
}
