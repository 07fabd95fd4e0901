// Package optim implements the per-parameter update rules used by layers.
//
// This package provides:
//   - Config: the optimizer descriptor carried by value into every layer
//   - Optimizer interface: the update rule bound to one parameter tensor
//   - SGD: plain gradient descent
//   - Adam: adaptive moment estimation with bias correction
//
// Every learnable tensor of every layer owns its own Optimizer. There is no
// optimizer state shared between tensors, layers or networks.
//
// Example usage:
//
//	cfg := optim.NewAdamConfig(0.001, 0.9, 0.999, 1e-8)
//	kernelOpt := cfg.New(len(kernels))
//
//	// after averaging the accumulated gradient over the mini-batch:
//	kernelOpt.Step(kernels, grads)
package optim

import (
	"errors"
	"fmt"
)

// Kind identifies an update rule.
type Kind string

// Supported update rules.
const (
	KindSGD  Kind = "sgd"
	KindAdam Kind = "adam"
)

// Default hyperparameters.
const (
	DefaultSGDLearningRate  = 0.01
	DefaultAdamLearningRate = 0.001
	DefaultBeta1            = 0.9
	DefaultBeta2            = 0.999
	DefaultEpsilon          = 1e-8
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid optimizer config")

// Optimizer is an update rule bound to one parameter tensor.
type Optimizer interface {
	// Step applies one update to params in place, given the (already averaged)
	// gradient. params and grads must have the same length.
	Step(params, grads []float32)

	// State returns a copy of the running state, for serialization.
	State() State

	// Config returns the descriptor this optimizer was built from.
	Config() Config
}

// Config is the optimizer descriptor. It is a plain value: copying it into a
// layer never shares running state.
type Config struct {
	Kind         Kind    `json:"kind"`              // Update rule
	LearningRate float32 `json:"learning_rate"`     // Step size
	Beta1        float32 `json:"beta1,omitempty"`   // Adam first moment decay
	Beta2        float32 `json:"beta2,omitempty"`   // Adam second moment decay
	Epsilon      float32 `json:"epsilon,omitempty"` // Adam numerical stability term
}

// State is the serializable running state of one Optimizer.
type State struct {
	Step int       `json:"step"`        // Number of updates applied (Adam bias correction)
	M    []float32 `json:"m,omitempty"` // First moment estimate
	V    []float32 `json:"v,omitempty"` // Second moment estimate
}

// NewSGDConfig returns a plain gradient descent descriptor.
func NewSGDConfig(lr float32) Config {
	return Config{Kind: KindSGD, LearningRate: lr}.withDefaults()
}

// NewAdamConfig returns an Adam descriptor.
//
// Zero values fall back to the defaults (lr=0.001, beta1=0.9, beta2=0.999,
// eps=1e-8).
func NewAdamConfig(lr, beta1, beta2, eps float32) Config {
	return Config{Kind: KindAdam, LearningRate: lr, Beta1: beta1, Beta2: beta2, Epsilon: eps}.withDefaults()
}

func (c Config) withDefaults() Config {
	switch c.Kind {
	case KindSGD:
		if c.LearningRate == 0 {
			c.LearningRate = DefaultSGDLearningRate
		}
	case KindAdam:
		if c.LearningRate == 0 {
			c.LearningRate = DefaultAdamLearningRate
		}
		if c.Beta1 == 0 {
			c.Beta1 = DefaultBeta1
		}
		if c.Beta2 == 0 {
			c.Beta2 = DefaultBeta2
		}
		if c.Epsilon == 0 {
			c.Epsilon = DefaultEpsilon
		}
	}
	return c
}

// Validate checks the descriptor.
func (c Config) Validate() error {
	if c.LearningRate <= 0 {
		return fmt.Errorf("%w: learning rate %g must be > 0", ErrInvalidConfig, c.LearningRate)
	}
	switch c.Kind {
	case KindSGD:
		return nil
	case KindAdam:
		if c.Beta1 < 0 || c.Beta1 >= 1 || c.Beta2 < 0 || c.Beta2 >= 1 {
			return fmt.Errorf("%w: betas (%g, %g) must be in [0, 1)", ErrInvalidConfig, c.Beta1, c.Beta2)
		}
		if c.Epsilon <= 0 {
			return fmt.Errorf("%w: epsilon %g must be > 0", ErrInvalidConfig, c.Epsilon)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidConfig, c.Kind)
	}
}

// New builds a fresh optimizer for a parameter tensor with size elements.
func (c Config) New(size int) Optimizer {
	c = c.withDefaults()
	switch c.Kind {
	case KindAdam:
		return newAdam(c, size)
	case KindSGD:
		return &SGD{cfg: c}
	default:
		panic(fmt.Sprintf("optim: unknown kind %q", c.Kind))
	}
}

// Restore rebuilds an optimizer for a tensor with size elements from a
// previously saved State.
func (c Config) Restore(size int, s State) (Optimizer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.Kind {
	case KindSGD:
		return &SGD{cfg: c}, nil
	case KindAdam:
		a := newAdam(c, size)
		if s.Step == 0 && s.M == nil && s.V == nil {
			return a, nil
		}
		if len(s.M) != size || len(s.V) != size {
			return nil, fmt.Errorf("%w: adam moments have %d/%d elements, expected %d",
				ErrInvalidConfig, len(s.M), len(s.V), size)
		}
		a.t = s.Step
		copy(a.m, s.M)
		copy(a.v, s.V)
		return a, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidConfig, c.Kind)
	}
}

// String returns a compact description, e.g. "Adam(lr=0.001, betas=(0.9, 0.999), eps=1e-08)".
func (c Config) String() string {
	switch c.Kind {
	case KindSGD:
		return fmt.Sprintf("SGD(lr=%g)", c.LearningRate)
	case KindAdam:
		return fmt.Sprintf("Adam(lr=%g, betas=(%g, %g), eps=%g)", c.LearningRate, c.Beta1, c.Beta2, c.Epsilon)
	default:
		return fmt.Sprintf("Optimizer(%q)", c.Kind)
	}
}

// Parse builds a Config from a kind name and a learning rate, using default
// values for everything else.
func Parse(kind string, lr float32) (Config, error) {
	var c Config
	switch Kind(kind) {
	case KindSGD:
		c = NewSGDConfig(lr)
	case KindAdam:
		c = NewAdamConfig(lr, 0, 0, 0)
	default:
		return Config{}, fmt.Errorf("%w: unknown kind %q (want %q or %q)", ErrInvalidConfig, kind, KindSGD, KindAdam)
	}
	return c, c.Validate()
}

func checkLengths(name string, params, grads []float32) {
	if len(params) != len(grads) {
		panic(fmt.Sprintf("%s.Step: %d parameters but %d gradients", name, len(params), len(grads)))
	}
}
