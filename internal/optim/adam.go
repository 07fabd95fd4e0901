package optim

import (
	"github.com/chewxy/math32"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer for one
// parameter tensor.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)   // Parameter update
//
// The step counter t is per tensor: a layer's kernels and biases each count
// their own updates.
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	cfg Config
	t   int       // Timestep for bias correction
	m   []float32 // First moment estimates
	v   []float32 // Second moment estimates
}

func newAdam(cfg Config, size int) *Adam {
	return &Adam{
		cfg: cfg,
		m:   make([]float32, size),
		v:   make([]float32, size),
	}
}

// Step performs a single Adam update in place.
func (a *Adam) Step(params, grads []float32) {
	checkLengths("Adam", params, grads)
	if len(a.m) != len(params) {
		panic("Adam.Step: optimizer was built for a tensor of a different size")
	}
	a.t++

	beta1, beta2 := a.cfg.Beta1, a.cfg.Beta2
	biasCorrection1 := 1 - math32.Pow(beta1, float32(a.t))
	biasCorrection2 := 1 - math32.Pow(beta2, float32(a.t))

	for i, g := range grads {
		a.m[i] = beta1*a.m[i] + (1-beta1)*g
		a.v[i] = beta2*a.v[i] + (1-beta2)*g*g

		mHat := a.m[i] / biasCorrection1
		vHat := a.v[i] / biasCorrection2

		params[i] -= a.cfg.LearningRate * mHat / (math32.Sqrt(vHat) + a.cfg.Epsilon)
	}
}

// State returns a copy of the moments and step counter.
func (a *Adam) State() State {
	m := make([]float32, len(a.m))
	v := make([]float32, len(a.v))
	copy(m, a.m)
	copy(v, a.v)
	return State{Step: a.t, M: m, V: v}
}

// Config returns the descriptor.
func (a *Adam) Config() Config { return a.cfg }

// Timestep returns the number of updates applied so far.
func (a *Adam) Timestep() int { return a.t }
