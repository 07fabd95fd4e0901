package optim

// SGD implements plain gradient descent.
//
// Update rule:
//
//	param = param - lr * gradient
//
// SGD keeps no running state.
type SGD struct {
	cfg Config
}

// Step applies param -= lr * grad in place.
func (s *SGD) Step(params, grads []float32) {
	checkLengths("SGD", params, grads)
	lr := s.cfg.LearningRate
	for i, g := range grads {
		params[i] -= lr * g
	}
}

// State returns an empty state.
func (s *SGD) State() State { return State{} }

// Config returns the descriptor.
func (s *SGD) Config() Config { return s.cfg }
