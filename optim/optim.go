// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the optimizers that apply layer gradients.
//
// A Config describes an optimizer. Every layer builds one Optimizer per
// parameter tensor from it, so Adam moments are tracked per tensor.
//
// Example:
//
//	hp := network.DefaultHyperparameters()
//	hp.Optimizer = optim.NewSGDConfig(0.1)
package optim

import (
	"github.com/born-ml/convnet/internal/optim"
)

// Optimizer updates one parameter tensor in place from its gradient.
type Optimizer = optim.Optimizer

// Config describes an optimizer.
type Config = optim.Config

// State is the serializable state of an Optimizer.
type State = optim.State

// Kind names an optimizer.
type Kind = optim.Kind

// Optimizer kinds.
const (
	KindSGD  = optim.KindSGD
	KindAdam = optim.KindAdam
)

// Default values.
const (
	DefaultSGDLearningRate  = optim.DefaultSGDLearningRate
	DefaultAdamLearningRate = optim.DefaultAdamLearningRate
	DefaultBeta1            = optim.DefaultBeta1
	DefaultBeta2            = optim.DefaultBeta2
	DefaultEpsilon          = optim.DefaultEpsilon
)

// ErrInvalidConfig is wrapped by Config validation errors.
var ErrInvalidConfig = optim.ErrInvalidConfig

// NewSGDConfig returns plain gradient descent with learning rate lr.
func NewSGDConfig(lr float32) Config { return optim.NewSGDConfig(lr) }

// NewAdamConfig returns Adam. Zero values pick the defaults.
func NewAdamConfig(lr, beta1, beta2, eps float32) Config {
	return optim.NewAdamConfig(lr, beta1, beta2, eps)
}

// Parse builds a Config from "sgd" or "adam" and a learning rate.
func Parse(kind string, lr float32) (Config, error) { return optim.Parse(kind, lr) }
