// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package network builds, trains, saves and loads convolutional classifiers.
//
// Example:
//
//	hp := network.DefaultHyperparameters()
//	hp.Saving = network.EveryEpoch(true)
//	n, err := network.New(hp)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = n.Build("input:28:28:1,conv:8:3,pool:2,dense:128:relu:0.25,dense:10:softmax")
//	n.SetCheckpointer(&network.Store{Dir: "models"})
//	err = n.Train(ds)
//
//	restored, err := network.Load("models/model.cnvn")
package network

import (
	"github.com/born-ml/convnet/internal/network"
	"github.com/born-ml/convnet/internal/serialization"
)

// Network is a feed-forward stack of layers with its training state.
type Network = network.Network

// Hyperparameters configures a Network.
type Hyperparameters = network.Hyperparameters

// State is the lifecycle stage of a Network.
type State = network.State

// Lifecycle stages.
const (
	Empty             = network.Empty
	UnderConstruction = network.UnderConstruction
	Trained           = network.Trained
)

// Dataset is the source of labeled samples used by Train and Test.
type Dataset = network.Dataset

// Checkpointer persists a network during training.
type Checkpointer = network.Checkpointer

// Record is the complete serializable state of a Network.
type Record = network.Record

// SavingStrategy selects when Train writes checkpoints.
type SavingStrategy = network.SavingStrategy

// Sampler decides which samples a pass visits.
type Sampler = network.Sampler

// SamplerKind names a Sampler.
type SamplerKind = network.SamplerKind

// Sampling policies.
const (
	RandomWithReplacement = network.RandomWithReplacement
	Shuffled              = network.Shuffled
)

// Store writes checkpoints to a directory.
type Store = serialization.Store

// Snapshot is the persisted form of a network.
type Snapshot = serialization.Snapshot

// New creates an empty network.
func New(hp Hyperparameters) (*Network, error) { return network.New(hp) }

// DefaultHyperparameters returns the default configuration.
func DefaultHyperparameters() Hyperparameters { return network.DefaultHyperparameters() }

// FromRecord rebuilds a network from its record.
func FromRecord(r Record) (*Network, error) { return network.FromRecord(r) }

// Never disables checkpoints.
func Never() SavingStrategy { return network.Never() }

// EveryEpoch saves after every epoch.
func EveryEpoch(full bool) SavingStrategy { return network.EveryEpoch(full) }

// EveryNthEpoch saves every int(TrainSize*fraction) training iterations.
func EveryNthEpoch(full bool, fraction float32) SavingStrategy {
	return network.EveryNthEpoch(full, fraction)
}

// BestTrainingAccuracy saves when the training accuracy improves.
func BestTrainingAccuracy(full bool) SavingStrategy { return network.BestTrainingAccuracy(full) }

// BestTestingAccuracy saves when the testing accuracy improves.
func BestTestingAccuracy(full bool) SavingStrategy { return network.BestTestingAccuracy(full) }

// ParseSavingStrategy parses the flag form, e.g. "every_nth_epoch:0.5:full".
func ParseSavingStrategy(text string) (SavingStrategy, error) {
	return network.ParseSavingStrategy(text)
}

// ParseSamplerKind parses "random" or "shuffled".
func ParseSamplerKind(name string) (SamplerKind, error) { return network.ParseSamplerKind(name) }

// Load reads a .cnvn or JSON snapshot and rebuilds the network.
func Load(path string) (*Network, error) { return serialization.Load(path) }

// Save writes n to path, as JSON when path ends in ".json" and .cnvn
// otherwise.
func Save(path string, n *Network) error {
	return serialization.WriteFile(path, serialization.NewSnapshot(n))
}
