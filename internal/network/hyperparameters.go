package network

import (
	"fmt"

	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/optim"
)

// Hyperparameters configures a Network.
//
// Example:
//
//	hp := network.DefaultHyperparameters()
//	hp.BatchSize = 10
//	hp.Optimizer = optim.NewSGDConfig(0.1)
//	n, err := network.New(hp)
type Hyperparameters struct {
	BatchSize int            `json:"batch_size"` // Samples per parameter update
	Epochs    int            `json:"epochs"`     // Passes performed by Train
	Optimizer optim.Config   `json:"optimizer"`  // Copied into every layer added afterwards
	Saving    SavingStrategy `json:"saving"`     // Checkpoint policy applied during Train
	Name      string         `json:"name"`       // Model name, used for checkpoint file names
	Verbose   bool           `json:"verbose"`    // Progress bar and per-epoch summaries
	Sampler   SamplerKind    `json:"sampler"`    // How Train draws samples
	Seed      uint64         `json:"seed"`       // Weight init, dropout and sampling; 0 picks a random seed
	Workers   int            `json:"workers"`    // Goroutines per conv layer; 0 or 1 runs sequentially, negative uses every CPU
}

// DefaultHyperparameters returns batch 32, 10 epochs, Adam(0.001, 0.9,
// 0.999, 1e-8), no checkpoints, name "model", verbose output and sampling
// with replacement.
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		BatchSize: 32,
		Epochs:    10,
		Optimizer: optim.NewAdamConfig(optim.DefaultAdamLearningRate, optim.DefaultBeta1, optim.DefaultBeta2, optim.DefaultEpsilon),
		Saving:    Never(),
		Name:      "model",
		Verbose:   true,
		Sampler:   RandomWithReplacement,
	}
}

// Validate checks the hyperparameters.
func (hp Hyperparameters) Validate() error {
	if hp.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size %d must be > 0", nn.ErrConfiguration, hp.BatchSize)
	}
	if hp.Epochs < 0 {
		return fmt.Errorf("%w: epochs %d must be >= 0", nn.ErrConfiguration, hp.Epochs)
	}
	if hp.Name == "" {
		return fmt.Errorf("%w: empty model name", nn.ErrConfiguration)
	}
	if err := hp.Optimizer.Validate(); err != nil {
		return fmt.Errorf("%w: %w", nn.ErrConfiguration, err)
	}
	if err := hp.Saving.Validate(); err != nil {
		return err
	}
	if _, err := ParseSamplerKind(string(hp.Sampler)); err != nil {
		return err
	}
	return nil
}
