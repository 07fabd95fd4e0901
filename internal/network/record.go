package network

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/parallel"
	"github.com/born-ml/convnet/internal/tensor"
)

// Record is the complete, serializable state of a Network.
//
// Layers is empty in metadata-only records.
type Record struct {
	Hyperparameters Hyperparameters `json:"hyperparameters"`
	InputShape      tensor.Shape3   `json:"input_shape"`
	Layers          []nn.LayerState `json:"layers"`
	TrainingHistory []float32       `json:"training_history"`
	TestingHistory  []float32       `json:"testing_history"`
	TimeHistory     []int           `json:"time_history"`
	EpochsTrained   int             `json:"epochs_trained"`
	TrainSize       int             `json:"train_size"`
	TestSize        int             `json:"test_size"`
	CreatedAt       time.Time       `json:"created_at"`
	RunID           uuid.UUID       `json:"run_id"`
}

// Record snapshots the network. Parameters are deep copies.
func (n *Network) Record() Record {
	layers := make([]nn.LayerState, len(n.layers))
	for i, l := range n.layers {
		layers[i] = nn.StateOf(l)
	}
	return Record{
		Hyperparameters: n.hp,
		InputShape:      n.inputShape,
		Layers:          layers,
		TrainingHistory: slices.Clone(n.trainingHistory),
		TestingHistory:  slices.Clone(n.testingHistory),
		TimeHistory:     slices.Clone(n.timeHistory),
		EpochsTrained:   n.epochsTrained,
		TrainSize:       n.trainSize,
		TestSize:        n.testSize,
		CreatedAt:       n.createdAt,
		RunID:           n.runID,
	}
}

// FromRecord rebuilds a network, ready to keep training or to predict.
// Layer shapes are checked to chain from the input shape, and the
// construction rules of Add* apply.
func FromRecord(r Record) (*Network, error) {
	n, err := New(r.Hyperparameters)
	if err != nil {
		return nil, err
	}
	if !r.InputShape.IsZero() {
		if err := n.SetInputShape(r.InputShape.H, r.InputShape.W, r.InputShape.C); err != nil {
			return nil, err
		}
	}
	for i, s := range r.Layers {
		l, err := nn.FromState(s, n.rng)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		want := n.outputShape()
		if l.Kind() != nn.KindDense && len(n.layers) > 0 && n.layers[len(n.layers)-1].Kind() == nn.KindDense {
			return nil, fmt.Errorf("%w: layer %d: %s layer cannot follow a dense layer", nn.ErrConfiguration, i, l.Kind())
		}
		if l.Kind() == nn.KindDense {
			if want != l.InputShape() && want != l.InputShape().Flat() {
				return nil, fmt.Errorf("%w: layer %d expects input %v, previous layer produces %v",
					nn.ErrConfiguration, i, l.InputShape(), want)
			}
		} else if l.InputShape() != want {
			return nil, fmt.Errorf("%w: layer %d expects input %v, previous layer produces %v",
				nn.ErrConfiguration, i, l.InputShape(), want)
		}
		if c, ok := l.(*nn.Conv2D); ok {
			c.SetParallel(parallel.Workers(n.hp.Workers))
		}
		n.layers = append(n.layers, l)
	}
	n.trainingHistory = slices.Clone(r.TrainingHistory)
	n.testingHistory = slices.Clone(r.TestingHistory)
	n.timeHistory = slices.Clone(r.TimeHistory)
	n.epochsTrained = r.EpochsTrained
	n.trainSize, n.testSize = r.TrainSize, r.TestSize
	if !r.CreatedAt.IsZero() {
		n.createdAt = r.CreatedAt
	}
	if r.RunID != uuid.Nil {
		n.runID = r.RunID
	}
	return n, nil
}

// SetWorkers changes how many goroutines each conv layer may use.
func (n *Network) SetWorkers(workers int) {
	n.hp.Workers = workers
	for _, l := range n.layers {
		if c, ok := l.(*nn.Conv2D); ok {
			c.SetParallel(parallel.Workers(workers))
		}
	}
}

// SetEpochs changes the number of epochs the next Train runs.
func (n *Network) SetEpochs(epochs int) { n.hp.Epochs = epochs }

// SetVerbose toggles the progress bar.
func (n *Network) SetVerbose(verbose bool) { n.hp.Verbose = verbose }
