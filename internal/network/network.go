// Package network assembles layers into a feed-forward classifier and trains
// it with mini-batch gradient descent.
//
// A Network goes through three states:
//   - Empty: no input shape yet, layers cannot be added
//   - UnderConstruction: input shape set, layers are appended in order
//   - Trained: at least one epoch has run
//
// Construction is append-only. Once a Dense layer is added only Dense layers
// may follow, and training requires the last layer to be Dense.
//
// Example:
//
//	n, _ := network.New(network.DefaultHyperparameters())
//	_ = n.SetInputShape(28, 28, 1)
//	_ = n.Build("conv:8:3,pool:2,dense:128:relu:0.25,dense:10:softmax")
//	err := n.Train(ds)
package network

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/parallel"
	"github.com/born-ml/convnet/internal/tensor"
)

// State is the lifecycle stage of a Network.
type State int

// Network lifecycle stages.
const (
	Empty State = iota
	UnderConstruction
	Trained
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case UnderConstruction:
		return "under construction"
	case Trained:
		return "trained"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Dataset is the source of labeled samples used by Train and Test.
//
// Labels are the dataset's own identifiers; ClassIndex maps them onto the
// output position of the final Dense layer.
type Dataset interface {
	TrainSize() int
	TestSize() int
	TrainSample(i int) (*tensor.Tensor3, int, error)
	TestSample(i int) (*tensor.Tensor3, int, error)
	ClassIndex(label int) (int, bool)
}

// Checkpointer persists a network. A full save includes parameters; a
// metadata-only save (full == false) records configuration and histories.
type Checkpointer interface {
	Save(n *Network, full bool) error
}

// Network is an ordered stack of layers with its training configuration and
// history.
type Network struct {
	hp         Hyperparameters
	inputShape tensor.Shape3
	layers     []nn.Layer

	trainingHistory []float32 // mean training accuracy per epoch
	testingHistory  []float32 // mean testing accuracy per epoch
	timeHistory     []int     // whole seconds since creation, per epoch
	epochsTrained   int
	trainSize       int // sizes of the last dataset trained on
	testSize        int

	createdAt time.Time
	runID     uuid.UUID

	rng          *rand.Rand
	sampler      Sampler
	checkpointer Checkpointer
	progressOut  io.Writer
}

// New creates an empty network.
func New(hp Hyperparameters) (*Network, error) {
	if hp.Sampler == "" {
		hp.Sampler = RandomWithReplacement
	}
	if err := hp.Validate(); err != nil {
		return nil, err
	}
	rng := nn.NewRand(hp.Seed)
	return &Network{
		hp:          hp,
		createdAt:   time.Now(),
		runID:       uuid.New(),
		rng:         rng,
		sampler:     NewSampler(hp.Sampler, rng),
		progressOut: os.Stderr,
	}, nil
}

// SetCheckpointer sets where Train writes checkpoints.
func (n *Network) SetCheckpointer(c Checkpointer) { n.checkpointer = c }

// SetSampler replaces the sampler built from Hyperparameters.Sampler.
func (n *Network) SetSampler(s Sampler) { n.sampler = s }

// SetProgressOutput redirects the progress bar (stderr by default).
func (n *Network) SetProgressOutput(w io.Writer) { n.progressOut = w }

// Hyperparameters returns the configuration.
func (n *Network) Hyperparameters() Hyperparameters { return n.hp }

// Name returns the model name.
func (n *Network) Name() string { return n.hp.Name }

// InputShape returns the input shape, zero while Empty.
func (n *Network) InputShape() tensor.Shape3 { return n.inputShape }

// Layers returns the layers in forward order.
func (n *Network) Layers() []nn.Layer { return n.layers }

// TrainingHistory returns the mean training accuracy of every epoch.
func (n *Network) TrainingHistory() []float32 { return n.trainingHistory }

// TestingHistory returns the mean testing accuracy of every epoch.
func (n *Network) TestingHistory() []float32 { return n.testingHistory }

// TimeHistory returns, per epoch, the whole seconds elapsed since creation.
func (n *Network) TimeHistory() []int { return n.timeHistory }

// EpochsTrained returns the number of completed epochs.
func (n *Network) EpochsTrained() int { return n.epochsTrained }

// TrainSize returns the training set size of the last Train call.
func (n *Network) TrainSize() int { return n.trainSize }

// TestSize returns the testing set size of the last Train or Test call.
func (n *Network) TestSize() int { return n.testSize }

// CreatedAt returns the creation time.
func (n *Network) CreatedAt() time.Time { return n.createdAt }

// RunID identifies this network across checkpoints.
func (n *Network) RunID() uuid.UUID { return n.runID }

// State returns the lifecycle stage.
func (n *Network) State() State {
	switch {
	case n.epochsTrained > 0:
		return Trained
	case n.inputShape.IsZero():
		return Empty
	default:
		return UnderConstruction
	}
}

// NumParameters returns the number of learnable scalars over all layers.
func (n *Network) NumParameters() int {
	total := 0
	for _, l := range n.layers {
		total += l.NumParameters()
	}
	return total
}

// SetInputShape fixes the input shape. Missing trailing dimensions default
// to 1, so SetInputShape(784) means (784, 1, 1).
func (n *Network) SetInputShape(dims ...int) error {
	if len(n.layers) > 0 {
		return fmt.Errorf("%w: input shape cannot change once layers are added", nn.ErrConfiguration)
	}
	shape, err := tensor.ShapeOf(dims...)
	if err != nil {
		return fmt.Errorf("%w: input shape: %v", nn.ErrConfiguration, err)
	}
	n.inputShape = shape
	return nil
}

// AddConv appends a convolution with stride 1.
func (n *Network) AddConv(filters, kernelSize int) error {
	return n.AddConvStride(filters, kernelSize, 1)
}

// AddConvStride appends a convolution with the given stride.
func (n *Network) AddConvStride(filters, kernelSize, stride int) error {
	input, err := n.spatialInput("convolutional")
	if err != nil {
		return err
	}
	conv, err := nn.NewConv2D(input, kernelSize, stride, filters, n.hp.Optimizer, n.rng)
	if err != nil {
		return err
	}
	conv.SetParallel(parallel.Workers(n.hp.Workers))
	n.layers = append(n.layers, conv)
	return nil
}

// AddPool appends a max pooling layer with stride 2.
func (n *Network) AddPool(kernelSize int) error {
	return n.AddPoolStride(kernelSize, 2)
}

// AddPoolStride appends a max pooling layer with the given stride.
func (n *Network) AddPoolStride(kernelSize, stride int) error {
	input, err := n.spatialInput("max pooling")
	if err != nil {
		return err
	}
	pool, err := nn.NewMaxPool2D(input, kernelSize, stride)
	if err != nil {
		return err
	}
	n.layers = append(n.layers, pool)
	return nil
}

// AddDense appends a fully connected layer. dropout is the drop probability
// used while training, 0 to disable.
func (n *Network) AddDense(size int, act nn.Activation, dropout float32) error {
	if n.inputShape.IsZero() {
		return errInputShapeUnset
	}
	dense, err := nn.NewDense(n.outputShape(), size, act, dropout, n.hp.Optimizer, n.rng)
	if err != nil {
		return err
	}
	n.layers = append(n.layers, dense)
	return nil
}

var errInputShapeUnset = fmt.Errorf("%w: input shape not set, call SetInputShape first", nn.ErrConfiguration)

// spatialInput returns the input shape for a new Conv or Pool layer.
func (n *Network) spatialInput(kind string) (tensor.Shape3, error) {
	if n.inputShape.IsZero() {
		return tensor.Shape3{}, errInputShapeUnset
	}
	if len(n.layers) > 0 && n.layers[len(n.layers)-1].Kind() == nn.KindDense {
		return tensor.Shape3{}, fmt.Errorf("%w: %s layer cannot follow a dense layer", nn.ErrConfiguration, kind)
	}
	return n.outputShape(), nil
}

// outputShape returns the shape produced by the last layer, or the input
// shape when there are no layers.
func (n *Network) outputShape() tensor.Shape3 {
	if len(n.layers) == 0 {
		return n.inputShape
	}
	return n.layers[len(n.layers)-1].OutputShape()
}

// lastDense returns the final layer when it is Dense.
func (n *Network) lastDense() (*nn.Dense, error) {
	if len(n.layers) == 0 {
		return nil, fmt.Errorf("%w: network has no layers", nn.ErrConfiguration)
	}
	d, ok := n.layers[len(n.layers)-1].(*nn.Dense)
	if !ok {
		return nil, fmt.Errorf("%w: last layer is %s, not dense", nn.ErrConfiguration, n.layers[len(n.layers)-1].Kind())
	}
	return d, nil
}

func (n *Network) String() string {
	return fmt.Sprintf("Network(name=%q, input=%v, layers=%d, state=%v)", n.hp.Name, n.inputShape, len(n.layers), n.State())
}
