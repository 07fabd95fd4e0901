package network

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convnet/internal/dataset"
	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/optim"
	"github.com/born-ml/convnet/internal/tensor"
)

func testHyperparameters() Hyperparameters {
	hp := DefaultHyperparameters()
	hp.Seed = 1234
	hp.Verbose = false
	hp.Optimizer = optim.NewSGDConfig(0.1)
	return hp
}

func newTestNetwork(t *testing.T, hp Hyperparameters, arch string) *Network {
	t.Helper()
	n, err := New(hp)
	require.NoError(t, err)
	n.SetProgressOutput(io.Discard)
	require.NoError(t, n.Build(arch))
	return n
}

// stripes builds a two-class 4x4 dataset: class 0 lights the left half,
// class 1 the right half, with a per-sample brightness.
func stripes(trainSize, testSize int) *dataset.InMemory {
	build := func(count int) []dataset.Sample {
		samples := make([]dataset.Sample, count)
		for i := range samples {
			label := i % 2
			x := tensor.Zeros(tensor.S3(4, 4, 1))
			level := 0.5 + float32(i%5)/10
			for h := 0; h < 4; h++ {
				for w := 0; w < 2; w++ {
					x.Set(h, w+2*label, 0, level)
				}
			}
			samples[i] = dataset.Sample{Tensor: x, Label: label}
		}
		return samples
	}
	return dataset.New(build(trainSize), build(testSize), dataset.IdentityClasses(0, 1))
}

func TestStateTransitions(t *testing.T) {
	n, err := New(testHyperparameters())
	require.NoError(t, err)
	assert.Equal(t, Empty, n.State())

	require.NoError(t, n.SetInputShape(4, 4, 1))
	assert.Equal(t, UnderConstruction, n.State())
	require.NoError(t, n.AddDense(2, nn.Softmax, 0))
	assert.Equal(t, UnderConstruction, n.State())

	n.SetEpochs(1)
	require.NoError(t, n.Train(stripes(8, 2)))
	assert.Equal(t, Trained, n.State())
	assert.Equal(t, 1, n.EpochsTrained())
	assert.Equal(t, "trained", n.State().String())
}

func TestSetInputShape(t *testing.T) {
	n, err := New(testHyperparameters())
	require.NoError(t, err)

	require.NoError(t, n.SetInputShape(784))
	assert.Equal(t, tensor.S3(784, 1, 1), n.InputShape())
	require.NoError(t, n.SetInputShape(28, 28))
	assert.Equal(t, tensor.S3(28, 28, 1), n.InputShape())

	assert.ErrorIs(t, n.SetInputShape(), nn.ErrConfiguration)
	assert.ErrorIs(t, n.SetInputShape(0, 3), nn.ErrConfiguration)
	assert.ErrorIs(t, n.SetInputShape(1, 2, 3, 4), nn.ErrConfiguration)

	require.NoError(t, n.AddPool(2))
	assert.ErrorIs(t, n.SetInputShape(10, 10, 1), nn.ErrConfiguration)
}

func TestAddLayerErrors(t *testing.T) {
	n, err := New(testHyperparameters())
	require.NoError(t, err)

	assert.ErrorIs(t, n.AddConv(8, 3), nn.ErrConfiguration)
	assert.ErrorIs(t, n.AddPool(2), nn.ErrConfiguration)
	assert.ErrorIs(t, n.AddDense(10, nn.Softmax, 0), nn.ErrConfiguration)
	assert.Empty(t, n.Layers())

	require.NoError(t, n.SetInputShape(8, 8, 1))
	assert.ErrorIs(t, n.AddConv(2, 9), nn.ErrConfiguration)
	require.NoError(t, n.AddDense(10, nn.ReLU, 0))
	assert.ErrorIs(t, n.AddConv(8, 3), nn.ErrConfiguration)
	assert.ErrorIs(t, n.AddPool(2), nn.ErrConfiguration)
	require.NoError(t, n.AddDense(10, nn.Softmax, 0))
	assert.Len(t, n.Layers(), 2)
}

func TestLayerShapesChain(t *testing.T) {
	n := newTestNetwork(t, testHyperparameters(), "input:28:28:3,conv:8:3,pool:2,dense:128:relu:0.25,dense:10:softmax")
	layers := n.Layers()
	require.Len(t, layers, 4)
	assert.Equal(t, tensor.S3(26, 26, 8), layers[0].OutputShape())
	assert.Equal(t, tensor.S3(13, 13, 8), layers[1].OutputShape())
	assert.Equal(t, tensor.S3(13, 13, 8), layers[2].InputShape())
	assert.Equal(t, 13*13*8, layers[2].(*nn.Dense).InFeatures())
	assert.Equal(t, tensor.S3(128, 1, 1), layers[3].InputShape())
	assert.Equal(t, 3*3*3*8+8+13*13*8*128+128+128*10+10, n.NumParameters())
}

func TestEndToEndForward(t *testing.T) {
	n := newTestNetwork(t, testHyperparameters(),
		"input:28:28:3,conv:8:3,pool:2,dense:128:relu:0.25,dense:64:relu:0.25,dense:10:softmax")

	for _, training := range []bool{false, true} {
		out := n.ForwardPropagate(tensor.Ones(tensor.S3(28, 28, 3)), training)
		assert.Len(t, out, 10)
		assert.InDelta(t, 1, tensor.Sum(out), 1e-5)
		assert.Equal(t, out, n.Output())
	}
}

func TestPredict(t *testing.T) {
	n := newTestNetwork(t, testHyperparameters(), "input:6:6:1,conv:2:3,dense:3:softmax")

	out, err := n.Predict(tensor.Ones(tensor.S3(6, 6, 1)))
	require.NoError(t, err)
	assert.InDelta(t, 1, tensor.Sum(out), 1e-5)
	again, err := n.Predict(tensor.Ones(tensor.S3(6, 6, 1)))
	require.NoError(t, err)
	assert.Equal(t, out, again, "inference is deterministic")

	class, err := n.Classify(tensor.Ones(tensor.S3(6, 6, 1)))
	require.NoError(t, err)
	assert.Equal(t, tensor.ArgMax(out), class)

	_, err = n.Predict(tensor.Ones(tensor.S3(6, 6, 2)))
	assert.ErrorIs(t, err, nn.ErrShapeMismatch)
	var mismatch *nn.ShapeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, tensor.S3(6, 6, 1), mismatch.Want)
}

func TestLastLayerError(t *testing.T) {
	n := newTestNetwork(t, testHyperparameters(), "input:4:4:1,dense:3:softmax")
	out := n.ForwardPropagate(tensor.Ones(tensor.S3(4, 4, 1)), false)

	grad, err := n.LastLayerError(1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{out[0], out[1] - 1, out[2]}, grad, 1e-7)

	_, err = n.LastLayerError(3)
	assert.ErrorIs(t, err, nn.ErrConfiguration)

	conv := newTestNetwork(t, testHyperparameters(), "input:4:4:1,conv:2:3")
	conv.ForwardPropagate(tensor.Ones(tensor.S3(4, 4, 1)), false)
	_, err = conv.LastLayerError(0)
	assert.ErrorIs(t, err, nn.ErrConfiguration)
	assert.ErrorIs(t, conv.BackPropagate(0, true), nn.ErrConfiguration)
	assert.Nil(t, conv.Output())
	assert.ErrorIs(t, conv.Train(stripes(4, 0)), nn.ErrConfiguration)
}

func TestBackPropagateUpdateZero(t *testing.T) {
	n := newTestNetwork(t, testHyperparameters(), "input:5:5:1,conv:2:3,pool:2:1,dense:4:sigmoid,dense:2:softmax")
	x := tensor.Zeros(tensor.S3(5, 5, 1))
	for i := range x.Data() {
		x.Data()[i] = float32(i) / 25
	}
	conv := n.Layers()[0].(*nn.Conv2D)
	before := append([]float32(nil), conv.Kernels()...)

	n.ForwardPropagate(x, true)
	require.NoError(t, n.BackPropagate(0, true))
	assert.NotEqual(t, make([]float32, len(conv.KernelGrads())), conv.KernelGrads())

	n.Update(1)
	assert.NotEqual(t, before, conv.Kernels())
	assert.Equal(t, make([]float32, len(conv.KernelGrads())), conv.KernelGrads())

	n.ForwardPropagate(x, true)
	require.NoError(t, n.BackPropagate(1, true))
	kernels := append([]float32(nil), conv.Kernels()...)
	n.Zero()
	assert.Equal(t, kernels, conv.Kernels())
	assert.Equal(t, make([]float32, len(conv.KernelGrads())), conv.KernelGrads())
	assert.Equal(t, []float32{0, 0}, n.Output())
}

func TestAccuracy(t *testing.T) {
	n := newTestNetwork(t, testHyperparameters(), "input:4:4:1,dense:3:softmax")
	out := n.ForwardPropagate(tensor.Ones(tensor.S3(4, 4, 1)), false)
	best := tensor.ArgMax(out)
	assert.Equal(t, float32(1), n.Accuracy(best))
	assert.Equal(t, float32(0), n.Accuracy((best+1)%3))
}

func TestTrainLearnsSeparableData(t *testing.T) {
	hp := testHyperparameters()
	hp.BatchSize = 4
	hp.Epochs = 15
	hp.Optimizer = optim.NewSGDConfig(0.5)
	n := newTestNetwork(t, hp, "input:4:4:1,dense:2:softmax")

	require.NoError(t, n.Train(stripes(40, 10)))
	assert.Len(t, n.TrainingHistory(), 15)
	assert.Len(t, n.TestingHistory(), 15)
	assert.Len(t, n.TimeHistory(), 15)
	assert.Equal(t, 40, n.TrainSize())
	assert.GreaterOrEqual(t, n.TestingHistory()[14], float32(0.9))

	acc, err := n.Test(stripes(0, 20))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, acc, float32(0.9))
}

func TestTrainConvolutionalWithAdam(t *testing.T) {
	hp := testHyperparameters()
	hp.BatchSize = 5
	hp.Epochs = 3
	hp.Workers = 2
	hp.Verbose = true
	hp.Optimizer = optim.NewAdamConfig(0.01, 0, 0, 0)
	n := newTestNetwork(t, hp, "input:4:4:1,conv:3:2,pool:2:1,dense:8:sigmoid:0.1,dense:2:softmax")

	require.NoError(t, n.Train(stripes(20, 6)))
	assert.Equal(t, 3, n.EpochsTrained())
	for _, acc := range n.TrainingHistory() {
		assert.GreaterOrEqual(t, acc, float32(0))
		assert.LessOrEqual(t, acc, float32(1))
	}

	// Training resumes where it stopped.
	n.SetEpochs(2)
	require.NoError(t, n.Train(stripes(20, 6)))
	assert.Equal(t, 5, n.EpochsTrained())
	assert.Len(t, n.TrainingHistory(), 5)
}

func TestTrainRejectsUnknownLabel(t *testing.T) {
	n := newTestNetwork(t, testHyperparameters(), "input:4:4:1,dense:2:softmax")
	ds := stripes(4, 0)
	ds.Classes = map[int]int{}
	assert.ErrorIs(t, n.Train(ds), nn.ErrConfiguration)
	assert.ErrorIs(t, n.Train(stripes(0, 4)), nn.ErrConfiguration)
}

func TestTrainShapeMismatchIsAnError(t *testing.T) {
	n := newTestNetwork(t, testHyperparameters(), "input:5:5:1,dense:2:softmax")
	assert.ErrorIs(t, n.Train(stripes(4, 0)), nn.ErrShapeMismatch)
}

func TestHyperparametersValidate(t *testing.T) {
	assert.NoError(t, DefaultHyperparameters().Validate())

	tests := []struct {
		name   string
		modify func(*Hyperparameters)
	}{
		{"zero batch", func(hp *Hyperparameters) { hp.BatchSize = 0 }},
		{"negative epochs", func(hp *Hyperparameters) { hp.Epochs = -1 }},
		{"empty name", func(hp *Hyperparameters) { hp.Name = "" }},
		{"bad optimizer", func(hp *Hyperparameters) { hp.Optimizer = optim.Config{Kind: "rmsprop", LearningRate: 1} }},
		{"bad saving", func(hp *Hyperparameters) { hp.Saving = EveryNthEpoch(true, 0) }},
		{"bad sampler", func(hp *Hyperparameters) { hp.Sampler = "stratified" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hp := DefaultHyperparameters()
			tt.modify(&hp)
			assert.ErrorIs(t, hp.Validate(), nn.ErrConfiguration)
			_, err := New(hp)
			assert.Error(t, err)
		})
	}
}

func TestDefaultHyperparameters(t *testing.T) {
	hp := DefaultHyperparameters()
	assert.Equal(t, 32, hp.BatchSize)
	assert.Equal(t, 10, hp.Epochs)
	assert.Equal(t, optim.KindAdam, hp.Optimizer.Kind)
	assert.Equal(t, float32(0.9), hp.Optimizer.Beta1)
	assert.Equal(t, float32(0.999), hp.Optimizer.Beta2)
	assert.Equal(t, float32(1e-8), hp.Optimizer.Epsilon)
	assert.Equal(t, SaveNever, hp.Saving.Policy)
	assert.Equal(t, "model", hp.Name)
	assert.True(t, hp.Verbose)
	assert.Equal(t, RandomWithReplacement, hp.Sampler)
}

func TestZeroKeepsCachedInputsOfNextLayer(t *testing.T) {
	n := newTestNetwork(t, testHyperparameters(), "input:6:6:1,conv:2:3,pool:2:1,conv:2:2,dense:2:softmax")
	sample := tensor.Ones(tensor.S3(6, 6, 1))
	n.ForwardPropagate(sample, true)
	n.Zero()
	require.NoError(t, n.BackPropagate(0, true))

	nonZero := func(v []float32) int {
		count := 0
		for _, x := range v {
			if x != 0 {
				count++
			}
		}
		return count
	}
	layers := n.Layers()
	assert.Positive(t, nonZero(layers[2].(*nn.Conv2D).KernelGrads()), "conv fed by pool")
	assert.Positive(t, nonZero(layers[3].(*nn.Dense).WeightGrads()), "dense fed by conv")
}
