package network

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convnet/internal/dataset"
	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/optim"
	"github.com/born-ml/convnet/internal/tensor"
)

// recordingCheckpointer remembers the full flag of every save.
type recordingCheckpointer struct {
	saves  []bool
	epochs []int
	err    error
}

func (r *recordingCheckpointer) Save(n *Network, full bool) error {
	r.saves = append(r.saves, full)
	r.epochs = append(r.epochs, n.EpochsTrained())
	return r.err
}

func TestCheckpointPolicies(t *testing.T) {
	tests := []struct {
		name     string
		saving   SavingStrategy
		numSaves int
	}{
		{"never", Never(), 0},
		{"every epoch", EveryEpoch(true), 3},
		{"every half epoch", EveryNthEpoch(false, 0.5), 6},
		{"every quarter epoch", EveryNthEpoch(true, 0.25), 12},
		{"best training", BestTrainingAccuracy(true), 3},
		{"best testing", BestTestingAccuracy(true), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hp := testHyperparameters()
			hp.Epochs = 3
			hp.BatchSize = 4
			hp.Saving = tt.saving
			n := newTestNetwork(t, hp, "input:4:4:1,dense:2:softmax")
			ckpt := &recordingCheckpointer{}
			n.SetCheckpointer(ckpt)

			require.NoError(t, n.Train(stripes(8, 4)))
			assert.Len(t, ckpt.saves, tt.numSaves)
			if tt.saving.Policy == SaveEveryEpoch {
				assert.Equal(t, []bool{true, true, true}, ckpt.saves)
				assert.Equal(t, []int{1, 2, 3}, ckpt.epochs)
			}
			if tt.saving.Policy == SaveEveryNth {
				for _, full := range ckpt.saves {
					assert.Equal(t, tt.saving.Full, full)
				}
			}
		})
	}
}

func TestSaveIfBetter(t *testing.T) {
	hp := testHyperparameters()
	hp.Saving = BestTestingAccuracy(true)
	n, err := New(hp)
	require.NoError(t, err)
	ckpt := &recordingCheckpointer{}
	n.SetCheckpointer(ckpt)

	best := float32(0)
	for _, acc := range []float32{0.5, 0.4, 0.5, 0.6} {
		require.NoError(t, n.saveIfBetter(acc, &best))
	}
	// Not improving still writes the metadata.
	assert.Equal(t, []bool{true, false, false, true}, ckpt.saves)
	assert.Equal(t, float32(0.6), best)
}

func TestCheckpointErrors(t *testing.T) {
	hp := testHyperparameters()
	hp.Saving = EveryEpoch(true)
	n := newTestNetwork(t, hp, "input:4:4:1,dense:2:softmax")
	assert.ErrorIs(t, n.Train(stripes(4, 2)), nn.ErrConfiguration)

	boom := errors.New("disk full")
	n.SetCheckpointer(&recordingCheckpointer{err: boom})
	assert.ErrorIs(t, n.Train(stripes(4, 2)), boom)
}

// countingDataset records which training indices Train asks for.
type countingDataset struct {
	*dataset.InMemory
	visits map[int]int
}

func (c *countingDataset) TrainSample(i int) (*tensor.Tensor3, int, error) {
	c.visits[i]++
	return c.InMemory.TrainSample(i)
}

func TestTrainSamplesWithReplacementByDefault(t *testing.T) {
	hp := testHyperparameters()
	hp.Epochs = 1
	n := newTestNetwork(t, hp, "input:4:4:1,dense:2:softmax")
	ds := &countingDataset{InMemory: stripes(60, 0), visits: map[int]int{}}

	require.NoError(t, n.Train(ds))
	total, repeated := 0, false
	for _, v := range ds.visits {
		total += v
		repeated = repeated || v > 1
	}
	assert.Equal(t, 60, total, "one epoch draws TrainSize samples")
	assert.True(t, repeated, "some sample is drawn twice")
	assert.Less(t, len(ds.visits), 60, "some sample is never drawn")
}

func TestTrainShuffledVisitsEverySample(t *testing.T) {
	hp := testHyperparameters()
	hp.Epochs = 1
	hp.Sampler = Shuffled
	n := newTestNetwork(t, hp, "input:4:4:1,dense:2:softmax")
	ds := &countingDataset{InMemory: stripes(60, 0), visits: map[int]int{}}

	require.NoError(t, n.Train(ds))
	assert.Len(t, ds.visits, 60)
	for i, v := range ds.visits {
		assert.Equal(t, 1, v, "sample %d", i)
	}
}

func TestSamplers(t *testing.T) {
	replacement := NewSampler(RandomWithReplacement, nn.NewRand(5))
	draw := replacement.Draw(3, 300)
	assert.Len(t, draw, 300)
	for _, i := range draw {
		assert.True(t, i >= 0 && i < 3)
	}
	assert.Empty(t, replacement.Draw(0, 10))

	shuffled := NewSampler(Shuffled, nn.NewRand(5))
	perm := shuffled.Draw(5, 5)
	sorted := slices.Clone(perm)
	slices.Sort(sorted)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, sorted)

	counts := map[int]int{}
	for _, i := range shuffled.Draw(3, 7) {
		counts[i]++
	}
	assert.Equal(t, 7, counts[0]+counts[1]+counts[2])
	for i := 0; i < 3; i++ {
		assert.GreaterOrEqual(t, counts[i], 2)
	}

	kind, err := ParseSamplerKind("")
	require.NoError(t, err)
	assert.Equal(t, RandomWithReplacement, kind)
	kind, err = ParseSamplerKind("Shuffled")
	require.NoError(t, err)
	assert.Equal(t, Shuffled, kind)
}

func TestSeedMakesTrainingReproducible(t *testing.T) {
	run := func() []float32 {
		hp := testHyperparameters()
		hp.Epochs = 2
		hp.BatchSize = 3
		n := newTestNetwork(t, hp, "input:4:4:1,conv:2:2,dense:4:relu:0.5,dense:2:softmax")
		require.NoError(t, n.Train(stripes(12, 4)))
		out, err := n.Predict(tensor.Ones(tensor.S3(4, 4, 1)))
		require.NoError(t, err)
		return out
	}
	assert.Equal(t, run(), run())
}

func TestBuild(t *testing.T) {
	n := newTestNetwork(t, testHyperparameters(), "input:28:28:3, conv:8:3, pool:2, conv:4:3:2, mxpl:2:1, dense:32:relu:0.25, dense:10:softmax")
	kinds := make([]nn.Kind, 0)
	for _, l := range n.Layers() {
		kinds = append(kinds, l.Kind())
	}
	assert.Equal(t, []nn.Kind{nn.KindConv, nn.KindMxpl, nn.KindConv, nn.KindMxpl, nn.KindDense, nn.KindDense}, kinds)
	assert.Equal(t, 2, n.Layers()[2].(*nn.Conv2D).Stride())
	assert.Equal(t, 2, n.Layers()[1].(*nn.MaxPool2D).Stride())
	assert.Equal(t, float32(0.25), n.Layers()[4].(*nn.Dense).Dropout())

	arch := n.Architecture()
	assert.Equal(t, "input:28:28:3,conv:8:3:1,pool:2:2,conv:4:3:2,pool:2:1,dense:32:relu:0.25,dense:10:softmax", arch)

	rebuilt := newTestNetwork(t, testHyperparameters(), arch)
	assert.Equal(t, arch, rebuilt.Architecture())
}

func TestBuildErrors(t *testing.T) {
	tests := []string{
		"conv:8:3",                        // input shape unset
		"input:4:4:1,conv:8",              // missing kernel
		"input:4:4:1,conv:a:3",            // not a number
		"input:4:4:1,dense:2",             // missing activation
		"input:4:4:1,dense:2:tanh",        // unknown activation
		"input:4:4:1,dense:2:relu:x",      // bad dropout
		"input:4:4:1,dense:2:relu,pool:2", // pool after dense
		"input:4:4:1,lstm:3",              // unknown layer
		"dense:2:relu,input:4:4:1",        // input not first
	}
	for _, arch := range tests {
		t.Run(arch, func(t *testing.T) {
			n, err := New(testHyperparameters())
			require.NoError(t, err)
			assert.ErrorIs(t, n.Build(arch), nn.ErrConfiguration)
		})
	}
}

func TestParseSavingStrategy(t *testing.T) {
	tests := []struct {
		text string
		want SavingStrategy
	}{
		{"never", Never()},
		{"every_epoch", EveryEpoch(false)},
		{"every_epoch:full", EveryEpoch(true)},
		{"every_nth_epoch:0.5", EveryNthEpoch(false, 0.5)},
		{"every_nth_epoch:0.25:full", EveryNthEpoch(true, 0.25)},
		{"best_training_accuracy:full", BestTrainingAccuracy(true)},
		{"BEST_TESTING_ACCURACY", BestTestingAccuracy(false)},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseSavingStrategy(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := ParseSavingStrategy(got.String())
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}

	for _, bad := range []string{"sometimes", "every_nth_epoch", "every_nth_epoch:x", "every_nth_epoch:0", "never:full", "every_epoch:half"} {
		_, err := ParseSavingStrategy(bad)
		assert.ErrorIs(t, err, nn.ErrConfiguration, bad)
	}
}

func TestEveryN(t *testing.T) {
	assert.Equal(t, 30000, EveryNthEpoch(true, 0.5).everyN(60000))
	assert.Equal(t, 1, EveryNthEpoch(true, 0.01).everyN(10))
}

func TestRecordRoundTrip(t *testing.T) {
	hp := testHyperparameters()
	hp.Epochs = 2
	hp.BatchSize = 4
	hp.Optimizer = optim.NewAdamConfig(0.01, 0, 0, 0)
	n := newTestNetwork(t, hp, "input:4:4:1,conv:2:2,pool:2:1,dense:5:relu:0.2,dense:2:softmax")
	require.NoError(t, n.Train(stripes(12, 4)))

	data, err := json.Marshal(n.Record())
	require.NoError(t, err)
	var rec Record
	require.NoError(t, json.Unmarshal(data, &rec))

	restored, err := FromRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, rec, restored.Record())
	assert.Equal(t, n.RunID(), restored.RunID())
	assert.True(t, n.CreatedAt().Equal(restored.CreatedAt()))
	assert.Equal(t, Trained, restored.State())

	x := tensor.Ones(tensor.S3(4, 4, 1))
	want, err := n.Predict(x)
	require.NoError(t, err)
	got, err := restored.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFromRecordRejectsBrokenChain(t *testing.T) {
	n := newTestNetwork(t, testHyperparameters(), "input:6:6:1,conv:2:3,dense:2:softmax")
	rec := n.Record()
	rec.InputShape = tensor.S3(7, 7, 1)
	_, err := FromRecord(rec)
	assert.ErrorIs(t, err, nn.ErrConfiguration)

	rec = n.Record()
	rec.Layers = rec.Layers[1:]
	_, err = FromRecord(rec)
	assert.ErrorIs(t, err, nn.ErrConfiguration)
}

func TestFromRecordEnforcesLayerOrder(t *testing.T) {
	dense := newTestNetwork(t, testHyperparameters(), "input:4:1:1,dense:4:relu")
	conv := newTestNetwork(t, testHyperparameters(), "input:4:1:1,conv:2:1,dense:2:softmax")
	rec := dense.Record()
	rec.Layers = append(rec.Layers, conv.Record().Layers...)
	_, err := FromRecord(rec)
	require.ErrorIs(t, err, nn.ErrConfiguration)
	assert.ErrorContains(t, err, "cannot follow a dense layer")

	// Same element count, different spatial shape.
	n := newTestNetwork(t, testHyperparameters(), "input:6:6:1,conv:2:3,dense:2:softmax")
	rec = n.Record()
	rec.Layers[1].Dense.TransitionShape = tensor.S3(2, 4, 4)
	_, err = FromRecord(rec)
	assert.ErrorIs(t, err, nn.ErrConfiguration)

	rec.Layers[1].Dense.TransitionShape = tensor.S3(4, 4, 2)
	restored, err := FromRecord(rec)
	require.NoError(t, err)
	_, err = restored.Predict(tensor.Ones(tensor.S3(6, 6, 1)))
	assert.NoError(t, err)
}
