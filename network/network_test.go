// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package network_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/convnet/dataset"
	"github.com/born-ml/convnet/network"
	"github.com/born-ml/convnet/optim"
	"github.com/born-ml/convnet/tensor"
)

func TestTrainSaveLoad(t *testing.T) {
	samples := make([]dataset.Sample, 20)
	for i := range samples {
		x := tensor.Zeros(tensor.S3(3, 3, 1))
		x.Set(i%3, i%3, 0, 1)
		samples[i] = dataset.Sample{Tensor: x, Label: 10 + i%2}
	}
	ds := dataset.New(samples, samples[:6], nil)

	hp := network.DefaultHyperparameters()
	hp.Seed = 11
	hp.Epochs = 2
	hp.BatchSize = 5
	hp.Verbose = false
	hp.Optimizer = optim.NewSGDConfig(0.1)
	n, err := network.New(hp)
	require.NoError(t, err)
	require.NoError(t, n.Build("input:3:3:1,dense:4:sigmoid,dense:2:softmax"))
	require.NoError(t, n.Train(ds))
	assert.Equal(t, network.Trained, n.State())

	x := tensor.Ones(tensor.S3(3, 3, 1))
	want, err := n.Predict(x)
	require.NoError(t, err)

	for _, name := range []string{"model.cnvn", "model.json"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, network.Save(path, n))
		restored, err := network.Load(path)
		require.NoError(t, err)
		got, err := restored.Predict(x)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}
