// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dataset loads labeled images into memory for training.
//
// Supported sources:
//   - MNIST IDX files, plain or gzipped
//   - image folders laid out as root/{train,test}/<class>/<file>
//   - CSV rows of "label,pixel,pixel,..."
//
// Example:
//
//	ds, err := dataset.LoadMNIST("data/mnist", 1)
//	...
//	err = n.Train(ds)
package dataset

import (
	"github.com/born-ml/convnet/internal/dataset"
	"github.com/born-ml/convnet/internal/tensor"
)

// Sample is one labeled image.
type Sample = dataset.Sample

// InMemory is a dataset held in memory. It implements network.Dataset.
type InMemory = dataset.InMemory

// ErrIndexOutOfRange is returned for a sample index outside the split.
var ErrIndexOutOfRange = dataset.ErrIndexOutOfRange

// New builds a dataset. A nil classes map assigns class indices to the
// sorted distinct labels.
func New(train, test []Sample, classes map[int]int) *InMemory {
	return dataset.New(train, test, classes)
}

// IdentityClasses maps every label onto itself.
func IdentityClasses(labels ...int) map[int]int { return dataset.IdentityClasses(labels...) }

// LoadMNIST reads the four MNIST files from dir. channels > 1 replicates
// the gray channel.
func LoadMNIST(dir string, channels int) (*InMemory, error) { return dataset.LoadMNIST(dir, channels) }

// LoadImageFolder reads root/train and root/test, one sub-directory per
// class. With lazy set, images are decoded when a sample is requested.
func LoadImageFolder(root string, width, height int, lazy bool) (*InMemory, error) {
	return dataset.LoadImageFolder(root, width, height, lazy)
}

// LoadImage decodes and resizes one image to (height, width, 3) in [0, 1].
func LoadImage(path string, width, height int) (*tensor.Tensor3, error) {
	return dataset.LoadImage(path, width, height)
}

// LoadCSV reads up to maxSamples rows of rows x cols x channels pixels.
func LoadCSV(filename string, rows, cols, channels, maxSamples int) ([]Sample, error) {
	return dataset.LoadCSV(filename, rows, cols, channels, maxSamples)
}
