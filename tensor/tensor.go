// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the 3D tensors the network operates on.
//
// A Tensor3 is a dense float32 array of shape (H, W, C) stored row-major:
// the element at (h, w, c) lives at index (h*W+w)*C+c. Dense layers see the
// same data as a flat vector of H*W*C values.
//
// Example:
//
//	x := tensor.Zeros(tensor.S3(28, 28, 1))
//	x.Set(0, 0, 0, 1)
//	fmt.Println(x.Shape().NumElements()) // 784
package tensor

import (
	"github.com/born-ml/convnet/internal/tensor"
)

// Shape3 is the (H, W, C) shape of a Tensor3.
type Shape3 = tensor.Shape3

// Tensor3 is a dense float32 tensor of rank 3.
type Tensor3 = tensor.Tensor3

// S3 returns the shape (h, w, c).
func S3(h, w, c int) Shape3 { return tensor.S3(h, w, c) }

// ShapeOf builds a shape from one to three dimensions. Missing trailing
// dimensions are 1.
func ShapeOf(dims ...int) (Shape3, error) { return tensor.ShapeOf(dims...) }

// Zeros returns a zero-filled tensor. It panics when shape has a
// non-positive dimension.
func Zeros(shape Shape3) *Tensor3 { return tensor.Zeros(shape) }

// Ones returns a tensor filled with 1.
func Ones(shape Shape3) *Tensor3 { return tensor.Ones(shape) }

// Full returns a tensor filled with value.
func Full(shape Shape3, value float32) *Tensor3 { return tensor.Full(shape, value) }

// FromSlice wraps data, which must hold exactly shape.NumElements() values.
func FromSlice(data []float32, shape Shape3) (*Tensor3, error) { return tensor.FromSlice(data, shape) }

// FromVector wraps v as a (len(v), 1, 1) tensor.
func FromVector(v []float32) *Tensor3 { return tensor.FromVector(v) }

// ArgMax returns the index of the first maximum of v, -1 when v is empty.
func ArgMax(v []float32) int { return tensor.ArgMax(v) }
