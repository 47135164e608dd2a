// Copyright 2026 Pardo ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides automatic differentiation capabilities.
//
// This package implements reverse-mode automatic differentiation
// (backpropagation) using a gradient tape. It wraps any backend to add
// autodiff capabilities.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//
//	x := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	y := tensor.New[float32](backend.Mul(x.Raw(), x.Raw()), backend)
//
//	grads := autodiff.Backward(y, backend)
package autodiff

import (
	"github.com/pardo-ml/pardo/internal/autodiff"
	"github.com/pardo-ml/pardo/internal/tensor"
)

// Backend is the autodiff-enabled backend.
type Backend[B tensor.Backend] = autodiff.AutodiffBackend[B]

// New creates a new autodiff backend wrapping the given backend.
func New[B tensor.Backend](backend B) *Backend[B] {
	return autodiff.New(backend)
}

// GradientTape records operations for automatic differentiation.
type GradientTape = autodiff.GradientTape

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}

// BackwardCapable is the interface for backends that support backpropagation.
type BackwardCapable = autodiff.BackwardCapable

// Backward computes gradients for a tensor, seeding the output gradient
// with ones. Returns a map from raw tensor to its gradient.
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	return autodiff.Backward(t, backend)
}

// BackwardScaled computes gradients for a tensor, seeding the output
// gradient with the given value instead of ones.
func BackwardScaled[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B, seed float64) map[*tensor.RawTensor]*tensor.RawTensor {
	return autodiff.BackwardScaled(t, backend, seed)
}
