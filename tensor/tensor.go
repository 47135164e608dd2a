// Copyright 2026 Pardo ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for tensor operations.
//
// The package defines core interfaces and types for type-safe tensor
// operations:
//   - Tensor[T, B]: High-level generic tensor with type safety
//   - RawTensor: Low-level tensor representation
//   - Backend: Interface for device-specific compute implementations
//   - Shape, DataType, Device: Core type definitions
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
package tensor

import (
	"math/rand"

	"github.com/pardo-ml/pardo/internal/tensor"
)

// Type aliases for public API

// DType is a constraint for tensor data types.
// Supported types: float32, float64.
type DType = tensor.DType

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
)

// Device represents the device where tensor data resides.
type Device = tensor.Device

// Device constants.
const (
	CPU    Device = tensor.CPU
	WebGPU Device = tensor.WebGPU
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Tensor is a generic type-safe tensor.
//
// T is the data type (float32 or float64).
// B is the backend implementation (CPU, WebGPU, or a decorator).
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// RawTensor is the low-level tensor representation with reference-counted
// Copy-on-Write buffers. Most users should use Tensor[T, B] instead.
type RawTensor = tensor.RawTensor

// Creation functions

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Zeros[T, B](shape, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Ones[T, B](shape, b)
}

// Full creates a tensor filled with a specific value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	return tensor.Full[T, B](shape, value, b)
}

// RandFrom creates a tensor filled with uniform values in [0, 1) drawn
// from the given RNG. Seeded RNGs give reproducible tensors.
func RandFrom[T DType, B Backend](rng *rand.Rand, shape Shape, b B) *Tensor[T, B] {
	return tensor.RandFrom[T, B](rng, shape, b)
}

// RandnFrom creates a tensor filled with standard normal values drawn
// from the given RNG.
func RandnFrom[T DType, B Backend](rng *rand.Rand, shape Shape, b B) *Tensor[T, B] {
	return tensor.RandnFrom[T, B](rng, shape, b)
}

// FromSlice creates a tensor from a Go slice.
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	return tensor.FromSlice[T, B](data, shape, b)
}

// New creates a tensor from a raw tensor.
//
// This is a low-level function. Most users should use creation functions
// like Zeros, Ones, or FromSlice instead.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return tensor.New[T, B](raw, b)
}

// NewRaw creates a new raw tensor with the given shape, dtype, and device.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// BroadcastShapes computes the broadcast shape for two shapes following
// NumPy broadcasting rules. Returns the resulting shape and a flag
// indicating whether broadcasting is needed.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}
