// Copyright 2026 Pardo ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for tensor operations.
//
// The backend supports float32 and float64, NumPy-compatible broadcasting,
// and goroutine-parallel matrix multiplication.
package cpu

import (
	internalcpu "github.com/pardo-ml/pardo/internal/backend/cpu"
	"github.com/pardo-ml/pardo/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
func New() *Backend {
	return internalcpu.New()
}
