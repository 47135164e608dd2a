// Copyright 2026 Pardo ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU backend for GPU-accelerated tensor
// operations.
//
// WebGPU is a cross-platform graphics and compute API. The backend runs
// element-wise kernels, matmul, transpose and scaling as WGSL compute
// shaders; reductions and data movement run host-side on readback data.
package webgpu

import (
	internalwebgpu "github.com/pardo-ml/pardo/internal/backend/webgpu"
	"github.com/pardo-ml/pardo/tensor"
)

// Backend represents the WebGPU backend implementation.
type Backend = internalwebgpu.Backend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new WebGPU backend.
//
// This function initializes the WebGPU device and returns a backend ready
// for tensor operations. Call Release() when done to free GPU resources.
//
// Returns an error if WebGPU initialization fails (e.g., no compatible GPU).
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable checks if WebGPU is available on the current system.
//
// Useful for graceful fallback to the CPU backend:
//
//	if webgpu.IsAvailable() {
//	    gpu, _ := webgpu.New()
//	    backend = autodiff.New(gpu)
//	} else {
//	    backend = autodiff.New(cpu.New())
//	}
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
