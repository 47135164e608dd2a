// Copyright 2026 Pardo ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/pardo-ml/pardo/internal/tensor"

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// Implementations:
//   - backend/cpu: Pure Go kernels with goroutine-parallel matmul
//   - backend/webgpu: Cross-platform GPU compute via WebGPU
//
// Decorator backends for additional functionality:
//   - autodiff: Automatic differentiation (wraps any backend)
type Backend = tensor.Backend
