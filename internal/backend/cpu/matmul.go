package cpu

import (
	"fmt"

	"github.com/pardo-ml/pardo/internal/parallel"
	"github.com/pardo-ml/pardo/internal/tensor"
)

// MatMul performs matrix multiplication.
// For 2D tensors: (M, K) @ (K, N) -> (M, N).
// Output rows are computed in parallel across worker goroutines.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]

	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, kAlt, n))
	}

	result, err := tensor.NewRaw(tensor.Shape{m, n}, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("matmul: failed to create result tensor: %v", err))
	}

	switch a.DType() {
	case tensor.Float32:
		matmulFloat32(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n, cpu.par)
	case tensor.Float64:
		matmulFloat64(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), m, k, n, cpu.par)
	default:
		panic(fmt.Sprintf("matmul: unsupported dtype %s", a.DType()))
	}

	return result
}

// matmulFloat32 computes C[i,j] = sum_k A[i,k] * B[k,j], one output row per
// work item.
func matmulFloat32(c, a, b []float32, m, k, n int, par parallel.Config) {
	// Per-row work is large enough that a single row is worth a work item.
	par.MinChunkSize = 1
	parallel.For(m, func(i int) {
		row := c[i*n : (i+1)*n]
		for j := range row {
			row[j] = 0
		}
		for kIdx := 0; kIdx < k; kIdx++ {
			av := a[i*k+kIdx]
			if av == 0 {
				continue
			}
			bRow := b[kIdx*n : (kIdx+1)*n]
			for j, bv := range bRow {
				row[j] += av * bv
			}
		}
	}, par)
}

func matmulFloat64(c, a, b []float64, m, k, n int, par parallel.Config) {
	par.MinChunkSize = 1
	parallel.For(m, func(i int) {
		row := c[i*n : (i+1)*n]
		for j := range row {
			row[j] = 0
		}
		for kIdx := 0; kIdx < k; kIdx++ {
			av := a[i*k+kIdx]
			if av == 0 {
				continue
			}
			bRow := b[kIdx*n : (kIdx+1)*n]
			for j, bv := range bRow {
				row[j] += av * bv
			}
		}
	}, par)
}
