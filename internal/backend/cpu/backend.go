// Package cpu implements the CPU backend with pure Go kernels.
package cpu

import (
	"fmt"

	"github.com/pardo-ml/pardo/internal/parallel"
	"github.com/pardo-ml/pardo/internal/tensor"
)

// CPUBackend implements tensor operations on CPU.
type CPUBackend struct {
	device tensor.Device
	par    parallel.Config
}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
		par:    parallel.DefaultConfig(),
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("add", a, b, addF32, addF64)
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("sub", a, b, subF32, subF64)
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("mul", a, b, mulF32, mulF64)
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("div", a, b, divF32, divF64)
}

// Reshape returns a tensor with the same data but a different shape.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if err := newShape.Validate(); err != nil {
		panic(fmt.Sprintf("reshape: invalid shape: %v", err))
	}

	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("reshape: incompatible shapes: %v -> %v (different number of elements)",
			t.Shape(), newShape))
	}

	result, err := tensor.NewRaw(newShape, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}

	copy(result.Data(), t.Data())
	return result
}

// Transpose transposes the tensor by permuting its dimensions.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	// Default: reverse all dimensions
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: axes length %d != ndim %d", len(axes), ndim))
	}

	seen := make([]bool, ndim)
	for _, ax := range axes {
		if ax < 0 || ax >= ndim {
			panic(fmt.Sprintf("transpose: invalid axis %d for %dD tensor", ax, ndim))
		}
		if seen[ax] {
			panic(fmt.Sprintf("transpose: duplicate axis %d", ax))
		}
		seen[ax] = true
	}

	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}

	result, err := tensor.NewRaw(newShape, t.DType(), t.Device())
	if err != nil {
		panic(fmt.Sprintf("transpose: %v", err))
	}

	transposeData(result, t, axes)

	return result
}

// transposeData copies elements into their permuted positions.
func transposeData(dst, src *tensor.RawTensor, axes []int) {
	srcShape := src.Shape()
	srcStrides := srcShape.ComputeStrides()
	dstStrides := dst.Shape().ComputeStrides()
	n := src.NumElements()

	switch src.DType() {
	case tensor.Float32:
		s := src.AsFloat32()
		d := dst.AsFloat32()
		for i := 0; i < n; i++ {
			dstIdx := 0
			temp := i
			for dim := 0; dim < len(srcShape); dim++ {
				coord := temp / srcStrides[dim]
				temp %= srcStrides[dim]
				// Position of source dim in the permuted output.
				for outDim, ax := range axes {
					if ax == dim {
						dstIdx += coord * dstStrides[outDim]
						break
					}
				}
			}
			d[dstIdx] = s[i]
		}
	case tensor.Float64:
		s := src.AsFloat64()
		d := dst.AsFloat64()
		for i := 0; i < n; i++ {
			dstIdx := 0
			temp := i
			for dim := 0; dim < len(srcShape); dim++ {
				coord := temp / srcStrides[dim]
				temp %= srcStrides[dim]
				for outDim, ax := range axes {
					if ax == dim {
						dstIdx += coord * dstStrides[outDim]
						break
					}
				}
			}
			d[dstIdx] = s[i]
		}
	default:
		panic(fmt.Sprintf("transpose: unsupported dtype %s", src.DType()))
	}
}
