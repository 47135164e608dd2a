package webgpu

import (
	"github.com/pardo-ml/pardo/internal/tensor"
)

// Add performs element-wise addition on GPU.
// Broadcast inputs are expanded host-side before dispatch.
func (b *Backend) Add(a, other *tensor.RawTensor) *tensor.RawTensor {
	a, other = b.alignShapes(a, other)
	result, err := b.runBinaryOp(a, other, "add", addShader)
	if err != nil {
		panic("webgpu: Add: " + err.Error())
	}
	return result
}

// Sub performs element-wise subtraction on GPU.
func (b *Backend) Sub(a, other *tensor.RawTensor) *tensor.RawTensor {
	a, other = b.alignShapes(a, other)
	result, err := b.runBinaryOp(a, other, "sub", subShader)
	if err != nil {
		panic("webgpu: Sub: " + err.Error())
	}
	return result
}

// Mul performs element-wise multiplication on GPU.
func (b *Backend) Mul(a, other *tensor.RawTensor) *tensor.RawTensor {
	a, other = b.alignShapes(a, other)
	result, err := b.runBinaryOp(a, other, "mul", mulShader)
	if err != nil {
		panic("webgpu: Mul: " + err.Error())
	}
	return result
}

// Div performs element-wise division on GPU.
func (b *Backend) Div(a, other *tensor.RawTensor) *tensor.RawTensor {
	a, other = b.alignShapes(a, other)
	result, err := b.runBinaryOp(a, other, "div", divShader)
	if err != nil {
		panic("webgpu: Div: " + err.Error())
	}
	return result
}

// MatMul performs matrix multiplication on GPU.
func (b *Backend) MatMul(a, other *tensor.RawTensor) *tensor.RawTensor {
	result, err := b.runMatMul(a, other)
	if err != nil {
		panic("webgpu: MatMul: " + err.Error())
	}
	return result
}

// MulScalar multiplies every element by a constant on GPU.
func (b *Backend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	result, err := b.runScale(x, float32(scalarToFloat64(scalar)))
	if err != nil {
		panic("webgpu: MulScalar: " + err.Error())
	}
	return result
}

// Reshape returns a tensor with new shape.
// This is a metadata operation; the data is copied as-is.
func (b *Backend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if err := newShape.Validate(); err != nil {
		panic("webgpu: reshape: invalid shape: " + err.Error())
	}

	if t.NumElements() != newShape.NumElements() {
		panic("webgpu: reshape: incompatible number of elements")
	}

	result, err := tensor.NewRaw(newShape, t.DType(), tensor.WebGPU)
	if err != nil {
		panic("webgpu: reshape: " + err.Error())
	}

	copy(result.Data(), t.Data())
	return result
}

// Transpose transposes the tensor by permuting its dimensions.
// 2D matrix transpose runs on GPU; identity permutations are a copy.
func (b *Backend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	ndim := len(t.Shape())
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic("webgpu: transpose: axes length mismatch")
	}

	identity := true
	for i, axis := range axes {
		if axis != i {
			identity = false
			break
		}
	}
	if identity {
		result, err := tensor.NewRaw(t.Shape(), t.DType(), tensor.WebGPU)
		if err != nil {
			panic("webgpu: transpose: " + err.Error())
		}
		copy(result.Data(), t.Data())
		return result
	}

	if ndim == 2 && axes[0] == 1 && axes[1] == 0 {
		result, err := b.runTranspose(t)
		if err != nil {
			panic("webgpu: Transpose: " + err.Error())
		}
		return result
	}

	panic("webgpu: multi-dimensional transpose not implemented - only 2D is supported")
}

func scalarToFloat64(scalar any) float64 {
	switch v := scalar.(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		panic("webgpu: MulScalar: unsupported scalar type")
	}
}
