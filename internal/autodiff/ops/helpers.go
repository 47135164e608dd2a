package ops

import (
	"fmt"

	"github.com/pardo-ml/pardo/internal/tensor"
)

// reduceBroadcast reduces a gradient tensor to match the target shape.
// This is necessary when broadcasting was used in the forward pass.
//
// Example:
//
//	Forward: a[1,4] + b[3,4] -> c[3,4]  (a was broadcast along dim 0)
//	Backward: grad_c[3,4] -> grad_a[1,4] (sum along dim 0)
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()

	// If shapes already match, clone to avoid aliasing issues
	// (prevents inplace operations from modifying shared gradients).
	if gradShape.Equal(targetShape) {
		return grad.Clone()
	}

	// Scalar target: sum everything.
	if len(targetShape) == 0 {
		return backend.Sum(grad)
	}

	// NumPy broadcasting aligns shapes from the right; sum away extra
	// leading dimensions first.
	result := grad
	for len(result.Shape()) > len(targetShape) {
		result = backend.SumDim(result, 0, false)
	}

	// Then sum along dimensions where the target is 1.
	for i := 0; i < len(targetShape); i++ {
		if targetShape[i] == 1 && result.Shape()[i] > 1 {
			result = backend.SumDim(result, i, true)
		}
	}

	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}

	return result
}

// broadcastTo expands a gradient to the given shape by repeating values along
// broadcast dimensions. The gradient's shape must be broadcast-compatible.
func broadcastTo(grad *tensor.RawTensor, shape tensor.Shape, _ tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(shape) {
		return grad.Clone()
	}

	result, err := tensor.NewRaw(shape, grad.DType(), grad.Device())
	if err != nil {
		panic(fmt.Sprintf("broadcastTo: %v", err))
	}

	outStrides := shape.ComputeStrides()
	inShape := grad.Shape()
	inStrides := inShape.ComputeStrides()
	offset := len(shape) - len(inShape)

	switch grad.DType() {
	case tensor.Float32:
		src := grad.AsFloat32()
		dst := result.AsFloat32()
		for i := range dst {
			dst[i] = src[broadcastSourceIndex(i, shape, outStrides, inShape, inStrides, offset)]
		}
	case tensor.Float64:
		src := grad.AsFloat64()
		dst := result.AsFloat64()
		for i := range dst {
			dst[i] = src[broadcastSourceIndex(i, shape, outStrides, inShape, inStrides, offset)]
		}
	default:
		panic(fmt.Sprintf("broadcastTo: unsupported dtype %s", grad.DType()))
	}

	return result
}

func broadcastSourceIndex(flat int, outShape tensor.Shape, outStrides []int, inShape tensor.Shape, inStrides []int, offset int) int {
	idx := 0
	for d := 0; d < len(outShape); d++ {
		coord := flat / outStrides[d]
		flat %= outStrides[d]
		inDim := d - offset
		if inDim < 0 || inShape[inDim] == 1 {
			continue
		}
		idx += coord * inStrides[inDim]
	}
	return idx
}

// unsqueeze inserts a size-1 dimension at dim.
func unsqueeze(t *tensor.RawTensor, dim int, backend tensor.Backend) *tensor.RawTensor {
	shape := t.Shape()
	if dim < 0 {
		dim = len(shape) + 1 + dim
	}
	newShape := make(tensor.Shape, 0, len(shape)+1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, 1)
	newShape = append(newShape, shape[dim:]...)
	return backend.Reshape(t, newShape)
}

// scalarGradValue reads the single element of a scalar gradient.
func scalarGradValue(grad *tensor.RawTensor) float64 {
	switch grad.DType() {
	case tensor.Float32:
		return float64(grad.AsFloat32()[0])
	case tensor.Float64:
		return grad.AsFloat64()[0]
	default:
		panic(fmt.Sprintf("scalarGradValue: unsupported dtype %s", grad.DType()))
	}
}
