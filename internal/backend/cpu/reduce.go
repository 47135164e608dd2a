package cpu

import (
	"fmt"

	"github.com/pardo-ml/pardo/internal/tensor"
)

// Sum computes the total sum of all elements (scalar result, empty shape).
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result, err := tensor.NewRaw(tensor.Shape{}, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("sum: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		src := x.AsFloat32()
		var sum float32
		for _, v := range src {
			sum += v
		}
		result.AsFloat32()[0] = sum
	case tensor.Float64:
		src := x.AsFloat64()
		var sum float64
		for _, v := range src {
			sum += v
		}
		result.AsFloat64()[0] = sum
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}

	return result
}

// Mean computes the mean of all elements (scalar result, empty shape).
func (cpu *CPUBackend) Mean(x *tensor.RawTensor) *tensor.RawTensor {
	result := cpu.Sum(x)
	n := x.NumElements()

	switch result.DType() {
	case tensor.Float32:
		result.AsFloat32()[0] /= float32(n)
	case tensor.Float64:
		result.AsFloat64()[0] /= float64(n)
	}
	return result
}

// SumDim sums tensor elements along the specified dimension.
//
// dim supports negative indexing (-1 = last dim). If keepDim is true the
// reduced dimension is kept with size 1, otherwise it is removed.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("sumdim: dimension %d out of range for %dD tensor", dim, ndim))
	}

	var outShape tensor.Shape
	if keepDim {
		outShape = shape.Clone()
		outShape[dim] = 1
	} else {
		outShape = make(tensor.Shape, 0, ndim-1)
		for i := 0; i < ndim; i++ {
			if i != dim {
				outShape = append(outShape, shape[i])
			}
		}
	}

	result, err := tensor.NewRaw(outShape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("sumdim: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		sumDimFloat32(x.AsFloat32(), result.AsFloat32(), shape, dim)
	case tensor.Float64:
		sumDimFloat64(x.AsFloat64(), result.AsFloat64(), shape, dim)
	default:
		panic(fmt.Sprintf("sumdim: unsupported dtype %s", x.DType()))
	}

	return result
}

// MeanDim computes the mean of tensor elements along the specified dimension.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	sumResult := cpu.SumDim(x, dim, keepDim)

	shape := x.Shape()
	ndim := len(shape)
	if dim < 0 {
		dim = ndim + dim
	}

	divisor := float64(shape[dim])

	switch sumResult.DType() {
	case tensor.Float32:
		data := sumResult.AsFloat32()
		divisorF32 := float32(divisor)
		for i := range data {
			data[i] /= divisorF32
		}
	case tensor.Float64:
		data := sumResult.AsFloat64()
		for i := range data {
			data[i] /= divisor
		}
	}

	return sumResult
}

func sumDimFloat32(data, result []float32, shape tensor.Shape, dim int) {
	for i := range result {
		result[i] = 0
	}

	strides := shape.ComputeStrides()
	numElements := shape.NumElements()

	outShape := shape.Clone()
	outShape[dim] = 1
	outStrides := outShape.ComputeStrides()

	for i := 0; i < numElements; i++ {
		outIdx := 0
		temp := i
		for d := 0; d < len(shape); d++ {
			coord := temp / strides[d]
			temp %= strides[d]
			if d != dim {
				outIdx += coord * outStrides[d]
			}
		}
		result[outIdx] += data[i]
	}
}

func sumDimFloat64(data, result []float64, shape tensor.Shape, dim int) {
	for i := range result {
		result[i] = 0
	}

	strides := shape.ComputeStrides()
	numElements := shape.NumElements()

	outShape := shape.Clone()
	outShape[dim] = 1
	outStrides := outShape.ComputeStrides()

	for i := 0; i < numElements; i++ {
		outIdx := 0
		temp := i
		for d := 0; d < len(shape); d++ {
			coord := temp / strides[d]
			temp %= strides[d]
			if d != dim {
				outIdx += coord * outStrides[d]
			}
		}
		result[outIdx] += data[i]
	}
}
