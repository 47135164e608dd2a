package cpu

import (
	"fmt"

	"github.com/pardo-ml/pardo/internal/tensor"
)

// Cat concatenates tensors along the given dimension.
// All tensors must share dtype and all non-concat dimensions.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: no tensors to concatenate")
	}

	first := tensors[0]
	ndim := len(first.Shape())
	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("cat: dimension %d out of range for %dD tensor", dim, ndim))
	}

	outShape := first.Shape().Clone()
	for _, t := range tensors[1:] {
		s := t.Shape()
		if len(s) != ndim || t.DType() != first.DType() {
			panic(fmt.Sprintf("cat: incompatible tensor %v (%s) vs %v (%s)",
				s, t.DType(), first.Shape(), first.DType()))
		}
		for d := 0; d < ndim; d++ {
			if d != dim && s[d] != outShape[d] {
				panic(fmt.Sprintf("cat: dimension %d mismatch: %d vs %d", d, s[d], outShape[d]))
			}
		}
		outShape[dim] += s[dim]
	}

	result, err := tensor.NewRaw(outShape, first.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("cat: %v", err))
	}

	// Copy block-wise: each input contributes contiguous runs of
	// innerSize*shape[dim] elements every outer step.
	innerSize := 1
	for d := dim + 1; d < ndim; d++ {
		innerSize *= outShape[d]
	}
	outerSize := 1
	for d := 0; d < dim; d++ {
		outerSize *= outShape[d]
	}

	elemSize := first.DType().Size()
	outRun := outShape[dim] * innerSize * elemSize
	dst := result.Data()

	catOffset := 0
	for _, t := range tensors {
		run := t.Shape()[dim] * innerSize * elemSize
		src := t.Data()
		for outer := 0; outer < outerSize; outer++ {
			copy(dst[outer*outRun+catOffset:], src[outer*run:(outer+1)*run])
		}
		catOffset += run
	}

	return result
}

// Narrow returns a contiguous slice of length elements starting at start
// along the given dimension. The result is a copy, not a view.
func (cpu *CPUBackend) Narrow(x *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)
	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("narrow: dimension %d out of range for %dD tensor", dim, ndim))
	}
	if start < 0 || length <= 0 || start+length > shape[dim] {
		panic(fmt.Sprintf("narrow: range [%d, %d) out of bounds for dimension %d (size %d)",
			start, start+length, dim, shape[dim]))
	}

	outShape := shape.Clone()
	outShape[dim] = length

	result, err := tensor.NewRaw(outShape, x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("narrow: %v", err))
	}

	innerSize := 1
	for d := dim + 1; d < ndim; d++ {
		innerSize *= shape[d]
	}
	outerSize := 1
	for d := 0; d < dim; d++ {
		outerSize *= shape[d]
	}

	elemSize := x.DType().Size()
	srcRun := shape[dim] * innerSize * elemSize
	dstRun := length * innerSize * elemSize
	srcOffset := start * innerSize * elemSize

	src := x.Data()
	dst := result.Data()
	for outer := 0; outer < outerSize; outer++ {
		copy(dst[outer*dstRun:(outer+1)*dstRun], src[outer*srcRun+srcOffset:])
	}

	return result
}
