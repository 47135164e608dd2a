package webgpu

import (
	"fmt"

	"github.com/pardo-ml/pardo/internal/tensor"
)

// Reductions and data-movement operations run host-side on the tensor data.
// WebGPU tensors keep a CPU-visible copy after every dispatch, so these
// operations read that copy directly instead of paying another round trip
// for kernels that are memory-bound anyway.

// alignShapes expands broadcast inputs host-side so binary kernels can
// assume equal shapes.
func (b *Backend) alignShapes(a, other *tensor.RawTensor) (*tensor.RawTensor, *tensor.RawTensor) {
	if a.Shape().Equal(other.Shape()) {
		return a, other
	}

	outShape, _, err := tensor.BroadcastShapes(a.Shape(), other.Shape())
	if err != nil {
		panic("webgpu: " + err.Error())
	}

	if !a.Shape().Equal(outShape) {
		a = expandHost(a, outShape)
	}
	if !other.Shape().Equal(outShape) {
		other = expandHost(other, outShape)
	}
	return a, other
}

// expandHost materializes a broadcast view of t with the given shape.
func expandHost(t *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	if t.DType() != tensor.Float32 {
		panic(fmt.Sprintf("webgpu: only float32 is supported, got %s", t.DType()))
	}

	result, err := tensor.NewRaw(shape, t.DType(), tensor.WebGPU)
	if err != nil {
		panic("webgpu: expand: " + err.Error())
	}

	outStrides := shape.ComputeStrides()
	inShape := t.Shape()
	inStrides := inShape.ComputeStrides()
	offset := len(shape) - len(inShape)

	src := t.AsFloat32()
	dst := result.AsFloat32()
	for i := range dst {
		flat := i
		idx := 0
		for d := 0; d < len(shape); d++ {
			coord := flat / outStrides[d]
			flat %= outStrides[d]
			inDim := d - offset
			if inDim < 0 || inShape[inDim] == 1 {
				continue
			}
			idx += coord * inStrides[inDim]
		}
		dst[i] = src[idx]
	}

	return result
}

// Sum reduces the tensor to its scalar total.
func (b *Backend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("webgpu: only float32 is supported, got %s", x.DType()))
	}

	result, err := tensor.NewRaw(tensor.Shape{}, x.DType(), tensor.WebGPU)
	if err != nil {
		panic("webgpu: sum: " + err.Error())
	}

	var total float32
	for _, v := range x.AsFloat32() {
		total += v
	}
	result.AsFloat32()[0] = total
	return result
}

// Mean reduces the tensor to its scalar mean.
func (b *Backend) Mean(x *tensor.RawTensor) *tensor.RawTensor {
	n := x.NumElements()
	if n == 0 {
		panic("webgpu: mean: empty tensor")
	}
	result := b.Sum(x)
	result.AsFloat32()[0] /= float32(n)
	return result
}

// SumDim sums along one dimension.
func (b *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("webgpu: only float32 is supported, got %s", x.DType()))
	}

	shape := x.Shape()
	ndim := len(shape)
	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("webgpu: sumdim: dimension %d out of range for %dD tensor", dim, ndim))
	}

	outShape := make(tensor.Shape, 0, ndim)
	for d := 0; d < ndim; d++ {
		if d == dim {
			if keepDim {
				outShape = append(outShape, 1)
			}
			continue
		}
		outShape = append(outShape, shape[d])
	}

	result, err := tensor.NewRaw(outShape, x.DType(), tensor.WebGPU)
	if err != nil {
		panic("webgpu: sumdim: " + err.Error())
	}

	innerSize := 1
	for d := dim + 1; d < ndim; d++ {
		innerSize *= shape[d]
	}
	outerSize := 1
	for d := 0; d < dim; d++ {
		outerSize *= shape[d]
	}

	src := x.AsFloat32()
	dst := result.AsFloat32()
	for outer := 0; outer < outerSize; outer++ {
		for k := 0; k < shape[dim]; k++ {
			base := (outer*shape[dim] + k) * innerSize
			out := outer * innerSize
			for inner := 0; inner < innerSize; inner++ {
				dst[out+inner] += src[base+inner]
			}
		}
	}

	return result
}

// MeanDim averages along one dimension.
func (b *Backend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim = len(shape) + dim
	}
	result := b.SumDim(x, dim, keepDim)

	n := float32(shape[dim])
	data := result.AsFloat32()
	for i := range data {
		data[i] /= n
	}
	return result
}

// Cat concatenates tensors along the given dimension.
func (b *Backend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("webgpu: cat: no tensors to concatenate")
	}

	first := tensors[0]
	ndim := len(first.Shape())
	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("webgpu: cat: dimension %d out of range for %dD tensor", dim, ndim))
	}

	outShape := first.Shape().Clone()
	for _, t := range tensors[1:] {
		s := t.Shape()
		if len(s) != ndim || t.DType() != first.DType() {
			panic(fmt.Sprintf("webgpu: cat: incompatible tensor %v (%s) vs %v (%s)",
				s, t.DType(), first.Shape(), first.DType()))
		}
		for d := 0; d < ndim; d++ {
			if d != dim && s[d] != outShape[d] {
				panic(fmt.Sprintf("webgpu: cat: dimension %d mismatch: %d vs %d", d, s[d], outShape[d]))
			}
		}
		outShape[dim] += s[dim]
	}

	result, err := tensor.NewRaw(outShape, first.DType(), tensor.WebGPU)
	if err != nil {
		panic("webgpu: cat: " + err.Error())
	}

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
func (b *Backend) Narrow(x *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)
	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("webgpu: narrow: dimension %d out of range for %dD tensor", dim, ndim))
	}
	if start < 0 || length <= 0 || start+length > shape[dim] {
		panic(fmt.Sprintf("webgpu: narrow: range [%d, %d) out of bounds for dimension %d (size %d)",
			start, start+length, dim, shape[dim]))
	}

	outShape := shape.Clone()
	outShape[dim] = length

	result, err := tensor.NewRaw(outShape, x.DType(), tensor.WebGPU)
	if err != nil {
		panic("webgpu: narrow: " + err.Error())
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
