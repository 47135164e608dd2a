package ops

import (
	"fmt"

	"github.com/pardo-ml/pardo/internal/tensor"
)

// NarrowOp represents a contiguous slice along one dimension:
// output = narrow(x, dim, start, length).
//
// Backward pass: the gradient is scattered into a zero tensor of the input
// shape at the narrowed window; elements outside the window get zero.
type NarrowOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor
	dim    int
	start  int
	length int
}

// NewNarrowOp creates a new NarrowOp. dim must already be normalized to
// a non-negative index.
func NewNarrowOp(x, output *tensor.RawTensor, dim, start, length int) *NarrowOp {
	return &NarrowOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
		dim:    dim,
		start:  start,
		length: length,
	}
}

// Backward scatters the gradient into the input shape.
func (op *NarrowOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	shape := x.Shape()

	grad, err := tensor.NewRaw(shape, x.DType(), x.Device())
	if err != nil {
		panic(fmt.Sprintf("narrow backward: %v", err))
	}

	innerSize := 1
	for d := op.dim + 1; d < len(shape); d++ {
		innerSize *= shape[d]
	}
	outerSize := 1
	for d := 0; d < op.dim; d++ {
		outerSize *= shape[d]
	}

	elemSize := x.DType().Size()
	dstRun := shape[op.dim] * innerSize * elemSize
	srcRun := op.length * innerSize * elemSize
	dstOffset := op.start * innerSize * elemSize

	src := outputGrad.Data()
	dst := grad.Data()
	for outer := 0; outer < outerSize; outer++ {
		copy(dst[outer*dstRun+dstOffset:], src[outer*srcRun:(outer+1)*srcRun])
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns the input tensor [x].
func (op *NarrowOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the narrowed tensor.
func (op *NarrowOp) Output() *tensor.RawTensor {
	return op.output
}
