package ops

import "github.com/pardo-ml/pardo/internal/tensor"

// TransposeOp represents an axis permutation: output = transpose(x, axes).
//
// Backward pass: the gradient is transposed with the inverse permutation.
type TransposeOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor
	axes   []int
}

// NewTransposeOp creates a new TransposeOp.
func NewTransposeOp(x, output *tensor.RawTensor, axes []int) *TransposeOp {
	return &TransposeOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
		axes:   axes,
	}
}

// Backward computes the input gradient by applying the inverse permutation.
func (op *TransposeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inverse := make([]int, len(op.axes))
	for i, axis := range op.axes {
		inverse[axis] = i
	}
	return []*tensor.RawTensor{backend.Transpose(outputGrad, inverse...)}
}

// Inputs returns the input tensor [x].
func (op *TransposeOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the transposed tensor.
func (op *TransposeOp) Output() *tensor.RawTensor {
	return op.output
}
