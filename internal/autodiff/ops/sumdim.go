package ops

import "github.com/pardo-ml/pardo/internal/tensor"

// SumDimOp represents a sum reduction along one dimension:
// output = sum(x, dim, keepDim).
//
// Backward pass: the gradient is broadcast back along the reduced dimension,
// since each input element contributes with weight 1.
type SumDimOp struct {
	inputs  []*tensor.RawTensor // [x]
	output  *tensor.RawTensor
	dim     int
	keepDim bool
}

// NewSumDimOp creates a new SumDimOp. dim must already be normalized to
// a non-negative index.
func NewSumDimOp(x, output *tensor.RawTensor, dim int, keepDim bool) *SumDimOp {
	return &SumDimOp{
		inputs:  []*tensor.RawTensor{x},
		output:  output,
		dim:     dim,
		keepDim: keepDim,
	}
}

// Backward broadcasts the gradient back to the input shape.
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grad := outputGrad
	if !op.keepDim {
		grad = unsqueeze(grad, op.dim, backend)
	}
	return []*tensor.RawTensor{broadcastTo(grad, op.inputs[0].Shape(), backend)}
}

// Inputs returns the input tensor [x].
func (op *SumDimOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the reduced tensor.
func (op *SumDimOp) Output() *tensor.RawTensor {
	return op.output
}
