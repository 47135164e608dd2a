package ops

import "github.com/pardo-ml/pardo/internal/tensor"

// MeanDimOp represents a mean reduction along one dimension:
// output = mean(x, dim, keepDim).
//
// Backward pass: like SumDimOp but each element contributes with weight
// 1/dimSize.
type MeanDimOp struct {
	inputs  []*tensor.RawTensor // [x]
	output  *tensor.RawTensor
	dim     int
	keepDim bool
}

// NewMeanDimOp creates a new MeanDimOp. dim must already be normalized to
// a non-negative index.
func NewMeanDimOp(x, output *tensor.RawTensor, dim int, keepDim bool) *MeanDimOp {
	return &MeanDimOp{
		inputs:  []*tensor.RawTensor{x},
		output:  output,
		dim:     dim,
		keepDim: keepDim,
	}
}

// Backward broadcasts the gradient back and divides by the reduced size.
func (op *MeanDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	dimSize := x.Shape()[op.dim]

	grad := outputGrad
	if !op.keepDim {
		grad = unsqueeze(grad, op.dim, backend)
	}
	grad = broadcastTo(grad, x.Shape(), backend)
	grad = backend.MulScalar(grad, 1.0/float64(dimSize))

	return []*tensor.RawTensor{grad}
}

// Inputs returns the input tensor [x].
func (op *MeanDimOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the reduced tensor.
func (op *MeanDimOp) Output() *tensor.RawTensor {
	return op.output
}
