package ops

import "github.com/pardo-ml/pardo/internal/tensor"

// ScaleOp represents multiplication by a constant: output = x * scalar.
//
// Backward pass: grad_x = outputGrad * scalar.
type ScaleOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor
	scalar float64
}

// NewScaleOp creates a new ScaleOp.
func NewScaleOp(x, output *tensor.RawTensor, scalar float64) *ScaleOp {
	return &ScaleOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
		scalar: scalar,
	}
}

// Backward computes the input gradient by scaling the output gradient.
func (op *ScaleOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MulScalar(outputGrad, op.scalar)}
}

// Inputs returns the input tensor [x].
func (op *ScaleOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the scaled tensor.
func (op *ScaleOp) Output() *tensor.RawTensor {
	return op.output
}
