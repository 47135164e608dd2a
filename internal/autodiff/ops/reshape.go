package ops

import "github.com/pardo-ml/pardo/internal/tensor"

// ReshapeOp represents a reshape: output = reshape(x, shape).
//
// Backward pass: the gradient is reshaped back to the input shape.
type ReshapeOp struct {
	inputs     []*tensor.RawTensor // [x]
	output     *tensor.RawTensor
	inputShape tensor.Shape
}

// NewReshapeOp creates a new ReshapeOp.
func NewReshapeOp(x, output *tensor.RawTensor) *ReshapeOp {
	return &ReshapeOp{
		inputs:     []*tensor.RawTensor{x},
		output:     output,
		inputShape: x.Shape().Clone(),
	}
}

// Backward reshapes the gradient back to the input shape.
func (op *ReshapeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Reshape(outputGrad, op.inputShape)}
}

// Inputs returns the input tensor [x].
func (op *ReshapeOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the reshaped tensor.
func (op *ReshapeOp) Output() *tensor.RawTensor {
	return op.output
}
