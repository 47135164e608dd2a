package ops

import "github.com/pardo-ml/pardo/internal/tensor"

// DivOp represents an element-wise division operation: output = a / b.
//
// Backward pass:
//   - d(a/b)/da = 1/b, so grad_a = outputGrad / b
//   - d(a/b)/db = -a/b^2, so grad_b = -outputGrad * a / (b * b)
type DivOp struct {
	inputs []*tensor.RawTensor // [a, b]
	output *tensor.RawTensor   // a / b
}

// NewDivOp creates a new DivOp.
func NewDivOp(a, b, output *tensor.RawTensor) *DivOp {
	return &DivOp{
		inputs: []*tensor.RawTensor{a, b},
		output: output,
	}
}

// Backward computes input gradients for division.
func (op *DivOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]

	gradA := reduceBroadcast(backend.Div(outputGrad, b), a.Shape(), backend)

	bSquared := backend.Mul(b, b)
	gradBFull := backend.MulScalar(backend.Div(backend.Mul(outputGrad, a), bSquared), -1.0)
	gradB := reduceBroadcast(gradBFull, b.Shape(), backend)

	return []*tensor.RawTensor{gradA, gradB}
}

// Inputs returns the input tensors [a, b].
func (op *DivOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor a / b.
func (op *DivOp) Output() *tensor.RawTensor {
	return op.output
}
