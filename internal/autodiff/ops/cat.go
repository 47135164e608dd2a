package ops

import "github.com/pardo-ml/pardo/internal/tensor"

// CatOp represents a concatenation along one dimension:
// output = cat(inputs, dim).
//
// Backward pass: the gradient is split back into per-input slices along the
// concat dimension.
type CatOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
	dim    int
}

// NewCatOp creates a new CatOp. dim must already be normalized to a
// non-negative index.
func NewCatOp(inputs []*tensor.RawTensor, output *tensor.RawTensor, dim int) *CatOp {
	return &CatOp{
		inputs: inputs,
		output: output,
		dim:    dim,
	}
}

// Backward splits the gradient along the concat dimension.
func (op *CatOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grads := make([]*tensor.RawTensor, len(op.inputs))
	offset := 0
	for i, in := range op.inputs {
		size := in.Shape()[op.dim]
		grads[i] = backend.Narrow(outputGrad, op.dim, offset, size)
		offset += size
	}
	return grads
}

// Inputs returns the concatenated input tensors.
func (op *CatOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the concatenated tensor.
func (op *CatOp) Output() *tensor.RawTensor {
	return op.output
}
