package ops

import (
	"fmt"

	"github.com/pardo-ml/pardo/internal/tensor"
)

// MeanOp represents a full reduction to the mean: output = mean(x).
//
// Backward pass: every element of x contributes 1/N to the mean, so
// grad_x[i] = outputGrad / N for all i.
type MeanOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor   // scalar
}

// NewMeanOp creates a new MeanOp.
func NewMeanOp(x, output *tensor.RawTensor) *MeanOp {
	return &MeanOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
	}
}

// Backward fills the input shape with outputGrad / N.
func (op *MeanOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	n := x.Shape().NumElements()

	grad, err := tensor.NewRaw(x.Shape(), x.DType(), x.Device())
	if err != nil {
		panic(fmt.Sprintf("mean backward: %v", err))
	}

	value := scalarGradValue(outputGrad) / float64(n)
	switch grad.DType() {
	case tensor.Float32:
		data := grad.AsFloat32()
		v := float32(value)
		for i := range data {
			data[i] = v
		}
	case tensor.Float64:
		data := grad.AsFloat64()
		for i := range data {
			data[i] = value
		}
	default:
		panic(fmt.Sprintf("mean backward: unsupported dtype %s", grad.DType()))
	}

	return []*tensor.RawTensor{grad}
}

// Inputs returns the input tensor [x].
func (op *MeanOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the scalar mean tensor.
func (op *MeanOp) Output() *tensor.RawTensor {
	return op.output
}
