package autodiff

import (
	"fmt"

	"github.com/pardo-ml/pardo/internal/tensor"
)

// BackwardCapable is an interface for backends that support backward pass.
// AutodiffBackend implements this interface.
type BackwardCapable interface {
	tensor.Backend
	// GetTape returns the gradient tape for backward computation.
	GetTape() *GradientTape
}

// GetTape returns the gradient tape (implements BackwardCapable interface).
func (b *AutodiffBackend[B]) GetTape() *GradientTape {
	return b.tape
}

// Backward computes gradients for a tensor, seeding the output gradient
// with ones.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	x, _ := tensor.FromSlice([]float32{2.0}, tensor.Shape{1}, backend)
//	y := tensor.New[float32](backend.Mul(x.Raw(), x.Raw()), backend) // y = x²
//	gradients := autodiff.Backward(y, backend)
//	grad := gradients[x.Raw()] // dy/dx = 2x = 4.0
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	return BackwardScaled(t, backend, 1.0)
}

// BackwardScaled computes gradients for a tensor, seeding the output
// gradient with the given value instead of ones. Seeding with w computes
// d(w*output)/d(input) for every input, which is what weighted loss
// aggregation across data shards needs.
func BackwardScaled[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B, seed float64) map[*tensor.RawTensor]*tensor.RawTensor {
	tape := backend.GetTape()

	if tape.NumOps() == 0 {
		panic("backward: no operations recorded (did you forget to call Tape().StartRecording()?)")
	}

	outputGrad, err := tensor.NewRaw(t.Shape(), t.DType(), backend.Device())
	if err != nil {
		panic(fmt.Sprintf("backward: failed to create output gradient: %v", err))
	}

	switch t.DType() {
	case tensor.Float32:
		data := outputGrad.AsFloat32()
		v := float32(seed)
		for i := range data {
			data[i] = v
		}
	case tensor.Float64:
		data := outputGrad.AsFloat64()
		for i := range data {
			data[i] = seed
		}
	default:
		panic(fmt.Sprintf("backward: unsupported dtype %s (only float32/float64 supported)", t.DType()))
	}

	return tape.Backward(outputGrad, backend)
}
