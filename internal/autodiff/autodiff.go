// Package autodiff implements automatic differentiation using the decorator pattern.
//
// AutodiffBackend wraps any Backend implementation (CPU, GPU, etc.) and adds
// gradient tracking capabilities through a GradientTape.
//
// Architecture:
//   - Decorator pattern: AutodiffBackend[B] wraps any Backend implementation
//   - GradientTape: Records operations during forward pass
//   - Operation interface: Each op (Add, MatMul, Mean) implements backward pass
//   - Reverse-mode AD: Computes gradients efficiently using chain rule
//
// Usage:
//
//	// Wrap any backend with autodiff
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//
//	x, _ := tensor.FromSlice([]float32{2.0}, tensor.Shape{1}, backend)
//	y := tensor.New[float32](backend.Mul(x.Raw(), x.Raw()), backend) // y = x²
//
//	// Compute gradients
//	gradients := autodiff.Backward(y, backend)
package autodiff

import (
	"github.com/pardo-ml/pardo/internal/autodiff/ops"
	"github.com/pardo-ml/pardo/internal/tensor"
)

// AutodiffBackend wraps a Backend and adds automatic differentiation.
// It implements the tensor.Backend interface and records operations in a GradientTape.
//
// Type parameter B must satisfy the tensor.Backend interface.
type AutodiffBackend[B tensor.Backend] struct {
	inner B             // Wrapped backend (CPU, GPU, etc.)
	tape  *GradientTape // Records operations for backpropagation
}

// New creates a new AutodiffBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: backend,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for manual control.
// Useful for:
//   - Starting/stopping recording
//   - Clearing tape between iterations
//   - Inspecting recorded operations
func (b *AutodiffBackend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend for direct access.
func (b *AutodiffBackend[B]) Inner() B {
	return b.inner
}

// Name returns the backend name.
func (b *AutodiffBackend[B]) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the compute device.
func (b *AutodiffBackend[B]) Device() tensor.Device {
	return b.inner.Device()
}

// Add performs element-wise addition and records the operation.
func (b *AutodiffBackend[B]) Add(a, c *tensor.RawTensor) *tensor.RawTensor {
	// Prevent inplace modification that would corrupt the autodiff graph.
	// Temporarily increase refCount so IsUnique() returns false, forcing
	// the inner backend to allocate a new result tensor.
	defer a.ForceNonUnique()()
	defer c.ForceNonUnique()()

	result := b.inner.Add(a, c)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewAddOp(a, c, result))
	}

	return result
}

// Sub performs element-wise subtraction and records the operation.
func (b *AutodiffBackend[B]) Sub(a, c *tensor.RawTensor) *tensor.RawTensor {
	defer a.ForceNonUnique()()
	defer c.ForceNonUnique()()

	result := b.inner.Sub(a, c)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSubOp(a, c, result))
	}

	return result
}

// Mul performs element-wise multiplication and records the operation.
func (b *AutodiffBackend[B]) Mul(a, c *tensor.RawTensor) *tensor.RawTensor {
	defer a.ForceNonUnique()()
	defer c.ForceNonUnique()()

	result := b.inner.Mul(a, c)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMulOp(a, c, result))
	}

	return result
}

// Div performs element-wise division and records the operation.
func (b *AutodiffBackend[B]) Div(a, c *tensor.RawTensor) *tensor.RawTensor {
	defer a.ForceNonUnique()()
	defer c.ForceNonUnique()()

	result := b.inner.Div(a, c)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewDivOp(a, c, result))
	}

	return result
}

// MatMul performs matrix multiplication and records the operation.
func (b *AutodiffBackend[B]) MatMul(a, c *tensor.RawTensor) *tensor.RawTensor {
	defer a.ForceNonUnique()()
	defer c.ForceNonUnique()()

	result := b.inner.MatMul(a, c)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMatMulOp(a, c, result))
	}

	return result
}

// Reshape reshapes a tensor and records the operation.
//
// Reshape must be recorded on tape: without a ReshapeOp the gradient is
// computed for the reshaped tensor only and never reaches the original.
func (b *AutodiffBackend[B]) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	defer t.ForceNonUnique()()

	result := b.inner.Reshape(t, newShape)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewReshapeOp(t, result))
	}

	return result
}

// Transpose transposes a tensor and records the operation.
//
// Even though conceptually transpose is a "view", the underlying backend
// creates a new tensor. The operation must be recorded so the gradient of
// the transposed tensor propagates back to the original parameter.
func (b *AutodiffBackend[B]) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	defer t.ForceNonUnique()()

	// Handle default axes (reverse all dimensions)
	ndim := len(t.Shape())
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	result := b.inner.Transpose(t, axes...)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewTransposeOp(t, result, axes))
	}

	return result
}

// MulScalar multiplies by a constant and records the operation.
func (b *AutodiffBackend[B]) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.MulScalar(x, scalar)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewScaleOp(x, result, toFloat64(scalar)))
	}

	return result
}

// Sum reduces a tensor to its scalar total and records the operation.
// Recorded as a flatten plus a SumDim over the flat dimension, so the
// backward pass reuses the ReshapeOp and SumDimOp rules.
func (b *AutodiffBackend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.Sum(x)

	if b.tape.IsRecording() {
		flat := b.inner.Reshape(x, tensor.Shape{x.Shape().NumElements()})
		b.tape.Record(ops.NewReshapeOp(x, flat))
		b.tape.Record(ops.NewSumDimOp(flat, result, 0, false))
	}

	return result
}

// Mean reduces a tensor to its scalar mean and records the operation.
func (b *AutodiffBackend[B]) Mean(x *tensor.RawTensor) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	result := b.inner.Mean(x)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMeanOp(x, result))
	}

	return result
}

// SumDim sums along one dimension and records the operation.
func (b *AutodiffBackend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	if dim < 0 {
		dim = len(x.Shape()) + dim
	}

	result := b.inner.SumDim(x, dim, keepDim)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSumDimOp(x, result, dim, keepDim))
	}

	return result
}

// MeanDim averages along one dimension and records the operation.
func (b *AutodiffBackend[B]) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	if dim < 0 {
		dim = len(x.Shape()) + dim
	}

	result := b.inner.MeanDim(x, dim, keepDim)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMeanDimOp(x, result, dim, keepDim))
	}

	return result
}

// Cat concatenates tensors along a dimension and records the operation.
func (b *AutodiffBackend[B]) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	for _, t := range tensors {
		defer t.ForceNonUnique()()
	}

	if len(tensors) > 0 && dim < 0 {
		dim = len(tensors[0].Shape()) + dim
	}

	result := b.inner.Cat(tensors, dim)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewCatOp(tensors, result, dim))
	}

	return result
}

// Narrow slices along a dimension and records the operation.
func (b *AutodiffBackend[B]) Narrow(x *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	defer x.ForceNonUnique()()

	if dim < 0 {
		dim = len(x.Shape()) + dim
	}

	result := b.inner.Narrow(x, dim, start, length)

	if b.tape.IsRecording() {
		b.tape.Record(ops.NewNarrowOp(x, result, dim, start, length))
	}

	return result
}

func toFloat64(scalar any) float64 {
	switch v := scalar.(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	default:
		panic("MulScalar: unsupported scalar type")
	}
}
