package autodiff_test

import (
	"math"
	"testing"

	"github.com/pardo-ml/pardo/internal/autodiff"
	"github.com/pardo-ml/pardo/internal/backend/cpu"
	"github.com/pardo-ml/pardo/internal/tensor"
)

type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func newBackend() Backend {
	return autodiff.New(cpu.New())
}

func rawF32(t *testing.T, shape tensor.Shape, values []float32) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	copy(raw.AsFloat32(), values)
	return raw
}

func checkGrad(t *testing.T, grads map[*tensor.RawTensor]*tensor.RawTensor, input *tensor.RawTensor, want []float32) {
	t.Helper()
	grad, ok := grads[input]
	if !ok {
		t.Fatal("no gradient for input")
	}
	data := grad.AsFloat32()
	if len(data) != len(want) {
		t.Fatalf("gradient has %d elements, want %d", len(data), len(want))
	}
	for i := range want {
		if math.Abs(float64(data[i]-want[i])) > 1e-6 {
			t.Errorf("grad[%d] = %f, want %f", i, data[i], want[i])
		}
	}
}

func TestTape_Recording(t *testing.T) {
	backend := newBackend()
	a := rawF32(t, tensor.Shape{2}, []float32{1, 2})
	b := rawF32(t, tensor.Shape{2}, []float32{3, 4})

	backend.Add(a, b)
	if backend.Tape().NumOps() != 0 {
		t.Error("operation recorded while tape was stopped")
	}

	backend.Tape().StartRecording()
	backend.Add(a, b)
	if backend.Tape().NumOps() != 1 {
		t.Errorf("NumOps = %d, want 1", backend.Tape().NumOps())
	}

	backend.Tape().StopRecording()
	backend.Add(a, b)
	if backend.Tape().NumOps() != 1 {
		t.Error("operation recorded after StopRecording")
	}
}

func TestTape_Clear(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	a := rawF32(t, tensor.Shape{2}, []float32{1, 2})
	backend.Add(a, a)
	backend.Tape().Clear()

	if backend.Tape().NumOps() != 0 {
		t.Errorf("NumOps after Clear = %d, want 0", backend.Tape().NumOps())
	}
	if !backend.Tape().IsRecording() {
		t.Error("Clear should preserve recording state")
	}
}

func TestBackward_Mean(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	x := rawF32(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	loss := tensor.New[float32](backend.Mean(x), backend)

	grads := autodiff.Backward(loss, backend)
	checkGrad(t, grads, x, []float32{0.25, 0.25, 0.25, 0.25})
}

func TestBackward_Sum(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	x := rawF32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	loss := tensor.New[float32](backend.Sum(x), backend)

	if backend.Tape().NumOps() != 2 {
		t.Errorf("NumOps = %d, want 2 (reshape + sumdim)", backend.Tape().NumOps())
	}

	grads := autodiff.Backward(loss, backend)
	checkGrad(t, grads, x, []float32{1, 1, 1, 1, 1, 1})
}

func TestBackward_MatMul(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	x := rawF32(t, tensor.Shape{1, 2}, []float32{1, 2})
	w := rawF32(t, tensor.Shape{2, 1}, []float32{3, 4})
	y := tensor.New[float32](backend.MatMul(x, w), backend)

	if v := y.Raw().AsFloat32()[0]; v != 11 {
		t.Fatalf("y = %f, want 11", v)
	}

	grads := autodiff.Backward(y, backend)
	checkGrad(t, grads, x, []float32{3, 4}) // grad @ w^T
	checkGrad(t, grads, w, []float32{1, 2}) // x^T @ grad
}

func TestBackward_MulScalar(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	x := rawF32(t, tensor.Shape{3}, []float32{1, 2, 3})
	y := tensor.New[float32](backend.MulScalar(x, 3.0), backend)

	grads := autodiff.Backward(y, backend)
	checkGrad(t, grads, x, []float32{3, 3, 3})
}

func TestBackward_Div(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	a := rawF32(t, tensor.Shape{1}, []float32{6})
	b := rawF32(t, tensor.Shape{1}, []float32{2})
	y := tensor.New[float32](backend.Div(a, b), backend)

	grads := autodiff.Backward(y, backend)
	checkGrad(t, grads, a, []float32{0.5})  // 1/b
	checkGrad(t, grads, b, []float32{-1.5}) // -a/b^2
}

func TestBackward_BroadcastReducesGrad(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	a := rawF32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	b := rawF32(t, tensor.Shape{3}, []float32{10, 20, 30})
	sum := tensor.New[float32](backend.Sum(backend.Add(a, b)), backend)

	grads := autodiff.Backward(sum, backend)
	checkGrad(t, grads, a, []float32{1, 1, 1, 1, 1, 1})
	// b was broadcast over the leading dim, so its gradient sums over it.
	checkGrad(t, grads, b, []float32{2, 2, 2})
}

func TestBackward_Accumulation(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	x := rawF32(t, tensor.Shape{2}, []float32{1, 2})
	y := tensor.New[float32](backend.Add(x, x), backend)

	grads := autodiff.Backward(y, backend)
	checkGrad(t, grads, x, []float32{2, 2})
}

func TestBackward_Transpose(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	x := rawF32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	y := tensor.New[float32](backend.MulScalar(backend.Transpose(x), 2.0), backend)

	grads := autodiff.Backward(y, backend)
	checkGrad(t, grads, x, []float32{2, 2, 2, 2, 2, 2})
}

func TestBackward_Narrow(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	x := rawF32(t, tensor.Shape{4}, []float32{1, 2, 3, 4})
	loss := tensor.New[float32](backend.Mean(backend.Narrow(x, 0, 1, 2)), backend)

	grads := autodiff.Backward(loss, backend)
	// Gradient scatters into the narrowed region, zeros elsewhere.
	checkGrad(t, grads, x, []float32{0, 0.5, 0.5, 0})
}

func TestBackward_Cat(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	a := rawF32(t, tensor.Shape{2}, []float32{1, 2})
	b := rawF32(t, tensor.Shape{2}, []float32{3, 4})
	loss := tensor.New[float32](backend.Mean(backend.Cat([]*tensor.RawTensor{a, b}, 0)), backend)

	grads := autodiff.Backward(loss, backend)
	checkGrad(t, grads, a, []float32{0.25, 0.25})
	checkGrad(t, grads, b, []float32{0.25, 0.25})
}

func TestBackward_SumDim(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	x := rawF32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	cols := backend.SumDim(x, 0, false)
	loss := tensor.New[float32](backend.Mean(cols), backend)

	grads := autodiff.Backward(loss, backend)
	checkGrad(t, grads, x, []float32{
		1.0 / 3, 1.0 / 3, 1.0 / 3,
		1.0 / 3, 1.0 / 3, 1.0 / 3,
	})
}

// Seeding the output gradient with a weight w computes d(w*loss)/d(input).
func TestBackwardScaled(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	x := rawF32(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	loss := tensor.New[float32](backend.Mean(x), backend)

	grads := autodiff.BackwardScaled(loss, backend, 0.5)
	checkGrad(t, grads, x, []float32{0.125, 0.125, 0.125, 0.125})
}

func TestBackward_EmptyTapePanics(t *testing.T) {
	backend := newBackend()
	x := rawF32(t, tensor.Shape{1}, []float32{1})
	y := tensor.New[float32](x, backend)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on empty tape")
		}
	}()
	autodiff.Backward(y, backend)
}

func TestBackward_DoesNotRecordGradientOps(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()

	x := rawF32(t, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	loss := tensor.New[float32](backend.Mean(x), backend)

	before := backend.Tape().NumOps()
	autodiff.Backward(loss, backend)
	if backend.Tape().NumOps() != before {
		t.Errorf("backward pass recorded operations: %d -> %d", before, backend.Tape().NumOps())
	}
	if !backend.Tape().IsRecording() {
		t.Error("recording state not restored after backward")
	}
}
