package webgpu

import (
	"math"
	"testing"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/pardo-ml/pardo/internal/tensor"
)

func rawF32(t *testing.T, shape tensor.Shape, values []float32) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.WebGPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	copy(raw.AsFloat32(), values)
	return raw
}

func checkF32(t *testing.T, got *tensor.RawTensor, wantShape tensor.Shape, want []float32) {
	t.Helper()
	if !got.Shape().Equal(wantShape) {
		t.Fatalf("shape = %v, want %v", got.Shape(), wantShape)
	}
	if got.Device() != tensor.WebGPU {
		t.Errorf("device = %s, want WebGPU", got.Device())
	}
	data := got.AsFloat32()
	for i := range want {
		if math.Abs(float64(data[i]-want[i])) > 1e-5 {
			t.Errorf("data[%d] = %f, want %f", i, data[i], want[i])
		}
	}
}

// Host-side operations do not touch the device and are testable without an
// adapter.

func TestHostSum(t *testing.T) {
	b := &Backend{}
	x := rawF32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	got := b.Sum(x)
	if len(got.Shape()) != 0 {
		t.Fatalf("sum shape = %v, want scalar", got.Shape())
	}
	if v := got.AsFloat32()[0]; v != 21 {
		t.Errorf("sum = %f, want 21", v)
	}
}

func TestHostMean(t *testing.T) {
	b := &Backend{}
	x := rawF32(t, tensor.Shape{4}, []float32{1, 2, 3, 4})

	if v := b.Mean(x).AsFloat32()[0]; v != 2.5 {
		t.Errorf("mean = %f, want 2.5", v)
	}
}

func TestHostSumDim(t *testing.T) {
	b := &Backend{}
	x := rawF32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	checkF32(t, b.SumDim(x, 0, false), tensor.Shape{3}, []float32{5, 7, 9})
	checkF32(t, b.SumDim(x, 1, true), tensor.Shape{2, 1}, []float32{6, 15})
	checkF32(t, b.MeanDim(x, 1, false), tensor.Shape{2}, []float32{2, 5})
}

func TestHostCatNarrow(t *testing.T) {
	b := &Backend{}
	x := rawF32(t, tensor.Shape{4, 2}, []float32{1, 2, 3, 4, 5, 6, 7, 8})

	top := b.Narrow(x, 0, 0, 2)
	bottom := b.Narrow(x, 0, 2, 2)
	checkF32(t, top, tensor.Shape{2, 2}, []float32{1, 2, 3, 4})

	back := b.Cat([]*tensor.RawTensor{top, bottom}, 0)
	checkF32(t, back, tensor.Shape{4, 2}, []float32{1, 2, 3, 4, 5, 6, 7, 8})
}

func TestHostReshape(t *testing.T) {
	b := &Backend{}
	x := rawF32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	checkF32(t, b.Reshape(x, tensor.Shape{6}), tensor.Shape{6}, []float32{1, 2, 3, 4, 5, 6})
}

func TestExpandHost(t *testing.T) {
	x := rawF32(t, tensor.Shape{3}, []float32{1, 2, 3})

	got := expandHost(x, tensor.Shape{2, 3})
	checkF32(t, got, tensor.Shape{2, 3}, []float32{1, 2, 3, 1, 2, 3})

	col := rawF32(t, tensor.Shape{2, 1}, []float32{10, 20})
	checkF32(t, expandHost(col, tensor.Shape{2, 3}),
		tensor.Shape{2, 3}, []float32{10, 10, 10, 20, 20, 20})
}

func TestName(t *testing.T) {
	b := &Backend{}
	if got := b.Name(); got != "WebGPU" {
		t.Errorf("Name() = %q, want %q", got, "WebGPU")
	}

	b.adapterInfo = &wgpu.AdapterInfoGo{Vendor: "acme", Device: "gpu-1"}
	if got := b.Name(); got != "WebGPU (acme gpu-1)" {
		t.Errorf("Name() = %q, want %q", got, "WebGPU (acme gpu-1)")
	}
	if b.AdapterInfo().Device != "gpu-1" {
		t.Errorf("AdapterInfo().Device = %q, want %q", b.AdapterInfo().Device, "gpu-1")
	}
}

// Device kernels need a live adapter.

func newDeviceBackend(t *testing.T) *Backend {
	t.Helper()
	if !IsAvailable() {
		t.Skip("no WebGPU adapter available")
	}
	b, err := New()
	if err != nil {
		t.Skipf("WebGPU init failed: %v", err)
	}
	t.Cleanup(b.Release)
	return b
}

func TestDeviceAdd(t *testing.T) {
	b := newDeviceBackend(t)
	x := rawF32(t, tensor.Shape{4}, []float32{1, 2, 3, 4})
	y := rawF32(t, tensor.Shape{4}, []float32{10, 20, 30, 40})

	checkF32(t, b.Add(x, y), tensor.Shape{4}, []float32{11, 22, 33, 44})
}

func TestDeviceAdd_Broadcast(t *testing.T) {
	b := newDeviceBackend(t)
	x := rawF32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	y := rawF32(t, tensor.Shape{3}, []float32{10, 20, 30})

	checkF32(t, b.Add(x, y), tensor.Shape{2, 3}, []float32{11, 22, 33, 14, 25, 36})
}

func TestDeviceMatMul(t *testing.T) {
	b := newDeviceBackend(t)
	x := rawF32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	y := rawF32(t, tensor.Shape{3, 2}, []float32{7, 8, 9, 10, 11, 12})

	checkF32(t, b.MatMul(x, y), tensor.Shape{2, 2}, []float32{58, 64, 139, 154})
}

func TestDeviceTranspose(t *testing.T) {
	b := newDeviceBackend(t)
	x := rawF32(t, tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})

	checkF32(t, b.Transpose(x), tensor.Shape{3, 2}, []float32{1, 4, 2, 5, 3, 6})
}

func TestDeviceMulScalar(t *testing.T) {
	b := newDeviceBackend(t)
	x := rawF32(t, tensor.Shape{3}, []float32{1, 2, 3})

	checkF32(t, b.MulScalar(x, 2.0), tensor.Shape{3}, []float32{2, 4, 6})
}
