package tensor_test

import (
	"math/rand"
	"testing"

	"github.com/pardo-ml/pardo/internal/backend/cpu"
	"github.com/pardo-ml/pardo/internal/tensor"
)

func TestShape_NumElements(t *testing.T) {
	tests := []struct {
		shape tensor.Shape
		want  int
	}{
		{tensor.Shape{}, 1},
		{tensor.Shape{5}, 5},
		{tensor.Shape{2, 3}, 6},
		{tensor.Shape{2, 3, 4}, 24},
	}
	for _, tt := range tests {
		if got := tt.shape.NumElements(); got != tt.want {
			t.Errorf("NumElements(%v) = %d, want %d", tt.shape, got, tt.want)
		}
	}
}

func TestShape_ComputeStrides(t *testing.T) {
	strides := tensor.Shape{2, 3, 4}.ComputeStrides()
	want := []int{12, 4, 1}
	for i := range want {
		if strides[i] != want[i] {
			t.Errorf("strides[%d] = %d, want %d", i, strides[i], want[i])
		}
	}
}

func TestBroadcastShapes(t *testing.T) {
	out, needed, err := tensor.BroadcastShapes(tensor.Shape{3, 1}, tensor.Shape{3, 4})
	if err != nil {
		t.Fatalf("BroadcastShapes: %v", err)
	}
	if !needed {
		t.Error("expected broadcasting to be needed")
	}
	if !out.Equal(tensor.Shape{3, 4}) {
		t.Errorf("broadcast shape = %v, want [3 4]", out)
	}

	_, _, err = tensor.BroadcastShapes(tensor.Shape{2, 3}, tensor.Shape{4, 3})
	if err == nil {
		t.Error("expected error for incompatible shapes")
	}
}

func TestNewRaw_InvalidShape(t *testing.T) {
	_, err := tensor.NewRaw(tensor.Shape{2, 0}, tensor.Float32, tensor.CPU)
	if err == nil {
		t.Error("expected error for zero dimension")
	}
}

func TestRawTensor_CloneAndUniqueness(t *testing.T) {
	raw, err := tensor.NewRaw(tensor.Shape{4}, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}

	if !raw.IsUnique() {
		t.Error("fresh tensor should be unique")
	}

	data := raw.AsFloat32()
	data[0] = 42

	clone := raw.Clone()
	if clone.AsFloat32()[0] != 42 {
		t.Error("clone should see original data")
	}
}

func TestRawTensor_ForceNonUnique(t *testing.T) {
	raw, err := tensor.NewRaw(tensor.Shape{2}, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}

	restore := raw.ForceNonUnique()
	if raw.IsUnique() {
		t.Error("tensor should not be unique while forced")
	}
	restore()
	if !raw.IsUnique() {
		t.Error("tensor should be unique again after restore")
	}
}

func TestFromSlice_LengthMismatch(t *testing.T) {
	backend := cpu.New()
	_, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{2, 2}, backend)
	if err == nil {
		t.Error("expected error for length mismatch")
	}
}

func TestTensor_AtSet(t *testing.T) {
	backend := cpu.New()
	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	if got := x.At(1, 2); got != 6 {
		t.Errorf("At(1,2) = %f, want 6", got)
	}

	x.Set(9, 0, 1)
	if got := x.At(0, 1); got != 9 {
		t.Errorf("At(0,1) = %f, want 9", got)
	}
}

// Creation from a seeded RNG must be reproducible: this is what keeps
// parameters identical across devices.
func TestRandFrom_Deterministic(t *testing.T) {
	backend := cpu.New()

	a := tensor.RandFrom[float32](rand.New(rand.NewSource(10)), tensor.Shape{32}, backend)
	b := tensor.RandFrom[float32](rand.New(rand.NewSource(10)), tensor.Shape{32}, backend)
	c := tensor.RandFrom[float32](rand.New(rand.NewSource(11)), tensor.Shape{32}, backend)

	aData, bData, cData := a.Data(), b.Data(), c.Data()
	same := true
	for i := range aData {
		if aData[i] != bData[i] {
			t.Fatalf("same seed diverged at %d: %f vs %f", i, aData[i], bData[i])
		}
		if aData[i] != cData[i] {
			same = false
		}
	}
	if same {
		t.Error("different seeds produced identical values")
	}

	for i, v := range aData {
		if v < 0 || v >= 1 {
			t.Errorf("value %d = %f outside [0, 1)", i, v)
		}
	}
}

func TestRandnFrom_Deterministic(t *testing.T) {
	backend := cpu.New()

	a := tensor.RandnFrom[float64](rand.New(rand.NewSource(7)), tensor.Shape{16}, backend)
	b := tensor.RandnFrom[float64](rand.New(rand.NewSource(7)), tensor.Shape{16}, backend)

	aData, bData := a.Data(), b.Data()
	for i := range aData {
		if aData[i] != bData[i] {
			t.Fatalf("same seed diverged at %d", i)
		}
	}
}
