package cpu

import (
	"fmt"

	"github.com/pardo-ml/pardo/internal/tensor"
)

// binaryOp dispatches an element-wise binary operation with broadcasting.
// Same-shape operands take a vectorized fast path, with inplace reuse of the
// left operand when its buffer is unique.
func (cpu *CPUBackend) binaryOp(
	name string,
	a, b *tensor.RawTensor,
	f32 func(dst, a, b []float32),
	f64 func(dst, a, b []float64),
) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch: %s vs %s", name, a.DType(), b.DType()))
	}

	if !needsBroadcast && a.Shape().Equal(b.Shape()) {
		if a.IsUnique() {
			// Inplace into a
			switch a.DType() {
			case tensor.Float32:
				f32(a.AsFloat32(), a.AsFloat32(), b.AsFloat32())
			case tensor.Float64:
				f64(a.AsFloat64(), a.AsFloat64(), b.AsFloat64())
			}
			return a
		}

		result, err := tensor.NewRaw(outShape, a.DType(), cpu.device)
		if err != nil {
			panic(fmt.Sprintf("%s: failed to create result tensor: %v", name, err))
		}
		switch a.DType() {
		case tensor.Float32:
			f32(result.AsFloat32(), a.AsFloat32(), b.AsFloat32())
		case tensor.Float64:
			f64(result.AsFloat64(), a.AsFloat64(), b.AsFloat64())
		}
		return result
	}

	// Slow path: broadcasting required
	result, err := tensor.NewRaw(outShape, a.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", name, err))
	}

	switch a.DType() {
	case tensor.Float32:
		broadcastBinaryF32(result, a, b, f32)
	case tensor.Float64:
		broadcastBinaryF64(result, a, b, f64)
	}
	return result
}

// broadcastIndex maps a flat index in the output tensor back to the flat
// index of an input tensor under NumPy broadcasting rules (size-1 input
// dimensions are pinned to coordinate 0).
func broadcastIndex(flat int, outShape tensor.Shape, outStrides []int, inShape tensor.Shape, inStrides []int) int {
	idx := 0
	offset := len(outShape) - len(inShape)
	for d := 0; d < len(outShape); d++ {
		coord := flat / outStrides[d]
		flat %= outStrides[d]
		inDim := d - offset
		if inDim < 0 {
			continue
		}
		if inShape[inDim] == 1 {
			continue
		}
		idx += coord * inStrides[inDim]
	}
	return idx
}

func broadcastBinaryF32(result, a, b *tensor.RawTensor, f func(dst, a, b []float32)) {
	outShape := result.Shape()
	outStrides := outShape.ComputeStrides()
	aShape, bShape := a.Shape(), b.Shape()
	aStrides, bStrides := aShape.ComputeStrides(), bShape.ComputeStrides()

	dst := result.AsFloat32()
	av := a.AsFloat32()
	bv := b.AsFloat32()

	var scratchA, scratchB, scratchD [1]float32
	for i := range dst {
		scratchA[0] = av[broadcastIndex(i, outShape, outStrides, aShape, aStrides)]
		scratchB[0] = bv[broadcastIndex(i, outShape, outStrides, bShape, bStrides)]
		f(scratchD[:], scratchA[:], scratchB[:])
		dst[i] = scratchD[0]
	}
}

func broadcastBinaryF64(result, a, b *tensor.RawTensor, f func(dst, a, b []float64)) {
	outShape := result.Shape()
	outStrides := outShape.ComputeStrides()
	aShape, bShape := a.Shape(), b.Shape()
	aStrides, bStrides := aShape.ComputeStrides(), bShape.ComputeStrides()

	dst := result.AsFloat64()
	av := a.AsFloat64()
	bv := b.AsFloat64()

	var scratchA, scratchB, scratchD [1]float64
	for i := range dst {
		scratchA[0] = av[broadcastIndex(i, outShape, outStrides, aShape, aStrides)]
		scratchB[0] = bv[broadcastIndex(i, outShape, outStrides, bShape, bStrides)]
		f(scratchD[:], scratchA[:], scratchB[:])
		dst[i] = scratchD[0]
	}
}

func addF32(dst, a, b []float32) {
	for i := range dst {
		dst[i] = a[i] + b[i]
	}
}

func subF32(dst, a, b []float32) {
	for i := range dst {
		dst[i] = a[i] - b[i]
	}
}

func mulF32(dst, a, b []float32) {
	for i := range dst {
		dst[i] = a[i] * b[i]
	}
}

func divF32(dst, a, b []float32) {
	for i := range dst {
		dst[i] = a[i] / b[i]
	}
}

func addF64(dst, a, b []float64) {
	for i := range dst {
		dst[i] = a[i] + b[i]
	}
}

func subF64(dst, a, b []float64) {
	for i := range dst {
		dst[i] = a[i] - b[i]
	}
}

func mulF64(dst, a, b []float64) {
	for i := range dst {
		dst[i] = a[i] * b[i]
	}
}

func divF64(dst, a, b []float64) {
	for i := range dst {
		dst[i] = a[i] / b[i]
	}
}
