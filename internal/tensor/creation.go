package tensor

import (
	"math"
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
//
// Example:
//
//	backend := cpu.New()
//	t := tensor.Zeros[float32](Shape{3, 4}, backend)
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var dummy T
	dtype := inferDataType(dummy)

	raw, err := NewRaw(shape, dtype, b.Device())
	if err != nil {
		panic(err) // Shape validation should prevent this
	}

	// Data is already zero-initialized by make()
	return New[T, B](raw, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return Full[T, B](shape, 1, b)
}

// Full creates a tensor filled with a specific value.
//
// Example:
//
//	t := tensor.Full[float32](Shape{3, 3}, 3.14, backend)
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// RandFrom creates a tensor with values drawn uniformly from [0, 1) using the
// supplied random source. Construction never touches global random state, so
// two tensors built from equally-seeded sources are identical.
//
// Example:
//
//	rng := rand.New(rand.NewSource(10))
//	t := tensor.RandFrom[float32](rng, Shape{10, 10}, backend)
func RandFrom[T DType, B Backend](rng *rand.Rand, shape Shape, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()

	var dummy T
	switch any(dummy).(type) {
	case float32:
		dataF32 := any(data).([]float32)
		for i := range dataF32 {
			dataF32[i] = float32(rng.Float64())
		}
	case float64:
		dataF64 := any(data).([]float64)
		for i := range dataF64 {
			dataF64[i] = rng.Float64()
		}
	default:
		panic("RandFrom only supports float32 and float64 types")
	}
	return t
}

// RandnFrom creates a tensor with values from a standard normal distribution
// using the supplied random source. Uses the Box-Muller transform.
func RandnFrom[T DType, B Backend](rng *rand.Rand, shape Shape, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()

	var dummy T
	switch any(dummy).(type) {
	case float32:
		dataF32 := any(data).([]float32)
		for i := 0; i < len(dataF32); i += 2 {
			u1 := rng.Float64()
			u2 := rng.Float64()
			z0 := math.Sqrt(-2.0*math.Log(u1)) * math.Cos(2.0*math.Pi*u2)
			z1 := math.Sqrt(-2.0*math.Log(u1)) * math.Sin(2.0*math.Pi*u2)
			dataF32[i] = float32(z0)
			if i+1 < len(dataF32) {
				dataF32[i+1] = float32(z1)
			}
		}
	case float64:
		dataF64 := any(data).([]float64)
		for i := 0; i < len(dataF64); i += 2 {
			u1 := rng.Float64()
			u2 := rng.Float64()
			z0 := math.Sqrt(-2.0*math.Log(u1)) * math.Cos(2.0*math.Pi*u2)
			z1 := math.Sqrt(-2.0*math.Log(u1)) * math.Sin(2.0*math.Pi*u2)
			dataF64[i] = z0
			if i+1 < len(dataF64) {
				dataF64[i+1] = z1
			}
		}
	default:
		panic("RandnFrom only supports float32 and float64 types")
	}
	return t
}
