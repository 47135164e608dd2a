package cpu

import (
	"fmt"

	"github.com/pardo-ml/pardo/internal/tensor"
)

// MulScalar multiplies every element by a scalar.
// The scalar may be any numeric Go type; it is converted to the tensor dtype.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), x.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("mulscalar: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		s := toFloat64(scalar)
		src := x.AsFloat32()
		dst := result.AsFloat32()
		f := float32(s)
		for i, v := range src {
			dst[i] = v * f
		}
	case tensor.Float64:
		s := toFloat64(scalar)
		src := x.AsFloat64()
		dst := result.AsFloat64()
		for i, v := range src {
			dst[i] = v * s
		}
	default:
		panic(fmt.Sprintf("mulscalar: unsupported dtype %s", x.DType()))
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
		panic(fmt.Sprintf("unsupported scalar type %T", scalar))
	}
}
