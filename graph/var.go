package graph

import "github.com/pardo-ml/pardo/internal/tensor"

// GradSuffix is appended to a variable name to form the name of its
// gradient variable after a backward pass.
const GradSuffix = "@GRAD"

// VarKind classifies a named variable in the graph scope.
type VarKind int

// Variable kinds.
const (
	KindInput VarKind = iota
	KindParameter
	KindActivation
	KindGradient
)

// String returns a human-readable kind name.
func (k VarKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindParameter:
		return "parameter"
	case KindActivation:
		return "activation"
	case KindGradient:
		return "gradient"
	default:
		return "unknown"
	}
}

// Var is a named tensor in a graph's scope.
//
// Inputs start unbound (nil tensor) and receive data through BindInputs.
// StopGradient excludes the variable from gradient registration; it defaults
// to false so input gradients are available for fetching.
type Var struct {
	name string
	raw  *tensor.RawTensor
	kind VarKind

	StopGradient bool
}

// Name returns the variable's scope name.
func (v *Var) Name() string {
	return v.name
}

// Kind returns the variable's kind.
func (v *Var) Kind() VarKind {
	return v.kind
}

// Raw returns the underlying tensor, or nil for an unbound input.
func (v *Var) Raw() *tensor.RawTensor {
	return v.raw
}

// Shape returns the tensor shape. Panics on unbound inputs.
func (v *Var) Shape() tensor.Shape {
	if v.raw == nil {
		panic("graph: variable " + v.name + " is not bound")
	}
	return v.raw.Shape()
}

// Data returns a copy of the tensor contents in row-major order.
func (v *Var) Data() []float32 {
	if v.raw == nil {
		panic("graph: variable " + v.name + " is not bound")
	}
	src := v.raw.AsFloat32()
	out := make([]float32, len(src))
	copy(out, src)
	return out
}
