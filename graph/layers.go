package graph

import (
	"fmt"
)

// FC applies a fully connected layer without bias: y = x @ W.
//
// The weight is registered in the scope under paramName with shape
// [in, size] where in is x's feature dimension. Calling FC twice with the
// same paramName reuses the existing weight, so shared layers see one
// parameter.
func (g *Graph) FC(x *Var, size int, paramName string) *Var {
	if x.raw == nil {
		panic(fmt.Sprintf("graph: fc: input %q is not bound", x.name))
	}
	shape := x.raw.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("graph: fc: input %q must be 2D, got %v", x.name, shape))
	}
	in := shape[1]

	w, exists := g.vars[paramName]
	if exists {
		if w.kind != KindParameter {
			panic(fmt.Sprintf("graph: fc: %q is a %s, not a parameter", paramName, w.kind))
		}
		if !w.raw.Shape().Equal([]int{in, size}) {
			panic(fmt.Sprintf("graph: fc: parameter %q has shape %v, want [%d %d]",
				paramName, w.raw.Shape(), in, size))
		}
	} else {
		w = g.register(paramName, g.xavierUniform(in, size), KindParameter)
	}

	out := g.backend.MatMul(x.raw, w.raw)
	return g.register(g.tmpName(paramName), out, KindActivation)
}

// Mean reduces a variable to its scalar mean.
func (g *Graph) Mean(x *Var) *Var {
	if x.raw == nil {
		panic(fmt.Sprintf("graph: mean: input %q is not bound", x.name))
	}
	out := g.backend.Mean(x.raw)
	return g.register(g.tmpName("mean"), out, KindActivation)
}

// Scale multiplies a variable by a constant.
func (g *Graph) Scale(x *Var, factor float64) *Var {
	if x.raw == nil {
		panic(fmt.Sprintf("graph: scale: input %q is not bound", x.name))
	}
	out := g.backend.MulScalar(x.raw, factor)
	return g.register(g.tmpName("scale"), out, KindActivation)
}

// Add sums two variables element-wise with broadcasting.
func (g *Graph) Add(a, b *Var) *Var {
	if a.raw == nil || b.raw == nil {
		panic("graph: add: input is not bound")
	}
	out := g.backend.Add(a.raw, b.raw)
	return g.register(g.tmpName("add"), out, KindActivation)
}
