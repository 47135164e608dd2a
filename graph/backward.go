package graph

import (
	"fmt"
	"sort"

	"github.com/pardo-ml/pardo/internal/autodiff"
	"github.com/pardo-ml/pardo/internal/tensor"
)

// AppendBackward runs a backward pass from the scalar loss and registers a
// gradient variable name+"@GRAD" for every parameter and input that
// received one.
func (g *Graph) AppendBackward(loss *Var) error {
	return g.AppendBackwardWeighted(loss, 1.0)
}

// AppendBackwardWeighted runs a backward pass seeded with weight instead of
// one, computing d(weight*loss)/d(v) for every variable v. Sharded runs use
// this to weight each shard's contribution by its share of the batch, so the
// summed gradients across shards equal the single-shard gradients exactly.
func (g *Graph) AppendBackwardWeighted(loss *Var, weight float64) error {
	if loss == nil {
		return fmt.Errorf("graph: backward requires a loss variable")
	}
	if loss.raw == nil {
		return fmt.Errorf("graph: loss %q is not bound", loss.name)
	}
	if loss.raw.Shape().NumElements() != 1 {
		return fmt.Errorf("graph: loss %q must be scalar, got shape %v", loss.name, loss.raw.Shape())
	}

	lossT := tensor.New[float32](loss.raw, g.backend)
	grads := autodiff.BackwardScaled(lossT, g.backend, weight)

	// Deterministic registration order.
	names := make([]string, 0, len(g.vars))
	for name, v := range g.vars {
		if v.kind == KindParameter || v.kind == KindInput {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		v := g.vars[name]
		if v.StopGradient || v.raw == nil {
			continue
		}
		gradRaw, ok := grads[v.raw]
		if !ok {
			continue
		}
		g.register(name+GradSuffix, gradRaw, KindGradient)
	}

	return nil
}
