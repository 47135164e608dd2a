// Package graph builds networks eagerly on top of an autodiff backend.
//
// A Graph owns a compute backend for one place, a seeded RNG for parameter
// initialization, and a scope of named variables. Networks implement the
// Network interface: DeclareInputs names the placeholders, BuildLoss wires
// layers and returns the scalar loss. The same Network type run with the
// same seed produces identical parameters on every place, which is what
// makes results comparable across devices.
package graph

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/pardo-ml/pardo/internal/autodiff"
	"github.com/pardo-ml/pardo/internal/tensor"
	"github.com/pardo-ml/pardo/place"
)

// Network is a model definition that can be instantiated on any place.
//
// DeclareInputs registers input placeholders with their per-sample feature
// dimensions. BuildLoss wires the forward pass and returns the scalar loss
// variable, or nil for networks without a loss head.
type Network interface {
	DeclareInputs(g *Graph)
	BuildLoss(g *Graph) *Var
}

// Backend is the autodiff-wrapped compute backend a Graph runs on.
type Backend = *autodiff.AutodiffBackend[tensor.Backend]

type inputDecl struct {
	name string
	dims []int
}

// Graph is a network under construction on one place.
type Graph struct {
	place   place.Place
	backend Backend
	release func()
	rng     *rand.Rand

	vars    map[string]*Var
	inputs  []inputDecl
	counter int
}

// New creates a graph on the given place. The seed drives parameter
// initialization; graphs created with equal seeds initialize identical
// parameters regardless of place.
func New(p place.Place, seed int64) (*Graph, error) {
	backend, release, err := place.NewBackend(p)
	if err != nil {
		return nil, fmt.Errorf("graph: backend for %s: %w", p, err)
	}

	ad := autodiff.New(backend)
	ad.Tape().StartRecording()

	return &Graph{
		place:   p,
		backend: ad,
		release: release,
		rng:     rand.New(rand.NewSource(seed)),
		vars:    make(map[string]*Var),
	}, nil
}

// Place returns the place the graph executes on.
func (g *Graph) Place() place.Place {
	return g.place
}

// Backend returns the graph's autodiff backend.
func (g *Graph) Backend() Backend {
	return g.backend
}

// Close releases the graph's device resources. The graph must not be used
// afterwards.
func (g *Graph) Close() {
	if g.release != nil {
		g.release()
		g.release = nil
	}
}

// Input declares a named input placeholder with per-sample feature
// dimensions. The batch dimension is bound later from the feed.
func (g *Graph) Input(name string, dims ...int) *Var {
	if _, exists := g.vars[name]; exists {
		panic(fmt.Sprintf("graph: duplicate variable %q", name))
	}
	v := &Var{name: name, kind: KindInput}
	g.vars[name] = v
	g.inputs = append(g.inputs, inputDecl{name: name, dims: dims})
	return v
}

// BindInputs binds feed data to the declared inputs. Each input's data
// length must be a positive multiple of its feature size; the batch
// dimension is inferred from the quotient.
func (g *Graph) BindInputs(feed map[string][]float32) error {
	for _, decl := range g.inputs {
		data, ok := feed[decl.name]
		if !ok {
			return fmt.Errorf("graph: feed is missing input %q", decl.name)
		}

		featSize := 1
		for _, d := range decl.dims {
			featSize *= d
		}
		if len(data) == 0 || len(data)%featSize != 0 {
			return fmt.Errorf("graph: input %q: data length %d is not a positive multiple of feature size %d",
				decl.name, len(data), featSize)
		}

		shape := make(tensor.Shape, 0, len(decl.dims)+1)
		shape = append(shape, len(data)/featSize)
		shape = append(shape, decl.dims...)

		raw, err := tensor.NewRaw(shape, tensor.Float32, g.backend.Device())
		if err != nil {
			return fmt.Errorf("graph: input %q: %w", decl.name, err)
		}
		copy(raw.AsFloat32(), data)

		g.vars[decl.name].raw = raw
	}
	return nil
}

// InputSpec describes a declared input placeholder.
type InputSpec struct {
	Name string
	Dims []int
}

// Inputs returns the declared input placeholders in declaration order.
func (g *Graph) Inputs() []InputSpec {
	specs := make([]InputSpec, len(g.inputs))
	for i, decl := range g.inputs {
		specs[i] = InputSpec{Name: decl.name, Dims: decl.dims}
	}
	return specs
}

// Var returns the named variable, or nil if it does not exist.
func (g *Graph) Var(name string) *Var {
	return g.vars[name]
}

// Fetch returns a copy of the named variable's data and its shape.
func (g *Graph) Fetch(name string) ([]float32, tensor.Shape, error) {
	v, ok := g.vars[name]
	if !ok {
		return nil, nil, fmt.Errorf("graph: no variable named %q", name)
	}
	if v.raw == nil {
		return nil, nil, fmt.Errorf("graph: variable %q is not bound", name)
	}
	return v.Data(), v.raw.Shape().Clone(), nil
}

// KindOf returns the kind of the named variable. For gradient names
// ("w@GRAD") it reports the kind of the variable the gradient belongs to,
// so callers can distinguish parameter gradients from input gradients.
func (g *Graph) KindOf(name string) (VarKind, error) {
	if base, isGrad := strings.CutSuffix(name, GradSuffix); isGrad {
		if v, ok := g.vars[base]; ok {
			return v.kind, nil
		}
	}
	if v, ok := g.vars[name]; ok {
		return v.kind, nil
	}
	return 0, fmt.Errorf("graph: no variable named %q", name)
}

// register adds a variable produced by a layer to the scope.
func (g *Graph) register(name string, raw *tensor.RawTensor, kind VarKind) *Var {
	if _, exists := g.vars[name]; exists {
		panic(fmt.Sprintf("graph: duplicate variable %q", name))
	}
	v := &Var{name: name, raw: raw, kind: kind}
	g.vars[name] = v
	return v
}

// tmpName generates a unique activation name.
func (g *Graph) tmpName(op string) string {
	name := fmt.Sprintf("%s_%d.tmp", op, g.counter)
	g.counter++
	return name
}
