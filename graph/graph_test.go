package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pardo-ml/pardo/graph"
	"github.com/pardo-ml/pardo/place"
)

func newCPUGraph(t *testing.T, seed int64) *graph.Graph {
	t.Helper()
	g, err := graph.New(place.CPU(), seed)
	require.NoError(t, err)
	t.Cleanup(g.Close)
	return g
}

func TestBindInputs_InfersBatchDim(t *testing.T) {
	g := newCPUGraph(t, 0)
	g.Input("x", 4)

	err := g.BindInputs(map[string][]float32{
		"x": {1, 2, 3, 4, 5, 6, 7, 8},
	})
	require.NoError(t, err)

	data, shape, err := g.Fetch("x")
	require.NoError(t, err)
	assert.Equal(t, []int(shape), []int{2, 4})
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, data)
}

func TestBindInputs_Errors(t *testing.T) {
	g := newCPUGraph(t, 0)
	g.Input("x", 4)

	err := g.BindInputs(map[string][]float32{})
	require.Error(t, err, "missing input must be rejected")

	err = g.BindInputs(map[string][]float32{"x": {1, 2, 3}})
	require.Error(t, err, "length not a multiple of feature size must be rejected")
}

func TestFC_CreatesParameter(t *testing.T) {
	g := newCPUGraph(t, 0)
	x := g.Input("x", 4)
	require.NoError(t, g.BindInputs(map[string][]float32{"x": make([]float32, 8)}))

	out := g.FC(x, 3, "w")

	w := g.Var("w")
	require.NotNil(t, w)
	assert.Equal(t, graph.KindParameter, w.Kind())
	assert.Equal(t, []int(w.Shape()), []int{4, 3})
	assert.Equal(t, []int(out.Shape()), []int{2, 3})
}

func TestFC_ReusesParameter(t *testing.T) {
	g := newCPUGraph(t, 0)
	x := g.Input("x", 4)
	require.NoError(t, g.BindInputs(map[string][]float32{"x": make([]float32, 8)}))

	g.FC(x, 3, "w")
	before := g.Var("w").Data()

	g.FC(x, 3, "w")
	after := g.Var("w").Data()

	assert.Equal(t, before, after, "second FC with same name must reuse the weight")
}

// Parameters are drawn from a seeded RNG so graphs built with the same seed
// start from identical weights. Cross-device comparisons depend on this.
func TestSameSeed_IdenticalParameters(t *testing.T) {
	build := func(seed int64) []float32 {
		g := newCPUGraph(t, seed)
		x := g.Input("x", 8)
		require.NoError(t, g.BindInputs(map[string][]float32{"x": make([]float32, 16)}))
		g.FC(x, 5, "w")
		return g.Var("w").Data()
	}

	assert.Equal(t, build(42), build(42))
	assert.NotEqual(t, build(42), build(43))
}

func TestAppendBackward_RegistersGradients(t *testing.T) {
	g := newCPUGraph(t, 0)
	x := g.Input("x", 4)
	require.NoError(t, g.BindInputs(map[string][]float32{
		"x": {1, 1, 1, 1, 1, 1, 1, 1},
	}))

	loss := g.Mean(g.FC(x, 3, "w"))
	require.NoError(t, g.AppendBackward(loss))

	wGrad, shape, err := g.Fetch("w" + graph.GradSuffix)
	require.NoError(t, err)
	assert.Equal(t, []int(shape), []int{4, 3})

	// loss = mean(x @ W) with x all ones: dL/dW[i,j] = batch/(batch*size*1)
	// summed over the batch = 2/6 for every entry.
	for i, v := range wGrad {
		assert.InDelta(t, 1.0/3.0, v, 1e-6, "w grad [%d]", i)
	}

	_, shape, err = g.Fetch("x" + graph.GradSuffix)
	require.NoError(t, err)
	assert.Equal(t, []int(shape), []int{2, 4})
}

func TestAppendBackward_KindOf(t *testing.T) {
	g := newCPUGraph(t, 0)
	x := g.Input("x", 4)
	require.NoError(t, g.BindInputs(map[string][]float32{"x": make([]float32, 8)}))

	loss := g.Mean(g.FC(x, 3, "w"))
	require.NoError(t, g.AppendBackward(loss))

	kind, err := g.KindOf("w" + graph.GradSuffix)
	require.NoError(t, err)
	assert.Equal(t, graph.KindParameter, kind)

	kind, err = g.KindOf("x" + graph.GradSuffix)
	require.NoError(t, err)
	assert.Equal(t, graph.KindInput, kind)

	kind, err = g.KindOf("w")
	require.NoError(t, err)
	assert.Equal(t, graph.KindParameter, kind)

	_, err = g.KindOf("nope" + graph.GradSuffix)
	assert.Error(t, err)
}

func TestAppendBackward_RequiresScalarLoss(t *testing.T) {
	g := newCPUGraph(t, 0)
	x := g.Input("x", 4)
	require.NoError(t, g.BindInputs(map[string][]float32{"x": make([]float32, 8)}))

	out := g.FC(x, 3, "w")
	assert.Error(t, g.AppendBackward(out), "2D activation is not a valid loss")
	assert.Error(t, g.AppendBackward(nil))
}

func TestAppendBackward_StopGradient(t *testing.T) {
	g := newCPUGraph(t, 0)
	x := g.Input("x", 4)
	x.StopGradient = true
	require.NoError(t, g.BindInputs(map[string][]float32{"x": make([]float32, 8)}))

	loss := g.Mean(g.FC(x, 3, "w"))
	require.NoError(t, g.AppendBackward(loss))

	assert.Nil(t, g.Var("x"+graph.GradSuffix), "stop-gradient input must not get a gradient")
	assert.NotNil(t, g.Var("w"+graph.GradSuffix))
}

func TestAppendBackwardWeighted(t *testing.T) {
	gradFor := func(weight float64) []float32 {
		g := newCPUGraph(t, 7)
		x := g.Input("x", 4)
		require.NoError(t, g.BindInputs(map[string][]float32{
			"x": {1, 2, 3, 4, 5, 6, 7, 8},
		}))
		loss := g.Mean(g.FC(x, 3, "w"))
		require.NoError(t, g.AppendBackwardWeighted(loss, weight))
		data, _, err := g.Fetch("w" + graph.GradSuffix)
		require.NoError(t, err)
		return data
	}

	full := gradFor(1.0)
	half := gradFor(0.5)
	require.Len(t, half, len(full))
	for i := range full {
		assert.InDelta(t, full[i]/2, half[i], 1e-6)
	}
}

func TestScaleAndAdd(t *testing.T) {
	g := newCPUGraph(t, 0)
	x := g.Input("x", 2)
	require.NoError(t, g.BindInputs(map[string][]float32{"x": {1, 2, 3, 4}}))

	doubled := g.Scale(x, 2)
	sum := g.Add(x, doubled)

	data, _, err := g.Fetch(sum.Name())
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 6, 9, 12}, data)
}
