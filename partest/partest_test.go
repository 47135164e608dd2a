package partest_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pardo-ml/pardo/graph"
	"github.com/pardo-ml/pardo/partest"
	"github.com/pardo-ml/pardo/place"
)

type fcNet struct {
	in, size int
}

func (n *fcNet) DeclareInputs(g *graph.Graph) {
	g.Input("x", n.in)
}

func (n *fcNet) BuildLoss(g *graph.Graph) *graph.Var {
	return g.Mean(g.FC(g.Var("x"), n.size, "fc1.w"))
}

type lossLessNet struct{}

func (n *lossLessNet) DeclareInputs(g *graph.Graph) { g.Input("x", 4) }
func (n *lossLessNet) BuildLoss(g *graph.Graph) *graph.Var {
	g.FC(g.Var("x"), 2, "w")
	return nil
}

func uniformFeed(rng *rand.Rand, n int) []float32 {
	data := make([]float32, n)
	for i := range data {
		data[i] = rng.Float32()
	}
	return data
}

func TestConfigurations(t *testing.T) {
	configs := partest.Configurations()
	require.GreaterOrEqual(t, len(configs), 2)

	assert.Equal(t, "CPU", configs[0].Label)
	assert.False(t, configs[0].Parallel)
	assert.Equal(t, "ParallelCPU", configs[1].Label)
	assert.True(t, configs[1].Parallel)

	for _, cfg := range configs[2:] {
		assert.Equal(t, place.KindGPU, cfg.Place.Kind)
	}
	if !place.Available(place.KindGPU) {
		assert.Len(t, configs, 2, "GPU configurations require an adapter")
	}
}

func TestAllClose(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want bool
	}{
		{"equal", []float32{1, 2, 3}, []float32{1, 2, 3}, true},
		{"within rtol", []float32{1.05}, []float32{1.0}, true},
		{"outside rtol", []float32{1.2}, []float32{1.0}, false},
		{"near zero within atol", []float32{1e-9}, []float32{0}, true},
		{"near zero outside atol", []float32{1e-3}, []float32{0}, false},
		{"nan", []float32{float32(math.NaN())}, []float32{1}, false},
		{"length mismatch", []float32{1, 2}, []float32{1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, partest.AllClose(tt.a, tt.b, partest.RTol, partest.ATol))
		})
	}
}

func TestCompare(t *testing.T) {
	base := partest.ResultSet{
		Config: partest.Config{Label: "CPU"},
		Values: map[string][]float32{"w@GRAD": {1.0, 2.0}},
	}
	near := partest.ResultSet{
		Config: partest.Config{Label: "ParallelCPU"},
		Values: map[string][]float32{"w@GRAD": {1.01, 2.02}},
	}
	far := partest.ResultSet{
		Config: partest.Config{Label: "GPU"},
		Values: map[string][]float32{"w@GRAD": {1.5, 2.0}},
	}
	missing := partest.ResultSet{
		Config: partest.Config{Label: "ParallelGPU"},
		Values: map[string][]float32{},
	}

	assert.NoError(t, partest.Compare([]partest.ResultSet{base, near}))
	assert.NoError(t, partest.Compare([]partest.ResultSet{base}), "single result has nothing to diverge from")
	assert.Error(t, partest.Compare(nil), "empty result set is a failure")

	err := partest.Compare([]partest.ResultSet{base, near, far})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "w@GRAD")
	assert.Contains(t, err.Error(), "GPU")

	assert.Error(t, partest.Compare([]partest.ResultSet{base, missing}))
}

func TestCompare_ReportsFirstNameInOrder(t *testing.T) {
	base := partest.ResultSet{
		Config: partest.Config{Label: "CPU"},
		Values: map[string][]float32{"b@GRAD": {1.0}, "a@GRAD": {1.0}},
	}
	other := partest.ResultSet{
		Config: partest.Config{Label: "GPU"},
		Values: map[string][]float32{"b@GRAD": {5.0}, "a@GRAD": {5.0}},
	}

	// Both fetches diverge; the reported one is always the first by name.
	for i := 0; i < 20; i++ {
		err := partest.Compare([]partest.ResultSet{base, other})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "a@GRAD")
	}
}

func TestRun_RequiresLoss(t *testing.T) {
	newNet := func() graph.Network { return &lossLessNet{} }
	feed := map[string][]float32{"x": uniformFeed(rand.New(rand.NewSource(1)), 4*4)}

	_, err := partest.Run(0, newNet, feed, "w")
	require.Error(t, err, "a network that never yields a loss is a precondition failure")
	assert.Contains(t, err.Error(), "loss")
}

func TestRun_RequiresFetchNames(t *testing.T) {
	newNet := func() graph.Network { return &fcNet{in: 4, size: 2} }
	feed := map[string][]float32{"x": uniformFeed(rand.New(rand.NewSource(1)), 4*4)}

	_, err := partest.Run(0, newNet, feed)
	assert.Error(t, err)
}

func TestRun_ForwardOnly(t *testing.T) {
	newNet := func() graph.Network { return &fcNet{in: 4, size: 2} }
	feed := map[string][]float32{"x": uniformFeed(rand.New(rand.NewSource(6)), 8*4)}

	results, err := partest.Run(6, newNet, feed, "fc1.w")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(results), 2)

	// Same seed, same initializer: the parameter itself is bit-identical.
	for _, r := range results[1:] {
		assert.Equal(t, results[0].Values["fc1.w"], r.Values["fc1.w"], r.Config.Label)
	}
	require.NoError(t, partest.Compare(results))
}

// imgNet is a batch of flattened images through a single FC layer with a
// mean loss.
type imgNet struct {
	size int
}

func (n *imgNet) DeclareInputs(g *graph.Graph) {
	g.Input("img", 784)
}

func (n *imgNet) BuildLoss(g *graph.Graph) *graph.Var {
	return g.Mean(g.FC(g.Var("img"), n.size, "fc1.w"))
}

// The flagship parity check: a 784-feature image batch of 384 rows through
// a 200-wide FC layer with a mean loss. Every viable configuration must
// agree on the weight gradient.
func TestFCGradParity(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full-size parity run in short mode")
	}

	const (
		seed  = 10
		batch = 384
		size  = 200
	)
	newNet := func() graph.Network { return &imgNet{size: size} }
	feed := map[string][]float32{"img": uniformFeed(rand.New(rand.NewSource(seed)), batch*784)}

	partest.RunTest(t, seed, newNet, feed, "fc1.w"+graph.GradSuffix)
}

func TestInputGradParity(t *testing.T) {
	newNet := func() graph.Network { return &fcNet{in: 16, size: 8} }
	feed := map[string][]float32{"x": uniformFeed(rand.New(rand.NewSource(12)), 32*16)}

	partest.RunTest(t, 12, newNet, feed, "x"+graph.GradSuffix, "fc1.w"+graph.GradSuffix)
}
