// Package partest runs a network under every viable execution
// configuration and checks that the numbers agree.
//
// A configuration is a device place plus a serial/parallel flag. The same
// network, seed and feed are run under each configuration; fetched values
// are compared pairwise against the first configuration with a relative
// tolerance. Gradients accumulate in different orders on different devices
// and fan-outs, so the tolerance is loose by design.
package partest

import (
	"fmt"
	"math"
	"sort"
	"testing"

	"github.com/pardo-ml/pardo/graph"
	"github.com/pardo-ml/pardo/pardo"
	"github.com/pardo-ml/pardo/place"
)

// Comparison tolerances. RTol dominates for values of normal magnitude;
// ATol keeps near-zero values from failing on noise.
const (
	RTol = 0.1
	ATol = 1e-8
)

// Config is one execution configuration.
type Config struct {
	Label    string
	Place    place.Place
	Parallel bool
}

// Configurations enumerates the viable configurations on this machine.
// CPU configurations are always present; GPU configurations are included
// only when a GPU adapter is available.
func Configurations() []Config {
	configs := []Config{
		{Label: "CPU", Place: place.CPU()},
		{Label: "ParallelCPU", Place: place.CPU(), Parallel: true},
	}
	if place.Available(place.KindGPU) {
		configs = append(configs,
			Config{Label: "GPU", Place: place.GPU()},
			Config{Label: "ParallelGPU", Place: place.GPU(), Parallel: true},
		)
	}
	return configs
}

// ResultSet holds the fetched values from one configuration.
type ResultSet struct {
	Config Config
	Loss   float32
	Values map[string][]float32
}

// Run executes the network under every configuration and fetches the named
// variables. Every run must produce a loss; a network whose BuildLoss
// returns nil is a precondition failure. The backward pass always runs, so
// gradient names are fetchable alongside forward values.
func Run(seed int64, newNet func() graph.Network, feed map[string][]float32, fetch ...string) ([]ResultSet, error) {
	if len(fetch) == 0 {
		return nil, fmt.Errorf("partest: fetch list must not be empty")
	}

	var results []ResultSet
	for _, cfg := range Configurations() {
		result, err := runOne(cfg, seed, newNet, feed, fetch)
		if err != nil {
			return nil, fmt.Errorf("partest: %s: %w", cfg.Label, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func runOne(cfg Config, seed int64, newNet func() graph.Network, feed map[string][]float32, fetch []string) (ResultSet, error) {
	f, err := pardo.Do(cfg.Place, cfg.Parallel, seed, newNet, feed)
	if err != nil {
		return ResultSet{}, err
	}
	defer f.Close()

	result := ResultSet{Config: cfg, Values: make(map[string][]float32, len(fetch))}

	result.Loss, err = f.Loss()
	if err != nil {
		return ResultSet{}, fmt.Errorf("network did not produce a loss: %w", err)
	}
	if err := f.Backward(); err != nil {
		return ResultSet{}, err
	}

	for _, name := range fetch {
		data, err := f.Fetch(name)
		if err != nil {
			return ResultSet{}, err
		}
		result.Values[name] = data
	}

	return result, nil
}

// Compare checks every result set against the first one. Fetches are
// checked in name order, so the error names the same fetch and
// configuration pair on every run.
func Compare(results []ResultSet) error {
	if len(results) == 0 {
		return fmt.Errorf("partest: no results to compare")
	}
	if len(results) == 1 {
		return nil
	}

	base := results[0]
	names := make([]string, 0, len(base.Values))
	for name := range base.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, other := range results[1:] {
		for _, name := range names {
			want := base.Values[name]
			got, ok := other.Values[name]
			if !ok {
				return fmt.Errorf("partest: %s did not fetch %q", other.Config.Label, name)
			}
			if len(got) != len(want) {
				return fmt.Errorf("partest: %q: %s returned %d values, %s returned %d",
					name, base.Config.Label, len(want), other.Config.Label, len(got))
			}
			if !AllClose(want, got, RTol, ATol) {
				return fmt.Errorf("partest: %q differs between %s and %s",
					name, base.Config.Label, other.Config.Label)
			}
		}
	}
	return nil
}

// RunTest runs the network under every configuration, compares the fetched
// values, and fails the test on any divergence.
func RunTest(t testing.TB, seed int64, newNet func() graph.Network, feed map[string][]float32, fetch ...string) {
	t.Helper()

	results, err := Run(seed, newNet, feed, fetch...)
	if err != nil {
		t.Fatal(err)
	}
	if err := Compare(results); err != nil {
		t.Fatal(err)
	}
}

// AllClose reports whether every pair of elements satisfies
// |a-b| <= atol + rtol*|b|, matching NumPy's allclose.
func AllClose(a, b []float32, rtol, atol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		av := float64(a[i])
		bv := float64(b[i])
		if math.IsNaN(av) || math.IsNaN(bv) {
			return false
		}
		if math.Abs(av-bv) > atol+rtol*math.Abs(bv) {
			return false
		}
	}
	return true
}
