// Package pardo fans a network out over the sub-places of a device and
// merges per-shard results back into whole-batch values.
//
// A serial run is the degenerate fan-out over one place. A parallel run
// splits the feed rows across sub-places, builds an independent graph per
// place with the same seed, and aggregates losses and gradients so the
// merged numbers match a serial run on the full batch:
//
//   - loss       = sum over places of (rows_p / rows) * loss_p
//   - param grad = sum of place gradients (backward seeded with rows_p / rows)
//   - input grad = concatenation of place gradients along the batch dim
package pardo

import (
	"fmt"
	"sync"

	"github.com/pardo-ml/pardo/graph"
	"github.com/pardo-ml/pardo/place"
)

// Fanout is a network instantiated across one or more places with the feed
// sharded between them.
type Fanout struct {
	places []place.Place
	graphs []*graph.Graph
	losses []*graph.Var

	shardRows []int // rows per place
	totalRows int

	backwardDone bool
}

// Do builds the network on p and returns the resulting fan-out.
//
// With parallel=false the network runs on p itself with the whole feed.
// With parallel=true the feed rows are split across place.SubPlaces(p),
// sizes differing by at most one; places left without rows are dropped.
// Every place gets a fresh network instance and a graph seeded with the
// same seed, so parameters are identical across places. A non-scalar loss
// from BuildLoss is reduced to its mean.
func Do(p place.Place, parallel bool, seed int64, newNet func() graph.Network, feed map[string][]float32) (*Fanout, error) {
	places := []place.Place{p}
	if parallel {
		places = place.SubPlaces(p)
		if len(places) == 0 {
			return nil, fmt.Errorf("pardo: no sub-places for %s", p)
		}
	}

	// Probe the input declarations to learn feature sizes before sharding.
	specs, err := probeInputs(newNet)
	if err != nil {
		return nil, err
	}

	totalRows, err := batchRows(specs, feed)
	if err != nil {
		return nil, err
	}

	shardRows := splitRows(totalRows, len(places))
	// Drop places that received no rows (batch smaller than fan-out).
	for len(shardRows) > 0 && shardRows[len(shardRows)-1] == 0 {
		shardRows = shardRows[:len(shardRows)-1]
		places = places[:len(shardRows)]
	}

	f := &Fanout{
		places:    places,
		graphs:    make([]*graph.Graph, len(places)),
		losses:    make([]*graph.Var, len(places)),
		shardRows: shardRows,
		totalRows: totalRows,
	}

	var wg sync.WaitGroup
	errs := make([]error, len(places))
	rowOffset := 0
	for i := range places {
		shardFeed := sliceFeed(specs, feed, rowOffset, shardRows[i])
		rowOffset += shardRows[i]

		wg.Add(1)
		go func(i int, subPlace place.Place, shardFeed map[string][]float32) {
			defer wg.Done()

			g, err := graph.New(subPlace, seed)
			if err != nil {
				errs[i] = err
				return
			}
			f.graphs[i] = g

			net := newNet()
			net.DeclareInputs(g)
			if err := g.BindInputs(shardFeed); err != nil {
				errs[i] = err
				return
			}
			loss := net.BuildLoss(g)
			if loss != nil && loss.Raw() != nil && loss.Raw().Shape().NumElements() != 1 {
				// An unreduced loss is averaged to a scalar, same as a
				// network that ends in an explicit mean.
				loss = g.Mean(loss)
			}
			f.losses[i] = loss
		}(i, places[i], shardFeed)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("pardo: %w", err)
		}
	}

	return f, nil
}

// Places returns the places the fan-out runs on.
func (f *Fanout) Places() []place.Place {
	return f.places
}

// ShardRows returns the number of feed rows assigned to each place.
func (f *Fanout) ShardRows() []int {
	return f.shardRows
}

// Loss returns the batch-weighted aggregate loss across places.
func (f *Fanout) Loss() (float32, error) {
	var total float64
	for i, loss := range f.losses {
		if loss == nil {
			return 0, fmt.Errorf("pardo: network has no loss")
		}
		data := loss.Data()
		if len(data) != 1 {
			return 0, fmt.Errorf("pardo: loss on %s is not scalar", f.places[i])
		}
		total += float64(data[0]) * float64(f.shardRows[i]) / float64(f.totalRows)
	}
	return float32(total), nil
}

// Backward runs a backward pass on every place, each seeded with the
// place's share of the batch so summed parameter gradients equal the
// serial gradients.
func (f *Fanout) Backward() error {
	if f.backwardDone {
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, len(f.graphs))
	for i := range f.graphs {
		if f.losses[i] == nil {
			return fmt.Errorf("pardo: backward requires a loss")
		}

		weight := float64(f.shardRows[i]) / float64(f.totalRows)
		wg.Add(1)
		go func(i int, weight float64) {
			defer wg.Done()
			errs[i] = f.graphs[i].AppendBackwardWeighted(f.losses[i], weight)
		}(i, weight)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("pardo: %w", err)
		}
	}

	f.backwardDone = true
	return nil
}

// Fetch returns the merged value of a named variable across places.
//
// Merge rules by variable kind:
//   - parameter:          identical on every place, taken from the first
//   - parameter gradient: element-wise sum across places
//   - input or input gradient: concatenated along the batch dimension
//   - anything else:      taken from the first place
func (f *Fanout) Fetch(name string) ([]float32, error) {
	kind, err := f.graphs[0].KindOf(name)
	if err != nil {
		return nil, fmt.Errorf("pardo: %w", err)
	}

	isGrad := len(name) > len(graph.GradSuffix) &&
		name[len(name)-len(graph.GradSuffix):] == graph.GradSuffix

	switch {
	case kind == graph.KindParameter && isGrad:
		return f.fetchSummed(name)
	case kind == graph.KindInput:
		return f.fetchConcat(name)
	default:
		data, _, err := f.graphs[0].Fetch(name)
		if err != nil {
			return nil, fmt.Errorf("pardo: %w", err)
		}
		return data, nil
	}
}

func (f *Fanout) fetchSummed(name string) ([]float32, error) {
	var out []float32
	for _, g := range f.graphs {
		data, _, err := g.Fetch(name)
		if err != nil {
			return nil, fmt.Errorf("pardo: %w", err)
		}
		if out == nil {
			out = data
			continue
		}
		if len(data) != len(out) {
			return nil, fmt.Errorf("pardo: %q has inconsistent sizes across places", name)
		}
		for i, v := range data {
			out[i] += v
		}
	}
	return out, nil
}

func (f *Fanout) fetchConcat(name string) ([]float32, error) {
	var out []float32
	for _, g := range f.graphs {
		data, _, err := g.Fetch(name)
		if err != nil {
			return nil, fmt.Errorf("pardo: %w", err)
		}
		out = append(out, data...)
	}
	return out, nil
}

// Close releases all per-place resources.
func (f *Fanout) Close() {
	for _, g := range f.graphs {
		if g != nil {
			g.Close()
		}
	}
}

// probeInputs instantiates the network on a throwaway CPU graph to read
// its input declarations.
func probeInputs(newNet func() graph.Network) ([]graph.InputSpec, error) {
	g, err := graph.New(place.CPU(), 0)
	if err != nil {
		return nil, fmt.Errorf("pardo: %w", err)
	}
	defer g.Close()

	newNet().DeclareInputs(g)
	specs := g.Inputs()
	if len(specs) == 0 {
		return nil, fmt.Errorf("pardo: network declares no inputs")
	}
	return specs, nil
}

// batchRows computes the shared batch row count and validates that every
// input's data divides evenly into rows.
func batchRows(specs []graph.InputSpec, feed map[string][]float32) (int, error) {
	rows := -1
	for _, spec := range specs {
		data, ok := feed[spec.Name]
		if !ok {
			return 0, fmt.Errorf("pardo: feed is missing input %q", spec.Name)
		}

		featSize := 1
		for _, d := range spec.Dims {
			featSize *= d
		}
		if len(data) == 0 || len(data)%featSize != 0 {
			return 0, fmt.Errorf("pardo: input %q: data length %d is not a positive multiple of feature size %d",
				spec.Name, len(data), featSize)
		}

		n := len(data) / featSize
		if rows == -1 {
			rows = n
		} else if n != rows {
			return 0, fmt.Errorf("pardo: input %q has %d rows, want %d", spec.Name, n, rows)
		}
	}
	return rows, nil
}

// splitRows distributes n rows over k shards with sizes differing by at
// most one; earlier shards take the remainder.
func splitRows(n, k int) []int {
	rows := make([]int, k)
	base := n / k
	rem := n % k
	for i := range rows {
		rows[i] = base
		if i < rem {
			rows[i]++
		}
	}
	return rows
}

// sliceFeed extracts the rows [offset, offset+count) of every input.
func sliceFeed(specs []graph.InputSpec, feed map[string][]float32, offset, count int) map[string][]float32 {
	shard := make(map[string][]float32, len(specs))
	for _, spec := range specs {
		featSize := 1
		for _, d := range spec.Dims {
			featSize *= d
		}
		data := feed[spec.Name]
		shard[spec.Name] = data[offset*featSize : (offset+count)*featSize]
	}
	return shard
}
