package graph

import (
	"math"

	"github.com/pardo-ml/pardo/internal/tensor"
)

// xavierUniform initializes a weight tensor with Xavier/Glorot uniform
// values: U(-limit, limit) with limit = sqrt(6 / (fanIn + fanOut)).
//
// Values are drawn from the graph's seeded RNG in row-major order, so two
// graphs with the same seed produce bit-identical weights no matter which
// device they run on.
func (g *Graph) xavierUniform(fanIn, fanOut int) *tensor.RawTensor {
	raw, err := tensor.NewRaw(tensor.Shape{fanIn, fanOut}, tensor.Float32, g.backend.Device())
	if err != nil {
		panic("graph: xavier init: " + err.Error())
	}

	limit := float32(math.Sqrt(6.0 / float64(fanIn+fanOut)))
	data := raw.AsFloat32()
	for i := range data {
		data[i] = (g.rng.Float32()*2 - 1) * limit
	}
	return raw
}
