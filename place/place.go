// Package place describes compute placements for network execution.
//
// A Place names a device class (CPU or GPU); SubPlaces enumerates the
// execution slots a parallel run fans out over. CPU places expose one slot
// per core (capped), GPU places expose a single slot since WebGPU presents
// one logical device.
package place

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/pardo-ml/pardo/internal/backend/cpu"
	"github.com/pardo-ml/pardo/internal/backend/webgpu"
	"github.com/pardo-ml/pardo/internal/tensor"
)

// Kind identifies a device class.
type Kind int

// Supported device classes.
const (
	KindCPU Kind = iota
	KindGPU
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindCPU:
		return "CPU"
	case KindGPU:
		return "GPU"
	default:
		return "Unknown"
	}
}

// maxCPUSlots caps the CPU fan-out so shard sizes stay meaningful on
// many-core machines.
const maxCPUSlots = 8

// Place is a concrete execution slot on a device.
type Place struct {
	Kind  Kind
	Index int
}

// CPU returns the root CPU place.
func CPU() Place {
	return Place{Kind: KindCPU}
}

// GPU returns the root GPU place.
func GPU() Place {
	return Place{Kind: KindGPU}
}

// String returns a label like "CPU:0" or "GPU:1".
func (p Place) String() string {
	return fmt.Sprintf("%s:%d", p.Kind, p.Index)
}

var gpuProbe struct {
	once      sync.Once
	available bool
}

// Available reports whether the device class can execute work on this
// machine. CPU is always available; GPU availability is probed once and
// cached for the process lifetime.
func Available(k Kind) bool {
	switch k {
	case KindCPU:
		return true
	case KindGPU:
		gpuProbe.once.Do(func() {
			gpuProbe.available = webgpu.IsAvailable()
		})
		return gpuProbe.available
	default:
		return false
	}
}

// SubPlaces enumerates the execution slots for a parallel run on p.
//
// CPU yields one slot per logical core, capped at maxCPUSlots. GPU yields a
// single slot.
func SubPlaces(p Place) []Place {
	switch p.Kind {
	case KindCPU:
		n := runtime.NumCPU()
		if n > maxCPUSlots {
			n = maxCPUSlots
		}
		places := make([]Place, n)
		for i := range places {
			places[i] = Place{Kind: KindCPU, Index: i}
		}
		return places
	case KindGPU:
		return []Place{{Kind: KindGPU}}
	default:
		return nil
	}
}

// NewBackend creates a compute backend for the place. The returned release
// function frees device resources and must be called when done; for CPU it
// is a no-op.
func NewBackend(p Place) (tensor.Backend, func(), error) {
	switch p.Kind {
	case KindCPU:
		return cpu.New(), func() {}, nil
	case KindGPU:
		b, err := webgpu.New()
		if err != nil {
			return nil, nil, err
		}
		return b, b.Release, nil
	default:
		return nil, nil, fmt.Errorf("place: unknown device kind %d", p.Kind)
	}
}
