package place_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pardo-ml/pardo/place"
)

func TestAvailable_CPU(t *testing.T) {
	assert.True(t, place.Available(place.KindCPU))
}

func TestSubPlaces_CPU(t *testing.T) {
	subs := place.SubPlaces(place.CPU())
	require.NotEmpty(t, subs)
	assert.LessOrEqual(t, len(subs), 8)

	for i, p := range subs {
		assert.Equal(t, place.KindCPU, p.Kind)
		assert.Equal(t, i, p.Index)
	}
}

func TestSubPlaces_GPU(t *testing.T) {
	subs := place.SubPlaces(place.GPU())
	require.Len(t, subs, 1)
	assert.Equal(t, place.KindGPU, subs[0].Kind)
}

func TestPlace_String(t *testing.T) {
	assert.Equal(t, "CPU:0", place.CPU().String())
	assert.Equal(t, "GPU:0", place.GPU().String())
	assert.Equal(t, "CPU:3", place.Place{Kind: place.KindCPU, Index: 3}.String())
}

func TestNewBackend_CPU(t *testing.T) {
	backend, release, err := place.NewBackend(place.CPU())
	require.NoError(t, err)
	defer release()

	assert.Equal(t, "CPU", backend.Name())
}

func TestNewBackend_UnknownKind(t *testing.T) {
	_, _, err := place.NewBackend(place.Place{Kind: place.Kind(99)})
	assert.Error(t, err)
}
