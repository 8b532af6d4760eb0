package pwa

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

// sequence replays fixed random numbers.
type sequence struct {
	values []float64
	next   int
}

func (s *sequence) Rand() float64 {
	v := s.values[s.next]
	s.next++
	return v
}

func TestSimulateFixedRandoms(t *testing.T) {
	intensities := []float64{0.05, 0.95, 0.5, 0.999}
	rnd := &sequence{values: []float64{0.1, 0.9, 0.5, 0.99}}

	sel, err := Simulate(intensities, 1, nil, rnd)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, sel.Raw)
	// 0.5 > 0.5 is false: the comparison is strict.
	assert.Equal(t, []int{1, 3}, sel.Weighted)
	assert.Equal(t, []int{1, 3}, sel.Accepted)
	assert.Equal(t, 4, rnd.next)
}

func TestSimulateAcceptanceFlags(t *testing.T) {
	intensities := []float64{0.05, 0.95, 0.5, 0.999}
	rnd := &sequence{values: []float64{0.1, 0.9, 0.5, 0.99}}

	sel, err := Simulate(intensities, 1, []bool{true, true, true, false}, rnd)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, sel.Weighted)
	assert.Equal(t, []int{1}, sel.Accepted)

	_, err = Simulate(intensities, 1, []bool{true}, &sequence{values: make([]float64, 4)})
	assert.True(t, HasCode(err, CodeAlignment))
}

func TestSimulateErrors(t *testing.T) {
	rnd := &sequence{values: make([]float64, 4)}

	_, err := Simulate(nil, 1, nil, rnd)
	assert.True(t, HasCode(err, CodeAlignment))

	_, err = Simulate([]float64{0.5, math.NaN()}, 1, nil, rnd)
	assert.True(t, HasCode(err, CodeNumeric))

	_, err = Simulate([]float64{0.5}, 0, nil, rnd)
	assert.True(t, HasCode(err, CodeNumeric))

	_, err = Simulate([]float64{0.5}, math.Inf(1), nil, rnd)
	assert.True(t, HasCode(err, CodeNumeric))
	assert.Equal(t, 0, rnd.next)
}

func TestMaxIntensity(t *testing.T) {
	max, err := MaxIntensity([]float64{0.2, 3.5, 1})
	require.NoError(t, err)
	assert.Equal(t, 3.5, max)

	_, err = MaxIntensity(nil)
	assert.True(t, HasCode(err, CodeAlignment))

	_, err = MaxIntensity([]float64{0, 0})
	assert.True(t, HasCode(err, CodeNumeric))

	_, err = MaxIntensity([]float64{1, math.Inf(1)})
	assert.True(t, HasCode(err, CodeNumeric))
}

func TestSimulateUniformRate(t *testing.T) {
	const n = 20000
	intensities := constant(n, 0.25)
	rnd := distuv.Uniform{Min: 0, Max: 1, Src: rand.NewPCG(1, 1)}

	sel, err := Simulate(intensities, 1, nil, rnd)
	require.NoError(t, err)
	frac := float64(len(sel.Weighted)) / n
	assert.InDelta(t, 0.25, frac, 0.02)

	again, err := Simulate(intensities, 1, nil, distuv.Uniform{Min: 0, Max: 1, Src: rand.NewPCG(1, 1)})
	require.NoError(t, err)
	assert.Equal(t, sel.Weighted, again.Weighted)
}

func TestPick(t *testing.T) {
	assert.Equal(t, []float64{20, 40}, Pick([]float64{10, 20, 30, 40}, []int{1, 3}))
	assert.Empty(t, Pick([]float64{1}, nil))
}
