package pwa

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// randomWaves returns waves with reproducible pseudo-random amplitudes.
func randomWaves(t *testing.T, seed uint64, nevts int, keys []string, refl []Reflectivity) *WaveSet {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	waves := make([]Wave, len(keys))
	for i, key := range keys {
		amps := make([]complex128, nevts)
		for ev := range amps {
			amps[ev] = complex(2*rng.Float64()-1, 2*rng.Float64()-1)
		}
		waves[i] = Wave{Key: key, Reflectivity: refl[i], Amplitudes: amps}
	}
	ws, err := NewWaveSet(waves...)
	require.NoError(t, err)
	return ws
}

func randomAngles(seed uint64, n int) []float64 {
	rng := rand.New(rand.NewPCG(seed, 7))
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Pi * (2*rng.Float64() - 1)
	}
	return out
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// closeRel reports whether a and b agree within rel relative tolerance.
func closeRel(a, b, rel float64) bool {
	scale := math.Max(math.Max(math.Abs(a), math.Abs(b)), 1)
	return math.Abs(a-b) <= rel*scale
}

func closeCmplx(a, b complex128, rel float64) bool {
	return closeRel(real(a), real(b), rel) && closeRel(imag(a), imag(b), rel)
}
