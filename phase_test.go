package pwa

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var sectorRefl = []Reflectivity{Positive, Negative, Positive}

// decoupledNormInt returns ni with every cell between waves of opposite
// reflectivity cleared.
func decoupledNormInt(t *testing.T, ni *NormInt) *NormInt {
	t.Helper()
	n := ni.NumWaves()
	data := ni.Data()
	refl := make([]Reflectivity, n)
	for i := 0; i < n; i++ {
		refl[i] = ni.Reflectivity(i)
		for j := 0; j < n; j++ {
			ri, rj := ni.Reflectivity(i), ni.Reflectivity(j)
			if ri != rj {
				data[ni.index(ri.Index(), rj.Index(), i, j)] = 0
			}
		}
	}
	out, err := NewNormInt(ni.Keys(), refl, ni.NumEvents(), data)
	require.NoError(t, err)
	return out
}

func TestPhaseConventionCoupled(t *testing.T) {
	fx := newLikelihoodFixture(t, []string{"a", "b", "c"}, sectorRefl, 60, 80)
	nll, err := NewLikelihood(fx.rho, fx.norm, 200)
	require.NoError(t, err)
	defer nll.Close()

	pc := nll.Phases()
	assert.Equal(t, []int{0}, pc.References())
	assert.Equal(t, []int{1}, pc.Fixed())
	assert.Equal(t, 5, pc.NumFree())

	full := []float64{-0.6, 0.8, 0.3, -1.1, 0.7, 0.2}
	reduced, err := pc.Reduce(full)
	require.NoError(t, err)
	require.Len(t, reduced, 5)

	back := pc.Expand(reduced)
	assert.Equal(t, 0.0, back[1])
	assert.InDelta(t, 1, back[0], 1e-15)
	want := nll.NLL(full)
	assert.True(t, closeRel(want, nll.NLL(back), 1e-12), "%v != %v", want, nll.NLL(back))
	assert.True(t, closeRel(want, pc.Func(nll.NLL)(reduced), 1e-12))

	// relative phases survive the rotation.
	v, err := DecodeAmplitudes(full)
	require.NoError(t, err)
	w, err := DecodeAmplitudes(back)
	require.NoError(t, err)
	assert.InDelta(t, cmplx.Phase(v[2]/v[0]), cmplx.Phase(w[2]/w[0]), 1e-12)
}

func TestPhaseConventionPerSector(t *testing.T) {
	fx := newLikelihoodFixture(t, []string{"a", "b", "c"}, sectorRefl, 60, 80)
	nll, err := NewLikelihood(ComputeRhoAA(fx.data, 0, HelicityBasis), decoupledNormInt(t, fx.norm), 200)
	require.NoError(t, err)
	defer nll.Close()

	pc := nll.Phases()
	assert.Equal(t, []int{0, 1}, pc.References())
	assert.Equal(t, []int{1, 3}, pc.Fixed())
	assert.Equal(t, 4, pc.NumFree())

	// rotating the negative sector alone leaves the objective unchanged.
	v := []complex128{complex(0.9, 0.1), complex(-0.4, 0.5), complex(0.2, -0.7)}
	base := nll.NLL(EncodeAmplitudes(v))
	v[1] *= cmplx.Rect(1, 1.3)
	assert.True(t, closeRel(base, nll.NLL(EncodeAmplitudes(v)), 1e-12))

	reduced, err := pc.Reduce(EncodeAmplitudes(v))
	require.NoError(t, err)
	back := pc.Expand(reduced)
	assert.Equal(t, 0.0, back[1])
	assert.Equal(t, 0.0, back[3])
	assert.Positive(t, back[2])
	assert.True(t, closeRel(base, nll.NLL(back), 1e-12))

	// a single sector is always one group.
	single := newPhaseConvention([]Reflectivity{Negative, Negative}, false)
	assert.Equal(t, []int{0}, single.References())
}

func TestPhaseConventionZeroReference(t *testing.T) {
	pc := newPhaseConvention([]Reflectivity{Positive, Positive}, false)
	reduced, err := pc.Reduce([]float64{0, 0, 0.5, -0.5})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, -0.5}, reduced)
}

func TestPhaseConventionErrors(t *testing.T) {
	pc := newPhaseConvention(sectorRefl, true)

	_, err := pc.Reduce(make([]float64, 4))
	assert.True(t, HasCode(err, CodeOrdering), "got %v", err)

	_, err = pc.ExpandCovariance(mat.NewSymDense(6, nil))
	assert.True(t, HasCode(err, CodeOrdering), "got %v", err)
}

func TestExpandCovariance(t *testing.T) {
	pc := newPhaseConvention([]Reflectivity{Positive, Positive}, false)
	cov := mat.NewSymDense(3, []float64{
		4, 1, 0.5,
		1, 2, -0.25,
		0.5, -0.25, 1,
	})
	full, err := pc.ExpandCovariance(cov)
	require.NoError(t, err)
	require.Equal(t, 4, full.SymmetricDim())

	want := mat.NewSymDense(4, []float64{
		4, 0, 1, 0.5,
		0, 0, 0, 0,
		1, 0, 2, -0.25,
		0.5, 0, -0.25, 1,
	})
	assert.True(t, mat.Equal(want, full))
}
