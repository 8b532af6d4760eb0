package pwa

import (
	"bytes"
	"log"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type likelihoodFixture struct {
	data *Dataset
	acc  *WaveSet
	rho  *RhoAA
	norm *NormInt
}

func newLikelihoodFixture(t *testing.T, keys []string, refl []Reflectivity, ndata, nacc int) *likelihoodFixture {
	t.Helper()
	dws := randomWaves(t, 41, ndata, keys, refl)
	ds, err := NewDataset(dws, randomAngles(41, ndata), nil)
	require.NoError(t, err)
	acc := randomWaves(t, 42, nacc, keys, refl)
	norm, err := ComputeNormInt(acc, randomAngles(42, nacc), nil)
	require.NoError(t, err)
	return &likelihoodFixture{
		data: ds,
		acc:  acc,
		rho:  ComputeRhoAA(ds, 0.3, HelicityBasis),
		norm: norm,
	}
}

func TestLikelihoodHandComputed(t *testing.T) {
	ones := func(n int) []complex128 {
		out := make([]complex128, n)
		for i := range out {
			out[i] = 1
		}
		return out
	}
	dws, err := NewWaveSet(Wave{Key: "1++0+", Reflectivity: Positive, Amplitudes: ones(5)})
	require.NoError(t, err)
	ds, err := NewDataset(dws, constant(5, 0), nil)
	require.NoError(t, err)
	acc, err := NewWaveSet(Wave{Key: "1++0+", Reflectivity: Positive, Amplitudes: ones(4)})
	require.NoError(t, err)
	norm, err := ComputeNormInt(acc, constant(4, 0), nil)
	require.NoError(t, err)

	nll, err := NewLikelihood(ComputeRhoAA(ds, 0, HelicityBasis), norm, 8)
	require.NoError(t, err)
	defer nll.Close()

	assert.Equal(t, 0.5, nll.EtaX())
	assert.Equal(t, 2, nll.NumParams())
	assert.Equal(t, []string{"1++0+"}, nll.Keys())

	got, err := nll.Evaluate([]float64{2, 0})
	require.NoError(t, err)
	assert.InDelta(t, 2-5*math.Ln2, got, 1e-12)
	assert.Equal(t, got, nll.NLL([]float64{2, 0}))

	// the phase of a single wave does not matter.
	rot, err := nll.Evaluate([]float64{0, 2})
	require.NoError(t, err)
	assert.InDelta(t, got, rot, 1e-12)

	n, err := nll.ExpectedEvents([]float64{2, 0})
	require.NoError(t, err)
	assert.InDelta(t, 2, n, 1e-12)
}

func TestLikelihoodDeterministic(t *testing.T) {
	fx := newLikelihoodFixture(t, []string{"a", "b", "c"}, []Reflectivity{Positive, Negative, Positive}, 500, 800)
	nll, err := NewLikelihood(fx.rho, fx.norm, 2000)
	require.NoError(t, err)
	defer nll.Close()

	params := []float64{1.2, 0, -0.3, 0.8, 0.5, -0.1}
	first := nll.NLL(params)
	require.False(t, math.IsInf(first, 0))
	for i := 0; i < 5; i++ {
		assert.Equal(t, math.Float64bits(first), math.Float64bits(nll.NLL(params)))
	}
}

func TestLikelihoodPermutationInvariance(t *testing.T) {
	build := func(keys []string) *Likelihood {
		dws := randomWaves(t, 51, 300, []string{"a", "b", "c"}, []Reflectivity{Positive, Negative, Positive})
		acc := randomWaves(t, 52, 400, []string{"a", "b", "c"}, []Reflectivity{Positive, Negative, Positive})

		rename := func(ws *WaveSet) *WaveSet {
			waves := make([]Wave, ws.Len())
			for i := range waves {
				waves[i] = ws.Wave(i)
				waves[i].Key = keys[i]
			}
			out, err := NewWaveSet(waves...)
			require.NoError(t, err)
			return out
		}
		dws, acc = rename(dws), rename(acc)

		ds, err := NewDataset(dws, randomAngles(51, 300), nil)
		require.NoError(t, err)
		norm, err := ComputeNormInt(acc, randomAngles(52, 400), nil)
		require.NoError(t, err)
		nll, err := NewLikelihood(ComputeRhoAA(ds, 0.6, ReflectivityBasis), norm, 1000)
		require.NoError(t, err)
		return nll
	}

	ordered := build([]string{"a", "b", "c"})
	defer ordered.Close()
	// the same waves under keys whose canonical order is reversed.
	reversed := build([]string{"z", "y", "x"})
	defer reversed.Close()
	require.Equal(t, []string{"x", "y", "z"}, reversed.Keys())

	v := []complex128{complex(1, 0), complex(0.4, -0.7), complex(-0.2, 0.3)}
	a, err := ordered.Evaluate(EncodeAmplitudes(v))
	require.NoError(t, err)
	b, err := reversed.Evaluate(EncodeAmplitudes([]complex128{v[2], v[1], v[0]}))
	require.NoError(t, err)
	assert.True(t, closeRel(a, b, 1e-12), "%v != %v", a, b)
}

func TestLikelihoodInvalidPoints(t *testing.T) {
	fx := newLikelihoodFixture(t, []string{"a", "b"}, []Reflectivity{Positive, Negative}, 50, 80)

	var buf bytes.Buffer
	nll, err := NewLikelihood(fx.rho, fx.norm, 100,
		WithLogger(log.New(&buf, "", 0)),
		WithMaxInvalid(3),
	)
	require.NoError(t, err)
	defer nll.Close()

	zero := make([]float64, 4)
	assert.True(t, math.IsInf(nll.NLL(zero), +1))
	_, err = nll.Evaluate(zero)
	assert.True(t, HasCode(err, CodeNumeric), "got %v", err)
	assert.Contains(t, buf.String(), "invalid point")
	assert.NoError(t, nll.Err())

	// a valid point resets the count.
	_, err = nll.Evaluate([]float64{1, 0, 1, 0})
	require.NoError(t, err)
	nll.NLL(zero)
	nll.NLL(zero)
	assert.NoError(t, nll.Err())
	nll.NLL(zero)
	assert.True(t, HasCode(nll.Err(), CodeNumeric), "got %v", nll.Err())

	_, err = nll.Evaluate([]float64{1, 0})
	assert.True(t, HasCode(err, CodeOrdering))

	nan := []float64{math.NaN(), 0, 1, 0}
	assert.True(t, math.IsInf(nll.NLL(nan), +1))
}

func TestLikelihoodConstructionErrors(t *testing.T) {
	fx := newLikelihoodFixture(t, []string{"a", "b"}, []Reflectivity{Positive, Negative}, 20, 30)

	other := randomWaves(t, 60, 30, []string{"a", "c"}, []Reflectivity{Positive, Negative})
	norm, err := ComputeNormInt(other, randomAngles(60, 30), nil)
	require.NoError(t, err)
	_, err = NewLikelihood(fx.rho, norm, 100)
	assert.True(t, HasCode(err, CodeOrdering), "got %v", err)

	flipped := randomWaves(t, 61, 30, []string{"a", "b"}, []Reflectivity{Positive, Positive})
	norm, err = ComputeNormInt(flipped, randomAngles(61, 30), nil)
	require.NoError(t, err)
	_, err = NewLikelihood(fx.rho, norm, 100)
	require.Error(t, err)
	assert.True(t, HasCode(err, CodeOrdering), "got %v", err)
	assert.Contains(t, err.Error(), `"b"`)

	_, err = NewLikelihood(fx.rho, fx.norm, 10)
	assert.True(t, HasCode(err, CodeInvalidInput), "got %v", err)

	_, err = NewLikelihood(fx.rho, nil, 100)
	assert.True(t, HasCode(err, CodeInvalidInput), "got %v", err)

	_, err = NewLikelihood(fx.rho, fx.norm, 100, WithMaxInvalid(-1))
	assert.True(t, HasCode(err, CodeInvalidInput), "got %v", err)
}

func TestLikelihoodWorkers(t *testing.T) {
	fx := newLikelihoodFixture(t, []string{"a", "b", "c"}, []Reflectivity{Positive, Negative, Negative}, 1001, 500)

	serial, err := NewLikelihood(fx.rho, fx.norm, 1000)
	require.NoError(t, err)
	defer serial.Close()
	parallel, err := NewLikelihood(fx.rho, fx.norm, 1000, WithWorkers(4, 0))
	require.NoError(t, err)
	defer parallel.Close()
	require.NotNil(t, parallel.pool)
	assert.Equal(t, 4, parallel.pool.NumWorkers())

	for _, params := range [][]float64{
		{1, 0, 0.5, 0.5, -0.3, 0.2},
		{0.1, 0.2, 3, -1, 0, 1},
	} {
		want := serial.NLL(params)
		got := parallel.NLL(params)
		assert.True(t, closeRel(want, got, 1e-12), "%v != %v", want, got)
		assert.Equal(t, math.Float64bits(got), math.Float64bits(parallel.NLL(params)))
	}

	_, err = parallel.Evaluate(make([]float64, 6))
	assert.True(t, HasCode(err, CodeNumeric), "got %v", err)
	assert.NoError(t, parallel.Err())
}

func TestPool(t *testing.T) {
	fx := newLikelihoodFixture(t, []string{"a"}, []Reflectivity{Positive}, 3, 3)

	pool, err := NewPool(fx.rho, 8, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, pool.NumWorkers())

	v := []complex128{1}
	buf := make([]float64, 3)
	want, err := shardDataTerm(buf, v, fx.rho, 0, 3)
	require.NoError(t, err)
	got, err := pool.DataTerm(v)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)

	require.NoError(t, pool.Close())
	require.NoError(t, pool.Close())

	_, err = pool.DataTerm(v)
	assert.True(t, HasCode(err, CodeResource), "got %v", err)

	_, err = NewPool(fx.rho, 0, 0)
	assert.True(t, HasCode(err, CodeInvalidInput))
}

func TestPoolDeadline(t *testing.T) {
	fx := newLikelihoodFixture(t, []string{"a", "b"}, []Reflectivity{Positive, Negative}, 30, 40)

	// the worker of shard 1, events [10, 20), hangs until released.
	release := make(chan struct{})
	defer close(release)
	stall := func(buf []float64, v []complex128, rho *RhoAA, beg, end int) (float64, error) {
		if beg == 10 {
			<-release
		}
		return shardDataTerm(buf, v, rho, beg, end)
	}

	deadline := 50 * time.Millisecond
	pool, err := newPool(fx.rho, 3, deadline, stall)
	require.NoError(t, err)
	nll, err := NewLikelihood(fx.rho, fx.norm, 100)
	require.NoError(t, err)
	nll.pool = pool

	params := []float64{1, 0, 0.5, -0.5}
	_, err = nll.Evaluate(params)
	require.Error(t, err)
	assert.True(t, HasCode(err, CodeResource), "got %v", err)
	assert.Contains(t, err.Error(), "shard 1 [10, 20)")
	assert.Equal(t, err, nll.Err())
	assert.True(t, math.IsInf(nll.NLL(params), +1))

	start := time.Now()
	_, again := pool.DataTerm([]complex128{1, 1i})
	assert.Less(t, time.Since(start), deadline)
	assert.Equal(t, err, again)

	done := make(chan error, 1)
	go func() { done <- nll.Close() }()
	select {
	case cerr := <-done:
		assert.Equal(t, err, cerr)
	case <-time.After(time.Second):
		t.Fatal("Close waited on a hung worker")
	}
}
