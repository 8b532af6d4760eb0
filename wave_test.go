package pwa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaveSetCanonicalOrder(t *testing.T) {
	ws, err := NewWaveSet(
		Wave{Key: "2++1+", Reflectivity: Positive, Amplitudes: []complex128{1, 2}},
		Wave{Key: "0-+0+", Reflectivity: Positive, Amplitudes: []complex128{3, 4}},
		Wave{Key: "1-+1-", Reflectivity: Negative, Amplitudes: []complex128{5, 6}},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"0-+0+", "1-+1-", "2++1+"}, ws.Keys())
	assert.Equal(t, 3, ws.Len())
	assert.Equal(t, 2, ws.NumEvents())
	assert.Equal(t, []complex128{5, 6}, ws.Wave(1).Amplitudes)
	assert.Equal(t, Negative, ws.Wave(1).Reflectivity)

	i, err := ws.Index("2++1+")
	require.NoError(t, err)
	assert.Equal(t, 2, i)

	_, err = ws.Index("4++1+")
	assert.True(t, HasCode(err, CodeInvalidInput))

	keys := ws.Keys()
	keys[0] = "zzz"
	assert.Equal(t, "0-+0+", ws.Keys()[0])
}

func TestWaveSetErrors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		waves []Wave
		code  string
	}{
		{
			name: "empty",
			code: CodeInvalidInput,
		},
		{
			name: "misaligned",
			waves: []Wave{
				{Key: "a", Reflectivity: Positive, Amplitudes: []complex128{1, 2}},
				{Key: "b", Reflectivity: Positive, Amplitudes: []complex128{1}},
			},
			code: CodeAlignment,
		},
		{
			name: "duplicate",
			waves: []Wave{
				{Key: "a", Reflectivity: Positive, Amplitudes: []complex128{1}},
				{Key: "a", Reflectivity: Negative, Amplitudes: []complex128{1}},
			},
			code: CodeInvalidInput,
		},
		{
			name: "reflectivity",
			waves: []Wave{
				{Key: "a", Reflectivity: 0, Amplitudes: []complex128{1}},
			},
			code: CodeInvalidInput,
		},
		{
			name: "empty-key",
			waves: []Wave{
				{Reflectivity: Positive, Amplitudes: []complex128{1}},
			},
			code: CodeInvalidInput,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewWaveSet(tc.waves...)
			require.Error(t, err)
			assert.Equal(t, tc.code, GetCode(err))
		})
	}
}

func TestReflectivity(t *testing.T) {
	assert.Equal(t, 0, Positive.Index())
	assert.Equal(t, 1, Negative.Index())
	assert.Equal(t, "+", Positive.String())
	assert.Equal(t, "-", Negative.String())
	assert.False(t, Reflectivity(2).Valid())
}

func TestDataset(t *testing.T) {
	ws := randomWaves(t, 1, 4, []string{"a"}, []Reflectivity{Positive})

	ds, err := NewDataset(ws, []float64{0, 1, 2, 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1}, ds.QFactors)
	assert.Equal(t, 4, ds.NumEvents())

	_, err = NewDataset(ws, []float64{0, 1, 2}, nil)
	assert.True(t, HasCode(err, CodeAlignment))

	_, err = NewDataset(ws, []float64{0, 1, 2, 3}, []float64{1})
	assert.True(t, HasCode(err, CodeAlignment))

	_, err = NewDataset(ws, nil, nil)
	assert.True(t, HasCode(err, CodeAlignment))
}
