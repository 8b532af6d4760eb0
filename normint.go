package pwa

import "math/cmplx"

// NormInt is the normalization integral: a (2, 2, nWaves, nWaves) tensor of
// acceptance-weighted wave overlaps averaged over an accepted Monte Carlo
// sample. It is read-only once built.
type NormInt struct {
	keys    []string
	refl    []Reflectivity
	n       int
	nevents int
	data    []complex128
}

// NewNormInt wraps an existing tensor, laid out as ((r1*2+r2)*n+i)*n+j.
// It is used when reloading a persisted integral.
func NewNormInt(keys []string, refl []Reflectivity, nevents int, data []complex128) (*NormInt, error) {
	n := len(keys)
	if n == 0 {
		return nil, newError(CodeInvalidInput, "normalization integral without waves")
	}
	if len(refl) != n {
		return nil, newError(CodeAlignment,
			"normalization integral: %d reflectivities for %d waves", len(refl), n,
		)
	}
	if err := checkCanonical(keys); err != nil {
		return nil, Wrap(err, "normalization integral")
	}
	for i, r := range refl {
		if !r.Valid() {
			return nil, newError(CodeInvalidInput, "normalization integral: wave %q has invalid reflectivity %d", keys[i], r)
		}
	}
	if len(data) != 4*n*n {
		return nil, newError(CodeAlignment,
			"normalization integral: got %d cells, want %d for %d waves", len(data), 4*n*n, n,
		)
	}
	ni := &NormInt{
		keys:    append([]string(nil), keys...),
		refl:    append([]Reflectivity(nil), refl...),
		n:       n,
		nevents: nevents,
		data:    append([]complex128(nil), data...),
	}
	return ni, nil
}

// ComputeNormInt accumulates amp_i·conj(amp_j)·weight over every accepted
// event into cell (refl(i), refl(j), i, j), then divides by the event count.
// alphas gives the accepted-event list and must be aligned with the waves.
// weights are optional per-event acceptance weights (nil means 1).
func ComputeNormInt(ws *WaveSet, alphas, weights []float64) (*NormInt, error) {
	nevts := len(alphas)
	if nevts == 0 {
		return nil, newError(CodeAlignment, "normalization integral over an empty accepted-event list")
	}
	if ws.NumEvents() != nevts {
		return nil, newError(CodeAlignment,
			"normalization integral: %d accepted events, waves have %d", nevts, ws.NumEvents(),
		)
	}
	if weights != nil && len(weights) != nevts {
		return nil, newError(CodeAlignment,
			"normalization integral: %d acceptance weights for %d events", len(weights), nevts,
		)
	}

	n := ws.Len()
	ni := &NormInt{
		keys:    ws.Keys(),
		refl:    make([]Reflectivity, n),
		n:       n,
		nevents: nevts,
		data:    make([]complex128, 4*n*n),
	}

	for i := 0; i < n; i++ {
		wi := ws.waves[i]
		ni.refl[i] = wi.Reflectivity
		for j := 0; j < n; j++ {
			wj := ws.waves[j]
			var sum complex128
			for ev := 0; ev < nevts; ev++ {
				v := wi.Amplitudes[ev] * cmplx.Conj(wj.Amplitudes[ev])
				if weights != nil {
					v *= complex(weights[ev], 0)
				}
				sum += v
			}
			ni.data[ni.index(wi.Reflectivity.Index(), wj.Reflectivity.Index(), i, j)] = sum / complex(float64(nevts), 0)
		}
	}

	return ni, nil
}

func (ni *NormInt) index(r1, r2, i, j int) int {
	return ((r1*2+r2)*ni.n+i)*ni.n + j
}

// At returns the cell (r1, r2, i, j).
func (ni *NormInt) At(r1, r2 Reflectivity, i, j int) complex128 {
	return ni.data[ni.index(r1.Index(), r2.Index(), i, j)]
}

func (ni *NormInt) Keys() []string { return append([]string(nil), ni.keys...) }

func (ni *NormInt) Reflectivity(i int) Reflectivity { return ni.refl[i] }

func (ni *NormInt) NumWaves() int { return ni.n }

// NumEvents returns the number of accepted events the integral was built on.
func (ni *NormInt) NumEvents() int { return ni.nevents }

// crossSector reports whether any cell (refl(i), refl(j), i, j) with
// refl(i) != refl(j) is non-zero.
func (ni *NormInt) crossSector() bool {
	for i, ri := range ni.refl {
		for j, rj := range ni.refl {
			if ri != rj && ni.At(ri, rj, i, j) != 0 {
				return true
			}
		}
	}
	return false
}

// Data returns a copy of the flat tensor.
func (ni *NormInt) Data() []complex128 { return append([]complex128(nil), ni.data...) }
