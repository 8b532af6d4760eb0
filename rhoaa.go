package pwa

import "math/cmplx"

// RhoAA is the per-event tensor
//
//	rhoAA[i,j,n] = q[n] · ρ(P, α[n])[refl(i),refl(j)] · amp_i[n] · conj(amp_j[n])
//
// stored event-contiguous for each wave pair. It is read-only once built.
type RhoAA struct {
	keys    []string
	refl    []Reflectivity
	n       int
	nevents int
	data    []complex128
}

// NewRhoAA wraps an existing tensor laid out as (i*n+j)*nevents+ev.
func NewRhoAA(keys []string, refl []Reflectivity, nevents int, data []complex128) (*RhoAA, error) {
	n := len(keys)
	if n == 0 || nevents <= 0 {
		return nil, newError(CodeInvalidInput, "rhoAA: empty shape (%d waves, %d events)", n, nevents)
	}
	if len(refl) != n {
		return nil, newError(CodeAlignment, "rhoAA: %d reflectivities for %d waves", len(refl), n)
	}
	if err := checkCanonical(keys); err != nil {
		return nil, Wrap(err, "rhoAA")
	}
	for i, r := range refl {
		if !r.Valid() {
			return nil, newError(CodeInvalidInput, "rhoAA: wave %q has invalid reflectivity %d", keys[i], r)
		}
	}
	if len(data) != n*n*nevents {
		return nil, newError(CodeAlignment,
			"rhoAA: got %d cells, want %d for %d waves x %d events", len(data), n*n*nevents, n, nevents,
		)
	}
	return &RhoAA{
		keys:    append([]string(nil), keys...),
		refl:    append([]Reflectivity(nil), refl...),
		n:       n,
		nevents: nevents,
		data:    append([]complex128(nil), data...),
	}, nil
}

// ComputeRhoAA builds the rhoAA tensor of ds for beam polarization pol in
// the given spin-density convention.
func ComputeRhoAA(ds *Dataset, pol float64, conv SpinConvention) *RhoAA {
	ws := ds.Waves
	n := ws.Len()
	nevts := ds.NumEvents()

	rho := &RhoAA{
		keys:    ws.Keys(),
		refl:    make([]Reflectivity, n),
		n:       n,
		nevents: nevts,
		data:    make([]complex128, n*n*nevts),
	}
	for i := range rho.refl {
		rho.refl[i] = ws.waves[i].Reflectivity
	}

	for ev := 0; ev < nevts; ev++ {
		sd := conv.Matrix(pol, ds.Alphas[ev])
		q := complex(ds.QFactors[ev], 0)
		for i := 0; i < n; i++ {
			wi := ws.waves[i]
			ai := q * wi.Amplitudes[ev]
			for j := 0; j < n; j++ {
				wj := ws.waves[j]
				rho.data[(i*n+j)*nevts+ev] = ai * sd.At(wi.Reflectivity, wj.Reflectivity) * cmplx.Conj(wj.Amplitudes[ev])
			}
		}
	}

	return rho
}

// At returns rhoAA[i,j,ev].
func (rho *RhoAA) At(i, j, ev int) complex128 {
	return rho.data[(i*rho.n+j)*rho.nevents+ev]
}

// pair returns the event series of wave pair (i,j).
func (rho *RhoAA) pair(i, j int) []complex128 {
	beg := (i*rho.n + j) * rho.nevents
	return rho.data[beg : beg+rho.nevents]
}

func (rho *RhoAA) Keys() []string { return append([]string(nil), rho.keys...) }

func (rho *RhoAA) Reflectivity(i int) Reflectivity { return rho.refl[i] }

func (rho *RhoAA) NumWaves() int { return rho.n }

func (rho *RhoAA) NumEvents() int { return rho.nevents }

// Data returns a copy of the flat tensor.
func (rho *RhoAA) Data() []complex128 { return append([]complex128(nil), rho.data...) }

// crossSector reports whether any cell coupling waves of opposite
// reflectivity is non-zero.
func (rho *RhoAA) crossSector() bool {
	for i := 0; i < rho.n; i++ {
		for j := 0; j < rho.n; j++ {
			if rho.refl[i] == rho.refl[j] {
				continue
			}
			for _, c := range rho.pair(i, j) {
				if c != 0 {
					return true
				}
			}
		}
	}
	return false
}
