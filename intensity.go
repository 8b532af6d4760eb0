package pwa

import (
	"math/cmplx"
)

// IntensityModel evaluates the intensity of every event of the sample it
// was built on.
type IntensityModel interface {
	NumEvents() int
	Intensity(ev int) complex128
	// Intensities returns the real part of Intensity for every event.
	Intensities() []float64
}

// DecodeAmplitudes maps a parameter vector of (real, imag) pairs to complex
// production amplitudes, one per wave in canonical order.
func DecodeAmplitudes(params []float64) ([]complex128, error) {
	if len(params)%2 != 0 {
		return nil, newError(CodeInvalidInput, "parameter vector of odd length %d", len(params))
	}
	v := make([]complex128, len(params)/2)
	for i := range v {
		v[i] = complex(params[2*i], params[2*i+1])
	}
	return v, nil
}

// EncodeAmplitudes is the inverse of DecodeAmplitudes.
func EncodeAmplitudes(v []complex128) []float64 {
	params := make([]float64, 2*len(v))
	for i, c := range v {
		params[2*i] = real(c)
		params[2*i+1] = imag(c)
	}
	return params
}

// AmplitudeModel evaluates Σ_ij V_i·conj(V_j)·rhoAA[i,j,ev] from fitted
// production amplitudes.
type AmplitudeModel struct {
	v   []complex128
	rho *RhoAA
}

// NewAmplitudeModel returns the fast-form model for amplitudes v, given in
// the canonical order of rho's wave axes.
func NewAmplitudeModel(v []complex128, rho *RhoAA) (*AmplitudeModel, error) {
	if len(v) != rho.NumWaves() {
		return nil, newError(CodeOrdering,
			"%d production amplitudes for %d waves", len(v), rho.NumWaves(),
		)
	}
	return &AmplitudeModel{
		v:   append([]complex128(nil), v...),
		rho: rho,
	}, nil
}

func (m *AmplitudeModel) NumEvents() int { return m.rho.NumEvents() }

func (m *AmplitudeModel) Intensity(ev int) complex128 {
	var sum complex128
	n := len(m.v)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sum += m.v[i] * cmplx.Conj(m.v[j]) * m.rho.At(i, j, ev)
		}
	}
	return sum
}

func (m *AmplitudeModel) Intensities() []float64 {
	out := make([]float64, m.rho.NumEvents())
	accumulate(out, m.v, m.rho, 0, len(out))
	return out
}

// accumulate adds Re Σ_ij V_i·conj(V_j)·rhoAA[i,j,ev] into dst[ev-beg] for
// events in [beg, end). The summation order is fixed.
func accumulate(dst []float64, v []complex128, rho *RhoAA, beg, end int) {
	n := len(v)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			c := v[i] * cmplx.Conj(v[j])
			cr, ci := real(c), imag(c)
			series := rho.pair(i, j)[beg:end]
			for k, r := range series {
				dst[k] += cr*real(r) - ci*imag(r)
			}
		}
	}
}

// ResonanceModel evaluates the intensity directly from resonances at a
// fixed mass:
//
//	Σ_{r1,r2,w1,w2} V(r1,w1)·conj(V(r2,w2))·amp_w1·conj(amp_w2)·ρ[refl(w1),refl(w2)]·q
type ResonanceModel struct {
	ds   *Dataset
	pol  float64
	conv SpinConvention
	mass float64

	v   [][]complex128 // v[r][w]
	ohm [][]complex128 // ohm[w1][w2], resonance-summed
}

// NewResonanceModel computes the production amplitudes of every
// resonance/wave pair at mass once, and the resonance-summed OHM matrix.
func NewResonanceModel(resonances []Resonance, ds *Dataset, norm *NormInt, mass, pol float64, conv SpinConvention) (*ResonanceModel, error) {
	if len(resonances) == 0 {
		return nil, newError(CodeInvalidInput, "resonance model without resonances")
	}
	ws := ds.Waves
	if !sameKeys(norm.Keys(), ws.keys) {
		return nil, newError(CodeOrdering, "normalization integral wave keys do not match dataset waves")
	}

	m := &ResonanceModel{
		ds:   ds,
		pol:  pol,
		conv: conv,
		mass: mass,
		v:    make([][]complex128, len(resonances)),
	}
	for r, res := range resonances {
		m.v[r] = make([]complex128, ws.Len())
		for w, key := range ws.keys {
			v, err := ComplexV(res, key, ws, norm, mass)
			if err != nil {
				return nil, Wrapf(err, "resonance #%d, wave %q", r, key)
			}
			m.v[r][w] = v
		}
	}

	n := ws.Len()
	m.ohm = make([][]complex128, n)
	for w1 := 0; w1 < n; w1++ {
		m.ohm[w1] = make([]complex128, n)
		for w2 := 0; w2 < n; w2++ {
			var sum complex128
			for r1 := range m.v {
				for r2 := range m.v {
					sum += m.v[r1][w1] * cmplx.Conj(m.v[r2][w2])
				}
			}
			m.ohm[w1][w2] = sum
		}
	}

	return m, nil
}

// Amplitudes returns the resonance-summed production amplitude of each
// wave, Σ_r V(r,w). These feed an AmplitudeModel describing the same
// intensity.
func (m *ResonanceModel) Amplitudes() []complex128 {
	out := make([]complex128, m.ds.Waves.Len())
	for _, vr := range m.v {
		for w, v := range vr {
			out[w] += v
		}
	}
	return out
}

func (m *ResonanceModel) NumEvents() int { return m.ds.NumEvents() }

// Intensity evaluates event ev through the OHM matrix.
func (m *ResonanceModel) Intensity(ev int) complex128 {
	ws := m.ds.Waves
	sd := m.conv.Matrix(m.pol, m.ds.Alphas[ev])
	n := ws.Len()

	var sum complex128
	for w1 := 0; w1 < n; w1++ {
		a1 := ws.waves[w1]
		for w2 := 0; w2 < n; w2++ {
			a2 := ws.waves[w2]
			sum += m.ohm[w1][w2] * a1.Amplitudes[ev] * cmplx.Conj(a2.Amplitudes[ev]) *
				sd.At(a1.Reflectivity, a2.Reflectivity)
		}
	}
	return sum * complex(m.ds.QFactors[ev], 0)
}

// FullIntensity evaluates event ev with the explicit resonance double sum.
func (m *ResonanceModel) FullIntensity(ev int) complex128 {
	ws := m.ds.Waves
	sd := m.conv.Matrix(m.pol, m.ds.Alphas[ev])
	n := ws.Len()

	var sum complex128
	for r1 := range m.v {
		for r2 := range m.v {
			for w1 := 0; w1 < n; w1++ {
				a1 := ws.waves[w1]
				for w2 := 0; w2 < n; w2++ {
					a2 := ws.waves[w2]
					sum += m.v[r1][w1] * cmplx.Conj(m.v[r2][w2]) *
						a1.Amplitudes[ev] * cmplx.Conj(a2.Amplitudes[ev]) *
						sd.At(a1.Reflectivity, a2.Reflectivity)
				}
			}
		}
	}
	return sum * complex(m.ds.QFactors[ev], 0)
}

func (m *ResonanceModel) Intensities() []float64 {
	out := make([]float64, m.NumEvents())
	for ev := range out {
		out[ev] = real(m.Intensity(ev))
	}
	return out
}
