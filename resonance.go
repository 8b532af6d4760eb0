package pwa

import (
	"math"
	"math/cmplx"
)

// Resonance is a hypothesized intermediate state decaying into the waves
// of a WaveSet. Weights[i] is the coupling to the i-th wave in canonical
// order.
type Resonance struct {
	Strength float64
	Weights  []float64
	Mass     float64
	Width    float64
	Phase    float64
}

// Phi returns the Breit-Wigner phase of r at mass m.
// It is exactly π/2 on resonance.
func Phi(m float64, r Resonance) float64 {
	m2 := m * m
	r2 := r.Mass * r.Mass
	if m2 == r2 {
		return math.Pi / 2
	}
	return math.Atan2(r.Width*r.Mass, m2-r2)
}

// lineshape is the squared relativistic Breit-Wigner normalized to 1 at
// the pole.
func lineshape(m float64, r Resonance) float64 {
	mg := r.Mass * r.Width
	d := m*m - r.Mass*r.Mass
	den := d*d + mg*mg
	if den == 0 {
		// zero width exactly on the pole.
		return 1
	}
	return mg * mg / den
}

// MagV returns the magnitude of the production amplitude of wave in ws
// from resonance r at mass m.
//
// The channel weights are normalized through the diagonal of the
// normalization integral so that Σ_k |V_k|² N[k,k] = Strength·BW²(m).
func MagV(r Resonance, wave string, ws *WaveSet, norm *NormInt, m float64) (float64, error) {
	idx, err := ws.Index(wave)
	if err != nil {
		return 0, err
	}
	if len(r.Weights) != ws.Len() {
		return 0, newError(CodeInvalidInput,
			"resonance (mass=%v) has %d channel weights for %d waves",
			r.Mass, len(r.Weights), ws.Len(),
		)
	}
	if !sameKeys(norm.Keys(), ws.keys) {
		return 0, newError(CodeOrdering, "normalization integral wave keys do not match wave set")
	}

	den := 0.0
	for k, w := range r.Weights {
		refl := ws.waves[k].Reflectivity
		den += w * w * real(norm.At(refl, refl, k, k))
	}
	if den <= 0 || math.IsNaN(den) {
		return 0, newError(CodeNumeric,
			"resonance (mass=%v): non-positive weighted normalization %v", r.Mass, den,
		)
	}

	return math.Abs(r.Weights[idx]) * math.Sqrt(r.Strength*lineshape(m, r)/den), nil
}

// ComplexV returns the complex production amplitude of wave from r at mass m.
func ComplexV(r Resonance, wave string, ws *WaveSet, norm *NormInt, m float64) (complex128, error) {
	mag, err := MagV(r, wave, ws, norm, m)
	if err != nil {
		return 0, err
	}
	return complex(mag, 0) * cmplx.Exp(complex(0, Phi(m, r)+r.Phase)), nil
}
