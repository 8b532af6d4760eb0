package pwa

import (
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// PhaseConvention removes the phases the likelihood cannot see. The
// objective depends on V_i·conj(V_j) only, so rotating every amplitude of a
// phase group by a common phase leaves it unchanged. The first wave of each
// group is its reference and is held real.
//
// Waves form a single group when any tensor couples the two reflectivity
// sectors, and one group per sector otherwise.
type PhaseConvention struct {
	n      int
	groups [][]int
	fixed  []int
	free   []int
}

func newPhaseConvention(refl []Reflectivity, coupled bool) *PhaseConvention {
	pc := &PhaseConvention{n: len(refl)}

	if coupled {
		all := make([]int, len(refl))
		for i := range all {
			all[i] = i
		}
		pc.groups = [][]int{all}
	} else {
		var pos, neg []int
		for i, r := range refl {
			if r == Negative {
				neg = append(neg, i)
			} else {
				pos = append(pos, i)
			}
		}
		for _, g := range [][]int{pos, neg} {
			if len(g) > 0 {
				pc.groups = append(pc.groups, g)
			}
		}
	}

	fixed := make(map[int]bool, len(pc.groups))
	for _, g := range pc.groups {
		fixed[2*g[0]+1] = true
	}
	for k := 0; k < 2*pc.n; k++ {
		if fixed[k] {
			pc.fixed = append(pc.fixed, k)
		} else {
			pc.free = append(pc.free, k)
		}
	}
	return pc
}

// NumFree returns the length of a reduced parameter vector.
func (pc *PhaseConvention) NumFree() int { return len(pc.free) }

// References returns the canonical index of each group's reference wave.
func (pc *PhaseConvention) References() []int {
	refs := make([]int, len(pc.groups))
	for i, g := range pc.groups {
		refs[i] = g[0]
	}
	return refs
}

// Fixed returns the positions of the full parameter vector held at zero.
func (pc *PhaseConvention) Fixed() []int { return append([]int(nil), pc.fixed...) }

// Expand maps a reduced vector to the full (real, imag) vector.
func (pc *PhaseConvention) Expand(reduced []float64) []float64 {
	full := make([]float64, 2*pc.n)
	for k, pos := range pc.free {
		full[pos] = reduced[k]
	}
	return full
}

// Reduce rotates each group so that its reference amplitude is real and
// non-negative, then drops the fixed entries. The likelihood value of the
// returned point equals that of full.
func (pc *PhaseConvention) Reduce(full []float64) ([]float64, error) {
	if len(full) != 2*pc.n {
		return nil, newError(CodeOrdering,
			"parameter vector of length %d for %d waves", len(full), pc.n,
		)
	}
	v, err := DecodeAmplitudes(full)
	if err != nil {
		return nil, err
	}
	for _, g := range pc.groups {
		ref := v[g[0]]
		mag := cmplx.Abs(ref)
		if mag == 0 {
			continue
		}
		rot := cmplx.Conj(ref) / complex(mag, 0)
		for _, i := range g {
			v[i] *= rot
		}
		v[g[0]] = complex(mag, 0)
	}

	rotated := EncodeAmplitudes(v)
	reduced := make([]float64, len(pc.free))
	for k, pos := range pc.free {
		reduced[k] = rotated[pos]
	}
	return reduced, nil
}

// Func wraps an objective of the full vector as one of the reduced vector.
func (pc *PhaseConvention) Func(f func([]float64) float64) func([]float64) float64 {
	return func(x []float64) float64 {
		return f(pc.Expand(x))
	}
}

// ExpandCovariance pads a covariance of the reduced vector with zero rows
// and columns at the fixed positions.
func (pc *PhaseConvention) ExpandCovariance(cov mat.Symmetric) (*mat.SymDense, error) {
	if cov.SymmetricDim() != len(pc.free) {
		return nil, newError(CodeOrdering,
			"covariance of dimension %d for %d free parameters", cov.SymmetricDim(), len(pc.free),
		)
	}
	full := mat.NewSymDense(2*pc.n, nil)
	for a, pa := range pc.free {
		for b := a; b < len(pc.free); b++ {
			full.SetSym(pa, pc.free[b], cov.At(a, b))
		}
	}
	return full, nil
}
