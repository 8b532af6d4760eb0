package pwa

import (
	"fmt"
	"math"
	"math/cmplx"
)

// SpinDensity is a 2x2 photon spin-density matrix indexed by
// Reflectivity.Index().
type SpinDensity [2][2]complex128

// SpinConvention selects the basis of the spin-density matrix.
type SpinConvention int

const (
	// HelicityBasis: 0.5*[[1, -P e^{-2iα}], [-P e^{2iα}, 1]].
	HelicityBasis SpinConvention = iota
	// ReflectivityBasis: 0.5*[[1+P cos2α, iP sin2α], [-iP sin2α, 1-P cos2α]].
	ReflectivityBasis
)

func (c SpinConvention) String() string {
	switch c {
	case HelicityBasis:
		return "helicity"
	case ReflectivityBasis:
		return "reflectivity"
	}
	return fmt.Sprintf("SpinConvention(%d)", int(c))
}

// ParseSpinConvention parses "helicity" or "reflectivity".
func ParseSpinConvention(s string) (SpinConvention, error) {
	switch s {
	case "helicity":
		return HelicityBasis, nil
	case "reflectivity":
		return ReflectivityBasis, nil
	}
	return 0, newError(CodeInvalidInput, "unknown spin-density convention %q", s)
}

// Matrix returns the spin-density matrix for beam polarization pol and
// photon azimuthal angle alpha.
func (c SpinConvention) Matrix(pol, alpha float64) SpinDensity {
	if c == ReflectivityBasis {
		return ReflectivitySpinDensity(pol, alpha)
	}
	return HelicitySpinDensity(pol, alpha)
}

// HelicitySpinDensity returns the spin-density matrix in the helicity basis.
func HelicitySpinDensity(pol, alpha float64) SpinDensity {
	p := complex(pol, 0)
	return SpinDensity{
		{0.5, 0.5 * -p * cmplx.Exp(complex(0, -2*alpha))},
		{0.5 * -p * cmplx.Exp(complex(0, 2*alpha)), 0.5},
	}
}

// ReflectivitySpinDensity returns the spin-density matrix in the
// reflectivity basis.
func ReflectivitySpinDensity(pol, alpha float64) SpinDensity {
	sin, cos := math.Sincos(2 * alpha)
	return SpinDensity{
		{complex(0.5*(1+pol*cos), 0), complex(0, 0.5*pol*sin)},
		{complex(0, -0.5*pol*sin), complex(0.5*(1-pol*cos), 0)},
	}
}

// At returns the element for the reflectivities of two waves.
func (rho *SpinDensity) At(r1, r2 Reflectivity) complex128 {
	return rho[r1.Index()][r2.Index()]
}
