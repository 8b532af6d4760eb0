package pwaio

import (
	"io"
	"os"
	"time"

	"go-hep.org/x/hep/hbook"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/decibelcooper/pwa"
)

// FitResult is the persisted outcome of a fit in one mass bin.
type FitResult struct {
	RunID          string    `yaml:"run_id"`
	Date           time.Time `yaml:"date"`
	Mass           float64   `yaml:"mass"`
	Keys           []string  `yaml:"keys"`
	Params         []float64 `yaml:"params"`
	Fixed          []int     `yaml:"fixed,omitempty"` // reference-phase positions held at zero
	Errors         []float64 `yaml:"errors,omitempty"`
	NLL            float64   `yaml:"nll"`
	NumData        int       `yaml:"n_data"`
	ExpectedEvents float64   `yaml:"expected_events"`
	Status         string    `yaml:"status"`
	Evaluations    int       `yaml:"evaluations"`
}

// Amplitudes returns the fitted production amplitudes in key order.
func (res *FitResult) Amplitudes() ([]complex128, error) {
	if len(res.Params) != 2*len(res.Keys) {
		return nil, pwa.NewError(pwa.CodeOrdering,
			"fit result has %d parameters for %d waves", len(res.Params), len(res.Keys),
		)
	}
	return pwa.DecodeAmplitudes(res.Params)
}

// SaveFitResult writes res as YAML.
func SaveFitResult(path string, res *FitResult) error {
	return create(path, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	})
}

// LoadFitResult reads a fit result written by SaveFitResult.
func LoadFitResult(path string) (*FitResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, pwa.Wrapf(err, "could not read fit result %q", path)
	}
	var res FitResult
	if err := yaml.Unmarshal(raw, &res); err != nil {
		return nil, &pwa.Error{Code: pwa.CodeInvalidInput, Message: "could not decode fit result " + path, Cause: err}
	}
	return &res, nil
}

// SaveCovariance writes cov in gonum's binary matrix format.
func SaveCovariance(path string, cov mat.Symmetric) error {
	return create(path, func(w io.Writer) error {
		_, err := mat.DenseCopyOf(cov).MarshalBinaryTo(w)
		return err
	})
}

// LoadCovariance reads a covariance matrix written by SaveCovariance.
func LoadCovariance(path string) (*mat.SymDense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pwa.Wrapf(err, "could not open covariance %q", path)
	}
	defer f.Close()

	var m mat.Dense
	if _, err := m.UnmarshalBinaryFrom(f); err != nil {
		return nil, pwa.Wrapf(err, "could not read covariance %q", path)
	}
	r, c := m.Dims()
	if r != c {
		return nil, pwa.NewError(pwa.CodeInvalidInput, "covariance %q is %dx%d", path, r, c)
	}
	cov := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			cov.SetSym(i, j, m.At(i, j))
		}
	}
	return cov, nil
}

// SaveH1D writes h in YODA format.
func SaveH1D(path string, h *hbook.H1D) error {
	raw, err := h.MarshalYODA()
	if err != nil {
		return pwa.Wrapf(err, "could not encode histogram for %q", path)
	}
	return create(path, func(w io.Writer) error {
		_, err := w.Write(raw)
		return err
	})
}
