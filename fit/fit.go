// Package fit drives gonum's optimizers over a scalar objective, such as
// the pwa negative log-likelihood, and estimates parameter covariances.
package fit

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/decibelcooper/pwa"
)

// Problem is an objective to minimize.
type Problem struct {
	Func func(x []float64) float64

	// Err, when set, is polled by the optimizer. A non-nil error stops
	// the minimization.
	Err func() error
}

// Settings configures Minimize.
type Settings struct {
	// Method is "neldermead" (the default) or "bfgs".
	Method string
	// MaxEvaluations bounds the number of objective calls; zero means no
	// bound.
	MaxEvaluations int
	// Step is the finite-difference step used for gradients. Zero selects
	// gonum's default.
	Step float64
}

// Result is the outcome of a minimization.
type Result struct {
	X           []float64
	F           float64
	Status      string
	Evaluations int
}

// Minimize minimizes p starting at x0.
func Minimize(p Problem, x0 []float64, s Settings) (*Result, error) {
	if p.Func == nil {
		return nil, pwa.NewError(pwa.CodeInvalidInput, "fit: nil objective")
	}
	if len(x0) == 0 {
		return nil, pwa.NewError(pwa.CodeInvalidInput, "fit: empty starting point")
	}

	method, grad, err := newMethod(s, p.Func)
	if err != nil {
		return nil, err
	}

	prob := optimize.Problem{
		Func: p.Func,
		Grad: grad,
	}
	if p.Err != nil {
		prob.Status = func() (optimize.Status, error) {
			if err := p.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		}
	}

	settings := &optimize.Settings{
		FuncEvaluations: s.MaxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-10,
			Iterations: 100,
		},
	}

	res, err := optimize.Minimize(prob, x0, settings, method)
	if err != nil {
		return nil, pwa.Wrap(err, "fit: minimization failed")
	}
	if math.IsInf(res.F, 0) || math.IsNaN(res.F) {
		return nil, pwa.NewError(pwa.CodeNumeric, "fit: minimum is not finite (%v)", res.F)
	}

	return &Result{
		X:           res.X,
		F:           res.F,
		Status:      res.Status.String(),
		Evaluations: res.Stats.FuncEvaluations,
	}, nil
}

func newMethod(s Settings, f func([]float64) float64) (optimize.Method, func(grad, x []float64), error) {
	switch s.Method {
	case "", "neldermead":
		return &optimize.NelderMead{}, nil, nil
	case "bfgs":
		settings := &fd.Settings{Formula: fd.Central, Step: s.Step}
		grad := func(grad, x []float64) {
			fd.Gradient(grad, f, x, settings)
		}
		return &optimize.BFGS{}, grad, nil
	}
	return nil, nil, pwa.NewError(pwa.CodeInvalidInput, "fit: unknown method %q", s.Method)
}

// Covariance returns the inverse of the finite-difference Hessian of f
// at x. For a negative log-likelihood this is the parameter covariance.
func Covariance(f func([]float64) float64, x []float64, step float64) (*mat.SymDense, error) {
	n := len(x)
	if n == 0 {
		return nil, pwa.NewError(pwa.CodeInvalidInput, "fit: empty parameter vector")
	}

	var settings *fd.Settings
	if step > 0 {
		settings = &fd.Settings{Step: step}
	}
	hess := mat.NewSymDense(n, nil)
	fd.Hessian(hess, f, x, settings)

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if v := hess.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, pwa.NewError(pwa.CodeNumeric, "fit: non-finite Hessian element (%d,%d)", i, j)
			}
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(hess); !ok {
		return nil, pwa.NewError(pwa.CodeNumeric, "fit: Hessian is not positive definite")
	}
	cov := mat.NewSymDense(n, nil)
	if err := chol.InverseTo(cov); err != nil {
		return nil, &pwa.Error{Code: pwa.CodeNumeric, Message: "fit: could not invert Hessian", Cause: err}
	}
	return cov, nil
}

// Errors returns the square roots of the diagonal of cov.
func Errors(cov mat.Symmetric) []float64 {
	n := cov.SymmetricDim()
	errs := make([]float64, n)
	for i := range errs {
		errs[i] = math.Sqrt(cov.At(i, i))
	}
	return errs
}
