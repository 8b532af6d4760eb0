package pwa

import (
	"io"
	"log"
	"math"
	"math/cmplx"
	"sync"
	"time"
)

// Likelihood is the extended unbinned negative log-likelihood
//
//	-Σ_n log(Re Σ_ij V_i·conj(V_j)·rhoAA[i,j,n]) + etaX·Re Σ_ij V_i·conj(V_j)·N[refl(i),refl(j),i,j]
//
// with etaX = nAccepted/nGenerated. The rhoAA and normalization tensors
// are injected at construction and never modified.
type Likelihood struct {
	rho  *RhoAA
	norm *NormInt
	etaX float64

	phases *PhaseConvention

	pool       *Pool
	msg        *log.Logger
	maxInvalid int

	mu      sync.Mutex
	invalid int // consecutive invalid evaluations
	failed  error
}

// Option configures a Likelihood.
type Option func(*Likelihood) error

// WithWorkers evaluates the data term over n event shards in parallel.
// A worker that does not report within deadline is fatal for the
// evaluation; zero disables the deadline.
func WithWorkers(n int, deadline time.Duration) Option {
	return func(l *Likelihood) error {
		if n <= 1 {
			return nil
		}
		pool, err := NewPool(l.rho, n, deadline)
		if err != nil {
			return err
		}
		l.pool = pool
		return nil
	}
}

// WithLogger sets the logger receiving invalid-point reports.
func WithLogger(msg *log.Logger) Option {
	return func(l *Likelihood) error {
		if msg != nil {
			l.msg = msg
		}
		return nil
	}
}

// WithMaxInvalid aborts the fit after n consecutive invalid points.
// Zero means no limit.
func WithMaxInvalid(n int) Option {
	return func(l *Likelihood) error {
		if n < 0 {
			return newError(CodeInvalidInput, "negative invalid-point limit %d", n)
		}
		l.maxInvalid = n
		return nil
	}
}

// NewLikelihood checks that rho and norm share the same wave axes and
// returns the objective. nGenerated is the number of generated Monte Carlo
// events the accepted sample behind norm was selected from.
func NewLikelihood(rho *RhoAA, norm *NormInt, nGenerated int, opts ...Option) (*Likelihood, error) {
	if rho == nil || norm == nil {
		return nil, newError(CodeInvalidInput, "likelihood needs both rhoAA and normalization integral")
	}
	if !sameKeys(rho.keys, norm.keys) {
		return nil, newError(CodeOrdering,
			"rhoAA waves %v do not match normalization-integral waves %v", rho.keys, norm.keys,
		)
	}
	if rho.NumWaves() != norm.NumWaves() {
		return nil, newError(CodeOrdering,
			"rhoAA has %d waves, normalization integral has %d", rho.NumWaves(), norm.NumWaves(),
		)
	}
	for i, r := range rho.refl {
		if r != norm.refl[i] {
			return nil, newError(CodeOrdering,
				"wave %q has reflectivity %v in rhoAA and %v in the normalization integral",
				rho.keys[i], r, norm.refl[i],
			)
		}
	}
	nacc := norm.NumEvents()
	if nGenerated <= 0 || nacc <= 0 || nacc > nGenerated {
		return nil, newError(CodeInvalidInput,
			"invalid Monte Carlo counts: accepted=%d generated=%d", nacc, nGenerated,
		)
	}

	l := &Likelihood{
		rho:  rho,
		norm: norm,
		etaX: float64(nacc) / float64(nGenerated),
		msg:  log.New(io.Discard, "", 0),
	}
	l.phases = newPhaseConvention(rho.refl, rho.crossSector() || norm.crossSector())
	for _, opt := range opts {
		if err := opt(l); err != nil {
			l.Close()
			return nil, err
		}
	}
	return l, nil
}

// Close stops the worker pool, if any.
func (l *Likelihood) Close() error {
	if l.pool == nil {
		return nil
	}
	return l.pool.Close()
}

// NumParams returns the length of the full parameter vector.
func (l *Likelihood) NumParams() int { return 2 * l.rho.NumWaves() }

func (l *Likelihood) Keys() []string { return l.rho.Keys() }

func (l *Likelihood) EtaX() float64 { return l.etaX }

// Phases returns the reference-phase convention to minimize and to
// compute covariances in.
func (l *Likelihood) Phases() *PhaseConvention { return l.phases }

// NLL returns the objective value for params, or +Inf when params is an
// invalid point. It is the function handed to the minimizer.
func (l *Likelihood) NLL(params []float64) float64 {
	v, err := l.Evaluate(params)
	if err != nil {
		return math.Inf(+1)
	}
	return v
}

// Err returns a non-nil error once the invalid-point limit has been hit
// or the worker pool has failed.
func (l *Likelihood) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failed
}

// Evaluate returns the objective value for params.
func (l *Likelihood) Evaluate(params []float64) (float64, error) {
	if len(params) != l.NumParams() {
		return 0, newError(CodeOrdering,
			"parameter vector of length %d for %d waves", len(params), l.rho.NumWaves(),
		)
	}
	v, err := DecodeAmplitudes(params)
	if err != nil {
		return 0, err
	}

	data, err := l.dataTerm(v)
	if err == nil {
		data += l.etaX * l.acceptance(v)
		if math.IsNaN(data) || math.IsInf(data, 0) {
			err = newError(CodeNumeric, "non-finite objective value %v", data)
		}
	}
	if err != nil {
		return 0, l.reject(params, err)
	}

	l.mu.Lock()
	l.invalid = 0
	l.mu.Unlock()
	return data, nil
}

func (l *Likelihood) reject(params []float64, err error) error {
	if !HasCode(err, CodeNumeric) {
		l.mu.Lock()
		if l.failed == nil {
			l.failed = err
		}
		l.mu.Unlock()
		return err
	}

	l.msg.Printf("invalid point %v: %v", params, err)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.invalid++
	if l.maxInvalid > 0 && l.invalid >= l.maxInvalid && l.failed == nil {
		l.failed = Wrapf(err, "%d consecutive invalid points", l.invalid)
	}
	return err
}

func (l *Likelihood) dataTerm(v []complex128) (float64, error) {
	if l.pool != nil {
		return l.pool.DataTerm(v)
	}
	buf := make([]float64, l.rho.NumEvents())
	return shardDataTerm(buf, v, l.rho, 0, len(buf))
}

// acceptance returns a1 = Re Σ_ij V_i·conj(V_j)·N[refl(i),refl(j),i,j].
func (l *Likelihood) acceptance(v []complex128) float64 {
	var a1 float64
	for i := range v {
		ri := l.norm.refl[i]
		for j := range v {
			a1 += real(v[i] * cmplx.Conj(v[j]) * l.norm.At(ri, l.norm.refl[j], i, j))
		}
	}
	return a1
}

// ExpectedEvents returns etaX·a1, the predicted number of observed events
// for params.
func (l *Likelihood) ExpectedEvents(params []float64) (float64, error) {
	if len(params) != l.NumParams() {
		return 0, newError(CodeOrdering,
			"parameter vector of length %d for %d waves", len(params), l.rho.NumWaves(),
		)
	}
	v, err := DecodeAmplitudes(params)
	if err != nil {
		return 0, err
	}
	return l.etaX * l.acceptance(v), nil
}

// shardDataTerm returns -Σ log(a0[ev]) over events [beg, end). buf must
// hold end-beg values and is overwritten.
func shardDataTerm(buf []float64, v []complex128, rho *RhoAA, beg, end int) (float64, error) {
	buf = buf[:end-beg]
	for i := range buf {
		buf[i] = 0
	}
	accumulate(buf, v, rho, beg, end)

	sum := 0.0
	for k, a0 := range buf {
		if !(a0 > 0) || math.IsInf(a0, 0) {
			return 0, newError(CodeNumeric, "event %d: log of invalid intensity %v", beg+k, a0)
		}
		sum -= math.Log(a0)
	}
	return sum, nil
}
