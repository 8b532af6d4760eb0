package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/profile"

	"github.com/decibelcooper/pwa"
	"github.com/decibelcooper/pwa/config"
	"github.com/decibelcooper/pwa/fit"
	"github.com/decibelcooper/pwa/pwaio"
)

var (
	doProf  = flag.Bool("prof", false, "enable CPU profiling")
	method  = flag.String("method", "", "minimization method (neldermead, bfgs); overrides the configuration")
	maxEval = flag.Int("maxeval", -1, "maximum number of likelihood evaluations; overrides the configuration")
	step    = flag.Float64("step", 0, "finite-difference step for gradients and the Hessian")
	noCov   = flag.Bool("nocov", false, "do not compute the covariance matrix")
	x0      pwa.FloatArrayFlags
)

func init() {
	flag.Var(&x0, "x0", "starting (real, imag) pairs in canonical wave order (repeat or comma-separate)")
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Usage: `+os.Args[0]+` [options] <config.yaml>

Fits the production amplitudes of one mass bin with the extended
maximum-likelihood method. Tensors written by pwaprep are reused when
present in the output directory.

options:
`,
	)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = printUsage
	flag.Parse()
	if flag.NArg() != 1 {
		printUsage()
		log.Fatal("Invalid arguments")
	}
	if *doProf {
		defer profile.Start().Stop()
	}

	if err := config.LoadEnv(); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Load(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	if err := os.MkdirAll(cfg.Output, 0755); err != nil {
		log.Fatalf("could not create output directory [%s]: %v\n", cfg.Output, err)
	}

	ni, err := cfg.NormInt()
	if err != nil {
		log.Fatal(err)
	}
	rho, err := cfg.RhoAA()
	if err != nil {
		log.Fatal(err)
	}
	ngen, err := cfg.GeneratedCount()
	if err != nil {
		log.Fatal(err)
	}

	nll, err := pwa.NewLikelihood(rho, ni, ngen,
		pwa.WithWorkers(cfg.Fit.Workers, cfg.Fit.Deadline),
		pwa.WithMaxInvalid(cfg.Fit.MaxInvalid),
		pwa.WithLogger(log.Default()),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer nll.Close()
	if !slices.Equal(nll.Keys(), cfg.Keys()) {
		log.Fatalf("tensors were built for waves %v, configuration has %v", nll.Keys(), cfg.Keys())
	}

	start := cfg.InitialParams(nll.Keys())
	if x0.IsSet() {
		if len(x0.Array) != nll.NumParams() {
			log.Fatalf("-x0: got %d values, want %d for waves %v", len(x0.Array), nll.NumParams(), nll.Keys())
		}
		start = x0.Array
	}

	settings := fit.Settings{
		Method:         cfg.Fit.Method,
		MaxEvaluations: cfg.Fit.MaxEvaluations,
		Step:           *step,
	}
	if *method != "" {
		settings.Method = *method
	}
	if *maxEval >= 0 {
		settings.MaxEvaluations = *maxEval
	}

	// the likelihood is blind to a common phase of each phase group: fit
	// with the reference amplitudes held real.
	phases := nll.Phases()
	reduced, err := phases.Reduce(start)
	if err != nil {
		log.Fatal(err)
	}
	obj := phases.Func(nll.NLL)

	log.Printf("fitting %d waves on %d events (etaX=%g, workers=%d, %d free parameters, reference waves %v)",
		rho.NumWaves(), rho.NumEvents(), nll.EtaX(), cfg.Fit.Workers, phases.NumFree(), phases.References(),
	)
	t0 := time.Now()
	res, err := fit.Minimize(fit.Problem{Func: obj, Err: nll.Err}, reduced, settings)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("minimum -lnL=%.6f after %d evaluations (%v, %s)", res.F, res.Evaluations, time.Since(t0), res.Status)

	x := phases.Expand(res.X)
	expected, err := nll.ExpectedEvents(x)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("expected events: %.1f, observed: %d", expected, rho.NumEvents())

	out := &pwaio.FitResult{
		RunID:          uuid.NewString(),
		Date:           time.Now().UTC(),
		Mass:           cfg.Mass,
		Keys:           nll.Keys(),
		Params:         x,
		Fixed:          phases.Fixed(),
		NLL:            res.F,
		NumData:        rho.NumEvents(),
		ExpectedEvents: expected,
		Status:         res.Status,
		Evaluations:    res.Evaluations,
	}

	if !*noCov {
		if err := covariance(cfg, obj, res.X, phases, out); err != nil {
			log.Printf("no covariance matrix: %v", err)
		}
	}

	if err := pwaio.SaveFitResult(cfg.FitResultFile(), out); err != nil {
		log.Fatal(err)
	}
	log.Printf("fit result -> %s", cfg.FitResultFile())
}

// covariance computes the covariance of the free parameters at the
// minimum, stores it padded to the full vector and fills out.Errors.
func covariance(cfg *config.Config, obj func([]float64) float64, xmin []float64, phases *pwa.PhaseConvention, out *pwaio.FitResult) error {
	cov, err := fit.Covariance(obj, xmin, *step)
	if err != nil {
		return err
	}
	full, err := phases.ExpandCovariance(cov)
	if err != nil {
		return err
	}
	out.Errors = fit.Errors(full)
	return pwaio.SaveCovariance(cfg.CovarianceFile(), full)
}
