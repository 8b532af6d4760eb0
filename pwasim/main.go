package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"

	"github.com/montanaflynn/stats"
	"github.com/pkg/profile"
	"go-hep.org/x/hep/hbook"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/decibelcooper/pwa"
	"github.com/decibelcooper/pwa/config"
	"github.com/decibelcooper/pwa/pwaio"
)

var (
	doProf   = flag.Bool("prof", false, "enable CPU profiling")
	params   = flag.String("params", "", "fit result to simulate from; overrides sim.params")
	noAmps   = flag.Bool("noamps", false, "do not write amplitude files of the selected events")
	seedFlag = flag.Int64("seed", -1, "random seed; overrides sim.seed")
)

func printUsage() {
	fmt.Fprint(os.Stderr, `Usage: `+os.Args[0]+` [options] <config.yaml>

Weights the generated Monte Carlo sample with an intensity model and keeps
events by acceptance-rejection. The model is either the configured
resonances or a fit result.

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
	if *params != "" {
		cfg.Sim.Params = *params
	}
	if *seedFlag >= 0 {
		cfg.Sim.Seed = uint64(*seedFlag)
	}
	if err := os.MkdirAll(cfg.Output, 0755); err != nil {
		log.Fatalf("could not create output directory [%s]: %v\n", cfg.Output, err)
	}

	gen, err := cfg.LoadGenerated()
	if err != nil {
		log.Fatal(err)
	}
	model, err := newModel(cfg, gen)
	if err != nil {
		log.Fatal(err)
	}

	intensities := model.Intensities()
	max, err := pwa.MaxIntensity(intensities)
	if err != nil {
		log.Fatal(err)
	}
	mean, _ := stats.Mean(intensities)
	log.Printf("%d generated events: max intensity %g, mean %g", len(intensities), max, mean)

	flags, err := pwaio.LoadFlags(cfg.MC.AcceptanceFlags)
	if err != nil {
		log.Fatal(err)
	}

	rnd := distuv.Uniform{Min: 0, Max: 1, Src: rand.NewPCG(cfg.Sim.Seed, cfg.Sim.Seed)}
	sel, err := pwa.Simulate(intensities, max, flags, rnd)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("kept %d weighted and %d accepted events out of %d",
		len(sel.Weighted), len(sel.Accepted), len(sel.Raw),
	)

	outputs := []struct {
		name string
		idx  []int
	}{
		{"raw", sel.Raw},
		{"weighted", sel.Weighted},
		{"accepted", sel.Accepted},
	}
	for _, out := range outputs {
		if err := writeSample(cfg, gen, out.name, out.idx); err != nil {
			log.Fatal(err)
		}
	}
}

func newModel(cfg *config.Config, gen *pwa.Dataset) (pwa.IntensityModel, error) {
	conv, err := cfg.SpinConvention()
	if err != nil {
		return nil, err
	}

	if cfg.Sim.Params != "" {
		res, err := pwaio.LoadFitResult(cfg.Sim.Params)
		if err != nil {
			return nil, err
		}
		if !slices.Equal(res.Keys, gen.Waves.Keys()) {
			return nil, pwa.NewError(pwa.CodeOrdering,
				"fit result %q has waves %v, generated sample has %v", cfg.Sim.Params, res.Keys, gen.Waves.Keys(),
			)
		}
		v, err := res.Amplitudes()
		if err != nil {
			return nil, err
		}
		log.Printf("simulating from fitted amplitudes %s", cfg.Sim.Params)
		return pwa.NewAmplitudeModel(v, pwa.ComputeRhoAA(gen, cfg.Polarization, conv))
	}

	resonances, err := cfg.ResonanceList(gen.Waves.Keys())
	if err != nil {
		return nil, err
	}
	if len(resonances) == 0 {
		return nil, pwa.NewError(pwa.CodeInvalidInput, "no resonances configured and no fit result given")
	}
	norm, err := cfg.NormInt()
	if err != nil {
		return nil, err
	}
	log.Printf("simulating from %d resonances at mass %g", len(resonances), cfg.Mass)
	return pwa.NewResonanceModel(resonances, gen, norm, cfg.Mass, cfg.Polarization, conv)
}

// writeSample writes the alphas and, unless disabled, the wave amplitudes
// of the selected events, plus a YODA histogram of their alphas.
func writeSample(cfg *config.Config, gen *pwa.Dataset, name string, idx []int) error {
	dir := filepath.Join(cfg.Output, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return pwa.Wrapf(err, "could not create %q", dir)
	}

	alphas := pwa.Pick(gen.Alphas, idx)
	if err := pwaio.SaveFloats(filepath.Join(dir, "alphaevents.txt"), alphas); err != nil {
		return err
	}

	h := hbook.NewH1D(cfg.Sim.Bins, -math.Pi, math.Pi)
	h.Annotation()["name"] = name
	h.Annotation()["title"] = fmt.Sprintf("alpha, %s events, mass=%g", name, cfg.Mass)
	for _, a := range alphas {
		h.Fill(a, 1)
	}
	if err := pwaio.SaveH1D(filepath.Join(dir, "alpha.yoda"), h); err != nil {
		return err
	}

	if *noAmps {
		return nil
	}
	ws := gen.Waves
	files := cfg.WaveFiles(config.GeneratedSample)
	for _, wf := range files {
		i, err := ws.Index(wf.Key)
		if err != nil {
			return err
		}
		amps := ws.Wave(i).Amplitudes
		sub := make([]complex128, len(idx))
		for k, ev := range idx {
			sub[k] = amps[ev]
		}
		if err := pwaio.SaveAmplitudes(filepath.Join(dir, filepath.Base(wf.Path)), sub); err != nil {
			return err
		}
	}
	return nil
}
