package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pkg/profile"

	"github.com/decibelcooper/pwa/config"
	"github.com/decibelcooper/pwa/pwaio"
)

var (
	doProf  = flag.Bool("prof", false, "enable CPU profiling")
	skipRho = flag.Bool("skip-rho", false, "only compute the normalization integral")
	skipNI  = flag.Bool("skip-normint", false, "only compute the rhoAA tensor")
)

func printUsage() {
	fmt.Fprint(os.Stderr, `Usage: `+os.Args[0]+` [options] <config.yaml>

Computes the normalization integral of the accepted Monte Carlo sample and
the rhoAA tensor of the data sample, and stores them in the output directory.

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

	if !*skipNI {
		start := time.Now()
		ni, err := cfg.ComputeNormInt()
		if err != nil {
			log.Fatal(err)
		}
		if err := pwaio.SaveNormInt(cfg.NormIntFile(), ni); err != nil {
			log.Fatal(err)
		}
		log.Printf("normalization integral: %d waves, %d accepted events (%v) -> %s",
			ni.NumWaves(), ni.NumEvents(), time.Since(start), cfg.NormIntFile(),
		)
	}

	if !*skipRho {
		start := time.Now()
		rho, err := cfg.ComputeRhoAA()
		if err != nil {
			log.Fatal(err)
		}
		if err := pwaio.SaveRhoAA(cfg.RhoAAFile(), rho); err != nil {
			log.Fatal(err)
		}
		log.Printf("rhoAA: %d waves, %d events (%v) -> %s",
			rho.NumWaves(), rho.NumEvents(), time.Since(start), cfg.RhoAAFile(),
		)
	}
}
