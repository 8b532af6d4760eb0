// Package config holds the fixed-schema configuration of a fit or
// simulation run in one mass bin.
package config

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/decibelcooper/pwa"
)

// Config is the run configuration, usually read from a YAML file.
type Config struct {
	Polarization float64     `yaml:"polarization"`
	Convention   string      `yaml:"convention"`
	Mass         float64     `yaml:"mass"`
	Waves        []Wave      `yaml:"waves"`
	Resonances   []Resonance `yaml:"resonances"`
	Data         Data        `yaml:"data"`
	MC           MC          `yaml:"mc"`
	Fit          Fit         `yaml:"fit"`
	Sim          Sim         `yaml:"sim"`
	Output       string      `yaml:"output"`
}

// Wave names the amplitude files of one partial wave for each sample.
type Wave struct {
	Key          string `yaml:"key"`
	Reflectivity int    `yaml:"reflectivity"`
	Data         string `yaml:"data"`
	Accepted     string `yaml:"accepted"`
	Generated    string `yaml:"generated"`
}

// Resonance describes one resonance. Weights are keyed by wave key.
type Resonance struct {
	Strength float64            `yaml:"strength"`
	Weights  map[string]float64 `yaml:"weights"`
	Mass     float64            `yaml:"mass"`
	Width    float64            `yaml:"width"`
	Phase    float64            `yaml:"phase"`
}

// Data locates the per-event files of the observed sample.
type Data struct {
	Alphas   string `yaml:"alphas"`
	QFactors string `yaml:"qfactors"`
}

// MC locates the per-event files of the Monte Carlo samples.
type MC struct {
	AcceptedAlphas  string `yaml:"accepted_alphas"`
	GeneratedAlphas string `yaml:"generated_alphas"`
	// GeneratedCount overrides the number of generated events; zero means
	// the length of the generated alpha list.
	GeneratedCount  int    `yaml:"generated_count"`
	AcceptanceFlags string `yaml:"acceptance_flags"`
}

// Fit configures the minimization.
type Fit struct {
	Workers        int           `yaml:"workers"`
	Deadline       time.Duration `yaml:"deadline"`
	MaxInvalid     int           `yaml:"max_invalid"`
	Method         string        `yaml:"method"`
	MaxEvaluations int           `yaml:"max_evaluations"`
	// Initial maps a wave key to the (real, imag) starting value of its
	// production amplitude.
	Initial map[string][]float64 `yaml:"initial"`
}

// Sim configures the acceptance-rejection simulation.
type Sim struct {
	Seed uint64 `yaml:"seed"`
	Bins int    `yaml:"bins"`
	// Params is a file of fitted parameters; empty means simulate from
	// the resonances.
	Params string `yaml:"params"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Convention: "helicity",
		Fit: Fit{
			Workers:    1,
			Deadline:   time.Minute,
			MaxInvalid: 1000,
			Method:     "neldermead",
		},
		Sim: Sim{
			Seed: 1,
			Bins: 50,
		},
		Output: ".",
	}
}

// LoadEnv loads .env style files into the environment. Missing files are
// ignored. Variables already set are not overridden.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		err := godotenv.Load(f)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return pwa.Wrapf(err, "could not load environment file %q", f)
		}
	}
	return nil
}

// Load reads the YAML configuration at path, applies environment
// overrides, resolves file names relative to the configuration directory
// and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, pwa.Wrapf(err, "could not read configuration %q", path)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, &pwa.Error{
			Code:    pwa.CodeInvalidInput,
			Message: "could not decode configuration " + strconv.Quote(path),
			Cause:   err,
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.resolve(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, pwa.Wrapf(err, "invalid configuration %q", path)
	}
	return cfg, nil
}

func (cfg *Config) applyEnv() error {
	var err error
	if cfg.Fit.Workers, err = getEnvIntOrDefault("PWA_WORKERS", cfg.Fit.Workers); err != nil {
		return err
	}
	if cfg.Sim.Seed, err = getEnvUintOrDefault("PWA_SEED", cfg.Sim.Seed); err != nil {
		return err
	}
	if cfg.Polarization, err = getEnvFloatOrDefault("PWA_BEAM_POLARIZATION", cfg.Polarization); err != nil {
		return err
	}
	cfg.Output = getEnvOrDefault("PWA_OUTPUT_DIR", cfg.Output)
	return nil
}

func (cfg *Config) resolve(dir string) {
	abs := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	for i := range cfg.Waves {
		abs(&cfg.Waves[i].Data)
		abs(&cfg.Waves[i].Accepted)
		abs(&cfg.Waves[i].Generated)
	}
	abs(&cfg.Data.Alphas)
	abs(&cfg.Data.QFactors)
	abs(&cfg.MC.AcceptedAlphas)
	abs(&cfg.MC.GeneratedAlphas)
	abs(&cfg.MC.AcceptanceFlags)
	abs(&cfg.Sim.Params)
	abs(&cfg.Output)
}

// Validate checks the configuration for consistency.
func (cfg *Config) Validate() error {
	if cfg.Polarization < 0 || cfg.Polarization > 1 || math.IsNaN(cfg.Polarization) {
		return invalid("beam polarization %v outside [0, 1]", cfg.Polarization)
	}
	if _, err := cfg.SpinConvention(); err != nil {
		return err
	}
	if len(cfg.Waves) == 0 {
		return invalid("no waves")
	}

	seen := make(map[string]bool, len(cfg.Waves))
	for i, w := range cfg.Waves {
		if w.Key == "" {
			return invalid("wave #%d has no key", i)
		}
		if seen[w.Key] {
			return invalid("duplicate wave %q", w.Key)
		}
		seen[w.Key] = true
		if !pwa.Reflectivity(w.Reflectivity).Valid() {
			return invalid("wave %q: reflectivity must be +1 or -1, got %d", w.Key, w.Reflectivity)
		}
	}

	for i, r := range cfg.Resonances {
		if len(r.Weights) != len(cfg.Waves) {
			return invalid("resonance #%d has %d weights for %d waves", i, len(r.Weights), len(cfg.Waves))
		}
		for key := range r.Weights {
			if !seen[key] {
				return invalid("resonance #%d: weight for unknown wave %q", i, key)
			}
		}
		if r.Width < 0 {
			return invalid("resonance #%d has negative width %v", i, r.Width)
		}
	}

	if cfg.Fit.Workers < 1 {
		return invalid("fit workers must be >= 1, got %d", cfg.Fit.Workers)
	}
	if cfg.Fit.MaxInvalid < 0 {
		return invalid("negative max_invalid %d", cfg.Fit.MaxInvalid)
	}
	for key, v := range cfg.Fit.Initial {
		if !seen[key] {
			return invalid("initial value for unknown wave %q", key)
		}
		if len(v) != 2 {
			return invalid("initial value of wave %q needs (real, imag), got %v", key, v)
		}
	}
	if cfg.Sim.Bins <= 0 {
		return invalid("simulation histogram needs a positive number of bins, got %d", cfg.Sim.Bins)
	}
	return nil
}

// Keys returns the wave keys in canonical order.
func (cfg *Config) Keys() []string {
	keys := make([]string, len(cfg.Waves))
	for i, w := range cfg.Waves {
		keys[i] = w.Key
	}
	sort.Strings(keys)
	return keys
}

// SpinConvention returns the configured spin-density convention.
func (cfg *Config) SpinConvention() (pwa.SpinConvention, error) {
	return pwa.ParseSpinConvention(cfg.Convention)
}

// ResonanceList converts the configured resonances, ordering the channel
// weights along keys.
func (cfg *Config) ResonanceList(keys []string) ([]pwa.Resonance, error) {
	out := make([]pwa.Resonance, len(cfg.Resonances))
	for i, r := range cfg.Resonances {
		weights := make([]float64, len(keys))
		for j, key := range keys {
			w, ok := r.Weights[key]
			if !ok {
				return nil, invalid("resonance #%d has no weight for wave %q", i, key)
			}
			weights[j] = w
		}
		out[i] = pwa.Resonance{
			Strength: r.Strength,
			Weights:  weights,
			Mass:     r.Mass,
			Width:    r.Width,
			Phase:    r.Phase,
		}
	}
	return out, nil
}

// InitialParams returns the starting parameter vector along keys. Waves
// without an initial value start at (1, 0).
func (cfg *Config) InitialParams(keys []string) []float64 {
	params := make([]float64, 2*len(keys))
	for i, key := range keys {
		params[2*i] = 1
		if v, ok := cfg.Fit.Initial[key]; ok && len(v) == 2 {
			params[2*i] = v[0]
			params[2*i+1] = v[1]
		}
	}
	return params
}

func invalid(format string, args ...interface{}) error {
	return pwa.NewError(pwa.CodeInvalidInput, format, args...)
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntOrDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, &pwa.Error{Code: pwa.CodeInvalidInput, Message: "invalid " + key + "=" + strconv.Quote(v), Cause: err}
	}
	return i, nil
}

func getEnvUintOrDefault(key string, def uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	u, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, &pwa.Error{Code: pwa.CodeInvalidInput, Message: "invalid " + key + "=" + strconv.Quote(v), Cause: err}
	}
	return u, nil
}

func getEnvFloatOrDefault(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &pwa.Error{Code: pwa.CodeInvalidInput, Message: "invalid " + key + "=" + strconv.Quote(v), Cause: err}
	}
	return f, nil
}
