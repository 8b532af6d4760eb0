package config

import (
	"os"

	"github.com/decibelcooper/pwa"
	"github.com/decibelcooper/pwa/pwaio"
)

// LoadData loads the observed sample: data amplitudes, alphas and the
// optional quality factors.
func (cfg *Config) LoadData() (*pwa.Dataset, error) {
	ws, err := pwaio.LoadWaveSet(cfg.WaveFiles(DataSample))
	if err != nil {
		return nil, err
	}
	alphas, err := pwaio.LoadFloats(cfg.Data.Alphas)
	if err != nil {
		return nil, err
	}
	qfactors, err := pwaio.LoadQFactors(cfg.Data.QFactors)
	if err != nil {
		return nil, err
	}
	return pwa.NewDataset(ws, alphas, qfactors)
}

// LoadAccepted loads the accepted Monte Carlo sample.
func (cfg *Config) LoadAccepted() (*pwa.Dataset, error) {
	ws, err := pwaio.LoadWaveSet(cfg.WaveFiles(AcceptedSample))
	if err != nil {
		return nil, err
	}
	alphas, err := pwaio.LoadFloats(cfg.MC.AcceptedAlphas)
	if err != nil {
		return nil, err
	}
	return pwa.NewDataset(ws, alphas, nil)
}

// LoadGenerated loads the generated Monte Carlo sample.
func (cfg *Config) LoadGenerated() (*pwa.Dataset, error) {
	ws, err := pwaio.LoadWaveSet(cfg.WaveFiles(GeneratedSample))
	if err != nil {
		return nil, err
	}
	alphas, err := pwaio.LoadFloats(cfg.MC.GeneratedAlphas)
	if err != nil {
		return nil, err
	}
	return pwa.NewDataset(ws, alphas, nil)
}

// GeneratedCount returns the number of generated Monte Carlo events:
// mc.generated_count when set, otherwise the length of the generated
// alpha list.
func (cfg *Config) GeneratedCount() (int, error) {
	if cfg.MC.GeneratedCount > 0 {
		return cfg.MC.GeneratedCount, nil
	}
	if cfg.MC.GeneratedAlphas == "" {
		return 0, invalid("neither mc.generated_count nor mc.generated_alphas is set")
	}
	alphas, err := pwaio.LoadFloats(cfg.MC.GeneratedAlphas)
	if err != nil {
		return 0, err
	}
	return len(alphas), nil
}

// ComputeNormInt computes the normalization integral of the accepted
// sample.
func (cfg *Config) ComputeNormInt() (*pwa.NormInt, error) {
	acc, err := cfg.LoadAccepted()
	if err != nil {
		return nil, err
	}
	return pwa.ComputeNormInt(acc.Waves, acc.Alphas, nil)
}

// ComputeRhoAA computes the rhoAA tensor of the data sample.
func (cfg *Config) ComputeRhoAA() (*pwa.RhoAA, error) {
	conv, err := cfg.SpinConvention()
	if err != nil {
		return nil, err
	}
	ds, err := cfg.LoadData()
	if err != nil {
		return nil, err
	}
	return pwa.ComputeRhoAA(ds, cfg.Polarization, conv), nil
}

// NormInt returns the persisted normalization integral of the bin when
// present, otherwise computes it.
func (cfg *Config) NormInt() (*pwa.NormInt, error) {
	if _, err := os.Stat(cfg.NormIntFile()); err == nil {
		return pwaio.LoadNormInt(cfg.NormIntFile())
	}
	return cfg.ComputeNormInt()
}

// RhoAA returns the persisted rhoAA tensor of the bin when present,
// otherwise computes it.
func (cfg *Config) RhoAA() (*pwa.RhoAA, error) {
	if _, err := os.Stat(cfg.RhoAAFile()); err == nil {
		return pwaio.LoadRhoAA(cfg.RhoAAFile())
	}
	return cfg.ComputeRhoAA()
}
