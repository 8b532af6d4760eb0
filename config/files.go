package config

import (
	"path/filepath"

	"github.com/decibelcooper/pwa"
	"github.com/decibelcooper/pwa/pwaio"
)

// Sample selects one of the per-wave amplitude files.
type Sample int

const (
	DataSample Sample = iota
	AcceptedSample
	GeneratedSample
)

func (s Sample) String() string {
	switch s {
	case DataSample:
		return "data"
	case AcceptedSample:
		return "accepted"
	case GeneratedSample:
		return "generated"
	}
	return "unknown"
}

// WaveFiles returns the amplitude files of every wave for sample.
func (cfg *Config) WaveFiles(sample Sample) []pwaio.WaveFile {
	files := make([]pwaio.WaveFile, len(cfg.Waves))
	for i, w := range cfg.Waves {
		path := w.Data
		switch sample {
		case AcceptedSample:
			path = w.Accepted
		case GeneratedSample:
			path = w.Generated
		}
		files[i] = pwaio.WaveFile{
			Key:          w.Key,
			Reflectivity: pwa.Reflectivity(w.Reflectivity),
			Path:         path,
		}
	}
	return files
}

// NormIntFile is where the normalization integral of this bin is stored.
func (cfg *Config) NormIntFile() string { return filepath.Join(cfg.Output, "normint.bin") }

// RhoAAFile is where the rhoAA tensor of this bin is stored.
func (cfg *Config) RhoAAFile() string { return filepath.Join(cfg.Output, "rhoAA.bin") }

// FitResultFile is where pwafit stores its result.
func (cfg *Config) FitResultFile() string { return filepath.Join(cfg.Output, "fit.yaml") }

// CovarianceFile is where pwafit stores the parameter covariance.
func (cfg *Config) CovarianceFile() string { return filepath.Join(cfg.Output, "covariance.bin") }
