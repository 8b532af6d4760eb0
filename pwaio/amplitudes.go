// Package pwaio loads and saves the flat files exchanged between the pwa
// tools: binary amplitude files, one-value-per-line text lists, persisted
// tensors, fit results and histograms.
package pwaio

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/decibelcooper/pwa"
)

// ReadAmplitudes decodes sequential little-endian float64 (real, imag)
// pairs until EOF.
func ReadAmplitudes(r io.Reader) ([]complex128, error) {
	br := bufio.NewReader(r)
	var (
		buf  [16]byte
		amps []complex128
	)
	for {
		_, err := io.ReadFull(br, buf[:])
		if err == io.EOF {
			return amps, nil
		}
		if err == io.ErrUnexpectedEOF {
			return nil, pwa.NewError(pwa.CodeAlignment,
				"truncated amplitude record after %d complete values", len(amps),
			)
		}
		if err != nil {
			return nil, err
		}
		re := math.Float64frombits(binary.LittleEndian.Uint64(buf[0:8]))
		im := math.Float64frombits(binary.LittleEndian.Uint64(buf[8:16]))
		amps = append(amps, complex(re, im))
	}
}

// WriteAmplitudes encodes amps in the format read by ReadAmplitudes.
func WriteAmplitudes(w io.Writer, amps []complex128) error {
	bw := bufio.NewWriter(w)
	var buf [16]byte
	for _, c := range amps {
		binary.LittleEndian.PutUint64(buf[0:8], math.Float64bits(real(c)))
		binary.LittleEndian.PutUint64(buf[8:16], math.Float64bits(imag(c)))
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// LoadAmplitudes reads the amplitude file at path.
func LoadAmplitudes(path string) ([]complex128, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pwa.Wrapf(err, "could not open amplitude file %q", path)
	}
	defer f.Close()

	amps, err := ReadAmplitudes(f)
	if err != nil {
		return nil, pwa.Wrapf(err, "could not read amplitude file %q", path)
	}
	return amps, nil
}

// SaveAmplitudes writes amps to path.
func SaveAmplitudes(path string, amps []complex128) error {
	return create(path, func(w io.Writer) error {
		return WriteAmplitudes(w, amps)
	})
}

// WaveFile locates the amplitude file of one wave.
type WaveFile struct {
	Key          string
	Reflectivity pwa.Reflectivity
	Path         string
}

// LoadWaveSet reads every amplitude file concurrently and returns the
// waves in canonical order.
func LoadWaveSet(files []WaveFile) (*pwa.WaveSet, error) {
	waves := make([]pwa.Wave, len(files))

	for _, wf := range files {
		if wf.Path == "" {
			return nil, pwa.NewError(pwa.CodeInvalidInput, "wave %q has no amplitude file", wf.Key)
		}
	}

	var grp errgroup.Group
	grp.SetLimit(runtime.GOMAXPROCS(0))
	for i, wf := range files {
		grp.Go(func() error {
			amps, err := LoadAmplitudes(wf.Path)
			if err != nil {
				return pwa.Wrapf(err, "wave %q", wf.Key)
			}
			waves[i] = pwa.Wave{
				Key:          wf.Key,
				Reflectivity: wf.Reflectivity,
				Amplitudes:   amps,
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	return pwa.NewWaveSet(waves...)
}

func create(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return pwa.Wrapf(err, "could not create %q", path)
	}
	err = write(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return pwa.Wrapf(err, "could not write %q", path)
	}
	return nil
}
