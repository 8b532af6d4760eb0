package pwaio

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/decibelcooper/pwa"
)

// ReadFloats reads one float per line. Blank lines are skipped.
func ReadFloats(r io.Reader) ([]float64, error) {
	var (
		vals []float64
		sc   = bufio.NewScanner(r)
		line = 0
	)
	for sc.Scan() {
		line++
		txt := strings.TrimSpace(sc.Text())
		if txt == "" {
			continue
		}
		v, err := strconv.ParseFloat(txt, 64)
		if err != nil {
			return nil, &pwa.Error{
				Code:    pwa.CodeInvalidInput,
				Message: "line " + strconv.Itoa(line),
				Cause:   err,
			}
		}
		vals = append(vals, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return vals, nil
}

// WriteFloats writes one value per line in the format read by ReadFloats.
func WriteFloats(w io.Writer, vals []float64) error {
	bw := bufio.NewWriter(w)
	for _, v := range vals {
		bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// LoadFloats reads the text list at path.
func LoadFloats(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pwa.Wrapf(err, "could not open %q", path)
	}
	defer f.Close()

	vals, err := ReadFloats(f)
	if err != nil {
		return nil, pwa.Wrapf(err, "could not read %q", path)
	}
	return vals, nil
}

// SaveFloats writes vals to path, one per line.
func SaveFloats(path string, vals []float64) error {
	return create(path, func(w io.Writer) error {
		return WriteFloats(w, vals)
	})
}

// LoadQFactors reads the quality-factor list at path. An empty path means
// no quality factors, which a pwa.Dataset turns into all ones.
func LoadQFactors(path string) ([]float64, error) {
	if path == "" {
		return nil, nil
	}
	return LoadFloats(path)
}

// LoadFlags reads a per-event pass/fail list: any non-zero value passes.
// An empty path returns nil, meaning every event passes.
func LoadFlags(path string) ([]bool, error) {
	if path == "" {
		return nil, nil
	}
	vals, err := LoadFloats(path)
	if err != nil {
		return nil, err
	}
	flags := make([]bool, len(vals))
	for i, v := range vals {
		flags[i] = v != 0
	}
	return flags, nil
}
