package pwaio

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/decibelcooper/pwa"
)

var (
	normIntMagic = [8]byte{'P', 'W', 'A', 'N', 'O', 'R', 'M', '1'}
	rhoAAMagic   = [8]byte{'P', 'W', 'A', 'R', 'H', 'O', 'A', '1'}
)

const (
	// maxKeyLen bounds wave counts and key lengths read back from disk.
	maxKeyLen = 1 << 16
	// maxCells bounds the size of a tensor read back from disk.
	maxCells = 1 << 40
	// chunk is the number of complex values decoded per read, so that a
	// corrupt header cannot force a large allocation.
	chunk = 1 << 16
)

// WriteNormInt persists ni: magic, wave keys and reflectivities, accepted
// event count and the flat tensor as little-endian (real, imag) pairs.
func WriteNormInt(w io.Writer, ni *pwa.NormInt) error {
	bw := bufio.NewWriter(w)
	keys := ni.Keys()
	if err := writeHeader(bw, normIntMagic, keys, uint64(ni.NumEvents())); err != nil {
		return err
	}
	if err := writeReflectivities(bw, len(keys), ni.Reflectivity); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, ni.Data()); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadNormInt decodes a tensor written by WriteNormInt.
func ReadNormInt(r io.Reader) (*pwa.NormInt, error) {
	br := bufio.NewReader(r)
	keys, nevts, err := readHeader(br, normIntMagic)
	if err != nil {
		return nil, err
	}

	refl, err := readReflectivities(br, len(keys))
	if err != nil {
		return nil, err
	}

	n := uint64(len(keys))
	data, err := readComplex(br, 4*n*n)
	if err != nil {
		return nil, err
	}
	return pwa.NewNormInt(keys, refl, int(nevts), data)
}

// WriteRhoAA persists rho: magic, wave keys, event count, reflectivities
// and the flat tensor.
func WriteRhoAA(w io.Writer, rho *pwa.RhoAA) error {
	bw := bufio.NewWriter(w)
	if err := writeHeader(bw, rhoAAMagic, rho.Keys(), uint64(rho.NumEvents())); err != nil {
		return err
	}
	if err := writeReflectivities(bw, rho.NumWaves(), rho.Reflectivity); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, rho.Data()); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadRhoAA decodes a tensor written by WriteRhoAA.
func ReadRhoAA(r io.Reader) (*pwa.RhoAA, error) {
	br := bufio.NewReader(r)
	keys, nevts, err := readHeader(br, rhoAAMagic)
	if err != nil {
		return nil, err
	}
	refl, err := readReflectivities(br, len(keys))
	if err != nil {
		return nil, err
	}

	n := uint64(len(keys))
	if nevts == 0 || nevts > maxCells/(n*n) {
		return nil, pwa.NewError(pwa.CodeInvalidInput,
			"rhoAA header: invalid event count %d for %d waves", nevts, n,
		)
	}
	data, err := readComplex(br, n*n*nevts)
	if err != nil {
		return nil, err
	}
	return pwa.NewRhoAA(keys, refl, int(nevts), data)
}

// SaveNormInt writes ni to path.
func SaveNormInt(path string, ni *pwa.NormInt) error {
	return create(path, func(w io.Writer) error { return WriteNormInt(w, ni) })
}

// LoadNormInt reads the normalization integral at path.
func LoadNormInt(path string) (*pwa.NormInt, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pwa.Wrapf(err, "could not open normalization integral %q", path)
	}
	defer f.Close()
	ni, err := ReadNormInt(f)
	if err != nil {
		return nil, pwa.Wrapf(err, "could not read normalization integral %q", path)
	}
	return ni, nil
}

// SaveRhoAA writes rho to path.
func SaveRhoAA(path string, rho *pwa.RhoAA) error {
	return create(path, func(w io.Writer) error { return WriteRhoAA(w, rho) })
}

// LoadRhoAA reads the rhoAA tensor at path.
func LoadRhoAA(path string) (*pwa.RhoAA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pwa.Wrapf(err, "could not open rhoAA tensor %q", path)
	}
	defer f.Close()
	rho, err := ReadRhoAA(f)
	if err != nil {
		return nil, pwa.Wrapf(err, "could not read rhoAA tensor %q", path)
	}
	return rho, nil
}

func writeHeader(w io.Writer, magic [8]byte, keys []string, nevts uint64) error {
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(keys))); err != nil {
		return err
	}
	for _, key := range keys {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(key))); err != nil {
			return err
		}
		if _, err := io.WriteString(w, key); err != nil {
			return err
		}
	}
	return binary.Write(w, binary.LittleEndian, nevts)
}

func readHeader(r io.Reader, magic [8]byte) ([]string, uint64, error) {
	var got [8]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		return nil, 0, err
	}
	if got != magic {
		return nil, 0, pwa.NewError(pwa.CodeInvalidInput, "bad magic %q, want %q", got[:], magic[:])
	}

	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, 0, err
	}
	if n == 0 || n > maxKeyLen {
		return nil, 0, pwa.NewError(pwa.CodeInvalidInput, "invalid number of waves %d", n)
	}
	keys := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		var sz uint32
		if err := binary.Read(r, binary.LittleEndian, &sz); err != nil {
			return nil, 0, err
		}
		if sz > maxKeyLen {
			return nil, 0, pwa.NewError(pwa.CodeInvalidInput, "wave key #%d too long (%d bytes)", i, sz)
		}
		buf := make([]byte, sz)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, 0, err
		}
		keys = append(keys, string(buf))
	}

	var nevts uint64
	if err := binary.Read(r, binary.LittleEndian, &nevts); err != nil {
		return nil, 0, err
	}
	return keys, nevts, nil
}

func writeReflectivities(w io.Writer, n int, refl func(i int) pwa.Reflectivity) error {
	buf := make([]int8, n)
	for i := range buf {
		buf[i] = int8(refl(i))
	}
	return binary.Write(w, binary.LittleEndian, buf)
}

func readReflectivities(r io.Reader, n int) ([]pwa.Reflectivity, error) {
	buf := make([]int8, n)
	if err := binary.Read(r, binary.LittleEndian, buf); err != nil {
		return nil, err
	}
	refl := make([]pwa.Reflectivity, n)
	for i, v := range buf {
		refl[i] = pwa.Reflectivity(v)
	}
	return refl, nil
}

// readComplex decodes n little-endian complex128 values. The buffer grows
// with the data actually read: a truncated stream fails with a clear error.
func readComplex(r io.Reader, n uint64) ([]complex128, error) {
	var out []complex128
	buf := make([]complex128, chunk)
	for left := n; left > 0; {
		sz := uint64(len(buf))
		if left < sz {
			sz = left
		}
		if err := binary.Read(r, binary.LittleEndian, buf[:sz]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, pwa.NewError(pwa.CodeAlignment,
					"truncated tensor: got %d of %d values", uint64(len(out)), n,
				)
			}
			return nil, err
		}
		out = append(out, buf[:sz]...)
		left -= sz
	}
	return out, nil
}
