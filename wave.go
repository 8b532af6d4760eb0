package pwa

import (
	"sort"
)

// Reflectivity is the ±1 quantum number splitting waves into two
// non-interfering classes.
type Reflectivity int

const (
	Positive Reflectivity = +1
	Negative Reflectivity = -1
)

func (r Reflectivity) Valid() bool { return r == Positive || r == Negative }

// Index maps +1 to 0 and -1 to 1, the row/column used in spin-density
// and normalization-integral tensors.
func (r Reflectivity) Index() int {
	if r == Negative {
		return 1
	}
	return 0
}

func (r Reflectivity) String() string {
	if r == Negative {
		return "-"
	}
	return "+"
}

// Wave is a partial-wave amplitude template evaluated on one event sample.
type Wave struct {
	Key          string
	Reflectivity Reflectivity
	Amplitudes   []complex128
}

// WaveSet holds waves in canonical order: sorted by Key.
// Every tensor and parameter vector built from a WaveSet uses this order.
type WaveSet struct {
	waves   []Wave
	keys    []string
	nevents int
}

// NewWaveSet validates waves and sorts them into canonical order.
// All waves must share the same event count.
func NewWaveSet(waves ...Wave) (*WaveSet, error) {
	if len(waves) == 0 {
		return nil, newError(CodeInvalidInput, "empty wave set")
	}

	ws := &WaveSet{
		waves: make([]Wave, len(waves)),
		keys:  make([]string, len(waves)),
	}
	copy(ws.waves, waves)
	sort.SliceStable(ws.waves, func(i, j int) bool {
		return ws.waves[i].Key < ws.waves[j].Key
	})

	ws.nevents = len(ws.waves[0].Amplitudes)
	for i, w := range ws.waves {
		if w.Key == "" {
			return nil, newError(CodeInvalidInput, "wave #%d has an empty key", i)
		}
		if i > 0 && ws.waves[i-1].Key == w.Key {
			return nil, newError(CodeInvalidInput, "duplicate wave key %q", w.Key)
		}
		if !w.Reflectivity.Valid() {
			return nil, newError(CodeInvalidInput, "wave %q: invalid reflectivity %d", w.Key, w.Reflectivity)
		}
		if len(w.Amplitudes) != ws.nevents {
			return nil, newError(CodeAlignment,
				"wave %q has %d events, wave %q has %d",
				w.Key, len(w.Amplitudes), ws.waves[0].Key, ws.nevents,
			)
		}
		ws.keys[i] = w.Key
	}

	return ws, nil
}

func (ws *WaveSet) Len() int { return len(ws.waves) }

func (ws *WaveSet) NumEvents() int { return ws.nevents }

// Wave returns the i-th wave in canonical order.
func (ws *WaveSet) Wave(i int) Wave { return ws.waves[i] }

func (ws *WaveSet) Keys() []string { return append([]string(nil), ws.keys...) }

// Index returns the canonical position of the wave with the given key.
func (ws *WaveSet) Index(key string) (int, error) {
	i := sort.SearchStrings(ws.keys, key)
	if i < len(ws.keys) && ws.keys[i] == key {
		return i, nil
	}
	return -1, newError(CodeInvalidInput, "wave %q not found in wave set", key)
}

func sameKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// checkCanonical fails unless keys are strictly increasing.
func checkCanonical(keys []string) error {
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			return newError(CodeOrdering, "wave keys not in canonical order at %q", keys[i])
		}
	}
	return nil
}
