package pwa

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Rander is a source of uniform random numbers in [0, 1).
// gonum's distuv.Uniform satisfies it.
type Rander interface {
	Rand() float64
}

// Selection holds the event indices produced by the acceptance-rejection
// simulator.
type Selection struct {
	Raw      []int // every generated event
	Weighted []int // passed the intensity rejection
	Accepted []int // passed rejection and the detector acceptance flag
}

// MaxIntensity returns the largest intensity of the list. It fails on an
// empty list, on NaN or infinite entries and on a non-positive maximum.
func MaxIntensity(intensities []float64) (float64, error) {
	if err := checkIntensities(intensities); err != nil {
		return 0, err
	}
	max, err := stats.Max(intensities)
	if err != nil {
		return 0, &Error{Code: CodeNumeric, Message: "max intensity", Cause: err}
	}
	if !(max > 0) {
		return 0, newError(CodeNumeric, "non-positive max intensity %v", max)
	}
	return max, nil
}

func checkIntensities(intensities []float64) error {
	if len(intensities) == 0 {
		return newError(CodeAlignment, "empty intensity list")
	}
	for i, v := range intensities {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return newError(CodeNumeric, "event %d: non-finite intensity %v", i, v)
		}
	}
	return nil
}

// Simulate runs acceptance-rejection sampling: event ev is kept when
// intensities[ev]/max > rnd.Rand(). accepted holds the detector acceptance
// flag of each event; nil accepts every event. One random number is drawn
// per event, in event order.
func Simulate(intensities []float64, max float64, accepted []bool, rnd Rander) (*Selection, error) {
	if err := checkIntensities(intensities); err != nil {
		return nil, err
	}
	if !(max > 0) || math.IsInf(max, 0) {
		return nil, newError(CodeNumeric, "invalid max intensity %v", max)
	}
	if accepted != nil && len(accepted) != len(intensities) {
		return nil, newError(CodeAlignment,
			"%d acceptance flags for %d events", len(accepted), len(intensities),
		)
	}

	sel := &Selection{
		Raw: make([]int, len(intensities)),
	}
	for ev, v := range intensities {
		sel.Raw[ev] = ev
		if v/max > rnd.Rand() {
			sel.Weighted = append(sel.Weighted, ev)
			if accepted == nil || accepted[ev] {
				sel.Accepted = append(sel.Accepted, ev)
			}
		}
	}
	return sel, nil
}

// Pick returns values[idx] for every index of idx.
func Pick(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
