package pwa

import (
	"math"
)

// Dataset aligns a wave set with its per-event alpha angles and quality
// weights. Index i refers to the same event in every array.
type Dataset struct {
	Waves    *WaveSet
	Alphas   []float64
	QFactors []float64
}

// NewDataset checks array alignment. A nil qfactors slice defaults to all
// ones.
func NewDataset(ws *WaveSet, alphas, qfactors []float64) (*Dataset, error) {
	if ws == nil {
		return nil, newError(CodeInvalidInput, "dataset without waves")
	}
	nevts := len(alphas)
	if nevts == 0 {
		return nil, newError(CodeAlignment, "dataset without events")
	}
	if ws.NumEvents() != nevts {
		return nil, newError(CodeAlignment,
			"dataset: %d alpha values, waves have %d events", nevts, ws.NumEvents(),
		)
	}

	if qfactors == nil {
		qfactors = make([]float64, nevts)
		for i := range qfactors {
			qfactors[i] = 1
		}
	}
	if len(qfactors) != nevts {
		return nil, newError(CodeAlignment,
			"dataset: %d quality factors for %d events", len(qfactors), nevts,
		)
	}
	for i, a := range alphas {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return nil, newError(CodeInvalidInput, "dataset: event %d has non-finite alpha %v", i, a)
		}
	}

	return &Dataset{
		Waves:    ws,
		Alphas:   alphas,
		QFactors: qfactors,
	}, nil
}

func (ds *Dataset) NumEvents() int { return len(ds.Alphas) }
