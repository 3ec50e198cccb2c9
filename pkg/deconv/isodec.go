package deconv

import (
	"errors"

	"github.com/ChrisMcGann/IsoDecon/pkg/core"
)

// IsoDecAlgorithm hands the spectrum to a clustering Routine and rebuilds
// envelopes from its records using the full-precision peaks.
type IsoDecAlgorithm struct {
	params  IsoDecParameters
	routine Routine
}

// NewIsoDec binds params, which must be *IsoDecParameters.
func NewIsoDec(params Parameters, opts ...Option) (*IsoDecAlgorithm, error) {
	p, ok := params.(*IsoDecParameters)
	if !ok || p == nil {
		return nil, &core.ConfigurationMismatchError{Algorithm: IsoDec.String(), Parameters: describe(params)}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &IsoDecAlgorithm{params: *p, routine: o.routine}, nil
}

func (a *IsoDecAlgorithm) Kind() AlgorithmKind { return IsoDec }

func (a *IsoDecAlgorithm) Deconvolute(spectrum *core.MzSpectrum, rng core.MzRange) ([]IsotopicEnvelope, error) {
	first, last, err := extract(spectrum, rng)
	if err != nil || first == last {
		return nil, err
	}
	n := last - first
	mz := append([]float64(nil), spectrum.XArray()[first:last]...)
	intensity := make([]float32, n)
	for i, y := range spectrum.YArray()[first:last] {
		intensity[i] = float32(y)
	}

	out, release := acquireRecords(n)
	defer release()

	count, err := a.routine.Process(mz, intensity, a.params.Settings(), out)
	if err != nil {
		var rerr *core.ExternalRoutineError
		if errors.As(err, &rerr) {
			return nil, err
		}
		return nil, &core.ExternalRoutineError{Op: "process_spectrum", Err: err}
	}
	if count <= 0 {
		return nil, nil
	}
	if count > n {
		return nil, &core.ExternalRoutineError{Op: "process_spectrum", Err: errors.New("record count exceeds input peak count")}
	}

	var envelopes []IsotopicEnvelope
	id := 0
	for i := 0; i < count; i++ {
		rec, err := DecodeRecord(out[i*RecordSize:])
		if err != nil {
			return nil, &core.ExternalRoutineError{Op: "decode", Err: err}
		}
		envelopes = append(envelopes, a.envelopes(rec, spectrum, id)...)
		id++
	}
	return envelopes, nil
}

// envelopes converts one record; every envelope of a record shares its id.
func (a *IsoDecAlgorithm) envelopes(rec Record, spectrum *core.MzSpectrum, id int) []IsotopicEnvelope {
	tol := core.PpmTolerance(a.params.MatchTolerancePpm)
	xs, ys := spectrum.XArray(), spectrum.YArray()
	peaks := make([]MzIntensity, len(rec.IsotopeMz))
	for i, mz := range rec.IsotopeMz {
		target := float64(mz)
		peaks[i] = MzIntensity{Mz: target}
		// silent peaks do not count as matches
		if idx := mostIntenseWithin(xs, ys, nil, target, tol); idx >= 0 && ys[idx] > 0 {
			peaks[i] = MzIntensity{Mz: xs[idx], Intensity: ys[idx]}
		}
	}

	charge := a.params.Polarity.Apply(int(rec.Charge))
	// the routine reports the apex intensity as the envelope intensity
	total, score := float64(rec.PeakIntensity), float64(rec.Score)
	if !a.params.ReportMultipleMonoisotopicMasses {
		return []IsotopicEnvelope{NewIsotopicEnvelope(id, peaks, float64(rec.MonoisotopicMass), charge, total, score)}
	}
	var envelopes []IsotopicEnvelope
	for _, m := range rec.MonoisotopicCandidates {
		if m > 0 {
			envelopes = append(envelopes, NewIsotopicEnvelope(id, peaks, float64(m), charge, total, score))
		}
	}
	return envelopes
}
