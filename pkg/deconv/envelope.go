// Package deconv assigns spectrum peaks to isotopic envelopes of charged
// species and reports their charge and monoisotopic mass.
//
// Algorithms are selected by the variant of the Parameters they are built
// with. ClassicParameters drive an in-process averagine fit; IsoDecParameters
// delegate clustering to an external Routine and re-match its isotope
// positions against the full-precision spectrum.
package deconv

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// MzIntensity is one peak of an envelope.
type MzIntensity struct {
	Mz        float64
	Intensity float64
}

// IsotopicEnvelope is one deconvolved cluster. The sign of Charge encodes polarity.
type IsotopicEnvelope struct {
	id               int
	peaks            []MzIntensity
	monoisotopicMass float64
	charge           int
	totalIntensity   float64
	score            float64
}

// NewIsotopicEnvelope copies peaks; the envelope is immutable afterwards.
func NewIsotopicEnvelope(id int, peaks []MzIntensity, monoisotopicMass float64, charge int, totalIntensity, score float64) IsotopicEnvelope {
	return IsotopicEnvelope{
		id:               id,
		peaks:            append([]MzIntensity(nil), peaks...),
		monoisotopicMass: monoisotopicMass,
		charge:           charge,
		totalIntensity:   totalIntensity,
		score:            score,
	}
}

func (e IsotopicEnvelope) ID() int                   { return e.id }
func (e IsotopicEnvelope) MonoisotopicMass() float64 { return e.monoisotopicMass }
func (e IsotopicEnvelope) Charge() int               { return e.charge }
func (e IsotopicEnvelope) TotalIntensity() float64   { return e.totalIntensity }
func (e IsotopicEnvelope) Score() float64            { return e.score }
func (e IsotopicEnvelope) Len() int                  { return len(e.peaks) }

// Peaks returns a copy of the envelope peaks in isotope order.
func (e IsotopicEnvelope) Peaks() []MzIntensity {
	return append([]MzIntensity(nil), e.peaks...)
}

// Polarity derives the polarity from the charge sign.
func (e IsotopicEnvelope) Polarity() Polarity {
	if e.charge < 0 {
		return Negative
	}
	return Positive
}

// MostAbundantMz returns the m/z of the most intense peak, 0 for an empty envelope.
func (e IsotopicEnvelope) MostAbundantMz() float64 {
	if len(e.peaks) == 0 {
		return 0
	}
	ys := make([]float64, len(e.peaks))
	for i, p := range e.peaks {
		ys[i] = p.Intensity
	}
	return e.peaks[floats.MaxIdx(ys)].Mz
}

func (e IsotopicEnvelope) String() string {
	return fmt.Sprintf("#%d z=%d mono=%.4f peaks=%d intensity=%.4g score=%.3f",
		e.id, e.charge, e.monoisotopicMass, len(e.peaks), e.totalIntensity, e.score)
}
