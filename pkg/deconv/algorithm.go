package deconv

import (
	"fmt"

	"github.com/ChrisMcGann/IsoDecon/pkg/averagine"
	"github.com/ChrisMcGann/IsoDecon/pkg/core"
)

// Algorithm deconvolutes the peaks of a spectrum that fall inside a range.
type Algorithm interface {
	Kind() AlgorithmKind
	Deconvolute(spectrum *core.MzSpectrum, rng core.MzRange) ([]IsotopicEnvelope, error)
}

type options struct {
	model   *averagine.Model
	routine Routine
}

// Option customises an algorithm at construction.
type Option func(*options)

// WithModel sets the averagine model used by the classic fit and the local routine.
func WithModel(m *averagine.Model) Option {
	return func(o *options) { o.model = m }
}

// WithRoutine sets the clustering routine used by IsoDec.
func WithRoutine(r Routine) Option {
	return func(o *options) { o.routine = r }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.model == nil {
		o.model = averagine.DefaultModel()
	}
	if o.routine == nil {
		o.routine = &LocalRoutine{Model: o.model}
	}
	return o
}

// New selects the algorithm matching the parameter variant.
func New(params Parameters, opts ...Option) (Algorithm, error) {
	if params == nil {
		return nil, core.NewInvalidInput("parameters", "no deconvolution parameters given")
	}
	switch params.Kind() {
	case Classic:
		return NewClassic(params, opts...)
	case IsoDec:
		return NewIsoDec(params, opts...)
	}
	return nil, core.NewInvalidInput("parameters", "unsupported algorithm %s", params.Kind())
}

// Deconvolute runs the classic algorithm over the peaks of spectrum inside rng.
func Deconvolute(spectrum *core.MzSpectrum, rng core.MzRange, minCharge, maxCharge int, tolerancePpm, intensityRatioLimit float64) ([]IsotopicEnvelope, error) {
	alg, err := NewClassic(NewClassicParameters(minCharge, maxCharge, tolerancePpm, intensityRatioLimit))
	if err != nil {
		return nil, err
	}
	return alg.Deconvolute(spectrum, rng)
}

// extract checks the inputs and returns the [first, last) window of peaks in
// rng. An empty window is not an error.
func extract(spectrum *core.MzSpectrum, rng core.MzRange) (int, int, error) {
	if spectrum == nil || spectrum.IsEmpty() {
		return 0, 0, core.NewInvalidInput("spectrum", "spectrum has no peaks")
	}
	if err := rng.Validate(); err != nil {
		return 0, 0, err
	}
	first, last, ok := spectrum.Extract(rng)
	if !ok {
		return 0, 0, nil
	}
	return first, last, nil
}

func describe(params Parameters) string {
	if params == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T(%s)", params, params.Kind())
}
