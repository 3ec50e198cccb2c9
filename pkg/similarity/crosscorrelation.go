package similarity

import (
	"math"
	"slices"
	"sort"

	"github.com/ChrisMcGann/IsoDecon/pkg/core"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultMzFloor drops low m/z peaks, which are mostly immonium and
// internal fragments.
const DefaultMzFloor = 300

// Options configure a comparison.
type Options struct {
	Scheme       Scheme
	TolerancePpm float64
	// Append unmatched experimental peaks as (intensity, 0) pairs.
	AllPeaks bool
	// Peaks below this m/z are ignored on both sides.
	MzFloor float64
}

func DefaultOptions() Options {
	return Options{
		Scheme:       MostAbundantPeak,
		TolerancePpm: 20,
		MzFloor:      DefaultMzFloor,
	}
}

func (o Options) Validate() error {
	if !(o.TolerancePpm > 0) {
		return core.NewInvalidInput("TolerancePpm", "must be positive, got %g", o.TolerancePpm)
	}
	if math.IsNaN(o.MzFloor) {
		return core.NewInvalidInput("MzFloor", "must be a number")
	}
	if _, ok := schemeNames[o.Scheme]; !ok {
		return core.NewInvalidInput("Scheme", "unknown normalization scheme %d", int(o.Scheme))
	}
	return nil
}

// IntensityPair holds the paired intensities of one matched (or unmatched) peak.
type IntensityPair struct {
	Experimental float64
	Theoretical  float64
}

// Undefined is the single pair reported when the spectra have nothing to compare.
var Undefined = IntensityPair{Experimental: -1, Theoretical: -1}

// CrossCorrelation compares an experimental spectrum with a theoretical one.
// It is immutable after construction.
type CrossCorrelation struct {
	opts  Options
	expX  []float64
	expY  []float64
	theoX []float64
	theoY []float64
	pairs []IntensityPair
}

// New compares two spectra.
func New(experimental, theoretical *core.MzSpectrum, opts Options) (*CrossCorrelation, error) {
	if experimental == nil || theoretical == nil {
		return nil, core.NewInvalidInput("spectrum", "both spectra are required")
	}
	return NewFromArrays(experimental.XArray(), experimental.YArray(), theoretical.XArray(), theoretical.YArray(), opts)
}

// NewFromArrays compares two spectra given as parallel m/z and intensity arrays.
func NewFromArrays(expX, expY, theoX, theoY []float64, opts Options) (*CrossCorrelation, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	ex, ey, err := filterBelow("experimental", expX, expY, opts.MzFloor)
	if err != nil {
		return nil, err
	}
	tx, ty, err := filterBelow("theoretical", theoX, theoY, opts.MzFloor)
	if err != nil {
		return nil, err
	}
	c := &CrossCorrelation{
		opts:  opts,
		expX:  ex,
		expY:  Normalize(ey, opts.Scheme),
		theoX: tx,
		theoY: Normalize(ty, opts.Scheme),
	}
	c.pairs = c.pair()
	return c, nil
}

// filterBelow keeps peaks at or above floor with non-negative intensity. The
// emptiness checks apply to the unfiltered input.
func filterBelow(side string, xs, ys []float64, floor float64) ([]float64, []float64, error) {
	if len(ys) == 0 {
		return nil, nil, &core.EmptySpectrumError{Reason: side + " spectrum has no peaks"}
	}
	if len(xs) != len(ys) {
		return nil, nil, core.NewInvalidInput(side, "%d m/z values but %d intensities", len(xs), len(ys))
	}
	if floats.Sum(ys) == 0 {
		return nil, nil, &core.EmptySpectrumError{Reason: side + " spectrum has no intensity"}
	}
	var fx, fy []float64
	for i := range xs {
		if xs[i] >= floor && ys[i] >= 0 {
			fx = append(fx, xs[i])
			fy = append(fy, ys[i])
		}
	}
	return fx, fy, nil
}

type peak struct{ mz, intensity float64 }

func byIntensity(xs, ys []float64) []peak {
	peaks := make([]peak, len(xs))
	for i := range xs {
		peaks[i] = peak{xs[i], ys[i]}
	}
	sort.SliceStable(peaks, func(i, j int) bool { return peaks[i].intensity > peaks[j].intensity })
	return peaks
}

// pair matches each theoretical peak, most intense first, with the first
// remaining experimental peak within tolerance, also taken most intense first.
func (c *CrossCorrelation) pair() []IntensityPair {
	if c.expY == nil || c.theoY == nil {
		return []IntensityPair{Undefined}
	}
	remaining := byIntensity(c.expX, c.expY)
	theoretical := byIntensity(c.theoX, c.theoY)

	pairs := make([]IntensityPair, 0, len(theoretical))
	matched := 0
	for _, t := range theoretical {
		found := false
		for i, e := range remaining {
			if WithinTolerance(e.mz, t.mz, c.opts.TolerancePpm) {
				pairs = append(pairs, IntensityPair{Experimental: e.intensity, Theoretical: t.intensity})
				remaining = slices.Delete(remaining, i, i+1)
				found = true
				matched++
				break
			}
		}
		if !found {
			pairs = append(pairs, IntensityPair{Theoretical: t.intensity})
		}
	}
	if matched == 0 {
		return []IntensityPair{Undefined}
	}
	if c.opts.AllPeaks {
		for _, e := range remaining {
			pairs = append(pairs, IntensityPair{Experimental: e.intensity})
		}
	}
	return pairs
}

// Comparable reports whether the spectra share at least one matched peak.
func (c *CrossCorrelation) Comparable() bool {
	return !(len(c.pairs) == 1 && c.pairs[0] == Undefined)
}

// Score returns the Pearson correlation of the paired intensities. ok is false
// when the spectra are not comparable or the correlation is undefined.
func (c *CrossCorrelation) Score() (score float64, ok bool) {
	if !c.Comparable() {
		return 0, false
	}
	exp := make([]float64, len(c.pairs))
	theo := make([]float64, len(c.pairs))
	for i, p := range c.pairs {
		exp[i], theo[i] = p.Experimental, p.Theoretical
	}
	return Pearson(exp, theo)
}

// Pearson returns the correlation of two equal-length series. ok is false
// for mismatched lengths or zero variance.
func Pearson(a, b []float64) (float64, bool) {
	if len(a) != len(b) || len(a) < 2 {
		return 0, false
	}
	r := stat.Correlation(a, b, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return math.Max(-1, math.Min(1, r)), true
}

func (c *CrossCorrelation) Options() Options                { return c.opts }
func (c *CrossCorrelation) ExperimentalX() []float64        { return slices.Clone(c.expX) }
func (c *CrossCorrelation) ExperimentalY() []float64        { return slices.Clone(c.expY) }
func (c *CrossCorrelation) TheoreticalX() []float64         { return slices.Clone(c.theoX) }
func (c *CrossCorrelation) TheoreticalY() []float64         { return slices.Clone(c.theoY) }
func (c *CrossCorrelation) IntensityPairs() []IntensityPair { return slices.Clone(c.pairs) }
