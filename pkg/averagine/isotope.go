package averagine

import (
	"github.com/ChrisMcGann/IsoDecon/pkg/core"
	"gonum.org/v1/gonum/floats"
)

// Distribution is a coarse isotope distribution: one bin per additional
// neutron, masses ascending, intensities summing to one.
type Distribution struct {
	Masses      []float64
	Intensities []float64
}

func (d Distribution) Len() int { return len(d.Masses) }

// MostAbundant returns the index of the most intense isotope peak.
func (d Distribution) MostAbundant() int {
	if len(d.Intensities) == 0 {
		return -1
	}
	return floats.MaxIdx(d.Intensities)
}

// NormalizedToMax returns the intensities scaled so that the apex is 1.
func (d Distribution) NormalizedToMax() []float64 {
	out := append([]float64(nil), d.Intensities...)
	if len(out) > 0 {
		floats.Scale(1/floats.Max(out), out)
	}
	return out
}

// Offsets returns each isotope mass relative to the monoisotopic (first) bin.
func (d Distribution) Offsets() []float64 {
	out := make([]float64, len(d.Masses))
	for i, m := range d.Masses {
		out[i] = m - d.Masses[0]
	}
	return out
}

// bins accumulate probability and probability-weighted mass per neutron offset.
type bins struct {
	p []float64
	w []float64
}

func identityBins() bins {
	return bins{p: []float64{1}, w: []float64{0}}
}

func elementBins(el *core.Element) bins {
	first := el.Isotopes[0].MassNumber
	n := el.Isotopes[len(el.Isotopes)-1].MassNumber - first + 1
	b := bins{p: make([]float64, n), w: make([]float64, n)}
	for _, iso := range el.Isotopes {
		off := iso.MassNumber - first
		b.p[off] = iso.Abundance
		b.w[off] = iso.Abundance * iso.Mass
	}
	return b
}

// convolve combines two independent distributions, keeping at most limit bins.
func convolve(a, b bins, limit int) bins {
	n := len(a.p) + len(b.p) - 1
	if n > limit {
		n = limit
	}
	out := bins{p: make([]float64, n), w: make([]float64, n)}
	for i := range a.p {
		if a.p[i] == 0 {
			continue
		}
		for j := range b.p {
			k := i + j
			if k >= n {
				break
			}
			// w/p is the mean mass of a bin
			out.p[k] += a.p[i] * b.p[j]
			out.w[k] += a.w[i]*b.p[j] + a.p[i]*b.w[j]
		}
	}
	return out
}

func power(b bins, n, limit int) bins {
	result := identityBins()
	for n > 0 {
		if n&1 == 1 {
			result = convolve(result, b, limit)
		}
		n >>= 1
		if n > 0 {
			b = convolve(b, b, limit)
		}
	}
	return result
}

// Distribute computes the isotope distribution of formula with at most
// maxIsotopes bins. Trailing bins below minProbability (relative to the apex)
// are dropped. Leading bins are always kept so that bin 0 is the monoisotopic peak.
func Distribute(formula core.ChemicalFormula, maxIsotopes int, minProbability float64) (Distribution, error) {
	if maxIsotopes <= 0 {
		return Distribution{}, core.NewInvalidInput("maxIsotopes", "must be positive, got %d", maxIsotopes)
	}
	acc := identityBins()
	for _, sym := range formula.Symbols() {
		n := formula[sym]
		if n < 0 {
			return Distribution{}, core.NewInvalidInput("formula", "negative count for %s", sym)
		}
		el, ok := core.Elements[sym]
		if !ok {
			return Distribution{}, core.NewInvalidInput("formula", "unknown element %q", sym)
		}
		acc = convolve(acc, power(elementBins(el), n, maxIsotopes), maxIsotopes)
	}

	total := floats.Sum(acc.p)
	if total == 0 {
		return Distribution{}, core.NewInvalidInput("formula", "isotope distribution underflow")
	}
	apex := floats.Max(acc.p)
	last := len(acc.p) - 1
	for last > 0 && acc.p[last]/apex < minProbability {
		last--
	}

	mono, err := formula.MonoisotopicMass()
	if err != nil {
		return Distribution{}, err
	}
	d := Distribution{
		Masses:      make([]float64, last+1),
		Intensities: make([]float64, last+1),
	}
	for k := 0; k <= last; k++ {
		d.Intensities[k] = acc.p[k] / total
		if acc.p[k] > 0 {
			d.Masses[k] = acc.w[k] / acc.p[k]
		} else {
			d.Masses[k] = mono + float64(k)*core.C13MinusC12
		}
	}
	floats.Scale(1/floats.Sum(d.Intensities), d.Intensities)
	return d, nil
}
