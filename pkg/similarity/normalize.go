// Package similarity scores how well an experimental spectrum matches a
// theoretical or library spectrum.
package similarity

import (
	"fmt"
	"math"
	"strings"

	"github.com/ChrisMcGann/IsoDecon/pkg/core"
	"gonum.org/v1/gonum/floats"
)

// Scheme selects how intensities are scaled before pairing.
type Scheme int

const (
	MostAbundantPeak Scheme = iota
	SpectrumSum
	SquareRootSpectrumSum
	Unnormalized
)

var schemeNames = map[Scheme]string{
	MostAbundantPeak:      "mostAbundantPeak",
	SpectrumSum:           "spectrumSum",
	SquareRootSpectrumSum: "squareRootSpectrumSum",
	Unnormalized:          "unnormalized",
}

func (s Scheme) String() string {
	if name, ok := schemeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Scheme(%d)", int(s))
}

// ParseScheme matches scheme names case-insensitively.
func ParseScheme(name string) (Scheme, error) {
	for s, n := range schemeNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return 0, core.NewInvalidInput("scheme", "unknown normalization scheme %q", name)
}

// Normalize returns a scaled copy of values. It returns nil for an empty
// input, and for an input whose scaling denominator is zero.
func Normalize(values []float64, scheme Scheme) []float64 {
	if len(values) == 0 {
		return nil
	}
	out := make([]float64, len(values))
	switch scheme {
	case MostAbundantPeak:
		copy(out, values)
		return scaleBy(out, floats.Max(out))
	case SpectrumSum:
		copy(out, values)
		return scaleBy(out, floats.Sum(out))
	case SquareRootSpectrumSum:
		for i, v := range values {
			out[i] = math.Sqrt(v)
		}
		return scaleBy(out, floats.Sum(out))
	default:
		copy(out, values)
		return out
	}
}

func scaleBy(values []float64, denominator float64) []float64 {
	if denominator == 0 || math.IsNaN(denominator) {
		return nil
	}
	floats.Scale(1/denominator, values)
	return values
}
